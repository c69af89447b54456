package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	UpdateStatus(ctx context.Context, id string, status models.ExportStatus, progress int) error
	MarkFinished(ctx context.Context, id string, resultPath string) error
	MarkFailed(ctx context.Context, id string, message string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService runs timetable exports as background jobs: the generation is
// replayed from the persisted request, rendered to CSV or PDF and stored on
// disk behind signed download URLs.
type ExportService struct {
	store     exportJobStore
	generator timetableGenerator
	storage   fileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	signer    *storage.SignedURLSigner
	queue     *jobs.Queue
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService. Attach the returned service
// to a queue via Handle before starting the queue.
func NewExportService(
	store exportJobStore,
	generator timetableGenerator,
	fs fileStorage,
	signer *storage.SignedURLSigner,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ExportConfig,
) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		store:     store,
		generator: generator,
		storage:   fs,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		signer:    signer,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// AttachQueue wires the worker queue used for asynchronous processing.
func (s *ExportService) AttachQueue(queue *jobs.Queue) {
	s.queue = queue
}

// Enqueue persists a queued export job and hands it to the worker pool.
func (s *ExportService) Enqueue(ctx context.Context, userID string, req dto.ExportTimetableRequest) (*dto.ExportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}

	generation, err := json.Marshal(req.Generation)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode generation request")
	}

	job := &models.ExportJob{
		Params: models.ExportJobParams{
			Format:     req.Format,
			Generation: generation,
		},
		Status:    models.ExportStatusQueued,
		CreatedBy: userID,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist export job")
	}

	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "export workers are not running")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "timetable-export"}); err != nil {
		if markErr := s.store.MarkFailed(ctx, job.ID, "export queue is full"); markErr != nil {
			s.logger.Warn("failed to mark overflowed job", zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}

	return &dto.ExportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// HandleJob is the queue handler: it replays the persisted generation
// request, renders the result and stores the artifact.
func (s *ExportService) HandleJob(ctx context.Context, queued jobs.Job) error {
	job, err := s.store.FindByID(ctx, queued.ID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", queued.ID, err)
	}

	if err := s.store.UpdateStatus(ctx, job.ID, models.ExportStatusProcessing, 10); err != nil {
		s.logger.Warn("failed to mark export processing", zap.String("job_id", job.ID), zap.Error(err))
	}

	payload, err := s.render(ctx, job)
	if err != nil {
		s.metrics.RecordExport(string(job.Params.Format), false)
		if markErr := s.store.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			s.logger.Warn("failed to mark export failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return err
	}

	filename := fmt.Sprintf("timetable_%s.%s", job.ID, job.Params.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		s.metrics.RecordExport(string(job.Params.Format), false)
		if markErr := s.store.MarkFailed(ctx, job.ID, "failed to store export artifact"); markErr != nil {
			s.logger.Warn("failed to mark export failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return fmt.Errorf("store export artifact: %w", err)
	}

	if err := s.store.MarkFinished(ctx, job.ID, relPath); err != nil {
		return fmt.Errorf("finish export job %s: %w", job.ID, err)
	}
	s.metrics.RecordExport(string(job.Params.Format), true)
	s.logger.Info("export finished", zap.String("job_id", job.ID), zap.String("path", relPath))
	return nil
}

// Status reports a job's lifecycle state, including a signed download URL
// once the artifact is ready.
func (s *ExportService) Status(ctx context.Context, jobID string) (*dto.ExportStatusResponse, error) {
	job, err := s.store.FindByID(ctx, jobID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}

	resp := &dto.ExportStatusResponse{
		ID:           job.ID,
		Status:       job.Status,
		Progress:     job.Progress,
		ErrorMessage: job.ErrorMessage,
	}
	if job.Status == models.ExportStatusFinished && job.ResultPath != nil {
		token, _, err := s.signer.Generate(job.ID, *job.ResultPath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download URL")
		}
		url := fmt.Sprintf("%s/timetable/exports/%s/download?token=%s", s.cfg.APIPrefix, job.ID, token)
		resp.DownloadURL = &url
	}
	return resp, nil
}

// OpenArtifact validates a signed token and opens the matching artifact.
func (s *ExportService) OpenArtifact(ctx context.Context, jobID, token string) (*os.File, error) {
	tokenJobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	if tokenJobID != jobID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token does not match job")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export artifact no longer available")
	}
	return file, nil
}

// Cleanup prunes expired jobs and their artifacts. Run periodically.
func (s *ExportService) Cleanup(ctx context.Context) {
	paths, err := s.store.DeleteOlderThan(ctx, time.Now().Add(-s.cfg.ResultTTL))
	if err != nil {
		s.logger.Warn("export job prune failed", zap.Error(err))
	}
	for _, p := range paths {
		if err := s.storage.Delete(p); err != nil {
			s.logger.Warn("export artifact delete failed", zap.String("path", p), zap.Error(err))
		}
	}
	if removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
		s.logger.Warn("export storage cleanup failed", zap.Error(err))
	} else if len(removed) > 0 {
		s.logger.Info("export artifacts removed", zap.Int("count", len(removed)))
	}
}

func (s *ExportService) render(ctx context.Context, job *models.ExportJob) ([]byte, error) {
	var generation dto.GenerateTimetableRequest
	if err := json.Unmarshal(job.Params.Generation, &generation); err != nil {
		return nil, fmt.Errorf("decode generation request: %w", err)
	}

	result, err := s.generator.Generate(ctx, generation)
	if err != nil {
		return nil, fmt.Errorf("generate timetable: %w", err)
	}

	dataset := buildTimetableDataset(result)
	switch job.Params.Format {
	case models.ExportFormatCSV:
		return s.csv.Render(dataset)
	case models.ExportFormatPDF:
		return s.pdf.Render(dataset)
	default:
		return nil, fmt.Errorf("unsupported export format %q", job.Params.Format)
	}
}

func buildTimetableDataset(result *dto.GenerateTimetableResponse) export.Dataset {
	dataset := export.Dataset{
		Title:   "Timetable",
		Headers: []string{"Batch", "Date", "Day", "Start", "End", "Subject", "Teacher", "Classroom"},
	}

	batchIDs := make([]string, 0, len(result.Timetable))
	for id := range result.Timetable {
		batchIDs = append(batchIDs, id)
	}
	sort.Strings(batchIDs)

	for _, batchID := range batchIDs {
		for _, day := range result.Timetable[batchID] {
			for _, a := range day.Assignments {
				dataset.Rows = append(dataset.Rows, []string{
					batchID, a.Date, a.Day, a.Start, a.End, a.SubjectID, a.TeacherID, a.ClassroomID,
				})
			}
		}
	}
	return dataset
}
