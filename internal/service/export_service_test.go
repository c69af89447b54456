package service

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

type exportStoreStub struct {
	jobs map[string]*models.ExportJob
}

func newExportStoreStub() *exportStoreStub {
	return &exportStoreStub{jobs: make(map[string]*models.ExportJob)}
}

func (s *exportStoreStub) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = "job-1"
	}
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *exportStoreStub) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	if job, ok := s.jobs[id]; ok {
		copied := *job
		return &copied, nil
	}
	return nil, os.ErrNotExist
}

func (s *exportStoreStub) UpdateStatus(ctx context.Context, id string, status models.ExportStatus, progress int) error {
	s.jobs[id].Status = status
	s.jobs[id].Progress = progress
	return nil
}

func (s *exportStoreStub) MarkFinished(ctx context.Context, id string, resultPath string) error {
	now := time.Now().UTC()
	s.jobs[id].Status = models.ExportStatusFinished
	s.jobs[id].Progress = 100
	s.jobs[id].ResultPath = &resultPath
	s.jobs[id].FinishedAt = &now
	return nil
}

func (s *exportStoreStub) MarkFailed(ctx context.Context, id string, message string) error {
	now := time.Now().UTC()
	s.jobs[id].Status = models.ExportStatusFailed
	s.jobs[id].FinishedAt = &now
	s.jobs[id].ErrorMessage = &message
	return nil
}

func (s *exportStoreStub) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	var paths []string
	for id, job := range s.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			if job.ResultPath != nil {
				paths = append(paths, *job.ResultPath)
			}
			delete(s.jobs, id)
		}
	}
	return paths, nil
}

type storageStub struct {
	files map[string][]byte
}

func newStorageStub() *storageStub {
	return &storageStub{files: make(map[string][]byte)}
}

func (s *storageStub) Save(filename string, data []byte) (string, error) {
	s.files[filename] = data
	return filename, nil
}

func (s *storageStub) Open(filename string) (*os.File, error) {
	if _, ok := s.files[filename]; !ok {
		return nil, os.ErrNotExist
	}
	return os.Open(os.DevNull)
}

func (s *storageStub) Delete(filename string) error {
	delete(s.files, filename)
	return nil
}

func (s *storageStub) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	return nil, nil
}

type generatorStub struct {
	resp *dto.GenerateTimetableResponse
	err  error
}

func (g *generatorStub) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.resp, nil
}

func newExportServiceFixture(store *exportStoreStub, fs *storageStub, gen *generatorStub) *ExportService {
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewExportService(store, gen, fs, signer, nil, nil, nil, ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour})
}

func sampleGeneration() *dto.GenerateTimetableResponse {
	return &dto.GenerateTimetableResponse{
		Success: true,
		Timetable: map[string][]dto.BatchDaySchedule{
			"b1": {{
				Date: "2026-01-05",
				Day:  "Monday",
				Assignments: []dto.AssignmentRecord{{
					SubjectID: "s1", TeacherID: "t1", ClassroomID: "c1",
					Date: "2026-01-05", Day: "Monday", Start: "09:00", End: "10:00",
				}},
			}},
		},
	}
}

func exportRequest(format models.ExportFormat) dto.ExportTimetableRequest {
	return dto.ExportTimetableRequest{
		Format: format,
		Generation: dto.GenerateTimetableRequest{
			BatchIDs:    []string{"b1"},
			StartDate:   "2026-01-05",
			EndDate:     "2026-01-09",
			WorkingDays: []string{"Monday"},
			StartTime:   "09:00",
			EndTime:     "12:00",
		},
	}
}

func TestExportServiceEnqueueAndProcess(t *testing.T) {
	store := newExportStoreStub()
	fs := newStorageStub()
	svc := newExportServiceFixture(store, fs, &generatorStub{resp: sampleGeneration()})

	queue := jobs.NewQueue("exports", svc.HandleJob, jobs.QueueConfig{Workers: 1})
	queue.Start(context.Background())
	defer queue.Stop()
	svc.AttachQueue(queue)

	resp, err := svc.Enqueue(context.Background(), "user-1", exportRequest(models.ExportFormatCSV))
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)

	require.Eventually(t, func() bool {
		job, err := store.FindByID(context.Background(), resp.ID)
		return err == nil && job.Status == models.ExportStatusFinished
	}, 2*time.Second, 10*time.Millisecond)

	job, err := store.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	require.NotNil(t, job.ResultPath)
	payload := fs.files[*job.ResultPath]
	assert.Contains(t, string(payload), "Batch,Date,Day,Start,End,Subject,Teacher,Classroom")
	assert.Contains(t, string(payload), "b1,2026-01-05,Monday,09:00,10:00,s1,t1,c1")
}

func TestExportServiceEnqueueWithoutWorkers(t *testing.T) {
	store := newExportStoreStub()
	svc := newExportServiceFixture(store, newStorageStub(), &generatorStub{resp: sampleGeneration()})

	_, err := svc.Enqueue(context.Background(), "user-1", exportRequest(models.ExportFormatCSV))
	assert.Error(t, err)
}

func TestExportServiceEnqueueValidation(t *testing.T) {
	store := newExportStoreStub()
	svc := newExportServiceFixture(store, newStorageStub(), &generatorStub{resp: sampleGeneration()})

	req := exportRequest(models.ExportFormatCSV)
	req.Format = "xlsx"
	_, err := svc.Enqueue(context.Background(), "user-1", req)
	assert.Error(t, err)
}

func TestExportServiceStatusCarriesSignedURL(t *testing.T) {
	store := newExportStoreStub()
	fs := newStorageStub()
	svc := newExportServiceFixture(store, fs, &generatorStub{resp: sampleGeneration()})

	generation, err := json.Marshal(exportRequest(models.ExportFormatCSV).Generation)
	require.NoError(t, err)
	job := &models.ExportJob{
		ID:        "job-9",
		Params:    models.ExportJobParams{Format: models.ExportFormatCSV, Generation: generation},
		CreatedBy: "user-1",
	}
	require.NoError(t, store.Create(context.Background(), job))
	require.NoError(t, svc.HandleJob(context.Background(), jobs.Job{ID: "job-9"}))

	status, err := svc.Status(context.Background(), "job-9")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, status.Status)
	require.NotNil(t, status.DownloadURL)
	assert.True(t, strings.HasPrefix(*status.DownloadURL, "/api/v1/timetable/exports/job-9/download?token="))
}

func TestExportServiceHandleJobGenerationFailure(t *testing.T) {
	store := newExportStoreStub()
	svc := newExportServiceFixture(store, newStorageStub(), &generatorStub{err: os.ErrDeadlineExceeded})

	generation, err := json.Marshal(exportRequest(models.ExportFormatPDF).Generation)
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), &models.ExportJob{
		ID:     "job-2",
		Params: models.ExportJobParams{Format: models.ExportFormatPDF, Generation: generation},
	}))

	require.Error(t, svc.HandleJob(context.Background(), jobs.Job{ID: "job-2"}))

	job, err := store.FindByID(context.Background(), "job-2")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
}

func TestExportServiceCleanup(t *testing.T) {
	store := newExportStoreStub()
	fs := newStorageStub()
	svc := newExportServiceFixture(store, fs, &generatorStub{resp: sampleGeneration()})

	old := time.Now().Add(-48 * time.Hour)
	path := "timetable_job-old.csv"
	fs.files[path] = []byte("data")
	store.jobs["job-old"] = &models.ExportJob{
		ID:         "job-old",
		Status:     models.ExportStatusFinished,
		ResultPath: &path,
		FinishedAt: &old,
	}

	svc.Cleanup(context.Background())

	_, err := store.FindByID(context.Background(), "job-old")
	assert.Error(t, err)
	_, ok := fs.files[path]
	assert.False(t, ok)
}
