package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type timetableBatchSource interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Batch, error)
}

type timetableSubjectSource interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Subject, error)
}

type timetableTeacherSource interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Teacher, error)
}

type timetableClassroomSource interface {
	ListAll(ctx context.Context) ([]models.Classroom, error)
}

// TimetableConfig tunes generation behaviour.
type TimetableConfig struct {
	// GenerationBudget caps the wall clock spent inside one run. Zero
	// disables the cutoff.
	GenerationBudget time.Duration
	ResultCacheTTL   time.Duration
}

// TimetableService loads catalog snapshots, runs the assignment engine and
// shapes the response. Catalog I/O happens strictly before the run; the
// engine itself never touches storage.
type TimetableService struct {
	batches    timetableBatchSource
	subjects   timetableSubjectSource
	teachers   timetableTeacherSource
	classrooms timetableClassroomSource
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        TimetableConfig
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(
	batches timetableBatchSource,
	subjects timetableSubjectSource,
	teachers timetableTeacherSource,
	classrooms timetableClassroomSource,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		batches:    batches,
		subjects:   subjects,
		teachers:   teachers,
		classrooms: classrooms,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
	}
}

// Generate builds a timetable for the requested batches. Infeasibility is
// data, not an error: the response carries unresolved requirements alongside
// the placed assignments.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation request")
	}

	cacheKey := s.resultCacheKey(ctx, req)
	if cacheKey != "" {
		var cached dto.GenerateTimetableResponse
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	snap, err := s.loadSnapshot(ctx, req.BatchIDs)
	if err != nil {
		return nil, err
	}

	parsed, err := timetable.ParseRequest(req)
	if err != nil {
		return nil, err
	}
	grid := timetable.BuildGrid(parsed, snap.SlotMinutes())

	opts := timetable.Options{}
	if s.cfg.GenerationBudget > 0 {
		opts.Deadline = time.Now().Add(s.cfg.GenerationBudget)
	}

	start := time.Now()
	result := timetable.NewEngine(snap, grid, opts).Run()
	elapsed := time.Since(start)

	schedule, unresolved := timetable.Assemble(result)

	byReason := make(map[string]int)
	for _, u := range unresolved {
		byReason[u.Reason]++
	}
	s.metrics.ObserveGeneration(elapsed, len(result.Assignments), byReason)
	s.logger.Info("timetable generated",
		zap.Int("placed", len(result.Assignments)),
		zap.Int("unresolved", len(unresolved)),
		zap.Duration("elapsed", elapsed),
	)

	response := &dto.GenerateTimetableResponse{
		Success:    len(unresolved) == 0,
		Message:    generationMessage(len(result.Assignments), len(unresolved)),
		Timetable:  schedule,
		Unresolved: unresolved,
	}

	if cacheKey != "" {
		_ = s.cache.Set(ctx, cacheKey, response, s.cfg.ResultCacheTTL)
	}
	return response, nil
}

// Health reports availability of the generation subsystem.
func (s *TimetableService) Health() map[string]string {
	return map[string]string{
		"status":    "available",
		"component": "timetable-generator",
	}
}

// loadSnapshot fetches the catalog records the request needs and freezes
// them into a validated snapshot. Every catalog read happens here, before
// the engine runs.
func (s *TimetableService) loadSnapshot(ctx context.Context, batchIDs []string) (*timetable.Snapshot, error) {
	batches, err := s.batches.FindByIDs(ctx, batchIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batches")
	}
	found := make(map[string]struct{}, len(batches))
	for _, b := range batches {
		found[b.ID] = struct{}{}
	}
	for _, id := range batchIDs {
		if _, ok := found[id]; !ok {
			return nil, appErrors.Clone(appErrors.ErrReference, fmt.Sprintf("batch %s does not exist", id))
		}
	}

	var subjectIDs []string
	seenSubjects := make(map[string]struct{})
	for _, b := range batches {
		for _, id := range b.SubjectIDs {
			if _, ok := seenSubjects[id]; ok {
				continue
			}
			seenSubjects[id] = struct{}{}
			subjectIDs = append(subjectIDs, id)
		}
	}
	subjects, err := s.subjects.FindByIDs(ctx, subjectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}

	var teacherIDs []string
	seenTeachers := make(map[string]struct{})
	for _, sub := range subjects {
		for _, id := range sub.TeacherIDs {
			if _, ok := seenTeachers[id]; ok {
				continue
			}
			seenTeachers[id] = struct{}{}
			teacherIDs = append(teacherIDs, id)
		}
	}
	teachers, err := s.teachers.FindByIDs(ctx, teacherIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}

	classrooms, err := s.classrooms.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classrooms")
	}

	return timetable.NewSnapshot(teachers, classrooms, subjects, batches)
}

// resultCacheKey derives a deterministic key from the request payload and
// the current catalog version. Returns empty when caching is disabled.
func (s *TimetableService) resultCacheKey(ctx context.Context, req dto.GenerateTimetableRequest) string {
	if !s.cache.Enabled() {
		return ""
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	version := s.cache.CatalogVersion(ctx)
	return fmt.Sprintf("timetable:result:v%d:%s", version, hex.EncodeToString(sum[:16]))
}

func generationMessage(placed, unresolved int) string {
	if unresolved == 0 {
		return fmt.Sprintf("timetable generated: %d classes placed", placed)
	}
	return fmt.Sprintf("timetable generated with conflicts: %d classes placed, %d requirements unresolved", placed, unresolved)
}
