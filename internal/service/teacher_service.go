package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
}

type subjectLookup interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Subject, error)
}

// CreateTeacherRequest represents payload for creating teachers.
type CreateTeacherRequest struct {
	Name             string   `json:"name" validate:"required,max=200"`
	MaxClassesPerDay int      `json:"max_classes_per_day" validate:"required,min=1,max=8"`
	LeaveCount       int      `json:"leave_count" validate:"min=0"`
	SubjectIDs       []string `json:"subjects" validate:"omitempty,dive,required"`
}

// UpdateTeacherRequest represents payload for updating teachers.
type UpdateTeacherRequest struct {
	Name             string   `json:"name" validate:"required,max=200"`
	MaxClassesPerDay int      `json:"max_classes_per_day" validate:"required,min=1,max=8"`
	LeaveCount       int      `json:"leave_count" validate:"min=0"`
	SubjectIDs       []string `json:"subjects" validate:"omitempty,dive,required"`
}

// TeacherService orchestrates teacher operations.
type TeacherService struct {
	repo      teacherRepository
	subjects  subjectLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, subjects subjectLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, subjects: subjects, cache: cache, validator: validate, logger: logger}
}

// List returns teachers plus pagination data.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return teachers, pagination, nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// Create registers a new teacher record.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	if err := s.ensureUniqueName(ctx, req.Name, ""); err != nil {
		return nil, err
	}
	if err := s.resolveSubjects(ctx, req.SubjectIDs); err != nil {
		return nil, err
	}

	teacher := &models.Teacher{
		Name:             strings.TrimSpace(req.Name),
		MaxClassesPerDay: req.MaxClassesPerDay,
		LeaveCount:       req.LeaveCount,
		SubjectIDs:       pq.StringArray(req.SubjectIDs),
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	s.cache.BumpCatalogVersion(ctx)
	return teacher, nil
}

// Update modifies an existing teacher.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	if err := s.ensureUniqueName(ctx, req.Name, id); err != nil {
		return nil, err
	}
	if err := s.resolveSubjects(ctx, req.SubjectIDs); err != nil {
		return nil, err
	}

	teacher.Name = strings.TrimSpace(req.Name)
	teacher.MaxClassesPerDay = req.MaxClassesPerDay
	teacher.LeaveCount = req.LeaveCount
	teacher.SubjectIDs = pq.StringArray(req.SubjectIDs)

	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	s.cache.BumpCatalogVersion(ctx)
	return teacher, nil
}

// Delete removes a teacher.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	s.cache.BumpCatalogVersion(ctx)
	return nil
}

func (s *TeacherService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, strings.TrimSpace(name), excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher name uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "teacher name already used")
	}
	return nil
}

func (s *TeacherService) resolveSubjects(ctx context.Context, ids []string) error {
	if len(ids) == 0 || s.subjects == nil {
		return nil
	}
	found, err := s.subjects.FindByIDs(ctx, ids)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subjects")
	}
	known := make(map[string]struct{}, len(found))
	for _, sub := range found {
		known[sub.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return appErrors.Clone(appErrors.ErrReference, "subject "+id+" does not exist")
		}
	}
	return nil
}
