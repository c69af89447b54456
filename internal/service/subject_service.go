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

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

type teacherLookup interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Teacher, error)
}

// CreateSubjectRequest represents payload for creating subjects.
type CreateSubjectRequest struct {
	Name             string   `json:"name" validate:"required,max=200"`
	ClassesPerWeek   int      `json:"classes_per_week" validate:"required,min=1,max=10"`
	DurationPerClass int      `json:"duration_per_class" validate:"required,min=30,max=180"`
	TeacherIDs       []string `json:"assigned_teachers" validate:"omitempty,dive,required"`
}

// UpdateSubjectRequest represents payload for updating subjects.
type UpdateSubjectRequest struct {
	Name             string   `json:"name" validate:"required,max=200"`
	ClassesPerWeek   int      `json:"classes_per_week" validate:"required,min=1,max=10"`
	DurationPerClass int      `json:"duration_per_class" validate:"required,min=30,max=180"`
	TeacherIDs       []string `json:"assigned_teachers" validate:"omitempty,dive,required"`
}

// SubjectService orchestrates subject operations.
type SubjectService struct {
	repo      subjectRepository
	teachers  teacherLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a SubjectService.
func NewSubjectService(repo subjectRepository, teachers teacherLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, teachers: teachers, cache: cache, validator: validate, logger: logger}
}

// List returns subjects plus pagination data.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, *models.Pagination, error) {
	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
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
	return subjects, pagination, nil
}

// Get returns a subject by id.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// Create registers a new subject record.
func (s *SubjectService) Create(ctx context.Context, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	if err := s.ensureUniqueName(ctx, req.Name, ""); err != nil {
		return nil, err
	}
	if err := s.resolveTeachers(ctx, req.TeacherIDs); err != nil {
		return nil, err
	}

	subject := &models.Subject{
		Name:             strings.TrimSpace(req.Name),
		ClassesPerWeek:   req.ClassesPerWeek,
		DurationPerClass: req.DurationPerClass,
		TeacherIDs:       pq.StringArray(req.TeacherIDs),
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	s.cache.BumpCatalogVersion(ctx)
	return subject, nil
}

// Update modifies an existing subject.
func (s *SubjectService) Update(ctx context.Context, id string, req UpdateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	if err := s.ensureUniqueName(ctx, req.Name, id); err != nil {
		return nil, err
	}
	if err := s.resolveTeachers(ctx, req.TeacherIDs); err != nil {
		return nil, err
	}

	subject.Name = strings.TrimSpace(req.Name)
	subject.ClassesPerWeek = req.ClassesPerWeek
	subject.DurationPerClass = req.DurationPerClass
	subject.TeacherIDs = pq.StringArray(req.TeacherIDs)

	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	s.cache.BumpCatalogVersion(ctx)
	return subject, nil
}

// Delete removes a subject.
func (s *SubjectService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	s.cache.BumpCatalogVersion(ctx)
	return nil
}

func (s *SubjectService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, strings.TrimSpace(name), excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject name uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "subject name already used")
	}
	return nil
}

func (s *SubjectService) resolveTeachers(ctx context.Context, ids []string) error {
	if len(ids) == 0 || s.teachers == nil {
		return nil
	}
	found, err := s.teachers.FindByIDs(ctx, ids)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teachers")
	}
	known := make(map[string]struct{}, len(found))
	for _, t := range found {
		known[t.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return appErrors.Clone(appErrors.ErrReference, "teacher "+id+" does not exist")
		}
	}
	return nil
}
