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

type batchRepository interface {
	List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, int, error)
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, batch *models.Batch) error
	Update(ctx context.Context, batch *models.Batch) error
	Delete(ctx context.Context, id string) error
}

// CreateBatchRequest represents payload for creating batches.
type CreateBatchRequest struct {
	Name         string   `json:"name" validate:"required,max=200"`
	SubjectIDs   []string `json:"subjects" validate:"omitempty,dive,required"`
	Sections     []string `json:"sections" validate:"omitempty,dive,required"`
	StudentCount int      `json:"student_count" validate:"min=0"`
}

// UpdateBatchRequest represents payload for updating batches.
type UpdateBatchRequest struct {
	Name         string   `json:"name" validate:"required,max=200"`
	SubjectIDs   []string `json:"subjects" validate:"omitempty,dive,required"`
	Sections     []string `json:"sections" validate:"omitempty,dive,required"`
	StudentCount int      `json:"student_count" validate:"min=0"`
}

// BatchService orchestrates batch operations.
type BatchService struct {
	repo      batchRepository
	subjects  subjectLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBatchService constructs a BatchService.
func NewBatchService(repo batchRepository, subjects subjectLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *BatchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{repo: repo, subjects: subjects, cache: cache, validator: validate, logger: logger}
}

// List returns batches plus pagination data.
func (s *BatchService) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, *models.Pagination, error) {
	batches, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list batches")
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
	return batches, pagination, nil
}

// Get returns a batch by id.
func (s *BatchService) Get(ctx context.Context, id string) (*models.Batch, error) {
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}
	return batch, nil
}

// Create registers a new batch record.
func (s *BatchService) Create(ctx context.Context, req CreateBatchRequest) (*models.Batch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	if err := s.ensureUniqueName(ctx, req.Name, ""); err != nil {
		return nil, err
	}
	if err := s.resolveSubjects(ctx, req.SubjectIDs); err != nil {
		return nil, err
	}

	batch := &models.Batch{
		Name:         strings.TrimSpace(req.Name),
		SubjectIDs:   pq.StringArray(req.SubjectIDs),
		Sections:     pq.StringArray(req.Sections),
		StudentCount: req.StudentCount,
	}
	if err := s.repo.Create(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create batch")
	}
	s.cache.BumpCatalogVersion(ctx)
	return batch, nil
}

// Update modifies an existing batch.
func (s *BatchService) Update(ctx context.Context, id string, req UpdateBatchRequest) (*models.Batch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}

	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
	}

	if err := s.ensureUniqueName(ctx, req.Name, id); err != nil {
		return nil, err
	}
	if err := s.resolveSubjects(ctx, req.SubjectIDs); err != nil {
		return nil, err
	}

	batch.Name = strings.TrimSpace(req.Name)
	batch.SubjectIDs = pq.StringArray(req.SubjectIDs)
	batch.Sections = pq.StringArray(req.Sections)
	batch.StudentCount = req.StudentCount

	if err := s.repo.Update(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update batch")
	}
	s.cache.BumpCatalogVersion(ctx)
	return batch, nil
}

// Delete removes a batch.
func (s *BatchService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete batch")
	}
	s.cache.BumpCatalogVersion(ctx)
	return nil
}

func (s *BatchService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, strings.TrimSpace(name), excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check batch name uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "batch name already used")
	}
	return nil
}

func (s *BatchService) resolveSubjects(ctx context.Context, ids []string) error {
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
