package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type classroomRepository interface {
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error)
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	ExistsByRoomNumber(ctx context.Context, roomNumber, excludeID string) (bool, error)
	Create(ctx context.Context, classroom *models.Classroom) error
	Update(ctx context.Context, classroom *models.Classroom) error
	Delete(ctx context.Context, id string) error
}

// CreateClassroomRequest represents payload for creating classrooms.
type CreateClassroomRequest struct {
	RoomNumber string `json:"room_number" validate:"required,max=50"`
	Capacity   int    `json:"capacity" validate:"required,min=1,max=200"`
	Section    string `json:"section" validate:"omitempty,max=50"`
}

// UpdateClassroomRequest represents payload for updating classrooms.
type UpdateClassroomRequest struct {
	RoomNumber string `json:"room_number" validate:"required,max=50"`
	Capacity   int    `json:"capacity" validate:"required,min=1,max=200"`
	Section    string `json:"section" validate:"omitempty,max=50"`
}

// ClassroomService orchestrates classroom operations.
type ClassroomService struct {
	repo      classroomRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassroomService constructs a ClassroomService.
func NewClassroomService(repo classroomRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns classrooms plus pagination data.
func (s *ClassroomService) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, *models.Pagination, error) {
	classrooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
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
	return classrooms, pagination, nil
}

// Get returns a classroom by id.
func (s *ClassroomService) Get(ctx context.Context, id string) (*models.Classroom, error) {
	classroom, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	return classroom, nil
}

// Create registers a new classroom record.
func (s *ClassroomService) Create(ctx context.Context, req CreateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}
	if err := s.ensureUniqueRoomNumber(ctx, req.RoomNumber, ""); err != nil {
		return nil, err
	}

	classroom := &models.Classroom{
		RoomNumber: strings.TrimSpace(req.RoomNumber),
		Capacity:   req.Capacity,
		Section:    strings.TrimSpace(req.Section),
	}
	if err := s.repo.Create(ctx, classroom); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classroom")
	}
	s.cache.BumpCatalogVersion(ctx)
	return classroom, nil
}

// Update modifies an existing classroom.
func (s *ClassroomService) Update(ctx context.Context, id string, req UpdateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}

	classroom, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}

	if err := s.ensureUniqueRoomNumber(ctx, req.RoomNumber, id); err != nil {
		return nil, err
	}

	classroom.RoomNumber = strings.TrimSpace(req.RoomNumber)
	classroom.Capacity = req.Capacity
	classroom.Section = strings.TrimSpace(req.Section)

	if err := s.repo.Update(ctx, classroom); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update classroom")
	}
	s.cache.BumpCatalogVersion(ctx)
	return classroom, nil
}

// Delete removes a classroom.
func (s *ClassroomService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete classroom")
	}
	s.cache.BumpCatalogVersion(ctx)
	return nil
}

func (s *ClassroomService) ensureUniqueRoomNumber(ctx context.Context, roomNumber, excludeID string) error {
	exists, err := s.repo.ExistsByRoomNumber(ctx, strings.TrimSpace(roomNumber), excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room number uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "room number already used")
	}
	return nil
}
