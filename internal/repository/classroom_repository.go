package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// ClassroomRepository manages persistence for classrooms.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs a ClassroomRepository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// List returns classrooms matching filters along with total count.
func (r *ClassroomRepository) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error) {
	base := "FROM classrooms WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("LOWER(room_number) LIKE $%d", len(args)+1))
		args = append(args, search)
	}
	if filter.Section != "" {
		conditions = append(conditions, fmt.Sprintf("section = $%d", len(args)+1))
		args = append(args, filter.Section)
	}
	if filter.MinCapacity > 0 {
		conditions = append(conditions, fmt.Sprintf("capacity >= $%d", len(args)+1))
		args = append(args, filter.MinCapacity)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]string{
		"room_number": "room_number",
		"capacity":    "capacity",
		"section":     "section",
		"created_at":  "created_at",
		"updated_at":  "updated_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, room_number, capacity, section, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, column, order, size, offset)
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classrooms: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classrooms: %w", err)
	}

	return classrooms, total, nil
}

// FindByID fetches a classroom by ID.
func (r *ClassroomRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	const query = `SELECT id, room_number, capacity, section, created_at, updated_at FROM classrooms WHERE id = $1`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, id); err != nil {
		return nil, err
	}
	return &classroom, nil
}

// ListAll fetches every classroom in ascending ID order. The generation
// engine works against the full room inventory.
func (r *ClassroomRepository) ListAll(ctx context.Context) ([]models.Classroom, error) {
	const query = `SELECT id, room_number, capacity, section, created_at, updated_at FROM classrooms ORDER BY id`
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query); err != nil {
		return nil, fmt.Errorf("list all classrooms: %w", err)
	}
	return classrooms, nil
}

// ExistsByRoomNumber checks if another classroom uses the same room number.
func (r *ClassroomRepository) ExistsByRoomNumber(ctx context.Context, roomNumber string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM classrooms WHERE LOWER(room_number) = LOWER($1)"
	args := []interface{}{roomNumber}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check room number: %w", err)
	}
	return true, nil
}

// Create inserts a new classroom record.
func (r *ClassroomRepository) Create(ctx context.Context, classroom *models.Classroom) error {
	if classroom.ID == "" {
		classroom.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if classroom.CreatedAt.IsZero() {
		classroom.CreatedAt = now
	}
	classroom.UpdatedAt = now

	const query = `INSERT INTO classrooms (id, room_number, capacity, section, created_at, updated_at)
		VALUES (:id, :room_number, :capacity, :section, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, classroom); err != nil {
		return fmt.Errorf("create classroom: %w", err)
	}
	return nil
}

// Update modifies an existing classroom record.
func (r *ClassroomRepository) Update(ctx context.Context, classroom *models.Classroom) error {
	classroom.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classrooms SET room_number = :room_number, capacity = :capacity, section = :section, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, classroom); err != nil {
		return fmt.Errorf("update classroom: %w", err)
	}
	return nil
}

// Delete removes a classroom record.
func (r *ClassroomRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM classrooms WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete classroom: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
