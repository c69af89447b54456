package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type teacherRepoStub struct {
	teachers map[string]*models.Teacher
	err      error
}

func newTeacherRepoStub() *teacherRepoStub {
	return &teacherRepoStub{teachers: make(map[string]*models.Teacher)}
}

func (s *teacherRepoStub) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	var result []models.Teacher
	for _, t := range s.teachers {
		result = append(result, *t)
	}
	return result, len(result), nil
}

func (s *teacherRepoStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if t, ok := s.teachers[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *teacherRepoStub) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	for id, t := range s.teachers {
		if t.Name == name && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *teacherRepoStub) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = "t1"
	}
	copied := *teacher
	s.teachers[teacher.ID] = &copied
	return nil
}

func (s *teacherRepoStub) Update(ctx context.Context, teacher *models.Teacher) error {
	copied := *teacher
	s.teachers[teacher.ID] = &copied
	return nil
}

func (s *teacherRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.teachers[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.teachers, id)
	return nil
}

type subjectLookupStub struct {
	known map[string]struct{}
}

func (s *subjectLookupStub) FindByIDs(ctx context.Context, ids []string) ([]models.Subject, error) {
	var result []models.Subject
	for _, id := range ids {
		if _, ok := s.known[id]; ok {
			result = append(result, models.Subject{ID: id})
		}
	}
	return result, nil
}

func TestTeacherServiceCreate(t *testing.T) {
	repo := newTeacherRepoStub()
	subjects := &subjectLookupStub{known: map[string]struct{}{"s1": {}}}
	svc := NewTeacherService(repo, subjects, nil, nil, nil)

	teacher, err := svc.Create(context.Background(), CreateTeacherRequest{
		Name:             "Asep",
		MaxClassesPerDay: 4,
		SubjectIDs:       []string{"s1"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, teacher.ID)

	t.Run("duplicate name rejected", func(t *testing.T) {
		_, err := svc.Create(context.Background(), CreateTeacherRequest{Name: "Asep", MaxClassesPerDay: 4})
		require.Error(t, err)
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	})

	t.Run("unknown subject rejected", func(t *testing.T) {
		_, err := svc.Create(context.Background(), CreateTeacherRequest{
			Name:             "Budi",
			MaxClassesPerDay: 4,
			SubjectIDs:       []string{"ghost"},
		})
		require.Error(t, err)
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrReference.Code, appErr.Code)
	})

	t.Run("cap out of range rejected", func(t *testing.T) {
		_, err := svc.Create(context.Background(), CreateTeacherRequest{Name: "Citra", MaxClassesPerDay: 9})
		require.Error(t, err)
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	})
}

func TestTeacherServiceUpdateAndDelete(t *testing.T) {
	repo := newTeacherRepoStub()
	svc := NewTeacherService(repo, nil, nil, nil, nil)

	created, err := svc.Create(context.Background(), CreateTeacherRequest{Name: "Asep", MaxClassesPerDay: 4})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, UpdateTeacherRequest{Name: "Asep S.", MaxClassesPerDay: 2, LeaveCount: 1})
	require.NoError(t, err)
	assert.Equal(t, "Asep S.", updated.Name)
	assert.Equal(t, 2, updated.MaxClassesPerDay)

	require.NoError(t, svc.Delete(context.Background(), created.ID))

	err = svc.Delete(context.Background(), created.ID)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
