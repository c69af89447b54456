package timetable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

func TestNewSnapshot(t *testing.T) {
	teachers := []models.Teacher{{ID: "t1", Name: "Asep", MaxClassesPerDay: 4}}
	classrooms := []models.Classroom{{ID: "c1", RoomNumber: "R101", Capacity: 30, Section: "A"}}
	subjects := []models.Subject{{ID: "s1", Name: "Matematika", ClassesPerWeek: 3, DurationPerClass: 60, TeacherIDs: []string{"t1"}}}
	batches := []models.Batch{{ID: "b1", Name: "X-A", SubjectIDs: []string{"s1"}, Sections: []string{"A"}, StudentCount: 28}}

	t.Run("valid catalog", func(t *testing.T) {
		snap, err := NewSnapshot(teachers, classrooms, subjects, batches)
		require.NoError(t, err)
		assert.Len(t, snap.Teachers, 1)
		assert.Equal(t, []string{"c1"}, snap.ClassroomIDs())
		assert.Equal(t, 60, snap.Subjects["s1"].Duration)
		require.Len(t, snap.Batches, 1)
		assert.Contains(t, snap.Batches[0].Sections, "A")
	})

	t.Run("teacher cap out of range", func(t *testing.T) {
		bad := []models.Teacher{{ID: "t1", MaxClassesPerDay: 0}}
		_, err := NewSnapshot(bad, classrooms, nil, nil)
		require.Error(t, err)
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	})

	t.Run("non positive capacity", func(t *testing.T) {
		bad := []models.Classroom{{ID: "c1", Capacity: 0}}
		_, err := NewSnapshot(teachers, bad, nil, nil)
		assert.Error(t, err)
	})

	t.Run("duration out of range", func(t *testing.T) {
		bad := []models.Subject{{ID: "s1", ClassesPerWeek: 1, DurationPerClass: 15, TeacherIDs: []string{"t1"}}}
		_, err := NewSnapshot(teachers, classrooms, bad, nil)
		assert.Error(t, err)
	})

	t.Run("subject references unknown teacher", func(t *testing.T) {
		bad := []models.Subject{{ID: "s1", ClassesPerWeek: 1, DurationPerClass: 60, TeacherIDs: []string{"ghost"}}}
		_, err := NewSnapshot(teachers, classrooms, bad, nil)
		require.Error(t, err)
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrReference.Code, appErr.Code)
	})

	t.Run("batch references unknown subject", func(t *testing.T) {
		bad := []models.Batch{{ID: "b1", SubjectIDs: []string{"ghost"}}}
		_, err := NewSnapshot(teachers, classrooms, subjects, bad)
		require.Error(t, err)
		var appErr *appErrors.Error
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, appErrors.ErrReference.Code, appErr.Code)
	})
}

func TestSnapshotSlotMinutes(t *testing.T) {
	teachers := []models.Teacher{{ID: "t1", MaxClassesPerDay: 4}}

	t.Run("gcd of durations", func(t *testing.T) {
		subjects := []models.Subject{
			{ID: "s1", ClassesPerWeek: 1, DurationPerClass: 60, TeacherIDs: []string{"t1"}},
			{ID: "s2", ClassesPerWeek: 1, DurationPerClass: 90, TeacherIDs: []string{"t1"}},
		}
		snap, err := NewSnapshot(teachers, nil, subjects, nil)
		require.NoError(t, err)
		assert.Equal(t, 30, snap.SlotMinutes())
	})

	t.Run("defaults without subjects", func(t *testing.T) {
		snap, err := NewSnapshot(teachers, nil, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 60, snap.SlotMinutes())
	})
}
