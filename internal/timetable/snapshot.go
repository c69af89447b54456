package timetable

import (
	"fmt"
	"sort"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// Teacher is the engine's immutable view of an instructor.
type Teacher struct {
	ID               string
	Name             string
	MaxClassesPerDay int
	LeaveCount       int
}

// Classroom is the engine's immutable view of a room.
type Classroom struct {
	ID         string
	RoomNumber string
	Capacity   int
	Section    string
}

// Subject is the engine's immutable view of a subject, with its qualified
// teacher identifiers sorted for deterministic iteration.
type Subject struct {
	ID             string
	Name           string
	ClassesPerWeek int
	Duration       int
	TeacherIDs     []string
}

// Batch is the engine's immutable view of a student group.
type Batch struct {
	ID           string
	Name         string
	SubjectIDs   []string
	Sections     map[string]struct{}
	StudentCount int
}

// Snapshot is the request-scoped, read-only catalog view the engine runs
// against. It is built once per generation call and never mutated.
type Snapshot struct {
	Teachers   map[string]Teacher
	Classrooms map[string]Classroom
	Subjects   map[string]Subject
	Batches    []Batch

	classroomIDs []string
}

// NewSnapshot validates catalog records and their cross-references and
// freezes them into a Snapshot. Dangling references are rejected before the
// algorithm runs.
func NewSnapshot(teachers []models.Teacher, classrooms []models.Classroom, subjects []models.Subject, batches []models.Batch) (*Snapshot, error) {
	snap := &Snapshot{
		Teachers:   make(map[string]Teacher, len(teachers)),
		Classrooms: make(map[string]Classroom, len(classrooms)),
		Subjects:   make(map[string]Subject, len(subjects)),
		Batches:    make([]Batch, 0, len(batches)),
	}

	for _, t := range teachers {
		if t.MaxClassesPerDay < 1 || t.MaxClassesPerDay > 8 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s: max_classes_per_day must be between 1 and 8", t.ID))
		}
		snap.Teachers[t.ID] = Teacher{
			ID:               t.ID,
			Name:             t.Name,
			MaxClassesPerDay: t.MaxClassesPerDay,
			LeaveCount:       t.LeaveCount,
		}
	}

	for _, c := range classrooms {
		if c.Capacity < 1 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("classroom %s: capacity must be positive", c.ID))
		}
		snap.Classrooms[c.ID] = Classroom{
			ID:         c.ID,
			RoomNumber: c.RoomNumber,
			Capacity:   c.Capacity,
			Section:    c.Section,
		}
		snap.classroomIDs = append(snap.classroomIDs, c.ID)
	}
	sort.Strings(snap.classroomIDs)

	for _, s := range subjects {
		if s.ClassesPerWeek < 1 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s: classes_per_week must be positive", s.ID))
		}
		if s.DurationPerClass < 30 || s.DurationPerClass > 180 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s: duration_per_class must be between 30 and 180 minutes", s.ID))
		}
		qualified := make([]string, 0, len(s.TeacherIDs))
		for _, id := range s.TeacherIDs {
			if _, ok := snap.Teachers[id]; !ok {
				return nil, appErrors.Clone(appErrors.ErrReference, fmt.Sprintf("subject %s references unknown teacher %s", s.ID, id))
			}
			qualified = append(qualified, id)
		}
		sort.Strings(qualified)
		snap.Subjects[s.ID] = Subject{
			ID:             s.ID,
			Name:           s.Name,
			ClassesPerWeek: s.ClassesPerWeek,
			Duration:       s.DurationPerClass,
			TeacherIDs:     qualified,
		}
	}

	for _, b := range batches {
		sections := make(map[string]struct{}, len(b.Sections))
		for _, sec := range b.Sections {
			sections[sec] = struct{}{}
		}
		subjectIDs := make([]string, 0, len(b.SubjectIDs))
		for _, id := range b.SubjectIDs {
			if _, ok := snap.Subjects[id]; !ok {
				return nil, appErrors.Clone(appErrors.ErrReference, fmt.Sprintf("batch %s references unknown subject %s", b.ID, id))
			}
			subjectIDs = append(subjectIDs, id)
		}
		sort.Strings(subjectIDs)
		snap.Batches = append(snap.Batches, Batch{
			ID:           b.ID,
			Name:         b.Name,
			SubjectIDs:   subjectIDs,
			Sections:     sections,
			StudentCount: b.StudentCount,
		})
	}
	sort.Slice(snap.Batches, func(i, j int) bool { return snap.Batches[i].ID < snap.Batches[j].ID })

	return snap, nil
}

// ClassroomIDs returns all classroom identifiers in ascending order.
func (s *Snapshot) ClassroomIDs() []string {
	return s.classroomIDs
}

// SlotMinutes derives the uniform grid granularity: the greatest common
// divisor of every subject duration, so each class spans a whole number of
// grid slots. Defaults to 60 when the snapshot carries no subjects.
func (s *Snapshot) SlotMinutes() int {
	size := 0
	for _, sub := range s.Subjects {
		size = gcd(size, sub.Duration)
	}
	if size == 0 {
		size = 60
	}
	return size
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
