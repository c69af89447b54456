package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
)

type fixture struct {
	teachers   []models.Teacher
	classrooms []models.Classroom
	subjects   []models.Subject
	batches    []models.Batch
	request    dto.GenerateTimetableRequest
}

func (f fixture) run(t *testing.T, opts Options) Result {
	t.Helper()
	snap, err := NewSnapshot(f.teachers, f.classrooms, f.subjects, f.batches)
	require.NoError(t, err)
	req, err := ParseRequest(f.request)
	require.NoError(t, err)
	grid := BuildGrid(req, snap.SlotMinutes())
	return NewEngine(snap, grid, opts).Run()
}

func baseFixture() fixture {
	return fixture{
		teachers:   []models.Teacher{{ID: "t1", Name: "Asep", MaxClassesPerDay: 1}},
		classrooms: []models.Classroom{{ID: "c1", RoomNumber: "R101", Capacity: 40, Section: "A"}},
		subjects:   []models.Subject{{ID: "s1", Name: "Matematika", ClassesPerWeek: 3, DurationPerClass: 60, TeacherIDs: []string{"t1"}}},
		batches:    []models.Batch{{ID: "b1", Name: "X-A", SubjectIDs: []string{"s1"}, Sections: []string{"A"}, StudentCount: 30}},
		request: dto.GenerateTimetableRequest{
			BatchIDs:      []string{"b1"},
			StartDate:     "2026-01-05",
			EndDate:       "2026-01-09",
			WorkingDays:   []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
			StartTime:     "09:00",
			EndTime:       "12:00",
			BreakDuration: 0,
		},
	}
}

func TestEngineFeasibleWeekSpreadsAcrossDays(t *testing.T) {
	result := baseFixture().run(t, Options{})

	require.Len(t, result.Assignments, 3)
	assert.Empty(t, result.Unresolved)

	dates := make(map[string]int)
	for _, a := range result.Assignments {
		dates[a.Date]++
		assert.Equal(t, "t1", a.TeacherID)
		assert.Equal(t, "c1", a.ClassroomID)
	}
	// The single teacher allows one class per day, so three distinct days.
	assert.Len(t, dates, 3)
}

func TestEngineRunsOutOfSlots(t *testing.T) {
	f := baseFixture()
	f.subjects[0].ClassesPerWeek = 5
	f.request.EndDate = "2026-01-07"

	result := f.run(t, Options{})

	assert.Len(t, result.Assignments, 3)
	require.Len(t, result.Unresolved, 2)
	for _, u := range result.Unresolved {
		assert.Equal(t, "b1", u.BatchID)
		assert.Equal(t, "s1", u.SubjectID)
		assert.Equal(t, ReasonNoSlotLeft, u.Reason)
	}
}

func TestEngineSharedTeacherNeverDoubleBooked(t *testing.T) {
	f := baseFixture()
	f.teachers[0].MaxClassesPerDay = 4
	f.classrooms = append(f.classrooms, models.Classroom{ID: "c2", RoomNumber: "R102", Capacity: 40, Section: "B"})
	f.subjects = []models.Subject{
		{ID: "s1", Name: "Matematika", ClassesPerWeek: 1, DurationPerClass: 60, TeacherIDs: []string{"t1"}},
		{ID: "s2", Name: "Fisika", ClassesPerWeek: 1, DurationPerClass: 60, TeacherIDs: []string{"t1"}},
	}
	f.batches = []models.Batch{
		{ID: "b1", Name: "X-A", SubjectIDs: []string{"s1"}, Sections: []string{"A"}, StudentCount: 30},
		{ID: "b2", Name: "X-B", SubjectIDs: []string{"s2"}, Sections: []string{"B"}, StudentCount: 30},
	}
	// Exactly one slot per day.
	f.request.EndTime = "10:00"
	f.request.EndDate = "2026-01-06"

	result := f.run(t, Options{})

	require.Len(t, result.Assignments, 2)
	assert.Empty(t, result.Unresolved)
	assert.NotEqual(t, result.Assignments[0].Date, result.Assignments[1].Date,
		"shared teacher cannot serve two batches in the same slot")
}

func TestEngineCapacityFiltering(t *testing.T) {
	f := baseFixture()
	f.classrooms = []models.Classroom{{ID: "c1", RoomNumber: "R101", Capacity: 20, Section: "A"}}
	f.batches[0].StudentCount = 35
	f.subjects[0].ClassesPerWeek = 1

	result := f.run(t, Options{})

	assert.Empty(t, result.Assignments)
	require.Len(t, result.Unresolved, 1)
	assert.Equal(t, ReasonNoRoom, result.Unresolved[0].Reason)
}

func TestEngineUnknownHeadcountSkipsCapacityFilter(t *testing.T) {
	f := baseFixture()
	f.classrooms = []models.Classroom{{ID: "c1", RoomNumber: "R101", Capacity: 20, Section: "A"}}
	f.batches[0].StudentCount = 0
	f.subjects[0].ClassesPerWeek = 1

	result := f.run(t, Options{})

	require.Len(t, result.Assignments, 1)
	assert.Empty(t, result.Unresolved)
}

func TestEngineNoQualifiedTeacher(t *testing.T) {
	f := baseFixture()
	f.subjects[0].TeacherIDs = nil
	f.subjects[0].ClassesPerWeek = 2

	result := f.run(t, Options{})

	assert.Empty(t, result.Assignments)
	require.Len(t, result.Unresolved, 2)
	for _, u := range result.Unresolved {
		assert.Equal(t, ReasonNoTeacher, u.Reason)
	}
}

func TestEngineEmptyGrid(t *testing.T) {
	f := baseFixture()
	f.request.StartDate = "2026-01-10"
	f.request.EndDate = "2026-01-11"
	f.request.WorkingDays = []string{"Monday"}

	result := f.run(t, Options{})

	assert.Empty(t, result.Assignments)
	require.Len(t, result.Unresolved, 3)
	for _, u := range result.Unresolved {
		assert.Equal(t, ReasonNoSlots, u.Reason)
	}
}

func TestEngineDeadlineCutoff(t *testing.T) {
	result := baseFixture().run(t, Options{Deadline: time.Now().Add(-time.Second)})

	assert.Empty(t, result.Assignments)
	require.Len(t, result.Unresolved, 3)
	for _, u := range result.Unresolved {
		assert.Equal(t, ReasonTimeout, u.Reason)
	}
}

func TestEngineMultiSlotClasses(t *testing.T) {
	f := baseFixture()
	f.teachers[0].MaxClassesPerDay = 4
	f.subjects = []models.Subject{
		{ID: "s1", Name: "Matematika", ClassesPerWeek: 1, DurationPerClass: 60, TeacherIDs: []string{"t1"}},
		{ID: "s2", Name: "Praktikum", ClassesPerWeek: 1, DurationPerClass: 120, TeacherIDs: []string{"t1"}},
	}
	f.batches[0].SubjectIDs = []string{"s1", "s2"}

	result := f.run(t, Options{})

	require.Len(t, result.Assignments, 2)
	assert.Empty(t, result.Unresolved)
	for _, a := range result.Assignments {
		if a.SubjectID == "s2" {
			assert.Equal(t, 120, a.End-a.Start)
			assert.Len(t, a.Slots, 2)
			assert.Equal(t, a.Slots[0].End, a.Slots[1].Start)
		}
	}
}

func densFixture() fixture {
	f := baseFixture()
	f.teachers = []models.Teacher{
		{ID: "t1", MaxClassesPerDay: 3},
		{ID: "t2", MaxClassesPerDay: 3},
	}
	f.classrooms = []models.Classroom{
		{ID: "c1", RoomNumber: "R101", Capacity: 40, Section: "A"},
		{ID: "c2", RoomNumber: "R102", Capacity: 40, Section: "B"},
	}
	f.subjects = []models.Subject{
		{ID: "s1", Name: "Matematika", ClassesPerWeek: 3, DurationPerClass: 60, TeacherIDs: []string{"t1", "t2"}},
		{ID: "s2", Name: "Fisika", ClassesPerWeek: 2, DurationPerClass: 60, TeacherIDs: []string{"t2"}},
	}
	f.batches = []models.Batch{
		{ID: "b1", Name: "X-A", SubjectIDs: []string{"s1", "s2"}, Sections: []string{"A"}, StudentCount: 30},
		{ID: "b2", Name: "X-B", SubjectIDs: []string{"s1", "s2"}, Sections: []string{"B"}, StudentCount: 30},
	}
	return f
}

func TestEngineExclusivityInvariant(t *testing.T) {
	result := densFixture().run(t, Options{})

	teacherSlots := make(map[SlotKey]map[string]bool)
	classroomSlots := make(map[SlotKey]map[string]bool)
	batchSlots := make(map[SlotKey]map[string]bool)
	for _, a := range result.Assignments {
		for _, slot := range a.Slots {
			key := slot.Key()
			for _, pair := range []struct {
				seen map[SlotKey]map[string]bool
				id   string
			}{
				{teacherSlots, a.TeacherID},
				{classroomSlots, a.ClassroomID},
				{batchSlots, a.BatchID},
			} {
				if pair.seen[key] == nil {
					pair.seen[key] = make(map[string]bool)
				}
				assert.False(t, pair.seen[key][pair.id], "double booking at %v", key)
				pair.seen[key][pair.id] = true
			}
		}
	}
}

func TestEngineTeacherDailyCap(t *testing.T) {
	result := densFixture().run(t, Options{})

	perDay := make(map[string]map[string]int)
	for _, a := range result.Assignments {
		if perDay[a.TeacherID] == nil {
			perDay[a.TeacherID] = make(map[string]int)
		}
		perDay[a.TeacherID][a.Date]++
	}
	for teacherID, days := range perDay {
		for date, count := range days {
			assert.LessOrEqual(t, count, 3, "teacher %s overloaded on %s", teacherID, date)
		}
	}
}

func TestEngineEveryRequirementAccounted(t *testing.T) {
	f := densFixture()
	result := f.run(t, Options{})

	counts := make(map[[2]string]int)
	for _, a := range result.Assignments {
		counts[[2]string{a.BatchID, a.SubjectID}]++
	}
	for _, u := range result.Unresolved {
		counts[[2]string{u.BatchID, u.SubjectID}]++
	}
	for _, batch := range f.batches {
		for _, subject := range f.subjects {
			expected := subject.ClassesPerWeek
			assert.Equal(t, expected, counts[[2]string{batch.ID, subject.ID}],
				"batch %s subject %s", batch.ID, subject.ID)
		}
	}
}

func TestEngineDeterministic(t *testing.T) {
	f := densFixture()
	first := f.run(t, Options{})
	second := f.run(t, Options{})

	assert.Equal(t, first.Assignments, second.Assignments)
	assert.Equal(t, first.Unresolved, second.Unresolved)
}

func TestEngineMonotonicFeasibility(t *testing.T) {
	f := baseFixture()
	f.subjects[0].ClassesPerWeek = 5
	f.request.EndDate = "2026-01-07"
	before := f.run(t, Options{})

	f.teachers = append(f.teachers, models.Teacher{ID: "t2", Name: "Budi", MaxClassesPerDay: 1})
	f.subjects[0].TeacherIDs = []string{"t1", "t2"}
	after := f.run(t, Options{})

	assert.LessOrEqual(t, len(after.Unresolved), len(before.Unresolved),
		"adding a qualified teacher must not reduce placements")
}
