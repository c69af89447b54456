package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble(t *testing.T) {
	result := Result{
		Assignments: []Assignment{
			{BatchID: "b1", SubjectID: "s2", TeacherID: "t1", ClassroomID: "c1", Date: "2026-01-06", Day: "Tuesday", Start: 9 * 60, End: 10 * 60},
			{BatchID: "b1", SubjectID: "s1", TeacherID: "t1", ClassroomID: "c1", Date: "2026-01-05", Day: "Monday", Start: 10 * 60, End: 11 * 60},
			{BatchID: "b1", SubjectID: "s1", TeacherID: "t2", ClassroomID: "c2", Date: "2026-01-05", Day: "Monday", Start: 9 * 60, End: 10 * 60},
		},
		Unresolved: []Unresolved{
			{BatchID: "b2", SubjectID: "s1", Reason: ReasonNoSlotLeft},
		},
	}

	timetable, unresolved := Assemble(result)

	require.Len(t, timetable, 1)
	days := timetable["b1"]
	require.Len(t, days, 2)
	assert.Equal(t, "2026-01-05", days[0].Date)
	assert.Equal(t, "Monday", days[0].Day)
	require.Len(t, days[0].Assignments, 2)
	assert.Equal(t, "09:00", days[0].Assignments[0].Start)
	assert.Equal(t, "10:00", days[0].Assignments[0].End)
	assert.Equal(t, "t2", days[0].Assignments[0].TeacherID)
	assert.Equal(t, "10:00", days[0].Assignments[1].Start)
	assert.Equal(t, "2026-01-06", days[1].Date)

	require.Len(t, unresolved, 1)
	assert.Equal(t, ReasonNoSlotLeft, unresolved[0].Reason)
}

func TestAssembleEmptyResult(t *testing.T) {
	timetable, unresolved := Assemble(Result{})
	assert.Empty(t, timetable)
	assert.Empty(t, unresolved)
}
