package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func slotAt(date string, start int) Slot {
	return Slot{Date: date, Day: "Monday", Start: start, End: start + 60}
}

func TestTrackerExclusivity(t *testing.T) {
	tracker := NewTracker()
	slots := []Slot{slotAt("2026-01-05", 9*60)}

	assert.True(t, tracker.TeacherFree("t1", slots))
	assert.True(t, tracker.ClassroomFree("c1", slots))
	assert.True(t, tracker.BatchFree("b1", slots))

	tracker.Commit(Assignment{
		BatchID:     "b1",
		SubjectID:   "s1",
		TeacherID:   "t1",
		ClassroomID: "c1",
		Date:        "2026-01-05",
		Slots:       slots,
	})

	assert.False(t, tracker.TeacherFree("t1", slots))
	assert.False(t, tracker.ClassroomFree("c1", slots))
	assert.False(t, tracker.BatchFree("b1", slots))

	// Other actors stay free, and the same actors are free at other slots.
	other := []Slot{slotAt("2026-01-05", 10*60)}
	assert.True(t, tracker.TeacherFree("t2", slots))
	assert.True(t, tracker.TeacherFree("t1", other))
	assert.True(t, tracker.ClassroomFree("c1", other))
	assert.True(t, tracker.BatchFree("b1", other))
}

func TestTrackerMultiSlotCommit(t *testing.T) {
	tracker := NewTracker()
	run := []Slot{slotAt("2026-01-05", 9*60), slotAt("2026-01-05", 10*60)}

	tracker.Commit(Assignment{
		BatchID:     "b1",
		TeacherID:   "t1",
		ClassroomID: "c1",
		Date:        "2026-01-05",
		Slots:       run,
	})

	assert.False(t, tracker.TeacherFree("t1", run[:1]))
	assert.False(t, tracker.TeacherFree("t1", run[1:]))
	// One class spanning two slots counts once against the daily load.
	assert.Equal(t, 1, tracker.DayLoad("t1", "2026-01-05"))
}

func TestTrackerDayLoad(t *testing.T) {
	tracker := NewTracker()
	assert.Equal(t, 0, tracker.DayLoad("t1", "2026-01-05"))

	first := Assignment{BatchID: "b1", TeacherID: "t1", ClassroomID: "c1", Date: "2026-01-05", Slots: []Slot{slotAt("2026-01-05", 9*60)}}
	second := Assignment{BatchID: "b1", TeacherID: "t1", ClassroomID: "c1", Date: "2026-01-05", Slots: []Slot{slotAt("2026-01-05", 10*60)}}
	tracker.Commit(first)
	tracker.Commit(second)
	assert.Equal(t, 2, tracker.DayLoad("t1", "2026-01-05"))
	assert.Equal(t, 0, tracker.DayLoad("t1", "2026-01-06"))

	tracker.Release(second)
	assert.Equal(t, 1, tracker.DayLoad("t1", "2026-01-05"))
	assert.True(t, tracker.TeacherFree("t1", second.Slots))
	assert.False(t, tracker.TeacherFree("t1", first.Slots))
}
