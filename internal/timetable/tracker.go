package timetable

// Assignment is one committed class placement: immutable once committed by
// the engine. A class may span several contiguous grid slots when its
// subject duration exceeds the grid granularity.
type Assignment struct {
	BatchID     string
	SubjectID   string
	TeacherID   string
	ClassroomID string
	Date        string
	Day         string
	Start       int
	End         int
	Slots       []Slot
}

// Tracker holds the three exclusivity ledgers (teacher, classroom, batch per
// slot) plus per-teacher daily load counters. It is the only mutable state of
// a generation run, owned by exactly one engine and discarded afterwards.
type Tracker struct {
	busyTeachers   map[SlotKey]map[string]struct{}
	busyClassrooms map[SlotKey]map[string]struct{}
	busyBatches    map[SlotKey]map[string]struct{}
	teacherDayLoad map[string]map[string]int
}

// NewTracker builds an empty tracker. A fresh tracker per generation call is
// mandatory; trackers must never be shared or reused across calls.
func NewTracker() *Tracker {
	return &Tracker{
		busyTeachers:   make(map[SlotKey]map[string]struct{}),
		busyClassrooms: make(map[SlotKey]map[string]struct{}),
		busyBatches:    make(map[SlotKey]map[string]struct{}),
		teacherDayLoad: make(map[string]map[string]int),
	}
}

// TeacherFree reports whether the teacher is idle across all given slots.
func (t *Tracker) TeacherFree(id string, slots []Slot) bool {
	return free(t.busyTeachers, id, slots)
}

// ClassroomFree reports whether the classroom is idle across all given slots.
func (t *Tracker) ClassroomFree(id string, slots []Slot) bool {
	return free(t.busyClassrooms, id, slots)
}

// BatchFree reports whether the batch is idle across all given slots.
func (t *Tracker) BatchFree(id string, slots []Slot) bool {
	return free(t.busyBatches, id, slots)
}

// DayLoad returns the teacher's committed class count for the date.
func (t *Tracker) DayLoad(teacherID, date string) int {
	return t.teacherDayLoad[teacherID][date]
}

// Commit records the assignment across all three ledgers and increments the
// teacher's daily load, atomically with respect to the assignment: callers
// check eligibility first, so a commit never partially applies.
func (t *Tracker) Commit(a Assignment) {
	for _, slot := range a.Slots {
		key := slot.Key()
		add(t.busyTeachers, key, a.TeacherID)
		add(t.busyClassrooms, key, a.ClassroomID)
		add(t.busyBatches, key, a.BatchID)
	}
	if t.teacherDayLoad[a.TeacherID] == nil {
		t.teacherDayLoad[a.TeacherID] = make(map[string]int)
	}
	t.teacherDayLoad[a.TeacherID][a.Date]++
}

// Release undoes a commit. Used only when a placement strategy backtracks.
func (t *Tracker) Release(a Assignment) {
	for _, slot := range a.Slots {
		key := slot.Key()
		remove(t.busyTeachers, key, a.TeacherID)
		remove(t.busyClassrooms, key, a.ClassroomID)
		remove(t.busyBatches, key, a.BatchID)
	}
	if loads := t.teacherDayLoad[a.TeacherID]; loads != nil && loads[a.Date] > 0 {
		loads[a.Date]--
	}
}

func free(ledger map[SlotKey]map[string]struct{}, id string, slots []Slot) bool {
	for _, slot := range slots {
		if occupants, ok := ledger[slot.Key()]; ok {
			if _, busy := occupants[id]; busy {
				return false
			}
		}
	}
	return true
}

func add(ledger map[SlotKey]map[string]struct{}, key SlotKey, id string) {
	if ledger[key] == nil {
		ledger[key] = make(map[string]struct{})
	}
	ledger[key][id] = struct{}{}
}

func remove(ledger map[SlotKey]map[string]struct{}, key SlotKey, id string) {
	if occupants, ok := ledger[key]; ok {
		delete(occupants, id)
	}
}
