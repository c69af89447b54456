package timetable

import (
	"sort"
	"time"
)

// Reason codes for requirements that could not be placed.
const (
	ReasonNoTeacher  = "NO_TEACHER_AVAILABLE"
	ReasonNoRoom     = "NO_ROOM_AVAILABLE"
	ReasonNoSlotLeft = "NO_SLOT_LEFT"
	ReasonNoSlots    = "NO_SLOTS_DEFINED"
	ReasonTimeout    = "TIMEOUT"
)

// Requirement is one unit of "batch must receive one instance of subject".
type Requirement struct {
	BatchID   string
	SubjectID string
	Seq       int

	flexibility int
}

// Unresolved reports a requirement that could not be placed.
type Unresolved struct {
	BatchID   string
	SubjectID string
	Reason    string
}

// Result is the complete outcome of one engine run. Every requirement is
// accounted for exactly once, as an assignment or an unresolved entry.
type Result struct {
	Assignments []Assignment
	Unresolved  []Unresolved
}

// Options tunes a single engine run.
type Options struct {
	// Deadline is the wall clock cutoff. Requirements not yet processed
	// when it passes are reported unresolved with reason TIMEOUT. Zero
	// disables the cutoff.
	Deadline time.Time
}

// Engine places requirements into the slot grid using greedy
// most-constrained-first ordering with deterministic tie-breaks. It is
// best-effort: committed assignments are never revisited when a later
// requirement fails.
type Engine struct {
	snap    *Snapshot
	grid    *Grid
	tracker *Tracker
	res     resolver

	batchDayLoad map[string]map[string]int
	deadline     time.Time
}

// NewEngine builds an engine with a fresh tracker for one run.
func NewEngine(snap *Snapshot, grid *Grid, opts Options) *Engine {
	tracker := NewTracker()
	return &Engine{
		snap:         snap,
		grid:         grid,
		tracker:      tracker,
		res:          resolver{snap: snap, tracker: tracker},
		batchDayLoad: make(map[string]map[string]int),
		deadline:     opts.Deadline,
	}
}

// Run executes the placement loop until every requirement is placed or
// unresolved. It always terminates: the requirement list is finite and each
// attempt is bounded by slots times candidates.
func (e *Engine) Run() Result {
	result := Result{}
	requirements := e.requirements()

	if e.grid.Empty() {
		for _, req := range requirements {
			result.Unresolved = append(result.Unresolved, Unresolved{
				BatchID:   req.BatchID,
				SubjectID: req.SubjectID,
				Reason:    ReasonNoSlots,
			})
		}
		return result
	}

	for _, req := range requirements {
		if !e.deadline.IsZero() && time.Now().After(e.deadline) {
			result.Unresolved = append(result.Unresolved, Unresolved{
				BatchID:   req.BatchID,
				SubjectID: req.SubjectID,
				Reason:    ReasonTimeout,
			})
			continue
		}

		assignment, reason := e.place(req)
		if reason != "" {
			result.Unresolved = append(result.Unresolved, Unresolved{
				BatchID:   req.BatchID,
				SubjectID: req.SubjectID,
				Reason:    reason,
			})
			continue
		}
		e.commit(assignment)
		result.Assignments = append(result.Assignments, assignment)
	}
	return result
}

// requirements expands batches times subjects times classes_per_week and
// orders the list most-constrained-first by static flexibility score, with
// lowest-identifier-first tie-breaks for determinism.
func (e *Engine) requirements() []Requirement {
	var requirements []Requirement
	for _, batch := range e.snap.Batches {
		rooms := e.res.capacityEligibleRooms(batch)
		for _, subjectID := range batch.SubjectIDs {
			subject := e.snap.Subjects[subjectID]
			flexibility := len(subject.TeacherIDs) * rooms
			for seq := 0; seq < subject.ClassesPerWeek; seq++ {
				requirements = append(requirements, Requirement{
					BatchID:     batch.ID,
					SubjectID:   subjectID,
					Seq:         seq,
					flexibility: flexibility,
				})
			}
		}
	}
	sort.SliceStable(requirements, func(i, j int) bool {
		a, b := requirements[i], requirements[j]
		if a.flexibility != b.flexibility {
			return a.flexibility < b.flexibility
		}
		if a.BatchID != b.BatchID {
			return a.BatchID < b.BatchID
		}
		if a.SubjectID != b.SubjectID {
			return a.SubjectID < b.SubjectID
		}
		return a.Seq < b.Seq
	})
	return requirements
}

// place scans the grid for the first feasible window for the requirement.
// Days with fewer classes already committed for the batch are tried first so
// placements spread across the week; within a day the scan is chronological.
func (e *Engine) place(req Requirement) (Assignment, string) {
	batch, ok := e.batch(req.BatchID)
	if !ok {
		return Assignment{}, ReasonNoSlotLeft
	}
	subject := e.snap.Subjects[req.SubjectID]
	if len(subject.TeacherIDs) == 0 {
		return Assignment{}, ReasonNoTeacher
	}

	span := subject.Duration / e.grid.SlotMinutes
	if subject.Duration%e.grid.SlotMinutes != 0 {
		span++
	}

	sawBatchFree := false
	sawRoomShortage := false
	for _, date := range e.orderedDates(batch.ID) {
		for _, idx := range e.grid.DaySlots(date) {
			if !e.grid.Contiguous(idx, span) {
				continue
			}
			slots := e.grid.Slots[idx : idx+span]
			if !e.tracker.BatchFree(batch.ID, slots) {
				continue
			}
			sawBatchFree = true

			teachers := e.res.eligibleTeachers(subject, slots)
			if len(teachers) == 0 {
				continue
			}
			rooms := e.res.eligibleClassrooms(batch, slots)
			if len(rooms) == 0 {
				sawRoomShortage = true
				continue
			}

			occupied := make([]Slot, span)
			copy(occupied, slots)
			return Assignment{
				BatchID:     batch.ID,
				SubjectID:   subject.ID,
				TeacherID:   teachers[0],
				ClassroomID: rooms[0],
				Date:        date,
				Day:         occupied[0].Day,
				Start:       occupied[0].Start,
				End:         occupied[span-1].End,
				Slots:       occupied,
			}, ""
		}
	}

	switch {
	case !sawBatchFree:
		return Assignment{}, ReasonNoSlotLeft
	case sawRoomShortage:
		return Assignment{}, ReasonNoRoom
	default:
		return Assignment{}, ReasonNoSlotLeft
	}
}

func (e *Engine) commit(a Assignment) {
	e.tracker.Commit(a)
	if e.batchDayLoad[a.BatchID] == nil {
		e.batchDayLoad[a.BatchID] = make(map[string]int)
	}
	e.batchDayLoad[a.BatchID][a.Date]++
}

// orderedDates returns the grid's dates sorted by the batch's committed
// class count ascending, then chronologically.
func (e *Engine) orderedDates(batchID string) []string {
	dates := make([]string, len(e.grid.Dates))
	copy(dates, e.grid.Dates)
	loads := e.batchDayLoad[batchID]
	sort.SliceStable(dates, func(i, j int) bool {
		if loads[dates[i]] != loads[dates[j]] {
			return loads[dates[i]] < loads[dates[j]]
		}
		return dates[i] < dates[j]
	})
	return dates
}

func (e *Engine) batch(id string) (Batch, bool) {
	for _, b := range e.snap.Batches {
		if b.ID == id {
			return b, true
		}
	}
	return Batch{}, false
}
