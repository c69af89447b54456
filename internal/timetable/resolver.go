package timetable

import "sort"

// resolver computes candidate teachers and classrooms for a placement
// attempt. Pure reads over the snapshot and tracker; it never commits.
type resolver struct {
	snap    *Snapshot
	tracker *Tracker
}

// eligibleTeachers returns the subject's qualified teachers that are under
// their daily cap and free across the candidate slots, ordered by current
// day load then identifier so the engine's pick is deterministic and
// load-balanced.
func (r resolver) eligibleTeachers(sub Subject, slots []Slot) []string {
	if len(slots) == 0 {
		return nil
	}
	date := slots[0].Date
	eligible := make([]string, 0, len(sub.TeacherIDs))
	for _, id := range sub.TeacherIDs {
		teacher, ok := r.snap.Teachers[id]
		if !ok {
			continue
		}
		if r.tracker.DayLoad(id, date) >= teacher.MaxClassesPerDay {
			continue
		}
		if !r.tracker.TeacherFree(id, slots) {
			continue
		}
		eligible = append(eligible, id)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		li, lj := r.tracker.DayLoad(eligible[i], date), r.tracker.DayLoad(eligible[j], date)
		if li != lj {
			return li < lj
		}
		return eligible[i] < eligible[j]
	})
	return eligible
}

// eligibleClassrooms returns free rooms with sufficient capacity for the
// batch, section-matched rooms first, then any other free room, each group
// in ascending identifier order.
func (r resolver) eligibleClassrooms(batch Batch, slots []Slot) []string {
	if len(slots) == 0 {
		return nil
	}
	var matched, others []string
	for _, id := range r.snap.ClassroomIDs() {
		room := r.snap.Classrooms[id]
		if batch.StudentCount > 0 && room.Capacity < batch.StudentCount {
			continue
		}
		if !r.tracker.ClassroomFree(id, slots) {
			continue
		}
		if _, ok := batch.Sections[room.Section]; ok {
			matched = append(matched, id)
		} else {
			others = append(others, id)
		}
	}
	return append(matched, others...)
}

// capacityEligibleRooms counts rooms that could ever host the batch,
// ignoring occupancy. Used for the static flexibility score.
func (r resolver) capacityEligibleRooms(batch Batch) int {
	count := 0
	for _, id := range r.snap.ClassroomIDs() {
		if batch.StudentCount > 0 && r.snap.Classrooms[id].Capacity < batch.StudentCount {
			continue
		}
		count++
	}
	return count
}
