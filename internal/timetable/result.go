package timetable

import (
	"sort"

	"github.com/noah-isme/timetable-api/internal/dto"
)

// Assemble groups a run's assignments per batch and per day, sorted by date
// then start time, in the shape the transport layer returns.
func Assemble(result Result) (map[string][]dto.BatchDaySchedule, []dto.UnresolvedRequirement) {
	perBatchDay := make(map[string]map[string][]dto.AssignmentRecord)
	dayNames := make(map[string]string)
	for _, a := range result.Assignments {
		if perBatchDay[a.BatchID] == nil {
			perBatchDay[a.BatchID] = make(map[string][]dto.AssignmentRecord)
		}
		perBatchDay[a.BatchID][a.Date] = append(perBatchDay[a.BatchID][a.Date], dto.AssignmentRecord{
			SubjectID:   a.SubjectID,
			TeacherID:   a.TeacherID,
			ClassroomID: a.ClassroomID,
			Date:        a.Date,
			Day:         a.Day,
			Start:       formatClock(a.Start),
			End:         formatClock(a.End),
		})
		dayNames[a.Date] = a.Day
	}

	timetable := make(map[string][]dto.BatchDaySchedule, len(perBatchDay))
	for batchID, days := range perBatchDay {
		dates := make([]string, 0, len(days))
		for date := range days {
			dates = append(dates, date)
		}
		sort.Strings(dates)

		schedules := make([]dto.BatchDaySchedule, 0, len(dates))
		for _, date := range dates {
			records := days[date]
			sort.Slice(records, func(i, j int) bool { return records[i].Start < records[j].Start })
			schedules = append(schedules, dto.BatchDaySchedule{
				Date:        date,
				Day:         dayNames[date],
				Assignments: records,
			})
		}
		timetable[batchID] = schedules
	}

	unresolved := make([]dto.UnresolvedRequirement, 0, len(result.Unresolved))
	for _, u := range result.Unresolved {
		unresolved = append(unresolved, dto.UnresolvedRequirement{
			BatchID:   u.BatchID,
			SubjectID: u.SubjectID,
			Reason:    u.Reason,
		})
	}
	return timetable, unresolved
}
