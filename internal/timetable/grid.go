package timetable

import (
	"fmt"
	"time"

	"github.com/noah-isme/timetable-api/internal/dto"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

const dateLayout = "2006-01-02"

var weekdayNames = map[string]time.Weekday{
	"Sunday":    time.Sunday,
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
}

// Request is the parsed and validated form of a generation request. Times
// are minutes from midnight.
type Request struct {
	StartDate     time.Time
	EndDate       time.Time
	WorkingDays   map[time.Weekday]bool
	DayStart      int
	DayEnd        int
	BreakDuration int
}

// ParseRequest validates the raw request semantics beyond struct tags: date
// ordering, time window and break fit. Malformed requests are rejected
// before the algorithm runs.
func ParseRequest(req dto.GenerateTimetableRequest) (*Request, error) {
	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid start_date %q", req.StartDate))
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid end_date %q", req.EndDate))
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}

	if len(req.WorkingDays) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "working_days must not be empty")
	}
	working := make(map[time.Weekday]bool, len(req.WorkingDays))
	for _, name := range req.WorkingDays {
		day, ok := weekdayNames[name]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown working day %q", name))
		}
		working[day] = true
	}

	dayStart, err := parseClock(req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid start_time %q", req.StartTime))
	}
	dayEnd, err := parseClock(req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid end_time %q", req.EndTime))
	}
	if dayEnd <= dayStart {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	if req.BreakDuration < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "break_duration must not be negative")
	}
	if req.BreakDuration >= dayEnd-dayStart {
		return nil, appErrors.Clone(appErrors.ErrValidation, "break_duration must fit within the daily window")
	}

	return &Request{
		StartDate:     start,
		EndDate:       end,
		WorkingDays:   working,
		DayStart:      dayStart,
		DayEnd:        dayEnd,
		BreakDuration: req.BreakDuration,
	}, nil
}

// Slot is one schedulable window on a specific calendar day, the atomic unit
// of exclusivity.
type Slot struct {
	Date  string
	Day   string
	Index int
	Start int
	End   int
}

// Key identifies the slot for the availability ledgers.
func (s Slot) Key() SlotKey {
	return SlotKey{Date: s.Date, Start: s.Start}
}

// SlotKey uniquely identifies a slot across the whole grid.
type SlotKey struct {
	Date  string
	Start int
}

// Grid is the ordered sequence of schedulable slots shared read-only across
// all batches of one generation call. Batches scheduled on the same day
// compete for the same wall clock positions.
type Grid struct {
	Slots       []Slot
	SlotMinutes int
	Dates       []string
	byDate      map[string][]int
}

// BuildGrid derives the slot grid from the request window. Each working day
// gets consecutive fixed-size slots from the daily start time, with exactly
// one break inserted after the slot that would otherwise straddle the day's
// midpoint. Slots overlapping the break window are excluded.
func BuildGrid(req *Request, slotMinutes int) *Grid {
	grid := &Grid{
		SlotMinutes: slotMinutes,
		byDate:      make(map[string][]int),
	}
	if slotMinutes <= 0 {
		return grid
	}

	midpoint := req.DayStart + (req.DayEnd-req.DayStart)/2
	for date := req.StartDate; !date.After(req.EndDate); date = date.AddDate(0, 0, 1) {
		if !req.WorkingDays[date.Weekday()] {
			continue
		}
		dateStr := date.Format(dateLayout)
		dayName := date.Weekday().String()

		index := 0
		breakTaken := req.BreakDuration == 0
		for t := req.DayStart; t+slotMinutes <= req.DayEnd; {
			end := t + slotMinutes
			grid.byDate[dateStr] = append(grid.byDate[dateStr], len(grid.Slots))
			grid.Slots = append(grid.Slots, Slot{
				Date:  dateStr,
				Day:   dayName,
				Index: index,
				Start: t,
				End:   end,
			})
			index++
			if !breakTaken && end >= midpoint {
				t = end + req.BreakDuration
				breakTaken = true
			} else {
				t = end
			}
		}
		if len(grid.byDate[dateStr]) > 0 {
			grid.Dates = append(grid.Dates, dateStr)
		}
	}
	return grid
}

// Empty reports whether the grid holds no schedulable slots.
func (g *Grid) Empty() bool {
	return len(g.Slots) == 0
}

// DaySlots returns the indices of the date's slots in chronological order.
func (g *Grid) DaySlots(date string) []int {
	return g.byDate[date]
}

// Contiguous reports whether count slots starting at index form one
// uninterrupted run on a single day. Runs never span the break window.
func (g *Grid) Contiguous(index, count int) bool {
	if index+count > len(g.Slots) {
		return false
	}
	for i := index; i < index+count-1; i++ {
		cur, next := g.Slots[i], g.Slots[i+1]
		if cur.Date != next.Date || cur.End != next.Start {
			return false
		}
	}
	return true
}

func parseClock(raw string) (int, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
