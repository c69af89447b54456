package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
)

func validRequest() dto.GenerateTimetableRequest {
	return dto.GenerateTimetableRequest{
		BatchIDs:      []string{"batch-1"},
		StartDate:     "2026-01-05",
		EndDate:       "2026-01-09",
		WorkingDays:   []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		StartTime:     "09:00",
		EndTime:       "12:00",
		BreakDuration: 0,
	}
}

func TestParseRequest(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		req, err := ParseRequest(validRequest())
		require.NoError(t, err)
		assert.Equal(t, 9*60, req.DayStart)
		assert.Equal(t, 12*60, req.DayEnd)
		assert.True(t, req.WorkingDays[time.Monday])
		assert.False(t, req.WorkingDays[time.Sunday])
	})

	t.Run("end date before start date", func(t *testing.T) {
		raw := validRequest()
		raw.StartDate = "2026-01-09"
		raw.EndDate = "2026-01-05"
		_, err := ParseRequest(raw)
		assert.Error(t, err)
	})

	t.Run("empty working days", func(t *testing.T) {
		raw := validRequest()
		raw.WorkingDays = nil
		_, err := ParseRequest(raw)
		assert.Error(t, err)
	})

	t.Run("unknown working day", func(t *testing.T) {
		raw := validRequest()
		raw.WorkingDays = []string{"Funday"}
		_, err := ParseRequest(raw)
		assert.Error(t, err)
	})

	t.Run("end time not after start time", func(t *testing.T) {
		raw := validRequest()
		raw.StartTime = "12:00"
		raw.EndTime = "09:00"
		_, err := ParseRequest(raw)
		assert.Error(t, err)
	})

	t.Run("break wider than window", func(t *testing.T) {
		raw := validRequest()
		raw.BreakDuration = 300
		_, err := ParseRequest(raw)
		assert.Error(t, err)
	})
}

func TestBuildGrid(t *testing.T) {
	t.Run("one day without break", func(t *testing.T) {
		raw := validRequest()
		raw.EndDate = "2026-01-05"
		req, err := ParseRequest(raw)
		require.NoError(t, err)

		grid := BuildGrid(req, 60)
		require.Len(t, grid.Slots, 3)
		assert.Equal(t, []string{"2026-01-05"}, grid.Dates)
		assert.Equal(t, 9*60, grid.Slots[0].Start)
		assert.Equal(t, 10*60, grid.Slots[0].End)
		assert.Equal(t, "Monday", grid.Slots[0].Day)
		assert.Equal(t, 11*60, grid.Slots[2].Start)
	})

	t.Run("break after midpoint slot", func(t *testing.T) {
		raw := validRequest()
		raw.EndDate = "2026-01-05"
		raw.EndTime = "13:00"
		raw.BreakDuration = 30
		req, err := ParseRequest(raw)
		require.NoError(t, err)

		// Midpoint is 11:00: slots 09:00 and 10:00 run back to back, the
		// break follows the 10:00 slot, the last slot starts 11:30.
		grid := BuildGrid(req, 60)
		require.Len(t, grid.Slots, 3)
		assert.Equal(t, 9*60, grid.Slots[0].Start)
		assert.Equal(t, 10*60, grid.Slots[1].Start)
		assert.Equal(t, 11*60+30, grid.Slots[2].Start)
	})

	t.Run("non working days skipped", func(t *testing.T) {
		raw := validRequest()
		raw.StartDate = "2026-01-05"
		raw.EndDate = "2026-01-11"
		raw.WorkingDays = []string{"Monday", "Wednesday"}
		req, err := ParseRequest(raw)
		require.NoError(t, err)

		grid := BuildGrid(req, 60)
		assert.Equal(t, []string{"2026-01-05", "2026-01-07"}, grid.Dates)
	})

	t.Run("no working day in range", func(t *testing.T) {
		raw := validRequest()
		raw.StartDate = "2026-01-10"
		raw.EndDate = "2026-01-11"
		raw.WorkingDays = []string{"Monday"}
		req, err := ParseRequest(raw)
		require.NoError(t, err)

		grid := BuildGrid(req, 60)
		assert.True(t, grid.Empty())
	})
}

func TestGridContiguous(t *testing.T) {
	raw := validRequest()
	raw.EndDate = "2026-01-06"
	raw.EndTime = "13:00"
	raw.BreakDuration = 30
	req, err := ParseRequest(raw)
	require.NoError(t, err)

	grid := BuildGrid(req, 60)
	require.Len(t, grid.Slots, 6)

	assert.True(t, grid.Contiguous(0, 2))
	// Run would straddle the break window.
	assert.False(t, grid.Contiguous(1, 2))
	// Run would cross into the next day.
	assert.False(t, grid.Contiguous(2, 2))
	// Run past the end of the grid.
	assert.False(t, grid.Contiguous(5, 2))
}
