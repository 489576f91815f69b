package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Helper function to create a date
func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// Helper function to create a pointer to time
func dayPtr(year int, month time.Month, d int) *time.Time {
	t := day(year, month, d)
	return &t
}

func TestDateRange_Overlaps(t *testing.T) {
	tests := []struct {
		name    string
		a       DateRange
		b       DateRange
		overlap bool
	}{
		{
			name:    "no overlap - b before a",
			a:       DateRange{Start: day(2026, 1, 15), End: day(2026, 1, 20)},
			b:       DateRange{Start: day(2026, 1, 10), End: day(2026, 1, 14)},
			overlap: false,
		},
		{
			name:    "no overlap - b after a",
			a:       DateRange{Start: day(2026, 1, 15), End: day(2026, 1, 20)},
			b:       DateRange{Start: day(2026, 1, 21), End: day(2026, 1, 25)},
			overlap: false,
		},
		{
			name:    "overlap - b starts before, ends during",
			a:       DateRange{Start: day(2026, 1, 15), End: day(2026, 1, 20)},
			b:       DateRange{Start: day(2026, 1, 13), End: day(2026, 1, 16)},
			overlap: true,
		},
		{
			name:    "overlap - b starts during, ends after",
			a:       DateRange{Start: day(2026, 1, 15), End: day(2026, 1, 20)},
			b:       DateRange{Start: day(2026, 1, 19), End: day(2026, 1, 25)},
			overlap: true,
		},
		{
			name:    "overlap - b contained within a",
			a:       DateRange{Start: day(2026, 1, 15), End: day(2026, 1, 20)},
			b:       DateRange{Start: day(2026, 1, 16), End: day(2026, 1, 18)},
			overlap: true,
		},
		{
			name:    "overlap - b contains a",
			a:       DateRange{Start: day(2026, 1, 15), End: day(2026, 1, 20)},
			b:       DateRange{Start: day(2026, 1, 10), End: day(2026, 1, 25)},
			overlap: true,
		},
		{
			name:    "edge case - shared boundary day counts as overlap",
			a:       DateRange{Start: day(2026, 1, 15), End: day(2026, 1, 20)},
			b:       DateRange{Start: day(2026, 1, 20), End: day(2026, 1, 25)},
			overlap: true, // the 20th is included in both
		},
		{
			name:    "edge case - b starts the day after a ends",
			a:       DateRange{Start: day(2026, 1, 15), End: day(2026, 1, 20)},
			b:       DateRange{Start: day(2026, 1, 21), End: day(2026, 1, 25)},
			overlap: false,
		},
		{
			name:    "single-day ranges - same day",
			a:       DateRange{Start: day(2026, 1, 15), End: day(2026, 1, 15)},
			b:       DateRange{Start: day(2026, 1, 15), End: day(2026, 1, 15)},
			overlap: true,
		},
		{
			name:    "single-day ranges - different days",
			a:       DateRange{Start: day(2026, 1, 15), End: day(2026, 1, 15)},
			b:       DateRange{Start: day(2026, 1, 16), End: day(2026, 1, 16)},
			overlap: false,
		},
		{
			name:    "exact same range",
			a:       DateRange{Start: day(2026, 1, 15), End: day(2026, 1, 20)},
			b:       DateRange{Start: day(2026, 1, 15), End: day(2026, 1, 20)},
			overlap: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.a.Overlaps(tt.b)
			assert.Equal(t, tt.overlap, result, "Overlaps returned unexpected result")

			// Also test reverse direction - overlap must be symmetric
			reverseResult := tt.b.Overlaps(tt.a)
			assert.Equal(t, tt.overlap, reverseResult, "Overlaps should be symmetric")
		})
	}
}

func TestDateRange_SelfOverlap(t *testing.T) {
	ranges := []DateRange{
		{Start: day(2026, 1, 15), End: day(2026, 1, 15)},
		{Start: day(2026, 1, 15), End: day(2026, 1, 20)},
		{Start: day(2026, 12, 31), End: day(2027, 1, 2)},
	}
	for _, r := range ranges {
		assert.True(t, r.Overlaps(r), "a range must always overlap itself: %s", r)
	}
}

func TestDateRange_ContainsDate(t *testing.T) {
	r := DateRange{Start: day(2026, 1, 15), End: day(2026, 1, 20)}

	tests := []struct {
		name     string
		date     time.Time
		contains bool
	}{
		{"date at start", day(2026, 1, 15), true},
		{"date at end", day(2026, 1, 20), true},
		{"date in middle", day(2026, 1, 17), true},
		{"date before", day(2026, 1, 14), false},
		{"date after", day(2026, 1, 21), false},
		{"time-of-day normalized away", time.Date(2026, 1, 20, 23, 30, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.contains, r.ContainsDate(tt.date))
		})
	}
}

func TestDeriveRange(t *testing.T) {
	tests := []struct {
		name      string
		start     time.Time
		end       *time.Time
		totalDays int
		want      DateRange
	}{
		{
			name:      "nil end derives from total days",
			start:     day(2024, 1, 10),
			end:       nil,
			totalDays: 3,
			want:      DateRange{Start: day(2024, 1, 10), End: day(2024, 1, 12)},
		},
		{
			name:      "explicit end overrides total days",
			start:     day(2024, 1, 10),
			end:       dayPtr(2024, 1, 15),
			totalDays: 1,
			want:      DateRange{Start: day(2024, 1, 10), End: day(2024, 1, 15)},
		},
		{
			name:      "zero total days defaults to single day",
			start:     day(2024, 1, 10),
			end:       nil,
			totalDays: 0,
			want:      DateRange{Start: day(2024, 1, 10), End: day(2024, 1, 10)},
		},
		{
			name:      "negative total days defaults to single day",
			start:     day(2024, 1, 10),
			end:       nil,
			totalDays: -2,
			want:      DateRange{Start: day(2024, 1, 10), End: day(2024, 1, 10)},
		},
		{
			name:      "explicit end before start collapses to start day",
			start:     day(2024, 1, 10),
			end:       dayPtr(2024, 1, 5),
			totalDays: 4,
			want:      DateRange{Start: day(2024, 1, 10), End: day(2024, 1, 10)},
		},
		{
			name:      "start with time-of-day is normalized",
			start:     time.Date(2024, 1, 10, 14, 30, 0, 0, time.UTC),
			end:       nil,
			totalDays: 2,
			want:      DateRange{Start: day(2024, 1, 10), End: day(2024, 1, 11)},
		},
		{
			name:      "range crossing a month boundary",
			start:     day(2024, 1, 30),
			end:       nil,
			totalDays: 4,
			want:      DateRange{Start: day(2024, 1, 30), End: day(2024, 2, 2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveRange(tt.start, tt.end, tt.totalDays)
			assert.Equal(t, tt.want, got)
			assert.False(t, got.End.Before(got.Start), "derived end must never precede start")
		})
	}
}

func TestEvent_Range(t *testing.T) {
	e := Event{StartDate: day(2026, 3, 1), TotalDays: 3}
	assert.Equal(t, DateRange{Start: day(2026, 3, 1), End: day(2026, 3, 3)}, e.Range())

	e.EndDate = dayPtr(2026, 3, 10)
	assert.Equal(t, DateRange{Start: day(2026, 3, 1), End: day(2026, 3, 10)}, e.Range())
}

func TestDateRange_Days(t *testing.T) {
	assert.Equal(t, 1, DateRange{Start: day(2026, 1, 15), End: day(2026, 1, 15)}.Days())
	assert.Equal(t, 6, DateRange{Start: day(2026, 1, 15), End: day(2026, 1, 20)}.Days())
}
