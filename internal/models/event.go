package models

import (
	"fmt"
	"time"
)

// Event statuses.
const (
	EventStatusDraft     = "draft"
	EventStatusConfirmed = "confirmed"
	EventStatusCompleted = "completed"
	EventStatusCancelled = "cancelled"
)

// Event is a scheduled booking spanning one or more calendar days.
type Event struct {
	ID        int64      `json:"id"`
	FirmID    int64      `json:"firm_id"`
	ClientID  int64      `json:"client_id"`
	Title     string     `json:"title"`
	EventType string     `json:"event_type"` // wedding, pre_wedding, corporate...
	Venue     string     `json:"venue"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"` // nullable: NULL means derived from total_days
	TotalDays int        `json:"total_days"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// DateRange is an inclusive start/end calendar-date pair. Comparisons are
// at day granularity; callers must normalize time-of-day via Day before
// building ranges by hand.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Day truncates t to midnight UTC, dropping time-of-day and zone offset.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDateRange builds a day-normalized inclusive range. If end precedes
// start the range collapses to the single start day.
func NewDateRange(start, end time.Time) DateRange {
	s, e := Day(start), Day(end)
	if e.Before(s) {
		e = s
	}
	return DateRange{Start: s, End: e}
}

// Overlaps reports whether two inclusive ranges share at least one day.
// Symmetric, and reflexive: a range always overlaps itself.
func (r DateRange) Overlaps(other DateRange) bool {
	return !r.End.Before(other.Start) && !other.End.Before(r.Start)
}

// ContainsDate reports whether the range covers a specific date.
func (r DateRange) ContainsDate(date time.Time) bool {
	d := Day(date)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days returns the number of calendar days covered by the range.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// String renders the range for display, e.g. "2026-01-10 – 2026-01-12".
func (r DateRange) String() string {
	if r.Start.Equal(r.End) {
		return r.Start.Format("2006-01-02")
	}
	return fmt.Sprintf("%s – %s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}

// DeriveRange computes the effective inclusive range for an event's date
// fields. An explicit end date wins over the total-days arithmetic; a
// missing or non-positive totalDays defaults to 1, so the result end is
// never before start.
func DeriveRange(start time.Time, end *time.Time, totalDays int) DateRange {
	s := Day(start)
	if end != nil {
		return NewDateRange(s, *end)
	}
	if totalDays < 1 {
		totalDays = 1
	}
	return DateRange{Start: s, End: s.AddDate(0, 0, totalDays-1)}
}

// Range returns the event's effective date range.
func (e *Event) Range() DateRange {
	return DeriveRange(e.StartDate, e.EndDate, e.TotalDays)
}

// IsMultiDay reports whether the event spans more than one day.
func (e *Event) IsMultiDay() bool {
	return e.Range().Days() > 1
}

// IsActive reports whether the event still occupies its crew.
func (e *Event) IsActive() bool {
	return e.Status != EventStatusCancelled
}
