package models

import (
	"errors"
	"time"
)

var (
	// ErrNoPersonRef is returned when an assignment references nobody.
	ErrNoPersonRef = errors.New("assignment must reference a staff member or a freelancer")
	// ErrAmbiguousPersonRef is returned when both reference fields are set.
	ErrAmbiguousPersonRef = errors.New("assignment cannot reference both a staff member and a freelancer")
)

// Assignment binds one person to one event, role and day. Exactly one of
// StaffID and FreelancerID is set; both reference the same people table,
// so a person occupies a single conflict namespace regardless of category.
type Assignment struct {
	ID           int64     `json:"id"`
	FirmID       int64     `json:"firm_id"`
	EventID      int64     `json:"event_id"`
	StaffID      *int64    `json:"staff_id,omitempty"`
	FreelancerID *int64    `json:"freelancer_id,omitempty"`
	Role         Role      `json:"role"`
	DayNumber    int       `json:"day_number"` // 1-based day within the event
	DayDate      time.Time `json:"day_date"`
	CreatedAt    time.Time `json:"created_at"`
}

// PersonID returns the referenced person id, or 0 when the slot is unset.
func (a *Assignment) PersonID() int64 {
	if a.StaffID != nil {
		return *a.StaffID
	}
	if a.FreelancerID != nil {
		return *a.FreelancerID
	}
	return 0
}

// Validate checks the mutual-exclusion invariant on the person reference.
func (a *Assignment) Validate() error {
	switch {
	case a.StaffID == nil && a.FreelancerID == nil:
		return ErrNoPersonRef
	case a.StaffID != nil && a.FreelancerID != nil:
		return ErrAmbiguousPersonRef
	}
	return nil
}

// AssignmentWithEvent is an assignment joined with its parent event's date
// fields, as returned by the tenant-scoped storage query. The event range
// is re-derived on demand rather than persisted.
type AssignmentWithEvent struct {
	Assignment
	EventTitle     string     `json:"event_title"`
	EventStartDate time.Time  `json:"event_start_date"`
	EventEndDate   *time.Time `json:"event_end_date,omitempty"`
	EventTotalDays int        `json:"event_total_days"`
}

// EventRange returns the parent event's effective date range.
func (a *AssignmentWithEvent) EventRange() DateRange {
	return DeriveRange(a.EventStartDate, a.EventEndDate, a.EventTotalDays)
}
