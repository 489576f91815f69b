// Package availability answers "who is free during a date window" for one
// firm's staff and freelancers. It is a stateless query service: every call
// recomputes from the live assignment store, so there is no cache to
// invalidate and no in-process mutable state.
//
// The engine is advisory, not a reservation system. If the store is
// unreachable it fails open - the candidate is reported as available and the
// cause is only visible in logs and metrics - because blocking the booking
// flow on a transient outage is worse than a double-booking warning arriving
// late. The calling layer re-validates before the final save.
package availability

import (
	"context"

	"github.com/rs/zerolog"

	"studioflow/internal/metrics"
	"studioflow/internal/models"
)

// ExclusionSet holds event ids whose assignments must not count as
// conflicts. Its main use is editing an existing multi-day event: the
// event's own saved assignments must not conflict with themselves.
type ExclusionSet map[int64]struct{}

// NewExclusionSet builds a set from event ids. Zero ids are ignored.
func NewExclusionSet(eventIDs ...int64) ExclusionSet {
	if len(eventIDs) == 0 {
		return nil
	}
	set := make(ExclusionSet, len(eventIDs))
	for _, id := range eventIDs {
		if id != 0 {
			set[id] = struct{}{}
		}
	}
	return set
}

// Contains reports whether the event is excluded. Safe on a nil set.
func (s ExclusionSet) Contains(eventID int64) bool {
	if s == nil {
		return false
	}
	_, ok := s[eventID]
	return ok
}

// AssignmentSource is the narrow, firm-scoped data-access contract the
// engine consumes. The firm id is a mandatory first parameter on every
// method and the storage adapter enforces the filter, so no call site can
// accidentally leak another firm's commitments.
type AssignmentSource interface {
	// ListAssignmentsWithEvents returns every assignment of the firm joined
	// with its parent event's date fields, skipping excluded events.
	ListAssignmentsWithEvents(ctx context.Context, firmID int64, exclude ExclusionSet) ([]models.AssignmentWithEvent, error)

	// GetEventTitle returns the title of a firm's event for conflict
	// display. A missing event is not an error; it returns "".
	GetEventTitle(ctx context.Context, firmID, eventID int64) (string, error)
}

// Conflict describes one overlapping booking for a person, with enough
// detail for the UI to explain why they are unavailable.
type Conflict struct {
	EventID    int64            `json:"event_id"`
	EventTitle string           `json:"event_title"`
	Role       models.Role      `json:"role"`
	Range      models.DateRange `json:"range"`
}

// ConflictReport is the result of a ConflictDetails query.
type ConflictReport struct {
	HasConflict bool       `json:"has_conflict"`
	Conflicts   []Conflict `json:"conflicts"`
}

// Engine answers availability queries for one firm at a time.
type Engine struct {
	source AssignmentSource
	logger zerolog.Logger
}

// NewEngine creates an availability engine over the given source.
func NewEngine(source AssignmentSource, logger zerolog.Logger) *Engine {
	return &Engine{
		source: source,
		logger: logger.With().Str("component", "availability").Logger(),
	}
}

// FindConflicts returns every assignment of the firm whose parent event's
// derived date range overlaps r, excluding assignments of excluded events.
// Order is unspecified. On a store error it logs, counts the fallback and
// returns an empty list.
func (e *Engine) FindConflicts(ctx context.Context, firmID int64, r models.DateRange, exclude ExclusionSet) []models.AssignmentWithEvent {
	metrics.IncAvailabilityQuery("find_conflicts")

	conflicts, err := e.conflicts(ctx, firmID, r, exclude)
	if err != nil {
		e.failOpen("find_conflicts", firmID, err)
		return nil
	}
	return conflicts
}

// IsAvailable reports whether the person has no assignment overlapping r.
// A zero person id means an unset slot and is always available. A person
// with no assignments anywhere is trivially available; absence is not an
// error. On a store error it fails open and returns true.
func (e *Engine) IsAvailable(ctx context.Context, firmID, personID int64, r models.DateRange, exclude ExclusionSet) bool {
	metrics.IncAvailabilityQuery("is_available")

	if personID == 0 {
		return true
	}

	conflicts, err := e.conflicts(ctx, firmID, r, exclude)
	if err != nil {
		e.failOpen("is_available", firmID, err)
		return true
	}

	for i := range conflicts {
		if conflicts[i].PersonID() == personID {
			return false
		}
	}
	return true
}

// FilterAvailable returns the subset of people with no assignment
// overlapping r. It is a pure filter: input order is preserved and nobody
// is added. On a store error it fails open and returns every candidate.
func (e *Engine) FilterAvailable(ctx context.Context, firmID int64, people []models.Person, r models.DateRange, exclude ExclusionSet) []models.Person {
	metrics.IncAvailabilityQuery("filter_available")

	conflicts, err := e.conflicts(ctx, firmID, r, exclude)
	if err != nil {
		e.failOpen("filter_available", firmID, err)
		return append([]models.Person(nil), people...)
	}

	busy := make(map[int64]struct{}, len(conflicts))
	for i := range conflicts {
		if id := conflicts[i].PersonID(); id != 0 {
			busy[id] = struct{}{}
		}
	}

	available := make([]models.Person, 0, len(people))
	for _, p := range people {
		if _, taken := busy[p.ID]; !taken {
			available = append(available, p)
		}
	}
	return available
}

// ConflictDetails lists every overlapping booking of the person within r,
// deduplicated per event and role (multi-day events carry one assignment
// row per day). On a store error it fails open with an empty report.
func (e *Engine) ConflictDetails(ctx context.Context, firmID, personID int64, r models.DateRange, exclude ExclusionSet) ConflictReport {
	metrics.IncAvailabilityQuery("conflict_details")

	report := ConflictReport{Conflicts: []Conflict{}}
	if personID == 0 {
		return report
	}

	conflicts, err := e.conflicts(ctx, firmID, r, exclude)
	if err != nil {
		e.failOpen("conflict_details", firmID, err)
		return report
	}

	type key struct {
		eventID int64
		role    models.Role
	}
	seen := make(map[key]struct{})
	titles := make(map[int64]string)

	for i := range conflicts {
		c := &conflicts[i]
		if c.PersonID() != personID {
			continue
		}
		k := key{eventID: c.EventID, role: c.Role}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		title, cached := titles[c.EventID]
		if !cached {
			title = c.EventTitle
			if title == "" {
				title = e.lookupTitle(ctx, firmID, c.EventID)
			}
			titles[c.EventID] = title
		}

		report.Conflicts = append(report.Conflicts, Conflict{
			EventID:    c.EventID,
			EventTitle: title,
			Role:       c.Role,
			Range:      c.EventRange(),
		})
	}

	report.HasConflict = len(report.Conflicts) > 0
	return report
}

// conflicts fetches the firm's assignments and keeps those whose parent
// event range overlaps r.
func (e *Engine) conflicts(ctx context.Context, firmID int64, r models.DateRange, exclude ExclusionSet) ([]models.AssignmentWithEvent, error) {
	all, err := e.source.ListAssignmentsWithEvents(ctx, firmID, exclude)
	if err != nil {
		return nil, err
	}

	overlapping := make([]models.AssignmentWithEvent, 0, len(all))
	for i := range all {
		a := &all[i]
		if exclude.Contains(a.EventID) {
			// Belt and braces: the source already skips excluded events,
			// but the set is the contract, not the adapter.
			continue
		}
		if a.EventRange().Overlaps(r) {
			overlapping = append(overlapping, *a)
		}
	}
	return overlapping, nil
}

func (e *Engine) lookupTitle(ctx context.Context, firmID, eventID int64) string {
	title, err := e.source.GetEventTitle(ctx, firmID, eventID)
	if err != nil {
		e.logger.Debug().Err(err).Int64("event_id", eventID).Msg("event title lookup failed")
		return ""
	}
	return title
}

func (e *Engine) failOpen(operation string, firmID int64, err error) {
	metrics.IncFailOpen(operation)
	e.logger.Error().
		Err(err).
		Str("operation", operation).
		Int64("firm_id", firmID).
		Msg("assignment store unreachable, answering permissively")
}
