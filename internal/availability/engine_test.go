package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioflow/internal/models"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(year int, month time.Month, d int) *time.Time {
	t := day(year, month, d)
	return &t
}

func staffRef(id int64) *int64      { return &id }
func freelancerRef(id int64) *int64 { return &id }

// fakeSource is an in-memory AssignmentSource keyed by firm id.
type fakeSource struct {
	assignments map[int64][]models.AssignmentWithEvent
	titles      map[int64]string
	err         error
	calls       int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		assignments: make(map[int64][]models.AssignmentWithEvent),
		titles:      make(map[int64]string),
	}
}

func (f *fakeSource) add(firmID int64, a models.AssignmentWithEvent) {
	a.FirmID = firmID
	f.assignments[firmID] = append(f.assignments[firmID], a)
}

func (f *fakeSource) ListAssignmentsWithEvents(_ context.Context, firmID int64, exclude ExclusionSet) ([]models.AssignmentWithEvent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.AssignmentWithEvent
	for _, a := range f.assignments[firmID] {
		if exclude.Contains(a.EventID) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeSource) GetEventTitle(_ context.Context, _ int64, eventID int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.titles[eventID], nil
}

func newTestEngine(src AssignmentSource) *Engine {
	return NewEngine(src, zerolog.Nop())
}

// assignmentFor builds a per-day assignment row joined with its event dates.
func assignmentFor(eventID int64, staffID, freelancerID *int64, role models.Role, start time.Time, end *time.Time, totalDays int) models.AssignmentWithEvent {
	return models.AssignmentWithEvent{
		Assignment: models.Assignment{
			EventID:      eventID,
			StaffID:      staffID,
			FreelancerID: freelancerID,
			Role:         role,
			DayNumber:    1,
			DayDate:      start,
		},
		EventStartDate: start,
		EventEndDate:   end,
		EventTotalDays: totalDays,
	}
}

func TestEngine_IsAvailable(t *testing.T) {
	const firmID = int64(1)
	ctx := context.Background()

	// Event 100: person 7 as photographer, Jan 10-12.
	src := newFakeSource()
	src.add(firmID, assignmentFor(100, staffRef(7), nil, models.RolePhotographer, day(2026, 1, 10), nil, 3))
	engine := newTestEngine(src)

	tests := []struct {
		name     string
		personID int64
		r        models.DateRange
		exclude  ExclusionSet
		want     bool
	}{
		{
			name:     "overlapping window blocks the person",
			personID: 7,
			r:        models.DateRange{Start: day(2026, 1, 12), End: day(2026, 1, 14)},
			want:     false,
		},
		{
			name:     "window clear of the booking",
			personID: 7,
			r:        models.DateRange{Start: day(2026, 1, 13), End: day(2026, 1, 14)},
			want:     true,
		},
		{
			name:     "other people stay available",
			personID: 8,
			r:        models.DateRange{Start: day(2026, 1, 10), End: day(2026, 1, 12)},
			want:     true,
		},
		{
			name:     "unset slot (zero id) is always available",
			personID: 0,
			r:        models.DateRange{Start: day(2026, 1, 10), End: day(2026, 1, 12)},
			want:     true,
		},
		{
			name:     "excluding the conflicting event frees the person",
			personID: 7,
			r:        models.DateRange{Start: day(2026, 1, 12), End: day(2026, 1, 14)},
			exclude:  NewExclusionSet(100),
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.IsAvailable(ctx, firmID, tt.personID, tt.r, tt.exclude))
		})
	}
}

func TestEngine_IsAvailable_FreelancerAndStaffShareNamespace(t *testing.T) {
	const firmID = int64(1)
	ctx := context.Background()

	// Person 9 is booked as a freelancer on event 200.
	src := newFakeSource()
	src.add(firmID, assignmentFor(200, nil, freelancerRef(9), models.RoleCinematographer, day(2026, 2, 1), dayPtr(2026, 2, 3), 0))
	engine := newTestEngine(src)

	window := models.DateRange{Start: day(2026, 2, 2), End: day(2026, 2, 2)}
	assert.False(t, engine.IsAvailable(ctx, firmID, 9, window, nil),
		"a freelancer booking must block the same person id everywhere")
}

func TestEngine_IsAvailable_Idempotent(t *testing.T) {
	const firmID = int64(1)
	ctx := context.Background()

	src := newFakeSource()
	src.add(firmID, assignmentFor(100, staffRef(7), nil, models.RolePhotographer, day(2026, 1, 10), nil, 3))
	engine := newTestEngine(src)

	window := models.DateRange{Start: day(2026, 1, 11), End: day(2026, 1, 11)}
	first := engine.IsAvailable(ctx, firmID, 7, window, nil)
	second := engine.IsAvailable(ctx, firmID, 7, window, nil)
	assert.Equal(t, first, second)
	assert.False(t, first)
}

func TestEngine_FindConflicts(t *testing.T) {
	const firmID = int64(1)
	ctx := context.Background()

	src := newFakeSource()
	// Event 100 Jan 10-12, event 101 Jan 20-21.
	src.add(firmID, assignmentFor(100, staffRef(7), nil, models.RolePhotographer, day(2026, 1, 10), nil, 3))
	src.add(firmID, assignmentFor(101, staffRef(8), nil, models.RoleEditor, day(2026, 1, 20), dayPtr(2026, 1, 21), 0))
	engine := newTestEngine(src)

	t.Run("only overlapping events are returned", func(t *testing.T) {
		got := engine.FindConflicts(ctx, firmID, models.DateRange{Start: day(2026, 1, 12), End: day(2026, 1, 14)}, nil)
		require.Len(t, got, 1)
		assert.Equal(t, int64(100), got[0].EventID)
	})

	t.Run("window touching both events returns both", func(t *testing.T) {
		got := engine.FindConflicts(ctx, firmID, models.DateRange{Start: day(2026, 1, 12), End: day(2026, 1, 20)}, nil)
		assert.Len(t, got, 2)
	})

	t.Run("exclusion removes the event's own assignments", func(t *testing.T) {
		got := engine.FindConflicts(ctx, firmID, models.DateRange{Start: day(2026, 1, 10), End: day(2026, 1, 25)}, NewExclusionSet(100))
		require.Len(t, got, 1)
		assert.Equal(t, int64(101), got[0].EventID)
	})

	t.Run("no window overlap yields empty result", func(t *testing.T) {
		got := engine.FindConflicts(ctx, firmID, models.DateRange{Start: day(2026, 2, 1), End: day(2026, 2, 5)}, nil)
		assert.Empty(t, got)
	})
}

func TestEngine_FilterAvailable(t *testing.T) {
	const firmID = int64(1)
	ctx := context.Background()

	src := newFakeSource()
	src.add(firmID, assignmentFor(100, staffRef(2), nil, models.RolePhotographer, day(2026, 1, 10), nil, 3))
	engine := newTestEngine(src)

	p1 := models.Person{ID: 1, Name: "Asha"}
	p2 := models.Person{ID: 2, Name: "Ben"}
	p3 := models.Person{ID: 3, Name: "Chitra"}

	window := models.DateRange{Start: day(2026, 1, 11), End: day(2026, 1, 13)}
	got := engine.FilterAvailable(ctx, firmID, []models.Person{p1, p2, p3}, window, nil)

	// Only the conflicted person drops out; input order is preserved.
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
}

func TestEngine_FilterAvailable_EmptyInput(t *testing.T) {
	engine := newTestEngine(newFakeSource())
	got := engine.FilterAvailable(context.Background(), 1, nil, models.DateRange{Start: day(2026, 1, 1), End: day(2026, 1, 2)}, nil)
	assert.Empty(t, got)
}

func TestEngine_TenantIsolation(t *testing.T) {
	ctx := context.Background()

	src := newFakeSource()
	// Firm 2 has person 7 fully booked; firm 1 has nothing.
	src.add(2, assignmentFor(300, staffRef(7), nil, models.RolePhotographer, day(2026, 1, 10), nil, 5))
	engine := newTestEngine(src)

	window := models.DateRange{Start: day(2026, 1, 10), End: day(2026, 1, 14)}

	assert.Empty(t, engine.FindConflicts(ctx, 1, window, nil),
		"firm 2 assignments must never surface in firm 1 queries")
	assert.True(t, engine.IsAvailable(ctx, 1, 7, window, nil),
		"the same person id is independently schedulable per firm")
	assert.False(t, engine.IsAvailable(ctx, 2, 7, window, nil))
}

func TestEngine_ConflictDetails(t *testing.T) {
	const firmID = int64(1)
	ctx := context.Background()

	src := newFakeSource()
	src.titles[100] = "Mehta Wedding"
	// Three per-day rows of the same event and role; details must dedupe.
	for dayNum := 0; dayNum < 3; dayNum++ {
		a := assignmentFor(100, staffRef(7), nil, models.RolePhotographer, day(2026, 1, 10), nil, 3)
		a.DayNumber = dayNum + 1
		a.DayDate = day(2026, 1, 10+dayNum)
		src.add(firmID, a)
	}
	engine := newTestEngine(src)

	t.Run("person with overlapping booking", func(t *testing.T) {
		report := engine.ConflictDetails(ctx, firmID, 7, models.DateRange{Start: day(2026, 1, 11), End: day(2026, 1, 15)}, nil)
		assert.True(t, report.HasConflict)
		require.Len(t, report.Conflicts, 1, "per-day rows of one event+role collapse into one conflict")

		c := report.Conflicts[0]
		assert.Equal(t, int64(100), c.EventID)
		assert.Equal(t, "Mehta Wedding", c.EventTitle)
		assert.Equal(t, models.RolePhotographer, c.Role)
		assert.Equal(t, models.DateRange{Start: day(2026, 1, 10), End: day(2026, 1, 12)}, c.Range)
	})

	t.Run("person with no assignments anywhere", func(t *testing.T) {
		report := engine.ConflictDetails(ctx, firmID, 99, models.DateRange{Start: day(2026, 1, 1), End: day(2026, 12, 31)}, nil)
		assert.False(t, report.HasConflict)
		assert.Empty(t, report.Conflicts)
	})

	t.Run("zero person id", func(t *testing.T) {
		report := engine.ConflictDetails(ctx, firmID, 0, models.DateRange{Start: day(2026, 1, 10), End: day(2026, 1, 12)}, nil)
		assert.False(t, report.HasConflict)
	})
}

func TestEngine_ConflictDetails_TitleFromJoinedRow(t *testing.T) {
	const firmID = int64(1)
	ctx := context.Background()

	src := newFakeSource()
	a := assignmentFor(400, staffRef(5), nil, models.RoleDronePilot, day(2026, 3, 1), nil, 1)
	a.EventTitle = "Corporate Shoot"
	src.add(firmID, a)
	engine := newTestEngine(src)

	report := engine.ConflictDetails(ctx, firmID, 5, models.DateRange{Start: day(2026, 3, 1), End: day(2026, 3, 1)}, nil)
	require.True(t, report.HasConflict)
	assert.Equal(t, "Corporate Shoot", report.Conflicts[0].EventTitle,
		"title already present on the joined row needs no extra lookup")
}

func TestEngine_FailOpen(t *testing.T) {
	const firmID = int64(1)
	ctx := context.Background()
	window := models.DateRange{Start: day(2026, 1, 10), End: day(2026, 1, 12)}

	src := newFakeSource()
	src.err = errors.New("store unreachable")
	engine := newTestEngine(src)

	t.Run("IsAvailable reports available", func(t *testing.T) {
		assert.True(t, engine.IsAvailable(ctx, firmID, 7, window, nil))
	})

	t.Run("FilterAvailable keeps every candidate in order", func(t *testing.T) {
		people := []models.Person{{ID: 1}, {ID: 2}, {ID: 3}}
		got := engine.FilterAvailable(ctx, firmID, people, window, nil)
		assert.Equal(t, people, got)
	})

	t.Run("FindConflicts returns no conflicts", func(t *testing.T) {
		assert.Empty(t, engine.FindConflicts(ctx, firmID, window, nil))
	})

	t.Run("ConflictDetails reports none", func(t *testing.T) {
		report := engine.ConflictDetails(ctx, firmID, 7, window, nil)
		assert.False(t, report.HasConflict)
		assert.Empty(t, report.Conflicts)
	})
}

func TestExclusionSet(t *testing.T) {
	assert.False(t, ExclusionSet(nil).Contains(5), "nil set excludes nothing")

	set := NewExclusionSet(5, 6, 0)
	assert.True(t, set.Contains(5))
	assert.True(t, set.Contains(6))
	assert.False(t, set.Contains(0), "zero ids are ignored")
	assert.False(t, set.Contains(7))

	assert.Nil(t, NewExclusionSet(), "empty argument list yields a nil set")
}
