package crew

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioflow/internal/availability"
	"studioflow/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func int64Ptr(v int64) *int64 { return &v }

func assignment(eventID int64, personID int64, role models.Role, dayNumber int) models.Assignment {
	return models.Assignment{
		EventID:   eventID,
		StaffID:   int64Ptr(personID),
		Role:      role,
		DayNumber: dayNumber,
	}
}

func TestCheckCompleteness(t *testing.T) {
	event := &models.Event{
		ID:        1,
		FirmID:    1,
		Title:     "Three Day Wedding",
		StartDate: day(2026, 11, 20),
		TotalDays: 3,
	}
	required := models.CrewRequirement{
		models.RolePhotographer:    2,
		models.RoleCinematographer: 1,
	}

	t.Run("fully staffed", func(t *testing.T) {
		var assignments []models.Assignment
		for dayNum := 1; dayNum <= 3; dayNum++ {
			assignments = append(assignments,
				assignment(1, 10, models.RolePhotographer, dayNum),
				assignment(1, 11, models.RolePhotographer, dayNum),
				assignment(1, 12, models.RoleCinematographer, dayNum),
			)
		}

		report := CheckCompleteness(event, required, assignments)
		assert.True(t, report.Complete)
		assert.Empty(t, report.Gaps)
	})

	t.Run("short one photographer on day two", func(t *testing.T) {
		var assignments []models.Assignment
		for dayNum := 1; dayNum <= 3; dayNum++ {
			assignments = append(assignments,
				assignment(1, 10, models.RolePhotographer, dayNum),
				assignment(1, 12, models.RoleCinematographer, dayNum),
			)
			if dayNum != 2 {
				assignments = append(assignments, assignment(1, 11, models.RolePhotographer, dayNum))
			}
		}

		report := CheckCompleteness(event, required, assignments)
		assert.False(t, report.Complete)
		require.Len(t, report.Gaps, 1)

		gap := report.Gaps[0]
		assert.Equal(t, 2, gap.DayNumber)
		assert.Equal(t, "2026-11-21", gap.DayDate)
		assert.Equal(t, models.RolePhotographer, gap.Role)
		assert.Equal(t, 1, gap.Missing())
	})

	t.Run("nothing assigned", func(t *testing.T) {
		report := CheckCompleteness(event, required, nil)
		assert.False(t, report.Complete)
		// Two roles short on each of three days.
		assert.Len(t, report.Gaps, 6)
	})

	t.Run("no requirement means complete", func(t *testing.T) {
		report := CheckCompleteness(event, nil, nil)
		assert.True(t, report.Complete)
	})

	t.Run("assignments outside the event range are ignored", func(t *testing.T) {
		assignments := []models.Assignment{
			assignment(1, 10, models.RolePhotographer, 9),
		}
		report := CheckCompleteness(event, models.CrewRequirement{models.RolePhotographer: 1}, assignments)
		assert.False(t, report.Complete)
		assert.Len(t, report.Gaps, 3)
	})
}

// fakePeople is an in-memory PeopleSource.
type fakePeople struct {
	people []models.Person
}

func (f *fakePeople) ListActivePeople(_ context.Context, firmID int64, role models.Role) ([]models.Person, error) {
	var out []models.Person
	for _, p := range f.people {
		if p.FirmID == firmID && (role == "" || p.Role == role) {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeAssignments is an in-memory availability.AssignmentSource.
type fakeAssignments struct {
	rows []models.AssignmentWithEvent
}

func (f *fakeAssignments) ListAssignmentsWithEvents(_ context.Context, firmID int64, exclude availability.ExclusionSet) ([]models.AssignmentWithEvent, error) {
	var out []models.AssignmentWithEvent
	for _, r := range f.rows {
		if r.FirmID == firmID && !exclude.Contains(r.EventID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAssignments) GetEventTitle(context.Context, int64, int64) (string, error) {
	return "", nil
}

func TestSuggestFor(t *testing.T) {
	event := &models.Event{
		ID:        1,
		FirmID:    1,
		StartDate: day(2026, 11, 20),
		TotalDays: 2,
	}

	people := &fakePeople{people: []models.Person{
		{ID: 10, FirmID: 1, Name: "Asha", Role: models.RolePhotographer},
		{ID: 11, FirmID: 1, Name: "Vikram", Role: models.RolePhotographer},
		{ID: 12, FirmID: 1, Name: "Meera", Role: models.RoleEditor},
	}}

	// Vikram is busy on another event overlapping day two; Asha already
	// shoots day one of this event, which must not disqualify her.
	source := &fakeAssignments{rows: []models.AssignmentWithEvent{
		{
			Assignment: assignment(2, 11, models.RolePhotographer, 1),
			EventStartDate: day(2026, 11, 21), EventTotalDays: 1,
		},
		{
			Assignment: assignment(1, 10, models.RolePhotographer, 1),
			EventStartDate: day(2026, 11, 20), EventTotalDays: 2,
		},
	}}
	for i := range source.rows {
		source.rows[i].FirmID = 1
	}

	engine := availability.NewEngine(source, zerolog.Nop())
	suggester := NewSuggester(people, engine)

	gaps := []Gap{{DayNumber: 2, DayDate: "2026-11-21", Role: models.RolePhotographer, Required: 2, Assigned: 0}}
	suggestions, err := suggester.SuggestFor(context.Background(), event, gaps)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)

	var names []string
	for _, p := range suggestions[0].Candidates {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Asha"}, names)
}
