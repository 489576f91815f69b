// Package crew validates a proposed crew against what the quotation promised
// and suggests replacements for unfilled slots.
package crew

import (
	"context"
	"sort"

	"studioflow/internal/availability"
	"studioflow/internal/models"
)

// Gap is one unfilled slot: a role short by some count on one event day.
type Gap struct {
	DayNumber int         `json:"day_number"`
	DayDate   string      `json:"day_date"` // YYYY-MM-DD
	Role      models.Role `json:"role"`
	Required  int         `json:"required"`
	Assigned  int         `json:"assigned"`
}

// Missing returns how many people the slot is short.
func (g Gap) Missing() int {
	return g.Required - g.Assigned
}

// Report is the outcome of a completeness check.
type Report struct {
	Complete bool  `json:"complete"`
	Gaps     []Gap `json:"gaps"`
}

// CheckCompleteness compares the assignments of an event against the
// quotation's required role counts, day by day. The requirement applies to
// every event day: a three-day wedding quoted with two photographers needs
// two on each of the three days.
func CheckCompleteness(event *models.Event, required models.CrewRequirement, assignments []models.Assignment) Report {
	report := Report{Complete: true, Gaps: []Gap{}}
	if len(required) == 0 {
		return report
	}

	r := event.Range()
	days := r.Days()

	// assigned[day][role] counts filled slots.
	assigned := make(map[int]map[models.Role]int, days)
	for i := range assignments {
		a := &assignments[i]
		day := a.DayNumber
		if day < 1 || day > days {
			continue
		}
		if assigned[day] == nil {
			assigned[day] = make(map[models.Role]int)
		}
		assigned[day][a.Role]++
	}

	roles := make([]models.Role, 0, len(required))
	for role := range required {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })

	for day := 1; day <= days; day++ {
		date := r.Start.AddDate(0, 0, day-1)
		for _, role := range roles {
			want := required[role]
			if want <= 0 {
				continue
			}
			have := assigned[day][role]
			if have < want {
				report.Gaps = append(report.Gaps, Gap{
					DayNumber: day,
					DayDate:   date.Format("2006-01-02"),
					Role:      role,
					Required:  want,
					Assigned:  have,
				})
			}
		}
	}

	report.Complete = len(report.Gaps) == 0
	return report
}

// PeopleSource lists a firm's active people, optionally narrowed to a role.
type PeopleSource interface {
	ListActivePeople(ctx context.Context, firmID int64, role models.Role) ([]models.Person, error)
}

// Suggester proposes free people for unfilled slots.
type Suggester struct {
	people PeopleSource
	engine *availability.Engine
}

// NewSuggester creates a suggester over the given people source and engine.
func NewSuggester(people PeopleSource, engine *availability.Engine) *Suggester {
	return &Suggester{people: people, engine: engine}
}

// Suggestion pairs a gap with people free to fill it.
type Suggestion struct {
	Gap        Gap             `json:"gap"`
	Candidates []models.Person `json:"candidates"`
}

// SuggestFor proposes, for each gap, the firm's people of the gap's role who
// are free on that day. The event being staffed is excluded: a photographer
// already shooting day one of it can still cover day three.
func (s *Suggester) SuggestFor(ctx context.Context, event *models.Event, gaps []Gap) ([]Suggestion, error) {
	exclude := availability.NewExclusionSet(event.ID)

	suggestions := make([]Suggestion, 0, len(gaps))
	for _, gap := range gaps {
		date := event.Range().Start.AddDate(0, 0, gap.DayNumber-1)
		day := models.NewDateRange(date, date)

		candidates, err := s.people.ListActivePeople(ctx, event.FirmID, gap.Role)
		if err != nil {
			return nil, err
		}

		free := s.engine.FilterAvailable(ctx, event.FirmID, candidates, day, exclude)
		suggestions = append(suggestions, Suggestion{Gap: gap, Candidates: free})
	}
	return suggestions, nil
}
