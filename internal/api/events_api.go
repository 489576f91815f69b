package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"studioflow/internal/availability"
	"studioflow/internal/crew"
	"studioflow/internal/database"
	"studioflow/internal/events"
	"studioflow/internal/metrics"
	"studioflow/internal/models"
)

// crewSlotRequest is one proposed crew member in an event payload.
type crewSlotRequest struct {
	PersonID  int64       `json:"person_id"`
	Kind      string      `json:"kind"` // staff or freelancer
	Role      models.Role `json:"role"`
	DayNumber int         `json:"day_number"` // 1-based, defaults to 1
}

// createEventRequest is the request body for POST /api/v1/events.
type createEventRequest struct {
	FirmID      int64             `json:"firm_id"`
	ClientID    int64             `json:"client_id"`
	Title       string            `json:"title"`
	EventType   string            `json:"event_type,omitempty"`
	Venue       string            `json:"venue,omitempty"`
	StartDate   string            `json:"start_date"`         // Format: YYYY-MM-DD
	EndDate     string            `json:"end_date,omitempty"` // Format: YYYY-MM-DD
	TotalDays   int               `json:"total_days,omitempty"`
	Status      string            `json:"status,omitempty"`
	QuotationID int64             `json:"quotation_id,omitempty"`
	Crew        []crewSlotRequest `json:"crew,omitempty"`
}

// conflictWarning tells the caller a crew member is double-booked. Saving
// proceeds anyway; the availability engine is advisory.
type conflictWarning struct {
	PersonID  int64                   `json:"person_id"`
	Role      models.Role             `json:"role"`
	DayNumber int                     `json:"day_number"`
	Conflicts []availability.Conflict `json:"conflicts"`
}

// eventResponse is the response for event creation and crew updates.
type eventResponse struct {
	Event        *models.Event     `json:"event"`
	Warnings     []conflictWarning `json:"warnings,omitempty"`
	Completeness *crew.Report      `json:"completeness,omitempty"`
	Suggestions  []crew.Suggestion `json:"suggestions,omitempty"`
}

// handleEvents routes the /api/v1/events collection.
func (s *HTTPServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateEvent(w, r)
	case http.MethodGet:
		s.handleListEvents(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCreateEvent creates an event, optionally staffing it in the same
// request. POST /api/v1/events
func (s *HTTPServer) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_event")

	var req createEventRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	event, err := s.buildEvent(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.db.GetClient(r.Context(), req.FirmID, req.ClientID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "client not found")
			return
		}
		s.log.Error().Err(err).Msg("client lookup failed")
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}

	// Crew validation happens before any write: a rejected payload must
	// not leave the event behind.
	assignments, warnings, err := s.buildCrew(r, event, req.Crew)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.db.CreateEvent(r.Context(), event); err != nil {
		s.log.Error().Err(err).Msg("failed to create event")
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}
	metrics.IncEventCreated(event.Status)

	resp := eventResponse{Event: event, Warnings: warnings}

	if len(assignments) > 0 {
		for _, a := range assignments {
			a.EventID = event.ID
		}
		if err := s.db.ReplaceEventAssignments(r.Context(), event.FirmID, event.ID, assignments); err != nil {
			s.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to save crew")
			writeError(w, http.StatusInternalServerError, "failed to save crew")
			return
		}
		s.publishAssignments(assignments)
	}

	if report, ok := s.checkCompleteness(r, event, req.QuotationID); ok {
		resp.Completeness = report
		resp.Suggestions = s.suggestFillIns(r, event, report)
	}

	if s.bus != nil {
		s.bus.Publish(events.TopicEventCreated, event)
	}

	s.log.Info().
		Int64("firm_id", event.FirmID).
		Int64("event_id", event.ID).
		Str("title", event.Title).
		Msg("event created")

	writeJSON(w, http.StatusCreated, resp)
}

// handleListEvents lists a firm's events in a window.
// GET /api/v1/events?firm_id=&from=&to=
func (s *HTTPServer) handleListEvents(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_events")

	firmID, err := queryInt64(r, "firm_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Default window: one month back, one year ahead.
	from := time.Now().AddDate(0, -1, 0)
	to := time.Now().AddDate(1, 0, 0)
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.Parse("2006-01-02", v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid from format; expected YYYY-MM-DD")
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = time.Parse("2006-01-02", v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to format; expected YYYY-MM-DD")
			return
		}
	}

	list, err := s.db.ListEvents(r.Context(), firmID, from, to)
	if err != nil {
		s.log.Error().Err(err).Int64("firm_id", firmID).Msg("failed to list events")
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": list})
}

// crewRequest is the request body for POST /api/v1/events/{id}/crew. The
// submitted crew replaces the event's existing assignments.
type crewRequest struct {
	FirmID      int64             `json:"firm_id"`
	QuotationID int64             `json:"quotation_id,omitempty"`
	Crew        []crewSlotRequest `json:"crew"`
}

// handleEventSubresource routes /api/v1/events/{id}/...
func (s *HTTPServer) handleEventSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/events/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "crew" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	eventID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || eventID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	s.handleAssignCrew(w, r, eventID)
}

// handleAssignCrew replaces an event's crew.
// POST /api/v1/events/{id}/crew
func (s *HTTPServer) handleAssignCrew(w http.ResponseWriter, r *http.Request, eventID int64) {
	metrics.IncHTTP("assign_crew")

	var req crewRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.FirmID <= 0 {
		writeError(w, http.StatusBadRequest, "firm_id is required")
		return
	}

	event, err := s.db.GetEvent(r.Context(), req.FirmID, eventID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		s.log.Error().Err(err).Msg("event lookup failed")
		writeError(w, http.StatusInternalServerError, "failed to assign crew")
		return
	}

	assignments, warnings, err := s.buildCrew(r, event, req.Crew)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Delete and inserts share one transaction, so a store failure keeps
	// the old crew intact.
	if err := s.db.ReplaceEventAssignments(r.Context(), req.FirmID, eventID, assignments); err != nil {
		s.log.Error().Err(err).Int64("event_id", eventID).Msg("failed to replace crew")
		writeError(w, http.StatusInternalServerError, "failed to assign crew")
		return
	}
	s.publishAssignments(assignments)

	resp := eventResponse{Event: event, Warnings: warnings}
	if report, ok := s.checkCompleteness(r, event, req.QuotationID); ok {
		resp.Completeness = report
		resp.Suggestions = s.suggestFillIns(r, event, report)
	}

	writeJSON(w, http.StatusOK, resp)
}

// buildEvent validates a create request into a model.
func (s *HTTPServer) buildEvent(req *createEventRequest) (*models.Event, error) {
	if req.FirmID <= 0 {
		return nil, fmt.Errorf("firm_id is required")
	}
	if req.ClientID <= 0 {
		return nil, fmt.Errorf("client_id is required")
	}
	if req.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if req.StartDate == "" {
		return nil, fmt.Errorf("start_date is required")
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date format; expected YYYY-MM-DD")
	}

	event := &models.Event{
		FirmID:    req.FirmID,
		ClientID:  req.ClientID,
		Title:     req.Title,
		EventType: req.EventType,
		Venue:     req.Venue,
		StartDate: start,
		TotalDays: req.TotalDays,
		Status:    req.Status,
	}

	if req.EndDate != "" {
		end, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return nil, fmt.Errorf("invalid end_date format; expected YYYY-MM-DD")
		}
		if end.Before(start) {
			return nil, fmt.Errorf("end_date must not be before start_date")
		}
		event.EndDate = &end
	}

	return event, nil
}

// buildCrew validates every proposed slot and collects advisory
// double-booking warnings without touching storage. The event's own
// assignments never count against its crew.
func (s *HTTPServer) buildCrew(r *http.Request, event *models.Event, slots []crewSlotRequest) ([]*models.Assignment, []conflictWarning, error) {
	eventRange := event.Range()
	exclude := availability.NewExclusionSet(event.ID)

	assignments := make([]*models.Assignment, 0, len(slots))
	var warnings []conflictWarning

	for _, slot := range slots {
		if slot.PersonID <= 0 {
			return nil, nil, fmt.Errorf("crew person_id is required")
		}
		if !models.IsValidRole(slot.Role) {
			return nil, nil, fmt.Errorf("unknown crew role %q", slot.Role)
		}
		dayNumber := slot.DayNumber
		if dayNumber == 0 {
			dayNumber = 1
		}
		if dayNumber < 1 || dayNumber > eventRange.Days() {
			return nil, nil, fmt.Errorf("day_number %d outside the event's %d days", dayNumber, eventRange.Days())
		}

		person, err := s.db.GetPerson(r.Context(), event.FirmID, slot.PersonID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, nil, fmt.Errorf("person %d not found", slot.PersonID)
			}
			return nil, nil, fmt.Errorf("person lookup failed")
		}

		dayDate := eventRange.Start.AddDate(0, 0, dayNumber-1)
		day := models.NewDateRange(dayDate, dayDate)

		report := s.engine.ConflictDetails(r.Context(), event.FirmID, slot.PersonID, day, exclude)
		if report.HasConflict {
			warnings = append(warnings, conflictWarning{
				PersonID:  slot.PersonID,
				Role:      slot.Role,
				DayNumber: dayNumber,
				Conflicts: report.Conflicts,
			})
		}

		assignment := &models.Assignment{
			FirmID:    event.FirmID,
			EventID:   event.ID,
			Role:      slot.Role,
			DayNumber: dayNumber,
			DayDate:   dayDate,
		}
		kind := models.PersonKind(slot.Kind)
		if kind == "" {
			kind = person.Kind
		}
		if kind == models.KindFreelancer {
			assignment.FreelancerID = &slot.PersonID
		} else {
			assignment.StaffID = &slot.PersonID
		}
		assignments = append(assignments, assignment)
	}

	return assignments, warnings, nil
}

func (s *HTTPServer) publishAssignments(assignments []*models.Assignment) {
	if s.bus == nil {
		return
	}
	for _, a := range assignments {
		s.bus.Publish(events.TopicAssignmentCreated, a)
	}
}

// checkCompleteness compares the event's stored crew with a quotation's
// requirement. Reported only when a quotation with crew counts applies.
func (s *HTTPServer) checkCompleteness(r *http.Request, event *models.Event, quotationID int64) (*crew.Report, bool) {
	var quotation *models.Quotation
	var err error

	if quotationID > 0 {
		quotation, err = s.db.GetQuotation(r.Context(), event.FirmID, quotationID)
	} else {
		quotation, err = s.db.GetQuotationForEvent(r.Context(), event.FirmID, event.ID)
	}
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			s.log.Error().Err(err).Int64("event_id", event.ID).Msg("quotation lookup failed")
		}
		return nil, false
	}
	if len(quotation.Crew) == 0 {
		return nil, false
	}

	assignments, err := s.db.ListEventAssignments(r.Context(), event.FirmID, event.ID)
	if err != nil {
		s.log.Error().Err(err).Int64("event_id", event.ID).Msg("assignment lookup failed")
		return nil, false
	}

	report := crew.CheckCompleteness(event, quotation.Crew, assignments)
	return &report, true
}

// suggestFillIns proposes free people for any unfilled slots. Suggestion
// failures are logged, not surfaced; the save already succeeded.
func (s *HTTPServer) suggestFillIns(r *http.Request, event *models.Event, report *crew.Report) []crew.Suggestion {
	if s.suggester == nil || report.Complete {
		return nil
	}
	suggestions, err := s.suggester.SuggestFor(r.Context(), event, report.Gaps)
	if err != nil {
		s.log.Error().Err(err).Int64("event_id", event.ID).Msg("crew suggestion failed")
		return nil
	}
	return suggestions
}

func queryInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}
