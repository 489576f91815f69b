package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"studioflow/internal/availability"
	"studioflow/internal/metrics"
	"studioflow/internal/models"
)

// availabilityRequest is the shared request body of the availability routes.
// person_id is used by check and conflicts; person_ids by filter.
type availabilityRequest struct {
	FirmID          int64   `json:"firm_id"`
	PersonID        int64   `json:"person_id,omitempty"`
	PersonIDs       []int64 `json:"person_ids,omitempty"`
	StartDate       string  `json:"start_date"` // Format: YYYY-MM-DD
	EndDate         string  `json:"end_date"`   // Format: YYYY-MM-DD
	ExcludeEventIDs []int64 `json:"exclude_event_ids,omitempty"`
}

// handleAvailabilityCheck reports whether one person is free in a window.
// POST /api/v1/availability/check
func (s *HTTPServer) handleAvailabilityCheck(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_check")

	req, window, ok := s.decodeAvailabilityRequest(w, r)
	if !ok {
		return
	}
	if req.PersonID <= 0 {
		writeError(w, http.StatusBadRequest, "person_id is required")
		return
	}

	exclude := availability.NewExclusionSet(req.ExcludeEventIDs...)
	available := s.engine.IsAvailable(r.Context(), req.FirmID, req.PersonID, window, exclude)

	writeJSON(w, http.StatusOK, map[string]any{
		"person_id": req.PersonID,
		"available": available,
	})
}

// handleAvailabilityFilter returns the subset of the given people free in a
// window, preserving input order.
// POST /api/v1/availability/filter
func (s *HTTPServer) handleAvailabilityFilter(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_filter")

	req, window, ok := s.decodeAvailabilityRequest(w, r)
	if !ok {
		return
	}
	if len(req.PersonIDs) == 0 {
		writeError(w, http.StatusBadRequest, "person_ids is required")
		return
	}

	people := make([]models.Person, 0, len(req.PersonIDs))
	for _, id := range req.PersonIDs {
		people = append(people, models.Person{ID: id, FirmID: req.FirmID})
	}

	exclude := availability.NewExclusionSet(req.ExcludeEventIDs...)
	free := s.engine.FilterAvailable(r.Context(), req.FirmID, people, window, exclude)

	ids := make([]int64, 0, len(free))
	for _, p := range free {
		ids = append(ids, p.ID)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"available_person_ids": ids,
	})
}

// handleAvailabilityConflicts returns the person's overlapping bookings.
// POST /api/v1/availability/conflicts
func (s *HTTPServer) handleAvailabilityConflicts(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_conflicts")

	req, window, ok := s.decodeAvailabilityRequest(w, r)
	if !ok {
		return
	}
	if req.PersonID <= 0 {
		writeError(w, http.StatusBadRequest, "person_id is required")
		return
	}

	exclude := availability.NewExclusionSet(req.ExcludeEventIDs...)
	report := s.engine.ConflictDetails(r.Context(), req.FirmID, req.PersonID, window, exclude)

	writeJSON(w, http.StatusOK, report)
}

// decodeAvailabilityRequest parses and validates the shared request shape.
// On failure it writes the error response and returns ok=false.
func (s *HTTPServer) decodeAvailabilityRequest(w http.ResponseWriter, r *http.Request) (availabilityRequest, models.DateRange, bool) {
	var req availabilityRequest

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return req, models.DateRange{}, false
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, models.DateRange{}, false
	}

	if req.FirmID <= 0 {
		writeError(w, http.StatusBadRequest, "firm_id is required")
		return req, models.DateRange{}, false
	}

	window, err := s.parseWindow(req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, models.DateRange{}, false
	}

	return req, window, true
}

// parseWindow validates a YYYY-MM-DD date pair and bounds its width.
func (s *HTTPServer) parseWindow(startStr, endStr string) (models.DateRange, error) {
	if startStr == "" || endStr == "" {
		return models.DateRange{}, fmt.Errorf("start_date and end_date are required")
	}

	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return models.DateRange{}, fmt.Errorf("invalid start_date format; expected YYYY-MM-DD")
	}

	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return models.DateRange{}, fmt.Errorf("invalid end_date format; expected YYYY-MM-DD")
	}

	if start.After(end) {
		return models.DateRange{}, fmt.Errorf("start_date must be before or equal to end_date")
	}

	if days := int(end.Sub(start).Hours() / 24); days > s.opts.MaxRangeDays {
		return models.DateRange{}, fmt.Errorf("date range exceeds maximum of %d days", s.opts.MaxRangeDays)
	}

	return models.NewDateRange(start, end), nil
}
