package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"studioflow/internal/billing"
	"studioflow/internal/database"
	"studioflow/internal/metrics"
)

// startRenewalRequest is the request body for POST /api/v1/subscriptions/renewals.
type startRenewalRequest struct {
	FirmID int64  `json:"firm_id"`
	Plan   string `json:"plan"`
}

// handleRenewals opens a gateway order for a subscription renewal.
// POST /api/v1/subscriptions/renewals
func (s *HTTPServer) handleRenewals(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("start_renewal")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	if s.renewals == nil {
		writeError(w, http.StatusServiceUnavailable, "payments are not enabled")
		return
	}

	var req startRenewalRequest
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
	if req.Plan == "" {
		writeError(w, http.StatusBadRequest, "plan is required")
		return
	}

	order, err := s.renewals.StartRenewal(r.Context(), req.FirmID, req.Plan)
	if errors.Is(err, billing.ErrUnknownPlan) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "subscription not found")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Int64("firm_id", req.FirmID).Msg("failed to start renewal")
		writeError(w, http.StatusBadGateway, "failed to start renewal")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"order": order})
}

// handleRenewalSubresource routes /api/v1/subscriptions/renewals/{order_id}/confirm.
func (s *HTTPServer) handleRenewalSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/subscriptions/renewals/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "confirm" || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	s.handleConfirmRenewal(w, r, parts[0])
}

// handleConfirmRenewal re-checks the order at the gateway and extends the
// subscription when it has been paid.
// POST /api/v1/subscriptions/renewals/{order_id}/confirm
func (s *HTTPServer) handleConfirmRenewal(w http.ResponseWriter, r *http.Request, orderID string) {
	metrics.IncHTTP("confirm_renewal")

	if s.renewals == nil {
		writeError(w, http.StatusServiceUnavailable, "payments are not enabled")
		return
	}

	order, err := s.renewals.ConfirmRenewal(r.Context(), orderID)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "renewal order not found")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("order_id", orderID).Msg("failed to confirm renewal")
		writeError(w, http.StatusBadGateway, "failed to confirm renewal")
		return
	}

	resp := map[string]any{"order": order}
	if sub, err := s.db.GetSubscription(r.Context(), order.FirmID); err == nil {
		resp["subscription"] = sub
	}
	writeJSON(w, http.StatusOK, resp)
}
