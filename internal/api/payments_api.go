package api

import (
	"encoding/json"
	"net/http"
	"time"

	"studioflow/internal/events"
	"studioflow/internal/metrics"
	"studioflow/internal/models"
)

// createPaymentRequest is the request body for POST /api/v1/payments.
type createPaymentRequest struct {
	FirmID    int64   `json:"firm_id"`
	InvoiceID *int64  `json:"invoice_id,omitempty"`
	EventID   *int64  `json:"event_id,omitempty"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"` // cash, bank_transfer, gateway
	Reference string  `json:"reference,omitempty"`
	PaidAt    string  `json:"paid_at,omitempty"` // Format: YYYY-MM-DD, defaults to today
}

// handlePayments records money received against an invoice or event.
// POST /api/v1/payments
func (s *HTTPServer) handlePayments(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_payment")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req createPaymentRequest
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
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, "method is required")
		return
	}

	payment := &models.Payment{
		FirmID:    req.FirmID,
		InvoiceID: req.InvoiceID,
		EventID:   req.EventID,
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
	}
	if req.PaidAt != "" {
		paidAt, err := time.Parse("2006-01-02", req.PaidAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid paid_at format; expected YYYY-MM-DD")
			return
		}
		payment.PaidAt = paidAt
	}

	if err := s.db.CreatePayment(r.Context(), payment); err != nil {
		s.log.Error().Err(err).Int64("firm_id", req.FirmID).Msg("failed to record payment")
		writeError(w, http.StatusInternalServerError, "failed to record payment")
		return
	}
	metrics.IncPaymentRecorded()

	if s.bus != nil {
		s.bus.Publish(events.TopicPaymentRecorded, payment)
	}

	s.log.Info().
		Int64("firm_id", payment.FirmID).
		Int64("payment_id", payment.ID).
		Float64("amount", payment.Amount).
		Msg("payment recorded")

	writeJSON(w, http.StatusCreated, map[string]any{"payment": payment})
}
