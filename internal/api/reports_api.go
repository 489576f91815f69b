package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"studioflow/internal/database"
	"studioflow/internal/metrics"
)

// handleFinanceReport streams the monthly finance workbook.
// GET /api/v1/reports/finance?firm_id=&month=YYYY-MM
func (s *HTTPServer) handleFinanceReport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("finance_report")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	firmID, err := queryInt64(r, "firm_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rawMonth := r.URL.Query().Get("month")
	if rawMonth == "" {
		writeError(w, http.StatusBadRequest, "month is required")
		return
	}
	month, err := time.Parse("2006-01", rawMonth)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month format; expected YYYY-MM")
		return
	}

	firm, err := s.db.GetFirm(r.Context(), firmID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "firm not found")
			return
		}
		s.log.Error().Err(err).Int64("firm_id", firmID).Msg("firm lookup failed")
		writeError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}

	report, err := s.reports.MonthlyFinance(r.Context(), firmID, firm.Name, month)
	if err != nil {
		s.log.Error().Err(err).
			Int64("firm_id", firmID).
			Str("month", rawMonth).
			Msg("failed to generate finance report")
		writeError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", report.Data.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := report.Data.WriteTo(w); err != nil {
		s.log.Error().Err(err).Msg("failed to stream finance report")
	}
}
