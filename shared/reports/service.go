package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Generator builds finance workbooks firm by firm.
type Generator struct {
	source FinanceSource
	writer func() ExcelWriter // factory, one workbook per report
	logger zerolog.Logger
}

// NewGenerator creates a report generator.
func NewGenerator(source FinanceSource, writerFactory func() ExcelWriter, logger zerolog.Logger) *Generator {
	return &Generator{
		source: source,
		writer: writerFactory,
		logger: logger.With().Str("component", "reports").Logger(),
	}
}

// Report is a rendered workbook ready to stream to the caller.
type Report struct {
	Filename string
	Data     bytes.Buffer
}

// MonthlyFinance renders one firm's finance workbook for the calendar month
// containing the given date: an Events sheet, a Payments sheet, an Expenses
// sheet and a Summary sheet with the totals.
func (g *Generator) MonthlyFinance(ctx context.Context, firmID int64, firmName string, month time.Time) (*Report, error) {
	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	excel := g.writer()
	if excel == nil {
		return nil, fmt.Errorf("failed to create excel writer")
	}

	if err := g.writeEvents(ctx, excel, firmID, from, to); err != nil {
		return nil, err
	}

	income, err := g.writePayments(ctx, excel, firmID, from, to)
	if err != nil {
		return nil, err
	}

	spent, err := g.writeExpenses(ctx, excel, firmID, from, to)
	if err != nil {
		return nil, err
	}

	if err := writeSummary(excel, from, income, spent); err != nil {
		return nil, err
	}

	report := &Report{Filename: GenerateFilename(firmName, from)}
	if err := excel.Save(&report.Data); err != nil {
		return nil, fmt.Errorf("save excel: %w", err)
	}

	g.logger.Info().
		Int64("firm_id", firmID).
		Str("filename", report.Filename).
		Float64("income", income).
		Float64("expenses", spent).
		Msg("Finance report generated")

	return report, nil
}

func (g *Generator) writeEvents(ctx context.Context, excel ExcelWriter, firmID int64, from, to time.Time) error {
	events, err := g.source.ListEvents(ctx, firmID, from, to.AddDate(0, 0, -1))
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	if err := excel.AddSheet("Events"); err != nil {
		return err
	}
	if err := excel.WriteHeader([]string{"ID", "Title", "Type", "Venue", "Start", "Days", "Status"}); err != nil {
		return err
	}
	for i := range events {
		e := &events[i]
		row := []interface{}{
			e.ID, e.Title, e.EventType, e.Venue,
			e.StartDate.Format("2006-01-02"), e.Range().Days(), e.Status,
		}
		if err := excel.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) writePayments(ctx context.Context, excel ExcelWriter, firmID int64, from, to time.Time) (float64, error) {
	payments, err := g.source.ListPayments(ctx, firmID, from, to)
	if err != nil {
		return 0, fmt.Errorf("list payments: %w", err)
	}

	if err := excel.AddSheet("Payments"); err != nil {
		return 0, err
	}
	if err := excel.WriteHeader([]string{"Date", "Amount", "Method", "Reference", "Invoice", "Event"}); err != nil {
		return 0, err
	}

	var total float64
	for i := range payments {
		p := &payments[i]
		total += p.Amount
		row := []interface{}{
			p.PaidAt.Format("2006-01-02"), p.Amount, p.Method, p.Reference,
			int64OrBlank(p.InvoiceID), int64OrBlank(p.EventID),
		}
		if err := excel.WriteRow(row); err != nil {
			return 0, err
		}
	}
	return total, nil
}

func (g *Generator) writeExpenses(ctx context.Context, excel ExcelWriter, firmID int64, from, to time.Time) (float64, error) {
	expenses, err := g.source.ListExpenses(ctx, firmID, from, to)
	if err != nil {
		return 0, fmt.Errorf("list expenses: %w", err)
	}

	if err := excel.AddSheet("Expenses"); err != nil {
		return 0, err
	}
	if err := excel.WriteHeader([]string{"Date", "Category", "Description", "Amount", "Event"}); err != nil {
		return 0, err
	}

	var total float64
	for i := range expenses {
		e := &expenses[i]
		total += e.Amount
		row := []interface{}{
			e.SpentAt.Format("2006-01-02"), e.Category, e.Description, e.Amount,
			int64OrBlank(e.EventID),
		}
		if err := excel.WriteRow(row); err != nil {
			return 0, err
		}
	}
	return total, nil
}

func writeSummary(excel ExcelWriter, month time.Time, income, spent float64) error {
	if err := excel.AddSheet("Summary"); err != nil {
		return err
	}
	if err := excel.WriteHeader([]string{"Month", "Income", "Expenses", "Net"}); err != nil {
		return err
	}
	return excel.WriteRow([]interface{}{
		month.Format("January 2006"), income, spent, income - spent,
	})
}

func int64OrBlank(v *int64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
