// Package reports builds monthly finance workbooks for a firm: the events
// shot, the money that came in and the money that went out.
package reports

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"studioflow/internal/models"
)

// FinanceSource provides the firm-scoped rows a report is built from.
// *database.DB satisfies it.
type FinanceSource interface {
	ListEvents(ctx context.Context, firmID int64, from, to time.Time) ([]models.Event, error)
	ListPayments(ctx context.Context, firmID int64, from, to time.Time) ([]models.Payment, error)
	ListExpenses(ctx context.Context, firmID int64, from, to time.Time) ([]models.Expense, error)
}

// ExcelWriter writes data to Excel format.
type ExcelWriter interface {
	// AddSheet adds a new sheet with the given name.
	AddSheet(name string) error

	// WriteHeader writes column headers to current sheet.
	WriteHeader(columns []string) error

	// WriteRow writes a data row to current sheet.
	WriteRow(row []interface{}) error

	// Save renders the workbook to the writer and releases it. A writer is
	// good for one workbook.
	Save(w io.Writer) error
}

// GenerateFilename creates a filename like "finance_lens_and_light_January_2026.xlsx".
func GenerateFilename(firmName string, month time.Time) string {
	slug := strings.ToLower(firmName)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, slug)
	slug = strings.Trim(slug, "_")
	if slug == "" {
		slug = "firm"
	}
	return fmt.Sprintf("finance_%s_%s_%d.xlsx", slug, month.Month(), month.Year())
}
