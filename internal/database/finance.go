package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"studioflow/internal/models"
)

// CreateQuotation inserts a quotation with its crew requirement rows in one
// transaction. A human-facing number is generated when absent.
func (db *DB) CreateQuotation(ctx context.Context, q *models.Quotation) error {
	if q.Number == "" {
		q.Number = "Q-" + uuid.NewString()[:8]
	}
	if q.Status == "" {
		q.Status = models.QuotationStatusDraft
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO quotations (firm_id, client_id, event_id, number, amount, status, valid_until)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.FirmID, q.ClientID, q.EventID, q.Number, q.Amount, q.Status, q.ValidUntil,
	)
	if err != nil {
		return fmt.Errorf("insert quotation: %w", err)
	}
	if q.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	for role, count := range q.Crew {
		if count <= 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO quotation_crew (quotation_id, role, required_count) VALUES (?, ?, ?)`,
			q.ID, role, count,
		); err != nil {
			return fmt.Errorf("insert quotation crew: %w", err)
		}
	}

	return tx.Commit()
}

// GetQuotation returns one quotation of the firm including its crew
// requirements.
func (db *DB) GetQuotation(ctx context.Context, firmID, quotationID int64) (*models.Quotation, error) {
	var q models.Quotation
	var eventID sql.NullInt64
	err := db.QueryRowContext(ctx, `
		SELECT id, firm_id, client_id, event_id, number, amount, status, valid_until, created_at
		FROM quotations
		WHERE firm_id = ? AND id = ?`,
		firmID, quotationID,
	).Scan(&q.ID, &q.FirmID, &q.ClientID, &eventID, &q.Number, &q.Amount, &q.Status, &q.ValidUntil, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if eventID.Valid {
		v := eventID.Int64
		q.EventID = &v
	}

	rows, err := db.QueryContext(ctx,
		`SELECT role, required_count FROM quotation_crew WHERE quotation_id = ?`, q.ID)
	if err != nil {
		return nil, fmt.Errorf("load quotation crew: %w", err)
	}
	defer rows.Close()

	q.Crew = make(models.CrewRequirement)
	for rows.Next() {
		var role models.Role
		var count int
		if err := rows.Scan(&role, &count); err != nil {
			return nil, err
		}
		q.Crew[role] = count
	}
	return &q, rows.Err()
}

// GetQuotationForEvent returns the accepted quotation bound to an event, or
// ErrNotFound when the event was booked without one.
func (db *DB) GetQuotationForEvent(ctx context.Context, firmID, eventID int64) (*models.Quotation, error) {
	var quotationID int64
	err := db.QueryRowContext(ctx, `
		SELECT id FROM quotations
		WHERE firm_id = ? AND event_id = ? AND status = ?
		ORDER BY id DESC LIMIT 1`,
		firmID, eventID, models.QuotationStatusAccepted,
	).Scan(&quotationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return db.GetQuotation(ctx, firmID, quotationID)
}

// CreateInvoice inserts an invoice, generating a number when absent.
func (db *DB) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	if inv.Number == "" {
		inv.Number = "INV-" + uuid.NewString()[:8]
	}
	if inv.Status == "" {
		inv.Status = models.InvoiceStatusIssued
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO invoices (firm_id, client_id, event_id, number, amount, due_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.FirmID, inv.ClientID, inv.EventID, inv.Number, inv.Amount, inv.DueDate, inv.Status,
	)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}

	inv.ID, err = res.LastInsertId()
	return err
}

// CreatePayment records money received.
func (db *DB) CreatePayment(ctx context.Context, p *models.Payment) error {
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now()
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO payments (firm_id, invoice_id, event_id, amount, method, reference, paid_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.FirmID, p.InvoiceID, p.EventID, p.Amount, p.Method, p.Reference, p.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	p.ID, err = res.LastInsertId()
	return err
}

// CreateExpense records money spent.
func (db *DB) CreateExpense(ctx context.Context, e *models.Expense) error {
	if e.SpentAt.IsZero() {
		e.SpentAt = time.Now()
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO expenses (firm_id, event_id, category, description, amount, spent_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.FirmID, e.EventID, e.Category, e.Description, e.Amount, e.SpentAt,
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	e.ID, err = res.LastInsertId()
	return err
}

// ListPayments returns the firm's payments within [from, to).
func (db *DB) ListPayments(ctx context.Context, firmID int64, from, to time.Time) ([]models.Payment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, firm_id, invoice_id, event_id, amount, method, reference, paid_at, created_at
		FROM payments
		WHERE firm_id = ? AND paid_at >= ? AND paid_at < ?
		ORDER BY paid_at, id`,
		firmID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var p models.Payment
		var invoiceID, eventID sql.NullInt64
		var reference sql.NullString
		if err := rows.Scan(&p.ID, &p.FirmID, &invoiceID, &eventID, &p.Amount,
			&p.Method, &reference, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		if invoiceID.Valid {
			v := invoiceID.Int64
			p.InvoiceID = &v
		}
		if eventID.Valid {
			v := eventID.Int64
			p.EventID = &v
		}
		p.Reference = reference.String
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ListExpenses returns the firm's expenses within [from, to).
func (db *DB) ListExpenses(ctx context.Context, firmID int64, from, to time.Time) ([]models.Expense, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, firm_id, event_id, category, description, amount, spent_at, created_at
		FROM expenses
		WHERE firm_id = ? AND spent_at >= ? AND spent_at < ?
		ORDER BY spent_at, id`,
		firmID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var e models.Expense
		var eventID sql.NullInt64
		var description sql.NullString
		if err := rows.Scan(&e.ID, &e.FirmID, &eventID, &e.Category, &description,
			&e.Amount, &e.SpentAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		if eventID.Valid {
			v := eventID.Int64
			e.EventID = &v
		}
		e.Description = description.String
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}
