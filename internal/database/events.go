package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studioflow/internal/models"
)

// ErrNotFound is returned when a row does not exist for the firm.
var ErrNotFound = errors.New("not found")

// CreateEvent inserts an event and fills in its id.
func (db *DB) CreateEvent(ctx context.Context, e *models.Event) error {
	if e.TotalDays < 1 {
		e.TotalDays = 1
	}
	if e.Status == "" {
		e.Status = models.EventStatusDraft
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO events (firm_id, client_id, title, event_type, venue, start_date, end_date, total_days, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.FirmID, e.ClientID, e.Title, e.EventType, e.Venue,
		models.Day(e.StartDate), nullableDay(e.EndDate), e.TotalDays, e.Status,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	e.ID, err = res.LastInsertId()
	return err
}

// GetEvent returns one event of the firm.
func (db *DB) GetEvent(ctx context.Context, firmID, eventID int64) (*models.Event, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, firm_id, client_id, title, event_type, venue, start_date, end_date, total_days, status, created_at, updated_at
		FROM events
		WHERE firm_id = ? AND id = ?`,
		firmID, eventID,
	)
	return scanEvent(row)
}

// ListEvents returns the firm's events whose derived range may touch the
// window. The SQL filter is a coarse cut on start_date; exact range
// arithmetic happens in Go because end_date may be NULL.
func (db *DB) ListEvents(ctx context.Context, firmID int64, from, to time.Time) ([]models.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, firm_id, client_id, title, event_type, venue, start_date, end_date, total_days, status, created_at, updated_at
		FROM events
		WHERE firm_id = ? AND start_date <= ?
		ORDER BY start_date, id`,
		firmID, models.Day(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	window := models.NewDateRange(from, to)
	var events []models.Event
	for rows.Next() {
		e, err := scanEventRows(rows)
		if err != nil {
			return nil, err
		}
		if e.Range().Overlaps(window) {
			events = append(events, *e)
		}
	}
	return events, rows.Err()
}

// UpdateEventStatus updates the status of a firm's event.
func (db *DB) UpdateEventStatus(ctx context.Context, firmID, eventID int64, status string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE events SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE firm_id = ? AND id = ?`,
		status, firmID, eventID,
	)
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// DeleteEvent removes an event and its assignments.
func (db *DB) DeleteEvent(ctx context.Context, firmID, eventID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM assignments WHERE firm_id = ? AND event_id = ?`, firmID, eventID); err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM events WHERE firm_id = ? AND id = ?`, firmID, eventID); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return tx.Commit()
}

// GetEventTitle returns the title of a firm's event, or "" when the event
// does not exist. Absence is not an error for availability display.
func (db *DB) GetEventTitle(ctx context.Context, firmID, eventID int64) (string, error) {
	var title string
	err := db.QueryRowContext(ctx,
		`SELECT title FROM events WHERE firm_id = ? AND id = ?`,
		firmID, eventID,
	).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return title, err
}

func nullableDay(t *time.Time) any {
	if t == nil {
		return nil
	}
	return models.Day(*t)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row *sql.Row) (*models.Event, error) {
	e, err := scanEventRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func scanEventRows(row rowScanner) (*models.Event, error) {
	var e models.Event
	var endDate sql.NullTime
	var eventType, venue sql.NullString
	err := row.Scan(
		&e.ID, &e.FirmID, &e.ClientID, &e.Title, &eventType, &venue,
		&e.StartDate, &endDate, &e.TotalDays, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.EventType = eventType.String
	e.Venue = venue.String
	if endDate.Valid {
		t := endDate.Time
		e.EndDate = &t
	}
	return &e, nil
}
