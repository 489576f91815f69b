package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"studioflow/shared/notify"
)

// CreateNotification enqueues an outbound notification. A row with the same
// (firm, event, person, kind) tuple already in the queue makes this a no-op.
// Payment receipts are exempt: each installment gets its own receipt.
func (db *DB) CreateNotification(ctx context.Context, n *notify.Notification) error {
	if n.Kind != notify.KindPaymentReceipt {
		var exists int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM notifications
			 WHERE firm_id = ?
			   AND (event_id IS ? OR event_id = ?)
			   AND (person_id IS ? OR person_id = ?)
			   AND kind = ?`,
			n.FirmID, n.EventID, n.EventID, n.PersonID, n.PersonID, n.Kind,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check for duplicate notification: %w", err)
		}
		if exists > 0 {
			return nil
		}
	}

	if n.Status == "" {
		n.Status = notify.StatusPending
	}
	if n.ScheduledAt.IsZero() {
		n.ScheduledAt = time.Now()
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO notifications
		 (firm_id, recipient_phone, person_id, event_id, kind, body, scheduled_at, status, retry_count, last_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.FirmID, n.Recipient, n.PersonID, n.EventID, n.Kind, n.Body,
		n.ScheduledAt, n.Status, n.RetryCount, n.LastError,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	n.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get notification id: %w", err)
	}
	return nil
}

// UpdateNotification persists the mutable fields of an acquired notification.
func (db *DB) UpdateNotification(ctx context.Context, n *notify.Notification) error {
	_, err := db.ExecContext(ctx,
		`UPDATE notifications
		 SET status = ?, sent_at = ?, retry_count = ?, last_error = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		n.Status, n.SentAt, n.RetryCount, n.LastError, n.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update notification %d: %w", n.ID, err)
	}
	return nil
}

// FindNotifications returns queue rows matching the filter, oldest first.
func (db *DB) FindNotifications(ctx context.Context, filter notify.Filter) ([]notify.Notification, error) {
	query := `SELECT id, firm_id, recipient_phone, person_id, event_id, kind, body,
	                 scheduled_at, sent_at, status, retry_count, last_error, created_at, updated_at
	          FROM notifications`

	where, args := notificationFilterClauses(filter)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY scheduled_at ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer rows.Close()

	var notifications []notify.Notification
	for rows.Next() {
		var n notify.Notification
		var lastError sql.NullString
		if err := rows.Scan(
			&n.ID, &n.FirmID, &n.Recipient, &n.PersonID, &n.EventID, &n.Kind, &n.Body,
			&n.ScheduledAt, &n.SentAt, &n.Status, &n.RetryCount, &lastError,
			&n.CreatedAt, &n.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.LastError = lastError.String
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// TryAcquireNotification flips a pending row to processing. The conditional
// UPDATE makes the acquire atomic, so two dispatch workers never pick up the
// same row.
func (db *DB) TryAcquireNotification(ctx context.Context, id int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE notifications
		 SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		notify.StatusProcessing, id, notify.StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("failed to acquire notification %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// ResetStaleNotifications flips processing rows last touched before the
// cutoff back to pending so a crashed send does not strand them forever.
func (db *DB) ResetStaleNotifications(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE notifications
		 SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE status = ? AND updated_at < ?`,
		notify.StatusPending, notify.StatusProcessing, cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset stale notifications: %w", err)
	}
	return result.RowsAffected()
}

// DeleteNotifications removes rows matching the filter and reports how many.
func (db *DB) DeleteNotifications(ctx context.Context, filter notify.Filter) (int64, error) {
	where, args := notificationFilterClauses(filter)
	if len(where) == 0 {
		return 0, fmt.Errorf("refusing to delete notifications without a filter")
	}

	query := "DELETE FROM notifications WHERE " + strings.Join(where, " AND ")
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return result.RowsAffected()
}

// CountPendingNotifications returns the current queue depth.
func (db *DB) CountPendingNotifications(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE status = ?`,
		notify.StatusPending,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending notifications: %w", err)
	}
	return count, nil
}

func notificationFilterClauses(filter notify.Filter) ([]string, []interface{}) {
	var where []string
	var args []interface{}

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			placeholders[i] = "?"
			args = append(args, s)
		}
		where = append(where, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ScheduledBefore != nil {
		where = append(where, "scheduled_at <= ?")
		args = append(args, *filter.ScheduledBefore)
	}
	if filter.SentBefore != nil {
		// Applies to sent rows only; failed rows are aged by updated_at below.
		where = append(where, "(status != 'sent' OR sent_at < ?)")
		args = append(args, *filter.SentBefore)
	}
	if filter.FailedBefore != nil {
		where = append(where, "(status != 'failed' OR updated_at < ?)")
		args = append(args, *filter.FailedBefore)
	}
	if filter.FirmID != nil {
		where = append(where, "firm_id = ?")
		args = append(args, *filter.FirmID)
	}
	if filter.EventID != nil {
		where = append(where, "event_id = ?")
		args = append(args, *filter.EventID)
	}
	if filter.Kind != nil {
		where = append(where, "kind = ?")
		args = append(args, *filter.Kind)
	}

	return where, args
}

// GetUpcomingEvents returns confirmed events starting within the window whose
// client reminder has not been queued yet.
func (db *DB) GetUpcomingEvents(ctx context.Context, within time.Duration) ([]notify.UpcomingEvent, error) {
	cutoff := time.Now().UTC().Add(within)

	rows, err := db.QueryContext(ctx,
		`SELECT e.id, e.firm_id, e.title, COALESCE(e.venue, ''), e.start_date,
		        c.name, COALESCE(c.phone, '')
		 FROM events e
		 JOIN clients c ON c.id = e.client_id AND c.firm_id = e.firm_id
		 WHERE e.status = 'confirmed'
		   AND e.reminder_queued = 0
		   AND e.start_date > CURRENT_TIMESTAMP
		   AND e.start_date <= ?
		 ORDER BY e.start_date ASC`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming events: %w", err)
	}
	defer rows.Close()

	var events []notify.UpcomingEvent
	for rows.Next() {
		var e notify.UpcomingEvent
		if err := rows.Scan(&e.EventID, &e.FirmID, &e.Title, &e.Venue, &e.StartDate, &e.ClientName, &e.ClientPhone); err != nil {
			return nil, fmt.Errorf("failed to scan upcoming event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// MarkReminderQueued records that the reminder for an event has been queued.
func (db *DB) MarkReminderQueued(ctx context.Context, eventID int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE events SET reminder_queued = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark reminder queued for event %d: %w", eventID, err)
	}
	return nil
}
