package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studioflow/internal/models"
)

// UpsertSubscription creates or replaces the firm's subscription row.
func (db *DB) UpsertSubscription(ctx context.Context, s *models.Subscription) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO subscriptions (firm_id, plan, status, trial_ends_at, paid_until, grace_days, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(firm_id) DO UPDATE SET
			plan = excluded.plan,
			status = excluded.status,
			trial_ends_at = excluded.trial_ends_at,
			paid_until = excluded.paid_until,
			grace_days = excluded.grace_days,
			updated_at = CURRENT_TIMESTAMP`,
		s.FirmID, s.Plan, s.Status, s.TrialEndsAt, s.PaidUntil, s.GraceDays,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// GetSubscription returns the firm's subscription.
func (db *DB) GetSubscription(ctx context.Context, firmID int64) (*models.Subscription, error) {
	var s models.Subscription
	var paidUntil sql.NullTime
	err := db.QueryRowContext(ctx, `
		SELECT firm_id, plan, status, trial_ends_at, paid_until, grace_days, updated_at
		FROM subscriptions
		WHERE firm_id = ?`,
		firmID,
	).Scan(&s.FirmID, &s.Plan, &s.Status, &s.TrialEndsAt, &paidUntil, &s.GraceDays, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if paidUntil.Valid {
		t := paidUntil.Time
		s.PaidUntil = &t
	}
	return &s, nil
}

// UpdateSubscriptionStatus stores a newly computed status.
func (db *DB) UpdateSubscriptionStatus(ctx context.Context, firmID int64, status models.SubscriptionStatus) error {
	res, err := db.ExecContext(ctx, `
		UPDATE subscriptions SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE firm_id = ?`,
		status, firmID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// ExtendSubscription moves paid_until forward after a successful gateway
// payment. A nil stored paid_until extends from now.
func (db *DB) ExtendSubscription(ctx context.Context, firmID int64, days int) error {
	sub, err := db.GetSubscription(ctx, firmID)
	if err != nil {
		return err
	}

	base := time.Now()
	if sub.PaidUntil != nil && sub.PaidUntil.After(base) {
		base = *sub.PaidUntil
	}
	until := base.AddDate(0, 0, days)
	sub.PaidUntil = &until
	sub.Status = models.SubscriptionActive
	return db.UpsertSubscription(ctx, sub)
}

// ListSubscriptions returns every firm's subscription for the periodic
// status refresh job.
func (db *DB) ListSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT firm_id, plan, status, trial_ends_at, paid_until, grace_days, updated_at
		FROM subscriptions`)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var s models.Subscription
		var paidUntil sql.NullTime
		if err := rows.Scan(&s.FirmID, &s.Plan, &s.Status, &s.TrialEndsAt,
			&paidUntil, &s.GraceDays, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if paidUntil.Valid {
			t := paidUntil.Time
			s.PaidUntil = &t
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
