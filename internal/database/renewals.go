package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"studioflow/internal/billing"
)

// SaveRenewalOrder records a gateway order snapshot, keyed by the gateway's
// order id. A later snapshot for the same order only moves the status.
func (db *DB) SaveRenewalOrder(ctx context.Context, o *billing.Order) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO renewal_orders (order_id, firm_id, plan, amount, status, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(order_id) DO UPDATE SET
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP`,
		o.ID, o.FirmID, o.Plan, o.Amount, o.Status,
	)
	if err != nil {
		return fmt.Errorf("save renewal order: %w", err)
	}
	return nil
}

// GetRenewalOrder returns the stored snapshot of a renewal order.
func (db *DB) GetRenewalOrder(ctx context.Context, orderID string) (*billing.Order, error) {
	var o billing.Order
	err := db.QueryRowContext(ctx, `
		SELECT order_id, firm_id, plan, amount, status, created_at
		FROM renewal_orders
		WHERE order_id = ?`,
		orderID,
	).Scan(&o.ID, &o.FirmID, &o.Plan, &o.Amount, &o.Status, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// MarkRenewalOrderPaid flips the order to paid exactly once. The conditional
// UPDATE makes a retried confirmation a no-op, so one payment can only extend
// the subscription once.
func (db *DB) MarkRenewalOrderPaid(ctx context.Context, orderID string) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE renewal_orders
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE order_id = ? AND status != ?`,
		billing.OrderStatusPaid, orderID, billing.OrderStatusPaid,
	)
	if err != nil {
		return false, fmt.Errorf("mark renewal order paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
