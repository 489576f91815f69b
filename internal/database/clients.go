package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"studioflow/internal/models"
)

// CreateClient inserts a client record.
func (db *DB) CreateClient(ctx context.Context, c *models.Client) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO clients (firm_id, name, phone, email, address)
		VALUES (?, ?, ?, ?, ?)`,
		c.FirmID, c.Name, c.Phone, c.Email, c.Address,
	)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}

	c.ID, err = res.LastInsertId()
	return err
}

// GetClient returns one client of the firm.
func (db *DB) GetClient(ctx context.Context, firmID, clientID int64) (*models.Client, error) {
	var c models.Client
	err := db.QueryRowContext(ctx, `
		SELECT id, firm_id, name, phone, email, address, created_at, updated_at
		FROM clients
		WHERE firm_id = ? AND id = ?`,
		firmID, clientID,
	).Scan(&c.ID, &c.FirmID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListClients returns all clients of the firm.
func (db *DB) ListClients(ctx context.Context, firmID int64) ([]models.Client, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, firm_id, name, phone, email, address, created_at, updated_at
		FROM clients
		WHERE firm_id = ?
		ORDER BY name, id`,
		firmID,
	)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.FirmID, &c.Name, &c.Phone, &c.Email, &c.Address,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// CreateFirm inserts a tenant record.
func (db *DB) CreateFirm(ctx context.Context, f *models.Firm) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO firms (name, phone, email) VALUES (?, ?, ?)`,
		f.Name, f.Phone, f.Email,
	)
	if err != nil {
		return fmt.Errorf("insert firm: %w", err)
	}

	f.ID, err = res.LastInsertId()
	return err
}

// GetFirm fetches a tenant by id.
func (db *DB) GetFirm(ctx context.Context, firmID int64) (*models.Firm, error) {
	var f models.Firm
	err := db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, created_at FROM firms WHERE id = ?`, firmID,
	).Scan(&f.ID, &f.Name, &f.Phone, &f.Email, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}
