package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"studioflow/internal/models"
)

// CreatePerson inserts a staff member or freelancer.
func (db *DB) CreatePerson(ctx context.Context, p *models.Person) error {
	if p.Kind == "" {
		p.Kind = models.KindStaff
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO people (firm_id, name, kind, role, phone, is_active)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.FirmID, p.Name, p.Kind, p.Role, p.Phone, p.IsActive,
	)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}

	p.ID, err = res.LastInsertId()
	return err
}

// GetPerson returns one person of the firm.
func (db *DB) GetPerson(ctx context.Context, firmID, personID int64) (*models.Person, error) {
	var p models.Person
	err := db.QueryRowContext(ctx, `
		SELECT id, firm_id, name, kind, role, phone, is_active, created_at, updated_at
		FROM people
		WHERE firm_id = ? AND id = ?`,
		firmID, personID,
	).Scan(&p.ID, &p.FirmID, &p.Name, &p.Kind, &p.Role, &p.Phone, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActivePeople returns the firm's active people, optionally narrowed to
// one role (empty role means all). Order is stable for UI dropdowns.
func (db *DB) ListActivePeople(ctx context.Context, firmID int64, role models.Role) ([]models.Person, error) {
	query := `
		SELECT id, firm_id, name, kind, role, phone, is_active, created_at, updated_at
		FROM people
		WHERE firm_id = ? AND is_active = 1`
	args := []any{firmID}
	if role != "" {
		query += ` AND role = ?`
		args = append(args, role)
	}
	// kind DESC puts staff before freelancers.
	query += ` ORDER BY kind DESC, name, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	var people []models.Person
	for rows.Next() {
		var p models.Person
		if err := rows.Scan(&p.ID, &p.FirmID, &p.Name, &p.Kind, &p.Role, &p.Phone,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// DeactivatePerson hides a person from candidate lists without losing
// assignment history.
func (db *DB) DeactivatePerson(ctx context.Context, firmID, personID int64) error {
	res, err := db.ExecContext(ctx, `
		UPDATE people SET is_active = 0, updated_at = CURRENT_TIMESTAMP
		WHERE firm_id = ? AND id = ?`,
		firmID, personID,
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
