package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"studioflow/internal/availability"
	"studioflow/internal/models"
)

// CreateAssignment inserts one role-slot binding after checking the
// person-reference invariant.
func (db *DB) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.DayNumber < 1 {
		a.DayNumber = 1
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO assignments (firm_id, event_id, staff_id, freelancer_id, role, day_number, day_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.FirmID, a.EventID, a.StaffID, a.FreelancerID, a.Role, a.DayNumber, models.Day(a.DayDate),
	)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}

	a.ID, err = res.LastInsertId()
	return err
}

// ListEventAssignments returns all assignments of one event.
func (db *DB) ListEventAssignments(ctx context.Context, firmID, eventID int64) ([]models.Assignment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, firm_id, event_id, staff_id, freelancer_id, role, day_number, day_date, created_at
		FROM assignments
		WHERE firm_id = ? AND event_id = ?
		ORDER BY day_number, id`,
		firmID, eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list event assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.Assignment
	for rows.Next() {
		var a models.Assignment
		var staffID, freelancerID sql.NullInt64
		if err := rows.Scan(&a.ID, &a.FirmID, &a.EventID, &staffID, &freelancerID,
			&a.Role, &a.DayNumber, &a.DayDate, &a.CreatedAt); err != nil {
			return nil, err
		}
		if staffID.Valid {
			v := staffID.Int64
			a.StaffID = &v
		}
		if freelancerID.Valid {
			v := freelancerID.Int64
			a.FreelancerID = &v
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// ListAssignmentsWithEvents returns every assignment of the firm joined
// with its parent event's date fields, skipping excluded events and
// cancelled events (a cancelled booking frees its crew). Implements
// availability.AssignmentSource.
func (db *DB) ListAssignmentsWithEvents(ctx context.Context, firmID int64, exclude availability.ExclusionSet) ([]models.AssignmentWithEvent, error) {
	query := `
		SELECT a.id, a.firm_id, a.event_id, a.staff_id, a.freelancer_id, a.role, a.day_number, a.day_date, a.created_at,
		       e.title, e.start_date, e.end_date, e.total_days
		FROM assignments a
		JOIN events e ON e.id = a.event_id AND e.firm_id = a.firm_id
		WHERE a.firm_id = ? AND e.status != ?`
	args := []any{firmID, models.EventStatusCancelled}

	if len(exclude) > 0 {
		placeholders := make([]string, 0, len(exclude))
		for eventID := range exclude {
			placeholders = append(placeholders, "?")
			args = append(args, eventID)
		}
		query += fmt.Sprintf(" AND a.event_id NOT IN (%s)", strings.Join(placeholders, ", "))
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments with events: %w", err)
	}
	defer rows.Close()

	var result []models.AssignmentWithEvent
	for rows.Next() {
		var a models.AssignmentWithEvent
		var staffID, freelancerID sql.NullInt64
		var endDate sql.NullTime
		if err := rows.Scan(
			&a.ID, &a.FirmID, &a.EventID, &staffID, &freelancerID, &a.Role, &a.DayNumber, &a.DayDate, &a.CreatedAt,
			&a.EventTitle, &a.EventStartDate, &endDate, &a.EventTotalDays,
		); err != nil {
			return nil, err
		}
		if staffID.Valid {
			v := staffID.Int64
			a.StaffID = &v
		}
		if freelancerID.Valid {
			v := freelancerID.Int64
			a.FreelancerID = &v
		}
		if endDate.Valid {
			t := endDate.Time
			a.EventEndDate = &t
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// ReplaceEventAssignments swaps the event's crew for the given set in one
// transaction. A failed request rolls back, so the stored crew is always
// either the old set or the new set, never a mix.
func (db *DB) ReplaceEventAssignments(ctx context.Context, firmID, eventID int64, assignments []*models.Assignment) error {
	for _, a := range assignments {
		if err := a.Validate(); err != nil {
			return err
		}
		if a.DayNumber < 1 {
			a.DayNumber = 1
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM assignments WHERE firm_id = ? AND event_id = ?`,
		firmID, eventID,
	); err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}

	for _, a := range assignments {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO assignments (firm_id, event_id, staff_id, freelancer_id, role, day_number, day_date)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			firmID, eventID, a.StaffID, a.FreelancerID, a.Role, a.DayNumber, models.Day(a.DayDate),
		)
		if err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
		if a.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteEventAssignments removes all assignments of one event, used when a
// crew is re-submitted on edit.
func (db *DB) DeleteEventAssignments(ctx context.Context, firmID, eventID int64) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM assignments WHERE firm_id = ? AND event_id = ?`,
		firmID, eventID,
	)
	return err
}
