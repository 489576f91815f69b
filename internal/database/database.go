// Package database is the SQLite storage layer. Every query method that
// touches tenant data takes the firm id as its first parameter and the
// adapter appends the firm filter itself, so call sites cannot forget it.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps the database connection.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

// NewDB initializes a new database connection and creates tables if they
// don't exist.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL mode and a busy timeout keep concurrent readers cheap.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}

	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS firms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			phone TEXT,
			email TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS clients (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			firm_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			phone TEXT,
			email TEXT,
			address TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (firm_id) REFERENCES firms(id)
		)`,

		// Staff and freelancers live in one table with a kind tag so the
		// same person id means the same person in either category.
		`CREATE TABLE IF NOT EXISTS people (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			firm_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL DEFAULT 'staff',
			role TEXT NOT NULL,
			phone TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (firm_id) REFERENCES firms(id)
		)`,

		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			firm_id INTEGER NOT NULL,
			client_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			event_type TEXT,
			venue TEXT,
			start_date DATETIME NOT NULL,
			end_date DATETIME,
			total_days INTEGER NOT NULL DEFAULT 1,
			status TEXT NOT NULL DEFAULT 'draft',
			reminder_queued BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (firm_id) REFERENCES firms(id),
			FOREIGN KEY (client_id) REFERENCES clients(id)
		)`,

		`CREATE TABLE IF NOT EXISTS assignments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			firm_id INTEGER NOT NULL,
			event_id INTEGER NOT NULL,
			staff_id INTEGER,
			freelancer_id INTEGER,
			role TEXT NOT NULL,
			day_number INTEGER NOT NULL DEFAULT 1,
			day_date DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (firm_id) REFERENCES firms(id),
			FOREIGN KEY (event_id) REFERENCES events(id),
			FOREIGN KEY (staff_id) REFERENCES people(id),
			FOREIGN KEY (freelancer_id) REFERENCES people(id),
			CHECK ((staff_id IS NULL) != (freelancer_id IS NULL))
		)`,

		`CREATE TABLE IF NOT EXISTS quotations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			firm_id INTEGER NOT NULL,
			client_id INTEGER NOT NULL,
			event_id INTEGER,
			number TEXT NOT NULL UNIQUE,
			amount REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'draft',
			valid_until DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (firm_id) REFERENCES firms(id),
			FOREIGN KEY (client_id) REFERENCES clients(id)
		)`,

		`CREATE TABLE IF NOT EXISTS quotation_crew (
			quotation_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			required_count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (quotation_id, role),
			FOREIGN KEY (quotation_id) REFERENCES quotations(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS invoices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			firm_id INTEGER NOT NULL,
			client_id INTEGER NOT NULL,
			event_id INTEGER NOT NULL,
			number TEXT NOT NULL UNIQUE,
			amount REAL NOT NULL DEFAULT 0,
			due_date DATETIME,
			status TEXT NOT NULL DEFAULT 'draft',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (firm_id) REFERENCES firms(id)
		)`,

		`CREATE TABLE IF NOT EXISTS payments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			firm_id INTEGER NOT NULL,
			invoice_id INTEGER,
			event_id INTEGER,
			amount REAL NOT NULL,
			method TEXT NOT NULL DEFAULT 'cash',
			reference TEXT,
			paid_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (firm_id) REFERENCES firms(id)
		)`,

		`CREATE TABLE IF NOT EXISTS expenses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			firm_id INTEGER NOT NULL,
			event_id INTEGER,
			category TEXT NOT NULL,
			description TEXT,
			amount REAL NOT NULL,
			spent_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (firm_id) REFERENCES firms(id)
		)`,

		`CREATE TABLE IF NOT EXISTS subscriptions (
			firm_id INTEGER PRIMARY KEY,
			plan TEXT NOT NULL DEFAULT 'standard',
			status TEXT NOT NULL DEFAULT 'trialing',
			trial_ends_at DATETIME NOT NULL,
			paid_until DATETIME,
			grace_days INTEGER NOT NULL DEFAULT 7,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (firm_id) REFERENCES firms(id)
		)`,

		`CREATE TABLE IF NOT EXISTS renewal_orders (
			order_id TEXT PRIMARY KEY,
			firm_id INTEGER NOT NULL,
			plan TEXT NOT NULL,
			amount REAL NOT NULL,
			status TEXT NOT NULL DEFAULT 'created',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (firm_id) REFERENCES firms(id)
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			firm_id INTEGER NOT NULL,
			recipient_phone TEXT NOT NULL,
			person_id INTEGER,
			event_id INTEGER,
			kind TEXT NOT NULL,
			body TEXT NOT NULL,
			scheduled_at DATETIME NOT NULL,
			sent_at DATETIME,
			status TEXT NOT NULL DEFAULT 'pending',
			retry_count INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (firm_id) REFERENCES firms(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_clients_firm ON clients(firm_id)`,
		`CREATE INDEX IF NOT EXISTS idx_people_firm ON people(firm_id, is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_events_firm_date ON events(firm_id, start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_events_status ON events(status)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_firm ON assignments(firm_id)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_event ON assignments(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_staff ON assignments(staff_id)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_freelancer ON assignments(freelancer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_quotations_firm ON quotations(firm_id)`,
		`CREATE INDEX IF NOT EXISTS idx_invoices_firm ON invoices(firm_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_firm_date ON payments(firm_id, paid_at)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_firm_date ON expenses(firm_id, spent_at)`,
		`CREATE INDEX IF NOT EXISTS idx_renewal_orders_firm ON renewal_orders(firm_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications(status, scheduled_at)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_firm ON notifications(firm_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}

	return db.ensureNewColumns()
}

// ensureNewColumns adds new columns to existing tables if they don't exist.
func (db *DB) ensureNewColumns() error {
	migrations := []string{
		`ALTER TABLE events ADD COLUMN venue TEXT`,
		`ALTER TABLE people ADD COLUMN kind TEXT NOT NULL DEFAULT 'staff'`,
		`ALTER TABLE events ADD COLUMN reminder_queued BOOLEAN NOT NULL DEFAULT 0`,
		`ALTER TABLE notifications ADD COLUMN retry_count INTEGER NOT NULL DEFAULT 0`,
	}

	for _, m := range migrations {
		_, err := db.Exec(m)
		if err != nil && !strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
			// Log but don't fail - column might already exist
			if db.logger != nil {
				db.logger.Debug().Err(err).Str("migration", m).Msg("Migration skipped")
			}
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
