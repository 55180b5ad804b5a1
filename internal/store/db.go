package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps sql.DB over an embedded SQLite database file.
type DB struct {
	Client *sql.DB
}

// Open creates or opens the database file and applies the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	// modernc sqlite allows one writer; a single connection avoids SQLITE_BUSY
	// under concurrent handlers while reads stay serialized by database/sql.
	db.SetMaxOpenConns(1)

	d := &DB{Client: db}
	if err := d.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return d, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			organizer TEXT NOT NULL,
			start_time DATETIME DEFAULT CURRENT_TIMESTAMP,
			end_time DATETIME,
			is_active BOOLEAN DEFAULT 1,
			CHECK(LENGTH(name) > 0 AND LENGTH(name) <= 255)
		)`,
		`CREATE TABLE IF NOT EXISTS attendance (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			rfid_uid TEXT NOT NULL,
			student_name TEXT,
			event_id INTEGER,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(event_id) REFERENCES events(id),
			CHECK(LENGTH(rfid_uid) > 0 AND LENGTH(rfid_uid) <= 50)
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			full_name TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			CHECK(LENGTH(username) > 0 AND LENGTH(username) <= 50),
			CHECK(LENGTH(full_name) > 0 AND LENGTH(full_name) <= 100)
		)`,
		`CREATE TABLE IF NOT EXISTS registered_cards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			rfid_uid TEXT UNIQUE NOT NULL,
			student_name TEXT NOT NULL,
			student_class TEXT,
			registration_date DATETIME DEFAULT CURRENT_TIMESTAMP,
			CHECK(LENGTH(rfid_uid) > 0 AND LENGTH(rfid_uid) <= 50),
			CHECK(LENGTH(student_name) > 0 AND LENGTH(student_name) <= 100),
			CHECK(LENGTH(student_class) <= 20)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_event_id ON attendance(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_rfid_uid ON attendance(rfid_uid)`,
		`CREATE INDEX IF NOT EXISTS idx_events_active ON events(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_events_start_time ON events(start_time)`,
	}
	for _, stmt := range stmts {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
