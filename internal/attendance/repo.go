package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when an operation targets a nonexistent entity,
// e.g. stopping an event that does not exist or is already stopped.
var ErrNotFound = errors.New("not found")

// User is an operator account. Accounts are provisioned out-of-band and the
// API never mutates them.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Event is a bounded attendance-taking session. At most one event is active
// at any time.
type Event struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Organizer string     `json:"organizer"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	IsActive  bool       `json:"is_active"`
}

// Record is one timestamped scan tied to an event. The student name is a
// snapshot of the card registry at scan time, not a live join.
type Record struct {
	ID           int64     `json:"id"`
	RFIDUID      string    `json:"rfid_uid"`
	StudentName  string    `json:"student_name"`
	StudentClass string    `json:"student_class,omitempty"`
	EventID      int64     `json:"event_id"`
	Timestamp    time.Time `json:"timestamp"`
}

// Card associates an RFID tag identifier with a known student.
type Card struct {
	ID               int64     `json:"id"`
	RFIDUID          string    `json:"rfid_uid"`
	StudentName      string    `json:"student_name"`
	StudentClass     string    `json:"student_class,omitempty"`
	RegistrationDate time.Time `json:"registration_date"`
}

// Stats holds whole-store counters for the dashboard.
type Stats struct {
	TotalEvents  int64 `json:"totalEvents"`
	TotalRecords int64 `json:"totalRecords"`
	TotalCards   int64 `json:"totalCards"`
}

// ExportRow is one line of the CSV export, event name resolved.
type ExportRow struct {
	EventName    string
	RFIDUID      string
	StudentName  string
	StudentClass string
	Timestamp    time.Time
}

// Repository persists attendance data in SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UserByUsername returns the user with the exact username, or nil when absent.
func (r *Repository) UserByUsername(ctx context.Context, username string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, full_name, created_at
		FROM users WHERE username = ?
	`, username)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// StartEvent closes every active event and opens a new one. Both statements
// run in one transaction so there is no window with zero rows applied.
func (r *Repository) StartEvent(ctx context.Context, name, organizer string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE events SET end_time = ?, is_active = 0 WHERE is_active = 1
	`, now); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO events (name, organizer, start_time, is_active) VALUES (?, ?, ?, 1)
	`, name, organizer, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// StopEvent closes the event by id. Stopping an unknown or already-stopped
// event returns ErrNotFound so the caller can tell "nothing to stop" apart
// from "stopped".
func (r *Repository) StopEvent(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE events SET end_time = ?, is_active = 0 WHERE id = ? AND is_active = 1
	`, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveEvent returns the newest active event, or nil when none is running.
func (r *Repository) ActiveEvent(ctx context.Context) (*Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, organizer, start_time, end_time, is_active
		FROM events WHERE is_active = 1
		ORDER BY start_time DESC LIMIT 1
	`)
	var evt Event
	if err := row.Scan(&evt.ID, &evt.Name, &evt.Organizer, &evt.StartTime, &evt.EndTime, &evt.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &evt, nil
}

// EventByID returns a single event, or ErrNotFound.
func (r *Repository) EventByID(ctx context.Context, id int64) (Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, organizer, start_time, end_time, is_active
		FROM events WHERE id = ?
	`, id)
	var evt Event
	if err := row.Scan(&evt.ID, &evt.Name, &evt.Organizer, &evt.StartTime, &evt.EndTime, &evt.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, ErrNotFound
		}
		return Event{}, err
	}
	return evt, nil
}

// CountActiveEvents reports how many events are currently active.
func (r *Repository) CountActiveEvents(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE is_active = 1`).Scan(&n)
	return n, err
}

// CardByUID returns the registered card for the uid, or nil when absent.
func (r *Repository) CardByUID(ctx context.Context, rfidUID string) (*Card, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, rfid_uid, student_name, COALESCE(student_class, ''), registration_date
		FROM registered_cards WHERE rfid_uid = ?
	`, rfidUID)
	var c Card
	if err := row.Scan(&c.ID, &c.RFIDUID, &c.StudentName, &c.StudentClass, &c.RegistrationDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// InsertRecord appends an attendance record and returns it with id and
// timestamp filled in. Records are immutable once written.
func (r *Repository) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (rfid_uid, student_name, event_id, timestamp)
		VALUES (?, ?, ?, ?)
	`, rec.RFIDUID, rec.StudentName, rec.EventID, rec.Timestamp)
	if err != nil {
		return Record{}, err
	}
	rec.ID, err = res.LastInsertId()
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ListRecordsByEvent returns the attendance log for an event, newest first.
// The class column comes from the current card registry; the name stays the
// snapshot taken at scan time.
func (r *Repository) ListRecordsByEvent(ctx context.Context, eventID int64) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.rfid_uid, a.student_name, COALESCE(rc.student_class, ''), a.event_id, a.timestamp
		FROM attendance a
		LEFT JOIN registered_cards rc ON a.rfid_uid = rc.rfid_uid
		WHERE a.event_id = ?
		ORDER BY a.timestamp DESC, a.id DESC
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.RFIDUID, &rec.StudentName, &rec.StudentClass, &rec.EventID, &rec.Timestamp); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// ExportRows returns attendance rows for one event with the event name
// resolved, oldest first, for CSV export.
func (r *Repository) ExportRows(ctx context.Context, eventID int64) ([]ExportRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.name, a.rfid_uid, a.student_name, COALESCE(rc.student_class, ''), a.timestamp
		FROM attendance a
		JOIN events e ON a.event_id = e.id
		LEFT JOIN registered_cards rc ON a.rfid_uid = rc.rfid_uid
		WHERE a.event_id = ?
		ORDER BY a.timestamp, a.id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ExportRow
	for rows.Next() {
		var row ExportRow
		if err := rows.Scan(&row.EventName, &row.RFIDUID, &row.StudentName, &row.StudentClass, &row.Timestamp); err != nil {
			return nil, err
		}
		res = append(res, row)
	}
	return res, rows.Err()
}

// UpsertCard creates or overwrites a registered card by rfid_uid.
func (r *Repository) UpsertCard(ctx context.Context, rfidUID, studentName, studentClass string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO registered_cards (rfid_uid, student_name, student_class, registration_date)
		VALUES (?, ?, NULLIF(?, ''), ?)
		ON CONFLICT(rfid_uid) DO UPDATE SET
			student_name = excluded.student_name,
			student_class = excluded.student_class,
			registration_date = excluded.registration_date
	`, rfidUID, studentName, studentClass, time.Now().UTC())
	return err
}

// ListCards returns all registered cards sorted by student name.
func (r *Repository) ListCards(ctx context.Context) ([]Card, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, rfid_uid, student_name, COALESCE(student_class, ''), registration_date
		FROM registered_cards
		ORDER BY student_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Card
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.ID, &c.RFIDUID, &c.StudentName, &c.StudentClass, &c.RegistrationDate); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// CountStats returns whole-store counters.
func (r *Repository) CountStats(ctx context.Context) (Stats, error) {
	var s Stats
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&s.TotalEvents); err != nil {
		return Stats{}, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance`).Scan(&s.TotalRecords); err != nil {
		return Stats{}, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registered_cards`).Scan(&s.TotalCards); err != nil {
		return Stats{}, err
	}
	return s, nil
}
