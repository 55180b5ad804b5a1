package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSchemaConstraints(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	// username is unique
	if _, err := db.Client.ExecContext(ctx, `INSERT INTO users (username, password_hash, full_name) VALUES ('dup', 'h', 'One')`); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if _, err := db.Client.ExecContext(ctx, `INSERT INTO users (username, password_hash, full_name) VALUES ('dup', 'h', 'Two')`); err == nil {
		t.Error("duplicate username accepted")
	}

	// rfid_uid is unique in the card registry
	if _, err := db.Client.ExecContext(ctx, `INSERT INTO registered_cards (rfid_uid, student_name) VALUES ('AAAA1111', 'A')`); err != nil {
		t.Fatalf("insert card: %v", err)
	}
	if _, err := db.Client.ExecContext(ctx, `INSERT INTO registered_cards (rfid_uid, student_name) VALUES ('AAAA1111', 'B')`); err == nil {
		t.Error("duplicate card uid accepted")
	}

	// length checks hold at the schema level too
	if _, err := db.Client.ExecContext(ctx, `INSERT INTO events (name, organizer) VALUES ('', 'X')`); err == nil {
		t.Error("empty event name accepted")
	}
}

func TestSeedIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if err := db.Seed(ctx, true); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := db.Seed(ctx, true); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	var users, cards int
	if err := db.Client.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&users); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if err := db.Client.QueryRowContext(ctx, `SELECT COUNT(*) FROM registered_cards`).Scan(&cards); err != nil {
		t.Fatalf("count cards: %v", err)
	}
	if users != 1 {
		t.Errorf("users = %d, want 1", users)
	}
	if cards != 2 {
		t.Errorf("demo cards = %d, want 2", cards)
	}
}
