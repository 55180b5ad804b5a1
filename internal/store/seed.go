package store

import (
	"context"

	"golang.org/x/crypto/bcrypt"
)

// Seed provisions the initial operator account and a couple of demo cards.
// Users are created out-of-band only; the API never writes the users table.
// Runs once: it is a no-op when any user already exists.
func (d *DB) Seed(ctx context.Context, demoCards bool) error {
	var n int
	if err := d.Client.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := d.Client.ExecContext(ctx, `
		INSERT OR IGNORE INTO users (username, password_hash, full_name)
		VALUES (?, ?, ?)
	`, "test", string(hash), "Test Operator"); err != nil {
		return err
	}

	if !demoCards {
		return nil
	}
	demo := [][3]string{
		{"A1B2C3D4", "Ivan Petrov", "10A"},
		{"D4C3B2A1", "Anna Sidorova", "10B"},
	}
	for _, c := range demo {
		if _, err := d.Client.ExecContext(ctx, `
			INSERT OR IGNORE INTO registered_cards (rfid_uid, student_name, student_class)
			VALUES (?, ?, ?)
		`, c[0], c[1], c[2]); err != nil {
			return err
		}
	}
	return nil
}
