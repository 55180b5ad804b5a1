package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"rollcall/internal/attendance"
)

// Authenticate verifies credentials against the user store. Unknown username
// and wrong password both return (nil, nil); the caller must not be able to
// tell them apart.
func Authenticate(ctx context.Context, repo *attendance.Repository, username, password string) (*attendance.User, error) {
	user, err := repo.UserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return user, nil
}

// HashPassword produces a bcrypt hash for provisioning scripts and tests.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
