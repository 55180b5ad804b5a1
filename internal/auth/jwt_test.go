package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"rollcall/internal/attendance"
)

func testUser() *attendance.User {
	return &attendance.User{ID: 7, Username: "test", FullName: "Test Operator"}
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("secret-key", "rollcall", 24*time.Hour)

	tok, err := tokens.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := tokens.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "test" || claims.FullName != "Test Operator" {
		t.Errorf("claims = %+v, want issued identity", claims)
	}
}

func TestTokenExpiry(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := issued
	tokens := NewTokens("secret-key", "rollcall", 24*time.Hour)
	tokens.Now = func() time.Time { return now }

	tok, err := tokens.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Valid just inside the window.
	now = issued.Add(24*time.Hour - time.Minute)
	if _, err := tokens.Parse(tok); err != nil {
		t.Fatalf("parse inside window: %v", err)
	}

	// Rejected once 24 hours elapse.
	now = issued.Add(24*time.Hour + time.Minute)
	if _, err := tokens.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("parse after expiry: err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenTampering(t *testing.T) {
	tokens := NewTokens("secret-key", "rollcall", 24*time.Hour)
	tok, err := tokens.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("token parts = %d", len(parts))
	}

	tests := []struct {
		name  string
		token string
	}{
		{"tampered signature", parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))},
		{"wrong key", mustIssue(t, NewTokens("other-key", "rollcall", 24*time.Hour))},
		{"wrong issuer", mustIssue(t, NewTokens("secret-key", "someone-else", 24*time.Hour))},
		{"malformed", "not-a-token"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tokens.Parse(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func mustIssue(t *testing.T, tokens *Tokens) string {
	t.Helper()
	tok, err := tokens.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

func TestHashPasswordVerifies(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("hash equals plaintext")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")) != nil {
		t.Error("hash does not verify against its password")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("wrong")) == nil {
		t.Error("hash verifies against the wrong password")
	}
}
