package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"rollcall/internal/attendance"
)

// ErrInvalidToken covers every verification failure: malformed, expired,
// wrong signature, wrong issuer. Callers must not learn which check failed.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the JWT payload for an operator session.
type Claims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies signed session tokens. The zero clock means
// time.Now; tests inject a fake one.
type Tokens struct {
	Key    string
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

// NewTokens builds a token issuer/verifier with a fixed validity window.
func NewTokens(key, issuer string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{Key: key, Issuer: issuer, TTL: ttl, Now: time.Now}
}

// Issue produces a signed HS256 token embedding the user's identity.
func (t *Tokens) Issue(user *attendance.User) (string, error) {
	now := t.Now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.Issuer,
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.Key))
}

// Parse validates a token and returns its claims. Any failure maps to
// ErrInvalidToken.
func (t *Tokens) Parse(tokenStr string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(t.Key), nil
	}, jwt.WithTimeFunc(t.Now))
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if t.Issuer != "" && claims.Issuer != t.Issuer {
		return Claims{}, ErrInvalidToken
	}
	return *claims, nil
}
