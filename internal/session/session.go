// Package session keeps server-side login sessions addressed by an opaque token.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// ErrNotFound is returned for unknown or expired tokens
var ErrNotFound = errors.New("session not found")

// Session is the server-side state behind a session cookie
type Session struct {
	Token     string    `json:"-"`
	UserID    uint      `json:"user_id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	// Purge removes expired sessions and reports how many were removed.
	Purge(ctx context.Context, now time.Time) (int64, error)
}

// NewToken returns 32 random bytes, hex encoded
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
