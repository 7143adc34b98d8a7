// Package auth carries the authenticated session explicitly through
// context.Context and issues the signed tokens that let a session outlive a
// single process.
package auth

import (
	"context"
	"time"

	"fishingCatchesLogger/models"
)

// Session is the authenticated identity record operations are scoped to.
// It is owned by the caller; logging out means dropping it.
type Session struct {
	ID        string // random per-login identifier, carried as the token's jti
	User      models.User
	IssuedAt  time.Time
	ExpiresAt time.Time
	Token     string // signed form of the session, empty if no signer was configured
}

// UserID is shorthand for s.User.ID.
func (s *Session) UserID() int64 { return s.User.ID }

type sessionKey struct{}

// WithSession stores the session in context.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext retrieves the session from context (if any).
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}

// RequireSession ensures a session for a persisted user is present in context.
func RequireSession(ctx context.Context) (*Session, error) {
	s, ok := FromContext(ctx)
	if !ok || s.User.ID == 0 {
		return nil, models.ErrNoSession
	}
	return s, nil
}
