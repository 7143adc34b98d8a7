package auth

import (
	"context"
	"errors"
	"testing"

	"fishingCatchesLogger/models"
)

func TestRequireSession(t *testing.T) {
	if _, err := RequireSession(context.Background()); !errors.Is(err, models.ErrNoSession) {
		t.Fatalf("expected ErrNoSession on empty context, got %v", err)
	}
	ctx := WithSession(context.Background(), &Session{User: models.User{ID: 7, Username: "alice"}})
	s, err := RequireSession(ctx)
	if err != nil {
		t.Fatalf("RequireSession: %v", err)
	}
	if s.UserID() != 7 {
		t.Fatalf("wrong session: %+v", s)
	}
}

func TestRequireSession_RejectsUnsavedUser(t *testing.T) {
	ctx := WithSession(context.Background(), &Session{User: models.User{Username: "ghost"}})
	if _, err := RequireSession(ctx); !errors.Is(err, models.ErrNoSession) {
		t.Fatalf("expected ErrNoSession for user without id, got %v", err)
	}
	var nilSession *Session
	ctx = WithSession(context.Background(), nilSession)
	if _, ok := FromContext(ctx); ok {
		t.Fatalf("nil session must not be reported as present")
	}
}
