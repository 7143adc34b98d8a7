package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fishingCatchesLogger/internal/auth"
	"fishingCatchesLogger/models"
)

// resume restores the session saved by login and attaches it to ctx.
func (a *app) resume(ctx context.Context) (context.Context, error) {
	b, err := os.ReadFile(a.cfg.Session.File)
	if errors.Is(err, os.ErrNotExist) {
		return ctx, models.ErrNoSession
	}
	if err != nil {
		return ctx, &models.IOError{Op: "read", Path: a.cfg.Session.File, Err: err}
	}
	s, err := a.dir.Resume(ctx, strings.TrimSpace(string(b)))
	if err != nil {
		a.log.Warn().Err(err).Msg("stored session rejected")
		return ctx, err
	}
	return auth.WithSession(ctx, s), nil
}

func (a *app) saveSession(s *auth.Session) error {
	path := a.cfg.Session.File
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return &models.IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.WriteFile(path, []byte(s.Token+"\n"), 0o600); err != nil {
		return &models.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func (a *app) dropSession() (bool, error) {
	err := os.Remove(a.cfg.Session.File)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("logout: %w", err)
	}
	return true, nil
}
