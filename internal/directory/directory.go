// Package directory registers users and verifies their credentials.
package directory

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"fishingCatchesLogger/internal/auth"
	"fishingCatchesLogger/internal/password"
	"fishingCatchesLogger/models"
	"fishingCatchesLogger/repository"
)

// emailRe is the address pattern accepted at sign-up.
var emailRe = regexp.MustCompile(`^[\w\-.+]*[\w\-.]@(\w+\.)+\w{2,}$`)

// Directory is the user directory backed by the users table.
type Directory struct {
	users  repository.UserRepositoryI
	signer *auth.Signer
	log    zerolog.Logger
}

// New returns a Directory. signer may be nil, in which case sessions are
// returned unsigned and Resume is unavailable.
func New(users repository.UserRepositoryI, signer *auth.Signer, log zerolog.Logger) *Directory {
	return &Directory{users: users, signer: signer, log: log.With().Str("component", "directory").Logger()}
}

// Register creates a user with a hashed password. Usernames are unique;
// an existing one fails with models.ErrUsernameTaken.
func (d *Directory) Register(ctx context.Context, username, email, plaintext string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	switch {
	case username == "":
		return nil, models.Invalid("username", "must not be empty")
	case !emailRe.MatchString(email):
		return nil, models.Invalid("email", "%q is not a valid address", email)
	case plaintext == "":
		return nil, models.Invalid("password", "must not be empty")
	}

	if _, err := d.Find(ctx, username); err == nil {
		return nil, fmt.Errorf("%q: %w", username, models.ErrUsernameTaken)
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}

	u := &models.User{Username: username, Email: email, PasswordHash: password.Hash(plaintext)}
	if err := d.users.Create(ctx, u); err != nil {
		return nil, err
	}
	d.log.Debug().Int64("user_id", u.ID).Str("username", u.Username).Msg("user registered")
	return u, nil
}

// Find looks a user up by username.
func (d *Directory) Find(ctx context.Context, username string) (*models.User, error) {
	u, err := d.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		d.log.Error().Err(err).Str("username", username).Msg("user lookup failed")
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return nil, models.ErrUserNotFound
	}
	return u, nil
}

// Authenticate verifies the credentials and starts a session for the user.
// It fails with models.ErrUserNotFound or models.ErrIncorrectPassword.
func (d *Directory) Authenticate(ctx context.Context, username, plaintext string) (*auth.Session, error) {
	u, err := d.Find(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			d.log.Warn().Str("username", username).Msg("login rejected: unknown user")
		}
		return nil, err
	}
	if !password.Matches(u.PasswordHash, plaintext) {
		d.log.Warn().Str("username", username).Msg("login rejected: wrong password")
		return nil, models.ErrIncorrectPassword
	}
	if d.signer == nil {
		return &auth.Session{User: *u}, nil
	}
	s, err := d.signer.NewSession(*u)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	d.log.Debug().Int64("user_id", u.ID).Str("session", s.ID).Msg("session started")
	return s, nil
}

// Resume restores a session from a token issued by Authenticate. The user is
// reloaded so a token can never outlive its account or identity.
func (d *Directory) Resume(ctx context.Context, token string) (*auth.Session, error) {
	if d.signer == nil {
		return nil, errors.New("session signing is not configured")
	}
	c, err := d.signer.Parse(token)
	if err != nil {
		return nil, err
	}
	u, err := d.users.GetByID(ctx, c.UserID)
	if err != nil {
		return nil, fmt.Errorf("load session user: %w", err)
	}
	if u == nil || u.Username != c.Username {
		return nil, fmt.Errorf("%w: user %d", auth.ErrInvalidToken, c.UserID)
	}
	s := &auth.Session{ID: c.ID, User: *u, Token: token}
	if c.IssuedAt != nil {
		s.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s, nil
}
