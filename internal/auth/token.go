package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"fishingCatchesLogger/models"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
var ErrInvalidToken = errors.New("invalid session token")

const issuer = "fishlog"

// Claims are the JWT claims of a session token.
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"uname"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 session tokens.
type Signer struct {
	Secret []byte
	TTL    time.Duration
	now    func() time.Time
}

// NewSigner returns a Signer for the given secret and token lifetime.
func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{Secret: []byte(secret), TTL: ttl, now: time.Now}
}

func (s *Signer) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// NewSession starts a session for u and signs it.
func (s *Signer) NewSession(u models.User) (*Session, error) {
	now := s.clock().Truncate(time.Second)
	sess := &Session{
		ID:        uuid.NewString(),
		User:      u,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.TTL),
	}
	tok, err := s.Sign(sess)
	if err != nil {
		return nil, err
	}
	sess.Token = tok
	return sess, nil
}

// Sign returns the signed token for sess.
func (s *Signer) Sign(sess *Session) (string, error) {
	if len(s.Secret) == 0 {
		return "", errors.New("session secret is empty")
	}
	claims := Claims{
		UserID:   sess.User.ID,
		Username: sess.User.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(sess.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

// Parse validates a token and extracts its claims.
func (s *Signer) Parse(tokenStr string) (*Claims, error) {
	if len(s.Secret) == 0 {
		return nil, errors.New("session secret is empty")
	}
	tok, err := jwt.ParseWithClaims(strings.TrimSpace(tokenStr), &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return s.Secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.clock))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || c.UserID == 0 || c.Username == "" || c.ID == "" {
		return nil, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	return c, nil
}
