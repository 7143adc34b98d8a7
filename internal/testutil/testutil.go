package testutil

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"fishingCatchesLogger/internal/auth"
	"fishingCatchesLogger/internal/db"
	"fishingCatchesLogger/internal/password"
	"fishingCatchesLogger/models"
)

// OpenInMemoryDB opens an in-memory SQLite database with the full schema.
// The name is derived from the test name so parallel packages never share a
// database. Caller cleanup is registered via t.Cleanup.
func OpenInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	// Shared cache keeps the database alive while the pool holds a connection.
	d, err := db.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// SeedUser inserts a user with the given credentials and returns it.
func SeedUser(t *testing.T, d *sql.DB, username, plaintext string) models.User {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com", PasswordHash: password.Hash(plaintext)}
	res, err := d.Exec(`INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)`, u.Username, u.Email, u.PasswordHash)
	if err != nil {
		t.Fatalf("seed user %q: %v", username, err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		t.Fatalf("seed user id: %v", err)
	}
	return u
}

// CtxWithSession returns a context carrying an unsigned session for u.
func CtxWithSession(ctx context.Context, u models.User) context.Context {
	return auth.WithSession(ctx, &auth.Session{ID: "test-" + u.Username, User: u})
}

// CountOrphans counts detail rows without a base record and base records
// without any detail row.
func CountOrphans(t *testing.T, d *sql.DB) int {
	t.Helper()
	var n int
	err := d.QueryRow(`
SELECT
  (SELECT COUNT(*) FROM catches c WHERE NOT EXISTS (SELECT 1 FROM records r WHERE r.record_id = c.record_id)) +
  (SELECT COUNT(*) FROM sells s WHERE NOT EXISTS (SELECT 1 FROM records r WHERE r.record_id = s.record_id)) +
  (SELECT COUNT(*) FROM records r WHERE NOT EXISTS (SELECT 1 FROM catches c WHERE c.record_id = r.record_id)
                                   AND NOT EXISTS (SELECT 1 FROM sells s WHERE s.record_id = r.record_id))`).Scan(&n)
	if err != nil {
		t.Fatalf("count orphans: %v", err)
	}
	return n
}
