package db

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fishingCatchesLogger/models"
)

func tableNames(t *testing.T, path string) map[string]bool {
	t.Helper()
	d, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()
	rows, err := d.Query(`SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}
	defer rows.Close()
	got := map[string]bool{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got[n] = true
	}
	return got
}

func TestOpen_CreatesDirectoryAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", AppDirName, FileName)
	got := tableNames(t, path)
	for _, want := range []string{"users", "records", "catches", "sells", "schema_migrations"} {
		if !got[want] {
			t.Fatalf("missing table %q in %v", want, got)
		}
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}

func TestOpen_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	tableNames(t, path)

	d, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d.Close()
	var n int
	if err := d.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 applied migration after reopen, got %d", n)
	}
}

func TestOpen_UnwritableLocationIsStoreUnavailable(t *testing.T) {
	// A regular file where a directory is expected cannot be created through.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	_, err := Open(filepath.Join(blocker, "sub", FileName))
	if !errors.Is(err, models.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestOpen_ForeignKeysEnforced(t *testing.T) {
	d, err := Open("file:dbfk?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()
	if _, err := d.Exec(`INSERT INTO records (user_id, weight, timestamp) VALUES (999, 1, '2024-01-01T00:00:00')`); err == nil {
		t.Fatalf("expected foreign key violation for unknown user")
	}
}

func TestOpen_DetailTablesAreExclusive(t *testing.T) {
	d, err := Open("file:dbxor?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()
	mustExec := func(q string, args ...any) {
		t.Helper()
		if _, err := d.Exec(q, args...); err != nil {
			t.Fatalf("exec %q: %v", q, err)
		}
	}
	mustExec(`INSERT INTO users (username, email, password_hash) VALUES ('u', 'u@example.com', 'h')`)
	mustExec(`INSERT INTO records (user_id, weight, timestamp) VALUES (1, 1, '2024-01-01T00:00:00')`)
	mustExec(`INSERT INTO catches (record_id, latitude, longitude) VALUES (1, 0, 0)`)
	if _, err := d.Exec(`INSERT INTO sells (record_id, revenue) VALUES (1, 10)`); err == nil {
		t.Fatalf("expected trigger to reject sell detail on a catch record")
	}
	if _, err := d.Exec(`INSERT INTO catches (record_id, latitude, longitude) VALUES (1, 1, 1)`); err == nil {
		t.Fatalf("expected unique record_id on catches")
	}
}

func TestDefaultPath_UnderAppDir(t *testing.T) {
	p, err := DefaultPath()
	if err != nil {
		t.Skipf("no user config dir on this platform: %v", err)
	}
	if filepath.Base(p) != FileName || filepath.Base(filepath.Dir(p)) != AppDirName {
		t.Fatalf("unexpected default path %q", p)
	}
}
