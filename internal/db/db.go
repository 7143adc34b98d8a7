// Package db locates, opens and initializes the local SQLite store.
package db

import (
	"database/sql"
	"embed"
	"fmt"
	stdfs "io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"fishingCatchesLogger/models"
)

const (
	// AppDirName is the per-user application-data subdirectory.
	AppDirName = "FishingCatchesLogger"
	// FileName is the database file inside AppDirName.
	FileName = "localDatabase.db"
)

// DataDir returns the per-user application-data directory of the logger,
// e.g. %AppData%\FishingCatchesLogger on Windows or ~/.config/FishingCatchesLogger on Linux.
func DataDir() (string, error) {
	root, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: locate application data dir: %w", models.ErrStoreUnavailable, err)
	}
	return filepath.Join(root, AppDirName), nil
}

// DefaultPath returns the database file location used when none is configured.
func DefaultPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Open opens (or creates) the SQLite store at path and creates any missing tables.
// A plain file path gets its parent directory created first; "file:" URIs
// (used for in-memory test databases) are passed through untouched.
//
// Every failure wraps models.ErrStoreUnavailable.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, unavailable("create store directory", err)
		}
	}

	d, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, unavailable("open store", err)
	}
	// One exclusive handle at a time; SQLite's own locking covers the rest.
	d.SetMaxOpenConns(1)
	d.SetMaxIdleConns(1)

	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, unavailable("open store", err)
	}
	// journal_mode is not supported for in-memory databases. Ignore errors.
	_, _ = d.Exec(`PRAGMA journal_mode=WAL`)
	if _, err := d.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = d.Close()
		return nil, unavailable("enable foreign keys", err)
	}
	if err := applyMigrations(d); err != nil {
		_ = d.Close()
		return nil, unavailable("create schema", err)
	}
	return d, nil
}

// dsn appends the driver options that must hold on every new connection.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=1&_busy_timeout=5000"
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", models.ErrStoreUnavailable, op, err)
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

type migration struct {
	version int
	name    string
	file    string // path inside embedded FS
}

var migFileRe = regexp.MustCompile(`^([0-9]{4})_(.+)\.up\.sql$`)

func loadMigrations() ([]migration, error) {
	list, err := stdfs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	var out []migration
	for _, de := range list {
		if de.IsDir() {
			continue
		}
		m := migFileRe.FindStringSubmatch(de.Name())
		if m == nil {
			continue
		}
		ver, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, migration{version: ver, name: m[2], file: "migrations/" + de.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

func appliedVersions(d *sql.DB) (map[int]bool, error) {
	if _, err := d.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
        version INTEGER PRIMARY KEY,
        applied_at TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
    )`); err != nil {
		return nil, err
	}
	rows, err := d.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	got := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		got[v] = true
	}
	return got, rows.Err()
}

// applyMigrations runs every embedded schema script not yet recorded in
// schema_migrations, each in its own transaction.
func applyMigrations(d *sql.DB) error {
	migs, err := loadMigrations()
	if err != nil {
		return err
	}
	applied, err := appliedVersions(d)
	if err != nil {
		return err
	}
	for _, m := range migs {
		if applied[m.version] {
			continue
		}
		text, err := migrationsFS.ReadFile(m.file)
		if err != nil {
			return err
		}
		tx, err := d.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(text)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %04d_%s failed: %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES(?)`, m.version); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
