package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"fishingCatchesLogger/internal/db"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "FISHLOG"

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Log      LogConfig
	Session  SessionConfig
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string // SQLite database file path
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level string // debug, info, warn, error
	Path  string // empty logs to stderr
}

// SessionConfig contains session token settings.
type SessionConfig struct {
	Secret string        // HS256 signing secret
	TTL    time.Duration // token lifetime
	File   string        // where the CLI keeps the current session token
}

const devSecret = "dev-secret-change-me"

// Load reads configuration from an optional .env file, an optional config.yaml
// in the data directory and FISHLOG_* environment variables, in increasing
// precedence. A session secret is required.
func Load() (*Config, error) {
	cfg, err := load(viper.New())
	if err != nil {
		return nil, err
	}
	if cfg.Session.Secret == "" {
		return nil, fmt.Errorf("%s_SESSION_SECRET is not set; required outside development", EnvPrefix)
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but falls back to a fixed development secret.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	v := viper.New()
	v.SetDefault("session.secret", devSecret)
	return load(v)
}

// LoadFrom is like LoadWithDefaults but lets the caller seed values (for
// example command-line flags bound through viper.BindPFlag).
func LoadFrom(v *viper.Viper) (*Config, error) {
	if !v.IsSet("session.secret") {
		v.SetDefault("session.secret", devSecret)
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	// .env is optional; only surface real read failures.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	dataDir, err := db.DataDir()
	if err != nil {
		dataDir = "."
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetDefault("db.path", filepath.Join(dataDir, db.FileName))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "")
	v.SetDefault("session.ttl", 12*time.Hour)
	v.SetDefault("session.file", filepath.Join(dataDir, "session.token"))
	for key, env := range map[string]string{
		"db.path":        "DB_PATH",
		"log.level":      "LOG_LEVEL",
		"log.path":       "LOG_PATH",
		"session.secret": "SESSION_SECRET",
		"session.ttl":    "SESSION_TTL",
		"session.file":   "SESSION_FILE",
	} {
		if err := v.BindEnv(key, EnvPrefix+"_"+env); err != nil {
			return nil, err
		}
	}

	v.SetConfigFile(filepath.Join(dataDir, "config.yaml"))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{Path: v.GetString("db.path")},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			Path:  v.GetString("log.path"),
		},
		Session: SessionConfig{
			Secret: v.GetString("session.secret"),
			TTL:    v.GetDuration("session.ttl"),
			File:   v.GetString("session.file"),
		},
	}
	if cfg.Session.TTL <= 0 {
		return nil, fmt.Errorf("invalid %s_SESSION_TTL %q", EnvPrefix, v.GetString("session.ttl"))
	}
	return cfg, nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s, Log: %s, Session: ttl=%s secret=*** (masked) ***}", c.Database.Path, c.Log.Level, c.Session.TTL)
}
