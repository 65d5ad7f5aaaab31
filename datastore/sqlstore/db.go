/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/suparena/objectstore"
	"github.com/suparena/objectstore/config"
	"github.com/suparena/objectstore/errors"
)

// EnvPrefix is the prefix of the environment variables read by LoadConfig.
const EnvPrefix = "OBJECTS_SQL_"

// Config locates a SQLite database. The database file is <Path>/<Name>.db.
type Config struct {
	Path        string        `env:"PATH" envDefault:"."`
	Name        string        `env:"NAME"`
	ForeignKeys bool          `env:"FOREIGN_KEYS" envDefault:"true"`
	BusyTimeout time.Duration `env:"BUSY_TIMEOUT" envDefault:"5s"`
}

// LoadConfig reads Config from the OBJECTS_SQL_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParsePrefixed(&cfg, EnvPrefix); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields required to open the database.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.NewConfigurationError("name", "database name is required", nil)
	}
	if strings.TrimSpace(c.Path) == "" {
		return errors.NewConfigurationError("path", "database path is required", nil)
	}
	if c.BusyTimeout < 0 {
		return errors.NewConfigurationError("busy_timeout", "must not be negative", nil)
	}
	return nil
}

// File returns the database file path.
func (c Config) File() string {
	return filepath.Join(filepath.Clean(c.Path), c.Name+".db")
}

// DSN returns the data source name understood by the sqlite driver.
func (c Config) DSN() string {
	fk := 0
	if c.ForeignKeys {
		fk = 1
	}
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(%d)",
		c.File(), c.BusyTimeout.Milliseconds(), fk)
}

// DB is the database handle shared by the drivers of a source.
type DB struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.RWMutex
	sqlDB   *sql.DB
	sources map[*objectstore.Source]struct{}
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(db *DB) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// New creates a DB for cfg. Nothing is opened until Start.
func New(cfg Config, opts ...Option) *DB {
	db := &DB{
		cfg:     cfg,
		logger:  slog.Default(),
		sources: make(map[*objectstore.Source]struct{}),
	}
	for _, opt := range opts {
		opt(db)
	}
	db.logger = db.logger.With("database", cfg.Name)
	return db
}

// Name returns the database name.
func (db *DB) Name() string {
	return db.cfg.Name
}

// Start opens the database. Starting an open DB is a no-op.
func (db *DB) Start(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.sqlDB != nil {
		return nil
	}

	if err := db.cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Clean(db.cfg.Path), 0o755); err != nil {
		return errors.NewConfigurationError("path", "create database directory", err)
	}

	sqlDB, err := sql.Open("sqlite", db.cfg.DSN())
	if err != nil {
		return errors.NewConfigurationError("dsn", "open sqlite db", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return errors.NewConfigurationError("dsn", "ping sqlite db", err)
	}

	db.sqlDB = sqlDB
	db.logger.InfoContext(ctx, "database opened", "file", db.cfg.File())
	return nil
}

// Close closes the database. Closing a closed DB is a no-op.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.sqlDB == nil {
		return nil
	}
	err := db.sqlDB.Close()
	db.sqlDB = nil
	db.logger.Info("database closed")
	return err
}

// SQL returns the open handle.
func (db *DB) SQL() (*sql.DB, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.sqlDB == nil {
		return nil, errors.NewConfigurationError(db.cfg.Name, "database is not started", nil)
	}
	return db.sqlDB, nil
}

// Exec runs a statement, typically schema setup, on the open handle.
func (db *DB) Exec(ctx context.Context, query string, args ...any) error {
	sqlDB, err := db.SQL()
	if err != nil {
		return err
	}
	if _, err := sqlDB.ExecContext(ctx, query, args...); err != nil {
		return errors.NewBackendError("exec", db.cfg.Name, err)
	}
	return nil
}

// SetForeignKeyChecks enables or disables foreign key enforcement, for
// instance while bulk-loading rows in dependency-breaking order.
func (db *DB) SetForeignKeyChecks(ctx context.Context, enabled bool) error {
	value := "OFF"
	if enabled {
		value = "ON"
	}
	if err := db.Exec(ctx, "PRAGMA foreign_keys = "+value); err != nil {
		return err
	}
	db.logger.DebugContext(ctx, "foreign key checks changed", "enabled", enabled)
	return nil
}

// ForeignKeyChecks reports whether foreign keys are currently enforced.
func (db *DB) ForeignKeyChecks(ctx context.Context) (bool, error) {
	sqlDB, err := db.SQL()
	if err != nil {
		return false, err
	}
	var on int
	if err := sqlDB.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&on); err != nil {
		return false, errors.NewBackendError("pragma", db.cfg.Name, err)
	}
	return on == 1, nil
}

// bind registers db as a closer of src, once per source.
func (db *DB) bind(src *objectstore.Source) {
	db.mu.Lock()
	_, bound := db.sources[src]
	db.sources[src] = struct{}{}
	db.mu.Unlock()
	if !bound {
		src.AddCloser(db)
	}
}
