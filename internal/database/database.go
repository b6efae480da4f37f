package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB pairs a connection pool with the dialect its queries are written for.
type DB struct {
	*sql.DB
	Driver string
}

// NewConnection opens and pings a database. In-memory SQLite databases are
// limited to one connection, since every new connection would see an empty
// database.
func NewConnection(ctx context.Context, driver, dsn string, log *zap.Logger) (*DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if driver == DriverSQLite {
		if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
			db.SetMaxOpenConns(1)
		}
		for _, p := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 10000"} {
			if _, err := db.ExecContext(ctx, p); err != nil {
				db.Close()
				return nil, fmt.Errorf("%s: %w", p, err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	log.Info("database connection established", zap.String("driver", driver))
	return &DB{DB: db, Driver: driver}, nil
}

var placeholder = regexp.MustCompile(`\$\d+`)

// rebind rewrites $n placeholders for drivers that expect ?.
func (db *DB) rebind(query string) string {
	if db.Driver == DriverPostgres {
		return query
	}
	return placeholder.ReplaceAllString(query, "?")
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS extraction_runs (
		id TEXT PRIMARY KEY,
		input_path TEXT NOT NULL,
		started_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS packages (
		run_id TEXT NOT NULL REFERENCES extraction_runs(id),
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		checksum TEXT NOT NULL,
		parts INTEGER NOT NULL,
		PRIMARY KEY (run_id, path)
	)`,
	`CREATE TABLE IF NOT EXISTS animations (
		run_id TEXT NOT NULL REFERENCES extraction_runs(id),
		package_path TEXT NOT NULL,
		package_name TEXT NOT NULL,
		part_name TEXT NOT NULL,
		seq INTEGER NOT NULL,
		target_id TEXT NOT NULL,
		category TEXT NOT NULL,
		property TEXT NOT NULL,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS assets (
		run_id TEXT NOT NULL REFERENCES extraction_runs(id),
		table_name TEXT NOT NULL,
		package_path TEXT NOT NULL,
		package_name TEXT NOT NULL,
		part_name TEXT NOT NULL,
		seq INTEGER NOT NULL,
		asset_id TEXT NOT NULL,
		parent_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ai_usage (
		run_id TEXT NOT NULL,
		package_name TEXT NOT NULL,
		model TEXT NOT NULL,
		prompt_tokens INTEGER NOT NULL,
		completion_tokens INTEGER NOT NULL,
		total_tokens INTEGER NOT NULL
	)`,
}

// EnsureSchema creates the result tables when they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
