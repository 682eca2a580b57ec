// Package database opens the SQL store used for scan history and contacts.
//
// Two drivers are registered: "sqlite" (modernc.org/sqlite, pure Go, the
// default) and "mysql" (github.com/go-sql-driver/mysql). The schema sticks to
// types both accept.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"ocrscan/internal/logger"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// ErrUnsupportedDriver is returned by Open for drivers other than sqlite and mysql.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Config describes how to reach the database.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// DefaultConfig returns a local SQLite database in the working directory.
func DefaultConfig() Config {
	return Config{
		Driver:          DriverSQLite,
		DSN:             "ocrscan.db",
		MaxOpenConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		PingTimeout:     5 * time.Second,
	}
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	log := logger.WithComponent("database")

	switch cfg.Driver {
	case DriverSQLite, DriverMySQL:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required for driver %s", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	maxOpen := cfg.MaxOpenConns
	if cfg.Driver == DriverSQLite {
		// SQLite allows a single writer; serialize access through one connection.
		maxOpen = 1
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := HealthCheck(ctx, db, cfg.PingTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Debug().
		Str("driver", cfg.Driver).
		Int("max_open_conns", maxOpen).
		Msg("Database connection established")

	return db, nil
}

// HealthCheck pings the database within timeout.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS scan_history (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		filename VARCHAR(255) NOT NULL,
		uploader VARCHAR(255) NOT NULL DEFAULT '',
		engine VARCHAR(32) NOT NULL DEFAULT '',
		image LONGBLOB,
		raw_text LONGTEXT,
		state VARCHAR(16) NOT NULL,
		identified_number VARCHAR(13) NOT NULL DEFAULT '',
		identified_date VARCHAR(10) NOT NULL DEFAULT '',
		identified_amount DOUBLE,
		error_message TEXT,
		confidence DOUBLE,
		scanned_at VARCHAR(40) NOT NULL,
		updated_at VARCHAR(40) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS contacts (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		reference VARCHAR(13) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		comment TEXT,
		created_at VARCHAR(40) NOT NULL,
		updated_at VARCHAR(40) NOT NULL
	)`,
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	log := logger.WithComponent("database")

	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}

	log.Debug().Int("statements", len(schema)).Msg("Database schema is up to date")
	return nil
}

// OpenAndMigrate opens the database and applies the schema.
func OpenAndMigrate(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
