// Package database opens the SQL connection pool and bootstraps the schema.
//
// Queries elsewhere use $N placeholders, RETURNING and ON CONFLICT, which
// both PostgreSQL and SQLite accept, so repositories are dialect-free. Only
// the DDL below differs per driver.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured database, verifies it and applies the
// schema. For SQLite the pool is limited to a single connection, which
// serializes writers and keeps ":memory:" databases alive.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: opening %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database: pinging %s: %w", driver, err)
	}

	if err := Migrate(ctx, db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("database: running migrations: %w", err)
	}
	return db, nil
}

func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	stmts := postgresSchema
	if driver == DriverSQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// IsUniqueViolation reports whether err was caused by a unique constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i > 0 {
		return s[:i]
	}
	return s
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS credits (
		id           BIGSERIAL PRIMARY KEY,
		user_id      BIGINT NOT NULL UNIQUE,
		balance      BIGINT NOT NULL CHECK (balance >= 0),
		last_updated TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS credit_refunds (
		operation_id TEXT PRIMARY KEY,
		user_id      BIGINT NOT NULL,
		amount       BIGINT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id                BIGSERIAL PRIMARY KEY,
		user_id           BIGINT NOT NULL,
		gateway           TEXT NOT NULL,
		gateway_txn_id    TEXT NOT NULL,
		plan_id           TEXT NOT NULL,
		amount            BIGINT NOT NULL,
		currency          TEXT NOT NULL,
		credits_purchased BIGINT NOT NULL,
		status            TEXT NOT NULL DEFAULT 'PENDING',
		created_at        TIMESTAMPTZ NOT NULL,
		updated_at        TIMESTAMPTZ NOT NULL,
		UNIQUE (gateway, gateway_txn_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_pending ON transactions(status, created_at)`,
	`CREATE TABLE IF NOT EXISTS contents (
		id                  BIGSERIAL PRIMARY KEY,
		user_id             BIGINT NOT NULL,
		operation_id        TEXT NOT NULL UNIQUE,
		title               TEXT NOT NULL,
		input_params        JSONB NOT NULL,
		generated_text      TEXT NOT NULL,
		generated_image_url TEXT,
		status              TEXT NOT NULL DEFAULT 'DRAFT',
		created_at          TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contents_user_id ON contents(user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS content_posts (
		content_id   BIGINT NOT NULL,
		platform     TEXT NOT NULL,
		operation_id TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (content_id, platform)
	)`,
	`CREATE TABLE IF NOT EXISTS social_connections (
		id            BIGSERIAL PRIMARY KEY,
		user_id       BIGINT NOT NULL,
		platform      TEXT NOT NULL,
		profile_id    TEXT NOT NULL,
		access_token  TEXT NOT NULL,
		refresh_token TEXT NOT NULL DEFAULT '',
		expires_at    TIMESTAMPTZ NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, platform)
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL,
		key_hash   TEXT NOT NULL UNIQUE,
		prefix     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS credits (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id      INTEGER NOT NULL UNIQUE,
		balance      INTEGER NOT NULL CHECK (balance >= 0),
		last_updated DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS credit_refunds (
		operation_id TEXT PRIMARY KEY,
		user_id      INTEGER NOT NULL,
		amount       INTEGER NOT NULL,
		created_at   DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id           INTEGER NOT NULL,
		gateway           TEXT NOT NULL,
		gateway_txn_id    TEXT NOT NULL,
		plan_id           TEXT NOT NULL,
		amount            INTEGER NOT NULL,
		currency          TEXT NOT NULL,
		credits_purchased INTEGER NOT NULL,
		status            TEXT NOT NULL DEFAULT 'PENDING',
		created_at        DATETIME NOT NULL,
		updated_at        DATETIME NOT NULL,
		UNIQUE (gateway, gateway_txn_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_pending ON transactions(status, created_at)`,
	`CREATE TABLE IF NOT EXISTS contents (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id             INTEGER NOT NULL,
		operation_id        TEXT NOT NULL UNIQUE,
		title               TEXT NOT NULL,
		input_params        TEXT NOT NULL,
		generated_text      TEXT NOT NULL,
		generated_image_url TEXT,
		status              TEXT NOT NULL DEFAULT 'DRAFT',
		created_at          DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contents_user_id ON contents(user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS content_posts (
		content_id   INTEGER NOT NULL,
		platform     TEXT NOT NULL,
		operation_id TEXT NOT NULL,
		created_at   DATETIME NOT NULL,
		PRIMARY KEY (content_id, platform)
	)`,
	`CREATE TABLE IF NOT EXISTS social_connections (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id       INTEGER NOT NULL,
		platform      TEXT NOT NULL,
		profile_id    TEXT NOT NULL,
		access_token  TEXT NOT NULL,
		refresh_token TEXT NOT NULL DEFAULT '',
		expires_at    DATETIME NOT NULL,
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL,
		UNIQUE (user_id, platform)
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    INTEGER NOT NULL,
		key_hash   TEXT NOT NULL UNIQUE,
		prefix     TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
}
