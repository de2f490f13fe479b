// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vendor-onboarding/internal/common/config"

	_ "github.com/lib/pq"
)

// completionsDDL creates the audit table written by the completion audit sink.
const completionsDDL = `
CREATE TABLE IF NOT EXISTS onboarding_completions (
	id                 UUID PRIMARY KEY,
	vendor_id          TEXT NOT NULL UNIQUE,
	vendor_type        TEXT NOT NULL,
	business_name      TEXT NOT NULL,
	verification_type  TEXT NOT NULL,
	completion_percent NUMERIC(5,2) NOT NULL,
	draft              JSONB NOT NULL,
	completed_at       TIMESTAMPTZ NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresClient wraps the SQL connection pool.
type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// NewPostgresFromDB wraps an existing pool, e.g. a sqlmock connection.
func NewPostgresFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{DB: db}
}

// EnsureSchema creates the tables the service writes to.
func (c *PostgresClient) EnsureSchema(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, completionsDDL); err != nil {
		return fmt.Errorf("create onboarding_completions: %w", err)
	}
	return nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
