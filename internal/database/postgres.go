package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

type DB struct {
	*sql.DB
}

func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Connection pool settings for production use
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS truck_routes (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			stream_platform TEXT NOT NULL DEFAULT 'none',
			stream_channel TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			code TEXT NOT NULL,
			name TEXT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL DEFAULT 'scheduled',
			season_id BIGINT NOT NULL,
			truck_route_id BIGINT REFERENCES truck_routes(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_season ON events(season_id)`,
		`CREATE TABLE IF NOT EXISTS event_streams (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			event_id UUID NOT NULL,
			platform TEXT NOT NULL,
			internal_id TEXT NOT NULL,
			channel TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (event_id, platform, channel),
			UNIQUE (platform, internal_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_streams_event ON event_streams(event_id)`,
		`CREATE TABLE IF NOT EXISTS platform_credentials (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			platform TEXT NOT NULL,
			account_email TEXT NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			scopes TEXT[] NOT NULL DEFAULT '{}',
			token_expiry TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (platform, account_email)
		)`,
		`CREATE TABLE IF NOT EXISTS equipment (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			equipment_type TEXT NOT NULL DEFAULT 'av-cart',
			last_seen TIMESTAMPTZ,
			configuration JSONB NOT NULL DEFAULT '{}'
		)`,
	}

	for _, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	slog.Info("Database migrations completed")
	return nil
}
