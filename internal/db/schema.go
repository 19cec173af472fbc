package db

import (
	"context"
	"fmt"
)

// schema is idempotent; it creates what is missing and never alters.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                 UUID PRIMARY KEY,
		name               TEXT NOT NULL,
		email              TEXT NOT NULL DEFAULT '',
		phone              TEXT NOT NULL DEFAULT '',
		push_token         TEXT NOT NULL DEFAULT '',
		emergency_contacts JSONB NOT NULL DEFAULT '[]',
		preferences        JSONB NOT NULL DEFAULT '{"email":true,"sms":true,"push":true}',
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id                 UUID PRIMARY KEY,
		user_id            UUID NOT NULL,
		owner_name         TEXT NOT NULL DEFAULT '',
		status             TEXT NOT NULL CHECK (status IN ('active', 'resolved', 'cancelled')),
		longitude          DOUBLE PRECISION NOT NULL,
		latitude           DOUBLE PRECISION NOT NULL,
		address            TEXT NOT NULL DEFAULT '',
		message            TEXT NOT NULL DEFAULT '',
		emergency_contacts JSONB NOT NULL DEFAULT '[]',
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL,
		resolved_at        TIMESTAMPTZ,
		cancelled_at       TIMESTAMPTZ,
		CHECK (resolved_at IS NULL OR cancelled_at IS NULL)
	)`,
	`CREATE INDEX IF NOT EXISTS alerts_user_status_idx ON alerts (user_id, status, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS alerts_location_idx ON alerts USING GIST (point(longitude, latitude))`,
	`CREATE TABLE IF NOT EXISTS alert_deliveries (
		id            UUID PRIMARY KEY,
		alert_id      UUID NOT NULL REFERENCES alerts(id),
		contact_index INT NOT NULL,
		contact_name  TEXT NOT NULL,
		channel       TEXT NOT NULL,
		status        TEXT NOT NULL,
		reason        TEXT NOT NULL DEFAULT '',
		error         TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS alert_deliveries_alert_idx ON alert_deliveries (alert_id, created_at)`,
}

// EnsureSchema creates the tables and indexes this service relies on.
func (d *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
