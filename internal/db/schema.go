package db

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS parties (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL DEFAULT '',
    role         TEXT NOT NULL DEFAULT '',
    category     TEXT NOT NULL DEFAULT '',
    latitude     DOUBLE PRECISION,
    longitude    DOUBLE PRECISION,
    push_token   TEXT NOT NULL DEFAULT '',
    online       BOOLEAN NOT NULL DEFAULT FALSE,
    last_channel TEXT NOT NULL DEFAULT '',
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS parties_role_category_idx ON parties (role, category);

CREATE TABLE IF NOT EXISTS alerts (
    id           UUID PRIMARY KEY,
    requester_id TEXT NOT NULL,
    category     TEXT NOT NULL,
    latitude     DOUBLE PRECISION NOT NULL,
    longitude    DOUBLE PRECISION NOT NULL,
    radius_km    DOUBLE PRECISION NOT NULL,
    zone_label   TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS alert_responses (
    id           BIGSERIAL PRIMARY KEY,
    alert_id     TEXT NOT NULL,
    recipient_id TEXT NOT NULL,
    requester_id TEXT NOT NULL,
    accepted     BOOLEAN NOT NULL,
    responded_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS alert_responses_alert_idx ON alert_responses (alert_id);
`

// Migrate creates the directory tables if they do not exist.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
