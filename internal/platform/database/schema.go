// Package database owns the engine's Postgres schema. The server applies it
// at startup so a fresh DATABASE_URL works without external migration
// tooling; integration tests apply the same statements to their containers.
package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema holds idempotent DDL for every table the stores touch.
const Schema = `
CREATE TABLE IF NOT EXISTS subjects (
	id         UUID PRIMARY KEY,
	kind       TEXT NOT NULL,
	owner_id   UUID NOT NULL,
	org_id     UUID NOT NULL,
	team_id    UUID,
	start_date DATE NOT NULL,
	end_date   DATE NOT NULL,
	category   TEXT NOT NULL DEFAULT '',
	notes      TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	approver_id UUID,
	approved_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ,
	version    BIGINT NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS workflow_log (
	id           UUID PRIMARY KEY,
	subject_kind TEXT NOT NULL,
	subject_id   UUID NOT NULL,
	old_status   TEXT NOT NULL,
	new_status   TEXT NOT NULL,
	actor_id     UUID NOT NULL,
	comment      TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	prev_hash    BYTEA,
	hash         BYTEA NOT NULL
);
CREATE INDEX IF NOT EXISTS workflow_log_subject_idx
	ON workflow_log (subject_kind, subject_id, created_at);

CREATE TABLE IF NOT EXISTS outbox (
	id             UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id   UUID NOT NULL,
	event_type     TEXT NOT NULL,
	payload        JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	published_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS outbox_unpublished_idx
	ON outbox (created_at) WHERE published_at IS NULL;

CREATE TABLE IF NOT EXISTS notifications (
	id           UUID PRIMARY KEY,
	recipient_id UUID NOT NULL,
	type         TEXT NOT NULL,
	title        TEXT NOT NULL,
	message      TEXT NOT NULL,
	status       TEXT NOT NULL,
	sent_at      TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS notifications_recipient_idx
	ON notifications (recipient_id, created_at DESC);
`

// EnsureSchema applies the schema. Every statement is IF NOT EXISTS, so
// re-running on an initialized database is a no-op.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
