package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied idempotently at startup. The unique constraint on the
// conversation natural key is the serialization point for concurrent
// get-or-create; the unique (conversation_id, version) pair backs the
// append-only diagram version protocol.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS conversations (
		id          BIGSERIAL PRIMARY KEY,
		platform    TEXT NOT NULL,
		channel_id  TEXT NOT NULL DEFAULT '',
		thread_id   TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ,
		UNIQUE (platform, channel_id, thread_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id               BIGSERIAL PRIMARY KEY,
		conversation_id  BIGINT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		content          TEXT NOT NULL,
		user_id          TEXT NOT NULL,
		user_name        TEXT,
		timestamp        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		is_technical     BOOLEAN NOT NULL DEFAULT FALSE,
		confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		entities         JSONB NOT NULL DEFAULT '[]'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation_ts
		ON messages (conversation_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_technical
		ON messages (conversation_id, is_technical, timestamp)`,
	`CREATE TABLE IF NOT EXISTS diagrams (
		id                  BIGSERIAL PRIMARY KEY,
		conversation_id     BIGINT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		plantuml_code       TEXT NOT NULL DEFAULT '',
		drawio_xml          TEXT NOT NULL DEFAULT '',
		png_url             TEXT,
		version             INTEGER NOT NULL,
		components_count    INTEGER NOT NULL DEFAULT 0,
		relationships_count INTEGER NOT NULL DEFAULT 0,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (conversation_id, version)
	)`,
	`CREATE TABLE IF NOT EXISTS modifications (
		id            BIGSERIAL PRIMARY KEY,
		diagram_id    BIGINT NOT NULL REFERENCES diagrams(id) ON DELETE CASCADE,
		request       TEXT NOT NULL,
		user_id       TEXT,
		success       BOOLEAN NOT NULL DEFAULT TRUE,
		error_message TEXT,
		applied_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
