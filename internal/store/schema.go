package store

import (
	"context"
	"fmt"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS inboxes (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id   INTEGER NOT NULL,
		name         TEXT NOT NULL,
		channel_type TEXT NOT NULL,
		created_at   DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS channel_webrtc (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id      INTEGER NOT NULL,
		inbox_id        INTEGER NOT NULL REFERENCES inboxes(id),
		website_token   TEXT NOT NULL UNIQUE,
		hmac_token      TEXT NOT NULL UNIQUE,
		provider_config TEXT NOT NULL DEFAULT '{}',
		widget_color    TEXT NOT NULL DEFAULT '#1f93ff',
		welcome_title   TEXT NOT NULL DEFAULT '',
		welcome_tagline TEXT NOT NULL DEFAULT '',
		website_url     TEXT NOT NULL DEFAULT '',
		created_at      DATETIME NOT NULL,
		updated_at      DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS contacts (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id   INTEGER NOT NULL,
		name         TEXT NOT NULL,
		email        TEXT,
		phone_number TEXT,
		created_at   DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS contact_inboxes (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		contact_id INTEGER NOT NULL REFERENCES contacts(id),
		inbox_id   INTEGER NOT NULL REFERENCES inboxes(id),
		source_id  TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (inbox_id, source_id)
	)`,
	`CREATE TABLE IF NOT EXISTS account_sequences (
		account_id      INTEGER PRIMARY KEY,
		last_display_id INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id                    INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id            INTEGER NOT NULL,
		inbox_id              INTEGER NOT NULL REFERENCES inboxes(id),
		contact_id            INTEGER NOT NULL REFERENCES contacts(id),
		contact_inbox_id      INTEGER NOT NULL REFERENCES contact_inboxes(id),
		display_id            INTEGER NOT NULL,
		additional_attributes TEXT NOT NULL DEFAULT '{}',
		created_at            DATETIME NOT NULL,
		UNIQUE (account_id, display_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id         INTEGER NOT NULL,
		inbox_id           INTEGER NOT NULL,
		conversation_id    INTEGER NOT NULL REFERENCES conversations(id),
		sender_id          INTEGER NOT NULL,
		message_type       TEXT NOT NULL,
		content_type       TEXT NOT NULL,
		content            TEXT NOT NULL,
		content_attributes TEXT NOT NULL DEFAULT '{}',
		created_at         DATETIME NOT NULL,
		updated_at         DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation_type ON messages (conversation_id, content_type, id)`,
	`CREATE TABLE IF NOT EXISTS call_events (
		seq             INTEGER PRIMARY KEY AUTOINCREMENT,
		id              TEXT NOT NULL UNIQUE,
		conversation_id INTEGER NOT NULL REFERENCES conversations(id),
		message_id      INTEGER NOT NULL REFERENCES messages(id),
		room_name       TEXT NOT NULL,
		status          TEXT NOT NULL,
		created_at      DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_call_events_conversation ON call_events (conversation_id, seq)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS inboxes (
		id           BIGSERIAL PRIMARY KEY,
		account_id   BIGINT NOT NULL,
		name         TEXT NOT NULL,
		channel_type TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS channel_webrtc (
		id              BIGSERIAL PRIMARY KEY,
		account_id      BIGINT NOT NULL,
		inbox_id        BIGINT NOT NULL REFERENCES inboxes(id),
		website_token   TEXT NOT NULL UNIQUE,
		hmac_token      TEXT NOT NULL UNIQUE,
		provider_config JSONB NOT NULL DEFAULT '{}',
		widget_color    TEXT NOT NULL DEFAULT '#1f93ff',
		welcome_title   TEXT NOT NULL DEFAULT '',
		welcome_tagline TEXT NOT NULL DEFAULT '',
		website_url     TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS contacts (
		id           BIGSERIAL PRIMARY KEY,
		account_id   BIGINT NOT NULL,
		name         TEXT NOT NULL,
		email        TEXT,
		phone_number TEXT,
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS contact_inboxes (
		id         BIGSERIAL PRIMARY KEY,
		contact_id BIGINT NOT NULL REFERENCES contacts(id),
		inbox_id   BIGINT NOT NULL REFERENCES inboxes(id),
		source_id  TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (inbox_id, source_id)
	)`,
	`CREATE TABLE IF NOT EXISTS account_sequences (
		account_id      BIGINT PRIMARY KEY,
		last_display_id BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id                    BIGSERIAL PRIMARY KEY,
		account_id            BIGINT NOT NULL,
		inbox_id              BIGINT NOT NULL REFERENCES inboxes(id),
		contact_id            BIGINT NOT NULL REFERENCES contacts(id),
		contact_inbox_id      BIGINT NOT NULL REFERENCES contact_inboxes(id),
		display_id            BIGINT NOT NULL,
		additional_attributes JSONB NOT NULL DEFAULT '{}',
		created_at            TIMESTAMPTZ NOT NULL,
		UNIQUE (account_id, display_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id                 BIGSERIAL PRIMARY KEY,
		account_id         BIGINT NOT NULL,
		inbox_id           BIGINT NOT NULL,
		conversation_id    BIGINT NOT NULL REFERENCES conversations(id),
		sender_id          BIGINT NOT NULL,
		message_type       TEXT NOT NULL,
		content_type       TEXT NOT NULL,
		content            TEXT NOT NULL,
		content_attributes JSONB NOT NULL DEFAULT '{}',
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation_type ON messages (conversation_id, content_type, id)`,
	`CREATE TABLE IF NOT EXISTS call_events (
		seq             BIGSERIAL PRIMARY KEY,
		id              UUID NOT NULL UNIQUE,
		conversation_id BIGINT NOT NULL REFERENCES conversations(id),
		message_id      BIGINT NOT NULL REFERENCES messages(id),
		room_name       TEXT NOT NULL,
		status          TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_call_events_conversation ON call_events (conversation_id, seq)`,
}

// Migrate creates the schema for the store's dialect. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := postgresSchema
	if s.dialect == SQLite {
		stmts = sqliteSchema
	}
	for i, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate step %d: %w", i, err)
		}
	}
	return nil
}
