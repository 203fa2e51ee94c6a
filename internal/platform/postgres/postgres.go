package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"asamblea/internal/platform/config"
)

// Open connects to Postgres with lib/pq and applies pool settings.
// Returns nil if the URL is empty (Postgres not configured).
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	if cfg.ApplySchema {
		if err := ApplySchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// ApplySchema creates the tables if they do not exist.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Schema is idempotent DDL for every Postgres-backed store.
const Schema = `
CREATE TABLE IF NOT EXISTS registry_properties (
	list_id                TEXT NOT NULL,
	id                     TEXT NOT NULL,
	owner_document         TEXT NOT NULL,
	owner_document_norm    TEXT NOT NULL,
	group_label            TEXT NOT NULL DEFAULT '',
	property_label         TEXT NOT NULL DEFAULT '',
	coefficient            DOUBLE PRECISION NOT NULL DEFAULT 0,
	votes                  DOUBLE PRECISION NOT NULL DEFAULT 0,
	registered_in_assembly BOOLEAN NOT NULL DEFAULT FALSE,
	is_deleted             BOOLEAN NOT NULL DEFAULT FALSE,
	vote_blocked           BOOLEAN NOT NULL DEFAULT FALSE,
	registration           JSONB,
	PRIMARY KEY (list_id, id)
);
CREATE INDEX IF NOT EXISTS registry_properties_owner_idx ON registry_properties (list_id, owner_document_norm);

CREATE TABLE IF NOT EXISTS assemblies (
	id             TEXT PRIMARY KEY,
	entity_id      TEXT NOT NULL,
	name           TEXT NOT NULL,
	status         TEXT NOT NULL,
	config         JSONB NOT NULL,
	blocked_voters TEXT[] NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS attendees (
	id            TEXT PRIMARY KEY,
	assembly_id   TEXT NOT NULL,
	document      TEXT NOT NULL,
	document_norm TEXT NOT NULL,
	first_name    TEXT NOT NULL DEFAULT '',
	last_name     TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	entries       JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	UNIQUE (assembly_id, document_norm)
);

CREATE TABLE IF NOT EXISTS questions (
	id          TEXT PRIMARY KEY,
	assembly_id TEXT NOT NULL,
	title       TEXT NOT NULL,
	type        TEXT NOT NULL,
	options     TEXT[] NOT NULL DEFAULT '{}',
	status      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS questions_assembly_idx ON questions (assembly_id);

CREATE TABLE IF NOT EXISTS question_answers (
	question_id  TEXT NOT NULL REFERENCES questions (id) ON DELETE CASCADE,
	property_key TEXT NOT NULL,
	options      TEXT[] NOT NULL DEFAULT '{}',
	text         TEXT NOT NULL DEFAULT '',
	coefficient  DOUBLE PRECISION NOT NULL DEFAULT 0,
	votes        DOUBLE PRECISION NOT NULL DEFAULT 0,
	attendee_id  TEXT NOT NULL DEFAULT '',
	submitted_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (question_id, property_key)
);
`
