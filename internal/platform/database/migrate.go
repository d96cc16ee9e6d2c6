package database

import (
	"context"
	"fmt"
)

// schema is the catalog and ledger layout. brand_id is '' for global-tier
// rows so partition filters stay uniform. Soft-deleted rows are kept
// forever; only course_progress rows are ever removed.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS programs (
		id          text PRIMARY KEY,
		title       text NOT NULL,
		price_cents bigint NOT NULL DEFAULT 0,
		currency    text NOT NULL DEFAULT 'usd',
		course_ids  text[] NOT NULL DEFAULT '{}',
		deleted     boolean NOT NULL DEFAULT false,
		deleted_at  timestamptz,
		created_at  timestamptz NOT NULL DEFAULT now(),
		updated_at  timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS courses (
		id          text PRIMARY KEY,
		tier        text NOT NULL,
		brand_id    text NOT NULL DEFAULT '',
		title       text NOT NULL,
		short_desc  text NOT NULL DEFAULT '',
		description text NOT NULL DEFAULT '',
		cover_url   text NOT NULL DEFAULT '',
		curriculum  text[] NOT NULL DEFAULT '{}',
		deleted     boolean NOT NULL DEFAULT false,
		deleted_at  timestamptz,
		created_at  timestamptz NOT NULL DEFAULT now(),
		updated_at  timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS courses_curriculum_idx ON courses USING gin (curriculum)`,
	`CREATE INDEX IF NOT EXISTS courses_scope_idx ON courses (tier, brand_id)`,
	`CREATE TABLE IF NOT EXISTS lessons (
		id         text PRIMARY KEY,
		tier       text NOT NULL,
		brand_id   text NOT NULL DEFAULT '',
		title      text NOT NULL,
		body       text NOT NULL DEFAULT '',
		media_url  text NOT NULL DEFAULT '',
		deleted    boolean NOT NULL DEFAULT false,
		deleted_at timestamptz,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS lessons_scope_idx ON lessons (tier, brand_id)`,
	`CREATE TABLE IF NOT EXISTS quizzes (
		id         text PRIMARY KEY,
		tier       text NOT NULL,
		brand_id   text NOT NULL DEFAULT '',
		title      text NOT NULL,
		questions  jsonb NOT NULL DEFAULT '[]',
		version    bigint NOT NULL DEFAULT 1,
		deleted    boolean NOT NULL DEFAULT false,
		deleted_at timestamptz,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS quizzes_scope_idx ON quizzes (tier, brand_id)`,
	`CREATE TABLE IF NOT EXISTS users (
		id                  text PRIMARY KEY,
		brand_id            text NOT NULL,
		name                text NOT NULL DEFAULT '',
		email               text NOT NULL DEFAULT '',
		role                text NOT NULL DEFAULT 'staff',
		team_id             text NOT NULL DEFAULT '',
		assigned_course_ids text[] NOT NULL DEFAULT '{}',
		created_at          timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS users_team_idx ON users (brand_id, team_id)`,
	`CREATE TABLE IF NOT EXISTS course_progress (
		user_id         text NOT NULL,
		course_id       text NOT NULL,
		completed_items text[] NOT NULL DEFAULT '{}',
		status          text NOT NULL DEFAULT 'Not Started',
		progress        int NOT NULL DEFAULT 0,
		last_updated    timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, course_id)
	)`,
}

// Migrate applies the schema. Statements are idempotent, so running against
// an existing database is safe.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}
