package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate applies the schema idempotently. Each statement is safe to re-run,
// so a crashed startup can simply try again.
func Migrate(ctx context.Context, pool *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS modules (
			id          BIGSERIAL PRIMARY KEY,
			company_id  BIGINT NOT NULL,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			module_type TEXT NOT NULL DEFAULT 'module',
			unlocked    BOOLEAN NOT NULL DEFAULT false,
			sort_order  INT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS modules_company_order_uniq
			ON modules (company_id, sort_order)`,

		`CREATE TABLE IF NOT EXISTS exercises (
			id           BIGSERIAL PRIMARY KEY,
			module_id    BIGINT NOT NULL REFERENCES modules (id),
			question     TEXT NOT NULL,
			image_urls   JSONB NOT NULL DEFAULT '[]',
			video_url    TEXT,
			media_layout TEXT,
			weight       DOUBLE PRECISION NOT NULL DEFAULT 1,
			sort_order   INT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS exercises_module_order_uniq
			ON exercises (module_id, sort_order) WHERE sort_order >= 0`,

		`CREATE TABLE IF NOT EXISTS alternatives (
			id          BIGSERIAL PRIMARY KEY,
			exercise_id BIGINT NOT NULL REFERENCES exercises (id),
			content     TEXT NOT NULL,
			is_correct  BOOLEAN NOT NULL DEFAULT false,
			explanation TEXT,
			image_urls  JSONB NOT NULL DEFAULT '[]',
			sort_order  INT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS alternatives_exercise_order_uniq
			ON alternatives (exercise_id, sort_order) WHERE sort_order >= 0`,

		`CREATE TABLE IF NOT EXISTS results (
			id        BIGSERIAL PRIMARY KEY,
			module_id BIGINT NOT NULL REFERENCES modules (id),
			user_id   BIGINT NOT NULL,
			score     DOUBLE PRECISION NOT NULL,
			max_score DOUBLE PRECISION NOT NULL,
			taken_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS answers (
			id             BIGSERIAL PRIMARY KEY,
			result_id      BIGINT NOT NULL REFERENCES results (id),
			exercise_id    BIGINT NOT NULL,
			alternative_id BIGINT NOT NULL,
			correct        BOOLEAN NOT NULL DEFAULT false
		)`,
	}

	for _, stmt := range stmts {
		if _, err := pool.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}
