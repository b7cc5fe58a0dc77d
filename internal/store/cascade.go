package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Cascade bulk-deletes the dependent rows under an exercise or a module.
// Deleting an exercise must also drop its alternatives and any recorded
// answers that point at them; deleting a module drops its whole subtree plus
// recorded results. The deletes run child-first as individual statements.
type Cascade interface {
	DeleteExerciseChildren(ctx context.Context, exerciseID int64) error
	DeleteModuleChildren(ctx context.Context, moduleID int64) error
}

type PostgresCascade struct {
	db *sql.DB
}

func NewPostgresCascade(db *sql.DB) *PostgresCascade {
	return &PostgresCascade{db: db}
}

func (c *PostgresCascade) DeleteExerciseChildren(ctx context.Context, exerciseID int64) error {
	steps := []struct {
		op    string
		query string
	}{
		{"delete exercise answers", `DELETE FROM answers WHERE exercise_id = $1`},
		{"delete exercise alternatives", `DELETE FROM alternatives WHERE exercise_id = $1`},
	}
	for _, step := range steps {
		if _, err := c.db.ExecContext(ctx, step.query, exerciseID); err != nil {
			return fmt.Errorf("%s: %w", step.op, err)
		}
	}
	return nil
}

func (c *PostgresCascade) DeleteModuleChildren(ctx context.Context, moduleID int64) error {
	steps := []struct {
		op    string
		query string
	}{
		{"delete module answers", `DELETE FROM answers WHERE exercise_id IN (SELECT id FROM exercises WHERE module_id = $1)`},
		{"delete module alternatives", `DELETE FROM alternatives WHERE exercise_id IN (SELECT id FROM exercises WHERE module_id = $1)`},
		{"delete module exercises", `DELETE FROM exercises WHERE module_id = $1`},
		{"delete result answers", `DELETE FROM answers WHERE result_id IN (SELECT id FROM results WHERE module_id = $1)`},
		{"delete module results", `DELETE FROM results WHERE module_id = $1`},
	}
	for _, step := range steps {
		if _, err := c.db.ExecContext(ctx, step.query, moduleID); err != nil {
			return fmt.Errorf("%s: %w", step.op, err)
		}
	}
	return nil
}
