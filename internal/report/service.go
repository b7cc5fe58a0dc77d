// Package report records module results and exposes admin reporting over
// them. Result rows reference modules, exercises and alternatives by id only
// and have no effect on the authoring invariants.
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidInput = errors.New("invalid input")

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

type AnswerInput struct {
	ExerciseID    int64 `json:"exercise_id"`
	AlternativeID int64 `json:"alternative_id"`
	Correct       bool  `json:"correct"`
}

type RecordResultInput struct {
	ModuleID int64
	UserID   int64
	Score    float64
	MaxScore float64
	Answers  []AnswerInput
}

type Result struct {
	ID       int64     `json:"id"`
	ModuleID int64     `json:"module_id"`
	UserID   int64     `json:"user_id"`
	Score    float64   `json:"score"`
	MaxScore float64   `json:"max_score"`
	TakenAt  time.Time `json:"taken_at"`
}

type ModuleSummary struct {
	ModuleID     int64   `json:"module_id"`
	Participants int     `json:"participants"`
	AverageScore float64 `json:"average_score"`
	HighestScore float64 `json:"highest_score"`
	LowestScore  float64 `json:"lowest_score"`
}

func (s *Service) RecordResult(ctx context.Context, in RecordResultInput) (*Result, error) {
	if in.ModuleID <= 0 || in.UserID <= 0 || in.Score < 0 || in.MaxScore <= 0 || in.Score > in.MaxScore {
		return nil, ErrInvalidInput
	}
	for _, a := range in.Answers {
		if a.ExerciseID <= 0 || a.AlternativeID <= 0 {
			return nil, fmt.Errorf("%w: answer references are required", ErrInvalidInput)
		}
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO results (module_id, user_id, score, max_score, taken_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, module_id, user_id, score, max_score, taken_at
	`, in.ModuleID, in.UserID, in.Score, in.MaxScore)

	var out Result
	if err := row.Scan(&out.ID, &out.ModuleID, &out.UserID, &out.Score, &out.MaxScore, &out.TakenAt); err != nil {
		return nil, fmt.Errorf("insert result: %w", err)
	}

	for _, a := range in.Answers {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO answers (result_id, exercise_id, alternative_id, correct)
			VALUES ($1, $2, $3, $4)
		`, out.ID, a.ExerciseID, a.AlternativeID, a.Correct); err != nil {
			return nil, fmt.Errorf("insert answer: %w", err)
		}
	}
	return &out, nil
}

func (s *Service) ListResultsByModule(ctx context.Context, moduleID int64) ([]Result, error) {
	if moduleID <= 0 {
		return nil, ErrInvalidInput
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, module_id, user_id, score, max_score, taken_at
		FROM results
		WHERE module_id = $1
		ORDER BY taken_at DESC, id DESC
	`, moduleID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	items := make([]Result, 0)
	for rows.Next() {
		var item Result
		if err := rows.Scan(&item.ID, &item.ModuleID, &item.UserID, &item.Score, &item.MaxScore, &item.TakenAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return items, nil
}

func (s *Service) SummaryByModule(ctx context.Context, moduleID int64) (*ModuleSummary, error) {
	if moduleID <= 0 {
		return nil, ErrInvalidInput
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(score), 0), COALESCE(MAX(score), 0), COALESCE(MIN(score), 0)
		FROM results
		WHERE module_id = $1
	`, moduleID)

	out := ModuleSummary{ModuleID: moduleID}
	if err := row.Scan(&out.Participants, &out.AverageScore, &out.HighestScore, &out.LowestScore); err != nil {
		return nil, fmt.Errorf("aggregate results: %w", err)
	}
	return &out, nil
}

func (s *Service) ExportResultsExcel(ctx context.Context, moduleID int64) ([]byte, error) {
	items, err := s.ListResultsByModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	return BuildResultsWorkbook(items)
}
