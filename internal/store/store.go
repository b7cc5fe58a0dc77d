// Package store holds the row stores for the authoring entities. Each store
// covers one entity kind and offers insert, patch-update, delete and an
// ordered range read over one parent scope. The stores guarantee only
// per-statement atomicity; the invariant choreography on top of them lives in
// internal/content.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("row not found")
	// ErrConstraintViolation is returned when a write is rejected by a
	// uniqueness rule (the correct-flag slot or a (scope, sort_order) pair).
	// Callers treat it as a race signal and may retry from a fresh read.
	ErrConstraintViolation = errors.New("constraint violation")
)

// maxCorrectRows caps the number of correct-flagged rows a group may hold at
// any instant: the live correct row plus one transient contender. The
// insert-then-demote choreography needs the window of two; a third writer is
// the loser of a race and gets ErrConstraintViolation.
const maxCorrectRows = 2

type ModuleRow struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ModuleType  string    `json:"module_type"`
	Unlocked    bool      `json:"unlocked"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}

type ModulePatch struct {
	Title       *string
	Description *string
	ModuleType  *string
	Unlocked    *bool
}

type ExerciseRow struct {
	ID          int64     `json:"id"`
	ModuleID    int64     `json:"module_id"`
	Question    string    `json:"question"`
	ImageURLs   []string  `json:"image_urls"`
	VideoURL    *string   `json:"video_url,omitempty"`
	MediaLayout *string   `json:"media_layout,omitempty"`
	Weight      float64   `json:"weight"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}

type ExercisePatch struct {
	Question    *string
	ImageURLs   *[]string
	VideoURL    *string
	MediaLayout *string
	Weight      *float64
}

type AlternativeRow struct {
	ID          int64     `json:"id"`
	ExerciseID  int64     `json:"exercise_id"`
	Content     string    `json:"content"`
	IsCorrect   bool      `json:"is_correct"`
	Explanation *string   `json:"explanation,omitempty"`
	ImageURLs   []string  `json:"image_urls"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}

type AlternativePatch struct {
	Content     *string
	IsCorrect   *bool
	Explanation *string
	ImageURLs   *[]string
}

// Modules stores module rows scoped by company.
type Modules interface {
	Insert(ctx context.Context, row ModuleRow) (*ModuleRow, error)
	Update(ctx context.Context, id int64, patch ModulePatch) (*ModuleRow, error)
	SetOrder(ctx context.Context, id int64, order int) error
	Delete(ctx context.Context, id int64) error
	ListByCompany(ctx context.Context, companyID int64) ([]ModuleRow, error)
}

// Exercises stores exercise rows scoped by module.
type Exercises interface {
	Insert(ctx context.Context, row ExerciseRow) (*ExerciseRow, error)
	Update(ctx context.Context, id int64, patch ExercisePatch) (*ExerciseRow, error)
	SetOrder(ctx context.Context, id int64, order int) error
	Delete(ctx context.Context, id int64) error
	ListByModule(ctx context.Context, moduleID int64) ([]ExerciseRow, error)
}

// Alternatives stores alternative rows scoped by exercise. Insert and Update
// reject a write that would leave the group with more correct-flagged rows
// than the transient window allows, returning ErrConstraintViolation.
type Alternatives interface {
	Insert(ctx context.Context, row AlternativeRow) (*AlternativeRow, error)
	Update(ctx context.Context, id int64, patch AlternativePatch) (*AlternativeRow, error)
	SetOrder(ctx context.Context, id int64, order int) error
	Delete(ctx context.Context, id int64) error
	ListByExercise(ctx context.Context, exerciseID int64) ([]AlternativeRow, error)
}
