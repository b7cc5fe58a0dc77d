// Package content implements the authoring operations over companies,
// modules, exercises and alternatives, and maintains two structural
// guarantees across a store that offers only per-statement atomicity: every
// non-empty exercise has exactly one correct alternative, and every ordering
// scope keeps a dense, gap-free, zero-based sort_order sequence.
package content

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"quizdeck/internal/retry"
	"quizdeck/internal/store"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = store.ErrNotFound
	ErrLastAlternative = errors.New("cannot delete the last alternative")
	ErrSoleCorrect     = errors.New("cannot unset the only correct alternative")
)

const (
	ModuleTypeModule = "module"
	ModuleTypeExam   = "exam"

	maxAlternativeImages = 4

	// moduleSentinelBase displaces module orders into a range no live row
	// can hold while a reorder is in flight. Alternatives and exercises use
	// a shared -1 sentinel instead: their uniqueness indexes only cover
	// non-negative orders.
	moduleSentinelBase = 10000
)

// ReplacementPolicy picks which surviving alternative inherits the correct
// flag when the correct one is deleted. candidates is never empty and keeps
// its sort order.
type ReplacementPolicy func(candidates []store.AlternativeRow) store.AlternativeRow

// RandomReplacement picks a survivor uniformly at random.
func RandomReplacement(candidates []store.AlternativeRow) store.AlternativeRow {
	return candidates[rand.IntN(len(candidates))]
}

// LowestOrderReplacement deterministically promotes the first survivor.
func LowestOrderReplacement(candidates []store.AlternativeRow) store.AlternativeRow {
	return candidates[0]
}

type Stores struct {
	Modules      store.Modules
	Exercises    store.Exercises
	Alternatives store.Alternatives
	Cascade      store.Cascade
}

type Config struct {
	Retry           retry.Policy
	PickReplacement ReplacementPolicy
	Logger          *zap.SugaredLogger
}

type Service struct {
	modules      store.Modules
	exercises    store.Exercises
	alternatives store.Alternatives
	cascade      store.Cascade
	retry        retry.Policy
	pick         ReplacementPolicy
	log          *zap.SugaredLogger
}

func NewService(st Stores, cfg Config) *Service {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.Default
	}
	if cfg.PickReplacement == nil {
		cfg.PickReplacement = RandomReplacement
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &Service{
		modules:      st.Modules,
		exercises:    st.Exercises,
		alternatives: st.Alternatives,
		cascade:      st.Cascade,
		retry:        cfg.Retry,
		pick:         cfg.PickReplacement,
		log:          cfg.Logger,
	}
}

type CreateModuleInput struct {
	CompanyID   int64
	Title       string
	Description string
	ModuleType  string
	Unlocked    bool
}

type UpdateModuleInput struct {
	CompanyID   int64
	ModuleID    int64
	Title       *string
	Description *string
	ModuleType  *string
	Unlocked    *bool
}

type CreateExerciseInput struct {
	ModuleID    int64
	Question    string
	ImageURLs   []string
	VideoURL    *string
	MediaLayout *string
	Weight      float64
}

type UpdateExerciseInput struct {
	ModuleID    int64
	ExerciseID  int64
	Question    *string
	ImageURLs   *[]string
	VideoURL    *string
	MediaLayout *string
	Weight      *float64
}

func normalizeModuleType(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	switch v {
	case ModuleTypeModule, ModuleTypeExam:
		return v
	default:
		return ""
	}
}

// CreateModule appends a module at the end of the company's sequence. A
// concurrent creator can claim the same tail slot; the unique order
// constraint rejects the loser, who re-reads and retries.
func (s *Service) CreateModule(ctx context.Context, in CreateModuleInput) (*store.ModuleRow, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.ModuleType = normalizeModuleType(in.ModuleType)
	if in.CompanyID <= 0 || in.Title == "" || in.ModuleType == "" {
		return nil, ErrInvalidInput
	}
	if in.ModuleType != ModuleTypeExam {
		// the unlock flag only applies to exams
		in.Unlocked = false
	}

	var out *store.ModuleRow
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		group, err := s.modules.ListByCompany(ctx, in.CompanyID)
		if err != nil {
			return fmt.Errorf("read module group: %w", err)
		}
		inserted, err := s.modules.Insert(ctx, store.ModuleRow{
			CompanyID:   in.CompanyID,
			Title:       in.Title,
			Description: strings.TrimSpace(in.Description),
			ModuleType:  in.ModuleType,
			Unlocked:    in.Unlocked,
			SortOrder:   nextOrderOfModules(group),
		})
		if err != nil {
			return err
		}
		out = inserted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListModules never fails a render: on a store error it logs and returns an
// empty collection.
func (s *Service) ListModules(ctx context.Context, companyID int64) []store.ModuleRow {
	if companyID <= 0 {
		return []store.ModuleRow{}
	}
	items, err := s.modules.ListByCompany(ctx, companyID)
	if err != nil {
		s.log.Warnw("list modules failed", "company_id", companyID, "error", err)
		return []store.ModuleRow{}
	}
	return items
}

// UpdateModule patches one module. Membership in the company is verified
// before the write so a wrong company id cannot mutate a foreign row; rows
// never move between companies, which keeps the check-then-write safe.
func (s *Service) UpdateModule(ctx context.Context, in UpdateModuleInput) (*store.ModuleRow, error) {
	if in.CompanyID <= 0 || in.ModuleID <= 0 {
		return nil, ErrInvalidInput
	}
	patch := store.ModulePatch{
		Description: in.Description,
		Unlocked:    in.Unlocked,
	}
	if in.Title != nil {
		v := strings.TrimSpace(*in.Title)
		if v == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		patch.Title = &v
	}
	if in.ModuleType != nil {
		v := normalizeModuleType(*in.ModuleType)
		if v == "" {
			return nil, fmt.Errorf("%w: module_type must be module or exam", ErrInvalidInput)
		}
		patch.ModuleType = &v
	}
	group, err := s.modules.ListByCompany(ctx, in.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("read module group: %w", err)
	}
	if !containsID(group, in.ModuleID, func(r store.ModuleRow) int64 { return r.ID }) {
		return nil, store.ErrNotFound
	}
	return s.modules.Update(ctx, in.ModuleID, patch)
}

// ReorderModule moves a module to newIndex within its company, renumbering
// through the disjoint sentinel range so no intermediate write collides with
// a live order value.
func (s *Service) ReorderModule(ctx context.Context, companyID, moduleID int64, newIndex int) error {
	if companyID <= 0 || moduleID <= 0 || newIndex < 0 {
		return ErrInvalidInput
	}
	group, err := s.modules.ListByCompany(ctx, companyID)
	if err != nil {
		return fmt.Errorf("read module group: %w", err)
	}
	items := make([]orderedItem, len(group))
	for i, row := range group {
		items[i] = orderedItem{id: row.ID}
	}
	return renumberScope(ctx, items, moduleID, newIndex, s.modules.SetOrder, func(i int) int {
		return moduleSentinelBase + i
	})
}

func (s *Service) DeleteModule(ctx context.Context, companyID, moduleID int64) error {
	if companyID <= 0 || moduleID <= 0 {
		return ErrInvalidInput
	}
	group, err := s.modules.ListByCompany(ctx, companyID)
	if err != nil {
		return fmt.Errorf("read module group: %w", err)
	}
	if !containsID(group, moduleID, func(r store.ModuleRow) int64 { return r.ID }) {
		return store.ErrNotFound
	}

	if err := s.cascade.DeleteModuleChildren(ctx, moduleID); err != nil {
		return fmt.Errorf("cascade module children: %w", err)
	}
	if err := s.modules.Delete(ctx, moduleID); err != nil {
		return err
	}
	return compactAfterDelete(ctx, group, moduleID, func(r store.ModuleRow) (int64, int) { return r.ID, r.SortOrder }, s.modules.SetOrder)
}

func (s *Service) CreateExercise(ctx context.Context, in CreateExerciseInput) (*store.ExerciseRow, error) {
	in.Question = strings.TrimSpace(in.Question)
	if in.ModuleID <= 0 || in.Question == "" {
		return nil, ErrInvalidInput
	}
	if in.Weight == 0 {
		in.Weight = 1
	}
	if in.Weight <= 0 {
		return nil, fmt.Errorf("%w: weight must be > 0", ErrInvalidInput)
	}

	var out *store.ExerciseRow
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		group, err := s.exercises.ListByModule(ctx, in.ModuleID)
		if err != nil {
			return fmt.Errorf("read exercise group: %w", err)
		}
		inserted, err := s.exercises.Insert(ctx, store.ExerciseRow{
			ModuleID:    in.ModuleID,
			Question:    in.Question,
			ImageURLs:   in.ImageURLs,
			VideoURL:    in.VideoURL,
			MediaLayout: in.MediaLayout,
			Weight:      in.Weight,
			SortOrder:   nextOrderOfExercises(group),
		})
		if err != nil {
			return err
		}
		out = inserted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ListExercises(ctx context.Context, moduleID int64) []store.ExerciseRow {
	if moduleID <= 0 {
		return []store.ExerciseRow{}
	}
	items, err := s.exercises.ListByModule(ctx, moduleID)
	if err != nil {
		s.log.Warnw("list exercises failed", "module_id", moduleID, "error", err)
		return []store.ExerciseRow{}
	}
	return items
}

func (s *Service) UpdateExercise(ctx context.Context, in UpdateExerciseInput) (*store.ExerciseRow, error) {
	if in.ModuleID <= 0 || in.ExerciseID <= 0 {
		return nil, ErrInvalidInput
	}
	patch := store.ExercisePatch{
		ImageURLs:   in.ImageURLs,
		VideoURL:    in.VideoURL,
		MediaLayout: in.MediaLayout,
	}
	if in.Question != nil {
		v := strings.TrimSpace(*in.Question)
		if v == "" {
			return nil, fmt.Errorf("%w: question cannot be empty", ErrInvalidInput)
		}
		patch.Question = &v
	}
	if in.Weight != nil {
		if *in.Weight <= 0 {
			return nil, fmt.Errorf("%w: weight must be > 0", ErrInvalidInput)
		}
		patch.Weight = in.Weight
	}
	group, err := s.exercises.ListByModule(ctx, in.ModuleID)
	if err != nil {
		return nil, fmt.Errorf("read exercise group: %w", err)
	}
	if !containsID(group, in.ExerciseID, func(r store.ExerciseRow) int64 { return r.ID }) {
		return nil, store.ErrNotFound
	}
	return s.exercises.Update(ctx, in.ExerciseID, patch)
}

func (s *Service) ReorderExercise(ctx context.Context, moduleID, exerciseID int64, newIndex int) error {
	if moduleID <= 0 || exerciseID <= 0 || newIndex < 0 {
		return ErrInvalidInput
	}
	group, err := s.exercises.ListByModule(ctx, moduleID)
	if err != nil {
		return fmt.Errorf("read exercise group: %w", err)
	}
	items := make([]orderedItem, len(group))
	for i, row := range group {
		items[i] = orderedItem{id: row.ID}
	}
	return renumberScope(ctx, items, exerciseID, newIndex, s.exercises.SetOrder, negativeSentinel)
}

func (s *Service) DeleteExercise(ctx context.Context, moduleID, exerciseID int64) error {
	if moduleID <= 0 || exerciseID <= 0 {
		return ErrInvalidInput
	}
	group, err := s.exercises.ListByModule(ctx, moduleID)
	if err != nil {
		return fmt.Errorf("read exercise group: %w", err)
	}
	if !containsID(group, exerciseID, func(r store.ExerciseRow) int64 { return r.ID }) {
		return store.ErrNotFound
	}

	if err := s.cascade.DeleteExerciseChildren(ctx, exerciseID); err != nil {
		return fmt.Errorf("cascade exercise children: %w", err)
	}
	if err := s.exercises.Delete(ctx, exerciseID); err != nil {
		return err
	}
	return compactAfterDelete(ctx, group, exerciseID, func(r store.ExerciseRow) (int64, int) { return r.ID, r.SortOrder }, s.exercises.SetOrder)
}

func containsID[T any](group []T, id int64, key func(T) int64) bool {
	for _, row := range group {
		if key(row) == id {
			return true
		}
	}
	return false
}

func nextOrderOfModules(group []store.ModuleRow) int {
	next := 0
	for _, row := range group {
		if row.SortOrder >= next {
			next = row.SortOrder + 1
		}
	}
	return next
}

func nextOrderOfExercises(group []store.ExerciseRow) int {
	next := 0
	for _, row := range group {
		if row.SortOrder >= next {
			next = row.SortOrder + 1
		}
	}
	return next
}
