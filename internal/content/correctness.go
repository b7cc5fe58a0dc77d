package content

import (
	"context"
	"fmt"
	"strings"

	"quizdeck/internal/retry"
	"quizdeck/internal/store"
)

// The correctness invariant: among the alternatives of one exercise, exactly
// one row has is_correct = true whenever the group is non-empty. There is no
// transaction to hold it in place, so multi-write operations here follow the
// pattern "write A, then write B, and if B fails undo A", and races on the
// correct slot surface as store.ErrConstraintViolation for the loser.

type CreateAlternativeInput struct {
	ExerciseID  int64
	Content     string
	IsCorrect   bool
	Explanation *string
	ImageURLs   []string
}

type UpdateAlternativeInput struct {
	ExerciseID    int64
	AlternativeID int64
	Content       *string
	IsCorrect     *bool
	Explanation   *string
	ImageURLs     *[]string
}

func validateAlternativeImages(urls []string) error {
	if len(urls) > maxAlternativeImages {
		return fmt.Errorf("%w: at most %d images per alternative", ErrInvalidInput, maxAlternativeImages)
	}
	return nil
}

// CreateAlternative appends an alternative to the exercise. The first
// alternative of a group is forced correct regardless of the request, and a
// group that lost its correct row heals itself on the next create. When the
// new row must take the correct flag from an existing holder, the insert and
// the demotes cannot happen atomically; the insert goes first (racing
// creators are serialized by the constraint), the demotes follow, and a
// failed demote is compensated by deleting the fresh row.
func (s *Service) CreateAlternative(ctx context.Context, in CreateAlternativeInput) (*store.AlternativeRow, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.ExerciseID <= 0 || in.Content == "" {
		return nil, ErrInvalidInput
	}
	if err := validateAlternativeImages(in.ImageURLs); err != nil {
		return nil, err
	}

	var out *store.AlternativeRow
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		group, err := s.alternatives.ListByExercise(ctx, in.ExerciseID)
		if err != nil {
			return fmt.Errorf("read alternative group: %w", err)
		}

		nextOrder := 0
		correctIDs := make([]int64, 0, 1)
		for _, row := range group {
			if row.SortOrder >= nextOrder {
				nextOrder = row.SortOrder + 1
			}
			if row.IsCorrect {
				correctIDs = append(correctIDs, row.ID)
			}
		}
		hasExisting := len(group) > 0
		hasCorrect := len(correctIDs) > 0
		shouldBeCorrect := !hasExisting || !hasCorrect || in.IsCorrect

		inserted, err := s.alternatives.Insert(ctx, store.AlternativeRow{
			ExerciseID:  in.ExerciseID,
			Content:     in.Content,
			IsCorrect:   shouldBeCorrect,
			Explanation: in.Explanation,
			ImageURLs:   in.ImageURLs,
			SortOrder:   nextOrder,
		})
		if err != nil {
			// constraint loss or unexpected failure: retry from a fresh read
			return err
		}

		if shouldBeCorrect && hasCorrect {
			isFalse := false
			for _, id := range correctIDs {
				if _, err := s.alternatives.Update(ctx, id, store.AlternativePatch{IsCorrect: &isFalse}); err != nil {
					if delErr := s.alternatives.Delete(ctx, inserted.ID); delErr != nil {
						s.log.Errorw("compensation delete failed, group may hold two correct rows",
							"exercise_id", in.ExerciseID, "alternative_id", inserted.ID, "error", delErr)
					}
					return retry.Terminal(fmt.Errorf("demote previous correct alternative: %w", err))
				}
			}
		}

		out = inserted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ListAlternatives(ctx context.Context, exerciseID int64) []store.AlternativeRow {
	if exerciseID <= 0 {
		return []store.AlternativeRow{}
	}
	items, err := s.alternatives.ListByExercise(ctx, exerciseID)
	if err != nil {
		s.log.Warnw("list alternatives failed", "exercise_id", exerciseID, "error", err)
		return []store.AlternativeRow{}
	}
	return items
}

// UpdateAlternative patches one alternative. The target is resolved inside
// its exercise group before anything is written, so addressing a row through
// the wrong exercise id fails without touching it. Setting is_correct=true
// demotes every other correct row afterwards; a failed demote is compensated
// by flipping the target back. Clearing the flag on the group's only correct
// row is rejected so a plain edit can never leave the group with zero
// correct answers.
func (s *Service) UpdateAlternative(ctx context.Context, in UpdateAlternativeInput) (*store.AlternativeRow, error) {
	if in.ExerciseID <= 0 || in.AlternativeID <= 0 {
		return nil, ErrInvalidInput
	}
	if in.ImageURLs != nil {
		if err := validateAlternativeImages(*in.ImageURLs); err != nil {
			return nil, err
		}
	}
	patch := store.AlternativePatch{
		IsCorrect:   in.IsCorrect,
		Explanation: in.Explanation,
		ImageURLs:   in.ImageURLs,
	}
	if in.Content != nil {
		v := strings.TrimSpace(*in.Content)
		if v == "" {
			return nil, fmt.Errorf("%w: content cannot be empty", ErrInvalidInput)
		}
		patch.Content = &v
	}

	group, err := s.alternatives.ListByExercise(ctx, in.ExerciseID)
	if err != nil {
		return nil, fmt.Errorf("read alternative group: %w", err)
	}
	var target *store.AlternativeRow
	otherCorrectIDs := make([]int64, 0, 1)
	for i, row := range group {
		if row.ID == in.AlternativeID {
			target = &group[i]
		} else if row.IsCorrect {
			otherCorrectIDs = append(otherCorrectIDs, row.ID)
		}
	}
	if target == nil {
		return nil, store.ErrNotFound
	}
	if in.IsCorrect != nil && !*in.IsCorrect && target.IsCorrect && len(otherCorrectIDs) == 0 {
		return nil, ErrSoleCorrect
	}

	updated, err := s.alternatives.Update(ctx, in.AlternativeID, patch)
	if err != nil {
		return nil, err
	}
	if in.IsCorrect == nil || !*in.IsCorrect {
		return updated, nil
	}

	isFalse := false
	for _, id := range otherCorrectIDs {
		if _, err := s.alternatives.Update(ctx, id, store.AlternativePatch{IsCorrect: &isFalse}); err != nil {
			if _, compErr := s.alternatives.Update(ctx, in.AlternativeID, store.AlternativePatch{IsCorrect: &isFalse}); compErr != nil {
				s.log.Errorw("compensation demote failed, group may hold two correct rows",
					"exercise_id", in.ExerciseID, "alternative_id", in.AlternativeID, "error", compErr)
			}
			return nil, fmt.Errorf("demote previous correct alternative: %w", err)
		}
	}
	return updated, nil
}

// DeleteAlternative removes one alternative. The last row of a group cannot
// be deleted, and when the deleted row holds the correct flag a replacement
// is promoted first: no row is removed until a replacement correct row is
// committed. A failure after the promotion leaves the group consistent with
// a different correct answer, which is accepted behavior.
func (s *Service) DeleteAlternative(ctx context.Context, exerciseID, alternativeID int64) error {
	if exerciseID <= 0 || alternativeID <= 0 {
		return ErrInvalidInput
	}
	group, err := s.alternatives.ListByExercise(ctx, exerciseID)
	if err != nil {
		return fmt.Errorf("read alternative group: %w", err)
	}
	var target *store.AlternativeRow
	for i, row := range group {
		if row.ID == alternativeID {
			target = &group[i]
			break
		}
	}
	if target == nil {
		return store.ErrNotFound
	}
	if len(group) == 1 {
		return ErrLastAlternative
	}

	if target.IsCorrect {
		candidates := make([]store.AlternativeRow, 0, len(group)-1)
		for _, row := range group {
			if row.ID != alternativeID {
				candidates = append(candidates, row)
			}
		}
		replacement := s.pick(candidates)
		isTrue := true
		if _, err := s.alternatives.Update(ctx, replacement.ID, store.AlternativePatch{IsCorrect: &isTrue}); err != nil {
			return fmt.Errorf("promote replacement alternative: %w", err)
		}
	}

	if err := s.alternatives.Delete(ctx, alternativeID); err != nil {
		return err
	}
	return compactAfterDelete(ctx, group, alternativeID, func(r store.AlternativeRow) (int64, int) { return r.ID, r.SortOrder }, s.alternatives.SetOrder)
}

// ReorderAlternative moves an alternative to newIndex within its exercise
// using the shared -1 sentinel (the uniqueness index ignores negative
// orders, so displaced rows cannot collide).
func (s *Service) ReorderAlternative(ctx context.Context, exerciseID, alternativeID int64, newIndex int) error {
	if exerciseID <= 0 || alternativeID <= 0 || newIndex < 0 {
		return ErrInvalidInput
	}
	group, err := s.alternatives.ListByExercise(ctx, exerciseID)
	if err != nil {
		return fmt.Errorf("read alternative group: %w", err)
	}
	items := make([]orderedItem, len(group))
	for i, row := range group {
		items[i] = orderedItem{id: row.ID}
	}
	return renumberScope(ctx, items, alternativeID, newIndex, s.alternatives.SetOrder, negativeSentinel)
}
