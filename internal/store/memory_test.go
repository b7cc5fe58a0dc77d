package store

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryModulesRejectDuplicateOrder(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	if _, err := mem.Modules().Insert(ctx, ModuleRow{CompanyID: 1, Title: "a", SortOrder: 0}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err := mem.Modules().Insert(ctx, ModuleRow{CompanyID: 1, Title: "b", SortOrder: 0})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
	// a different company owns a separate sequence
	if _, err := mem.Modules().Insert(ctx, ModuleRow{CompanyID: 2, Title: "c", SortOrder: 0}); err != nil {
		t.Fatalf("insert for other company: %v", err)
	}
}

func TestMemoryExercisesAllowNegativeOrderDuplicates(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	a, err := mem.Exercises().Insert(ctx, ExerciseRow{ModuleID: 1, Question: "a", SortOrder: 0})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	b, err := mem.Exercises().Insert(ctx, ExerciseRow{ModuleID: 1, Question: "b", SortOrder: 1})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	// the uniqueness rule only covers non-negative orders
	if err := mem.Exercises().SetOrder(ctx, a.ID, -1); err != nil {
		t.Fatalf("displace a: %v", err)
	}
	if err := mem.Exercises().SetOrder(ctx, b.ID, -1); err != nil {
		t.Fatalf("displace b: %v", err)
	}

	if err := mem.Exercises().SetOrder(ctx, a.ID, 0); err != nil {
		t.Fatalf("commit a: %v", err)
	}
	if err := mem.Exercises().SetOrder(ctx, b.ID, 0); !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected constraint violation on live order, got %v", err)
	}
}

func TestMemoryAlternativesCorrectSlotWindow(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	if _, err := mem.Alternatives().Insert(ctx, AlternativeRow{ExerciseID: 1, Content: "a", IsCorrect: true, SortOrder: 0}); err != nil {
		t.Fatalf("insert holder: %v", err)
	}
	// one transient contender is allowed
	second, err := mem.Alternatives().Insert(ctx, AlternativeRow{ExerciseID: 1, Content: "b", IsCorrect: true, SortOrder: 1})
	if err != nil {
		t.Fatalf("insert contender: %v", err)
	}
	// a third correct row is a lost race
	_, err = mem.Alternatives().Insert(ctx, AlternativeRow{ExerciseID: 1, Content: "c", IsCorrect: true, SortOrder: 2})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected constraint violation, got %v", err)
	}

	isFalse := false
	if _, err := mem.Alternatives().Update(ctx, second.ID, AlternativePatch{IsCorrect: &isFalse}); err != nil {
		t.Fatalf("demote: %v", err)
	}
	// after the demote the slot frees up again
	if _, err := mem.Alternatives().Insert(ctx, AlternativeRow{ExerciseID: 1, Content: "c", IsCorrect: true, SortOrder: 2}); err != nil {
		t.Fatalf("insert after demote: %v", err)
	}
}

func TestMemoryAlternativesPromoteRespectsWindow(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	var ids []int64
	for i, correct := range []bool{true, true, false} {
		row, err := mem.Alternatives().Insert(ctx, AlternativeRow{ExerciseID: 1, Content: "x", IsCorrect: correct, SortOrder: i})
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		ids = append(ids, row.ID)
	}

	isTrue := true
	_, err := mem.Alternatives().Update(ctx, ids[2], AlternativePatch{IsCorrect: &isTrue})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected constraint violation on third correct, got %v", err)
	}
	// re-asserting the flag on a row that already holds it is a no-op write
	if _, err := mem.Alternatives().Update(ctx, ids[0], AlternativePatch{IsCorrect: &isTrue}); err != nil {
		t.Fatalf("idempotent promote: %v", err)
	}
}

func TestMemoryListsAreOrdered(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	for _, order := range []int{2, 0, 1} {
		if _, err := mem.Alternatives().Insert(ctx, AlternativeRow{ExerciseID: 1, Content: "x", SortOrder: order}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	items, err := mem.Alternatives().ListByExercise(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i, row := range items {
		if row.SortOrder != i {
			t.Fatalf("list not ordered: %v at %d", row.SortOrder, i)
		}
	}
}

func TestMemoryNotFound(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	if _, err := mem.Modules().Update(ctx, 99, ModulePatch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mem.Exercises().SetOrder(ctx, 99, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mem.Alternatives().Delete(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryCascadeDeletesChildren(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	ex, err := mem.Exercises().Insert(ctx, ExerciseRow{ModuleID: 4, Question: "q", SortOrder: 0})
	if err != nil {
		t.Fatalf("insert exercise: %v", err)
	}
	if _, err := mem.Alternatives().Insert(ctx, AlternativeRow{ExerciseID: ex.ID, Content: "a", SortOrder: 0}); err != nil {
		t.Fatalf("insert alternative: %v", err)
	}

	if err := mem.Cascade().DeleteModuleChildren(ctx, 4); err != nil {
		t.Fatalf("cascade: %v", err)
	}
	if left, _ := mem.Exercises().ListByModule(ctx, 4); len(left) != 0 {
		t.Fatalf("exercises not cascaded")
	}
	if left, _ := mem.Alternatives().ListByExercise(ctx, ex.ID); len(left) != 0 {
		t.Fatalf("alternatives not cascaded")
	}
}
