package content

import (
	"context"
	"errors"
	"testing"

	"quizdeck/internal/store"
)

func seedModules(t *testing.T, mem *store.Memory, companyID int64, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		row, err := mem.Modules().Insert(context.Background(), store.ModuleRow{
			CompanyID: companyID, Title: "m", ModuleType: ModuleTypeModule, SortOrder: i,
		})
		if err != nil {
			t.Fatalf("seed module: %v", err)
		}
		ids = append(ids, row.ID)
	}
	return ids
}

func seedExercises(t *testing.T, mem *store.Memory, moduleID int64, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		row, err := mem.Exercises().Insert(context.Background(), store.ExerciseRow{
			ModuleID: moduleID, Question: "q", Weight: 1, SortOrder: i,
		})
		if err != nil {
			t.Fatalf("seed exercise: %v", err)
		}
		ids = append(ids, row.ID)
	}
	return ids
}

func moduleOrder(t *testing.T, mem *store.Memory, companyID int64) []int64 {
	t.Helper()
	group, err := mem.Modules().ListByCompany(context.Background(), companyID)
	if err != nil {
		t.Fatalf("list modules: %v", err)
	}
	ids := make([]int64, len(group))
	for i, row := range group {
		if row.SortOrder != i {
			t.Fatalf("orders not dense at position %d: %d", i, row.SortOrder)
		}
		ids[i] = row.ID
	}
	return ids
}

func exerciseOrder(t *testing.T, mem *store.Memory, moduleID int64) []int64 {
	t.Helper()
	group, err := mem.Exercises().ListByModule(context.Background(), moduleID)
	if err != nil {
		t.Fatalf("list exercises: %v", err)
	}
	ids := make([]int64, len(group))
	for i, row := range group {
		if row.SortOrder != i {
			t.Fatalf("orders not dense at position %d: %d", i, row.SortOrder)
		}
		ids[i] = row.ID
	}
	return ids
}

func TestReorderModuleMovesAndStaysDense(t *testing.T) {
	mem := store.NewMemory()
	svc := testService(t, mem)
	ids := seedModules(t, mem, 1, 4)

	if err := svc.ReorderModule(context.Background(), 1, ids[3], 0); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	got := moduleOrder(t, mem, 1)
	want := []int64{ids[3], ids[0], ids[1], ids[2]}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch: got %v want %v", got, want)
		}
	}
}

func TestReorderModuleToOwnIndexIsNoOp(t *testing.T) {
	mem := store.NewMemory()
	svc := testService(t, mem)
	ids := seedModules(t, mem, 1, 3)

	if err := svc.ReorderModule(context.Background(), 1, ids[1], 1); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	got := moduleOrder(t, mem, 1)
	for i := range ids {
		if got[i] != ids[i] {
			t.Fatalf("no-op move changed the order: got %v want %v", got, ids)
		}
	}
}

func TestReorderModuleClampsBeyondEnd(t *testing.T) {
	mem := store.NewMemory()
	svc := testService(t, mem)
	ids := seedModules(t, mem, 1, 3)

	if err := svc.ReorderModule(context.Background(), 1, ids[0], 99); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	got := moduleOrder(t, mem, 1)
	want := []int64{ids[1], ids[2], ids[0]}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch: got %v want %v", got, want)
		}
	}
}

func TestReorderModuleUnknownID(t *testing.T) {
	mem := store.NewMemory()
	svc := testService(t, mem)
	seedModules(t, mem, 1, 2)

	err := svc.ReorderModule(context.Background(), 1, 999, 0)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReorderExerciseMiddleMove(t *testing.T) {
	mem := store.NewMemory()
	svc := testService(t, mem)
	ids := seedExercises(t, mem, 5, 5)

	if err := svc.ReorderExercise(context.Background(), 5, ids[1], 3); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	got := exerciseOrder(t, mem, 5)
	want := []int64{ids[0], ids[2], ids[3], ids[1], ids[4]}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch: got %v want %v", got, want)
		}
	}
}

func TestReorderAlternativeKeepsCorrectFlag(t *testing.T) {
	mem := store.NewMemory()
	svc := testService(t, mem)
	ids := seedAlternatives(t, mem, 1, []bool{true, false, false})

	if err := svc.ReorderAlternative(context.Background(), 1, ids[0], 2); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	group, _ := mem.Alternatives().ListByExercise(context.Background(), 1)
	want := []int64{ids[1], ids[2], ids[0]}
	for i, row := range group {
		if row.ID != want[i] {
			t.Fatalf("order mismatch at %d: got %d want %d", i, row.ID, want[i])
		}
		if row.SortOrder != i {
			t.Fatalf("orders not dense: %d at position %d", row.SortOrder, i)
		}
	}
	if got := correctIDs(t, mem, 1); len(got) != 1 || got[0] != ids[0] {
		t.Fatalf("moving a row must not touch its correct flag, got %v", got)
	}
}

// A failure during phase B leaves sentinel orders behind; the next
// renumber must still locate every row and finish the job.
func TestRenumberScopeRecoversFromPartialCommit(t *testing.T) {
	mem := store.NewMemory()
	svc := testService(t, mem)
	ids := seedExercises(t, mem, 5, 3)

	// Displace every row by hand, as an interrupted phase A would.
	for _, id := range ids {
		if err := mem.Exercises().SetOrder(context.Background(), id, -1); err != nil {
			t.Fatalf("displace: %v", err)
		}
	}

	if err := svc.ReorderExercise(context.Background(), 5, ids[2], 0); err != nil {
		t.Fatalf("reorder over sentinel state: %v", err)
	}
	got := exerciseOrder(t, mem, 5)
	if got[0] != ids[2] {
		t.Fatalf("moved row should land first, got %v", got)
	}
}

func TestReorderValidation(t *testing.T) {
	mem := store.NewMemory()
	svc := testService(t, mem)

	if err := svc.ReorderModule(context.Background(), 0, 1, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := svc.ReorderExercise(context.Background(), 1, 1, -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := svc.ReorderAlternative(context.Background(), 1, 0, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
