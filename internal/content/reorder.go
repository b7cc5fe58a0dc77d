package content

import (
	"context"
	"fmt"

	"quizdeck/internal/store"
)

// The order invariant: within one scope the sort_order values are exactly
// {0 … n-1}. Moving a row cannot swap ranks directly, because writing an
// order another live row still holds would trip the (scope, sort_order)
// uniqueness rule and there is no transaction to hide the intermediate
// state. Instead every row is first displaced into a sentinel range disjoint
// from all legal final values, then committed to its final rank, one write
// per row per phase.

type orderedItem struct {
	id int64
}

type setOrderFunc func(ctx context.Context, id int64, order int) error

func negativeSentinel(int) int { return -1 }

// renumberScope moves moveID to newIndex within items (given in current
// order) and rewrites the whole scope through the two-phase protocol. A move
// to the row's current index is observably a no-op. A crash between phases
// leaves sentinel or partially committed orders behind; recovery is the
// operator's concern, not this function's.
func renumberScope(ctx context.Context, items []orderedItem, moveID int64, newIndex int, setOrder setOrderFunc, sentinel func(originalIndex int) int) error {
	oldIndex := -1
	for i, it := range items {
		if it.id == moveID {
			oldIndex = i
			break
		}
	}
	if oldIndex < 0 {
		return store.ErrNotFound
	}
	if newIndex > len(items)-1 {
		newIndex = len(items) - 1
	}
	if newIndex == oldIndex {
		return nil
	}

	reordered := make([]orderedItem, 0, len(items))
	reordered = append(reordered, items[:oldIndex]...)
	reordered = append(reordered, items[oldIndex+1:]...)
	reordered = append(reordered[:newIndex], append([]orderedItem{items[oldIndex]}, reordered[newIndex:]...)...)

	// Phase A: displace every row out of the legal range.
	for i, it := range items {
		if err := setOrder(ctx, it.id, sentinel(i)); err != nil {
			return fmt.Errorf("displace order: %w", err)
		}
	}
	// Phase B: commit final ranks in list order.
	for i, it := range reordered {
		if err := setOrder(ctx, it.id, i); err != nil {
			return fmt.Errorf("commit order: %w", err)
		}
	}
	return nil
}

// compactAfterDelete closes the gap a deletion left in the scope. Writes run
// in ascending order and only where the rank changes, so each write targets
// a rank freed either by the deletion itself or by the previous write; no
// sentinel phase is needed.
func compactAfterDelete[T any](ctx context.Context, group []T, deletedID int64, key func(T) (int64, int), setOrder setOrderFunc) error {
	idx := 0
	for _, row := range group {
		id, order := key(row)
		if id == deletedID {
			continue
		}
		if order != idx {
			if err := setOrder(ctx, id, idx); err != nil {
				return fmt.Errorf("compact order: %w", err)
			}
		}
		idx++
	}
	return nil
}
