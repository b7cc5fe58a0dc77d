package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process implementation of the row stores with the same
// constraint behavior as the postgres stores: each call is atomic under one
// mutex (statement atomicity), correct-flag writes respect the transient
// window, and sort_order uniqueness holds per scope (partial for
// alternatives and exercises, full for modules).
type Memory struct {
	mu           sync.Mutex
	nextID       int64
	modules      map[int64]ModuleRow
	exercises    map[int64]ExerciseRow
	alternatives map[int64]AlternativeRow
}

func NewMemory() *Memory {
	return &Memory{
		modules:      make(map[int64]ModuleRow),
		exercises:    make(map[int64]ExerciseRow),
		alternatives: make(map[int64]AlternativeRow),
	}
}

func (m *Memory) Modules() Modules           { return memModules{m} }
func (m *Memory) Exercises() Exercises       { return memExercises{m} }
func (m *Memory) Alternatives() Alternatives { return memAlternatives{m} }
func (m *Memory) Cascade() Cascade           { return memCascade{m} }

func (m *Memory) allocID() int64 {
	m.nextID++
	return m.nextID
}

type memModules struct{ m *Memory }

func (s memModules) Insert(_ context.Context, row ModuleRow) (*ModuleRow, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, existing := range s.m.modules {
		if existing.CompanyID == row.CompanyID && existing.SortOrder == row.SortOrder {
			return nil, fmt.Errorf("insert module: %w: duplicate sort_order %d", ErrConstraintViolation, row.SortOrder)
		}
	}
	row.ID = s.m.allocID()
	row.CreatedAt = time.Now()
	s.m.modules[row.ID] = row
	out := row
	return &out, nil
}

func (s memModules) Update(_ context.Context, id int64, patch ModulePatch) (*ModuleRow, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	row, ok := s.m.modules[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Title != nil {
		row.Title = *patch.Title
	}
	if patch.Description != nil {
		row.Description = *patch.Description
	}
	if patch.ModuleType != nil {
		row.ModuleType = *patch.ModuleType
	}
	if patch.Unlocked != nil {
		row.Unlocked = *patch.Unlocked
	}
	s.m.modules[id] = row
	out := row
	return &out, nil
}

func (s memModules) SetOrder(_ context.Context, id int64, order int) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	row, ok := s.m.modules[id]
	if !ok {
		return ErrNotFound
	}
	for _, existing := range s.m.modules {
		if existing.ID != id && existing.CompanyID == row.CompanyID && existing.SortOrder == order {
			return fmt.Errorf("set module order: %w: duplicate sort_order %d", ErrConstraintViolation, order)
		}
	}
	row.SortOrder = order
	s.m.modules[id] = row
	return nil
}

func (s memModules) Delete(_ context.Context, id int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.modules[id]; !ok {
		return ErrNotFound
	}
	delete(s.m.modules, id)
	return nil
}

func (s memModules) ListByCompany(_ context.Context, companyID int64) ([]ModuleRow, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	items := make([]ModuleRow, 0)
	for _, row := range s.m.modules {
		if row.CompanyID == companyID {
			items = append(items, row)
		}
	}
	sortRowsByOrder(items, func(r ModuleRow) (int, int64) { return r.SortOrder, r.ID })
	return items, nil
}

type memExercises struct{ m *Memory }

func (s memExercises) Insert(_ context.Context, row ExerciseRow) (*ExerciseRow, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if row.SortOrder >= 0 {
		for _, existing := range s.m.exercises {
			if existing.ModuleID == row.ModuleID && existing.SortOrder == row.SortOrder {
				return nil, fmt.Errorf("insert exercise: %w: duplicate sort_order %d", ErrConstraintViolation, row.SortOrder)
			}
		}
	}
	if row.ImageURLs == nil {
		row.ImageURLs = []string{}
	}
	row.ID = s.m.allocID()
	row.CreatedAt = time.Now()
	s.m.exercises[row.ID] = row
	out := row
	return &out, nil
}

func (s memExercises) Update(_ context.Context, id int64, patch ExercisePatch) (*ExerciseRow, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	row, ok := s.m.exercises[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Question != nil {
		row.Question = *patch.Question
	}
	if patch.ImageURLs != nil {
		row.ImageURLs = append([]string(nil), (*patch.ImageURLs)...)
	}
	if patch.VideoURL != nil {
		v := *patch.VideoURL
		row.VideoURL = &v
	}
	if patch.MediaLayout != nil {
		v := *patch.MediaLayout
		row.MediaLayout = &v
	}
	if patch.Weight != nil {
		row.Weight = *patch.Weight
	}
	s.m.exercises[id] = row
	out := row
	return &out, nil
}

func (s memExercises) SetOrder(_ context.Context, id int64, order int) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	row, ok := s.m.exercises[id]
	if !ok {
		return ErrNotFound
	}
	if order >= 0 {
		for _, existing := range s.m.exercises {
			if existing.ID != id && existing.ModuleID == row.ModuleID && existing.SortOrder == order {
				return fmt.Errorf("set exercise order: %w: duplicate sort_order %d", ErrConstraintViolation, order)
			}
		}
	}
	row.SortOrder = order
	s.m.exercises[id] = row
	return nil
}

func (s memExercises) Delete(_ context.Context, id int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.exercises[id]; !ok {
		return ErrNotFound
	}
	delete(s.m.exercises, id)
	return nil
}

func (s memExercises) ListByModule(_ context.Context, moduleID int64) ([]ExerciseRow, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	items := make([]ExerciseRow, 0)
	for _, row := range s.m.exercises {
		if row.ModuleID == moduleID {
			items = append(items, row)
		}
	}
	sortRowsByOrder(items, func(r ExerciseRow) (int, int64) { return r.SortOrder, r.ID })
	return items, nil
}

type memAlternatives struct{ m *Memory }

func (s memAlternatives) Insert(_ context.Context, row AlternativeRow) (*AlternativeRow, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if row.IsCorrect && s.m.correctCountLocked(row.ExerciseID, 0) >= maxCorrectRows {
		return nil, fmt.Errorf("insert alternative: %w: correct slot contended", ErrConstraintViolation)
	}
	if row.SortOrder >= 0 {
		for _, existing := range s.m.alternatives {
			if existing.ExerciseID == row.ExerciseID && existing.SortOrder == row.SortOrder {
				return nil, fmt.Errorf("insert alternative: %w: duplicate sort_order %d", ErrConstraintViolation, row.SortOrder)
			}
		}
	}
	if row.ImageURLs == nil {
		row.ImageURLs = []string{}
	}
	row.ID = s.m.allocID()
	row.CreatedAt = time.Now()
	s.m.alternatives[row.ID] = row
	out := row
	return &out, nil
}

func (s memAlternatives) Update(_ context.Context, id int64, patch AlternativePatch) (*AlternativeRow, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	row, ok := s.m.alternatives[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.IsCorrect != nil && *patch.IsCorrect && !row.IsCorrect {
		if s.m.correctCountLocked(row.ExerciseID, id) >= maxCorrectRows {
			return nil, fmt.Errorf("update alternative: %w: correct slot contended", ErrConstraintViolation)
		}
	}
	if patch.Content != nil {
		row.Content = *patch.Content
	}
	if patch.IsCorrect != nil {
		row.IsCorrect = *patch.IsCorrect
	}
	if patch.Explanation != nil {
		v := *patch.Explanation
		row.Explanation = &v
	}
	if patch.ImageURLs != nil {
		row.ImageURLs = append([]string(nil), (*patch.ImageURLs)...)
	}
	s.m.alternatives[id] = row
	out := row
	return &out, nil
}

func (s memAlternatives) SetOrder(_ context.Context, id int64, order int) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	row, ok := s.m.alternatives[id]
	if !ok {
		return ErrNotFound
	}
	if order >= 0 {
		for _, existing := range s.m.alternatives {
			if existing.ID != id && existing.ExerciseID == row.ExerciseID && existing.SortOrder == order {
				return fmt.Errorf("set alternative order: %w: duplicate sort_order %d", ErrConstraintViolation, order)
			}
		}
	}
	row.SortOrder = order
	s.m.alternatives[id] = row
	return nil
}

func (s memAlternatives) Delete(_ context.Context, id int64) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.alternatives[id]; !ok {
		return ErrNotFound
	}
	delete(s.m.alternatives, id)
	return nil
}

func (s memAlternatives) ListByExercise(_ context.Context, exerciseID int64) ([]AlternativeRow, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	items := make([]AlternativeRow, 0)
	for _, row := range s.m.alternatives {
		if row.ExerciseID == exerciseID {
			items = append(items, row)
		}
	}
	sortRowsByOrder(items, func(r AlternativeRow) (int, int64) { return r.SortOrder, r.ID })
	return items, nil
}

func (m *Memory) correctCountLocked(exerciseID, excludeID int64) int {
	count := 0
	for _, row := range m.alternatives {
		if row.ExerciseID == exerciseID && row.IsCorrect && row.ID != excludeID {
			count++
		}
	}
	return count
}

type memCascade struct{ m *Memory }

func (c memCascade) DeleteExerciseChildren(_ context.Context, exerciseID int64) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	for id, row := range c.m.alternatives {
		if row.ExerciseID == exerciseID {
			delete(c.m.alternatives, id)
		}
	}
	return nil
}

func (c memCascade) DeleteModuleChildren(ctx context.Context, moduleID int64) error {
	c.m.mu.Lock()
	exerciseIDs := make([]int64, 0)
	for id, row := range c.m.exercises {
		if row.ModuleID == moduleID {
			exerciseIDs = append(exerciseIDs, id)
			delete(c.m.exercises, id)
		}
	}
	c.m.mu.Unlock()
	for _, id := range exerciseIDs {
		if err := c.DeleteExerciseChildren(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func sortRowsByOrder[T any](items []T, key func(T) (int, int64)) {
	sort.Slice(items, func(i, j int) bool {
		oi, idi := key(items[i])
		oj, idj := key(items[j])
		if oi != oj {
			return oi < oj
		}
		return idi < idj
	})
}
