package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/Iron-Ham/cadence/internal/domain"
	"github.com/Iron-Ham/cadence/internal/errors"
	"github.com/Iron-Ham/cadence/internal/event"
)

// MemoryStore is an in-process Repository.
type MemoryStore struct {
	mu    sync.RWMutex
	plans map[string]*domain.Snapshot
	locks planLocks
	bus   *event.Bus
}

// NewMemoryStore creates an empty store. bus may be nil.
func NewMemoryStore(bus *event.Bus) *MemoryStore {
	return &MemoryStore{
		plans: make(map[string]*domain.Snapshot),
		bus:   bus,
	}
}

// Put stores a copy of s, replacing any plan with the same ID. A snapshot
// without an ID is given one. Per-record validation runs first.
func (m *MemoryStore) Put(s *domain.Snapshot) (string, error) {
	c := s.Clone()
	c.EnsureID()
	if err := c.Validate(); err != nil {
		return "", errors.Wrapf(err, "plan %s", c.PlanID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[c.PlanID] = c
	return c.PlanID, nil
}

// Snapshot implements Repository.
func (m *MemoryStore) Snapshot(ctx context.Context, planID string) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.plans[planID]
	if !ok {
		return nil, planNotFound(planID)
	}
	return s.Clone(), nil
}

// PlanIDs implements Repository.
func (m *MemoryStore) PlanIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.plans))
	for id := range m.plans {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// AddDependency implements Repository.
func (m *MemoryStore) AddDependency(ctx context.Context, planID string, dep domain.Dependency) error {
	unlock := m.locks.lock(planID)
	defer unlock()

	s, err := m.Snapshot(ctx, planID)
	if err != nil {
		return err
	}
	if err := appendDependency(s, dep); err != nil {
		return err
	}

	m.mu.Lock()
	m.plans[planID] = s
	m.mu.Unlock()

	publishDependency(m.bus, planID, dep)
	return nil
}

// SetTaskStatus implements Repository.
func (m *MemoryStore) SetTaskStatus(ctx context.Context, planID, taskID string, status domain.TaskStatus) error {
	unlock := m.locks.lock(planID)
	defer unlock()

	s, err := m.Snapshot(ctx, planID)
	if err != nil {
		return err
	}
	old, err := setStatus(s, taskID, status)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.plans[planID] = s
	m.mu.Unlock()

	publishStatus(m.bus, planID, taskID, old, status)
	return nil
}
