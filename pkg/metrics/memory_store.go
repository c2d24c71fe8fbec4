package metrics

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development. Users
// must be added before their counters can move.
type MemoryStore struct {
	mu    sync.Mutex
	usage map[uuid.UUID]Usage
}

// NewMemoryStore creates an empty in-memory usage store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{usage: make(map[uuid.UUID]Usage)}
}

// AddUser registers a user with zero counters.
func (m *MemoryStore) AddUser(userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.usage[userID]; !ok {
		m.usage[userID] = Usage{}
	}
}

func (m *MemoryStore) IncrementUsage(_ context.Context, userID uuid.UUID, mutedSeconds, adsMuted int64) (Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	usage, ok := m.usage[userID]
	if !ok {
		return Usage{}, ErrUserNotFound
	}
	usage.TotalMutedTime += mutedSeconds
	usage.TotalAdsMuted += adsMuted
	m.usage[userID] = usage
	return usage, nil
}

func (m *MemoryStore) Usage(_ context.Context, userID uuid.UUID) (Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	usage, ok := m.usage[userID]
	if !ok {
		return Usage{}, ErrUserNotFound
	}
	return usage, nil
}
