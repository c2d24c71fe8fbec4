package subscription

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	byUID map[uuid.UUID]*Subscription
	byRef map[string]uuid.UUID
}

// NewMemoryStore creates an empty in-memory subscription store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byUID: make(map[uuid.UUID]*Subscription),
		byRef: make(map[string]uuid.UUID),
	}
}

func (m *MemoryStore) ByUserID(_ context.Context, userID uuid.UUID) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.byUID[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (m *MemoryStore) BySubscriptionRef(_ context.Context, ref string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	userID, ok := m.byRef[ref]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.byUID[userID]
	return &cp, nil
}

func (m *MemoryStore) Create(_ context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byUID[sub.UserID]; exists {
		return ErrAlreadyExists
	}
	cp := *sub
	m.byUID[sub.UserID] = &cp
	if sub.SubscriptionRef != "" {
		m.byRef[sub.SubscriptionRef] = sub.UserID
	}
	return nil
}

func (m *MemoryStore) Update(_ context.Context, sub *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.byUID[sub.UserID]
	if !ok {
		return ErrNotFound
	}
	if existing.SubscriptionRef != sub.SubscriptionRef {
		delete(m.byRef, existing.SubscriptionRef)
		if sub.SubscriptionRef != "" {
			m.byRef[sub.SubscriptionRef] = sub.UserID
		}
	}
	cp := *sub
	m.byUID[sub.UserID] = &cp
	return nil
}
