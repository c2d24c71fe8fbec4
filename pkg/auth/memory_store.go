package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryUserStore is an in-memory UserStore for tests and local development.
type MemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*User
	byName  map[string]uuid.UUID
	byEmail map[string]uuid.UUID
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    make(map[uuid.UUID]*User),
		byName:  make(map[string]uuid.UUID),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (m *MemoryUserStore) Create(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	nameKey := strings.ToLower(user.Username)
	emailKey := strings.ToLower(user.Email)
	if _, exists := m.byName[nameKey]; exists {
		return ErrUserAlreadyExists
	}
	if _, exists := m.byEmail[emailKey]; exists {
		return ErrUserAlreadyExists
	}

	cp := *user
	m.byID[user.ID] = &cp
	m.byName[nameKey] = user.ID
	m.byEmail[emailKey] = user.ID
	return nil
}

func (m *MemoryUserStore) ByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *MemoryUserStore) ByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	id, ok := m.byName[strings.ToLower(username)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	return m.ByID(ctx, id)
}

func (m *MemoryUserStore) ByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	id, ok := m.byEmail[strings.ToLower(email)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	return m.ByID(ctx, id)
}
