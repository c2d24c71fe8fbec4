package device

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	devices map[string]*Device // keyed by external device id
}

// NewMemoryStore creates an empty in-memory device store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{devices: make(map[string]*Device)}
}

func (m *MemoryStore) ByDeviceID(_ context.Context, deviceID string) (*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.devices[deviceID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID uuid.UUID) ([]Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var devices []Device
	for _, d := range m.devices {
		if d.UserID == userID {
			devices = append(devices, *d)
		}
	}
	return devices, nil
}

func (m *MemoryStore) CountByUser(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, d := range m.devices {
		if d.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) Create(_ context.Context, d *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.devices[d.DeviceID]; exists {
		return ErrAlreadyRegistered
	}
	cp := *d
	m.devices[d.DeviceID] = &cp
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID uuid.UUID, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[deviceID]
	if !ok || d.UserID != userID {
		return ErrNotFound
	}
	delete(m.devices, deviceID)
	return nil
}

func (m *MemoryStore) SetLastActive(_ context.Context, userID uuid.UUID, deviceID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[deviceID]
	if !ok || d.UserID != userID {
		return ErrNotFound
	}
	d.LastActive = at
	return nil
}
