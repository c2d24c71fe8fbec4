package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// PendingCheckout binds a single-use success token to the user and plan
// that started a hosted checkout. Entries live only between session
// creation and completion; the plan recorded here is the sole source for
// the created row's device limit, never client input.
type PendingCheckout struct {
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"user_id"`
	Plan      Plan      `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingCheckoutStore holds pending checkouts with a TTL. Consume must be
// atomic: two concurrent calls for the same token must not both succeed.
type PendingCheckoutStore interface {
	// Put stores the entry under its token for at most ttl.
	Put(ctx context.Context, pending *PendingCheckout, ttl time.Duration) error

	// Consume atomically removes and returns the entry, or
	// ErrCheckoutNotFound if the token is unknown, expired or already
	// consumed.
	Consume(ctx context.Context, token string) (*PendingCheckout, error)
}

// MemoryPendingCheckoutStore keeps pending checkouts in process memory.
// Unconsumed entries are lost on restart; production deployments should
// prefer the Redis-backed store.
type MemoryPendingCheckoutStore struct {
	mu      sync.Mutex
	entries map[string]memoryPendingEntry
	ticker  *time.Ticker
	done    chan struct{}
}

type memoryPendingEntry struct {
	pending   PendingCheckout
	expiresAt time.Time
}

// NewMemoryPendingCheckoutStore creates an in-memory store. A positive
// cleanupInterval starts a background sweep of expired entries.
func NewMemoryPendingCheckoutStore(cleanupInterval time.Duration) *MemoryPendingCheckoutStore {
	store := &MemoryPendingCheckoutStore{
		entries: make(map[string]memoryPendingEntry),
		done:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		store.ticker = time.NewTicker(cleanupInterval)
		go store.cleanupLoop()
	}
	return store
}

func (m *MemoryPendingCheckoutStore) Put(_ context.Context, pending *PendingCheckout, ttl time.Duration) error {
	if pending == nil || pending.Token == "" {
		return ErrMissingArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[pending.Token] = memoryPendingEntry{
		pending:   *pending,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (m *MemoryPendingCheckoutStore) Consume(_ context.Context, token string) (*PendingCheckout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[token]
	if !ok {
		return nil, ErrCheckoutNotFound
	}
	delete(m.entries, token)

	if time.Now().After(entry.expiresAt) {
		return nil, ErrCheckoutNotFound
	}
	pending := entry.pending
	return &pending, nil
}

// Close stops the background cleanup goroutine.
func (m *MemoryPendingCheckoutStore) Close() {
	if m.ticker != nil {
		m.ticker.Stop()
		close(m.done)
	}
}

func (m *MemoryPendingCheckoutStore) cleanupLoop() {
	for {
		select {
		case <-m.done:
			return
		case now := <-m.ticker.C:
			m.mu.Lock()
			for token, entry := range m.entries {
				if now.After(entry.expiresAt) {
					delete(m.entries, token)
				}
			}
			m.mu.Unlock()
		}
	}
}

// RedisPendingCheckoutStore backs pending checkouts with Redis so entries
// survive process restarts up to their TTL. GETDEL gives the atomic
// single-use consume.
type RedisPendingCheckoutStore struct {
	client *redis.Client
	prefix string
}

// NewRedisPendingCheckoutStore creates a Redis-backed store.
func NewRedisPendingCheckoutStore(client *redis.Client) *RedisPendingCheckoutStore {
	return &RedisPendingCheckoutStore{client: client, prefix: "checkout:pending:"}
}

func (r *RedisPendingCheckoutStore) Put(ctx context.Context, pending *PendingCheckout, ttl time.Duration) error {
	if pending == nil || pending.Token == "" {
		return ErrMissingArgument
	}
	data, err := json.Marshal(pending)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+pending.Token, data, ttl).Err()
}

func (r *RedisPendingCheckoutStore) Consume(ctx context.Context, token string) (*PendingCheckout, error) {
	data, err := r.client.GetDel(ctx, r.prefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCheckoutNotFound
	}
	if err != nil {
		return nil, err
	}

	var pending PendingCheckout
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, err
	}
	return &pending, nil
}
