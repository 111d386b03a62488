package memory

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemoryStore keeps values in a process-local map
type InMemoryStore struct {
	data       map[string]valueWithExpiry
	defaultTTL time.Duration
	now        func() time.Time
	mu         sync.RWMutex
}

type valueWithExpiry struct {
	value  []byte
	expiry time.Time // zero means never
}

func (v valueWithExpiry) expired(now time.Time) bool {
	return !v.expiry.IsZero() && now.After(v.expiry)
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		data:       make(map[string]valueWithExpiry),
		defaultTTL: time.Hour,
		now:        time.Now,
	}
}

// Set stores a copy of value
func (m *InMemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ttl == 0 {
		ttl = m.defaultTTL
	}
	entry := valueWithExpiry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiry = m.now().Add(ttl)
	}
	m.data[key] = entry
	return nil
}

// Get retrieves a copy of the stored value
func (m *InMemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.data[key]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if entry.expired(m.now()) {
		delete(m.data, key)
		return nil, fmt.Errorf("%w: %s (expired)", ErrKeyNotFound, key)
	}
	return append([]byte(nil), entry.value...), nil
}

// Delete removes a key
func (m *InMemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// Exists checks if a live key exists
func (m *InMemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.data[key]
	if !exists || entry.expired(m.now()) {
		return false, nil
	}
	return true, nil
}

// SetTTL sets the default TTL
func (m *InMemoryStore) SetTTL(ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultTTL = ttl
}

// Close is a no-op
func (m *InMemoryStore) Close() error {
	return nil
}
