package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps buckets in a map.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]Bucket
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]Bucket)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string) (Bucket, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[key]
	return b, ok, nil
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, key string, b Bucket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[key] = b
	return nil
}

// Sweep implements Sweeper.
func (m *MemoryStore) Sweep(_ context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, b := range m.buckets {
		if !b.ResetAt.After(before) {
			delete(m.buckets, k)
		}
	}
	return nil
}

// Len returns the number of tracked keys.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}
