package session

import (
	"context"
	"sync"
	"time"
)

// MemoryKV is an in-process KV for tests and the CLI.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

// Get implements KV.
func (m *MemoryKV) Get(_ context.Context, clientID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[clientID]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Put implements KV.
func (m *MemoryKV) Put(_ context.Context, clientID string, data []byte, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[clientID] = append([]byte(nil), data...)
	return nil
}

// Delete implements KV.
func (m *MemoryKV) Delete(_ context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, clientID)
	return nil
}
