package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu          sync.Mutex
	collections map[string][]memoryDoc
	newID       func() string
}

type memoryDoc struct {
	id   string
	data map[string]any
}

// NewMemory returns an empty in-memory store that assigns UUID document IDs.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string][]memoryDoc),
		newID:       uuid.NewString,
	}
}

// List implements Store.
func (m *Memory) List(_ context.Context, collection string, limit int) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collections[collection]
	n := len(docs)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]Document, 0, n)
	for i := len(docs) - 1; i >= len(docs)-n; i-- {
		d := docs[i]
		raw, err := json.Marshal(d.data)
		if err != nil {
			return nil, fmt.Errorf("docstore: marshal %s/%s: %w", collection, d.id, err)
		}
		out = append(out, Document{ID: d.id, Data: raw})
	}
	return out, nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, collection, id string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(collection, id)
	if i < 0 {
		return nil, ErrNotFound
	}
	raw, err := json.Marshal(m.collections[collection][i].data)
	if err != nil {
		return nil, fmt.Errorf("docstore: marshal %s/%s: %w", collection, id, err)
	}
	return &Document{ID: id, Data: raw}, nil
}

// Create implements Store. The document's own "id" field, if any, is dropped;
// the store assigns the ID.
func (m *Memory) Create(_ context.Context, collection string, data any) (string, error) {
	fields, err := toFields(data)
	if err != nil {
		return "", err
	}
	delete(fields, "id")

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.newID()
	m.collections[collection] = append(m.collections[collection], memoryDoc{id: id, data: fields})
	return id, nil
}

// Update implements Store.
func (m *Memory) Update(_ context.Context, collection, id string, patch map[string]any) error {
	normalized, err := toFields(patch)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(collection, id)
	if i < 0 {
		return ErrNotFound
	}
	doc := m.collections[collection][i]
	for k, v := range normalized {
		if v == nil {
			delete(doc.data, k)
			continue
		}
		doc.data[k] = v
	}
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(collection, id)
	if i < 0 {
		return ErrNotFound
	}
	docs := m.collections[collection]
	m.collections[collection] = append(docs[:i:i], docs[i+1:]...)
	return nil
}

func (m *Memory) indexOf(collection, id string) int {
	for i, d := range m.collections[collection] {
		if d.id == id {
			return i
		}
	}
	return -1
}

// toFields round-trips v through JSON so the memory store holds exactly what
// the SQLite store would persist.
func toFields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("docstore: marshal document: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("docstore: document must be a JSON object: %w", err)
	}
	return fields, nil
}
