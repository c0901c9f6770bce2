// Package store holds the ConfigStore backends: an in-memory map, a
// directory of YAML files and a PostgreSQL JSONB table.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/facilitytables/internal/core"
	"github.com/JonMunkholm/facilitytables/internal/schema"
)

// MemoryStore is a ConfigStore backed by a map. Documents are copied on the way
// in and out.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, tableType string) (schema.Document, error) {
	m.mu.RLock()
	raw, ok := m.docs[tableType]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", tableType, core.ErrNoDocument)
	}
	return schema.ParseJSON(raw)
}

func (m *MemoryStore) Save(_ context.Context, tableType string, doc schema.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", tableType, err)
	}
	m.mu.Lock()
	m.docs[tableType] = raw
	m.mu.Unlock()
	return nil
}

// Delete removes the stored document for tableType, if any.
func (m *MemoryStore) Delete(_ context.Context, tableType string) error {
	m.mu.Lock()
	delete(m.docs, tableType)
	m.mu.Unlock()
	return nil
}

// Types lists the table types with a stored document, sorted.
func (m *MemoryStore) Types(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.docs))
	for k := range m.docs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}
