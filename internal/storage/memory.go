package storage

import (
	"context"
	"maps"
	"sync"
)

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]string),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *MemoryStore) Set(_ context.Context, entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	maps.Copy(m.entries, entries)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// Entries returns a copy of everything held, for tests and diagnostics.
func (m *MemoryStore) Entries() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.entries)
}
