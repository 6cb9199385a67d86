package storage

import (
	"context"
	"sync"
)

// MemoryAdapter keeps values in a process-local map. Values do not survive
// a restart; it is the stand-in for a local store when nothing durable is
// configured.
type MemoryAdapter struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryAdapter creates an empty MemoryAdapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{items: make(map[string]string)}
}

// GetItem returns the value stored under key.
func (m *MemoryAdapter) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, Unavailable(OpGet, key, err)
	}
	m.mu.RLock()
	v, ok := m.items[key]
	m.mu.RUnlock()
	return v, ok, nil
}

// SetItem stores data under key.
func (m *MemoryAdapter) SetItem(ctx context.Context, key, data string) error {
	if err := ctx.Err(); err != nil {
		return Unavailable(OpSet, key, err)
	}
	m.mu.Lock()
	m.items[key] = data
	m.mu.Unlock()
	return nil
}

// RemoveItem deletes key.
func (m *MemoryAdapter) RemoveItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return Unavailable(OpRemove, key, err)
	}
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryAdapter) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

var _ Adapter = (*MemoryAdapter)(nil)
