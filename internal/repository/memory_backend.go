package repository

import (
	"context"
	"sync"
)

// MemoryBackend keeps values in process memory. Used for tests and throwaway demos.
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryBackend constructs an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string][]byte)}
}

// LoadAll implements Backend.
func (b *MemoryBackend) LoadAll(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	value, ok := b.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

// SaveAll implements Backend.
func (b *MemoryBackend) SaveAll(_ context.Context, key string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = append([]byte(nil), payload...)
	return nil
}
