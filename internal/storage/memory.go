package storage

import (
	"sync"

	"staffsync/internal/staff"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Values do not survive the process, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryStorage struct {
	values map[string][]byte
	mu     sync.RWMutex
}

// NewMemoryStorage creates an empty in-memory medium.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key, or nil if absent.
func (m *MemoryStorage) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Put stores a copy of value under key.
func (m *MemoryStorage) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

// Close is a no-op for the in-memory medium.
func (m *MemoryStorage) Close() error {
	return nil
}

// Compile-time check that MemoryStorage implements staff.Storage interface
var _ staff.Storage = (*MemoryStorage)(nil)
