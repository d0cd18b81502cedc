package store

import (
	"sync"
)

// Region keys under which the collections are persisted
const (
	KeyAnalyses  = "savedAnalyses"
	KeyDecks     = "savedCardDecks"
	KeyDismissed = "dismissedWords"
)

// KeyValueStore persists string values under string keys
type KeyValueStore interface {
	// Get returns the value for key and whether it exists
	Get(key string) (string, bool, error)

	// Set writes a single value
	Set(key, value string) error

	// SetAll writes all values or none of them
	SetAll(values map[string]string) error

	Close() error
}

// MemoryKV keeps values in memory. It is used by tests and by sessions that
// should leave nothing behind.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
	writes int
}

// NewMemoryKV creates an empty in-memory store
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

// Get returns the value for key
func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set writes a value
func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.writes++
	return nil
}

// SetAll writes several values
func (m *MemoryKV) SetAll(values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
		m.writes++
	}
	return nil
}

// Writes returns how many values have been written
func (m *MemoryKV) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Close is a no-op
func (m *MemoryKV) Close() error {
	return nil
}
