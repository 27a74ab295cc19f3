package storage

import (
	"errors"
	"sort"
	"sync"
)

// ErrQuotaExceeded is returned by a [MemoryBackend] write that would exceed its quota.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Backend is the storage origin shared by every namespace.
type Backend interface {
	// GetItem returns the value under key and whether it exists.
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
	// Keys returns every key in the origin, sorted.
	Keys() ([]string, error)
}

// MemoryBackend keeps items in a map. The zero value is ready to use.
type MemoryBackend struct {
	// Quota caps the total size of stored values in bytes; 0 means unlimited.
	Quota int

	mu    sync.RWMutex
	items map[string]string
	size  int
}

// NewMemoryBackend returns an empty, unlimited backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]string)}
}

func (m *MemoryBackend) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.items[key]
	return value, ok, nil
}

func (m *MemoryBackend) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.items == nil {
		m.items = make(map[string]string)
	}

	next := m.size - len(m.items[key]) + len(value)
	if m.Quota > 0 && next > m.Quota {
		return ErrQuotaExceeded
	}

	m.items[key] = value
	m.size = next
	return nil
}

func (m *MemoryBackend) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.size -= len(m.items[key])
	delete(m.items, key)
	return nil
}

func (m *MemoryBackend) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
