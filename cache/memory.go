// Package cache provides the read-through caches used around matching and
// reference lookups.
package cache

import "sync"

// Store is a concurrency-safe key/value cache. Memory never evicts; LRU
// drops the least recently used entry once full. Concurrent writers of the same key race and the last one wins, which is
// acceptable because values are derived deterministically from the key.
type Store[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Len() int
}

// Memory is an in-process Store guarded by a read/write mutex.
type Memory[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

// NewMemory creates an empty in-memory store.
func NewMemory[K comparable, V any]() *Memory[K, V] {
	return &Memory[K, V]{data: make(map[K]V)}
}

func (m *Memory[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *Memory[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *Memory[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
