package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a size-bounded Store. It is safe for concurrent use.
type LRU[K comparable, V any] struct {
	c *lru.Cache[K, V]
}

// NewLRU creates a store holding at most size entries. A size below 1 is
// treated as 1.
func NewLRU[K comparable, V any](size int) *LRU[K, V] {
	c, err := lru.New[K, V](max(size, 1))
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &LRU[K, V]{c: c}
}

func (l *LRU[K, V]) Get(key K) (V, bool) { return l.c.Get(key) }

func (l *LRU[K, V]) Set(key K, value V) { l.c.Add(key, value) }

func (l *LRU[K, V]) Len() int { return l.c.Len() }
