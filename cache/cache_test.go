package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-scout/models"
)

func TestMemoryStoreConcurrentWriters(t *testing.T) {
	store := NewMemory[Key, int]()
	key := Key{Make: "toyota", Model: "yaris", Year: 2012}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Set(key, 42)
			v, ok := store.Get(key)
			assert.True(t, ok)
			assert.Equal(t, 42, v)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.Len())
}

func TestMemoryReferenceCacheMissAndHit(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryReferenceCache()
	key := Key{Make: "ford", Model: "focus", Year: 2015}

	_, err := c.Get(ctx, key)
	require.ErrorIs(t, err, ErrCacheMiss)

	records := []models.ReferenceRecord{{Source: "edmunds", Make: "Ford", Model: "Focus", Year: 2015}}
	require.NoError(t, c.Set(ctx, key, records))

	records[0].Source = "mutated"
	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "edmunds", got[0].Source, "cache must keep its own copy")
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "toyota|yaris|2012", Key{Make: "toyota", Model: "yaris", Year: 2012}.String())
}

func TestRedisKeyPrefix(t *testing.T) {
	c := newRedisReferenceCache(nil, "", 0)
	assert.Equal(t, "carscout:ref:honda|jazz|2010", c.key(Key{Make: "honda", Model: "jazz", Year: 2010}))
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	store := NewLRU[string, int](2)
	store.Set("a", 1)
	store.Set("b", 2)

	_, ok := store.Get("a")
	require.True(t, ok)

	store.Set("c", 3)

	_, ok = store.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := store.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, store.Len())
}

func TestLRUMinimumSize(t *testing.T) {
	store := NewLRU[string, int](0)
	store.Set("a", 1)
	store.Set("b", 2)
	assert.Equal(t, 1, store.Len())
}
