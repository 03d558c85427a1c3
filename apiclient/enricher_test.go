package apiclient

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-scout/cache"
	"car-scout/models"
	"car-scout/utils"
)

type fakeSource struct {
	name    string
	calls   atomic.Int32
	records map[cache.Key][]models.ReferenceRecord
	fail    error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(_ context.Context, key cache.Key) ([]models.ReferenceRecord, error) {
	f.calls.Add(1)
	if f.fail != nil {
		return nil, f.fail
	}
	records, ok := f.records[key]
	if !ok {
		return nil, ErrNoData
	}
	return records, nil
}

var focusKey = cache.Key{Make: "ford", Model: "focus", Year: 2015}

func TestKeysFor(t *testing.T) {
	keys := KeysFor([]*models.Listing{
		{Make: "Toyota", Model: "Yaris 1.3", Year: 2012},
		{Make: "toyota", Model: "Yaris", Year: 2012},
		{Make: "", Model: "Mystery"},
		{Make: "Ford", Model: "Focus", Year: 2015},
	})
	assert.Equal(t, []cache.Key{yarisKey, focusKey}, keys)
}

func TestEnricherCombinesSourcesAndCaches(t *testing.T) {
	a := &fakeSource{name: "a", records: map[cache.Key][]models.ReferenceRecord{
		yarisKey: {{Source: "a", Make: "Toyota", Model: "Yaris", Year: 2012}},
		focusKey: {{Source: "a", Make: "Ford", Model: "Focus", Year: 2015}},
	}}
	b := &fakeSource{name: "b", records: map[cache.Key][]models.ReferenceRecord{
		yarisKey: {
			{Source: "b", Make: "Toyota", Model: "Yaris", Year: 2012},
			{Source: "b", Make: "toyota", Model: "yaris", Year: 2012},
		},
	}}
	c := cache.NewMemoryReferenceCache()
	e := NewEnricher([]Source{a, b}, c, 2, 0, utils.NewNopLogger())

	catalog, err := e.Fetch(context.Background(), []cache.Key{yarisKey, focusKey})
	require.NoError(t, err)
	require.Len(t, catalog, 3, "duplicate records from one source collapse")
	assert.Equal(t, "a", catalog[0].Source)
	assert.Equal(t, "b", catalog[1].Source)
	assert.Equal(t, "Ford", catalog[2].Make)

	again, err := e.Fetch(context.Background(), []cache.Key{yarisKey, focusKey})
	require.NoError(t, err)
	assert.Equal(t, catalog, again)
	assert.Equal(t, int32(2), a.calls.Load(), "second pass is served from cache")
	assert.Equal(t, int32(2), b.calls.Load())
}

func TestEnricherSkipsFailingSources(t *testing.T) {
	good := &fakeSource{name: "good", records: map[cache.Key][]models.ReferenceRecord{
		yarisKey: {{Source: "good", Make: "Toyota", Model: "Yaris", Year: 2012}},
	}}
	bad := &fakeSource{name: "bad", fail: errors.New("connection refused")}
	c := cache.NewMemoryReferenceCache()
	e := NewEnricher([]Source{good, bad}, c, 3, 0, utils.NewNopLogger())

	catalog, err := e.Fetch(context.Background(), []cache.Key{yarisKey})
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, "good", catalog[0].Source)

	_, err = c.Get(context.Background(), yarisKey)
	assert.ErrorIs(t, err, cache.ErrCacheMiss, "partial results are not cached")
}

func TestEnricherCancelled(t *testing.T) {
	src := &fakeSource{name: "a"}
	e := NewEnricher([]Source{src}, nil, 1, 0, utils.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	keys := make([]cache.Key, 10)
	for i := range keys {
		keys[i] = cache.Key{Make: "ford", Model: "focus", Year: 2000 + i}
	}
	_, err := e.Fetch(ctx, keys)
	assert.ErrorIs(t, err, context.Canceled)
}
