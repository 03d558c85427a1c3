package apiclient

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"car-scout/cache"
	"car-scout/models"
	"car-scout/services"
	"car-scout/utils"
)

// Enricher gathers reference records for many vehicles from every source
// concurrently, reading through a cache.
type Enricher struct {
	sources        []Source
	cache          cache.ReferenceCache
	maxConcurrency int
	rateLimitMs    int
	logger         *utils.Logger
}

// NewEnricher creates an Enricher. A nil cache disables caching.
func NewEnricher(sources []Source, c cache.ReferenceCache, maxConcurrency, rateLimitMs int, logger *utils.Logger) *Enricher {
	return &Enricher{
		sources:        sources,
		cache:          c,
		maxConcurrency: maxConcurrency,
		rateLimitMs:    rateLimitMs,
		logger:         logger,
	}
}

// KeysFor returns the distinct make/model/year keys of listings, in first
// seen order. Listings without a make are skipped.
func KeysFor(listings []*models.Listing) []cache.Key {
	seen := utils.NewStringSet()
	var keys []cache.Key
	for _, l := range listings {
		v := services.VectorizeListing(l)
		if v.Make == "" {
			continue
		}
		k := cache.Key{Make: v.Make, Model: v.Model, Year: v.Year}
		if seen.Add(k.String()) {
			keys = append(keys, k)
		}
	}
	return keys
}

type fetchResult struct {
	records []models.ReferenceRecord
	err     error
}

// Fetch returns the combined catalog for keys, ordered by key then source.
// A source that fails for a key is logged and skipped; only fully
// successful lookups are cached. The returned error is non-nil only when
// ctx ends before every lookup was scheduled.
func (e *Enricher) Fetch(ctx context.Context, keys []cache.Key) ([]models.ReferenceRecord, error) {
	start := time.Now()
	results := make([][]fetchResult, len(keys))
	cached := make([][]models.ReferenceRecord, len(keys))
	hit := make([]bool, len(keys))
	pool := utils.NewWorkerPool(e.maxConcurrency, e.rateLimitMs)

	hits := 0
	var scheduleErr error

schedule:
	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			scheduleErr = err
			break
		}
		if e.cache != nil {
			records, err := e.cache.Get(ctx, key)
			if err == nil {
				cached[i], hit[i] = records, true
				hits++
				continue
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				e.logger.Warn("[enricher] Cache read failed for %s: %v", key, err)
			}
		}

		results[i] = make([]fetchResult, len(e.sources))
		for j, src := range e.sources {
			ok := pool.Submit(ctx, func() {
				records, err := src.Fetch(ctx, key)
				results[i][j] = fetchResult{records: records, err: err}
			})
			if !ok {
				scheduleErr = ctx.Err()
				break schedule
			}
		}
	}
	pool.Wait()

	if scheduleErr != nil {
		return nil, scheduleErr
	}

	var catalog []models.ReferenceRecord
	seen := utils.NewStringSet()
	add := func(records []models.ReferenceRecord) {
		for _, r := range records {
			if seen.Add(recordKey(r)) {
				catalog = append(catalog, r)
			}
		}
	}

	failed := 0
	for i, key := range keys {
		if hit[i] {
			add(cached[i])
			continue
		}

		var combined []models.ReferenceRecord
		complete := true
		for j, res := range results[i] {
			switch {
			case res.err == nil:
				combined = append(combined, res.records...)
			case errors.Is(res.err, ErrNoData):
				e.logger.Debug("[enricher] %s has no data for %s", e.sources[j].Name(), key)
			default:
				complete = false
				failed++
				e.logger.Warn("[enricher] %s failed for %s: %v", e.sources[j].Name(), key, res.err)
			}
		}
		add(combined)

		if complete && e.cache != nil {
			if err := e.cache.Set(ctx, key, combined); err != nil {
				e.logger.Warn("[enricher] Cache write failed for %s: %v", key, err)
			}
		}
	}

	e.logger.Elapsed(start, "[enricher] %d keys, %d cache hits, %d failed lookups, %d records",
		len(keys), hits, failed, len(catalog))
	return catalog, nil
}

func recordKey(r models.ReferenceRecord) string {
	v := services.VectorizeReference(&r)
	return strings.Join([]string{r.Source, v.Make, v.Model, strconv.Itoa(v.Year), v.Trim, v.Engine, v.Transmission, v.Drive}, "|")
}
