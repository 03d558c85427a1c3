package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"car-scout/models"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Key identifies the reference data of one vehicle. Make and Model are
// expected to be normalized by the caller.
type Key struct {
	Make  string
	Model string
	Year  int
}

func (k Key) String() string {
	return k.Make + "|" + k.Model + "|" + strconv.Itoa(k.Year)
}

// ReferenceCache stores reference records fetched from external sources.
type ReferenceCache interface {
	Get(ctx context.Context, key Key) ([]models.ReferenceRecord, error)
	Set(ctx context.Context, key Key, records []models.ReferenceRecord) error
}

// MemoryReferenceCache is a ReferenceCache over an in-memory Store.
type MemoryReferenceCache struct {
	store *Memory[Key, []models.ReferenceRecord]
}

// NewMemoryReferenceCache creates an empty in-process reference cache.
func NewMemoryReferenceCache() *MemoryReferenceCache {
	return &MemoryReferenceCache{store: NewMemory[Key, []models.ReferenceRecord]()}
}

func (c *MemoryReferenceCache) Get(_ context.Context, key Key) ([]models.ReferenceRecord, error) {
	records, ok := c.store.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return append([]models.ReferenceRecord(nil), records...), nil
}

func (c *MemoryReferenceCache) Set(_ context.Context, key Key, records []models.ReferenceRecord) error {
	c.store.Set(key, append([]models.ReferenceRecord(nil), records...))
	return nil
}

// RedisReferenceCache shares reference records between processes.
type RedisReferenceCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewRedisReferenceCache connects to Redis and verifies the connection.
func NewRedisReferenceCache(ctx context.Context, cfg RedisConfig) (*RedisReferenceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newRedisReferenceCache(client, cfg.Prefix, cfg.TTL), nil
}

func newRedisReferenceCache(client *redis.Client, prefix string, ttl time.Duration) *RedisReferenceCache {
	if prefix == "" {
		prefix = "carscout:ref:"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisReferenceCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisReferenceCache) key(k Key) string {
	return c.prefix + k.String()
}

func (c *RedisReferenceCache) Get(ctx context.Context, key Key) ([]models.ReferenceRecord, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var records []models.ReferenceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode cached references: %w", err)
	}
	return records, nil
}

func (c *RedisReferenceCache) Set(ctx context.Context, key Key, records []models.ReferenceRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode references: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisReferenceCache) Close() error {
	return c.client.Close()
}
