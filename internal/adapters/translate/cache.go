package translate

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Cache interface {
	Get(ctx context.Context, key string) (Result, bool)
	Set(ctx context.Context, key string, r Result)
}

func cacheKey(source, target, text string) string {
	sum := sha1.Sum([]byte(text))
	return source + ":" + target + ":" + hex.EncodeToString(sum[:])
}

type NopCache struct{}

func (NopCache) Get(context.Context, string) (Result, bool) { return Result{}, false }
func (NopCache) Set(context.Context, string, Result)        {}

// MemoryCache keeps up to size entries and evicts the oldest first.
type MemoryCache struct {
	mu    sync.Mutex
	size  int
	items map[string]Result
	order []string
}

func NewMemoryCache(size int) *MemoryCache {
	if size <= 0 {
		size = 1024
	}
	return &MemoryCache{size: size, items: make(map[string]Result, size)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[key]
	return r, ok
}

func (m *MemoryCache) Set(_ context.Context, key string, r Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; ok {
		m.items[key] = r
		return
	}
	if len(m.order) >= m.size {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.items, oldest)
	}
	m.items[key] = r
	m.order = append(m.order, key)
}

func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// RedisCache stores results under "translate:<key>" with a TTL.
// Redis failures degrade to cache misses.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Result, bool) {
	data, err := c.rdb.Get(ctx, "translate:"+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("module", "translate").Msg("redis get failed")
		}
		return Result{}, false
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, false
	}
	return r, true
}

func (c *RedisCache) Set(ctx context.Context, key string, r Result) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, "translate:"+key, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("module", "translate").Msg("redis set failed")
	}
}
