package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/paras-verma7454/DriveDeck/internal"
	"github.com/redis/go-redis/v9"
)

// EntitlementCache holds loaded principals keyed by user id. Entries live at
// most the configured TTL, which bounds how long a revocation made on another
// instance can go unseen.
//
// A load takes a Stamp before reading the store and hands it back to Set.
// Set drops the entry when an invalidation covering that user happened in
// between, so a load racing a revocation never repopulates the cache.
type EntitlementCache interface {
	Get(ctx context.Context, userID string) (*Principal, bool)
	Stamp(ctx context.Context, userID string) (CacheStamp, error)
	Set(ctx context.Context, stamp CacheStamp, p *Principal)
	Invalidate(ctx context.Context, userID string) error
	InvalidateAll(ctx context.Context) error
}

// CacheStamp is the cache generation observed before a load.
type CacheStamp struct {
	generation uint64
	key        string
}

// NewEntitlementCache builds the cache selected by cfg.Driver. The redis
// driver needs a client; pass nil for the other drivers.
func NewEntitlementCache(cfg internal.CacheConfig, client *redis.Client) (EntitlementCache, error) {
	switch cfg.Driver {
	case "", internal.CacheDriverNone:
		return NoopCache{}, nil
	case internal.CacheDriverMemory:
		return NewMemoryCache(cfg.Size, cfg.TTL), nil
	case internal.CacheDriverRedis:
		if client == nil {
			return nil, errors.New("redis cache driver needs a client")
		}
		return NewRedisCache(client, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

// NoopCache never stores anything; every request reads the database.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*Principal, bool)    { return nil, false }
func (NoopCache) Stamp(context.Context, string) (CacheStamp, error) { return CacheStamp{}, nil }
func (NoopCache) Set(context.Context, CacheStamp, *Principal)       {}
func (NoopCache) Invalidate(context.Context, string) error          { return nil }
func (NoopCache) InvalidateAll(context.Context) error               { return nil }

// MemoryCache is a per-process LRU. Every invalidation bumps one generation
// counter; Set compares it under the same lock.
type MemoryCache struct {
	mu         sync.Mutex
	generation uint64
	lru        *expirable.LRU[string, *Principal]
}

func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{lru: expirable.NewLRU[string, *Principal](size, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, userID string) (*Principal, bool) {
	return c.lru.Get(userID)
}

func (c *MemoryCache) Stamp(context.Context, string) (CacheStamp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStamp{generation: c.generation}, nil
}

func (c *MemoryCache) Set(_ context.Context, stamp CacheStamp, p *Principal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stamp.generation != c.generation {
		return
	}
	c.lru.Add(p.SubjectID, p)
}

func (c *MemoryCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.lru.Remove(userID)
	return nil
}

func (c *MemoryCache) InvalidateAll(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.lru.Purge()
	return nil
}

const (
	redisVersionKey     = "drivedeck:entitlements:version"
	redisUserVersionKey = "drivedeck:entitlements:user:"
	redisKeyPrefix      = "drivedeck:entitlements"
)

// RedisCache shares entries between instances. An entry key embeds the
// global version and the user's own version. InvalidateAll and Invalidate
// only bump a counter, so old entries, including ones written late by a
// load that started before the bump, are never read again and expire on
// their TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

type principalSnapshot struct {
	SubjectID   string   `json:"subjectId"`
	User        *User    `json:"user"`
	Role        *Role    `json:"role"`
	Permissions []string `json:"permissions"`
}

func (c *RedisCache) key(ctx context.Context, userID string) (string, error) {
	vals, err := c.client.MGet(ctx, redisVersionKey, redisUserVersionKey+userID).Result()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%s:%s", redisKeyPrefix, versionOf(vals[0]), versionOf(vals[1]), userID), nil
}

func versionOf(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "0"
}

// Get treats any redis failure as a miss.
func (c *RedisCache) Get(ctx context.Context, userID string) (*Principal, bool) {
	key, err := c.key(ctx, userID)
	if err != nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var snap principalSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, false
	}
	return &Principal{
		SubjectID:   snap.SubjectID,
		User:        snap.User,
		Role:        snap.Role,
		Permissions: NewPermissionSet(snap.Permissions...),
	}, true
}

func (c *RedisCache) Stamp(ctx context.Context, userID string) (CacheStamp, error) {
	key, err := c.key(ctx, userID)
	if err != nil {
		return CacheStamp{}, err
	}
	return CacheStamp{key: key}, nil
}

// Set writes under the key captured by stamp, never a freshly computed one.
func (c *RedisCache) Set(ctx context.Context, stamp CacheStamp, p *Principal) {
	if stamp.key == "" {
		return
	}
	raw, err := json.Marshal(principalSnapshot{
		SubjectID:   p.SubjectID,
		User:        p.User,
		Role:        p.Role,
		Permissions: p.Permissions.Keys(),
	})
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, stamp.key, raw, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Incr(ctx, redisUserVersionKey+userID).Err()
}

func (c *RedisCache) InvalidateAll(ctx context.Context) error {
	return c.client.Incr(ctx, redisVersionKey).Err()
}
