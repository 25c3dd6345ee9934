package identity

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionCachePrefix = "filedock:session:"

// RedisCache memoizes validated identities in Redis under the token
// digest. Entries expire purely by TTL; the last write wins. Cache
// failures degrade to a miss and are never surfaced to the caller.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, tokenHash string) (*Identity, bool) {
	if c.client == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, sessionCachePrefix+tokenHash).Bytes()
	if err != nil {
		return nil, false // Cache miss
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, false
	}
	return &id, true
}

func (c *RedisCache) Set(ctx context.Context, tokenHash string, id *Identity) {
	if c.client == nil || id == nil {
		return
	}

	data, err := json.Marshal(id)
	if err != nil {
		log.Printf("Identity: failed to marshal identity for cache: %v", err)
		return
	}

	if err := c.client.Set(ctx, sessionCachePrefix+tokenHash, data, c.ttl).Err(); err != nil {
		log.Printf("Identity: failed to cache identity: %v", err)
	}
}
