package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ZaguanLabs/chatlai"
	"github.com/redis/go-redis/v9"
)

// RedisBackend is a Redis-backed second-level translation store.
// Entries are stored as JSON under prefix + key hash and expire with the TTL.
type RedisBackend struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// RedisConfig holds configuration for the Redis backend.
type RedisConfig struct {
	URL       string // Redis connection URL (e.g., "redis://localhost:6379")
	TTL       int    // TTL in seconds (0 = no expiration)
	KeyPrefix string // Prefix for all keys (default: "chatlai:")
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, &chatlai.CacheError{Message: "invalid redis url", Cause: err}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, &chatlai.CacheError{Message: "redis ping failed", Cause: err}
	}

	return NewRedisBackendFromClient(client, cfg.TTL, cfg.KeyPrefix), nil
}

// NewRedisBackendFromClient creates a RedisBackend from an existing Redis client.
func NewRedisBackendFromClient(client *redis.Client, ttlSeconds int, keyPrefix string) *RedisBackend {
	if keyPrefix == "" {
		keyPrefix = "chatlai:"
	}

	ttl := time.Duration(ttlSeconds) * time.Second
	if ttlSeconds <= 0 {
		ttl = 0
	}

	return &RedisBackend{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
	}
}

// Get retrieves an entry from Redis.
func (b *RedisBackend) Get(ctx context.Context, key chatlai.Key) (chatlai.Entry, bool, error) {
	data, err := b.client.Get(ctx, b.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return chatlai.Entry{}, false, nil
	}
	if err != nil {
		return chatlai.Entry{}, false, &chatlai.CacheError{Message: "redis get failed", Cause: err}
	}

	var entry chatlai.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return chatlai.Entry{}, false, &chatlai.CacheError{Message: "corrupt redis entry", Cause: err}
	}
	// The stored key must match exactly; anything else is treated as a miss.
	if entry.Key != key {
		return chatlai.Entry{}, false, nil
	}
	return entry, true, nil
}

// Put stores an entry in Redis.
func (b *RedisBackend) Put(ctx context.Context, entry chatlai.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return &chatlai.CacheError{Message: "encoding entry", Cause: err}
	}

	if err := b.client.Set(ctx, b.redisKey(entry.Key), string(data), b.ttl).Err(); err != nil {
		return &chatlai.CacheError{Message: "redis set failed", Cause: err}
	}
	return nil
}

// Delete removes an entry from Redis.
func (b *RedisBackend) Delete(ctx context.Context, key chatlai.Key) error {
	if err := b.client.Del(ctx, b.redisKey(key)).Err(); err != nil {
		return &chatlai.CacheError{Message: "redis del failed", Cause: err}
	}
	return nil
}

// Close closes the Redis connection.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// Ping tests the Redis connection.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBackend) redisKey(key chatlai.Key) string {
	return b.keyPrefix + key.Hash()
}

// Verify RedisBackend implements Backend
var _ Backend = (*RedisBackend)(nil)
