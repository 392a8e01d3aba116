package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key layout: prices under price:<symbol>, notification dedupe under
// notified:<kind>:<key>. Prices expire quickly so the gateway falls back to
// its REST lookup when the stream goes quiet.
const (
	priceKeyPrefix    = "price:"
	notifiedKeyPrefix = "notified:"
	priceTTL          = 30 * time.Second
)

// RedisClient wraps redis.Client. The zero value of the pointer (nil) is a
// valid no-op client so callers never branch on whether Redis is configured.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client. Returns nil when the server is
// unreachable; the rest of the system treats a nil client as cache disabled.
func NewRedisClient(host, port, password string) *RedisClient {
	addr := fmt.Sprintf("%s:%s", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0, // use default DB
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️  Failed to connect to Redis at %s: %v", addr, err)
		return nil
	}

	log.Printf("✅ Connected to Redis at %s", addr)
	return &RedisClient{client: client}
}

// Set stores a value in Redis with expiration
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, key, jsonBytes, expiration).Err()
}

// Get retrieves a value from Redis
func (r *RedisClient) Get(ctx context.Context, key string, dest interface{}) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(val), dest)
}

// Delete removes a key from Redis
func (r *RedisClient) Delete(ctx context.Context, key string) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return r.client.Del(ctx, key).Err()
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	if r != nil && r.client != nil {
		return r.client.Close()
	}
	return nil
}

// SetPrice caches the latest streamed price for a symbol
func (r *RedisClient) SetPrice(ctx context.Context, symbol string, price float64) {
	if r == nil || r.client == nil {
		return
	}
	if err := r.Set(ctx, priceKeyPrefix+symbol, price, priceTTL); err != nil {
		log.Printf("⚠️ Failed to cache price for %s: %v", symbol, err)
	}
}

// DeletePrice drops the cached price for a symbol. Called when a symbol
// leaves the streaming set so a stale tick never answers a price lookup.
func (r *RedisClient) DeletePrice(ctx context.Context, symbol string) {
	if r == nil || r.client == nil {
		return
	}
	if err := r.Delete(ctx, priceKeyPrefix+symbol); err != nil {
		log.Printf("⚠️ Failed to drop cached price for %s: %v", symbol, err)
	}
}

// GetPrice returns the cached price for a symbol, or false when absent
func (r *RedisClient) GetPrice(ctx context.Context, symbol string) (float64, bool) {
	if r == nil || r.client == nil {
		return 0, false
	}
	var price float64
	if err := r.Get(ctx, priceKeyPrefix+symbol, &price); err != nil {
		return 0, false
	}
	return price, true
}

// MarkNotified records a notification dedupe key for the given window.
// Returns false when the key already existed, so repeated alerts for the
// same event are suppressed.
func (r *RedisClient) MarkNotified(ctx context.Context, kind, key string, window time.Duration) bool {
	if r == nil || r.client == nil {
		return true // no dedupe without redis, always send
	}

	full := notifiedKeyPrefix + kind + ":" + key
	set, err := r.client.SetNX(ctx, full, time.Now().Unix(), window).Result()
	if err != nil {
		log.Printf("⚠️ Notification dedupe check failed for %s: %v", full, err)
		return true
	}
	return set
}
