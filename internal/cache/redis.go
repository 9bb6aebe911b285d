package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SchemaKey holds the JSON list of statistic columns of the last extraction.
const SchemaKey = "hoopstats:schema"

// FailedKey is the hash of URLs whose fetch exhausted every retry, with the
// last error as value.
const FailedKey = "hoopstats:failed"

// failedTTL bounds how long a failure ledger outlives the last failure.
const failedTTL = 7 * 24 * time.Hour

// RedisCache handles caching and fast state storage
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache connection
func NewRedisCache(ctx context.Context, redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisCache{client: client}, nil
}

// Close closes the Redis connection
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

// Client returns the underlying Redis client
func (rc *RedisCache) Client() *redis.Client {
	return rc.client
}

// HealthCheck pings Redis to verify connection
func (rc *RedisCache) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Set stores a key-value pair with TTL
func (rc *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return rc.client.Set(ctx, key, value, ttl).Err()
}

// Get retrieves a value by key
func (rc *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return rc.client.Get(ctx, key).Result()
}

// Delete removes a key
func (rc *RedisCache) Delete(ctx context.Context, keys ...string) error {
	return rc.client.Del(ctx, keys...).Err()
}

// SaveSchema records the statistic columns of the latest extraction.
func (rc *RedisCache) SaveSchema(ctx context.Context, columns []string) error {
	data, err := json.Marshal(columns)
	if err != nil {
		return err
	}
	return rc.Set(ctx, SchemaKey, data, 0)
}

// Schema returns the columns saved by SaveSchema. It returns redis.Nil when
// nothing has been extracted yet.
func (rc *RedisCache) Schema(ctx context.Context) ([]string, error) {
	raw, err := rc.Get(ctx, SchemaKey)
	if err != nil {
		return nil, err
	}
	var columns []string
	if err := json.Unmarshal([]byte(raw), &columns); err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}
	return columns, nil
}

// RecordFailure notes a URL that could not be fetched.
func (rc *RedisCache) RecordFailure(ctx context.Context, url string, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	pipe := rc.client.TxPipeline()
	pipe.HSet(ctx, FailedKey, url, fmt.Sprintf("%s|%s", time.Now().UTC().Format(time.RFC3339), msg))
	pipe.Expire(ctx, FailedKey, failedTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Failures returns every recorded URL with its "time|error" note.
func (rc *RedisCache) Failures(ctx context.Context) (map[string]string, error) {
	return rc.client.HGetAll(ctx, FailedKey).Result()
}

// ClearFailures forgets the given URLs, or every failure when none are given.
func (rc *RedisCache) ClearFailures(ctx context.Context, urls ...string) error {
	if len(urls) == 0 {
		return rc.Delete(ctx, FailedKey)
	}
	return rc.client.HDel(ctx, FailedKey, urls...).Err()
}
