package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss is returned when key doesn't exist (not an actual error)
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheUnavailable is returned when Redis is down or unreachable
	ErrCacheUnavailable = errors.New("cache unavailable")
)

type RedisClient struct {
	client  *redis.Client
	metrics *CacheMetrics
}

// CacheMetrics tracks cache performance for observability
type CacheMetrics struct {
	Hits   atomic.Int64
	Misses atomic.Int64
	Errors atomic.Int64
}

// RedisConfig holds production-ready Redis configuration
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	MaxRetries   int           // Number of retries for failed operations
	PoolSize     int           // Maximum number of socket connections
	MinIdleConns int           // Minimum idle connections in the pool
	DialTimeout  time.Duration // Timeout for establishing connections
	ReadTimeout  time.Duration // Timeout for socket reads
	WriteTimeout time.Duration // Timeout for socket writes
}

// DefaultRedisConfig returns sensible production defaults
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:         "localhost",
		Port:         "6379",
		Password:     "",
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewRedisClient creates a Redis client and validates the connection before
// returning (fail fast at startup; degradation is handled per-call later).
func NewRedisClient(config *RedisConfig) (*RedisClient, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Host + ":" + config.Port,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,

		PoolTimeout:  4 * time.Second,
		MaxIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s:%s: %w",
			config.Host, config.Port, err)
	}

	log.Printf("[Redis] Successfully connected to %s:%s (DB: %d)",
		config.Host, config.Port, config.DB)

	return &RedisClient{
		client:  client,
		metrics: &CacheMetrics{},
	}, nil
}

// Set stores a value with TTL.
func (r *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.metrics.Errors.Add(1)
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Get retrieves a value - properly distinguishes cache miss from errors
func (r *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}

	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		// Cache miss is NOT an error - it's an expected case
		if errors.Is(err, redis.Nil) {
			r.metrics.Misses.Add(1)
			return nil, ErrCacheMiss
		}
		r.metrics.Errors.Add(1)
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	r.metrics.Hits.Add(1)
	return val, nil
}

// Delete removes a key from cache
func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.metrics.Errors.Add(1)
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

// ScanKeys walks the keyspace and collects every key matching the pattern.
// SCAN is incremental, so this stays safe on a shared instance, but it is
// still O(keys) and meant for admin endpoints rather than hot paths.
func (r *RedisClient) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.metrics.Errors.Add(1)
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return keys, nil
}

// GetMetrics returns current cache performance metrics
func (r *RedisClient) GetMetrics() map[string]int64 {
	return map[string]int64{
		"hits":   r.metrics.Hits.Load(),
		"misses": r.metrics.Misses.Load(),
		"errors": r.metrics.Errors.Load(),
	}
}

// GetHitRate calculates cache hit rate as a percentage
func (r *RedisClient) GetHitRate() float64 {
	hits := r.metrics.Hits.Load()
	misses := r.metrics.Misses.Load()
	total := hits + misses

	if total == 0 {
		return 0.0
	}

	return float64(hits) / float64(total) * 100.0
}

// HealthCheck verifies Redis is responsive - critical for health endpoints
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close gracefully closes the Redis connection with final stats logging
func (r *RedisClient) Close() error {
	log.Printf("[Redis] Closing connection. Final stats - Hits: %d, Misses: %d, Errors: %d, Hit Rate: %.2f%%",
		r.metrics.Hits.Load(), r.metrics.Misses.Load(), r.metrics.Errors.Load(), r.GetHitRate())

	return r.client.Close()
}
