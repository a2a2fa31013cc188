package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/allegro/bigcache/v3"
)

// LocalCache provides an in-memory cache with zero GC overhead
// Uses BigCache - optimized for high-throughput, low-latency scenarios
type LocalCache struct {
	cache   *bigcache.BigCache
	metrics *LocalCacheMetrics
	name    string
}

// LocalCacheMetrics tracks local cache performance
type LocalCacheMetrics struct {
	Hits   atomic.Int64
	Misses atomic.Int64
	Sets   atomic.Int64
	Errors atomic.Int64
}

// LocalCacheConfig holds configuration for local cache
type LocalCacheConfig struct {
	// Shards is number of cache shards (must be power of 2)
	Shards int

	// LifeWindow is how long items stay in cache
	LifeWindow time.Duration

	// CleanWindow is interval for cleaning expired items
	CleanWindow time.Duration

	// MaxEntriesInWindow is max number of entries expected in LifeWindow
	MaxEntriesInWindow int

	// MaxEntrySize is max size in bytes for single entry
	MaxEntrySize int

	// HardMaxCacheSize is max cache size in MB (0 = no limit)
	HardMaxCacheSize int

	// Verbose enables logging
	Verbose bool

	// Name for identification
	Name string
}

// DefaultLocalCacheConfig returns sensible production defaults. The life
// window is short: the local tier must never hold an entry longer than a
// peer instance would take to notice an eviction in the shared tier.
func DefaultLocalCacheConfig() *LocalCacheConfig {
	return &LocalCacheConfig{
		Shards:             256,
		LifeWindow:         1 * time.Minute,
		CleanWindow:        5 * time.Minute,
		MaxEntriesInWindow: 10000,
		MaxEntrySize:       4096,
		HardMaxCacheSize:   0,
		Verbose:            false,
		Name:               "default",
	}
}

// NewLocalCache creates a production-ready local cache with zero GC overhead
func NewLocalCache(config *LocalCacheConfig) (*LocalCache, error) {
	if config == nil {
		config = DefaultLocalCacheConfig()
	}

	bigCacheConfig := bigcache.Config{
		Shards:             config.Shards,
		LifeWindow:         config.LifeWindow,
		CleanWindow:        config.CleanWindow,
		MaxEntriesInWindow: config.MaxEntriesInWindow,
		MaxEntrySize:       config.MaxEntrySize,
		HardMaxCacheSize:   config.HardMaxCacheSize,
		Verbose:            config.Verbose,

		OnRemoveWithReason: func(key string, entry []byte, reason bigcache.RemoveReason) {
			if config.Verbose {
				log.Printf("[LocalCache:%s] Key '%s' removed: %v", config.Name, key, reason)
			}
		},
	}

	cache, err := bigcache.New(context.Background(), bigCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create local cache: %w", err)
	}

	return &LocalCache{
		cache:   cache,
		metrics: &LocalCacheMetrics{},
		name:    config.Name,
	}, nil
}

// Set stores a byte slice value
func (l *LocalCache) Set(key string, value []byte) error {
	l.metrics.Sets.Add(1)

	if err := l.cache.Set(key, value); err != nil {
		l.metrics.Errors.Add(1)
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Get retrieves a value from cache as []byte
func (l *LocalCache) Get(key string) ([]byte, error) {
	value, err := l.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			l.metrics.Misses.Add(1)
			return nil, ErrCacheMiss
		}
		l.metrics.Errors.Add(1)
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	l.metrics.Hits.Add(1)
	return value, nil
}

// Delete removes a key from cache
func (l *LocalCache) Delete(key string) error {
	err := l.cache.Delete(key)
	if err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		l.metrics.Errors.Add(1)
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

// Reset removes all items from cache
func (l *LocalCache) Reset() error {
	if err := l.cache.Reset(); err != nil {
		l.metrics.Errors.Add(1)
		return fmt.Errorf("cache reset failed: %w", err)
	}
	return nil
}

// Len returns the number of items in cache
func (l *LocalCache) Len() int {
	return l.cache.Len()
}

// GetMetrics returns current cache performance metrics
func (l *LocalCache) GetMetrics() map[string]int64 {
	return map[string]int64{
		"hits":    l.metrics.Hits.Load(),
		"misses":  l.metrics.Misses.Load(),
		"sets":    l.metrics.Sets.Load(),
		"errors":  l.metrics.Errors.Load(),
		"entries": int64(l.cache.Len()),
	}
}

// GetHitRate calculates cache hit rate as percentage
func (l *LocalCache) GetHitRate() float64 {
	hits := l.metrics.Hits.Load()
	misses := l.metrics.Misses.Load()
	total := hits + misses

	if total == 0 {
		return 0.0
	}

	return float64(hits) / float64(total) * 100.0
}

// Close gracefully closes the cache with final stats
func (l *LocalCache) Close() error {
	metrics := l.GetMetrics()

	log.Printf("[LocalCache:%s] Closing. Stats - Hits: %d, Misses: %d, Entries: %d, Hit Rate: %.2f%%",
		l.name, metrics["hits"], metrics["misses"], metrics["entries"], l.GetHitRate())

	return l.cache.Close()
}
