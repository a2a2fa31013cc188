package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
)

// Manager orchestrates the view cache with intelligent tier fallback.
// Architecture: L1 (Local BigCache) → L2 (Redis) → Database/Source.
//
// The shared invalidation contract of the service rides on the L2 tier: every
// instance sees an eviction there immediately. The L1 tier is an in-process
// accelerator bounded by its short life window and must stay disabled when
// multiple instances share one Redis.
type Manager struct {
	local  *LocalCache
	redis  *RedisClient
	config *ManagerConfig
}

// ManagerConfig holds cache manager configuration
type ManagerConfig struct {
	// Prefix is the key namespace persisted in the shared store.
	Prefix string

	// TTL is the default time-to-live of an entry in the shared tier.
	TTL time.Duration

	// EnableLocalCache enables L1 caching
	EnableLocalCache bool

	// EnableRedisCache enables L2 caching
	EnableRedisCache bool

	// GracefulDegradation continues operation if Redis is down
	GracefulDegradation bool

	// Name for logging
	Name string
}

// DefaultManagerConfig returns sensible production defaults
func DefaultManagerConfig() *ManagerConfig {
	return &ManagerConfig{
		Prefix:              DefaultPrefix,
		TTL:                 1 * time.Hour,
		EnableLocalCache:    false,
		EnableRedisCache:    true,
		GracefulDegradation: true,
		Name:                "views",
	}
}

// NewManager creates a production-ready cache manager
func NewManager(local *LocalCache, redis *RedisClient, config *ManagerConfig) *Manager {
	if config == nil {
		config = DefaultManagerConfig()
	}

	log.Printf("[Cache:%s] Initialized - Prefix: %s, TTL: %v, Local: %v, Redis: %v",
		config.Name, config.Prefix, config.TTL, config.EnableLocalCache, config.EnableRedisCache)

	return &Manager{
		local:  local,
		redis:  redis,
		config: config,
	}
}

// Key returns the persisted key for a view entry.
func (m *Manager) Key(view ViewKind, id int64) string {
	return Key(m.config.Prefix, view, id)
}

// get retrieves raw bytes with automatic tier fallback.
func (m *Manager) get(ctx context.Context, key string) ([]byte, error) {
	if m.config.EnableLocalCache && m.local != nil {
		if value, err := m.local.Get(key); err == nil {
			return value, nil
		}
	}

	if m.config.EnableRedisCache && m.redis != nil {
		value, err := m.redis.Get(ctx, key)
		if err == nil {
			// Found in Redis - populate local cache (write-back)
			if m.config.EnableLocalCache && m.local != nil {
				m.local.Set(key, value)
			}
			return value, nil
		}
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrCacheMiss
		}
		if m.config.GracefulDegradation {
			log.Printf("[Cache:%s] Redis unavailable, continuing without cache: %v", m.config.Name, err)
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	return nil, ErrCacheMiss
}

// GetJSON reads the cached entry of a view into dest. A miss or an
// unavailable cache surfaces as ErrCacheMiss; callers fall through to the
// store either way.
func (m *Manager) GetJSON(ctx context.Context, view ViewKind, id int64, dest any) error {
	value, err := m.get(ctx, m.Key(view, id))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(value, dest); err != nil {
		// A corrupt entry behaves as a miss; the next put overwrites it.
		return fmt.Errorf("%w: corrupt entry: %v", ErrCacheMiss, err)
	}
	return nil
}

// PutJSON stores the serialized view entry in all enabled tiers.
func (m *Manager) PutJSON(ctx context.Context, view ViewKind, id int64, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	key := m.Key(view, id)

	var localErr, redisErr error
	if m.config.EnableLocalCache && m.local != nil {
		localErr = m.local.Set(key, data)
	}
	if m.config.EnableRedisCache && m.redis != nil {
		redisErr = m.redis.Set(ctx, key, data, m.config.TTL)
		if redisErr != nil && !m.config.GracefulDegradation {
			return redisErr
		}
	}

	if localErr != nil && redisErr != nil && !m.config.GracefulDegradation {
		return fmt.Errorf("failed to set in cache: local=%v, redis=%v", localErr, redisErr)
	}
	return nil
}

// Evict removes one view entry from all tiers. Best effort: an error means
// the shared tier may still hold the entry until its TTL expires.
func (m *Manager) Evict(ctx context.Context, view ViewKind, id int64) error {
	key := m.Key(view, id)

	var localErr, redisErr error
	if m.config.EnableLocalCache && m.local != nil {
		localErr = m.local.Delete(key)
	}
	if m.config.EnableRedisCache && m.redis != nil {
		redisErr = m.redis.Delete(ctx, key)
	}

	if localErr != nil || redisErr != nil {
		return fmt.Errorf("failed to evict %s: local=%v, redis=%v", key, localErr, redisErr)
	}
	return nil
}

// Clear drops every entry under the service prefix and resets the local
// tier. Returns the number of shared-tier keys removed.
func (m *Manager) Clear(ctx context.Context) (int, error) {
	removed := 0
	if m.config.EnableRedisCache && m.redis != nil {
		keys, err := m.redis.ScanKeys(ctx, PrefixPattern(m.config.Prefix))
		if err != nil {
			return 0, err
		}
		if len(keys) > 0 {
			if err := m.redis.Delete(ctx, keys...); err != nil {
				return 0, err
			}
			removed = len(keys)
		}
	}
	if m.config.EnableLocalCache && m.local != nil {
		if err := m.local.Reset(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Stats summarizes the shared-tier keyspace per view kind plus tier metrics.
type Stats struct {
	KeysByView map[ViewKind][]string `json:"keysByView"`
	TotalKeys  int                   `json:"totalKeys"`
	Local      map[string]int64      `json:"local,omitempty"`
	Redis      map[string]int64      `json:"redis,omitempty"`
}

// Stats scans the shared tier and buckets keys by view kind.
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{KeysByView: map[ViewKind][]string{
		ViewUser:          {},
		ViewUserWithCards: {},
		ViewUserCards:     {},
	}}

	if m.config.EnableRedisCache && m.redis != nil {
		keys, err := m.redis.ScanKeys(ctx, PrefixPattern(m.config.Prefix))
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			view, _, ok := ParseKey(m.config.Prefix, key)
			if !ok {
				continue
			}
			stats.KeysByView[view] = append(stats.KeysByView[view], key)
			stats.TotalKeys++
		}
		stats.Redis = m.redis.GetMetrics()
	}
	if m.config.EnableLocalCache && m.local != nil {
		stats.Local = m.local.GetMetrics()
	}
	return stats, nil
}

// HealthCheck verifies cache system health
func (m *Manager) HealthCheck(ctx context.Context) map[string]string {
	health := make(map[string]string)

	if m.config.EnableLocalCache && m.local != nil {
		health["local"] = "healthy"
		health["local_entries"] = fmt.Sprintf("%d", m.local.Len())
	} else {
		health["local"] = "disabled"
	}

	if m.config.EnableRedisCache && m.redis != nil {
		if err := m.redis.HealthCheck(ctx); err != nil {
			health["redis"] = fmt.Sprintf("unhealthy: %v", err)
		} else {
			health["redis"] = "healthy"
		}
	} else {
		health["redis"] = "disabled"
	}

	return health
}

// Close gracefully shuts down the cache manager
func (m *Manager) Close() error {
	var localErr, redisErr error

	if m.local != nil {
		localErr = m.local.Close()
	}
	if m.redis != nil {
		redisErr = m.redis.Close()
	}

	if localErr != nil || redisErr != nil {
		return fmt.Errorf("close errors - local: %v, redis: %v", localErr, redisErr)
	}
	return nil
}
