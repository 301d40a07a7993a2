// Package cache holds Redis-backed read caches
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cobrify/stock-service/internal/domain"
)

const (
	defaultTTL            = 5 * time.Minute
	warehouseKeyPrefix    = "stock:warehouses"
	warehouseScanPageSize = 100
)

// Config holds Redis connection settings. An empty URL and Addr disables caching.
type Config struct {
	URL      string
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether a Redis server is configured
func (c Config) Enabled() bool {
	return c.URL != "" || c.Addr != ""
}

// WarehouseCache caches warehouse lists per business. It satisfies
// application.WarehouseCache.
type WarehouseCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWarehouseCache connects to Redis and verifies the connection
func NewWarehouseCache(ctx context.Context, cfg Config) (*WarehouseCache, error) {
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWarehouseCacheWithClient(client, cfg.TTL), nil
}

// NewWarehouseCacheWithClient wraps an existing client
func NewWarehouseCacheWithClient(client *redis.Client, ttl time.Duration) *WarehouseCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &WarehouseCache{client: client, ttl: ttl}
}

func newClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func warehouseKey(businessID string) string {
	return fmt.Sprintf("%s:%s", warehouseKeyPrefix, businessID)
}

// Get returns the cached list. A miss is nil, false, nil.
func (c *WarehouseCache) Get(ctx context.Context, businessID string) ([]*domain.Warehouse, bool, error) {
	payload, err := c.client.Get(ctx, warehouseKey(businessID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var warehouses []*domain.Warehouse
	if err := json.Unmarshal(payload, &warehouses); err != nil {
		return nil, false, fmt.Errorf("decode warehouse cache: %w", err)
	}
	return warehouses, true, nil
}

// Set stores the list with the configured TTL
func (c *WarehouseCache) Set(ctx context.Context, businessID string, warehouses []*domain.Warehouse) error {
	if warehouses == nil {
		warehouses = []*domain.Warehouse{}
	}
	payload, err := json.Marshal(warehouses)
	if err != nil {
		return fmt.Errorf("encode warehouse cache: %w", err)
	}
	if err := c.client.Set(ctx, warehouseKey(businessID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Invalidate drops the business's cached list
func (c *WarehouseCache) Invalidate(ctx context.Context, businessID string) error {
	if err := c.client.Del(ctx, warehouseKey(businessID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// InvalidateAll drops every cached warehouse list
func (c *WarehouseCache) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, warehouseKeyPrefix+":*", warehouseScanPageSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis delete failed: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Ping checks the connection, for readiness probes
func (c *WarehouseCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client
func (c *WarehouseCache) Close() error {
	return c.client.Close()
}
