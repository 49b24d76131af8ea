package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/config"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "storefront"

// Cache is a thin Redis wrapper shared by the catalog cache, the
// notification fan-out and the rate limiter. A Cache built with Redis
// disabled is valid; reads miss and writes are dropped.
type Cache struct {
	client *redis.Client
	prefix string
}

// New connects lazily to Redis when cfg.Enabled is set.
func New(cfg config.RedisConfig) *Cache {
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	if !cfg.Enabled {
		return &Cache{prefix: prefix}
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: prefix,
	}
}

// NewWithClient wraps an existing client; a nil client yields a disabled cache.
func NewWithClient(client *redis.Client, prefix string) *Cache {
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultPrefix
	}
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Client returns the underlying client, or nil when disabled.
func (c *Cache) Client() *redis.Client {
	if !c.Enabled() {
		return nil
	}
	return c.client
}

func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// Key prefixes k with the configured namespace.
func (c *Cache) Key(k string) string {
	prefix := defaultPrefix
	if c != nil {
		prefix = c.prefix
	}
	trimmed := strings.TrimSpace(k)
	if trimmed == "" {
		return prefix
	}
	return fmt.Sprintf("%s:%s", prefix, trimmed)
}

// GetJSON decodes the cached value into dest and reports whether it was present.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	val, err := c.client.Get(ctx, c.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.Key(key), payload, ttl).Err()
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, c.Key(k))
	}
	return c.client.Del(ctx, full...).Err()
}

// Publish sends value as JSON on the namespaced channel.
func (c *Cache) Publish(ctx context.Context, channel string, value interface{}) error {
	if !c.Enabled() {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, c.Key(channel), payload).Err()
}

// Subscribe listens on the namespaced channel. It returns nil when disabled.
func (c *Cache) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	if !c.Enabled() {
		return nil
	}
	return c.client.Subscribe(ctx, c.Key(channel))
}
