// Package redis implements the domain bus and limiter interfaces on
// go-redis/v9, for the clustered mode where several daemons share events.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultNamespace prefixes every key when ClientConfig.Namespace is empty.
const DefaultNamespace = "marketlinks"

// ClientConfig holds connection parameters for the Redis client. Namespace
// separates marketplaces sharing one Redis: event streams, pub/sub channels
// and rate-limit counters all live under "<namespace>:".
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
	Namespace  string
}

// Client is a namespaced go-redis connection shared by the bus and limiter.
type Client struct {
	rdb       *redis.Client
	namespace string
}

// New dials Redis and pings it. It fails if the server is unreachable.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	ns := strings.Trim(cfg.Namespace, ":")
	if ns == "" {
		ns = DefaultNamespace
	}

	c := &Client{rdb: redis.NewClient(opts), namespace: ns}
	if err := c.Ping(ctx); err != nil {
		_ = c.rdb.Close()
		return nil, err
	}
	return c, nil
}

// Key joins parts under the client namespace: Key("ratelimit", ip) gives
// "marketlinks:ratelimit:<ip>".
func (c *Client) Key(parts ...string) string {
	return c.namespace + ":" + strings.Join(parts, ":")
}

// Ping checks the Redis connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping %s: %w", c.rdb.Options().Addr, err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
