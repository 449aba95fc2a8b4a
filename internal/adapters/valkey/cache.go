// Package valkey adapts a Valkey (Redis-compatible) server to
// ports.CacheService. It backs the latest-position mirror and
// short-lived history page caching; it is never on the durability
// path, so every caller tolerates it being down.
package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

type Cache struct {
	client valkey.Client
}

// New connects to a single Valkey node.
func New(addr string) (*Cache, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Cache{client: client}, nil
}

// IsMiss reports whether err is the nil reply for a missing key.
func IsMiss(err error) bool {
	return err != nil && valkey.IsValkeyNil(err)
}

// Get retrieves a value by key. A missing key is an error satisfying
// IsMiss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsBytes()
}

// Set stores a value. ttlSeconds <= 0 stores without expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	b := c.client.B().Set().Key(key).Value(string(value))
	var cmd valkey.Completed
	if ttlSeconds > 0 {
		cmd = b.Ex(time.Duration(ttlSeconds) * time.Second).Build()
	} else {
		cmd = b.Build()
	}
	return c.client.Do(ctx, cmd).Error()
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Do(ctx, c.client.B().Del().Key(key).Build()).Error()
}

// Close releases the client.
func (c *Cache) Close() {
	c.client.Close()
}
