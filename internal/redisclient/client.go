package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/import_stock.lua
var importStockScript string

//go:embed scripts/release_stock.lua
var releaseStockScript string

// ErrNotTracked is returned when a listing has no counter in Redis yet.
var ErrNotTracked = errors.New("listing not tracked in redis")

type Client struct {
	rdb           *redis.Client
	importScript  *redis.Script
	releaseScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		importScript:  redis.NewScript(importStockScript),
		releaseScript: redis.NewScript(releaseStockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func listingKey(listingID string) string {
	return fmt.Sprintf("listing:%s", listingID)
}

// ImportStock atomically deducts quantity from a listing's available pool.
// Returns the new available count; ok is false when stock is insufficient.
func (c *Client) ImportStock(ctx context.Context, listingID string, quantity int) (available int, ok bool, err error) {
	result, err := c.importScript.Run(ctx, c.rdb, []string{listingKey(listingID)}, quantity).Result()
	if err != nil {
		return 0, false, fmt.Errorf("import stock script failed: %w", err)
	}

	value, isInt := result.(int64)
	if !isInt {
		return 0, false, fmt.Errorf("unexpected script result type")
	}

	switch {
	case value == -2:
		return 0, false, ErrNotTracked
	case value == -1:
		return 0, false, nil
	default:
		return int(value), true, nil
	}
}

// ReleaseStock atomically re-credits quantity to a listing's available pool
func (c *Client) ReleaseStock(ctx context.Context, listingID string, quantity int) error {
	result, err := c.releaseScript.Run(ctx, c.rdb, []string{listingKey(listingID)}, quantity).Result()
	if err != nil {
		return fmt.Errorf("release stock script failed: %w", err)
	}

	if value, isInt := result.(int64); isInt && value == -2 {
		return ErrNotTracked
	}

	return nil
}

// InitListing initializes a listing's counter in Redis
func (c *Client) InitListing(ctx context.Context, listingID string, available int) error {
	return c.rdb.HSet(ctx, listingKey(listingID), "available", available).Err()
}

// DropListing removes a listing's counter (after deletion)
func (c *Client) DropListing(ctx context.Context, listingID string) error {
	return c.rdb.Del(ctx, listingKey(listingID)).Err()
}

// GetIdempotencyValue retrieves the stored result for an idempotency key
func (c *Client) GetIdempotencyValue(ctx context.Context, key string) (string, error) {
	result, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return result, err
}

// StoreIdempotencyValue overwrites the stored result for an idempotency key
func (c *Client) StoreIdempotencyValue(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), value, ttl).Err()
}
