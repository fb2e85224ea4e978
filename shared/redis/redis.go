package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps a redis connection used as a read-through cache for user
// records. All operations are best-effort: callers treat a miss and an error
// the same way and fall back to the database.
type Client struct {
	client *redis.Client
}

// NewClient creates a redis client for the given address
func NewClient(addr string) *Client {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // no password by default
		DB:       0,  // use default DB
	})
	return &Client{client: client}
}

// Ping checks the connection
func (r *Client) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Set stores a value with the given TTL
func (r *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value
func (r *Client) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

// Del removes a key
func (r *Client) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// IsMiss reports whether the error from Get means the key was absent
func IsMiss(err error) bool {
	return err == redis.Nil
}
