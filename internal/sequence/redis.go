package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey holds the last issued invoice number.
const DefaultRedisKey = "invoicegen:invoice_number"

// Redis keeps the sequence in a redis key shared by every process pointed at
// the same server. The key stores the last issued number; INCR issues the
// next one atomically.
type Redis struct {
	client *redis.Client
	key    string
	owned  bool
}

// NewRedisFromAddr dials addr and seeds key so that the first number is start.
func NewRedisFromAddr(ctx context.Context, addr, key string, start int64) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	r, err := NewRedis(ctx, client, key, start)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	r.owned = true
	return r, nil
}

// NewRedis wraps an existing client. The client stays owned by the caller.
func NewRedis(ctx context.Context, client *redis.Client, key string, start int64) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if start < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStart, start)
	}
	if key == "" {
		key = DefaultRedisKey
	}

	if err := client.SetNX(ctx, key, start-1, 0).Err(); err != nil {
		return nil, fmt.Errorf("cannot seed redis sequence %s: %w", key, err)
	}

	return &Redis{client: client, key: key}, nil
}

// Peek implements Sequence.
func (r *Redis) Peek(ctx context.Context) (int64, error) {
	last, err := r.client.Get(ctx, r.key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("redis sequence %s disappeared", r.key)
	}
	if err != nil {
		return 0, fmt.Errorf("cannot read redis sequence %s: %w", r.key, err)
	}
	return last + 1, nil
}

// Next implements Sequence.
func (r *Redis) Next(ctx context.Context) (int64, error) {
	n, err := r.client.Incr(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("cannot advance redis sequence %s: %w", r.key, err)
	}
	return n, nil
}

// Close implements Sequence. Only clients dialed by NewRedisFromAddr are closed.
func (r *Redis) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}
