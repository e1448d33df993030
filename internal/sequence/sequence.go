// Package sequence provides invoice number sources. Every implementation is
// safe for concurrent use.
package sequence

import (
	"context"
	"errors"
	"fmt"
)

// Kinds accepted by New.
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindRedis  = "redis"
)

// ErrInvalidStart is returned when a sequence is seeded below 1.
var ErrInvalidStart = errors.New("sequence start must be positive")

// Sequence hands out invoice numbers.
type Sequence interface {
	// Peek returns the number the next call to Next will return.
	Peek(ctx context.Context) (int64, error)
	// Next consumes and returns the current number.
	Next(ctx context.Context) (int64, error)
	// Close releases any underlying resources.
	Close() error
}

// Options selects and configures a Sequence implementation.
type Options struct {
	Kind      string
	Start     int64
	LedgerDir string
	RedisAddr string
	RedisKey  string
}

// New builds the Sequence described by opts.
func New(ctx context.Context, opts Options) (Sequence, error) {
	if opts.Start < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStart, opts.Start)
	}

	switch opts.Kind {
	case KindMemory, "":
		return NewMemory(opts.Start), nil
	case KindFile:
		return OpenLedger(opts.LedgerDir, opts.Start)
	case KindRedis:
		return NewRedisFromAddr(ctx, opts.RedisAddr, opts.RedisKey, opts.Start)
	default:
		return nil, fmt.Errorf("unknown sequence kind: %s", opts.Kind)
	}
}
