package cache

import (
	"context"
	"time"
)

// NullCache backs --no-cache: every lookup misses and writes are dropped,
// so each solve runs the solver and every artifact is rendered again.
type NullCache struct{}

// NewNullCache returns a cache that stores nothing.
func NewNullCache() *NullCache { return &NullCache{} }

// Get reports a miss, or the context error once ctx is done.
func (*NullCache) Get(ctx context.Context, _ string) ([]byte, bool, error) {
	return nil, false, ctx.Err()
}

func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (*NullCache) Delete(context.Context, string) error { return nil }

func (*NullCache) Close() error { return nil }

var _ Cache = (*NullCache)(nil)
