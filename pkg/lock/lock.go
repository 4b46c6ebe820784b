package lock

import (
	"context"
	"time"
)

// Locker hands out named, expiring mutual-exclusion leases.
type Locker interface {
	// Acquire returns ok=false without error when someone else holds key.
	// The returned release func is safe to call once ok is true.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// Nop grants every lease; used when no Redis is configured and a single
// dispatcher instance is assumed.
type Nop struct{}

func (Nop) Acquire(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}
