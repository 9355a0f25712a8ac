// Package ratelimit implements a fixed-window request limiter keyed by client
// address. Buckets live behind a Store so the counters can be shared or
// swapped out in tests.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Defaults match the HTTP API: 60 requests per 5 minutes per client.
const (
	DefaultWindow = 5 * time.Minute
	DefaultMax    = 60
)

// Bucket is one key's counter for the current window.
type Bucket struct {
	Count   int
	ResetAt time.Time
}

// Store persists buckets. Get reports ok=false when the key has no bucket.
type Store interface {
	Get(ctx context.Context, key string) (b Bucket, ok bool, err error)
	Put(ctx context.Context, key string, b Bucket) error
}

// Sweeper is implemented by stores that can drop buckets whose window
// ended before the given time.
type Sweeper interface {
	Sweep(ctx context.Context, before time.Time) error
}

// Limiter allows at most max requests per key in each window. A window
// starts with the first request after the previous one ended.
//
// Allow serialises calls within one process. Several processes sharing a
// Store race on the same key and the last write wins.
type Limiter struct {
	mu        sync.Mutex
	store     Store
	max       int
	window    time.Duration
	now       func() time.Time
	lastSweep time.Time

	// OnLimited, when set, is called by Middleware for every rejected
	// request.
	OnLimited func(key string)
}

// New returns a Limiter. Non-positive max or window select the defaults.
func New(store Store, max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = DefaultMax
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{store: store, max: max, window: window, now: time.Now}
}

// SetClock overrides the time source.
func (l *Limiter) SetClock(now func() time.Time) { l.now = now }

// Decision is the result of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Allow counts one request for key and reports whether it is within the
// limit. Rejected requests do not extend the window.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.maybeSweep(ctx, now)

	b, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: get %s: %w", key, err)
	}
	if !ok || !now.Before(b.ResetAt) {
		b = Bucket{Count: 0, ResetAt: now.Add(l.window)}
	}
	if b.Count >= l.max {
		return Decision{Allowed: false, Remaining: 0, ResetAt: b.ResetAt}, nil
	}
	b.Count++
	if err := l.store.Put(ctx, key, b); err != nil {
		return Decision{}, fmt.Errorf("ratelimit: put %s: %w", key, err)
	}
	return Decision{Allowed: true, Remaining: l.max - b.Count, ResetAt: b.ResetAt}, nil
}

func (l *Limiter) maybeSweep(ctx context.Context, now time.Time) {
	sw, ok := l.store.(Sweeper)
	if !ok || now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	_ = sw.Sweep(ctx, now)
}
