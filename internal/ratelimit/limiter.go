// Package ratelimit implements the approximate fixed-window counter used by
// both the global and the per-token limiter.
package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of one Check.
type Decision struct {
	Limited      bool
	Remaining    int
	RetryAfterMs int64
	ResetAt      time.Time
}

type window struct {
	remaining int
	resetAt   time.Time
}

// Limiter keeps one window per key in memory. Windows are never reclaimed.
type Limiter struct {
	name   string
	max    int
	length time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

type Option func(*Limiter)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New returns a limiter allowing max requests per key per window length.
func New(name string, max int, length time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		name:    name,
		max:     max,
		length:  length,
		now:     time.Now,
		windows: make(map[string]*window),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) Name() string { return l.name }

// Check consumes one request for key. Once now passes the window's reset
// time the counter is refilled, so bursts straddling a boundary can reach
// twice the nominal rate.
func (l *Limiter) Check(key string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok {
		w = &window{remaining: l.max, resetAt: now.Add(l.length)}
		l.windows[key] = w
	}

	if now.After(w.resetAt) {
		w.remaining = l.max
		w.resetAt = now.Add(l.length)
	}

	if w.remaining <= 0 {
		return Decision{
			Limited:      true,
			RetryAfterMs: w.resetAt.Sub(now).Milliseconds(),
			ResetAt:      w.resetAt,
		}
	}

	w.remaining--
	return Decision{
		Remaining: w.remaining,
		ResetAt:   w.resetAt,
	}
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
