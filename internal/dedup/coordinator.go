package dedup

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"corrector-proxy/internal/apierr"
	"corrector-proxy/internal/metrics"
)

// Result is what every caller attached to one in-flight call receives.
type Result struct {
	Output string
	Err    error
	// Shared is true when this caller did not run produce itself.
	Shared bool
}

// Coordinator runs at most one produce per key at a time. Callers that
// arrive while a call is outstanding wait for it and get the same Result.
// The key is released as soon as the call settles.
type Coordinator struct {
	group singleflight.Group

	mu      sync.Mutex
	waiters map[string]int
}

func New() *Coordinator {
	return &Coordinator{waiters: make(map[string]int)}
}

// Do attaches the caller to the in-flight call for key, starting one with
// produce if none exists. produce runs on its own goroutine and is not
// cancelled when a caller goes away. A panic inside produce is delivered to
// every waiter as an INTERNAL error.
func (c *Coordinator) Do(key string, produce func() (string, error)) Result {
	var owner atomic.Bool

	ch := c.group.DoChan(key, func() (any, error) {
		owner.Store(true)
		return c.run(produce)
	})

	c.attach(key)
	res := <-ch
	c.detach(key)

	out := Result{Err: res.Err, Shared: !owner.Load()}
	if s, ok := res.Val.(string); ok {
		out.Output = s
	}
	if out.Shared {
		metrics.DedupSharedTotal.Inc()
	}
	return out
}

// Waiters reports how many callers are currently waiting on key.
func (c *Coordinator) Waiters(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters[key]
}

func (c *Coordinator) run(produce func() (string, error)) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v = ""
			err = fmt.Errorf("produce panicked: %v: %w", rec, apierr.New(apierr.Internal, ""))
		}
	}()
	return produce()
}

func (c *Coordinator) attach(key string) {
	c.mu.Lock()
	c.waiters[key]++
	c.mu.Unlock()
}

func (c *Coordinator) detach(key string) {
	c.mu.Lock()
	if c.waiters[key] <= 1 {
		delete(c.waiters, key)
	} else {
		c.waiters[key]--
	}
	c.mu.Unlock()
}
