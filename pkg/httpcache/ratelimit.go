package httpcache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultHostDelay is the minimum gap between requests to one host.
const DefaultHostDelay = 250 * time.Millisecond

var hosts = newHostLimiter(DefaultHostDelay)

// SetHostDelay overrides the minimum gap for a host. A zero delay disables pacing for it.
func SetHostDelay(host string, d time.Duration) {
	hosts.set(host, d)
}

// hostLimiter paces requests per host. Each host has its own lock so slow hosts do not
// block others.
type hostLimiter struct {
	overrides map[string]time.Duration
	state     map[string]*hostState
	mu        sync.Mutex
	minDelay  time.Duration
}

type hostState struct {
	last time.Time
	mu   sync.Mutex
}

func newHostLimiter(minDelay time.Duration) *hostLimiter {
	return &hostLimiter{
		minDelay:  minDelay,
		overrides: map[string]time.Duration{},
		state:     map[string]*hostState{},
	}
}

func (r *hostLimiter) set(host string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[host] = d
}

func (r *hostLimiter) lookup(host string) (*hostState, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.state[host]
	if !ok {
		st = &hostState{}
		r.state[host] = st
	}
	d := r.minDelay
	if o, ok := r.overrides[host]; ok {
		d = o
	}
	return st, d
}

// Wait blocks until a request to host is allowed or ctx is done.
func (r *hostLimiter) Wait(ctx context.Context, host string, logger *slog.Logger) error {
	if host == "" {
		return nil
	}
	st, delay := r.lookup(host)

	st.mu.Lock()
	defer st.mu.Unlock()

	if wait := delay - time.Since(st.last); !st.last.IsZero() && wait > 0 {
		logger.DebugContext(ctx, "rate limit pause", "host", host, "wait", wait)
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	st.last = time.Now()
	return nil
}
