package adapter

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a minimum gap between requests made by one adapter instance.
// Concurrent callers are serialized on the mutex, so the gap holds for every pair of
// consecutive requests.
type Limiter struct {
	last     time.Time
	mu       sync.Mutex
	minDelay time.Duration
}

// NewLimiter creates a Limiter.
func NewLimiter(minDelay time.Duration) *Limiter {
	return &Limiter{minDelay: minDelay}
}

// Wait blocks until minDelay has passed since the previous request, then records the
// current time as the latest request. It returns early with ctx's error.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.last.IsZero() {
		if wait := l.minDelay - time.Since(l.last); wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	l.last = time.Now()
	return nil
}
