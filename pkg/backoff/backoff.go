// Package backoff wraps fallible operations with bounded exponential-backoff retry.
package backoff

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

// Policy configures retry behaviour. The zero value is not useful; start from Default.
type Policy struct {
	Logger      *slog.Logger
	MaxAttempts uint // total calls, including the first
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
	Timeout     time.Duration // used by DoWithTimeout
}

// Default allows 5 retries after the first call (6 attempts), 1s initial delay
// doubling up to 30s, and a 30s timeout.
func Default() Policy {
	return Policy{
		MaxAttempts: 6,
		Initial:     time.Second,
		Max:         30 * time.Second,
		Multiplier:  2,
		Timeout:     30 * time.Second,
	}
}

// Delay returns the wait before retry n (zero-based): min(Initial*Multiplier^n, Max).
func (p Policy) Delay(n uint) time.Duration {
	d := float64(p.Initial) * math.Pow(p.Multiplier, float64(n))
	if p.Max > 0 && d > float64(p.Max) {
		return p.Max
	}
	return time.Duration(d)
}

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	HTTPStatus() int
}

// IsRetryable reports whether err is transient: connection reset, timeout, DNS failure,
// HTTP 429 or HTTP 5xx. Everything else is permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		code := sc.HTTPStatus()
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}
	if errors.Is(err, profile.ErrRateLimited) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Do runs fn until it succeeds, returns a permanent error, or attempts run out.
// The last error is returned on exhaustion.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	return retry.DoWithData(
		func() (T, error) { return fn(ctx) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return p.Delay(n)
		}),
		retry.RetryIf(IsRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if p.Logger != nil {
				p.Logger.DebugContext(ctx, "retrying", "attempt", n+1, "delay", p.Delay(n), "error", err)
			}
		}),
	)
}

// DoWithTimeout is Do bounded by p.Timeout across all attempts.
func DoWithTimeout[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	if p.Timeout <= 0 {
		return Do(ctx, p, fn)
	}
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return Do(ctx, p, fn)
}
