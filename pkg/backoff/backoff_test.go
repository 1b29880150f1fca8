package backoff

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("HTTP %d", int(e)) }
func (e statusErr) HTTPStatus() int { return int(e) }

func fastPolicy(attempts uint) Policy {
	return Policy{MaxAttempts: attempts, Initial: time.Millisecond, Max: 2 * time.Millisecond, Multiplier: 2}
}

func TestDelay(t *testing.T) {
	p := Default()
	tests := []struct {
		n    uint
		want time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.n); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", statusErr(429), true},
		{"500", statusErr(500), true},
		{"503 wrapped", fmt.Errorf("fetch: %w", statusErr(503)), true},
		{"404", statusErr(404), false},
		{"401", statusErr(401), false},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"timeout errno", syscall.ETIMEDOUT, true},
		{"dns", &net.DNSError{Err: "no such host", Name: "example.invalid"}, true},
		{"rate limited", profile.ErrRateLimited, true},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("bad json"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDoRetriesTransient(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(5), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", statusErr(503)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("Do() = %q after %d calls, want %q after 3", got, calls, "ok")
	}
}

func TestDoStopsOnPermanent(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), func(context.Context) (int, error) {
		calls++
		return 0, statusErr(404)
	})
	if err == nil {
		t.Fatal("Do() error = nil, want error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoExhaustionReturnsLastError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(3), func(context.Context) (int, error) {
		calls++
		return 0, statusErr(500 + calls)
	})
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	var sc statusErr
	if !errors.As(err, &sc) || int(sc) != 503 {
		t.Errorf("Do() error = %v, want last error HTTP 503", err)
	}
}

func TestDefaultRetriesFiveTimes(t *testing.T) {
	p := Default()
	p.Initial, p.Max = time.Millisecond, time.Millisecond
	calls := 0
	_, err := Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, statusErr(503)
	})
	if err == nil {
		t.Fatal("Do() error = nil, want HTTP 503")
	}
	if calls != 6 {
		t.Errorf("calls = %d, want 6 (1 initial + 5 retries)", calls)
	}
}

func TestDoWithTimeout(t *testing.T) {
	p := Policy{MaxAttempts: 100, Initial: 20 * time.Millisecond, Max: 20 * time.Millisecond, Multiplier: 1, Timeout: 50 * time.Millisecond}
	start := time.Now()
	_, err := DoWithTimeout(context.Background(), p, func(context.Context) (int, error) {
		return 0, statusErr(500)
	})
	if err == nil {
		t.Fatal("DoWithTimeout() error = nil, want error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("DoWithTimeout() took %v, want bounded by timeout", elapsed)
	}
}
