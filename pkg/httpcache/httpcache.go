// Package httpcache fetches HTTP resources with response caching, per-host pacing and
// retry of transient failures.
package httpcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/codeGROOVE-dev/sfcache"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/localfs"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/null"

	"github.com/codeGROOVE-dev/prospector/pkg/backoff"
)

// UserAgent is sent with every request unless the caller set one.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:146.0) Gecko/20100101 Firefox/146.0"

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

// Stats tracks cache hit/miss statistics.
type Stats struct {
	Hits   int64
	Misses int64
}

var (
	hits   atomic.Int64
	misses atomic.Int64
)

// CacheStats returns the current cache statistics.
func CacheStats() Stats {
	return Stats{Hits: hits.Load(), Misses: misses.Load()}
}

// ResetStats resets the cache statistics.
func ResetStats() {
	hits.Store(0)
	misses.Store(0)
}

// Cacher allows external cache implementations for sharing across packages.
type Cacher interface {
	GetSet(ctx context.Context, key string, fetch func(context.Context) ([]byte, error), ttl ...time.Duration) ([]byte, error)
	TTL() time.Duration
}

// Cache wraps sfcache for HTTP response caching.
type Cache struct {
	*sfcache.TieredCache[string, []byte]

	ttl time.Duration
}

// New creates a Cache persisted under the user cache directory.
func New(ttl time.Duration) (*Cache, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return NewWithPath(ttl, filepath.Join(dir, "prospector"))
}

// NewNull creates a Cache that never stores anything.
func NewNull() *Cache {
	tc, err := sfcache.NewTiered[string, []byte](null.New[string, []byte]())
	if err != nil {
		panic("sfcache.NewTiered with null store: " + err.Error())
	}
	return &Cache{TieredCache: tc}
}

// NewWithPath creates a Cache persisted at path.
func NewWithPath(ttl time.Duration, path string) (*Cache, error) {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	persist, err := localfs.New[string, []byte]("prospector", path)
	if err != nil {
		return nil, fmt.Errorf("create persistence layer: %w", err)
	}
	tc, err := sfcache.NewTiered[string, []byte](persist, sfcache.TTL(ttl))
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Cache{TieredCache: tc, ttl: ttl}, nil
}

// TTL returns the default TTL for cache entries.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// URLToKey converts a URL to a cache key using SHA256 hash.
func URLToKey(rawURL string) string {
	hash := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(hash[:])
}

// secretParams are query parameters whose values never appear in logs or errors.
var secretParams = []string{"key", "api_key", "apikey", "access_token", "token", "client_secret", "password", "sig"}

// RedactURL renders u with userinfo and secret query values masked.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	c := *u
	if c.RawQuery != "" {
		q := c.Query()
		changed := false
		for _, k := range secretParams {
			if q.Has(k) {
				q.Set(k, "xxxxx")
				changed = true
			}
		}
		if changed {
			c.RawQuery = q.Encode()
		}
	}
	return c.Redacted()
}

// HTTPError represents a non-200 HTTP response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// HTTPStatus returns the response status code.
func (e *HTTPError) HTTPStatus() int { return e.StatusCode }

// ResponseValidator validates a response body. Returns true if cacheable.
type ResponseValidator func(body []byte) bool

type fetchConfig struct {
	validator ResponseValidator
	policy    backoff.Policy
}

// FetchOption configures a single fetch.
type FetchOption func(*fetchConfig)

// WithValidator skips caching bodies the validator rejects.
func WithValidator(v ResponseValidator) FetchOption {
	return func(c *fetchConfig) { c.validator = v }
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p backoff.Policy) FetchOption {
	return func(c *fetchConfig) { c.policy = p }
}

// DefaultPolicy is the retry policy used when none is given. Fetches are bounded to a
// few quick attempts; adapters that need the long policy pass it explicitly.
func DefaultPolicy() backoff.Policy {
	return backoff.Policy{
		MaxAttempts: 3,
		Initial:     200 * time.Millisecond,
		Max:         2 * time.Second,
		Multiplier:  2,
		Timeout:     30 * time.Second,
	}
}

// FetchURL fetches req with caching and thundering herd prevention. A nil cache disables
// caching. HTTP errors and network errors are cached too so a failing host is not hammered.
func FetchURL(ctx context.Context, cache Cacher, client *http.Client, req *http.Request, logger *slog.Logger, opts ...FetchOption) ([]byte, error) {
	cfg := fetchConfig{policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.policy.Logger == nil {
		cfg.policy.Logger = logger
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}

	key := cacheKey(client, req)
	if cache == nil {
		misses.Add(1)
		return doFetch(ctx, client, req, cfg.policy, logger)
	}

	var fetched bool
	data, err := cache.GetSet(ctx, URLToKey(key), func(ctx context.Context) ([]byte, error) {
		fetched = true
		misses.Add(1)
		logger.DebugContext(ctx, "cache miss", "url", RedactURL(req.URL))
		body, err := doFetch(ctx, client, req, cfg.policy, logger)
		if err != nil {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				return fmt.Appendf(nil, "ERROR:%d", httpErr.StatusCode), nil
			}
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			return fmt.Appendf(nil, "NETERR:%s", err.Error()), nil
		}
		if cfg.validator != nil && !cfg.validator(body) {
			logger.DebugContext(ctx, "skipping cache due to validation failure", "url", RedactURL(req.URL))
			return nil, &validationError{data: body}
		}
		return body, nil
	}, cache.TTL())

	if !fetched {
		hits.Add(1)
		logger.DebugContext(ctx, "cache hit", "url", RedactURL(req.URL))
	}

	var validErr *validationError
	if errors.As(err, &validErr) {
		return validErr.data, nil
	}
	if err != nil {
		return nil, err
	}

	s := string(data)
	if code, ok := strings.CutPrefix(s, "ERROR:"); ok {
		n, _ := strconv.Atoi(code) //nolint:errcheck // 0 is acceptable default
		return nil, &HTTPError{StatusCode: n, URL: RedactURL(req.URL)}
	}
	if msg, ok := strings.CutPrefix(s, "NETERR:"); ok {
		return nil, fmt.Errorf("cached network error: %s", msg)
	}
	return data, nil
}

// cacheKey separates authenticated responses from anonymous ones.
func cacheKey(client *http.Client, req *http.Request) string {
	key := req.Method + " " + req.URL.String()
	if client.Jar != nil && len(client.Jar.Cookies(req.URL)) > 0 {
		key += "|auth"
	}
	if req.Header.Get("Authorization") != "" {
		key += "|bearer"
	}
	return key
}

type validationError struct{ data []byte }

func (*validationError) Error() string { return "validation failed" }

func doFetch(ctx context.Context, client *http.Client, req *http.Request, p backoff.Policy, logger *slog.Logger) ([]byte, error) {
	return backoff.DoWithTimeout(ctx, p, func(ctx context.Context) ([]byte, error) {
		if err := hosts.Wait(ctx, req.URL.Host, logger); err != nil {
			return nil, err
		}
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			var urlErr *url.Error
			if errors.As(err, &urlErr) {
				urlErr.URL = RedactURL(req.URL)
			}
			return nil, err
		}
		defer resp.Body.Close() //nolint:errcheck // intentional

		if resp.StatusCode != http.StatusOK {
			return nil, &HTTPError{StatusCode: resp.StatusCode, URL: RedactURL(req.URL)}
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxBody))
	})
}
