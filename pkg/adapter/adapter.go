// Package adapter defines the contract every platform adapter implements and the shared
// plumbing they build on: configuration, pacing, fetching and question tagging.
package adapter

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/prospector/pkg/auth"
	"github.com/codeGROOVE-dev/prospector/pkg/geo"
	"github.com/codeGROOVE-dev/prospector/pkg/httpcache"
	"github.com/codeGROOVE-dev/prospector/pkg/intent"
	"github.com/codeGROOVE-dev/prospector/pkg/profile"
	"github.com/codeGROOVE-dev/prospector/pkg/rules"
)

// SampleLength is the maximum length, in runes, of RawProfile.LastContentSample.
const SampleLength = 500

// Adapter discovers and extracts profiles on one platform.
//
// An Adapter instance is shared for the life of its registry. Search and ExtractProfile
// pace themselves through the instance's own limiter.
type Adapter interface {
	Platform() profile.Platform
	ValidateURL(url string) bool
	Search(ctx context.Context, keywords []string, country string, maxResults int) ([]profile.RawProfile, error)
	ExtractProfile(ctx context.Context, url string) (profile.RawProfile, error)
}

// Credentials holds API keys and secrets for the platforms that need them.
type Credentials struct {
	TwitterBearerToken string
	YouTubeAPIKey      string
	SearchAPIKey       string
	SearchEngineID     string
	RedditClientID     string
	RedditClientSecret string
}

// Config is shared by every adapter constructor.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Config struct {
	Logger        *slog.Logger
	Cache         httpcache.Cacher
	HTTPClient    *http.Client
	Rules         *rules.Set
	CookieSources []auth.Source
	Credentials   Credentials

	// QuestionMode makes adapters look for people asking questions. Default true.
	QuestionMode bool
	// MinDelay overrides the adapter's own minimum gap between requests when non-zero.
	MinDelay time.Duration
	// Retry overrides the fetch retry policy when set.
	Retry *RetryOverride
}

// RetryOverride replaces the retry attempts and delays used by adapter fetches.
type RetryOverride struct {
	MaxAttempts uint
	Initial     time.Duration
	Max         time.Duration
}

// Option configures an adapter.
type Option func(*Config)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(cache httpcache.Cacher) Option {
	return func(c *Config) { c.Cache = cache }
}

// WithHTTPClient replaces the HTTP client, mostly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithRules sets the keyword and pattern tables.
func WithRules(set *rules.Set) Option {
	return func(c *Config) { c.Rules = set }
}

// WithCredentials sets API credentials.
func WithCredentials(creds Credentials) Option {
	return func(c *Config) { c.Credentials = creds }
}

// WithCookieSources sets where session cookies are looked up, in order.
func WithCookieSources(sources ...auth.Source) Option {
	return func(c *Config) { c.CookieSources = sources }
}

// WithQuestionMode turns question-seeking search on or off.
func WithQuestionMode(enabled bool) Option {
	return func(c *Config) { c.QuestionMode = enabled }
}

// WithMinDelay overrides the minimum gap between requests.
func WithMinDelay(d time.Duration) Option {
	return func(c *Config) { c.MinDelay = d }
}

// WithRetry overrides fetch retry attempts and delays.
func WithRetry(r RetryOverride) Option {
	return func(c *Config) { c.Retry = &r }
}

// NewConfig applies opts over the defaults.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		Logger:       slog.Default(),
		QuestionMode: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Rules == nil {
		cfg.Rules = rules.Default()
	}
	return cfg
}

// Base carries the state shared by all adapter variants. Embed it.
type Base struct {
	cfg      *Config
	logger   *slog.Logger
	limiter  *Limiter
	scorer   *intent.Scorer
	geo      *geo.Gazetteer
	platform profile.Platform
}

// NewBase builds a Base for platform with its default minimum request gap.
func NewBase(platform profile.Platform, minDelay time.Duration, cfg *Config) *Base {
	if cfg == nil {
		cfg = NewConfig()
	}
	if cfg.MinDelay != 0 {
		minDelay = cfg.MinDelay
	}
	return &Base{
		cfg:      cfg,
		logger:   cfg.Logger.With("platform", string(platform)),
		limiter:  NewLimiter(minDelay),
		scorer:   intent.NewScorer(cfg.Rules),
		geo:      geo.New(cfg.Rules),
		platform: platform,
	}
}

// Platform returns the adapter's platform.
func (b *Base) Platform() profile.Platform { return b.platform }

// Config returns the adapter configuration.
func (b *Base) Config() *Config { return b.cfg }

// Logger returns a logger tagged with the platform.
func (b *Base) Logger() *slog.Logger { return b.logger }

// QuestionSeeking reports whether question-seeking mode is on.
func (b *Base) QuestionSeeking() bool { return b.cfg.QuestionMode }

// Intent returns the shared intent scorer.
func (b *Base) Intent() *intent.Scorer { return b.scorer }

// Gazetteer returns the country tables.
func (b *Base) Gazetteer() *geo.Gazetteer { return b.geo }

// EmptyProfile returns a profile with every field zeroed and the platform set.
func (b *Base) EmptyProfile() profile.RawProfile {
	return profile.RawProfile{Platform: b.platform}
}

// NormalizeLocation maps a raw location to a country name.
func (b *Base) NormalizeLocation(raw string) string {
	return b.geo.NormalizeLocation(raw)
}

// Wait blocks until the adapter may send its next request.
func (b *Base) Wait(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// MissingCredentials logs that a search is skipped for lack of credentials. Callers
// return an empty result.
func (b *Base) MissingCredentials(ctx context.Context, what string) {
	b.logger.WarnContext(ctx, "credentials not configured, skipping search", "missing", what)
}

// SkipItem logs a per-item failure. The item is dropped and the search continues.
func (b *Base) SkipItem(ctx context.Context, url string, err error) {
	b.logger.WarnContext(ctx, "skipping profile",
		"error", &profile.ExtractionError{Platform: b.platform, URL: url, Err: err})
}

// AttachQuestion scores text with the intent scorer and, when it reads as a question,
// attaches the question context to p. It returns the scoring result.
func (b *Base) AttachQuestion(p *profile.RawProfile, text, source, date string) intent.Result {
	res := b.scorer.ScoreContent(text)
	if !res.IsQuestion {
		return res
	}
	qc, err := res.QuestionContext(source, date)
	if err != nil {
		b.logger.Debug("question context rejected", "error", err)
		return res
	}
	p.Question = qc
	return res
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Sample trims and truncates content to SampleLength.
func Sample(s string) string {
	return Truncate(strings.TrimSpace(s), SampleLength)
}
