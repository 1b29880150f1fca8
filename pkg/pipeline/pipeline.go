// Package pipeline runs one discovery pass: search every selected platform, enrich and
// score each profile, then filter and rank the result.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/prospector/pkg/adapter"
	"github.com/codeGROOVE-dev/prospector/pkg/classify"
	"github.com/codeGROOVE-dev/prospector/pkg/filter"
	"github.com/codeGROOVE-dev/prospector/pkg/geo"
	"github.com/codeGROOVE-dev/prospector/pkg/profile"
	"github.com/codeGROOVE-dev/prospector/pkg/rules"
	"github.com/codeGROOVE-dev/prospector/pkg/score"
)

// Resolver hands out adapters by platform name. *registry.Registry implements it.
type Resolver interface {
	Get(ctx context.Context, name string) (adapter.Adapter, error)
}

// Options describes one run.
type Options struct {
	Keywords               []string
	Platforms              []profile.Platform
	Country                string
	MaxResults             int
	MinOverallScore        int
	AllowLowScoreInvestors bool
}

// Result is the outcome of a run.
type Result struct {
	RunID    string
	Profiles []profile.ScoredProfile
	// Found counts raw profiles per platform before enrichment.
	Found    map[profile.Platform]int
	Raw      int
	Enriched int
	Started  time.Time
	Finished time.Time
}

// Pipeline wires the classifiers, scorer and filter around a set of adapters.
type Pipeline struct {
	logger       *slog.Logger
	resolver     Resolver
	rules        *rules.Set
	classifier   *classify.Classifier
	relationship *classify.RelationshipClassifier
	wealth       *classify.WealthClassifier
	scorer       *score.Scorer
	geo          *geo.Gazetteer
	now          func() time.Time
	runID        func() string
	workers      int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithRules sets the keyword and pattern tables.
func WithRules(set *rules.Set) Option {
	return func(p *Pipeline) { p.rules = set }
}

// WithClock sets the time source for run timestamps and content recency.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithRunID fixes the run identifier instead of generating a UUID.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = func() string { return id } }
}

// WithWorkers bounds enrichment concurrency. Zero or less uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// New creates a pipeline over the adapters provided by resolver.
func New(resolver Resolver, opts ...Option) *Pipeline {
	p := &Pipeline{
		logger:   slog.Default(),
		resolver: resolver,
		now:      time.Now,
		runID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rules == nil {
		p.rules = rules.Default()
	}
	if p.workers <= 0 {
		p.workers = runtime.GOMAXPROCS(0)
	}
	p.classifier = classify.New(p.rules)
	p.relationship = classify.NewRelationship(p.rules)
	p.wealth = classify.NewWealth(p.rules, classify.WithClock(p.now))
	p.scorer = score.New(p.rules, score.WithLogger(p.logger))
	p.geo = geo.New(p.rules)
	return p
}

// Run resolves every platform's adapter, searches them in parallel, enriches and scores
// the merged profiles and applies the filter. Adapter resolution failures abort the run;
// search failures only empty that platform's results.
func (p *Pipeline) Run(ctx context.Context, o Options) (*Result, error) {
	res := &Result{RunID: p.runID(), Started: p.now(), Found: map[profile.Platform]int{}}
	log := p.logger.With("run_id", res.RunID)

	platforms := uniquePlatforms(o.Platforms)
	if len(platforms) == 0 {
		return nil, &profile.ConfigError{Field: "platforms", Reason: "no platforms selected"}
	}
	adapters := make([]adapter.Adapter, len(platforms))
	for i, pl := range platforms {
		a, err := p.resolver.Get(ctx, string(pl))
		if err != nil {
			return nil, err
		}
		adapters[i] = a
	}

	log.InfoContext(ctx, "searching platforms", "platforms", platforms, "keywords", o.Keywords, "country", o.Country)
	raw := p.search(ctx, adapters, o)
	for _, r := range raw {
		res.Found[r.Platform]++
	}
	res.Raw = len(raw)
	if len(raw) == 0 {
		log.InfoContext(ctx, "no profiles found")
		res.Finished = p.now()
		return res, nil
	}

	log.InfoContext(ctx, "enriching profiles", "count", len(raw), "workers", p.workers)
	scored, err := p.Enrich(ctx, raw, o.Keywords)
	if err != nil {
		return nil, fmt.Errorf("enrich: %w", err)
	}
	stamp := p.now()
	for i := range scored {
		scored[i].RunID = res.RunID
		scored[i].CreatedAt = stamp
		scored[i].UpdatedAt = stamp
	}
	res.Enriched = len(scored)

	f := filter.New(filter.Options{
		Country:                o.Country,
		MinOverallScore:        o.MinOverallScore,
		MaxResults:             o.MaxResults,
		AllowLowScoreInvestors: o.AllowLowScoreInvestors,
	}, filter.WithLogger(log), filter.WithGazetteer(p.geo))
	res.Profiles = f.Apply(scored)
	res.Finished = p.now()
	log.InfoContext(ctx, "run complete", "raw", res.Raw, "enriched", res.Enriched, "kept", len(res.Profiles),
		"duration", res.Finished.Sub(res.Started))
	return res, nil
}

// search queries every adapter concurrently with an equal share of MaxResults. A failed
// platform contributes nothing. Results keep platform order.
func (p *Pipeline) search(ctx context.Context, adapters []adapter.Adapter, o Options) []profile.RawProfile {
	per := perPlatform(o.MaxResults, len(adapters))
	results := make([][]profile.RawProfile, len(adapters))

	var g errgroup.Group
	for i, a := range adapters {
		g.Go(func() error {
			log := p.logger.With("platform", string(a.Platform()))
			found, err := a.Search(ctx, o.Keywords, o.Country, per)
			if err != nil {
				log.WarnContext(ctx, "platform search failed", "error", err)
				return nil
			}
			for _, r := range found {
				if err := r.Validate(); err != nil {
					log.WarnContext(ctx, "dropping invalid profile", "error", err)
					continue
				}
				results[i] = append(results[i], r)
			}
			log.InfoContext(ctx, "platform search complete", "profiles", len(results[i]))
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // tasks never return errors

	var out []profile.RawProfile
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// Enrich classifies and scores every profile, preserving input order.
func (p *Pipeline) Enrich(ctx context.Context, raw []profile.RawProfile, keywords []string) ([]profile.ScoredProfile, error) {
	out := make([]profile.ScoredProfile, len(raw))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range raw {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = p.EnrichOne(&raw[i], keywords)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// EnrichOne runs the classifiers and scorer over a single profile.
func (p *Pipeline) EnrichOne(raw *profile.RawProfile, keywords []string) profile.ScoredProfile {
	roles := p.classifier.Roles(raw)
	topics := p.classifier.Topics(raw.Bio + " " + raw.LastContentSample)
	tag, openness := p.classifier.Openness(raw)

	e := profile.EnrichedProfile{
		RawProfile:       *raw,
		RoleTags:         roles,
		Topics:           topics,
		RelationshipTags: p.relationship.Classify(raw, roles, keywords),
		WealthTier:       p.wealth.Tier(raw, roles),
		PotentialTier:    p.wealth.Potential(raw, topics),
		OpennessTag:      tag,
		OpennessScore:    openness,
	}
	sp := profile.ScoredProfile{EnrichedProfile: e, Scores: p.scorer.Score(&e, keywords)}
	if raw.Location != "" {
		sp.Country = p.geo.NormalizeLocation(raw.Location)
	}
	return sp
}

// perPlatform splits maxResults evenly, rounding up.
func perPlatform(maxResults, platforms int) int {
	if platforms == 0 {
		return 0
	}
	return (maxResults + platforms - 1) / platforms
}

func uniquePlatforms(in []profile.Platform) []profile.Platform {
	var out []profile.Platform
	for _, p := range in {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}
