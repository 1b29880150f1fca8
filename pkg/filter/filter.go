// Package filter deduplicates, gates and ranks scored profiles.
package filter

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/codeGROOVE-dev/prospector/pkg/geo"
	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

// DefaultMinInvestorWealth is the wealth floor for investors when low-score investors are disallowed.
const DefaultMinInvestorWealth = 70

// Engagement floor.
const (
	engagementIntent    = 60
	engagementFollowers = 100
	engagementContent   = 50
)

// Options controls the quality gates.
type Options struct {
	Country                string
	MinOverallScore        int
	MaxResults             int
	MinInvestorWealth      int
	AllowLowScoreInvestors bool
}

// Filter applies quality gates to scored profiles.
type Filter struct {
	logger *slog.Logger
	geo    *geo.Gazetteer
	opts   Options
}

// Option configures a Filter.
type Option func(*Filter)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filter) { f.logger = logger }
}

// WithGazetteer overrides the country indicator tables.
func WithGazetteer(g *geo.Gazetteer) Option {
	return func(f *Filter) { f.geo = g }
}

// New creates a Filter.
func New(o Options, opts ...Option) *Filter {
	if o.MinInvestorWealth == 0 {
		o.MinInvestorWealth = DefaultMinInvestorWealth
	}
	f := &Filter{logger: slog.Default(), geo: geo.Default(), opts: o}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Apply runs Deduplicate, FilterByScore, FilterByContentCountry, FilterByEngagement and
// Limit in order, then sorts by overall score descending. Ties keep their input order.
func (f *Filter) Apply(in []profile.ScoredProfile) []profile.ScoredProfile {
	out := Deduplicate(in)
	deduped := len(out)
	out = f.FilterByScore(out)
	scored := len(out)
	out = f.FilterByContentCountry(out)
	country := len(out)
	out = f.FilterByEngagement(out)
	engaged := len(out)
	out = Limit(out, f.opts.MaxResults)
	sortByOverall(out)

	f.logger.Info("filtered profiles",
		"input", len(in),
		"deduplicated", deduped,
		"score_gate", scored,
		"country_gate", country,
		"engagement_gate", engaged,
		"output", len(out))
	return out
}

// Deduplicate keeps the first profile for each (platform, profile_url) key.
func Deduplicate(in []profile.ScoredProfile) []profile.ScoredProfile {
	seen := make(map[string]bool, len(in))
	out := make([]profile.ScoredProfile, 0, len(in))
	for i := range in {
		k := in[i].Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, in[i])
	}
	return out
}

// FilterByScore applies the overall-score threshold with relaxed gates for investors,
// helpers and high-intent askers.
func (f *Filter) FilterByScore(in []profile.ScoredProfile) []profile.ScoredProfile {
	out := make([]profile.ScoredProfile, 0, len(in))
	for i := range in {
		if f.passesScore(&in[i]) {
			out = append(out, in[i])
		}
	}
	return out
}

func (f *Filter) passesScore(p *profile.ScoredProfile) bool {
	minScore := f.opts.MinOverallScore
	sc := p.Scores

	if p.HasRelationship(profile.RelInvestorCandidate) {
		if f.opts.AllowLowScoreInvestors {
			return true
		}
		return sc.WealthPotential >= f.opts.MinInvestorWealth
	}
	if p.HasRelationship(profile.RelHelperExpert) {
		return sc.Overall >= max(minScore-10, 30)
	}
	if p.Question != nil && p.Question.Text != "" && sc.Intent > 0 {
		switch {
		case sc.Intent >= 80 && sc.QuestionQuality >= 60:
			return sc.Overall >= max(minScore-15, 35)
		case sc.Intent >= 60 && sc.QuestionQuality >= 50:
			return sc.Overall >= max(minScore-10, 40)
		default:
			return sc.Overall >= minScore
		}
	}
	return sc.Overall >= minScore
}

// FilterByContentCountry keeps profiles whose question, bio, latest content, location or
// headline mentions the configured country. An empty or "all" country, or a country
// without indicator tables, keeps everything.
func (f *Filter) FilterByContentCountry(in []profile.ScoredProfile) []profile.ScoredProfile {
	c := strings.TrimSpace(f.opts.Country)
	if c == "" || strings.EqualFold(c, "all") || !f.geo.Known(c) {
		return in
	}
	out := make([]profile.ScoredProfile, 0, len(in))
	for i := range in {
		p := &in[i]
		var question string
		if p.Question != nil {
			question = p.Question.Text
		}
		if f.geo.MatchesContent(c, question, p.Bio, p.LastContentSample, p.Location, p.Headline) {
			out = append(out, *p)
		}
	}
	return out
}

// FilterByEngagement drops profiles that have no strong intent, no investor or helper
// tag, a small following and no substantial recent content.
func (f *Filter) FilterByEngagement(in []profile.ScoredProfile) []profile.ScoredProfile {
	out := make([]profile.ScoredProfile, 0, len(in))
	for i := range in {
		p := &in[i]
		weak := p.Scores.Intent < engagementIntent &&
			!p.HasRelationship(profile.RelInvestorCandidate) &&
			!p.HasRelationship(profile.RelHelperExpert) &&
			p.Followers < engagementFollowers &&
			len([]rune(p.LastContentSample)) <= engagementContent
		if weak {
			continue
		}
		out = append(out, *p)
	}
	return out
}

// Limit sorts by overall score descending and truncates when in exceeds maxResults.
// A non-positive maxResults disables the cap.
func Limit(in []profile.ScoredProfile, maxResults int) []profile.ScoredProfile {
	if maxResults <= 0 || len(in) <= maxResults {
		return in
	}
	out := slices.Clone(in)
	sortByOverall(out)
	return out[:maxResults]
}

func sortByOverall(ps []profile.ScoredProfile) {
	slices.SortStableFunc(ps, func(a, b profile.ScoredProfile) int {
		return b.Scores.Overall - a.Scores.Overall
	})
}
