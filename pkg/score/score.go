// Package score combines classifier tags and intent scores into sub-scores and an
// overall ranking score.
package score

import (
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/codeGROOVE-dev/prospector/pkg/profile"
	"github.com/codeGROOVE-dev/prospector/pkg/rules"
)

// Weights for the overall score. They sum to 1.
type Weights struct {
	BusinessAlignment float64
	TechnicalSynergy  float64
	Audience          float64
	WealthPotential   float64
	Openness          float64
	QuestionQuality   float64
	Intent            float64
	DecisionStage     float64
}

// DefaultWeights is the canonical weight table.
var DefaultWeights = Weights{
	BusinessAlignment: 0.20,
	TechnicalSynergy:  0.15,
	Audience:          0.10,
	WealthPotential:   0.10,
	Openness:          0.20,
	QuestionQuality:   0.10,
	Intent:            0.15,
	DecisionStage:     0.10,
}

// Boosts applied after weighting.
const (
	highIntentThreshold = 80
	highIntentBoost     = 10
	seekingProBoost     = 15
	defaultOpenness     = 50
)

var wealthScores = map[profile.WealthTier]int{
	profile.WealthHighNetWorth: 100,
	profile.WealthUpperMid:     70,
	profile.WealthEarlyStage:   40,
	profile.WealthUnknown:      20,
}

// Scorer computes profile scores.
type Scorer struct {
	logger          *slog.Logger
	technicalTopics []string
	weights         Weights
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) { s.logger = logger }
}

// WithWeights overrides the overall-score weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) { s.weights = w }
}

// New creates a Scorer. A nil set uses the embedded defaults.
func New(set *rules.Set, opts ...Option) *Scorer {
	if set == nil {
		set = rules.Default()
	}
	s := &Scorer{
		logger:          slog.Default(),
		technicalTopics: set.TechnicalTopics,
		weights:         DefaultWeights,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes every sub-score for p. Intent-derived scores come from the question
// context when present and are zero otherwise.
func (s *Scorer) Score(p *profile.EnrichedProfile, keywords []string) profile.Scores {
	sc := profile.Scores{
		BusinessAlignment: BusinessAlignment(p, keywords),
		TechnicalSynergy:  s.TechnicalSynergy(p),
		Audience:          Audience(p.Followers),
		WealthPotential:   WealthPotential(p.WealthTier),
		Openness:          p.OpennessScore,
	}
	if sc.Openness == 0 {
		sc.Openness = defaultOpenness
	}
	if q := p.Question; q != nil {
		sc.QuestionQuality = q.QualityScore
		sc.Intent = q.IntentScore
		sc.DecisionStage = q.DecisionStageScore
		sc.HelpSeeking = q.HelpSeekingScore
	}
	sc.Overall = s.Overall(sc)
	return sc
}

// BusinessAlignment averages the share of keywords found in the profile text with a
// topic-count score capped at 100. Without keywords it is 50.
func BusinessAlignment(p *profile.EnrichedProfile, keywords []string) int {
	if len(keywords) == 0 {
		return 50
	}
	text := strings.ToLower(p.Headline + " " + p.Bio + " " + p.LastContentSample)
	matched := 0
	for _, k := range keywords {
		if strings.Contains(text, strings.ToLower(k)) {
			matched++
		}
	}
	kw := float64(matched) / float64(len(keywords)) * 100
	topics := float64(min(len(p.Topics)*20, 100))
	return clampRound((kw + topics) / 2)
}

// TechnicalSynergy adds 40 per technical role and 10 per technical topic.
func (s *Scorer) TechnicalSynergy(p *profile.EnrichedProfile) int {
	score := 0
	for _, r := range []profile.Role{profile.RoleTechnicalBuilder, profile.RoleOperator} {
		if p.HasRole(r) {
			score += 40
		}
	}
	for _, t := range p.Topics {
		if slices.Contains(s.technicalTopics, t) {
			score += 10
		}
	}
	return clampRound(float64(score))
}

// Audience is a step function of follower count.
func Audience(followers int) int {
	switch {
	case followers < 1000:
		return 20
	case followers < 10000:
		return 40
	case followers < 50000:
		return 60
	case followers < 100000:
		return 80
	default:
		return 100
	}
}

// WealthPotential looks up the score for a wealth tier.
func WealthPotential(tier profile.WealthTier) int {
	if v, ok := wealthScores[tier]; ok {
		return v
	}
	return 20
}

// Overall is the weighted sum of sub-scores plus boosts, clamped to [0,100] and rounded.
func (s *Scorer) Overall(sc profile.Scores) int {
	w := s.weights
	v := float64(sc.BusinessAlignment)*w.BusinessAlignment +
		float64(sc.TechnicalSynergy)*w.TechnicalSynergy +
		float64(sc.Audience)*w.Audience +
		float64(sc.WealthPotential)*w.WealthPotential +
		float64(sc.Openness)*w.Openness +
		float64(sc.QuestionQuality)*w.QuestionQuality +
		float64(sc.Intent)*w.Intent +
		float64(sc.DecisionStage)*w.DecisionStage

	if sc.Intent > highIntentThreshold {
		v += highIntentBoost
		s.logger.Debug("high intent boost applied", "intent", sc.Intent)
	}
	if sc.DecisionStage == 100 {
		v += seekingProBoost
		s.logger.Debug("actively seeking professional boost applied")
	}
	return clampRound(v)
}

// clampRound rounds half away from zero, then clamps to [0,100].
func clampRound(v float64) int {
	return max(0, min(100, int(math.Round(v))))
}
