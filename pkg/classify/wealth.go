package classify

import (
	"strings"
	"time"

	"github.com/codeGROOVE-dev/prospector/pkg/profile"
	"github.com/codeGROOVE-dev/prospector/pkg/rules"
)

// WealthClassifier estimates wealth and potential tiers.
type WealthClassifier struct {
	w   rules.Wealth
	p   rules.Potential
	now func() time.Time
}

// WealthOption configures a WealthClassifier.
type WealthOption func(*WealthClassifier)

// WithClock sets the clock used for content recency.
func WithClock(now func() time.Time) WealthOption {
	return func(c *WealthClassifier) { c.now = now }
}

// NewWealth builds a WealthClassifier. A nil set uses the embedded defaults.
func NewWealth(set *rules.Set, opts ...WealthOption) *WealthClassifier {
	if set == nil {
		set = rules.Default()
	}
	c := &WealthClassifier{w: set.Wealth, p: set.Potential, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tier runs the wealth cascade: investor role or high signals, then director-level
// signals, then early-stage signals. Each keyword band is followed by its company-size band.
func (c *WealthClassifier) Tier(p *profile.RawProfile, roles []profile.Role) profile.WealthTier {
	for _, r := range roles {
		if r == profile.RoleInvestor {
			return profile.WealthHighNetWorth
		}
	}
	text := strings.ToLower(p.Headline + " " + p.Bio + " " + p.Company + " " + p.CompanySizeHint)
	size := strings.ToLower(p.CompanySizeHint)

	switch {
	case rules.ContainsAny(text, c.w.High):
		return profile.WealthHighNetWorth
	case size != "" && rules.ContainsAny(size, c.w.HighSize):
		return profile.WealthHighNetWorth
	case c.w.HighFollowers > 0 && p.Followers >= c.w.HighFollowers:
		return profile.WealthHighNetWorth
	case rules.ContainsAny(text, c.w.UpperMid):
		return profile.WealthUpperMid
	case size != "" && rules.ContainsAny(size, c.w.UpperMidSize):
		return profile.WealthUpperMid
	case rules.ContainsAny(text, c.w.Early):
		return profile.WealthEarlyStage
	case size != "" && rules.ContainsAny(size, c.w.EarlySize):
		return profile.WealthEarlyStage
	default:
		return profile.WealthUnknown
	}
}

// Potential accumulates growth signals, a topic-count bonus and a recency bonus.
func (c *WealthClassifier) Potential(p *profile.RawProfile, topics []string) profile.PotentialTier {
	text := strings.ToLower(p.Bio + " " + p.LastContentSample)

	high := rules.CountMatches(text, c.p.High)
	if len(topics) >= c.p.ManyTopics {
		high += 2
	}
	if t := p.ContentTime(); !t.IsZero() {
		switch days := c.now().Sub(t).Hours() / 24; {
		case days <= 7:
			high += 2
		case days <= 30:
			high++
		}
	}
	if high >= 3 {
		return profile.PotentialHigh
	}

	medium := rules.CountMatches(text, c.p.Medium)
	if len(topics) >= 1 {
		medium++
	}
	if medium >= 2 || high >= 1 {
		return profile.PotentialMedium
	}
	if len([]rune(text)) < c.p.ShortText || len(topics) == 0 {
		return profile.PotentialLow
	}
	return profile.PotentialMedium
}
