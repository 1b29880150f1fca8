// Package classify derives categorical tags from profile text using keyword tables.
// Every classifier here is stateless after construction and deterministic.
package classify

import (
	"regexp"
	"slices"
	"strings"

	"github.com/codeGROOVE-dev/prospector/pkg/profile"
	"github.com/codeGROOVE-dev/prospector/pkg/rules"
)

// Classifier assigns role tags, topics and openness.
type Classifier struct {
	roles     []rules.Role
	threshold int
	topics    []string
	orgKeys   []string
	orgTopics map[string]string
	openness  rules.Openness
}

// orgPattern picks out capitalised names such as "Supabase" or "Google Cloud".
var orgPattern = regexp.MustCompile(`\b[A-Z][A-Za-z0-9]*(?:[ .][A-Z][A-Za-z0-9]*)*\b`)

// New builds a Classifier. A nil set uses the embedded defaults.
func New(set *rules.Set) *Classifier {
	if set == nil {
		set = rules.Default()
	}
	keys := make([]string, 0, len(set.OrgTopics))
	for k := range set.OrgTopics {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return &Classifier{
		roles:     set.Roles,
		threshold: set.AudienceFollowerThreshold,
		topics:    set.Topics,
		orgKeys:   keys,
		orgTopics: set.OrgTopics,
		openness:  set.Openness,
	}
}

// Roles tests each role's keywords against headline, bio and company. A follower count
// above the audience threshold always adds marketer_with_audience. Output follows the
// role definition order.
func (c *Classifier) Roles(p *profile.RawProfile) []profile.Role {
	text := strings.ToLower(p.Headline + " " + p.Bio + " " + p.Company)
	var out []profile.Role
	for _, r := range c.roles {
		role := profile.Role(r.Name)
		matched := rules.ContainsAny(text, lower(r.Keywords))
		if role == profile.RoleMarketerWithAudience && p.Followers > c.threshold {
			matched = true
		}
		if matched {
			out = append(out, role)
		}
	}
	return out
}

// Topics returns vocabulary topics found in text in first-seen order, then topics
// inferred from organisation names mentioned in the text.
func (c *Classifier) Topics(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lowerText := strings.ToLower(text)
	var out []string
	for _, t := range c.topics {
		if strings.Contains(lowerText, strings.ToLower(t)) {
			out = append(out, t)
		}
	}
	for _, org := range orgPattern.FindAllString(text, -1) {
		lo := strings.ToLower(org)
		for _, k := range c.orgKeys {
			if !strings.Contains(lo, k) {
				continue
			}
			if t := c.orgTopics[k]; !slices.Contains(out, t) {
				out = append(out, t)
			}
		}
	}
	return out
}

// Openness runs the openness cascade over bio and latest content.
func (c *Classifier) Openness(p *profile.RawProfile) (profile.Openness, int) {
	text := strings.ToLower(p.Bio + " " + p.LastContentSample)
	switch {
	case rules.ContainsAny(text, lower(c.openness.Open)):
		return profile.OpennessOpen, 80
	case rules.ContainsAny(text, lower(c.openness.Closed)):
		return profile.OpennessClosed, 20
	case rules.CountMatches(text, lower(c.openness.Networking)) >= 2:
		return profile.OpennessNeutral, 55
	case len([]rune(text)) < c.openness.MinTextLength:
		return profile.OpennessUnknown, 50
	default:
		return profile.OpennessNeutral, 50
	}
}

func lower(ks []string) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = strings.ToLower(k)
	}
	return out
}
