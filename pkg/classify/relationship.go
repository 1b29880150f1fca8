package classify

import (
	"strings"

	"github.com/codeGROOVE-dev/prospector/pkg/profile"
	"github.com/codeGROOVE-dev/prospector/pkg/rules"
)

// RelationshipClassifier tags how a profile could relate to the searcher.
type RelationshipClassifier struct {
	r rules.Relationships
}

// NewRelationship builds a RelationshipClassifier. A nil set uses the embedded defaults.
func NewRelationship(set *rules.Set) *RelationshipClassifier {
	if set == nil {
		set = rules.Default()
	}
	return &RelationshipClassifier{r: set.Relationships}
}

// Classify evaluates each relationship category independently over headline, bio and
// latest content. Investor and investee tags are only considered when the matching role
// is already present. contextKeywords are the run's search keywords.
func (c *RelationshipClassifier) Classify(p *profile.RawProfile, roles []profile.Role, contextKeywords []string) []profile.Relationship {
	text := strings.ToLower(p.Headline + " " + p.Bio + " " + p.LastContentSample)
	has := func(role profile.Role) bool {
		for _, r := range roles {
			if r == role {
				return true
			}
		}
		return false
	}

	var out []profile.Relationship
	if rules.ContainsAny(text, c.r.Ally) {
		out = append(out, profile.RelAlly)
	}
	if rules.ContainsAny(text, c.r.HelperExpert) {
		out = append(out, profile.RelHelperExpert)
	}
	if has(profile.RoleInvestor) && rules.ContainsAny(text, c.r.InvestorSignals) {
		out = append(out, profile.RelInvestorCandidate)
	}
	if has(profile.RoleFounder) && rules.ContainsAny(text, c.r.InvesteeSignals) {
		out = append(out, profile.RelInvesteeCandidate)
	}
	if rules.ContainsAny(text, c.r.Seniority) && rules.ContainsAny(text, c.r.Advice) {
		out = append(out, profile.RelMentor)
	}
	if rules.ContainsAny(text, c.r.Junior) && rules.ContainsAny(text, c.r.Ambitious) {
		out = append(out, profile.RelMentee)
	}
	for _, k := range contextKeywords {
		if k != "" && strings.Contains(text, strings.ToLower(k)) {
			out = append(out, profile.RelCollaboratorCandidate)
			break
		}
	}
	return out
}
