// Package geo maps free-text locations to countries and detects country-relevant content.
package geo

import (
	"regexp"
	"strings"

	"github.com/codeGROOVE-dev/prospector/pkg/rules"
)

// Gazetteer matches text against per-country indicator lists.
type Gazetteer struct {
	countries []country
}

type country struct {
	name     string
	code     string
	location []matcher
	content  []matcher
}

// matcher is a compiled indicator. Short alphabetic indicators ("uk", "us", "tx")
// need word boundaries; everything else is a plain substring.
type matcher struct {
	re  *regexp.Regexp
	sub string
}

var shortToken = regexp.MustCompile(`^[a-z.]{1,4}$`)

func newMatcher(indicator string) matcher {
	ind := strings.ToLower(indicator)
	if shortToken.MatchString(ind) {
		return matcher{re: regexp.MustCompile(`\b` + regexp.QuoteMeta(ind) + `(\W|$)`)}
	}
	return matcher{sub: ind}
}

func (m matcher) match(lower string) bool {
	if m.re != nil {
		return m.re.MatchString(lower)
	}
	return strings.Contains(lower, m.sub)
}

// New builds a Gazetteer from a rule set.
func New(set *rules.Set) *Gazetteer {
	g := &Gazetteer{}
	for _, c := range set.Countries {
		cc := country{name: c.Name, code: strings.ToUpper(c.Code)}
		for _, ind := range c.Location {
			cc.location = append(cc.location, newMatcher(ind))
		}
		for _, ind := range c.Content {
			cc.content = append(cc.content, newMatcher(ind))
		}
		g.countries = append(g.countries, cc)
	}
	return g
}

var defaultGazetteer = New(rules.Default())

// Default returns the gazetteer built from the embedded rules.
func Default() *Gazetteer { return defaultGazetteer }

// NormalizeLocation maps a raw location to a country name using the default gazetteer.
func NormalizeLocation(raw string) string { return defaultGazetteer.NormalizeLocation(raw) }

// NormalizeLocation returns the first country whose location indicators occur in raw.
// Unmatched input is returned unchanged.
func (g *Gazetteer) NormalizeLocation(raw string) string {
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	for _, c := range g.countries {
		for _, m := range c.location {
			if m.match(lower) {
				return c.name
			}
		}
	}
	return raw
}

// Known reports whether the gazetteer has content indicators for the named country.
func (g *Gazetteer) Known(name string) bool {
	return g.find(name) != nil
}

// Code returns the ISO 3166-1 alpha-2 code for the named country, or "".
func (g *Gazetteer) Code(name string) string {
	if c := g.find(name); c != nil {
		return c.code
	}
	return ""
}

// Name returns the country name for an ISO 3166-1 alpha-2 code, or "".
func (g *Gazetteer) Name(code string) string {
	for i := range g.countries {
		if g.countries[i].code != "" && strings.EqualFold(g.countries[i].code, code) {
			return g.countries[i].name
		}
	}
	return ""
}

// MatchesContent reports whether any of texts contains a content indicator for the
// named country. Unknown countries match nothing.
func (g *Gazetteer) MatchesContent(name string, texts ...string) bool {
	c := g.find(name)
	if c == nil {
		return false
	}
	for _, t := range texts {
		if t == "" {
			continue
		}
		lower := strings.ToLower(t)
		for _, m := range c.content {
			if m.match(lower) {
				return true
			}
		}
	}
	return false
}

func (g *Gazetteer) find(name string) *country {
	n := strings.ToLower(strings.TrimSpace(name))
	for i := range g.countries {
		if strings.ToLower(g.countries[i].name) == n {
			return &g.countries[i]
		}
	}
	return nil
}
