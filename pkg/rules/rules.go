// Package rules holds the versioned keyword and pattern tables that drive detection,
// classification and the country gazetteer.
//
// The embedded rules.yaml is the default set. Load overlays a file on top of it so
// tables can be tuned without rebuilding.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var embedded []byte

// QuestionType pairs a question type with the pattern that selects it.
type QuestionType struct {
	Type    string `yaml:"type"`
	Pattern string `yaml:"pattern"`
}

// Question holds the detector and intent scorer patterns.
//
//nolint:govet // fieldalignment: mirrors rules.yaml
type Question struct {
	QuestionWords      string         `yaml:"question_words"`
	HelpPhrases        []string       `yaml:"help_phrases"`
	Types              []QuestionType `yaml:"types"`
	Urgency            []string       `yaml:"urgency"`
	Budget             []string       `yaml:"budget"`
	Timeline           []string       `yaml:"timeline"`
	Professional       []string       `yaml:"professional"`
	NamedProfessionals []string       `yaml:"named_professionals"`
	CurrencyAmount     []string       `yaml:"currency_amount"`
	ImmediateTimeframe []string       `yaml:"immediate_timeframe"`
	BusinessTerms      []string       `yaml:"business_terms"`
	BusinessProblems   []string       `yaml:"business_problems"`
	LowValue           []string       `yaml:"low_value"`
	Vague              []string       `yaml:"vague"`
	HiringVerb         string         `yaml:"hiring_verb"`
	ReadyToAct         string         `yaml:"ready_to_act"`
	Comparison         string         `yaml:"comparison"`
	Research           string         `yaml:"research"`
	HelpExplicit       string         `yaml:"help_explicit"`
	HelpStruggle       string         `yaml:"help_struggle"`
	HelpPolite         string         `yaml:"help_polite"`
	HelpFollowup       string         `yaml:"help_followup"`
}

// Role is one role category and its keywords.
type Role struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Openness holds the openness cascade tables.
type Openness struct {
	Open          []string `yaml:"open"`
	Closed        []string `yaml:"closed"`
	Networking    []string `yaml:"networking"`
	MinTextLength int      `yaml:"min_text_length"`
}

// Relationships holds the relationship classifier tables.
type Relationships struct {
	Ally            []string `yaml:"ally"`
	HelperExpert    []string `yaml:"helper_expert"`
	InvestorSignals []string `yaml:"investor_signals"`
	InvesteeSignals []string `yaml:"investee_signals"`
	Seniority       []string `yaml:"seniority"`
	Advice          []string `yaml:"advice"`
	Junior          []string `yaml:"junior"`
	Ambitious       []string `yaml:"ambitious"`
}

// Wealth holds the wealth cascade tables.
type Wealth struct {
	High          []string `yaml:"high"`
	HighSize      []string `yaml:"high_size"`
	HighFollowers int      `yaml:"high_followers"`
	UpperMid      []string `yaml:"upper_mid"`
	UpperMidSize  []string `yaml:"upper_mid_size"`
	Early         []string `yaml:"early"`
	EarlySize     []string `yaml:"early_size"`
}

// Potential holds the potential tier tables.
type Potential struct {
	High       []string `yaml:"high"`
	Medium     []string `yaml:"medium"`
	ManyTopics int      `yaml:"many_topics"`
	ShortText  int      `yaml:"short_text"`
}

// Country is a gazetteer entry: location indicators map a free-text location to
// the country, content indicators mark text as relevant to it.
type Country struct {
	Name     string   `yaml:"name"`
	Code     string   `yaml:"code"` // ISO 3166-1 alpha-2
	Location []string `yaml:"location"`
	Content  []string `yaml:"content"`
}

// Set is a complete, versioned rule set.
//
//nolint:govet // fieldalignment: mirrors rules.yaml
type Set struct {
	Version                   int               `yaml:"version"`
	Question                  Question          `yaml:"question"`
	Roles                     []Role            `yaml:"roles"`
	AudienceFollowerThreshold int               `yaml:"audience_follower_threshold"`
	Topics                    []string          `yaml:"topics"`
	TechnicalTopics           []string          `yaml:"technical_topics"`
	OrgTopics                 map[string]string `yaml:"org_topics"`
	Openness                  Openness          `yaml:"openness"`
	Relationships             Relationships     `yaml:"relationships"`
	Wealth                    Wealth            `yaml:"wealth"`
	Potential                 Potential         `yaml:"potential"`
	Countries                 []Country         `yaml:"countries"`
}

var (
	defaultOnce sync.Once
	defaultSet  *Set
)

// Default returns the embedded rule set. It panics if the embedded tables are invalid,
// which the package tests guard against.
func Default() *Set {
	defaultOnce.Do(func() {
		s, err := Parse(embedded)
		if err != nil {
			panic("rules: embedded rules.yaml: " + err.Error())
		}
		defaultSet = s
	})
	return defaultSet
}

// Parse decodes and validates a complete rule set.
func Parse(data []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads path and overlays it on the embedded defaults. Sections absent from the
// file keep their default values; lists present in the file replace the default list.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	var s Set
	if err := yaml.Unmarshal(embedded, &s); err != nil {
		return nil, fmt.Errorf("decode embedded rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}

// Validate checks that every pattern compiles and required tables are present.
func (s *Set) Validate() error {
	q := s.Question
	singles := map[string]string{
		"question_words": q.QuestionWords,
		"hiring_verb":    q.HiringVerb,
		"ready_to_act":   q.ReadyToAct,
		"comparison":     q.Comparison,
		"research":       q.Research,
		"help_explicit":  q.HelpExplicit,
		"help_struggle":  q.HelpStruggle,
		"help_polite":    q.HelpPolite,
		"help_followup":  q.HelpFollowup,
	}
	for name, p := range singles {
		if p == "" {
			return fmt.Errorf("rules: question.%s is empty", name)
		}
		if _, err := Compile(p); err != nil {
			return fmt.Errorf("rules: question.%s: %w", name, err)
		}
	}
	lists := map[string][]string{
		"help_phrases":        q.HelpPhrases,
		"urgency":             q.Urgency,
		"budget":              q.Budget,
		"timeline":            q.Timeline,
		"professional":        q.Professional,
		"named_professionals": q.NamedProfessionals,
		"currency_amount":     q.CurrencyAmount,
		"immediate_timeframe": q.ImmediateTimeframe,
		"business_terms":      q.BusinessTerms,
		"business_problems":   q.BusinessProblems,
		"low_value":           q.LowValue,
		"vague":               q.Vague,
	}
	for name, ps := range lists {
		if _, err := CompileAll(ps); err != nil {
			return fmt.Errorf("rules: question.%s: %w", name, err)
		}
	}
	for _, t := range q.Types {
		if _, err := Compile(t.Pattern); err != nil {
			return fmt.Errorf("rules: question type %s: %w", t.Type, err)
		}
	}
	if len(s.Roles) == 0 {
		return fmt.Errorf("rules: no roles defined")
	}
	for _, c := range s.Countries {
		if c.Name == "" {
			return fmt.Errorf("rules: country with empty name")
		}
	}
	return nil
}

// Compile compiles a pattern case-insensitively.
func Compile(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// CompileAll compiles every pattern case-insensitively, preserving order.
func CompileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// MustCompileAll is CompileAll for tables already checked by Validate.
func MustCompileAll(patterns []string) []*regexp.Regexp {
	out, err := CompileAll(patterns)
	if err != nil {
		panic(err)
	}
	return out
}

// MustCompile is Compile for patterns already checked by Validate.
func MustCompile(pattern string) *regexp.Regexp {
	re, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return re
}
