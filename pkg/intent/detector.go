// Package intent detects questions in free text and scores the buying intent they carry.
package intent

import (
	"regexp"
	"strings"

	"github.com/codeGROOVE-dev/prospector/pkg/rules"
)

// QuestionType classifies a detected question.
type QuestionType string

// Question types.
const (
	TypeHowTo          QuestionType = "how-to"
	TypeRecommendation QuestionType = "recommendation"
	TypeAdvice         QuestionType = "advice"
	TypeHelp           QuestionType = "help"
	TypeGeneral        QuestionType = "general"
	TypeNone           QuestionType = "none"
)

// Signal is one intent signal: whether it fired and the substrings that fired it.
type Signal struct {
	Present    bool     `json:"present"`
	Indicators []string `json:"indicators,omitempty"`
}

// Analysis is the result of analysing one text blob.
type Analysis struct {
	IsQuestion   bool         `json:"is_question"`
	QuestionType QuestionType `json:"question_type"`
	Urgency      Signal       `json:"urgency"`
	Budget       Signal       `json:"budget"`
	Timeline     Signal       `json:"timeline"`
	Professional Signal       `json:"professional_seeking"`
	TextLength   int          `json:"text_length"`
}

// SignalCount returns how many of the four core signals are present.
func (a *Analysis) SignalCount() int {
	n := 0
	for _, s := range []Signal{a.Urgency, a.Budget, a.Timeline, a.Professional} {
		if s.Present {
			n++
		}
	}
	return n
}

type typeRule struct {
	typ QuestionType
	re  *regexp.Regexp
}

// Detector classifies text as a question and extracts intent signals.
// It is safe for concurrent use; all state is compiled at construction.
type Detector struct {
	questionWords *regexp.Regexp
	helpPhrases   []*regexp.Regexp
	types         []typeRule
	urgency       []*regexp.Regexp
	budget        []*regexp.Regexp
	timeline      []*regexp.Regexp
	professional  []*regexp.Regexp
}

// NewDetector compiles a Detector from a rule set. A nil set uses the embedded defaults.
func NewDetector(set *rules.Set) *Detector {
	if set == nil {
		set = rules.Default()
	}
	q := set.Question
	d := &Detector{
		questionWords: rules.MustCompile(q.QuestionWords),
		helpPhrases:   rules.MustCompileAll(q.HelpPhrases),
		urgency:       rules.MustCompileAll(q.Urgency),
		budget:        rules.MustCompileAll(q.Budget),
		timeline:      rules.MustCompileAll(q.Timeline),
		professional:  rules.MustCompileAll(q.Professional),
	}
	for _, t := range q.Types {
		d.types = append(d.types, typeRule{typ: QuestionType(t.Type), re: rules.MustCompile(t.Pattern)})
	}
	return d
}

// Analyze runs every detector over text. Empty text yields a zero analysis
// with question type none.
func (d *Detector) Analyze(text string) Analysis {
	a := Analysis{QuestionType: TypeNone, TextLength: len([]rune(text))}
	if text == "" {
		return a
	}
	a.IsQuestion = d.IsQuestion(text)
	if a.IsQuestion {
		a.QuestionType = d.questionType(text)
	}
	a.Urgency = detect(text, d.urgency)
	a.Budget = detect(text, d.budget)
	a.Timeline = detect(text, d.timeline)
	a.Professional = detect(text, d.professional)
	return a
}

// IsQuestion reports whether text contains "?", starts with a question word,
// or contains a help-seeking phrase.
func (d *Detector) IsQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if strings.Contains(trimmed, "?") {
		return true
	}
	if d.questionWords.MatchString(trimmed) {
		return true
	}
	for _, re := range d.helpPhrases {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return false
}

func (d *Detector) questionType(text string) QuestionType {
	for _, t := range d.types {
		if t.re.MatchString(text) {
			return t.typ
		}
	}
	return TypeGeneral
}

// detect keeps the first match of each pattern as an indicator.
func detect(text string, patterns []*regexp.Regexp) Signal {
	var s Signal
	for _, re := range patterns {
		if m := re.FindString(text); m != "" {
			s.Indicators = append(s.Indicators, m)
		}
	}
	s.Present = len(s.Indicators) > 0
	return s
}
