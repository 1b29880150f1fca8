package intent

import (
	"regexp"
	"strings"

	"github.com/codeGROOVE-dev/prospector/pkg/profile"
	"github.com/codeGROOVE-dev/prospector/pkg/rules"
)

// Decision stages, from furthest to closest to seeking paid help.
const (
	StageUnknown             = "unknown"
	StageGeneralInquiry      = "general_inquiry"
	StageResearch            = "research"
	StageComparison          = "comparison"
	StageReadyToAct          = "ready_to_act"
	StageActivelySeekingProf = "actively_seeking_professional"
)

// Result holds every intent score for one text.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Result struct {
	QuestionQuality    int          `json:"question_quality_score"`
	Intent             int          `json:"intent_score"`
	DecisionStageScore int          `json:"decision_stage_score"`
	DecisionStage      string       `json:"decision_stage"`
	HelpSeeking        int          `json:"help_seeking_score"`
	IsQuestion         bool         `json:"is_question"`
	QuestionType       QuestionType `json:"question_type"`
	QuestionText       string       `json:"question_text,omitempty"`
	Analysis           Analysis     `json:"-"`
}

// QuestionContext converts the result into the optional profile sub-record.
func (r *Result) QuestionContext(source, date string) (*profile.QuestionContext, error) {
	return profile.NewQuestionContext(profile.QuestionContext{
		Text:               r.QuestionText,
		Source:             source,
		Date:               date,
		Type:               string(r.QuestionType),
		QualityScore:       r.QuestionQuality,
		IntentScore:        r.Intent,
		DecisionStageScore: r.DecisionStageScore,
		DecisionStage:      r.DecisionStage,
		HelpSeekingScore:   r.HelpSeeking,
	})
}

// Scorer turns detector output into question quality, intent, decision stage and
// help-seeking scores. Safe for concurrent use.
type Scorer struct {
	detector *Detector

	namedProfessionals []*regexp.Regexp
	currencyAmount     []*regexp.Regexp
	immediate          []*regexp.Regexp
	businessTerms      []*regexp.Regexp
	businessProblems   []*regexp.Regexp
	lowValue           []*regexp.Regexp
	vague              []*regexp.Regexp

	hiringVerb   *regexp.Regexp
	readyToAct   *regexp.Regexp
	comparison   *regexp.Regexp
	research     *regexp.Regexp
	helpExplicit *regexp.Regexp
	helpStruggle *regexp.Regexp
	helpPolite   *regexp.Regexp
	helpFollowup *regexp.Regexp
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// NewScorer compiles a Scorer from a rule set. A nil set uses the embedded defaults.
func NewScorer(set *rules.Set) *Scorer {
	if set == nil {
		set = rules.Default()
	}
	q := set.Question
	return &Scorer{
		detector:           NewDetector(set),
		namedProfessionals: rules.MustCompileAll(q.NamedProfessionals),
		currencyAmount:     rules.MustCompileAll(q.CurrencyAmount),
		immediate:          rules.MustCompileAll(q.ImmediateTimeframe),
		businessTerms:      rules.MustCompileAll(q.BusinessTerms),
		businessProblems:   rules.MustCompileAll(q.BusinessProblems),
		lowValue:           rules.MustCompileAll(q.LowValue),
		vague:              rules.MustCompileAll(q.Vague),
		hiringVerb:         rules.MustCompile(q.HiringVerb),
		readyToAct:         rules.MustCompile(q.ReadyToAct),
		comparison:         rules.MustCompile(q.Comparison),
		research:           rules.MustCompile(q.Research),
		helpExplicit:       rules.MustCompile(q.HelpExplicit),
		helpStruggle:       rules.MustCompile(q.HelpStruggle),
		helpPolite:         rules.MustCompile(q.HelpPolite),
		helpFollowup:       rules.MustCompile(q.HelpFollowup),
	}
}

// Detector returns the underlying question detector.
func (s *Scorer) Detector() *Detector { return s.detector }

// ScoreContent analyses text once and derives every score from that analysis.
func (s *Scorer) ScoreContent(text string) Result {
	if text == "" {
		return Result{DecisionStage: StageUnknown, QuestionType: TypeNone, Analysis: Analysis{QuestionType: TypeNone}}
	}
	a := s.detector.Analyze(text)
	stageScore, stage := s.decisionStage(text, &a)
	return Result{
		QuestionQuality:    s.questionQuality(text, &a),
		Intent:             s.intent(text, &a),
		DecisionStageScore: stageScore,
		DecisionStage:      stage,
		HelpSeeking:        s.helpSeeking(text),
		IsQuestion:         a.IsQuestion,
		QuestionType:       a.QuestionType,
		QuestionText:       text,
		Analysis:           a,
	}
}

func (s *Scorer) questionQuality(text string, a *Analysis) int {
	if !a.IsQuestion {
		return 0
	}
	score := 20

	switch {
	case a.TextLength > 300:
		score += 25
	case a.TextLength > 150:
		score += 20
	case a.TextLength > 75:
		score += 15
	case a.TextLength < 30:
		score -= 10
	}

	switch a.QuestionType {
	case TypeRecommendation:
		score += 25
	case TypeAdvice:
		score += 20
	case TypeHowTo:
		score += 15
	case TypeHelp:
		score += 10
	default:
		score += 5
	}

	if anyMatch(text, s.businessTerms) {
		score += 20
	}
	if strings.Contains(text, "?") {
		score += 10
	}

	switch n := countSentences(text); {
	case n > 3:
		score += 15
	case n > 1:
		score += 10
	}

	if anyMatch(text, s.lowValue) {
		score -= 15
	}
	return clamp(score)
}

func (s *Scorer) intent(text string, a *Analysis) int {
	score := 0
	if a.Professional.Present {
		score += 30
		if anyMatch(text, s.namedProfessionals) {
			score += 15
		}
	}
	if a.Budget.Present {
		score += 25
		if anyMatch(text, s.currencyAmount) {
			score += 10
		}
	}
	if a.Timeline.Present {
		score += 20
		if anyMatch(text, s.immediate) {
			score += 10
		}
	}
	if a.Urgency.Present {
		score += 15
	}
	if anyMatch(text, s.businessProblems) {
		score += 20
	}
	if a.TextLength > 150 && a.IsQuestion {
		score += 10
	}
	switch n := a.SignalCount(); {
	case n >= 3:
		score += 15
	case n == 2:
		score += 10
	}
	if anyMatch(text, s.vague) {
		score -= 20
	}
	return clamp(score)
}

// decisionStage is a first-match cascade.
func (s *Scorer) decisionStage(text string, a *Analysis) (int, string) {
	if a.Professional.Present && s.hiringVerb.MatchString(text) {
		return 100, StageActivelySeekingProf
	}
	if (a.Urgency.Present || a.Timeline.Present) && s.readyToAct.MatchString(text) {
		return 90, StageReadyToAct
	}
	if s.comparison.MatchString(text) {
		return 60, StageComparison
	}
	if s.research.MatchString(text) {
		return 30, StageResearch
	}
	switch a.QuestionType {
	case TypeRecommendation:
		return 70, StageComparison
	case TypeHowTo:
		return 50, StageResearch
	default:
		return 40, StageGeneralInquiry
	}
}

// helpSeeking is computed from the raw text independently of the shared analysis.
func (s *Scorer) helpSeeking(text string) int {
	score := 0
	if s.detector.IsQuestion(text) {
		score += 30
	}
	if s.helpExplicit.MatchString(text) {
		score += 20
	}
	if s.helpStruggle.MatchString(text) {
		score += 15
	}
	if len([]rune(text)) > 150 {
		score += 15
	}
	if s.helpPolite.MatchString(text) {
		score += 10
	}
	if s.helpFollowup.MatchString(text) {
		score += 10
	}
	return clamp(score)
}

func countSentences(text string) int {
	n := 0
	for _, part := range sentenceSplit.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	return n
}

func anyMatch(text string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func clamp(v int) int {
	return max(0, min(100, v))
}
