// Package profile defines the common types shared by adapters, classifiers and the pipeline.
package profile

import (
	"fmt"
	"time"
)

// RawProfile is a platform-neutral profile record populated by an adapter.
//
//nolint:govet // fieldalignment: intentional layout for readability
type RawProfile struct {
	Name              string   `json:"name"`
	Platform          Platform `json:"platform"`
	ProfileURL        string   `json:"profile_url"`
	Username          string   `json:"username_or_handle"`
	Location          string   `json:"location"`
	Headline          string   `json:"headline_or_title"`
	Bio               string   `json:"bio"`
	Company           string   `json:"company"`
	CompanySizeHint   string   `json:"company_size_hint"`
	Followers         int      `json:"followers_or_subscribers"`
	LastContentSample string   `json:"last_content_sample"`
	LastContentDate   string   `json:"last_content_date"` // RFC 3339 or empty

	// Question is set only when the profile was found through a question its owner asked.
	Question *QuestionContext `json:"question,omitempty"`
}

// Key returns the dedup key for the profile.
func (p *RawProfile) Key() string {
	return string(p.Platform) + ":" + p.ProfileURL
}

// Validate reports whether the dedup key fields are populated.
func (p *RawProfile) Validate() error {
	if p.Platform == "" {
		return fmt.Errorf("profile %q: missing platform", p.ProfileURL)
	}
	if p.ProfileURL == "" {
		return fmt.Errorf("%s profile %q: missing profile url", p.Platform, p.Username)
	}
	return nil
}

// ContentTime parses LastContentDate. The zero time is returned when it is empty or malformed.
func (p *RawProfile) ContentTime() time.Time {
	if p.LastContentDate == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, time.RFC1123Z, time.RFC1123, "2006-01-02"} {
		if t, err := time.Parse(layout, p.LastContentDate); err == nil {
			return t
		}
	}
	return time.Time{}
}

// QuestionContext carries the question a profile owner asked and its intent scores.
type QuestionContext struct {
	Text               string `json:"question_text"`
	Source             string `json:"question_source"`
	Date               string `json:"question_date,omitempty"`
	Type               string `json:"question_type,omitempty"`
	QualityScore       int    `json:"question_quality_score"`
	IntentScore        int    `json:"intent_score"`
	DecisionStageScore int    `json:"decision_stage_score"`
	DecisionStage      string `json:"decision_stage"`
	HelpSeekingScore   int    `json:"help_seeking_score"`
}

// NewQuestionContext builds a QuestionContext, rejecting empty text and out-of-range scores.
func NewQuestionContext(qc QuestionContext) (*QuestionContext, error) {
	if qc.Text == "" {
		return nil, fmt.Errorf("question context: empty question text")
	}
	if qc.Source == "" {
		return nil, fmt.Errorf("question context: empty source")
	}
	scores := map[string]int{
		"question_quality_score": qc.QualityScore,
		"intent_score":           qc.IntentScore,
		"decision_stage_score":   qc.DecisionStageScore,
		"help_seeking_score":     qc.HelpSeekingScore,
	}
	for name, v := range scores {
		if v < 0 || v > 100 {
			return nil, fmt.Errorf("question context: %s=%d out of range", name, v)
		}
	}
	return &qc, nil
}

// Role is a role category assigned by the classifier.
type Role string

// Role categories, in definition order.
const (
	RoleFounder              Role = "founder"
	RoleTechnicalBuilder     Role = "technical_builder"
	RoleMarketerWithAudience Role = "marketer_with_audience"
	RoleGeneralEntrepreneur  Role = "general_entrepreneur"
	RoleInvestor             Role = "investor"
	RoleOperator             Role = "operator"
	RoleCommunityBuilder     Role = "community_builder"
)

// Relationship is a relationship tag.
type Relationship string

// Relationship tags.
const (
	RelAlly                  Relationship = "ally_candidate"
	RelHelperExpert          Relationship = "helper_expert"
	RelInvestorCandidate     Relationship = "investor_candidate"
	RelInvesteeCandidate     Relationship = "investee_candidate"
	RelMentor                Relationship = "mentor_candidate"
	RelMentee                Relationship = "mentee_candidate"
	RelCollaboratorCandidate Relationship = "collaborator_candidate"
)

// WealthTier is a coarse estimate of financial capacity.
type WealthTier string

// Wealth tiers.
const (
	WealthHighNetWorth WealthTier = "high_net_worth"
	WealthUpperMid     WealthTier = "upper_mid"
	WealthEarlyStage   WealthTier = "early_stage_or_emerging"
	WealthUnknown      WealthTier = "unknown"
)

// PotentialTier is a coarse estimate of growth trajectory.
type PotentialTier string

// Potential tiers.
const (
	PotentialHigh   PotentialTier = "high_potential"
	PotentialMedium PotentialTier = "medium_potential"
	PotentialLow    PotentialTier = "low_potential"
)

// Openness describes how open a profile owner is to collaboration.
type Openness string

// Openness tags.
const (
	OpennessOpen    Openness = "open"
	OpennessClosed  Openness = "closed"
	OpennessNeutral Openness = "neutral"
	OpennessUnknown Openness = "unknown"
)

// EnrichedProfile is a RawProfile plus classifier output.
//
//nolint:govet // fieldalignment: intentional layout for readability
type EnrichedProfile struct {
	RawProfile

	RoleTags         []Role         `json:"role_tags"`
	Topics           []string       `json:"topics_detected"`
	RelationshipTags []Relationship `json:"relationship_tags"`
	WealthTier       WealthTier     `json:"wealth_tier"`
	PotentialTier    PotentialTier  `json:"potential_tier"`
	OpennessTag      Openness       `json:"openness_tag"`
	OpennessScore    int            `json:"openness_score"`
}

// HasRole reports whether r is among the role tags.
func (p *EnrichedProfile) HasRole(r Role) bool {
	for _, t := range p.RoleTags {
		if t == r {
			return true
		}
	}
	return false
}

// HasRelationship reports whether r is among the relationship tags.
func (p *EnrichedProfile) HasRelationship(r Relationship) bool {
	for _, t := range p.RelationshipTags {
		if t == r {
			return true
		}
	}
	return false
}

// Scores holds every sub-score and the overall score, each in [0,100].
type Scores struct {
	BusinessAlignment int `json:"business_alignment_score"`
	TechnicalSynergy  int `json:"technical_synergy_score"`
	Audience          int `json:"audience_score"`
	WealthPotential   int `json:"wealth_potential_score"`
	Openness          int `json:"openness_score"`
	QuestionQuality   int `json:"question_quality_score"`
	Intent            int `json:"intent_score"`
	DecisionStage     int `json:"decision_stage_score"`
	HelpSeeking       int `json:"help_seeking_score"`
	Overall           int `json:"overall_score"`
}

// ScoredProfile is an EnrichedProfile with its scores and run metadata.
//
//nolint:govet // fieldalignment: intentional layout for readability
type ScoredProfile struct {
	EnrichedProfile

	Scores Scores `json:"scores"`

	// Attached at the pipeline boundary.
	Country   string    `json:"country"`
	RunID     string    `json:"data_source_run_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
