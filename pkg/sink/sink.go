// Package sink persists the ranked profiles of a run.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

// Sink stores a run's profiles.
type Sink interface {
	Name() string
	Save(ctx context.Context, profiles []profile.ScoredProfile) error
}

type entry struct {
	sink     Sink
	critical bool
}

// Manager fans a result out to several sinks. Critical sinks run first and any failure
// among them aborts; failures of the remaining sinks are logged.
type Manager struct {
	logger  *slog.Logger
	entries []entry
}

// NewManager creates an empty Manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// Add registers s. Critical sinks must succeed for Save to succeed.
func (m *Manager) Add(s Sink, critical bool) {
	m.entries = append(m.entries, entry{sink: s, critical: critical})
}

// Len returns the number of registered sinks.
func (m *Manager) Len() int { return len(m.entries) }

// Save writes profiles to every sink.
func (m *Manager) Save(ctx context.Context, profiles []profile.ScoredProfile) error {
	for _, e := range m.entries {
		if !e.critical {
			continue
		}
		start := time.Now()
		if err := e.sink.Save(ctx, profiles); err != nil {
			return fmt.Errorf("sink %s: %w", e.sink.Name(), err)
		}
		m.logger.InfoContext(ctx, "profiles saved", "sink", e.sink.Name(), "count", len(profiles), "duration", time.Since(start))
	}
	for _, e := range m.entries {
		if e.critical {
			continue
		}
		start := time.Now()
		if err := e.sink.Save(ctx, profiles); err != nil {
			m.logger.WarnContext(ctx, "sink failed", "sink", e.sink.Name(), "error", err)
			continue
		}
		m.logger.InfoContext(ctx, "profiles saved", "sink", e.sink.Name(), "count", len(profiles), "duration", time.Since(start))
	}
	return nil
}

// Record is the flattened row stored by the relational sinks. List fields and nested
// objects are JSON text.
//
//nolint:govet // fieldalignment: columns follow the table layout
type Record struct {
	ID                uint      `gorm:"primaryKey"`
	Platform          string    `gorm:"uniqueIndex:idx_prospect_key;not null"`
	ProfileURL        string    `gorm:"uniqueIndex:idx_prospect_key;not null"`
	Name              string
	Username          string
	Location          string
	Country           string
	Headline          string
	Bio               string
	Company           string
	CompanySizeHint   string
	Followers         int
	LastContentSample string
	LastContentDate   string
	RoleTags          string
	Topics            string
	RelationshipTags  string
	WealthTier        string
	PotentialTier     string
	OpennessTag       string
	Question          string
	Scores            string
	OverallScore      int `gorm:"index"`
	RunID             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName is shared by every relational sink.
func (Record) TableName() string { return "prospect_profiles" }

// NewRecord flattens p into a Record.
func NewRecord(p *profile.ScoredProfile) (Record, error) {
	r := Record{
		Platform:          string(p.Platform),
		ProfileURL:        p.ProfileURL,
		Name:              p.Name,
		Username:          p.Username,
		Location:          p.Location,
		Country:           p.Country,
		Headline:          p.Headline,
		Bio:               p.Bio,
		Company:           p.Company,
		CompanySizeHint:   p.CompanySizeHint,
		Followers:         p.Followers,
		LastContentSample: p.LastContentSample,
		LastContentDate:   p.LastContentDate,
		WealthTier:        string(p.WealthTier),
		PotentialTier:     string(p.PotentialTier),
		OpennessTag:       string(p.OpennessTag),
		OverallScore:      p.Scores.Overall,
		RunID:             p.RunID,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	encode := func(dst *string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", p.Key(), err)
		}
		*dst = string(b)
		return nil
	}
	for _, f := range []struct {
		dst *string
		v   any
	}{
		{&r.RoleTags, nonNil(p.RoleTags)},
		{&r.Topics, nonNil(p.Topics)},
		{&r.RelationshipTags, nonNil(p.RelationshipTags)},
		{&r.Scores, p.Scores},
	} {
		if err := encode(f.dst, f.v); err != nil {
			return Record{}, err
		}
	}
	if p.Question != nil {
		if err := encode(&r.Question, p.Question); err != nil {
			return Record{}, err
		}
	}
	return r, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
