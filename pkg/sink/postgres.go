package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	_ "github.com/lib/pq" // postgres driver

	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

// BatchSize is the number of rows per upsert statement.
const BatchSize = 50

const postgresSchema = `
CREATE TABLE IF NOT EXISTS prospect_profiles (
	id                  BIGSERIAL PRIMARY KEY,
	platform            TEXT NOT NULL,
	profile_url         TEXT NOT NULL,
	name                TEXT NOT NULL DEFAULT '',
	username            TEXT NOT NULL DEFAULT '',
	location            TEXT NOT NULL DEFAULT '',
	country             TEXT NOT NULL DEFAULT '',
	headline            TEXT NOT NULL DEFAULT '',
	bio                 TEXT NOT NULL DEFAULT '',
	company             TEXT NOT NULL DEFAULT '',
	company_size_hint   TEXT NOT NULL DEFAULT '',
	followers           INTEGER NOT NULL DEFAULT 0,
	last_content_sample TEXT NOT NULL DEFAULT '',
	last_content_date   TEXT NOT NULL DEFAULT '',
	role_tags           JSONB NOT NULL DEFAULT '[]',
	topics              JSONB NOT NULL DEFAULT '[]',
	relationship_tags   JSONB NOT NULL DEFAULT '[]',
	wealth_tier         TEXT NOT NULL DEFAULT '',
	potential_tier      TEXT NOT NULL DEFAULT '',
	openness_tag        TEXT NOT NULL DEFAULT '',
	question            JSONB,
	scores              JSONB NOT NULL DEFAULT '{}',
	overall_score       INTEGER NOT NULL DEFAULT 0,
	run_id              TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (platform, profile_url)
);
CREATE INDEX IF NOT EXISTS prospect_profiles_overall_idx ON prospect_profiles (overall_score DESC);
`

// postgresColumns is the insert column order. created_at is never overwritten on conflict.
var postgresColumns = []string{
	"platform", "profile_url", "name", "username", "location", "country", "headline", "bio",
	"company", "company_size_hint", "followers", "last_content_sample", "last_content_date",
	"role_tags", "topics",
	"relationship_tags", "wealth_tier", "potential_tier", "openness_tag", "question", "scores",
	"overall_score", "run_id", "created_at", "updated_at",
}

// execer is the subset of *sql.DB the sink needs.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Postgres upserts profiles into prospect_profiles keyed by (platform, profile_url).
type Postgres struct {
	db     execer
	closer func() error
}

// NewPostgres connects to dsn and creates the table if needed.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck,gosec // ping error takes precedence
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close() //nolint:errcheck,gosec // schema error takes precedence
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Postgres{db: db, closer: db.Close}, nil
}

// Name implements Sink.
func (*Postgres) Name() string { return "postgres" }

// Close releases the connection pool.
func (p *Postgres) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

// Save implements Sink. Every batch is attempted; failures are aggregated.
func (p *Postgres) Save(ctx context.Context, profiles []profile.ScoredProfile) error {
	var result *multierror.Error
	for start := 0; start < len(profiles); start += BatchSize {
		batch := profiles[start:min(start+BatchSize, len(profiles))]
		args := make([]any, 0, len(batch)*len(postgresColumns))
		for i := range batch {
			r, err := NewRecord(&batch[i])
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			args = append(args, r.values()...)
		}
		rows := len(args) / len(postgresColumns)
		if rows == 0 {
			continue
		}
		if _, err := p.db.ExecContext(ctx, upsertStatement(rows), args...); err != nil {
			result = multierror.Append(result, fmt.Errorf("batch at %d: %w", start, err))
		}
	}
	return result.ErrorOrNil()
}

func (r *Record) values() []any {
	var question any
	if r.Question != "" {
		question = r.Question
	}
	return []any{
		r.Platform, r.ProfileURL, r.Name, r.Username, r.Location, r.Country, r.Headline, r.Bio,
		r.Company, r.CompanySizeHint, r.Followers, r.LastContentSample, r.LastContentDate,
		r.RoleTags, r.Topics,
		r.RelationshipTags, r.WealthTier, r.PotentialTier, r.OpennessTag, question, r.Scores,
		r.OverallScore, r.RunID, r.CreatedAt, r.UpdatedAt,
	}
}

// upsertStatement builds a multi-row INSERT ... ON CONFLICT for rows records.
func upsertStatement(rows int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO prospect_profiles (")
	b.WriteString(strings.Join(postgresColumns, ", "))
	b.WriteString(") VALUES ")
	n := 1
	for i := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range postgresColumns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		}
		b.WriteByte(')')
	}
	b.WriteString(" ON CONFLICT (platform, profile_url) DO UPDATE SET ")
	first := true
	for _, c := range postgresColumns {
		if c == "platform" || c == "profile_url" || c == "created_at" {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(c + " = EXCLUDED." + c)
	}
	return b.String()
}
