package sink

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"

	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

var created = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func scored(user string, overall int) profile.ScoredProfile {
	return profile.ScoredProfile{
		EnrichedProfile: profile.EnrichedProfile{
			RawProfile: profile.RawProfile{
				Platform:        profile.Reddit,
				ProfileURL:      "https://www.reddit.com/user/" + user,
				Username:        user,
				Name:            user,
				Followers:       12,
				CompanySizeHint: "11-50",
			},
			RoleTags:   []profile.Role{profile.RoleFounder},
			WealthTier: profile.WealthUnknown,
		},
		Scores:    profile.Scores{Overall: overall},
		RunID:     "run-1",
		CreatedAt: created,
		UpdatedAt: created,
	}
}

type recordingSink struct {
	err   error
	name  string
	calls *[]string
}

func (r recordingSink) Name() string { return r.name }

func (r recordingSink) Save(context.Context, []profile.ScoredProfile) error {
	*r.calls = append(*r.calls, r.name)
	return r.err
}

func TestManagerOrder(t *testing.T) {
	var calls []string
	m := NewManager(quiet)
	m.Add(recordingSink{name: "db", calls: &calls, err: errors.New("down")}, false)
	m.Add(recordingSink{name: "dataset", calls: &calls}, true)
	if err := m.Save(context.Background(), nil); err != nil {
		t.Fatalf("Save() error = %v, want nil for non-critical failure", err)
	}
	if diff := cmp.Diff([]string{"dataset", "db"}, calls); diff != "" {
		t.Errorf("call order (-want +got):\n%s", diff)
	}

	calls = nil
	m = NewManager(quiet)
	m.Add(recordingSink{name: "db", calls: &calls}, false)
	m.Add(recordingSink{name: "dataset", calls: &calls, err: errors.New("disk full")}, true)
	err := m.Save(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "dataset") {
		t.Errorf("Save() error = %v, want dataset failure", err)
	}
	if len(calls) != 1 {
		t.Errorf("calls = %v, non-critical sinks ran after a critical failure", calls)
	}
}

func TestDatasetJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewDatasetWriter(&buf, FormatJSON).Save(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("empty dataset = %q, want []", got)
	}

	buf.Reset()
	in := []profile.ScoredProfile{scored("alice", 70), scored("bob", 60)}
	if err := NewDatasetWriter(&buf, FormatJSON).Save(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	var out []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("dataset is not a JSON array: %v", err)
	}
	if len(out) != 2 || out[0]["username_or_handle"] != "alice" || out[0]["data_source_run_id"] != "run-1" {
		t.Errorf("dataset = %v", out)
	}
}

func TestDatasetJSONLines(t *testing.T) {
	var buf bytes.Buffer
	in := []profile.ScoredProfile{scored("alice", 70), scored("bob", 60)}
	if err := NewDatasetWriter(&buf, FormatJSONL).Save(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	var p profile.ScoredProfile
	if err := json.Unmarshal([]byte(lines[1]), &p); err != nil {
		t.Fatal(err)
	}
	if p.Username != "bob" || p.Scores.Overall != 60 {
		t.Errorf("line 2 = %+v", p)
	}
}

func TestDatasetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	d, err := NewDataset(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if d.Name() != "dataset:"+path {
		t.Errorf("Name() = %q", d.Name())
	}
	if err := d.Save(context.Background(), []profile.ScoredProfile{scored("alice", 70)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"alice"`)) {
		t.Errorf("file = %s", data)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}

	if _, err := NewDataset("", "xml"); err == nil {
		t.Error("NewDataset() accepted unknown format")
	}
	if d, err := NewDataset("-", FormatJSONL); err != nil || d.Name() != "dataset" {
		t.Errorf("NewDataset(-) = %v, %v", d, err)
	}
}

func TestNewRecord(t *testing.T) {
	p := scored("alice", 70)
	p.Question = &profile.QuestionContext{Text: "Can anyone recommend an accountant?", Source: "reddit_question", IntentScore: 45}
	r, err := NewRecord(&p)
	if err != nil {
		t.Fatal(err)
	}
	if r.RoleTags != `["founder"]` || r.Topics != "[]" || r.OverallScore != 70 || r.CompanySizeHint != "11-50" {
		t.Errorf("record = %+v", r)
	}
	if !strings.Contains(r.Question, `"question_text":"Can anyone recommend an accountant?"`) {
		t.Errorf("Question = %s", r.Question)
	}

	p.Question = nil
	r, err = NewRecord(&p)
	if err != nil {
		t.Fatal(err)
	}
	if r.Question != "" || r.values()[19] != nil {
		t.Errorf("nil question stored as %q", r.Question)
	}
}

type fakeExec struct {
	queries []string
	args    [][]any
	failAt  int
}

func (f *fakeExec) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.queries = append(f.queries, query)
	f.args = append(f.args, args)
	if len(f.queries) == f.failAt {
		return nil, errors.New("deadlock detected")
	}
	return nil, nil
}

func TestPostgresBatches(t *testing.T) {
	in := make([]profile.ScoredProfile, 120)
	for i := range in {
		in[i] = scored(strings.Repeat("u", i+1), i)
	}
	ex := &fakeExec{failAt: 2}
	pg := &Postgres{db: ex}

	err := pg.Save(context.Background(), in)
	var merr *multierror.Error
	if !errors.As(err, &merr) || len(merr.Errors) != 1 {
		t.Fatalf("Save() error = %v, want one aggregated batch failure", err)
	}
	if len(ex.queries) != 3 {
		t.Fatalf("ran %d statements, want 3 batches", len(ex.queries))
	}
	cols := len(postgresColumns)
	for i, want := range []int{50, 50, 20} {
		if got := len(ex.args[i]) / cols; got != want {
			t.Errorf("batch %d has %d rows, want %d", i, got, want)
		}
	}
	if !strings.Contains(ex.queries[2], "$500") || strings.Contains(ex.queries[2], "$501") {
		t.Errorf("last batch placeholders wrong: %.80s...", ex.queries[2])
	}

	ex = &fakeExec{}
	if err := (&Postgres{db: ex}).Save(context.Background(), nil); err != nil || len(ex.queries) != 0 {
		t.Errorf("empty Save() = %v after %d statements", err, len(ex.queries))
	}
}

func TestUpsertStatement(t *testing.T) {
	q := upsertStatement(2)
	if !strings.HasPrefix(q, "INSERT INTO prospect_profiles (platform, profile_url, name,") {
		t.Errorf("statement prefix: %.60s", q)
	}
	if !strings.Contains(q, "($26, $27,") || !strings.Contains(q, "$50)") {
		t.Errorf("second row placeholders missing: %s", q)
	}
	if !strings.Contains(q, "ON CONFLICT (platform, profile_url) DO UPDATE SET name = EXCLUDED.name") {
		t.Errorf("conflict clause missing: %s", q)
	}
	if strings.Contains(q, "created_at = EXCLUDED") {
		t.Error("created_at overwritten on conflict")
	}
}

func TestPostgresIntegration(t *testing.T) {
	dsn := os.Getenv("PROSPECTOR_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PROSPECTOR_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pg, err := NewPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgres() error = %v", err)
	}
	defer pg.Close() //nolint:errcheck // test cleanup
	if err := pg.Save(ctx, []profile.ScoredProfile{scored("integration", 50)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

func TestSQLiteUpsert(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLite(filepath.Join(t.TempDir(), "prospects.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // test cleanup

	if err := db.Save(ctx, []profile.ScoredProfile{scored("alice", 40), scored("bob", 60)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	again := scored("alice", 90)
	again.CreatedAt = created.Add(time.Hour)
	again.UpdatedAt = created.Add(time.Hour)
	again.RunID = "run-2"
	if err := db.Save(ctx, []profile.ScoredProfile{again}); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	n, err := db.Count(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Count() = %d, %v, want 2", n, err)
	}
	rows, err := db.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	alice := rows[0]
	if alice.Username != "alice" || alice.OverallScore != 90 || alice.RunID != "run-2" || alice.CompanySizeHint != "11-50" {
		t.Errorf("alice = %+v", alice)
	}
	if !alice.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want original %v", alice.CreatedAt, created)
	}
	if !alice.UpdatedAt.Equal(created.Add(time.Hour)) {
		t.Errorf("UpdatedAt = %v", alice.UpdatedAt)
	}
	if err := db.Save(ctx, nil); err != nil {
		t.Errorf("empty Save() = %v", err)
	}
}
