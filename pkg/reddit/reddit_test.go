package reddit

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/prospector/pkg/adapter"
	"github.com/codeGROOVE-dev/prospector/pkg/httpcache"
	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

type mockTransport struct {
	transport http.RoundTripper
	mockURL   string
}

func (t *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.mockURL[7:] // strip "http://"
	return t.transport.RoundTrip(req)
}

const searchJSON = `{"data":{"children":[
 {"data":{"author":"alice","title":"Can anyone recommend an accountant for my Ltd company?","selftext":"Need help with VAT returns urgently, budget £1000","created_utc":1760000000}},
 {"data":{"author":"AutoModerator","title":"Weekly thread?","selftext":"","created_utc":1760000000}},
 {"data":{"author":"bob","title":"Launched my SaaS today","selftext":"Pretty happy with it.","created_utc":1760000000}},
 {"data":{"author":"[deleted]","title":"What is VAT?","selftext":"","created_utc":1760000000}}
]}}`

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...adapter.Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	httpcache.SetHostDelay("www.reddit.com", 0)

	hc := &http.Client{Transport: &mockTransport{mockURL: srv.URL, transport: http.DefaultTransport}}
	base := []adapter.Option{
		adapter.WithHTTPClient(hc),
		adapter.WithMinDelay(time.Millisecond),
		adapter.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	c, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func handler(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/search.json"):
		_, _ = w.Write([]byte(searchJSON)) //nolint:errcheck // test server
	case r.URL.Path == "/user/alice/about.json":
		_, _ = w.Write([]byte(`{"data":{"name":"alice","subreddit":{"title":"Alice Smith","public_description":"Director at a Manchester bakery","subscribers":42}}}`)) //nolint:errcheck // test server
	case r.URL.Path == "/user/bob/about.json":
		_, _ = w.Write([]byte(`{"data":{"name":"bob","subreddit":{"title":"","public_description":"","subscribers":3}}}`)) //nolint:errcheck // test server
	case strings.HasSuffix(r.URL.Path, "/submitted.json"):
		_, _ = w.Write([]byte(`{"data":{"children":[{"data":{"title":"Latest post","selftext":"body","created_utc":1760000000}}]}}`)) //nolint:errcheck // test server
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestValidateURL(t *testing.T) {
	c := &Client{}
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.reddit.com/user/alice", true},
		{"https://reddit.com/u/alice", true},
		{"https://www.reddit.com/r/startups", false},
		{"https://example.com/user/alice", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := c.ValidateURL(tt.url); got != tt.want {
				t.Errorf("ValidateURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtractUsername(t *testing.T) {
	if got := extractUsername("https://www.reddit.com/u/alice?x=1"); got != "alice" {
		t.Errorf("extractUsername() = %q", got)
	}
	if got := extractUsername("https://www.reddit.com/r/startups"); got != "" {
		t.Errorf("extractUsername() = %q, want empty", got)
	}
}

func TestExtractProfile(t *testing.T) {
	c := newTestClient(t, handler)
	p, err := c.ExtractProfile(context.Background(), "https://reddit.com/u/alice")
	if err != nil {
		t.Fatalf("ExtractProfile() error = %v", err)
	}
	if p.Platform != profile.Reddit || p.Username != "alice" || p.Name != "Alice Smith" {
		t.Errorf("profile = %+v", p)
	}
	if p.ProfileURL != "https://www.reddit.com/user/alice" {
		t.Errorf("ProfileURL = %q", p.ProfileURL)
	}
	if p.Followers != 42 || p.Bio != "Director at a Manchester bakery" {
		t.Errorf("followers/bio = %d/%q", p.Followers, p.Bio)
	}
	if p.LastContentSample != "Latest post\n\nbody" || p.LastContentDate == "" {
		t.Errorf("latest content = %q at %q", p.LastContentSample, p.LastContentDate)
	}

	_, err = c.ExtractProfile(context.Background(), "https://reddit.com/u/ghost")
	if err == nil {
		t.Error("ExtractProfile() for missing user succeeded")
	}
}

func TestSearchQuestionMode(t *testing.T) {
	c := newTestClient(t, handler)
	got, err := c.Search(context.Background(), []string{"accountant"}, "United Kingdom", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	// Every subreddit returns the same posts; alice is the only question author.
	if len(got) != 1 || got[0].Username != "alice" {
		t.Fatalf("Search() = %+v, want only alice", got)
	}
	q := got[0].Question
	if q == nil || q.Source != "reddit_question" || q.IntentScore == 0 {
		t.Errorf("question context = %+v", q)
	}
}

func TestSearchAllAuthors(t *testing.T) {
	c := newTestClient(t, handler, adapter.WithQuestionMode(false))
	got, err := c.Search(context.Background(), []string{"saas"}, "", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Search() returned %d profiles, want 2 (alice, bob)", len(got))
	}
	for _, p := range got {
		if p.Question != nil {
			t.Errorf("question attached outside question mode: %+v", p)
		}
	}

	got, err = c.Search(context.Background(), []string{"saas"}, "", 1)
	if err != nil || len(got) != 1 {
		t.Errorf("Search(max=1) = %d profiles, %v", len(got), err)
	}
}

func TestSearchSurvivesFailures(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	got, err := c.Search(context.Background(), []string{"tax"}, "", 5)
	if err != nil || len(got) != 0 {
		t.Errorf("Search() = %v, %v; want empty, nil", got, err)
	}
}
