package youtube

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
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
	req.URL.Host = t.mockURL[7:]
	return t.transport.RoundTrip(req)
}

const videoSearch = `{"items":[
 {"snippet":{"channelId":"UC1","title":"How do I file a self assessment tax return?","description":"Walkthrough","publishedAt":"2026-09-01T00:00:00Z"}},
 {"snippet":{"channelId":"UC2","title":"Vlog 12","description":"A day in the life","publishedAt":"2026-09-02T00:00:00Z"}},
 {"snippet":{"channelId":"UC1","title":"What is VAT?","description":"","publishedAt":"2026-09-03T00:00:00Z"}}
]}`

const channelSearch = `{"items":[{"snippet":{"channelId":"UC1"}},{"snippet":{"channelId":"UC2"}}]}`

const channelsJSON = `{"items":[
 {"id":"UC1","snippet":{"title":"Tax Tips UK","customUrl":"@taxtipsuk","description":"Chartered accountant.\nWeekly videos.","country":"GB"},"statistics":{"subscriberCount":"15000","hiddenSubscriberCount":false}},
 {"id":"UC2","snippet":{"title":"Daily Vlogs","description":"","country":"ZZ"},"statistics":{"subscriberCount":"99","hiddenSubscriberCount":true}}
]}`

type seen struct {
	searchType string
	region     string
	channelQ   string
	mu         sync.Mutex
}

func (s *seen) snapshot() (searchType, region, channelQ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchType, s.region, s.channelQ
}

func newTestClient(t *testing.T, key string, opts ...adapter.Option) (*Client, *seen) {
	t.Helper()
	s := &seen{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		q := r.URL.Query()
		if r.Header.Get("X-Goog-Api-Key") != "k" || q.Has("key") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/youtube/v3/search":
			s.searchType, s.region = q.Get("type"), q.Get("regionCode")
			if s.searchType == "video" {
				_, _ = w.Write([]byte(videoSearch)) //nolint:errcheck // test server
				return
			}
			_, _ = w.Write([]byte(channelSearch)) //nolint:errcheck // test server
		case "/youtube/v3/channels":
			s.channelQ = r.URL.RawQuery
			if q.Get("forHandle") == "@nobody" {
				_, _ = w.Write([]byte(`{"items":[]}`)) //nolint:errcheck // test server
				return
			}
			_, _ = w.Write([]byte(channelsJSON)) //nolint:errcheck // test server
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	httpcache.SetHostDelay("www.googleapis.com", 0)

	base := []adapter.Option{
		adapter.WithHTTPClient(&http.Client{Transport: &mockTransport{mockURL: srv.URL, transport: http.DefaultTransport}}),
		adapter.WithMinDelay(time.Millisecond),
		adapter.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		adapter.WithCredentials(adapter.Credentials{YouTubeAPIKey: key}),
	}
	c, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return c, s
}

func TestValidateURL(t *testing.T) {
	c := &Client{}
	for u, want := range map[string]bool{
		"https://www.youtube.com/@taxtipsuk": true,
		"https://youtu.be/abc":              true,
		"https://vimeo.com/abc":             false,
	} {
		if got := c.ValidateURL(u); got != want {
			t.Errorf("ValidateURL(%q) = %v", u, got)
		}
	}
}

func TestSearchErrorHidesKey(t *testing.T) {
	c, _ := newTestClient(t, "s3cret-key")
	_, err := c.Search(context.Background(), []string{"vat"}, "", 5)
	var httpErr *httpcache.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusForbidden {
		t.Fatalf("Search() error = %v, want HTTP 403", err)
	}
	if strings.Contains(err.Error(), "s3cret-key") {
		t.Errorf("error leaks the API key: %v", err)
	}
}

func TestSearchWithoutKey(t *testing.T) {
	c, s := newTestClient(t, "")
	got, err := c.Search(context.Background(), []string{"vat"}, "", 5)
	if typ, _, _ := s.snapshot(); err != nil || len(got) != 0 || typ != "" {
		t.Errorf("Search() = %v, %v (searched %q)", got, err, typ)
	}
}

func TestSearchQuestionMode(t *testing.T) {
	c, s := newTestClient(t, "k")
	got, err := c.Search(context.Background(), []string{"tax", "return"}, "United Kingdom", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if typ, region, _ := s.snapshot(); typ != "video" || region != "GB" {
		t.Errorf("search type/region = %q/%q", typ, region)
	}
	// The channels endpoint returns both fixtures; only UC1 asked a question.
	var withQuestion int
	for _, p := range got {
		if p.Question != nil {
			withQuestion++
			if p.Username != "@taxtipsuk" || p.Question.Source != "youtube_question" {
				t.Errorf("question profile = %+v", p)
			}
		}
	}
	if withQuestion != 1 {
		t.Errorf("%d profiles carry a question, want 1", withQuestion)
	}
}

func TestSearchChannels(t *testing.T) {
	c, s := newTestClient(t, "k", adapter.WithQuestionMode(false))
	got, err := c.Search(context.Background(), []string{"accountant"}, "", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if typ, region, _ := s.snapshot(); typ != "channel" || region != "" {
		t.Errorf("search type/region = %q/%q", typ, region)
	}
	if len(got) != 2 {
		t.Fatalf("Search() returned %d profiles", len(got))
	}
	uk := got[0]
	if uk.Location != "United Kingdom" || uk.Followers != 15000 || uk.Headline != "Chartered accountant." {
		t.Errorf("UC1 = %+v", uk)
	}
	if uk.ProfileURL != "https://www.youtube.com/channel/UC1" {
		t.Errorf("ProfileURL = %q", uk.ProfileURL)
	}
	if got[1].Followers != 0 || got[1].Location != "ZZ" || got[1].Username != "UC2" {
		t.Errorf("UC2 = %+v", got[1])
	}
}

func TestExtractProfile(t *testing.T) {
	c, s := newTestClient(t, "k")
	tests := []struct {
		url   string
		query string
	}{
		{"https://www.youtube.com/channel/UC1", "id=UC1"},
		{"https://www.youtube.com/@taxtipsuk", "forHandle=%40taxtipsuk"},
		{"https://www.youtube.com/user/legacy", "forUsername=legacy"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			p, err := c.ExtractProfile(context.Background(), tt.url)
			if err != nil {
				t.Fatalf("ExtractProfile() error = %v", err)
			}
			if p.Name != "Tax Tips UK" {
				t.Errorf("Name = %q", p.Name)
			}
			if _, _, q := s.snapshot(); !containsParam(q, tt.query) {
				t.Errorf("channels query %q lacks %q", q, tt.query)
			}
		})
	}

	if _, err := c.ExtractProfile(context.Background(), "https://www.youtube.com/@nobody"); !errors.Is(err, profile.ErrProfileNotFound) {
		t.Errorf("ExtractProfile(@nobody) error = %v", err)
	}
	if _, err := c.ExtractProfile(context.Background(), "https://www.youtube.com/watch?v=1"); err == nil {
		t.Error("ExtractProfile(watch url) succeeded")
	}
}

func containsParam(raw, kv string) bool {
	return slices.Contains(strings.Split(raw, "&"), kv)
}
