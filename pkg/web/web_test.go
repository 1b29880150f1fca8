package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
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

const results = `{"items":[
 {"title":"Jane Doe | Founder of Leeds Bakes","link":"https://www.leedsbakes.co.uk/about","snippet":"Jane founded Leeds Bakes in 2019.",
  "pagemap":{"metatags":[{"og:site_name":"Leeds Bakes","og:description":"Artisan bakery in Leeds."}]}},
 {"title":"How do I register for VAT as a founder?","link":"https://forum.example.com/t/1","snippet":"How do I register for VAT as a sole founder? Need an accountant this week."},
 {"title":"bad","link":"ftp://files.example.com/x","snippet":""}
]}`

func newTestClient(t *testing.T, opts ...adapter.Option) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/customsearch/v1":
			if r.URL.Query().Get("q") != "bakery founder United Kingdom" {
				t.Errorf("query = %q", r.URL.Query().Get("q"))
			}
			_, _ = w.Write([]byte(results)) //nolint:errcheck // test server
		case "/start":
			_, _ = w.Write([]byte(`<html><head><meta http-equiv="refresh" content="0; url=/about"></head></html>`)) //nolint:errcheck // test server
		case "/loop":
			_, _ = w.Write([]byte(`<script>window.location.href = "/loop2";</script>`)) //nolint:errcheck // test server
		case "/loop2":
			_, _ = w.Write([]byte(`<script>window.location.href = "/loop";</script>`)) //nolint:errcheck // test server
		case "/about":
			_, _ = w.Write([]byte(`<html><head><title>Jane Doe - Leeds Bakes</title>
<meta name="description" content="Founder and head baker."><meta property="og:site_name" content="Leeds Bakes"></head>
<body><h1>About</h1><p>We bake bread.</p></body></html>`)) //nolint:errcheck // test server
		case "/missing":
			_, _ = w.Write([]byte(`<html><title>Page Not Found</title></html>`)) //nolint:errcheck // test server
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	for _, h := range []string{"www.googleapis.com", "www.leedsbakes.co.uk"} {
		httpcache.SetHostDelay(h, 0)
	}

	base := []adapter.Option{
		adapter.WithHTTPClient(&http.Client{Transport: &mockTransport{mockURL: srv.URL, transport: http.DefaultTransport}}),
		adapter.WithMinDelay(time.Millisecond),
		adapter.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		adapter.WithCredentials(adapter.Credentials{SearchAPIKey: "k", SearchEngineID: "cx"}),
	}
	c, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestLeadingTitle(t *testing.T) {
	tests := map[string]string{
		"Jane Doe | Founder":  "Jane Doe",
		"Jane Doe - Acme":     "Jane Doe",
		"Acme: the blog":      "Acme: the blog",
		"Acme Ltd – Home":     "Acme Ltd",
		"Single-Hyphen Names": "Single-Hyphen Names",
	}
	for in, want := range tests {
		if got := leadingTitle(in); got != want {
			t.Errorf("leadingTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSearch(t *testing.T) {
	c := newTestClient(t)
	got, err := c.Search(context.Background(), []string{"bakery"}, "United Kingdom", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Search() returned %d profiles, want 2 (ftp link dropped)", len(got))
	}
	jane := got[0]
	if jane.Name != "Leeds Bakes" || jane.Username != "leedsbakes.co.uk" || jane.Bio != "Artisan bakery in Leeds." {
		t.Errorf("first profile = %+v", jane)
	}
	if jane.Question != nil {
		t.Errorf("statement tagged as question: %+v", jane.Question)
	}
	if q := got[1].Question; q == nil || q.Source != "web_question" {
		t.Errorf("forum question = %+v", q)
	}
}

func TestSearchWithoutCredentials(t *testing.T) {
	c := newTestClient(t, adapter.WithCredentials(adapter.Credentials{}))
	got, err := c.Search(context.Background(), []string{"bakery"}, "United Kingdom", 10)
	if err != nil || got != nil {
		t.Errorf("Search() = %v, %v", got, err)
	}
}

func TestExtractProfileFollowsRedirect(t *testing.T) {
	c := newTestClient(t)
	p, err := c.ExtractProfile(context.Background(), "https://www.leedsbakes.co.uk/start")
	if err != nil {
		t.Fatalf("ExtractProfile() error = %v", err)
	}
	if p.ProfileURL != "https://www.leedsbakes.co.uk/about" {
		t.Errorf("ProfileURL = %q", p.ProfileURL)
	}
	if p.Name != "Leeds Bakes" || p.Headline != "Jane Doe - Leeds Bakes" || p.Bio != "Founder and head baker." {
		t.Errorf("profile = %+v", p)
	}
	if p.LastContentSample == "" {
		t.Error("no content sample")
	}
}

func TestExtractProfileRedirectLoop(t *testing.T) {
	c := newTestClient(t)
	if _, err := c.ExtractProfile(context.Background(), "https://www.leedsbakes.co.uk/loop"); err != nil {
		t.Errorf("ExtractProfile() on redirect loop error = %v, want bounded hops", err)
	}
}

func TestExtractProfileNotFound(t *testing.T) {
	c := newTestClient(t)
	if _, err := c.ExtractProfile(context.Background(), "https://www.leedsbakes.co.uk/missing"); !errors.Is(err, profile.ErrProfileNotFound) {
		t.Errorf("ExtractProfile() error = %v, want ErrProfileNotFound", err)
	}
	if _, err := c.ExtractProfile(context.Background(), "mailto:jane@example.com"); err == nil {
		t.Error("ExtractProfile(mailto) succeeded")
	}
}
