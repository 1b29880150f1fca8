package quora

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/prospector/pkg/adapter"
	"github.com/codeGROOVE-dev/prospector/pkg/httpcache"
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

const topicPage = `<html><body>
<div><a class="q" href="/Can-anyone-recommend-an-accountant">Can anyone recommend an accountant in London for my company? Budget is &pound;500</a>
<span>Asked by <a href="/profile/Jane-Smith">Jane Smith</a></span><time datetime="2026-10-10T09:00:00Z"></time></div>
<div><a href="/Is-UK-tax-confusing">Is UK tax confusing?</a> <a href="/profile/Low-Intent">Low</a></div>
<div><a href="/Texas-accountant">Can anyone recommend an accountant in Texas for my LLC? Budget is $500</a> <a href="/profile/Tex">Tex</a></div>
<div><a href="/Gardening">Any tips for growing tomatoes?</a> <a href="/profile/Gardener">G</a></div>
<div><a href="/profile/Bob-Jones/questions/1">Should I hire an accountant for HMRC self assessment? Need one this week, budget &pound;300</a></div>
<div><a href="/No-asker">Can anyone recommend an accountant for VAT? Budget &pound;200</a></div>
</body></html>`

const profilePage = `<html><head><title>%s - Quora</title><meta name="description" content="Director at Smith Bakery Ltd"></head>
<body><div>1.2K followers</div><div>40 answers</div></body></html>`

func newTestClient(t *testing.T, opts ...adapter.Option) (*Client, *atomic.Int32) {
	t.Helper()
	var topics atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/topic/"):
			topics.Add(1)
			_, _ = w.Write([]byte(topicPage)) //nolint:errcheck // test server
		case r.URL.Path == "/profile/Jane-Smith":
			_, _ = w.Write([]byte(strings.Replace(profilePage, "%s", "Jane Smith", 1))) //nolint:errcheck // test server
		case r.URL.Path == "/profile/Bob-Jones":
			_, _ = w.Write([]byte(`<html><head></head><body>1 follower</body></html>`)) //nolint:errcheck // test server
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	httpcache.SetHostDelay("www.quora.com", 0)

	base := []adapter.Option{
		adapter.WithHTTPClient(&http.Client{Transport: &mockTransport{mockURL: srv.URL, transport: http.DefaultTransport}}),
		adapter.WithMinDelay(time.Millisecond),
		adapter.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	c, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	c.now = func() time.Time { return time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC) }
	return c, &topics
}

func TestExtractQuestions(t *testing.T) {
	got := ExtractQuestions(topicPage, []string{"Accountant"}, "https://www.quora.com")
	type brief struct{ Asker, URL, Date string }
	var briefs []brief
	for _, q := range got {
		briefs = append(briefs, brief{Asker: q.Asker, URL: q.URL, Date: formatDate(q.Date)})
	}
	want := []brief{
		{"Jane-Smith", "https://www.quora.com/Can-anyone-recommend-an-accountant", "2026-10-10T09:00:00Z"},
		{"Tex", "https://www.quora.com/Texas-accountant", ""},
		{"Bob-Jones", "https://www.quora.com/profile/Bob-Jones/questions/1", ""},
		{"", "https://www.quora.com/No-asker", ""},
	}
	if diff := cmp.Diff(want, briefs); diff != "" {
		t.Errorf("ExtractQuestions() mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(got[0].Text, "£500") {
		t.Errorf("entities not decoded: %q", got[0].Text)
	}
}

func TestSearch(t *testing.T) {
	c, topics := newTestClient(t)
	got, err := c.Search(context.Background(), []string{"accountant", "tax"}, "United Kingdom", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if n := int(topics.Load()); n != len(Topics) {
		t.Errorf("fetched %d topic pages, want %d", n, len(Topics))
	}
	users := map[string]bool{}
	for _, p := range got {
		users[p.Username] = true
		if p.Question == nil || p.Question.Source != "quora_question" || p.Question.IntentScore <= 25 {
			t.Errorf("%s question = %+v", p.Username, p.Question)
		}
	}
	if diff := cmp.Diff(map[string]bool{"Jane-Smith": true, "Bob-Jones": true}, users); diff != "" {
		t.Errorf("askers mismatch (-want +got):\n%s", diff)
	}
	for _, p := range got {
		if p.Username == "Jane-Smith" && (p.Name != "Jane Smith" || p.Followers != 1200 || p.Bio != "Director at Smith Bakery Ltd") {
			t.Errorf("Jane = %+v", p)
		}
	}
}

func TestSearchAllCountries(t *testing.T) {
	c, _ := newTestClient(t)
	got, err := c.Search(context.Background(), []string{"accountant"}, "all", 10)
	if err != nil {
		t.Fatal(err)
	}
	// Tex passes the country filter but has no profile page, so it is skipped.
	if len(got) != 2 {
		t.Errorf("Search(all) returned %d profiles, want 2", len(got))
	}
}

func TestSearchDisabledOutsideQuestionMode(t *testing.T) {
	c, topics := newTestClient(t, adapter.WithQuestionMode(false))
	got, err := c.Search(context.Background(), []string{"accountant"}, "", 10)
	if err != nil || len(got) != 0 || topics.Load() != 0 {
		t.Errorf("Search() = %v, %v after %d topic fetches", got, err, topics.Load())
	}
}

func TestExtractProfile(t *testing.T) {
	c, _ := newTestClient(t)
	p, err := c.ExtractProfile(context.Background(), "https://www.quora.com/profile/Bob-Jones?ch=1")
	if err != nil {
		t.Fatalf("ExtractProfile() error = %v", err)
	}
	if p.Name != "Bob Jones" || p.Followers != 1 || p.ProfileURL != "https://www.quora.com/profile/Bob-Jones" {
		t.Errorf("profile = %+v", p)
	}
	if _, err := c.ExtractProfile(context.Background(), "https://www.quora.com/What-is-VAT"); err == nil {
		t.Error("ExtractProfile(question url) succeeded")
	}
}
