package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/prospector/pkg/adapter"
	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeAdapter struct {
	err      error
	platform profile.Platform
	profiles []profile.RawProfile

	mu  sync.Mutex
	max int
}

func (f *fakeAdapter) Platform() profile.Platform { return f.platform }
func (f *fakeAdapter) ValidateURL(string) bool    { return true }

func (f *fakeAdapter) Search(_ context.Context, _ []string, _ string, maxResults int) ([]profile.RawProfile, error) {
	f.mu.Lock()
	f.max = maxResults
	f.mu.Unlock()
	return f.profiles, f.err
}

func (f *fakeAdapter) ExtractProfile(context.Context, string) (profile.RawProfile, error) {
	return profile.RawProfile{}, profile.ErrProfileNotFound
}

func (f *fakeAdapter) requested() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.max
}

type fakeResolver map[string]adapter.Adapter

func (r fakeResolver) Get(_ context.Context, name string) (adapter.Adapter, error) {
	a, ok := r[name]
	if !ok {
		return nil, &profile.UnsupportedPlatformError{Name: name}
	}
	return a, nil
}

var fixed = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func newPipeline(r Resolver) *Pipeline {
	return New(r, WithLogger(quiet), WithClock(func() time.Time { return fixed }), WithRunID("run-1"), WithWorkers(2))
}

func raw(platform profile.Platform, user string) profile.RawProfile {
	return profile.RawProfile{
		Platform:          platform,
		Name:              user,
		Username:          user,
		ProfileURL:        "https://example.com/" + user,
		Headline:          "Founder building a fintech startup",
		Followers:         5000,
		LastContentSample: "Spent the week talking to customers about invoicing and cash flow.",
	}
}

func TestRunMergesPlatforms(t *testing.T) {
	li := &fakeAdapter{platform: profile.LinkedIn, profiles: []profile.RawProfile{
		raw(profile.LinkedIn, "jane"),
		raw(profile.LinkedIn, "jane"),
		{Platform: profile.LinkedIn, Name: "No URL"},
	}}
	x := &fakeAdapter{platform: profile.X, profiles: []profile.RawProfile{raw(profile.X, "sam")}}
	yt := &fakeAdapter{platform: profile.YouTube, err: errors.New("quota exceeded")}
	r := fakeResolver{"linkedin": li, "x": x, "youtube": yt}

	res, err := newPipeline(r).Run(context.Background(), Options{
		Keywords:   []string{"fintech"},
		Platforms:  []profile.Platform{profile.LinkedIn, profile.X, profile.YouTube, profile.X},
		Country:    "all",
		MaxResults: 5,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.RunID != "run-1" {
		t.Errorf("RunID = %q", res.RunID)
	}
	for _, a := range []*fakeAdapter{li, x, yt} {
		if got := a.requested(); got != 2 {
			t.Errorf("%s asked for %d results, want 2", a.platform, got)
		}
	}
	if res.Raw != 3 || res.Found[profile.LinkedIn] != 2 || res.Found[profile.X] != 1 || res.Found[profile.YouTube] != 0 {
		t.Errorf("counts: raw=%d found=%v", res.Raw, res.Found)
	}
	if len(res.Profiles) != 2 {
		t.Fatalf("got %d profiles, want 2 after dedup", len(res.Profiles))
	}
	for _, p := range res.Profiles {
		if p.RunID != "run-1" || !p.CreatedAt.Equal(fixed) || !p.UpdatedAt.Equal(fixed) {
			t.Errorf("%s: run metadata = %q %v %v", p.Username, p.RunID, p.CreatedAt, p.UpdatedAt)
		}
		if !p.HasRole(profile.RoleFounder) {
			t.Errorf("%s: roles = %v, want founder", p.Username, p.RoleTags)
		}
		if p.Scores.Overall == 0 {
			t.Errorf("%s: not scored", p.Username)
		}
	}
}

func TestRunResolveErrorIsFatal(t *testing.T) {
	x := &fakeAdapter{platform: profile.X}
	_, err := newPipeline(fakeResolver{"x": x}).Run(context.Background(), Options{
		Platforms: []profile.Platform{profile.X, "myspace"},
	})
	var unsupported *profile.UnsupportedPlatformError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Run() error = %v, want UnsupportedPlatformError", err)
	}
	if x.requested() != 0 {
		t.Error("search ran before every adapter resolved")
	}
}

func TestRunNoPlatforms(t *testing.T) {
	_, err := newPipeline(fakeResolver{}).Run(context.Background(), Options{})
	var cfgErr *profile.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "platforms" {
		t.Errorf("Run() error = %v, want ConfigError on platforms", err)
	}
}

func TestRunNothingFound(t *testing.T) {
	x := &fakeAdapter{platform: profile.X}
	res, err := newPipeline(fakeResolver{"x": x}).Run(context.Background(), Options{
		Platforms:  []profile.Platform{profile.X},
		MaxResults: 10,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Profiles) != 0 || x.requested() != 10 {
		t.Errorf("profiles = %d, requested = %d", len(res.Profiles), x.requested())
	}
}

func TestEnrichOne(t *testing.T) {
	p := newPipeline(fakeResolver{})
	r := raw(profile.LinkedIn, "jane")
	r.Location = "Remote, Manchester, UK"
	r.Bio = "Fintech founder."

	got := p.EnrichOne(&r, []string{"fintech"})
	if got.Country != "United Kingdom" {
		t.Errorf("Country = %q", got.Country)
	}
	if got.Username != "jane" || got.Followers != 5000 {
		t.Errorf("raw fields not carried: %+v", got.RawProfile)
	}
	if got.WealthTier == "" || got.PotentialTier == "" || got.OpennessTag == "" {
		t.Errorf("tiers not set: wealth=%q potential=%q openness=%q", got.WealthTier, got.PotentialTier, got.OpennessTag)
	}
	if got.Scores.BusinessAlignment == 0 {
		t.Error("keyword match not reflected in business alignment")
	}

	r.Location = ""
	if got := p.EnrichOne(&r, nil); got.Country != "" {
		t.Errorf("Country without location = %q", got.Country)
	}
}

func TestEnrichKeepsOrder(t *testing.T) {
	p := newPipeline(fakeResolver{})
	in := make([]profile.RawProfile, 20)
	for i := range in {
		in[i] = raw(profile.X, string(rune('a'+i)))
	}
	out, err := p.Enrich(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	for i := range out {
		if out[i].Username != in[i].Username {
			t.Fatalf("out[%d] = %q, want %q", i, out[i].Username, in[i].Username)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Enrich(ctx, in, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Enrich() on cancelled ctx = %v", err)
	}
}

func TestPerPlatform(t *testing.T) {
	tests := []struct{ max, n, want int }{
		{300, 3, 100},
		{5, 3, 2},
		{1, 4, 1},
		{0, 2, 0},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := perPlatform(tt.max, tt.n); got != tt.want {
			t.Errorf("perPlatform(%d, %d) = %d, want %d", tt.max, tt.n, got, tt.want)
		}
	}
}
