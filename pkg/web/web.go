// Package web finds founders and personal sites through general web search.
package web

import (
	"cmp"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/prospector/pkg/adapter"
	"github.com/codeGROOVE-dev/prospector/pkg/htmlutil"
	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

const (
	minDelay     = time.Second
	maxRedirects = 3
	source       = "web_question"
)

var titleSep = regexp.MustCompile(`\s+[|\-–—:]\s+`)

// Client is the general web adapter.
type Client struct {
	*adapter.Base
}

// New creates a web adapter.
func New(_ context.Context, opts ...adapter.Option) (*Client, error) {
	cfg := adapter.NewConfig(opts...)
	return &Client{Base: adapter.NewBase(profile.Web, minDelay, cfg)}, nil
}

// ValidateURL accepts any http or https URL.
func (*Client) ValidateURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// Search queries the web for keywords plus "founder" and the country.
func (c *Client) Search(ctx context.Context, keywords []string, country string, maxResults int) ([]profile.RawProfile, error) {
	if !c.HasSearchCredentials() {
		c.MissingCredentials(ctx, "search api key and engine id")
		return nil, nil
	}
	terms := append(append([]string{}, keywords...), "founder")
	if country != "" && !strings.EqualFold(country, "all") {
		terms = append(terms, country)
	}
	query := strings.Join(terms, " ")
	c.Logger().InfoContext(ctx, "searching web", "query", query)

	items, err := c.WebSearch(ctx, query, country, maxResults)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	seen := map[string]bool{}
	var out []profile.RawProfile
	for _, it := range items {
		if !c.ValidateURL(it.Link) || seen[it.Link] {
			continue
		}
		seen[it.Link] = true
		out = append(out, c.fromItem(it))
	}
	c.Logger().InfoContext(ctx, "web search complete", "profiles", len(out))
	return out, nil
}

func (c *Client) fromItem(it adapter.SearchItem) profile.RawProfile {
	p := c.EmptyProfile()
	p.ProfileURL = it.Link
	p.Username = host(it.Link)
	p.Headline = it.Title
	p.Name = cmp.Or(it.Meta["author"], it.Meta["og:site_name"], leadingTitle(it.Title), p.Username)
	p.Company = it.Meta["og:site_name"]
	p.Bio = cmp.Or(it.Meta["og:description"], it.Snippet)
	p.Location = it.Meta["geo.placename"]
	p.LastContentSample = adapter.Sample(it.Snippet)
	p.LastContentDate = it.Meta["article:published_time"]
	if c.QuestionSeeking() {
		c.AttachQuestion(&p, strings.TrimSpace(it.Snippet), source, p.LastContentDate)
	}
	return p
}

// ExtractProfile fetches a page, following meta and script redirects, and reads its
// title, description and text.
func (c *Client) ExtractProfile(ctx context.Context, pageURL string) (profile.RawProfile, error) {
	p := c.EmptyProfile()
	p.ProfileURL = pageURL
	if !c.ValidateURL(pageURL) {
		return p, fmt.Errorf("not a web url: %s", pageURL)
	}

	current := pageURL
	var page string
	for hop := 0; ; hop++ {
		body, err := c.Fetch(ctx, adapter.Request{URL: current})
		if err != nil {
			return p, err
		}
		page = string(body)
		next := htmlutil.RedirectURL(page)
		if next == "" || hop == maxRedirects {
			break
		}
		resolved, err := resolve(current, next)
		if err != nil || resolved == current {
			break
		}
		c.Logger().DebugContext(ctx, "following redirect", "from", current, "to", resolved)
		current = resolved
	}

	title := htmlutil.Title(page)
	if htmlutil.IsNotFound(title) {
		return p, profile.ErrProfileNotFound
	}
	p.ProfileURL = current
	p.Username = host(current)
	p.Headline = title
	p.Company = htmlutil.Meta(page, "og:site_name")
	p.Name = cmp.Or(htmlutil.Meta(page, "author"), p.Company, leadingTitle(title), p.Username)
	p.Bio = htmlutil.Description(page)
	p.Location = htmlutil.Meta(page, "geo.placename")
	p.LastContentSample = adapter.Sample(htmlutil.StripTags(page))
	p.LastContentDate = htmlutil.Meta(page, "article:published_time")
	return p, nil
}

func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

// leadingTitle returns the part of a page title before the first separator.
func leadingTitle(title string) string {
	return strings.TrimSpace(titleSep.Split(title, 2)[0])
}

func host(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Hostname(), "www.")
}
