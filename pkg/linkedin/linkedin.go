// Package linkedin finds LinkedIn members through web search and reads their public
// profile pages with session cookies.
package linkedin

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/prospector/pkg/adapter"
	"github.com/codeGROOVE-dev/prospector/pkg/auth"
	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

const (
	baseURL  = "https://www.linkedin.com"
	minDelay = 3 * time.Second
	source   = "linkedin_question"
)

var (
	publicIDRE  = regexp.MustCompile(`linkedin\.com/in/([^/?#]+)`)
	postAuthor  = regexp.MustCompile(`linkedin\.com/posts/([^/?#_]+)_`)
	locationRE  = regexp.MustCompile(`Location:\s*([^·|\n]+)`)
	titleSuffix = regexp.MustCompile(`\s*\|\s*LinkedIn\s*$`)
	postTitleRE = regexp.MustCompile(`^(.+?) on LinkedIn:`)
)

// Client is the LinkedIn adapter.
type Client struct {
	*adapter.Base

	base string
}

// New creates a LinkedIn adapter. Cookies are resolved lazily on the first profile fetch.
func New(_ context.Context, opts ...adapter.Option) (*Client, error) {
	cfg := adapter.NewConfig(opts...)
	return &Client{Base: adapter.NewBase(profile.LinkedIn, minDelay, cfg), base: baseURL}, nil
}

// ValidateURL reports whether u is a member or company page.
func (*Client) ValidateURL(u string) bool {
	return strings.Contains(u, "linkedin.com/in/") || strings.Contains(u, "linkedin.com/company/")
}

// Search finds members through site-restricted web search. In question mode it searches
// posts and keeps authors whose post reads as a question.
func (c *Client) Search(ctx context.Context, keywords []string, country string, maxResults int) ([]profile.RawProfile, error) {
	if !c.HasSearchCredentials() {
		c.MissingCredentials(ctx, "search api key and engine id")
		return nil, nil
	}
	site := "site:linkedin.com/in"
	if c.QuestionSeeking() {
		site = "site:linkedin.com/posts"
	}
	query := strings.Join(append([]string{site}, keywords...), " ")
	if country != "" && !strings.EqualFold(country, "all") {
		query += " " + country
	}
	c.Logger().InfoContext(ctx, "searching linkedin", "query", query)

	// Question mode discards non-questions, so read further.
	limit := maxResults
	if c.QuestionSeeking() {
		limit *= 3
	}
	items, err := c.WebSearch(ctx, query, country, limit)
	if err != nil {
		return nil, fmt.Errorf("linkedin search: %w", err)
	}

	seen := map[string]bool{}
	var out []profile.RawProfile
	for _, it := range items {
		if len(out) >= maxResults {
			break
		}
		var p profile.RawProfile
		var ok bool
		if c.QuestionSeeking() {
			p, ok = c.fromPost(it)
		} else {
			p, ok = c.fromMember(it)
		}
		if !ok || seen[p.Username] {
			continue
		}
		seen[p.Username] = true
		out = append(out, p)
	}
	c.Logger().InfoContext(ctx, "linkedin search complete", "results", len(items), "profiles", len(out))
	return out, nil
}

func (c *Client) fromMember(it adapter.SearchItem) (profile.RawProfile, bool) {
	id := extractPublicID(it.Link)
	if id == "" {
		return profile.RawProfile{}, false
	}
	p := c.EmptyProfile()
	p.Username = id
	p.ProfileURL = c.base + "/in/" + id

	name, headline, company := splitTitle(it.Title)
	first, last := it.Meta["profile:first_name"], it.Meta["profile:last_name"]
	p.Name = cmp.Or(strings.TrimSpace(first+" "+last), name)
	p.Headline = headline
	p.Company = cmp.Or(company, parseCompanyFromHeadline(headline))
	p.Bio = cmp.Or(it.Meta["og:description"], it.Snippet)
	if m := locationRE.FindStringSubmatch(it.Snippet); m != nil {
		p.Location = strings.TrimSpace(m[1])
	}
	return p, true
}

func (c *Client) fromPost(it adapter.SearchItem) (profile.RawProfile, bool) {
	m := postAuthor.FindStringSubmatch(it.Link)
	if m == nil {
		return profile.RawProfile{}, false
	}
	text := strings.TrimSpace(cmp.Or(it.Meta["og:description"], it.Snippet))
	if !c.Intent().Detector().IsQuestion(text) {
		return profile.RawProfile{}, false
	}
	p := c.EmptyProfile()
	p.Username = m[1]
	p.ProfileURL = c.base + "/in/" + m[1]
	p.Name = m[1]
	if tm := postTitleRE.FindStringSubmatch(it.Title); tm != nil {
		p.Name = strings.TrimSpace(tm[1])
	}
	p.LastContentSample = adapter.Sample(text)
	p.LastContentDate = it.Meta["article:published_time"]
	c.AttachQuestion(&p, text, source, p.LastContentDate)
	return p, true
}

// ExtractProfile fetches a member page using session cookies. Without cookies it
// returns profile.ErrAuthRequired.
func (c *Client) ExtractProfile(ctx context.Context, profileURL string) (profile.RawProfile, error) {
	id := extractPublicID(profileURL)
	if id == "" {
		p := c.EmptyProfile()
		p.ProfileURL = profileURL
		return p, fmt.Errorf("not a member url: %s", profileURL)
	}
	client, err := c.sessionClient(ctx)
	if err != nil {
		return c.EmptyProfile(), err
	}
	target := c.base + "/in/" + url.PathEscape(id) + "/"
	body, err := c.Fetch(ctx, adapter.Request{
		URL:      target,
		Headers:  browserHeaders,
		Client:   client,
		Validate: isValidProfilePage,
	})
	if err != nil {
		return c.EmptyProfile(), err
	}
	p, err := c.parseProfile(string(body), id)
	if err != nil {
		return p, err
	}
	if p.Location != "" {
		c.Logger().DebugContext(ctx, "linkedin location", "raw", p.Location, "country", c.NormalizeLocation(p.Location))
	}
	return p, nil
}

func (c *Client) sessionClient(ctx context.Context) (*http.Client, error) {
	jar, err := auth.Jar(ctx, profile.LinkedIn, c.Config().CookieSources...)
	if errors.Is(err, profile.ErrNoCredentials) {
		c.Logger().WarnContext(ctx, "no linkedin session cookies", "env", auth.EnvVarsForPlatform(profile.LinkedIn))
		return nil, profile.ErrAuthRequired
	}
	if err != nil {
		return nil, err
	}
	base := c.Config().HTTPClient
	return &http.Client{Jar: jar, Transport: base.Transport, Timeout: base.Timeout}, nil
}

var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:146.0) Gecko/20100101 Firefox/146.0",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language":           "en-GB,en;q=0.5",
	"DNT":                       "1",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
}

// splitTitle splits a search title of the form "Name - Headline - Company | LinkedIn".
func splitTitle(title string) (name, headline, company string) {
	parts := strings.Split(titleSuffix.ReplaceAllString(title, ""), " - ")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch len(parts) {
	case 0:
		return "", "", ""
	case 1:
		return parts[0], "", ""
	case 2:
		return parts[0], parts[1], ""
	default:
		return parts[0], strings.Join(parts[1:len(parts)-1], " - "), parts[len(parts)-1]
	}
}

func extractPublicID(u string) string {
	m := publicIDRE.FindStringSubmatch(u)
	if m == nil {
		return ""
	}
	if strings.Contains(m[1], "%") {
		if decoded, err := url.PathUnescape(m[1]); err == nil {
			return decoded
		}
	}
	return m[1]
}
