// Package medium discovers writers through Medium's public RSS feeds.
package medium

import (
	"cmp"
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/prospector/pkg/adapter"
	"github.com/codeGROOVE-dev/prospector/pkg/htmlutil"
	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

const (
	baseURL  = "https://medium.com"
	minDelay = 1500 * time.Millisecond
	source   = "medium_question"
)

var (
	usernameRE = regexp.MustCompile(`medium\.com/@([A-Za-z0-9_.-]+)`)
	tagRE      = regexp.MustCompile(`[^a-z0-9]+`)
	storiesRE  = regexp.MustCompile(`^Stories by (.+?) on Medium$`)
)

type rss struct {
	Channel struct {
		Title       string `xml:"title"`
		Description string `xml:"description"`
		Items       []item `xml:"item"`
	} `xml:"channel"`
}

type item struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Creator     string   `xml:"http://purl.org/dc/elements/1.1/ creator"`
	PubDate     string   `xml:"pubDate"`
	Categories  []string `xml:"category"`
	Description string   `xml:"description"`
	Content     string   `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
}

func (it item) text() string {
	body := cmp.Or(it.Description, it.Content)
	return strings.TrimSpace(it.Title + "\n\n" + htmlutil.StripTags(body))
}

func (it item) date() string {
	t, err := time.Parse(time.RFC1123, it.PubDate)
	if err != nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Client is the Medium adapter.
type Client struct {
	*adapter.Base

	base string
}

// New creates a Medium adapter.
func New(_ context.Context, opts ...adapter.Option) (*Client, error) {
	cfg := adapter.NewConfig(opts...)
	return &Client{Base: adapter.NewBase(profile.Medium, minDelay, cfg), base: baseURL}, nil
}

// ValidateURL reports whether u is a Medium author page.
func (*Client) ValidateURL(u string) bool {
	return strings.Contains(u, "medium.com/@")
}

// Search reads the tag feed for each keyword and returns story authors.
func (c *Client) Search(ctx context.Context, keywords []string, country string, maxResults int) ([]profile.RawProfile, error) {
	c.Logger().InfoContext(ctx, "searching medium", "keywords", keywords, "country", country)
	seen := map[string]bool{}
	var out []profile.RawProfile
	for _, kw := range keywords {
		if len(out) >= maxResults {
			break
		}
		tag := Tag(kw)
		if tag == "" {
			continue
		}
		feed, err := c.feed(ctx, "/feed/tag/"+tag)
		if err != nil {
			c.Logger().WarnContext(ctx, "tag feed failed", "tag", tag, "error", err)
			continue
		}
		for _, it := range feed.Channel.Items {
			if len(out) >= maxResults {
				break
			}
			user := extractUsername(it.Link)
			if user == "" || seen[user] {
				continue
			}
			text := it.text()
			if c.QuestionSeeking() && !c.Intent().Detector().IsQuestion(text) {
				continue
			}
			seen[user] = true

			p := c.EmptyProfile()
			p.Username = user
			p.Name = cmp.Or(it.Creator, user)
			p.ProfileURL = c.base + "/@" + user
			p.Headline = it.Title
			p.LastContentSample = adapter.Sample(text)
			p.LastContentDate = it.date()
			if bio, err := c.bio(ctx, user); err == nil {
				p.Bio = bio
			}
			if c.QuestionSeeking() {
				c.AttachQuestion(&p, text, source, p.LastContentDate)
			}
			out = append(out, p)
		}
	}
	c.Logger().InfoContext(ctx, "medium search complete", "profiles", len(out))
	return out, nil
}

// ExtractProfile reads the author's feed and profile page.
func (c *Client) ExtractProfile(ctx context.Context, profileURL string) (profile.RawProfile, error) {
	p := c.EmptyProfile()
	user := extractUsername(profileURL)
	if user == "" {
		return p, fmt.Errorf("could not extract username from: %s", profileURL)
	}
	p.Username = user
	p.ProfileURL = c.base + "/@" + user

	feed, err := c.feed(ctx, "/feed/@"+user)
	if err != nil {
		return p, err
	}
	p.Name = user
	if m := storiesRE.FindStringSubmatch(strings.TrimSpace(feed.Channel.Title)); m != nil {
		p.Name = m[1]
	}
	if len(feed.Channel.Items) > 0 {
		latest := feed.Channel.Items[0]
		p.Headline = latest.Title
		p.LastContentSample = adapter.Sample(latest.text())
		p.LastContentDate = latest.date()
	}
	if bio, err := c.bio(ctx, user); err == nil {
		p.Bio = bio
	} else {
		c.Logger().DebugContext(ctx, "no bio", "user", user, "error", err)
	}
	return p, nil
}

func (c *Client) feed(ctx context.Context, path string) (*rss, error) {
	body, err := c.Fetch(ctx, adapter.Request{URL: c.base + path, Headers: map[string]string{"Accept": "application/rss+xml"}})
	if err != nil {
		return nil, err
	}
	var f rss
	if err := xml.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", path, err)
	}
	return &f, nil
}

// bio reads the description meta tag from the author page.
func (c *Client) bio(ctx context.Context, user string) (string, error) {
	body, err := c.Fetch(ctx, adapter.Request{URL: c.base + "/@" + user})
	if err != nil {
		return "", err
	}
	d := htmlutil.Description(string(body))
	if strings.HasPrefix(d, "Read writing from") {
		// Medium's generic description when the author has no bio.
		return "", nil
	}
	return d, nil
}

// Tag converts a keyword into a Medium tag slug.
func Tag(keyword string) string {
	return strings.Trim(tagRE.ReplaceAllString(strings.ToLower(keyword), "-"), "-")
}

func extractUsername(u string) string {
	if m := usernameRE.FindStringSubmatch(u); len(m) > 1 {
		return m[1]
	}
	return ""
}
