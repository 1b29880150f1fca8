// Package quora scrapes Quora topic pages for people asking finance and property questions.
//
// Quora has no public API, so only question-seeking mode is supported. Outside that
// mode Search returns nothing.
package quora

import (
	"cmp"
	"context"
	"fmt"
	"html"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/prospector/pkg/adapter"
	"github.com/codeGROOVE-dev/prospector/pkg/htmlutil"
	"github.com/codeGROOVE-dev/prospector/pkg/profile"
	"github.com/codeGROOVE-dev/prospector/pkg/rules"
)

const (
	baseURL = "https://www.quora.com"
	source  = "quora_question"

	minDelay       = 2 * time.Second
	perTopic       = 10
	minIntent      = 25
	recentBonus    = 10
	recentWindow   = 30 * 24 * time.Hour
	askerLookahead = 2000

	browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Topics are the topic pages searched, in order.
var Topics = []string{
	"Property-Investment-UK",
	"UK-Personal-Finance",
	"Accounting-and-Bookkeeping",
	"Small-Business-Finance-UK",
	"UK-Property-Market",
	"UK-Tax-Advice",
	"UK-Mortgage-Advice",
	"UK-Investment-Advice",
}

var (
	questionRE   = regexp.MustCompile(`<a[^>]*href="([^"]*/[^"]*)"[^>]*>([^<]*\?[^<]*)<`)
	profilePath  = regexp.MustCompile(`/profile/([^/?"#]+)`)
	profileURLRE = regexp.MustCompile(`quora\.com/profile/([^/?#]+)`)
	datetimeRE   = regexp.MustCompile(`datetime="([^"]+)"`)
	titleSuffix  = regexp.MustCompile(`\s*[-|]\s*Quora\s*$`)
)

// Question is one question found on a topic page.
type Question struct {
	Text  string
	URL   string
	Asker string
	Date  time.Time
	Topic string
}

// Client is the Quora adapter.
type Client struct {
	*adapter.Base

	base string
	now  func() time.Time
}

// New creates a Quora adapter.
func New(_ context.Context, opts ...adapter.Option) (*Client, error) {
	cfg := adapter.NewConfig(opts...)
	return &Client{Base: adapter.NewBase(profile.Quora, minDelay, cfg), base: baseURL, now: time.Now}, nil
}

// ValidateURL reports whether u points at Quora.
func (*Client) ValidateURL(u string) bool {
	return strings.Contains(u, "quora.com/")
}

type scored struct {
	q      Question
	rank   int
	result *profile.QuestionContext
}

// Search reads every topic page, keeps keyword-matching questions about the target
// country with intent above 25, ranks them by intent with a bonus for recent ones and
// returns one profile per asker.
func (c *Client) Search(ctx context.Context, keywords []string, country string, maxResults int) ([]profile.RawProfile, error) {
	if !c.QuestionSeeking() {
		c.Logger().InfoContext(ctx, "question-seeking mode disabled, skipping quora")
		return nil, nil
	}
	c.Logger().InfoContext(ctx, "searching quora", "keywords", keywords, "country", country, "topics", len(Topics))

	var all []Question
	for _, topic := range Topics {
		qs, err := c.searchTopic(ctx, topic, keywords)
		if err != nil {
			c.Logger().WarnContext(ctx, "topic search failed", "topic", topic, "error", err)
			continue
		}
		c.Logger().DebugContext(ctx, "topic searched", "topic", topic, "questions", len(qs))
		all = append(all, qs...)
	}
	local := c.filterCountry(all, country)

	var ranked []scored
	for _, q := range local {
		res := c.Intent().ScoreContent(q.Text)
		if !res.IsQuestion || res.Intent <= minIntent {
			continue
		}
		qc, err := res.QuestionContext(source, formatDate(q.Date))
		if err != nil {
			continue
		}
		rank := res.Intent
		if c.isRecent(q.Date) {
			rank += recentBonus
		}
		ranked = append(ranked, scored{q: q, rank: rank, result: qc})
	}
	slices.SortStableFunc(ranked, func(a, b scored) int { return b.rank - a.rank })

	seen := map[string]bool{}
	var out []profile.RawProfile
	for _, s := range ranked {
		if len(out) >= maxResults {
			break
		}
		if s.q.Asker == "" || seen[s.q.Asker] {
			continue
		}
		seen[s.q.Asker] = true
		p, err := c.userProfile(ctx, s.q.Asker)
		if err != nil {
			c.SkipItem(ctx, c.base+"/profile/"+s.q.Asker, err)
			continue
		}
		p.Question = s.result
		p.LastContentSample = adapter.Sample(s.q.Text)
		p.LastContentDate = formatDate(s.q.Date)
		out = append(out, p)
	}
	c.Logger().InfoContext(ctx, "quora search complete",
		"questions", len(all), "in_country", len(local), "high_intent", len(ranked), "profiles", len(out))
	return out, nil
}

func (c *Client) searchTopic(ctx context.Context, topic string, keywords []string) ([]Question, error) {
	body, err := c.fetch(ctx, c.base+"/topic/"+topic)
	if err != nil {
		return nil, err
	}
	qs := ExtractQuestions(string(body), keywords, c.base)
	if len(qs) > perTopic {
		qs = qs[:perTopic]
	}
	for i := range qs {
		qs[i].Topic = topic
	}
	return qs, nil
}

// ExtractQuestions finds question links in a topic page whose text mentions any keyword.
// The asker comes from the question link itself or the first profile link that follows it.
func ExtractQuestions(page string, keywords []string, base string) []Question {
	lower := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lower = append(lower, k)
		}
	}
	var out []Question
	for _, m := range questionRE.FindAllStringSubmatchIndex(page, -1) {
		href := page[m[2]:m[3]]
		text := strings.TrimSpace(html.UnescapeString(page[m[4]:m[5]]))
		if !rules.ContainsAny(strings.ToLower(text), lower) {
			continue
		}
		after := page[m[1]:min(len(page), m[1]+askerLookahead)]
		// Stop at the next question so its asker is not borrowed.
		if next := questionRE.FindStringIndex(after); next != nil {
			after = after[:next[0]]
		}
		q := Question{Text: text, URL: href}
		if !strings.HasPrefix(href, "http") {
			q.URL = base + href
		}
		if pm := profilePath.FindStringSubmatch(href); pm != nil {
			q.Asker = pm[1]
		} else if pm := profilePath.FindStringSubmatch(after); pm != nil {
			q.Asker = pm[1]
		}
		if dm := datetimeRE.FindStringSubmatch(after); dm != nil {
			if t, err := time.Parse(time.RFC3339, dm[1]); err == nil {
				q.Date = t.UTC()
			}
		}
		out = append(out, q)
	}
	return out
}

// filterCountry keeps questions that mention the country. Empty, "all" and countries
// without content indicators keep everything.
func (c *Client) filterCountry(qs []Question, country string) []Question {
	if country == "" || strings.EqualFold(country, "all") || !c.Gazetteer().Known(country) {
		return qs
	}
	var out []Question
	for _, q := range qs {
		if c.Gazetteer().MatchesContent(country, q.Text) {
			out = append(out, q)
		}
	}
	return out
}

func (c *Client) isRecent(t time.Time) bool {
	return !t.IsZero() && t.After(c.now().Add(-recentWindow))
}

// ExtractProfile fetches a Quora profile page.
func (c *Client) ExtractProfile(ctx context.Context, profileURL string) (profile.RawProfile, error) {
	m := profileURLRE.FindStringSubmatch(profileURL)
	if m == nil {
		p := c.EmptyProfile()
		p.ProfileURL = profileURL
		return p, fmt.Errorf("could not extract username from: %s", profileURL)
	}
	return c.userProfile(ctx, m[1])
}

func (c *Client) userProfile(ctx context.Context, user string) (profile.RawProfile, error) {
	p := c.EmptyProfile()
	p.Username = user
	p.ProfileURL = c.base + "/profile/" + user

	body, err := c.fetch(ctx, p.ProfileURL)
	if err != nil {
		return p, err
	}
	page := string(body)
	p.Name = cmp.Or(titleSuffix.ReplaceAllString(htmlutil.Title(page), ""), strings.ReplaceAll(user, "-", " "))
	p.Bio = htmlutil.Description(page)
	p.Headline = htmlutil.Meta(page, "og:description")
	if p.Headline == p.Bio {
		p.Headline = ""
	}
	p.Followers = htmlutil.CountBefore(htmlutil.StripTags(page), "followers")
	if p.Followers == 0 {
		p.Followers = htmlutil.CountBefore(htmlutil.StripTags(page), "follower")
	}
	return p, nil
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	return c.Fetch(ctx, adapter.Request{URL: u, Headers: map[string]string{
		"User-Agent":      browserUA,
		"Accept":          "text/html,application/xhtml+xml",
		"Accept-Language": "en-GB,en;q=0.8",
	}})
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
