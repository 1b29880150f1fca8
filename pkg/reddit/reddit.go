// Package reddit finds people asking for help in business and finance subreddits.
package reddit

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/codeGROOVE-dev/prospector/pkg/adapter"
	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

const (
	publicBase = "https://www.reddit.com"
	oauthBase  = "https://oauth.reddit.com"
	tokenURL   = "https://www.reddit.com/api/v1/access_token"
	userAgent  = "prospector/1.0 (profile discovery)"
	minDelay   = time.Second
	perSub     = 25
	source     = "reddit_question"
)

// Subreddits searched, in order.
var Subreddits = []string{"UKPersonalFinance", "UKEntrepreneur", "startups", "Entrepreneur", "SaaS", "smallbusiness"}

var usernameRE = regexp.MustCompile(`reddit\.com/(?:user|u)/([^/?#]+)`)

// ignoredAuthors never represent a person.
var ignoredAuthors = map[string]bool{"[deleted]": true, "AutoModerator": true, "": true}

// Client is the Reddit adapter.
type Client struct {
	*adapter.Base

	api  string
	http *http.Client
}

// New creates a Reddit adapter. With a client id and secret it authenticates through
// the client-credentials flow; otherwise it uses the public JSON endpoints.
func New(_ context.Context, opts ...adapter.Option) (*Client, error) {
	cfg := adapter.NewConfig(opts...)
	c := &Client{
		Base: adapter.NewBase(profile.Reddit, minDelay, cfg),
		api:  publicBase,
		http: cfg.HTTPClient,
	}
	creds := cfg.Credentials
	if creds.RedditClientID != "" && creds.RedditClientSecret != "" {
		cc := &clientcredentials.Config{
			ClientID:     creds.RedditClientID,
			ClientSecret: creds.RedditClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		// The token source outlives New, so it must not inherit the caller's ctx.
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, cfg.HTTPClient)
		c.http = cc.Client(tokenCtx)
		c.api = oauthBase
	}
	return c, nil
}

// ValidateURL reports whether url is a Reddit user profile.
func (*Client) ValidateURL(u string) bool {
	return strings.Contains(u, "reddit.com/user/") || strings.Contains(u, "reddit.com/u/")
}

type post struct {
	author  string
	title   string
	body    string
	created time.Time
}

func (p post) text() string {
	return strings.TrimSpace(p.title + "\n\n" + p.body)
}

// Search looks through the target subreddits for posts matching keywords and returns
// their authors. In question mode only authors of question posts are kept, best intent
// first, and each carries the question that surfaced it.
func (c *Client) Search(ctx context.Context, keywords []string, country string, maxResults int) ([]profile.RawProfile, error) {
	query := strings.Join(keywords, " ")
	c.Logger().InfoContext(ctx, "searching reddit", "query", query, "country", country, "question_mode", c.QuestionSeeking())

	var posts []post
	for _, sub := range Subreddits {
		found, err := c.searchSubreddit(ctx, sub, query)
		if err != nil {
			c.Logger().WarnContext(ctx, "subreddit search failed", "subreddit", sub, "error", err)
			continue
		}
		posts = append(posts, found...)
	}

	type candidate struct {
		post   post
		intent int
	}
	var cands []candidate
	for _, p := range posts {
		if ignoredAuthors[p.author] {
			continue
		}
		if !c.QuestionSeeking() {
			cands = append(cands, candidate{post: p})
			continue
		}
		res := c.Intent().ScoreContent(p.text())
		if res.IsQuestion {
			cands = append(cands, candidate{post: p, intent: res.Intent})
		}
	}
	if c.QuestionSeeking() {
		slices.SortStableFunc(cands, func(a, b candidate) int { return cmp.Compare(b.intent, a.intent) })
	}

	seen := map[string]bool{}
	var out []profile.RawProfile
	for _, cand := range cands {
		if len(out) >= maxResults {
			break
		}
		if seen[cand.post.author] {
			continue
		}
		seen[cand.post.author] = true

		u := publicBase + "/user/" + cand.post.author
		p, err := c.ExtractProfile(ctx, u)
		if err != nil {
			c.SkipItem(ctx, u, err)
			continue
		}
		if c.QuestionSeeking() {
			c.AttachQuestion(&p, cand.post.text(), source, cand.post.created.Format(time.RFC3339))
		}
		out = append(out, p)
	}
	c.Logger().InfoContext(ctx, "reddit search complete", "posts", len(posts), "profiles", len(out))
	return out, nil
}

func (c *Client) searchSubreddit(ctx context.Context, sub, query string) ([]post, error) {
	res, err := c.FetchJSON(ctx, c.request("/r/"+sub+"/search.json", url.Values{
		"q":           {query},
		"restrict_sr": {"1"},
		"sort":        {"new"},
		"limit":       {fmt.Sprint(perSub)},
	}))
	if err != nil {
		return nil, err
	}
	var out []post
	for _, child := range res.Get("data.children.#.data").Array() {
		out = append(out, parsePost(child))
	}
	return out, nil
}

func parsePost(d gjson.Result) post {
	return post{
		author:  d.Get("author").String(),
		title:   d.Get("title").String(),
		body:    d.Get("selftext").String(),
		created: time.Unix(d.Get("created_utc").Int(), 0).UTC(),
	}
}

// ExtractProfile fetches a user's about page and latest submission.
func (c *Client) ExtractProfile(ctx context.Context, profileURL string) (profile.RawProfile, error) {
	p := c.EmptyProfile()
	p.ProfileURL = profileURL

	user := extractUsername(profileURL)
	if user == "" {
		return p, fmt.Errorf("could not extract username from: %s", profileURL)
	}
	p.Username = user
	p.ProfileURL = publicBase + "/user/" + user

	about, err := c.FetchJSON(ctx, c.request("/user/"+user+"/about.json", nil))
	if err != nil {
		return p, fmt.Errorf("fetch about: %w", err)
	}
	if !about.Get("data.name").Exists() {
		return p, profile.ErrProfileNotFound
	}
	d := about.Get("data")
	p.Name = cmp.Or(d.Get("subreddit.title").String(), d.Get("name").String())
	p.Bio = d.Get("subreddit.public_description").String()
	p.Followers = int(d.Get("subreddit.subscribers").Int())

	// The latest submission is best-effort.
	sub, err := c.FetchJSON(ctx, c.request("/user/"+user+"/submitted.json", url.Values{"limit": {"1"}, "sort": {"new"}}))
	if err != nil {
		c.Logger().DebugContext(ctx, "no submissions", "user", user, "error", err)
		return p, nil
	}
	if latest := sub.Get("data.children.0.data"); latest.Exists() {
		lp := parsePost(latest)
		p.LastContentSample = adapter.Sample(lp.text())
		p.LastContentDate = lp.created.Format(time.RFC3339)
	}
	return p, nil
}

func (c *Client) request(path string, q url.Values) adapter.Request {
	if q == nil {
		q = url.Values{}
	}
	q.Set("raw_json", "1")
	return adapter.Request{
		URL:     c.api + path,
		Query:   q,
		Headers: map[string]string{"User-Agent": userAgent},
		Client:  c.http,
	}
}

func extractUsername(u string) string {
	if m := usernameRE.FindStringSubmatch(u); len(m) > 1 {
		return m[1]
	}
	return ""
}
