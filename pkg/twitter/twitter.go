// Package twitter searches X (Twitter) through the v2 API.
package twitter

import (
	"cmp"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/codeGROOVE-dev/prospector/pkg/adapter"
	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

const (
	apiBase  = "https://api.twitter.com/2"
	source   = "x_question"
	minDelay = time.Second

	// The recent-search endpoint accepts 10 to 100 results per page.
	minPage = 10
	maxPage = 100

	userFields  = "name,username,description,location,public_metrics,created_at"
	tweetFields = "created_at,author_id,text"
)

var handleRE = regexp.MustCompile(`(?:twitter|x)\.com/([A-Za-z0-9_]{1,15})(?:[/?#]|$)`)

// reserved are path segments that are not user handles.
var reserved = map[string]bool{
	"home": true, "search": true, "explore": true, "i": true, "intent": true,
	"settings": true, "hashtag": true, "share": true, "messages": true, "notifications": true,
}

// Client is the X adapter.
type Client struct {
	*adapter.Base

	api string
}

// New creates an X adapter.
func New(_ context.Context, opts ...adapter.Option) (*Client, error) {
	cfg := adapter.NewConfig(opts...)
	return &Client{Base: adapter.NewBase(profile.X, minDelay, cfg), api: apiBase}, nil
}

// ValidateURL reports whether u is an X or Twitter URL.
func (*Client) ValidateURL(u string) bool {
	return strings.Contains(u, "twitter.com/") || strings.Contains(u, "x.com/")
}

func (c *Client) token() string { return c.Config().Credentials.TwitterBearerToken }

// Search finds recent tweets matching any keyword and returns their authors.
// Without a bearer token it logs and returns no results.
func (c *Client) Search(ctx context.Context, keywords []string, country string, maxResults int) ([]profile.RawProfile, error) {
	if c.token() == "" {
		c.MissingCredentials(ctx, "x bearer token")
		return nil, nil
	}
	query := buildQuery(keywords, c.QuestionSeeking())
	c.Logger().InfoContext(ctx, "searching x", "query", query, "country", country)

	// Question mode discards most tweets, so ask for more.
	page := maxResults
	if c.QuestionSeeking() {
		page *= 3
	}
	res, err := c.FetchJSON(ctx, c.request("/tweets/search/recent", url.Values{
		"query":        {query},
		"max_results":  {strconv.Itoa(min(max(page, minPage), maxPage))},
		"expansions":   {"author_id"},
		"user.fields":  {userFields},
		"tweet.fields": {tweetFields},
	}))
	if err != nil {
		return nil, fmt.Errorf("x search: %w", err)
	}

	users := map[string]gjson.Result{}
	for _, u := range res.Get("includes.users").Array() {
		users[u.Get("id").String()] = u
	}

	seen := map[string]bool{}
	var out []profile.RawProfile
	for _, tw := range res.Get("data").Array() {
		if len(out) >= maxResults {
			break
		}
		author := tw.Get("author_id").String()
		u, ok := users[author]
		if !ok || seen[author] {
			continue
		}
		text := tw.Get("text").String()
		if c.QuestionSeeking() && !c.Intent().Detector().IsQuestion(text) {
			continue
		}
		seen[author] = true

		p := c.fromUser(u)
		p.LastContentSample = adapter.Sample(text)
		p.LastContentDate = tw.Get("created_at").String()
		if c.QuestionSeeking() {
			c.AttachQuestion(&p, text, source, p.LastContentDate)
		}
		out = append(out, p)
	}
	c.Logger().InfoContext(ctx, "x search complete", "tweets", len(res.Get("data").Array()), "profiles", len(out))
	return out, nil
}

// ExtractProfile looks up a user by handle.
func (c *Client) ExtractProfile(ctx context.Context, profileURL string) (profile.RawProfile, error) {
	if c.token() == "" {
		return c.EmptyProfile(), profile.ErrNoCredentials
	}
	handle := extractHandle(profileURL)
	if handle == "" {
		return c.EmptyProfile(), fmt.Errorf("could not extract handle from: %s", profileURL)
	}
	res, err := c.FetchJSON(ctx, c.request("/users/by/username/"+handle, url.Values{"user.fields": {userFields}}))
	if err != nil {
		return c.EmptyProfile(), err
	}
	if !res.Get("data.id").Exists() {
		return c.EmptyProfile(), profile.ErrProfileNotFound
	}
	return c.fromUser(res.Get("data")), nil
}

func (c *Client) fromUser(u gjson.Result) profile.RawProfile {
	p := c.EmptyProfile()
	p.Username = u.Get("username").String()
	p.Name = cmp.Or(u.Get("name").String(), p.Username)
	p.ProfileURL = "https://x.com/" + p.Username
	p.Bio = u.Get("description").String()
	p.Location = u.Get("location").String()
	p.Followers = int(u.Get("public_metrics.followers_count").Int())
	return p
}

func (c *Client) request(path string, q url.Values) adapter.Request {
	return adapter.Request{
		URL:     c.api + path,
		Query:   q,
		Headers: map[string]string{"Authorization": "Bearer " + c.token()},
	}
}

// buildQuery ORs the keywords and drops retweets. Question mode also requires a "?" or
// a help-seeking phrase.
func buildQuery(keywords []string, questions bool) string {
	terms := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if strings.Contains(k, " ") {
			k = strconv.Quote(k)
		}
		terms = append(terms, k)
	}
	q := "(" + strings.Join(terms, " OR ") + ") -is:retweet lang:en"
	if questions {
		q += ` ("?" OR "can anyone" OR "recommend" OR "need help")`
	}
	return q
}

func extractHandle(u string) string {
	m := handleRE.FindStringSubmatch(u)
	if len(m) < 2 || reserved[strings.ToLower(m[1])] {
		return ""
	}
	return m[1]
}
