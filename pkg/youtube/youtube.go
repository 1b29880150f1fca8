// Package youtube finds channels through the YouTube Data API.
package youtube

import (
	"cmp"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/codeGROOVE-dev/prospector/pkg/adapter"
	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

const (
	apiBase = "https://www.googleapis.com/youtube/v3"
	source  = "youtube_question"
	maxPage = 50

	minDelay = time.Second
)

var channelRE = regexp.MustCompile(`youtube\.com/(channel/|@|c/|user/)([^/?#]+)`)

// Client is the YouTube adapter.
type Client struct {
	*adapter.Base

	api string
}

// New creates a YouTube adapter.
func New(_ context.Context, opts ...adapter.Option) (*Client, error) {
	cfg := adapter.NewConfig(opts...)
	return &Client{Base: adapter.NewBase(profile.YouTube, minDelay, cfg), api: apiBase}, nil
}

// ValidateURL reports whether u points at YouTube.
func (*Client) ValidateURL(u string) bool {
	return strings.Contains(u, "youtube.com/") || strings.Contains(u, "youtu.be/")
}

func (c *Client) key() string { return c.Config().Credentials.YouTubeAPIKey }

// video is a search hit whose title or description reads as a question.
type video struct {
	text      string
	published string
}

// Search finds channels matching keywords. In question mode it searches videos
// instead and returns the channels that posted question-style videos.
func (c *Client) Search(ctx context.Context, keywords []string, country string, maxResults int) ([]profile.RawProfile, error) {
	if c.key() == "" {
		c.MissingCredentials(ctx, "youtube api key")
		return nil, nil
	}
	kind := "channel"
	if c.QuestionSeeking() {
		kind = "video"
	}
	q := url.Values{
		"part":       {"snippet"},
		"type":       {kind},
		"q":          {strings.Join(keywords, " ")},
		"maxResults": {strconv.Itoa(min(max(maxResults, 1)*2, maxPage))},
	}
	if code := c.Gazetteer().Code(country); code != "" {
		q.Set("regionCode", code)
	}
	c.Logger().InfoContext(ctx, "searching youtube", "query", q.Get("q"), "type", kind, "region", q.Get("regionCode"))

	res, err := c.FetchJSON(ctx, c.request("/search", q))
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	var ids []string
	questions := map[string]video{}
	for _, it := range res.Get("items").Array() {
		sn := it.Get("snippet")
		id := sn.Get("channelId").String()
		if id == "" || slices.Contains(ids, id) {
			continue
		}
		if c.QuestionSeeking() {
			text := strings.TrimSpace(sn.Get("title").String() + "\n\n" + sn.Get("description").String())
			if !c.Intent().Detector().IsQuestion(text) {
				continue
			}
			questions[id] = video{text: text, published: sn.Get("publishedAt").String()}
		}
		ids = append(ids, id)
		if len(ids) >= maxResults {
			break
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	out, err := c.channels(ctx, url.Values{"id": {strings.Join(ids, ",")}})
	if err != nil {
		return nil, err
	}
	for i := range out {
		if v, ok := questions[channelID(out[i].ProfileURL)]; ok {
			out[i].LastContentSample = adapter.Sample(v.text)
			out[i].LastContentDate = v.published
			c.AttachQuestion(&out[i], v.text, source, v.published)
		}
	}
	c.Logger().InfoContext(ctx, "youtube search complete", "profiles", len(out))
	return out, nil
}

// ExtractProfile resolves a channel, handle or legacy user URL.
func (c *Client) ExtractProfile(ctx context.Context, profileURL string) (profile.RawProfile, error) {
	if c.key() == "" {
		return c.EmptyProfile(), profile.ErrNoCredentials
	}
	m := channelRE.FindStringSubmatch(profileURL)
	if m == nil {
		return c.EmptyProfile(), fmt.Errorf("not a channel url: %s", profileURL)
	}
	q := url.Values{}
	switch m[1] {
	case "channel/":
		q.Set("id", m[2])
	case "user/":
		q.Set("forUsername", m[2])
	default:
		q.Set("forHandle", "@"+strings.TrimPrefix(m[2], "@"))
	}
	out, err := c.channels(ctx, q)
	if err != nil {
		return c.EmptyProfile(), err
	}
	if len(out) == 0 {
		return c.EmptyProfile(), profile.ErrProfileNotFound
	}
	return out[0], nil
}

func (c *Client) channels(ctx context.Context, q url.Values) ([]profile.RawProfile, error) {
	q.Set("part", "snippet,statistics")
	res, err := c.FetchJSON(ctx, c.request("/channels", q))
	if err != nil {
		return nil, fmt.Errorf("youtube channels: %w", err)
	}
	var out []profile.RawProfile
	for _, ch := range res.Get("items").Array() {
		out = append(out, c.fromChannel(ch))
	}
	return out, nil
}

func (c *Client) fromChannel(ch gjson.Result) profile.RawProfile {
	sn := ch.Get("snippet")
	id := ch.Get("id").String()

	p := c.EmptyProfile()
	p.Name = sn.Get("title").String()
	p.Username = cmp.Or(sn.Get("customUrl").String(), id)
	p.ProfileURL = "https://www.youtube.com/channel/" + id
	p.Bio = sn.Get("description").String()
	p.Headline = adapter.Truncate(firstLine(p.Bio), 120)
	if code := sn.Get("country").String(); code != "" {
		p.Location = cmp.Or(c.Gazetteer().Name(code), code)
	}
	if !ch.Get("statistics.hiddenSubscriberCount").Bool() {
		p.Followers = int(ch.Get("statistics.subscriberCount").Int())
	}
	return p
}

func (c *Client) request(path string, q url.Values) adapter.Request {
	return adapter.Request{URL: c.api + path, Query: q, Headers: map[string]string{adapter.GoogleAPIKeyHeader: c.key()}}
}

func channelID(u string) string {
	if m := channelRE.FindStringSubmatch(u); m != nil && m[1] == "channel/" {
		return m[2]
	}
	return ""
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
