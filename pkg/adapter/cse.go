package adapter

import (
	"context"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

// CustomSearchURL is the Google Programmable Search JSON endpoint.
const CustomSearchURL = "https://www.googleapis.com/customsearch/v1"

// GoogleAPIKeyHeader carries Google API keys so they stay out of URLs.
const GoogleAPIKeyHeader = "X-Goog-Api-Key"

// cseMaxPerPage is the most results the endpoint returns per request.
const cseMaxPerPage = 10

// SearchItem is one web search result.
type SearchItem struct {
	Title   string
	Link    string
	Snippet string
	// Meta holds the first metatags entry of the result's pagemap.
	Meta map[string]string
}

// HasSearchCredentials reports whether a search API key and engine id are configured.
func (b *Base) HasSearchCredentials() bool {
	c := b.cfg.Credentials
	return c.SearchAPIKey != "" && c.SearchEngineID != ""
}

// WebSearch runs query against the custom search endpoint, paging until limit results or
// the end of the result set. country narrows results by geolocation when known.
func (b *Base) WebSearch(ctx context.Context, query, country string, limit int) ([]SearchItem, error) {
	if !b.HasSearchCredentials() {
		return nil, profile.ErrNoCredentials
	}
	var out []SearchItem
	for start := 1; len(out) < limit; start += cseMaxPerPage {
		q := url.Values{
			"cx":    {b.cfg.Credentials.SearchEngineID},
			"q":     {query},
			"num":   {strconv.Itoa(min(cseMaxPerPage, limit-len(out)))},
			"start": {strconv.Itoa(start)},
		}
		if code := b.geo.Code(country); code != "" {
			q.Set("gl", code)
		}
		res, err := b.FetchJSON(ctx, Request{
			URL:     CustomSearchURL,
			Query:   q,
			Headers: map[string]string{GoogleAPIKeyHeader: b.cfg.Credentials.SearchAPIKey},
		})
		if err != nil {
			if len(out) > 0 {
				b.logger.WarnContext(ctx, "web search paging stopped", "error", err, "results", len(out))
				return out, nil
			}
			return nil, err
		}
		items := res.Get("items").Array()
		for _, it := range items {
			meta := map[string]string{}
			it.Get("pagemap.metatags.0").ForEach(func(k, v gjson.Result) bool {
				meta[k.String()] = v.String()
				return true
			})
			out = append(out, SearchItem{
				Title:   it.Get("title").String(),
				Link:    it.Get("link").String(),
				Snippet: it.Get("snippet").String(),
				Meta:    meta,
			})
		}
		if len(items) < cseMaxPerPage || !res.Get("queries.nextPage").Exists() {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
