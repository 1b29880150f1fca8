package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/codeGROOVE-dev/prospector/pkg/httpcache"
)

// Request describes one GET.
type Request struct {
	URL     string
	Query   url.Values
	Headers map[string]string
	// Client overrides the adapter's HTTP client, for example one carrying a cookie jar
	// or an OAuth transport.
	Client *http.Client
	// Validate rejects bodies that must not be cached, such as login walls.
	Validate httpcache.ResponseValidator
}

// Fetch paces, then GETs r through the shared cache.
func (b *Base) Fetch(ctx context.Context, r Request) ([]byte, error) {
	if err := b.Wait(ctx); err != nil {
		return nil, err
	}
	u := r.URL
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	client := r.Client
	if client == nil {
		client = b.cfg.HTTPClient
	}

	var opts []httpcache.FetchOption
	if r.Validate != nil {
		opts = append(opts, httpcache.WithValidator(r.Validate))
	}
	if o := b.cfg.Retry; o != nil {
		p := httpcache.DefaultPolicy()
		p.MaxAttempts, p.Initial, p.Max = o.MaxAttempts, o.Initial, o.Max
		opts = append(opts, httpcache.WithRetryPolicy(p))
	}
	b.logger.DebugContext(ctx, "fetching", "url", httpcache.RedactURL(req.URL))
	return httpcache.FetchURL(ctx, b.cfg.Cache, client, req, b.logger, opts...)
}

// FetchJSON fetches r and parses the body as JSON. An invalid body is an error.
func (b *Base) FetchJSON(ctx context.Context, r Request) (gjson.Result, error) {
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	if _, ok := r.Headers["Accept"]; !ok {
		r.Headers["Accept"] = "application/json"
	}
	body, err := b.Fetch(ctx, r)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("invalid JSON from %s", r.URL)
	}
	return gjson.ParseBytes(body), nil
}
