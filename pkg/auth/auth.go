// Package auth supplies session cookies for platforms whose pages are only useful when
// signed in.
package auth

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

// Source represents a source of authentication cookies.
type Source interface {
	// Cookies returns cookies for the given platform, or nil if unavailable.
	Cookies(ctx context.Context, platform profile.Platform) (map[string]string, error)
}

// cookieDomains maps platforms to the domain their session cookies are set on.
var cookieDomains = map[profile.Platform]string{
	profile.LinkedIn: "linkedin.com",
	profile.X:        "x.com",
}

// essentialCookies lists the cookies that make up a usable session.
var essentialCookies = map[profile.Platform][]string{
	profile.LinkedIn: {"li_at", "JSESSIONID", "lidc", "bcookie"},
	profile.X:        {"auth_token", "ct0", "kdt", "twid", "att"},
}

// Domain returns the cookie domain for a platform, or "" if it does not use cookies.
func Domain(platform profile.Platform) string {
	return cookieDomains[platform]
}

// ChainSources returns cookies from the first source that provides them.
func ChainSources(ctx context.Context, platform profile.Platform, sources ...Source) (map[string]string, error) {
	for _, src := range sources {
		if src == nil {
			continue
		}
		cookies, err := src.Cookies(ctx, platform)
		if err != nil {
			return nil, err
		}
		if len(cookies) > 0 {
			return cookies, nil
		}
	}
	return nil, nil //nolint:nilnil // no source had cookies, but this is not an error
}

// NewCookieJar creates an http.CookieJar populated with the given cookies for a domain.
func NewCookieJar(domain string, cookies map[string]string) (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse("https://" + domain)
	if err != nil {
		return nil, err
	}
	var hc []*http.Cookie
	for name, value := range cookies {
		if value == "" {
			continue
		}
		hc = append(hc, &http.Cookie{Name: name, Value: value, Domain: "." + domain, Path: "/"})
	}
	jar.SetCookies(u, hc)
	return jar, nil
}

// Jar resolves cookies for platform through sources and returns a jar holding them.
// It returns profile.ErrNoCredentials when no source has cookies.
func Jar(ctx context.Context, platform profile.Platform, sources ...Source) (http.CookieJar, error) {
	domain := Domain(platform)
	if domain == "" {
		return nil, fmt.Errorf("%s: %w", platform, profile.ErrNoCredentials)
	}
	cookies, err := ChainSources(ctx, platform, sources...)
	if err != nil {
		return nil, err
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("%s: %w", platform, profile.ErrNoCredentials)
	}
	return NewCookieJar(domain, cookies)
}

// StaticSource provides cookies from a fixed map, for every platform.
type StaticSource struct {
	cookies map[string]string
}

// NewStaticSource creates a cookie source from a static map.
func NewStaticSource(cookies map[string]string) *StaticSource {
	return &StaticSource{cookies: cookies}
}

// Cookies returns a copy of the static cookies.
func (s *StaticSource) Cookies(_ context.Context, _ profile.Platform) (map[string]string, error) {
	if len(s.cookies) == 0 {
		return nil, nil //nolint:nilnil // empty static source is not an error
	}
	return maps.Clone(s.cookies), nil
}
