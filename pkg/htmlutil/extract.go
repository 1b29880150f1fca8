// Package htmlutil extracts text and metadata from HTML pages without a DOM parser.
package htmlutil

import (
	"html"
	"regexp"
	"strings"
	"sync"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	scriptPattern     = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	multiSpacePattern = regexp.MustCompile(`\s+`)
	titlePattern      = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)
	firstH1Pattern    = regexp.MustCompile(`(?i)<h1[^>]*>([^<]+)</h1>`)
)

// StripTags removes script blocks and HTML tags, decodes entities and collapses whitespace.
func StripTags(htmlContent string) string {
	if htmlContent == "" {
		return ""
	}
	content := scriptPattern.ReplaceAllString(htmlContent, " ")
	content = tagPattern.ReplaceAllString(content, " ")
	content = strings.ReplaceAll(html.UnescapeString(content), "\u00a0", " ")
	content = multiSpacePattern.ReplaceAllString(content, " ")
	return strings.TrimSpace(content)
}

// Title returns the page title, falling back to og:title and the first h1.
func Title(htmlContent string) string {
	if m := titlePattern.FindStringSubmatch(htmlContent); len(m) > 1 {
		return clean(m[1])
	}
	if t := Meta(htmlContent, "og:title"); t != "" {
		return t
	}
	if m := firstH1Pattern.FindStringSubmatch(htmlContent); len(m) > 1 {
		return clean(m[1])
	}
	return ""
}

// Description returns the meta description, falling back to og:description.
func Description(htmlContent string) string {
	if d := Meta(htmlContent, "description"); d != "" {
		return d
	}
	return Meta(htmlContent, "og:description")
}

var metaPatterns sync.Map // name -> [2]*regexp.Regexp

// Meta returns the content of a meta tag matched by name or property, in either
// attribute order.
func Meta(htmlContent, name string) string {
	for _, p := range metaPattern(name) {
		if m := p.FindStringSubmatch(htmlContent); len(m) > 1 {
			return clean(m[1])
		}
	}
	return ""
}

func metaPattern(name string) [2]*regexp.Regexp {
	if v, ok := metaPatterns.Load(name); ok {
		if ps, ok := v.([2]*regexp.Regexp); ok {
			return ps
		}
	}
	q := regexp.QuoteMeta(name)
	ps := [2]*regexp.Regexp{
		regexp.MustCompile(`(?i)<meta[^>]+(?:name|property)=["']` + q + `["'][^>]+content=["']([^"']*)["']`),
		regexp.MustCompile(`(?i)<meta[^>]+content=["']([^"']*)["'][^>]+(?:name|property)=["']` + q + `["']`),
	}
	metaPatterns.Store(name, ps)
	return ps
}

// IsNotFound detects common "not found" pages served with a 200 status.
func IsNotFound(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range []string{
		"404 not found",
		"page not found",
		"error 404",
		"profile not found",
		"user not found",
		"this account has been suspended",
		"this account doesn't exist",
		"this page doesn't exist",
	} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}
