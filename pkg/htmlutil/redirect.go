package htmlutil

import (
	"regexp"
	"strings"
)

var (
	metaRefreshPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<meta[^>]+http-equiv\s*=\s*["']?refresh["']?[^>]+content\s*=\s*["']?\d+\s*;\s*url\s*=\s*["']?([^"'>\s]+)`),
		regexp.MustCompile(`(?i)<meta[^>]+content\s*=\s*["']?\d+\s*;\s*url\s*=\s*["']?([^"'>\s]+)[^>]+http-equiv\s*=\s*["']?refresh["']?`),
	}
	jsRedirectPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:window|document)\.location(?:\.href)?\s*=\s*["']([^"']+)["']`),
		regexp.MustCompile(`(?i)(?:^|[^\w.])location(?:\.href)?\s*=\s*["']([^"']+)["']`),
		regexp.MustCompile(`(?i)location\.(?:replace|assign)\s*\(\s*["']([^"']+)["']\s*\)`),
	}
)

// RedirectURL returns the target of a meta refresh or JavaScript redirect in an HTML
// page, or "" when the page does not redirect.
func RedirectURL(htmlContent string) string {
	for _, p := range metaRefreshPatterns {
		if m := p.FindStringSubmatch(htmlContent); len(m) > 1 {
			return strings.Trim(strings.TrimSpace(m[1]), `"'>`)
		}
	}
	for _, p := range jsRedirectPatterns {
		m := p.FindStringSubmatch(htmlContent)
		if len(m) < 2 {
			continue
		}
		u := strings.TrimSpace(m[1])
		if u != "" && !strings.HasPrefix(u, "#") && u != "." && u != "./" {
			return u
		}
	}
	return ""
}
