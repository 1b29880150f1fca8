package auth

import (
	"context"
	"os"
	"slices"

	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

// envCookies maps each platform's environment variables to cookie names.
var envCookies = map[profile.Platform]map[string]string{
	profile.LinkedIn: {
		"LINKEDIN_LI_AT":      "li_at",
		"LINKEDIN_JSESSIONID": "JSESSIONID",
		"LINKEDIN_LIDC":       "lidc",
		"LINKEDIN_BCOOKIE":    "bcookie",
	},
	profile.X: {
		"TWITTER_AUTH_TOKEN": "auth_token",
		"TWITTER_CT0":        "ct0",
		"TWITTER_TWID":       "twid",
		"TWITTER_KDT":        "kdt",
		"TWITTER_ATT":        "att",
	},
}

// EnvSource reads cookies from environment variables.
type EnvSource struct{}

// Cookies returns cookies for the given platform from environment variables.
func (EnvSource) Cookies(_ context.Context, platform profile.Platform) (map[string]string, error) {
	vars, ok := envCookies[platform]
	if !ok {
		return nil, nil //nolint:nilnil // no cookies for this platform is not an error
	}
	cookies := make(map[string]string)
	for env, name := range vars {
		if v := os.Getenv(env); v != "" {
			cookies[name] = v
		}
	}
	if len(cookies) == 0 {
		return nil, nil //nolint:nilnil // no env vars set is not an error
	}
	return cookies, nil
}

// EnvVarsForPlatform returns the sorted environment variable names for a platform.
func EnvVarsForPlatform(platform profile.Platform) []string {
	vars := make([]string, 0, len(envCookies[platform]))
	for env := range envCookies[platform] {
		vars = append(vars, env)
	}
	slices.Sort(vars)
	return vars
}
