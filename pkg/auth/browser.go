package auth

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // register every browser cookie store
	"github.com/browserutils/kooky/browser/firefox"

	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

// BrowserSource reads session cookies from locally installed browsers.
type BrowserSource struct {
	logger *slog.Logger
	home   string
}

// NewBrowserSource creates a new browser cookie source.
func NewBrowserSource(logger *slog.Logger) *BrowserSource {
	if logger == nil {
		logger = slog.Default()
	}
	home, _ := os.UserHomeDir() //nolint:errcheck // empty home only skips the profile scan
	return &BrowserSource{logger: logger, home: home}
}

// Cookies returns the essential session cookies for platform, trying Firefox profiles
// first and then every store kooky can find.
func (s *BrowserSource) Cookies(ctx context.Context, platform profile.Platform) (map[string]string, error) {
	domain := Domain(platform)
	if domain == "" {
		return nil, nil //nolint:nilnil // no cookies for this platform is not an error
	}
	s.logger.DebugContext(ctx, "reading browser cookies", "platform", platform, "domain", domain)

	for _, f := range s.firefoxProfiles() {
		ks, err := firefox.ReadCookies(ctx, f, kooky.Valid, kooky.DomainHasSuffix(domain))
		if err != nil {
			s.logger.DebugContext(ctx, "failed to read firefox cookies", "profile", filepath.Base(filepath.Dir(f)), "error", err)
			continue
		}
		if c := filterEssential(ctx, s.logger, ks, platform); len(c) > 0 {
			return c, nil
		}
	}

	ks, err := kooky.ReadCookies(ctx, kooky.Valid, kooky.DomainHasSuffix(domain))
	if err != nil {
		s.logger.DebugContext(ctx, "failed to read browser cookies", "platform", platform, "error", err)
		return nil, nil //nolint:nilnil // failed browser read is not a fatal error
	}
	if c := filterEssential(ctx, s.logger, ks, platform); len(c) > 0 {
		return c, nil
	}
	return nil, nil //nolint:nilnil // no browser cookies is not an error
}

// firefoxProfiles lists cookie databases of Firefox profiles, which kooky's automatic
// discovery misses on some installs.
func (s *BrowserSource) firefoxProfiles() []string {
	if s.home == "" {
		return nil
	}
	var dir string
	switch runtime.GOOS {
	case "darwin":
		dir = filepath.Join(s.home, "Library", "Application Support", "Firefox", "Profiles")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "Mozilla", "Firefox", "Profiles")
	default:
		dir = filepath.Join(s.home, ".mozilla", "firefox")
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*", "cookies.sqlite"))
	if err != nil {
		return nil
	}
	return matches
}

// filterEssential keeps only the session cookies listed for platform.
func filterEssential(ctx context.Context, logger *slog.Logger, ks []*kooky.Cookie, platform profile.Platform) map[string]string {
	if len(ks) == 0 {
		return nil
	}
	want := essentialCookies[platform]
	out := make(map[string]string)
	for _, c := range ks {
		for _, name := range want {
			if c.Name == name {
				out[c.Name] = c.Value
			}
		}
	}
	var missing []string
	for _, name := range want {
		if _, ok := out[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		logger.InfoContext(ctx, "browser cookies missing", "platform", platform, "keys", missing)
	}
	return out
}
