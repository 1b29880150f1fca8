package profile

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by adapter packages.
var (
	ErrAuthRequired    = errors.New("authentication required")
	ErrNoCredentials   = errors.New("no credentials configured")
	ErrProfileNotFound = errors.New("profile not found")
	ErrRateLimited     = errors.New("rate limited")
)

// ConfigError reports invalid run input. It aborts a run before any search.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// UnsupportedPlatformError is returned for a platform name outside the supported set.
type UnsupportedPlatformError struct {
	Name string
}

func (e *UnsupportedPlatformError) Error() string {
	names := make([]string, 0, len(Platforms()))
	for _, p := range Platforms() {
		names = append(names, string(p))
	}
	return fmt.Sprintf("unsupported platform %q (supported: %s)", e.Name, strings.Join(names, ", "))
}

// AdapterLoadError wraps a failure to construct the adapter for a platform.
type AdapterLoadError struct {
	Platform Platform
	Err      error
}

func (e *AdapterLoadError) Error() string {
	return fmt.Sprintf("load adapter for %s: %v", e.Platform, e.Err)
}

func (e *AdapterLoadError) Unwrap() error { return e.Err }

// ExtractionError reports a failed single-profile extraction. Callers log and skip it.
type ExtractionError struct {
	Platform Platform
	URL      string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s profile %s: %v", e.Platform, e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
