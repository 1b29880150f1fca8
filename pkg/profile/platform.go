// Platform identifiers.

package profile

import "strings"

// Platform identifies a supported source platform.
type Platform string

// Supported platforms.
const (
	LinkedIn Platform = "linkedin"
	X        Platform = "x"
	YouTube  Platform = "youtube"
	Reddit   Platform = "reddit"
	Medium   Platform = "medium"
	Quora    Platform = "quora"
	Web      Platform = "web"
)

// Platforms lists every supported platform in a fixed order.
func Platforms() []Platform {
	return []Platform{LinkedIn, X, YouTube, Reddit, Medium, Quora, Web}
}

// ParsePlatform resolves a case-insensitive platform name.
// "twitter" is accepted as an alias for X.
func ParsePlatform(name string) (Platform, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "twitter" {
		n = string(X)
	}
	for _, p := range Platforms() {
		if string(p) == n {
			return p, nil
		}
	}
	return "", &UnsupportedPlatformError{Name: name}
}

func (p Platform) String() string { return string(p) }
