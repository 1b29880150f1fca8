// Package config assembles run configuration from defaults, an optional YAML file, an
// optional JSON input document, environment variables and command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/codeGROOVE-dev/prospector/pkg/adapter"
	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

// EnvPrefix prefixes every environment variable that maps onto a config key.
const EnvPrefix = "PROSPECTOR"

// Config keys.
const (
	KeyKeywords       = "keywords"
	KeyPlatforms      = "platforms"
	KeyCountry        = "country"
	KeyMaxResults     = "max_results"
	KeyMinScore       = "min_score"
	KeyAllowInvestors = "allow_low_score_investors"
	KeyQuestionMode   = "question_mode"
	KeyRulesFile      = "rules_file"
	KeyCacheDir       = "cache_dir"
	KeyCacheTTL       = "cache_ttl"
	KeyNoCache        = "no_cache"
	KeyOutput         = "output"
	KeyOutputFormat   = "output_format"
	KeyDatabaseURL    = "database_url"
	KeySQLitePath     = "sqlite_path"
	KeyBrowserCookies = "browser_cookies"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
)

// Defaults.
const (
	DefaultCountry    = "United Kingdom"
	DefaultMaxResults = 300
	DefaultMinScore   = 50
	DefaultCacheTTL   = 24 * time.Hour
)

// DefaultPlatforms is used when no platforms are configured.
var DefaultPlatforms = []string{"linkedin", "x", "youtube"}

// credentialEnv binds each credential key to the environment variables that carry it.
var credentialEnv = map[string][]string{
	"credentials.twitter_bearer_token": {"TWITTER_BEARER_TOKEN"},
	"credentials.youtube_api_key":      {"YOUTUBE_API_KEY"},
	"credentials.search_api_key":       {"SEARCH_API_KEY", "GOOGLE_API_KEY"},
	"credentials.search_engine_id":     {"SEARCH_ENGINE_ID", "GOOGLE_CSE_ID"},
	"credentials.reddit_client_id":     {"REDDIT_CLIENT_ID"},
	"credentials.reddit_client_secret": {"REDDIT_CLIENT_SECRET"},
	KeyDatabaseURL:                     {"DATABASE_URL"},
	KeySQLitePath:                      {"SQLITE_PATH"},
}

// Config is the resolved configuration of one run.
//
//nolint:govet // fieldalignment: grouped by concern
type Config struct {
	Keywords               []string
	Platforms              []profile.Platform
	Country                string
	MaxResults             int
	MinOverallScore        int
	AllowLowScoreInvestors bool
	QuestionMode           bool

	RulesFile string
	CacheDir  string
	CacheTTL  time.Duration
	NoCache   bool

	Output       string
	OutputFormat string
	DatabaseURL  string
	SQLitePath   string

	BrowserCookies bool
	LogLevel       string
	LogFormat      string

	Credentials adapter.Credentials
}

// LoadDotEnv loads .env style files into the process environment. Missing files are
// skipped and variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// NewViper returns a viper instance with defaults and environment bindings registered.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyPlatforms, DefaultPlatforms)
	v.SetDefault(KeyCountry, DefaultCountry)
	v.SetDefault(KeyMaxResults, DefaultMaxResults)
	v.SetDefault(KeyMinScore, DefaultMinScore)
	v.SetDefault(KeyAllowInvestors, true)
	v.SetDefault(KeyQuestionMode, true)
	v.SetDefault(KeyCacheTTL, DefaultCacheTTL)
	v.SetDefault(KeyOutputFormat, "json")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, envs := range credentialEnv {
		_ = v.BindEnv(append([]string{key}, envs...)...) //nolint:errcheck // only fails without a key
	}
	return v
}

// Load resolves and validates the configuration held by v.
func Load(v *viper.Viper, configFile, inputFile string) (*Config, error) {
	cfg, err := Resolve(v, configFile, inputFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve reads the layers held by v without validating run parameters. configFile,
// when set, is read as YAML. inputFile, when set, is a JSON run document whose fields
// override the config file.
func Resolve(v *viper.Viper, configFile, inputFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	if inputFile != "" {
		in, err := readInput(inputFile)
		if err != nil {
			return nil, err
		}
		if err := v.MergeConfigMap(in); err != nil {
			return nil, fmt.Errorf("merge input %s: %w", inputFile, err)
		}
	}

	cfg := &Config{
		Keywords:               stringList(v.Get(KeyKeywords)),
		Country:                strings.TrimSpace(v.GetString(KeyCountry)),
		MaxResults:             v.GetInt(KeyMaxResults),
		MinOverallScore:        v.GetInt(KeyMinScore),
		AllowLowScoreInvestors: v.GetBool(KeyAllowInvestors),
		QuestionMode:           v.GetBool(KeyQuestionMode),
		RulesFile:              v.GetString(KeyRulesFile),
		CacheDir:               v.GetString(KeyCacheDir),
		CacheTTL:               v.GetDuration(KeyCacheTTL),
		NoCache:                v.GetBool(KeyNoCache),
		Output:                 v.GetString(KeyOutput),
		OutputFormat:           v.GetString(KeyOutputFormat),
		DatabaseURL:            v.GetString(KeyDatabaseURL),
		SQLitePath:             v.GetString(KeySQLitePath),
		BrowserCookies:         v.GetBool(KeyBrowserCookies),
		LogLevel:               v.GetString(KeyLogLevel),
		LogFormat:              v.GetString(KeyLogFormat),
		Credentials: adapter.Credentials{
			TwitterBearerToken: v.GetString("credentials.twitter_bearer_token"),
			YouTubeAPIKey:      v.GetString("credentials.youtube_api_key"),
			SearchAPIKey:       v.GetString("credentials.search_api_key"),
			SearchEngineID:     v.GetString("credentials.search_engine_id"),
			RedditClientID:     v.GetString("credentials.reddit_client_id"),
			RedditClientSecret: v.GetString("credentials.reddit_client_secret"),
		},
	}
	for _, name := range stringList(v.Get(KeyPlatforms)) {
		p, err := profile.ParsePlatform(name)
		if err != nil {
			return nil, &profile.ConfigError{Field: KeyPlatforms, Reason: err.Error()}
		}
		cfg.Platforms = append(cfg.Platforms, p)
	}
	return cfg, nil
}

// Validate checks the run parameters.
func (c *Config) Validate() error {
	if len(c.Keywords) == 0 {
		return &profile.ConfigError{Field: KeyKeywords, Reason: "at least one keyword is required"}
	}
	if len(c.Platforms) == 0 {
		return &profile.ConfigError{Field: KeyPlatforms, Reason: "at least one platform is required"}
	}
	for _, p := range c.Platforms {
		if _, err := profile.ParsePlatform(string(p)); err != nil {
			return &profile.ConfigError{Field: KeyPlatforms, Reason: err.Error()}
		}
	}
	if c.MinOverallScore < 0 || c.MinOverallScore > 100 {
		return &profile.ConfigError{Field: KeyMinScore, Reason: fmt.Sprintf("%d is outside 0..100", c.MinOverallScore)}
	}
	if c.MaxResults < 1 {
		return &profile.ConfigError{Field: KeyMaxResults, Reason: fmt.Sprintf("%d is below 1", c.MaxResults)}
	}
	switch c.OutputFormat {
	case "", "json", "jsonl":
	default:
		return &profile.ConfigError{Field: KeyOutputFormat, Reason: fmt.Sprintf("unknown format %q", c.OutputFormat)}
	}
	return nil
}

// input mirrors the JSON run document.
type input struct {
	Keywords               []string `json:"keywords"`
	IncludePlatforms       []string `json:"includePlatforms"`
	CountryFilter          *string  `json:"countryFilter"`
	MaxResults             *int     `json:"maxResults"`
	MinOverallScore        *int     `json:"minOverallScore"`
	AllowLowScoreInvestors *bool    `json:"allowLowScoreInvestors"`
	QuestionMode           *bool    `json:"questionMode"`
}

func readInput(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	var in input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, &profile.ConfigError{Field: "input", Reason: fmt.Sprintf("%s: %v", path, err)}
	}
	out := map[string]any{}
	if len(in.Keywords) > 0 {
		out[KeyKeywords] = in.Keywords
	}
	if len(in.IncludePlatforms) > 0 {
		out[KeyPlatforms] = in.IncludePlatforms
	}
	if in.CountryFilter != nil {
		out[KeyCountry] = *in.CountryFilter
	}
	if in.MaxResults != nil {
		out[KeyMaxResults] = *in.MaxResults
	}
	if in.MinOverallScore != nil {
		out[KeyMinScore] = *in.MinOverallScore
	}
	if in.AllowLowScoreInvestors != nil {
		out[KeyAllowInvestors] = *in.AllowLowScoreInvestors
	}
	if in.QuestionMode != nil {
		out[KeyQuestionMode] = *in.QuestionMode
	}
	return out, nil
}

// stringList accepts a comma-separated string or a list from any config layer.
func stringList(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		return List([]string{v})
	case []string:
		return List(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			out = append(out, fmt.Sprint(x))
		}
		return List(out)
	default:
		return List([]string{fmt.Sprint(v)})
	}
}

// List splits comma-separated entries, trims them and drops empties.
func List(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
