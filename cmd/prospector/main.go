// Command prospector searches social platforms for people matching a set of business
// keywords, scores them as prospects and writes the ranked list to the configured sinks.
//
// Usage:
//
//	prospector --keywords "accountant,self assessment" --platforms reddit,quora
//	prospector --input test-input.json --output results.json
//	prospector extract https://www.reddit.com/user/janedoe
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/codeGROOVE-dev/prospector/pkg/adapter"
	"github.com/codeGROOVE-dev/prospector/pkg/auth"
	"github.com/codeGROOVE-dev/prospector/pkg/config"
	"github.com/codeGROOVE-dev/prospector/pkg/httpcache"
	"github.com/codeGROOVE-dev/prospector/pkg/pipeline"
	"github.com/codeGROOVE-dev/prospector/pkg/profile"
	"github.com/codeGROOVE-dev/prospector/pkg/registry"
	"github.com/codeGROOVE-dev/prospector/pkg/rules"
	"github.com/codeGROOVE-dev/prospector/pkg/sink"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries state shared by the commands.
type app struct {
	v          *viper.Viper
	stdout     io.Writer
	stderr     io.Writer
	configFile string
	inputFile  string
	debug      bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: config.NewViper(), stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "prospector",
		Short:         "Find and rank prospects across social platforms",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.LoadDotEnv()
		},
		RunE: a.run,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "YAML config file (default: prospector.yaml when present)")
	pf.BoolVar(&a.debug, "debug", false, "enable debug logging")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")
	pf.Bool("no-cache", false, "disable HTTP caching")
	pf.Duration("cache-ttl", config.DefaultCacheTTL, "HTTP cache time-to-live")
	pf.String("cache-dir", "", "HTTP cache directory (default: user cache dir)")
	pf.Bool("browser-cookies", false, "read session cookies from local browser stores")
	pf.String("rules", "", "YAML rules file replacing the embedded keyword tables")
	pf.Bool("question-mode", true, "search for people asking questions")

	f := root.Flags()
	f.StringVar(&a.inputFile, "input", "", "JSON run document (keywords, includePlatforms, countryFilter, ...)")
	f.StringSlice("keywords", nil, "business keywords, comma separated")
	f.StringSlice("platforms", config.DefaultPlatforms, "platforms to search: "+platformNames())
	f.String("country", config.DefaultCountry, `country filter, or "all"`)
	f.Int("max-results", config.DefaultMaxResults, "maximum profiles to keep")
	f.Int("min-score", config.DefaultMinScore, "minimum overall score (0-100)")
	f.Bool("allow-low-score-investors", true, "keep investor candidates regardless of score")
	f.StringP("output", "o", "", "dataset file (default: stdout)")
	f.String("output-format", "json", "dataset format: json or jsonl")
	f.String("database-url", "", "Postgres connection string for the profile table")
	f.String("sqlite-path", "", "SQLite database file for the profile table")

	bind(a.v, pf, map[string]string{
		"log-level":       config.KeyLogLevel,
		"log-format":      config.KeyLogFormat,
		"no-cache":        config.KeyNoCache,
		"cache-ttl":       config.KeyCacheTTL,
		"cache-dir":       config.KeyCacheDir,
		"browser-cookies": config.KeyBrowserCookies,
		"rules":           config.KeyRulesFile,
		"question-mode":   config.KeyQuestionMode,
	})
	bind(a.v, f, map[string]string{
		"keywords":                  config.KeyKeywords,
		"platforms":                 config.KeyPlatforms,
		"country":                   config.KeyCountry,
		"max-results":               config.KeyMaxResults,
		"min-score":                 config.KeyMinScore,
		"allow-low-score-investors": config.KeyAllowInvestors,
		"output":                    config.KeyOutput,
		"output-format":             config.KeyOutputFormat,
		"database-url":              config.KeyDatabaseURL,
		"sqlite-path":               config.KeySQLitePath,
	})

	root.AddCommand(a.extractCmd(), a.platformsCmd())
	return root
}

// bind maps flag names onto config keys so flags override every other layer.
func bind(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
}

func platformNames() string {
	names := make([]string, 0, len(profile.Platforms()))
	for _, p := range profile.Platforms() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

// configPath returns the explicit config file, or prospector.yaml when it exists.
func (a *app) configPath() string {
	if a.configFile != "" {
		return a.configFile
	}
	if _, err := os.Stat("prospector.yaml"); err == nil {
		return "prospector.yaml"
	}
	return ""
}

func (a *app) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := config.Load(a.v, a.configPath(), a.inputFile)
	if err != nil {
		return err
	}
	logger := newLogger(a.stderr, cfg.LogLevel, cfg.LogFormat, a.debug)
	slog.SetDefault(logger)

	reg, set, closeCache, err := a.setup(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	sinks, closeSinks, err := a.sinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	logger.InfoContext(ctx, "starting run",
		"keywords", cfg.Keywords, "platforms", cfg.Platforms, "country", cfg.Country,
		"max_results", cfg.MaxResults, "min_score", cfg.MinOverallScore)

	p := pipeline.New(reg, pipeline.WithLogger(logger), pipeline.WithRules(set))
	res, err := p.Run(ctx, pipeline.Options{
		Keywords:               cfg.Keywords,
		Platforms:              cfg.Platforms,
		Country:                cfg.Country,
		MaxResults:             cfg.MaxResults,
		MinOverallScore:        cfg.MinOverallScore,
		AllowLowScoreInvestors: cfg.AllowLowScoreInvestors,
	})
	if err != nil {
		return err
	}
	if err := sinks.Save(ctx, res.Profiles); err != nil {
		return err
	}
	stats := httpcache.CacheStats()
	logger.InfoContext(ctx, "done", "run_id", res.RunID, "profiles", len(res.Profiles),
		"cache_hits", stats.Hits, "cache_misses", stats.Misses)
	return nil
}

// setup builds the rule set, HTTP cache and adapter registry shared by the commands.
func (a *app) setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*registry.Registry, *rules.Set, func(), error) {
	set := rules.Default()
	if cfg.RulesFile != "" {
		var err error
		if set, err = rules.Load(cfg.RulesFile); err != nil {
			return nil, nil, nil, err
		}
		logger.InfoContext(ctx, "loaded rules", "path", cfg.RulesFile)
	}

	cache, err := newCache(cfg)
	if err != nil {
		logger.WarnContext(ctx, "cache unavailable, continuing without it", "error", err)
		cache = httpcache.NewNull()
	}
	closeCache := func() {
		if err := cache.Close(); err != nil {
			logger.Warn("failed to close cache", "error", err)
		}
	}

	sources := []auth.Source{auth.EnvSource{}}
	if cfg.BrowserCookies {
		sources = append(sources, auth.NewBrowserSource(logger))
	}

	reg := registry.New(
		adapter.WithLogger(logger),
		adapter.WithHTTPCache(cache),
		adapter.WithRules(set),
		adapter.WithCredentials(cfg.Credentials),
		adapter.WithCookieSources(sources...),
		adapter.WithQuestionMode(cfg.QuestionMode),
	)
	return reg, set, closeCache, nil
}

func newCache(cfg *config.Config) (*httpcache.Cache, error) {
	switch {
	case cfg.NoCache:
		return httpcache.NewNull(), nil
	case cfg.CacheDir != "":
		return httpcache.NewWithPath(cfg.CacheTTL, cfg.CacheDir)
	default:
		return httpcache.New(cfg.CacheTTL)
	}
}

// sinks builds the dataset sink plus any configured database sinks.
func (a *app) sinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sink.Manager, func(), error) {
	m := sink.NewManager(logger)
	var closers []func() error

	var ds *sink.Dataset
	if cfg.Output == "" || cfg.Output == "-" {
		ds = sink.NewDatasetWriter(a.stdout, cfg.OutputFormat)
	} else {
		var err error
		if ds, err = sink.NewDataset(cfg.Output, cfg.OutputFormat); err != nil {
			return nil, nil, err
		}
	}
	m.Add(ds, true)

	if cfg.DatabaseURL != "" {
		pg, err := sink.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.WarnContext(ctx, "postgres sink disabled", "error", err)
		} else {
			m.Add(pg, false)
			closers = append(closers, pg.Close)
		}
	}
	if cfg.SQLitePath != "" {
		db, err := sink.NewSQLite(cfg.SQLitePath)
		if err != nil {
			logger.WarnContext(ctx, "sqlite sink disabled", "error", err)
		} else {
			m.Add(db, false)
			closers = append(closers, db.Close)
		}
	}
	return m, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("failed to close sink", "error", err)
			}
		}
	}, nil
}

func (a *app) extractCmd() *cobra.Command {
	var enrich bool
	var keywords []string
	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Fetch a single profile and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Resolve(a.v, a.configPath(), "")
			if err != nil {
				return err
			}
			logger := newLogger(a.stderr, cfg.LogLevel, cfg.LogFormat, a.debug)
			reg, set, closeCache, err := a.setup(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeCache()

			ad, err := detect(ctx, reg, args[0])
			if err != nil {
				return err
			}
			p, err := ad.ExtractProfile(ctx, args[0])
			if err != nil {
				return err
			}
			if !enrich {
				return writeJSON(a.stdout, p)
			}
			pl := pipeline.New(reg, pipeline.WithLogger(logger), pipeline.WithRules(set))
			return writeJSON(a.stdout, pl.EnrichOne(&p, config.List(keywords)))
		},
	}
	cmd.Flags().BoolVar(&enrich, "enrich", false, "classify and score the profile")
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "keywords used when scoring with --enrich")
	return cmd
}

// detect returns the first adapter that accepts url.
func detect(ctx context.Context, reg *registry.Registry, url string) (adapter.Adapter, error) {
	for _, p := range profile.Platforms() {
		ad, err := reg.Get(ctx, string(p))
		if err != nil {
			return nil, err
		}
		if ad.ValidateURL(url) {
			return ad, nil
		}
	}
	return nil, &profile.UnsupportedPlatformError{Name: url}
}

func (a *app) platformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List supported platforms",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			for _, p := range profile.Platforms() {
				fmt.Fprintln(a.stdout, p)
			}
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newLogger builds the process logger. debug forces the debug level.
func newLogger(w io.Writer, level, format string, debug bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if debug {
		lvl = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
