// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/invowk/modhost/internal/builtin"
	"github.com/invowk/modhost/internal/config"
	"github.com/invowk/modhost/internal/discovery"
	"github.com/invowk/modhost/internal/issue"
	"github.com/invowk/modhost/internal/lifecycle"
	"github.com/invowk/modhost/internal/namespace"
	"github.com/invowk/modhost/internal/resolver"
	"github.com/invowk/modhost/internal/transform"
	"github.com/invowk/modhost/pkg/unitapi"
	"github.com/invowk/modhost/pkg/unitcode"
	"github.com/invowk/modhost/pkg/unitmod"
)

// ErrNoSearchPaths is returned when no search path was configured or given.
var ErrNoSearchPaths = errors.New("no search paths")

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// App wires CLI services and shared dependencies. All command handlers
	// receive it.
	App struct {
		Config    ConfigProvider
		Registry  *unitapi.Registry
		ConfigDir string
		stdout    io.Writer
		stderr    io.Writer
	}

	// Dependencies are the injection points for NewApp. Nil fields get
	// production defaults.
	Dependencies struct {
		Config   ConfigProvider
		Registry *unitapi.Registry
		// ConfigDir replaces the platform configuration directory.
		ConfigDir string
		Stdout    io.Writer
		Stderr    io.Writer
	}

	// rootFlagValues holds the persistent flags.
	rootFlagValues struct {
		configPath string
		logLevel   string
		verbose    bool
		paths      []string
	}

	// host is one set of loader components.
	host struct {
		cfg        *config.Config
		logger     *log.Logger
		pipeline   *transform.Pipeline
		namespaces *namespace.Manager
		discoverer *discovery.Discoverer
		resolver   *resolver.Resolver
		manager    *lifecycle.Manager
	}
)

// NewApp creates an App.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:    deps.Config,
		Registry:  deps.Registry,
		ConfigDir: deps.ConfigDir,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.Registry == nil {
		app.Registry = unitapi.DefaultRegistry
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// loadConfig loads the configuration and applies flag overrides.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: flags.configPath,
		ConfigDirPath:  a.ConfigDir,
	})
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		lvl := config.LogLevel(flags.logLevel)
		if err := lvl.Validate(); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("parse --log-level").
				WithSuggestion("Use one of debug, info, warn or error").
				Wrap(err).
				BuildError()
		}
		cfg.LogLevel = lvl
	}
	if flags.verbose {
		cfg.LogLevel = config.LogLevelDebug
	}
	if len(flags.paths) > 0 {
		cfg.SearchPaths = append(cfg.SearchPaths, flags.paths...)
	}
	return cfg, nil
}

func (a *App) newLogger(cfg *config.Config) *log.Logger {
	return log.NewWithOptions(a.stderr, log.Options{
		Level:           cfg.LogLevel.Level(),
		ReportTimestamp: cfg.LogLevel == config.LogLevelDebug,
	})
}

// newHost builds the loader components over the built-in platform classes.
// Metrics are registered with reg when it is non-nil.
func (a *App) newHost(cfg *config.Config, reg prometheus.Registerer) (*host, error) {
	logger := a.newLogger(cfg)
	prefixes := unitcode.Prefixes(cfg.ProtectedPrefixes)

	platform, err := builtin.Platform()
	if err != nil {
		return nil, err
	}

	var (
		tm *transform.Metrics
		lm *lifecycle.Metrics
	)
	if reg != nil {
		tm = transform.NewMetrics(reg)
		lm = lifecycle.NewMetrics(reg)
	}

	h := &host{cfg: cfg, logger: logger}
	h.pipeline = transform.New(
		transform.WithProtectedPrefixes(prefixes),
		transform.WithLogger(logger.WithPrefix("transform")),
		transform.WithMetrics(tm),
	)
	h.namespaces = namespace.NewManager(namespace.NewRoot(platform),
		namespace.WithProtectedPrefixes(prefixes),
		namespace.WithPipeline(h.pipeline),
		namespace.WithLogger(logger.WithPrefix("namespace")),
	)
	h.discoverer = discovery.New(discovery.WithLogger(logger.WithPrefix("discovery")))
	h.resolver = resolver.New(resolver.WithLogger(logger.WithPrefix("resolver")))
	h.manager, err = lifecycle.New(lifecycle.Options{
		Namespaces: h.namespaces,
		Pipeline:   h.pipeline,
		Registry:   a.Registry,
		Discoverer: h.discoverer,
		Resolver:   h.resolver,
		Logger:     logger.WithPrefix("lifecycle"),
		Metrics:    lm,
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// searchPaths returns args, or the configured search paths when args is
// empty.
func (h *host) searchPaths(args []string) ([]string, error) {
	paths := args
	if len(paths) == 0 {
		paths = h.cfg.SearchPaths
	}
	if len(paths) == 0 {
		return nil, issue.NewErrorContext().
			WithOperation("find units").
			WithSuggestion("Pass search paths as arguments or with --path").
			WithSuggestion("Set search_paths in the configuration file").
			WithIssue(issue.SearchPathMissingId).
			Wrap(ErrNoSearchPaths).
			BuildError()
	}
	return paths, nil
}

// scan lists the prototypes in the search paths.
func (h *host) scan(args []string) ([]unitmod.Prototype, []discovery.Diagnostic, error) {
	paths, err := h.searchPaths(args)
	if err != nil {
		return nil, nil, err
	}
	protos, diags := discovery.Scan(paths, h.cfg.Disabled)
	h.logger.Debug("scanned search paths", "paths", paths, "candidates", len(protos))
	return protos, diags, nil
}
