// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "modhost",
		Short: "A runtime unit loader",
		Long: TitleStyle.Render("modhost") + SubtitleStyle.Render(" - a runtime unit loader") + `

modhost discovers units in search paths, orders them by their declared
dependencies, links each into its own namespace, rewrites unit classes
through the transformation pipeline and drives every unit through its
lifecycle, including hot reload and cascading unload.

` + SubtitleStyle.Render("Examples:") + `
  modhost load ./units          Load every unit below ./units, then shut down
  modhost run                   Load the configured search paths and watch them
  modhost resolve ./units       Print the load order without instantiating
  modhost validate ./units/foo  Check one unit without loading it
  modhost explain dependency    Explain a fault kind`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default is the platform config directory)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging and full error chains")
	pf.StringArrayVar(&flags.paths, "path", nil, "extra search path (repeatable)")

	rootCmd.AddCommand(
		newLoadCommand(app, flags),
		newRunCommand(app, flags),
		newResolveCommand(app, flags),
		newValidateCommand(app, flags),
		newExplainCommand(app),
		newConfigCommand(app, flags),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the code carried by an ExitError.
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitFailure)
	}
}
