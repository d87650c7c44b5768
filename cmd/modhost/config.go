// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/invowk/modhost/internal/config"
)

// newConfigCommand creates the `modhost config` command tree.
func newConfigCommand(app *App, flags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage modhost configuration",
		Long: `Manage modhost configuration.

Configuration is stored in:
  - Linux: ~/.config/modhost/config.cue
  - macOS: ~/Library/Application Support/modhost/config.cue
  - Windows: %APPDATA%\modhost\config.cue

Every value can be overridden with a ` + config.EnvPrefix + `_* environment variable,
for example ` + config.EnvPrefix + `_LOG_LEVEL=debug or ` + config.EnvPrefix + `_WATCH_DEBOUNCE=2s.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var defaults, asCUE bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app, flags, defaults, asCUE)
		},
	}
	showCmd.Flags().BoolVar(&defaults, "defaults", false, "show the built-in defaults")
	showCmd.Flags().BoolVar(&asCUE, "cue", false, "print as a CUE config file")

	cfgCmd.AddCommand(showCmd, &cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app)
		},
	})
	return cfgCmd
}

func showConfig(ctx context.Context, app *App, flags *rootFlagValues, defaults, asCUE bool) error {
	cfg := config.DefaultConfig()
	source := "(defaults)"
	if !defaults {
		loaded, path, err := config.LoadWithPath(ctx, config.LoadOptions{
			ConfigFilePath: flags.configPath,
			ConfigDirPath:  app.ConfigDir,
		})
		if err != nil {
			renderError(app.stderr, err, true)
			return err
		}
		cfg = loaded
		if path != "" {
			source = path
		}
	}

	if asCUE {
		fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
		return nil
	}

	key := UnitStyle.Render
	val := SuccessStyle.Render
	list := func(items []string) string {
		if len(items) == 0 {
			return SubtitleStyle.Render("(none)")
		}
		return val(strings.Join(items, ", "))
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render("Current Configuration"))
	fmt.Fprintf(app.stdout, "%s: %s\n\n", key("Config file"), SubtitleStyle.Render(source))
	fmt.Fprintf(app.stdout, "%s: %s\n", key("search_paths"), list(cfg.SearchPaths))
	fmt.Fprintf(app.stdout, "%s: %s\n", key("disabled"), list(cfg.Disabled))
	fmt.Fprintf(app.stdout, "%s: %s\n", key("protected_prefixes"), list(cfg.ProtectedPrefixes))
	fmt.Fprintf(app.stdout, "%s: %s\n", key("log_level"), val(cfg.LogLevel.String()))
	fmt.Fprintf(app.stdout, "%s:\n", key("watch"))
	fmt.Fprintf(app.stdout, "  enabled: %s\n", val(fmt.Sprint(cfg.Watch.Enabled)))
	fmt.Fprintf(app.stdout, "  debounce: %s\n", val(cfg.Watch.Debounce.String()))
	fmt.Fprintf(app.stdout, "  patterns: %s\n", list(cfg.Watch.Patterns))
	fmt.Fprintf(app.stdout, "%s:\n", key("telemetry"))
	listen := SubtitleStyle.Render("(disabled)")
	if cfg.Telemetry.Listen != "" {
		listen = val(cfg.Telemetry.Listen)
	}
	fmt.Fprintf(app.stdout, "  listen: %s\n", listen)
	return nil
}

func initConfig(app *App) error {
	path, written, err := config.CreateDefaultConfig(app.ConfigDir)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if !written {
		fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
