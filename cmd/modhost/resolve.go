// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newResolveCommand(app *App, flags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [search-path...]",
		Short: "Print the load order and exclusions without loading",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), app, flags, args)
		},
	}
}

func runResolve(ctx context.Context, app *App, flags *rootFlagValues, args []string) error {
	cfg, err := app.loadConfig(ctx, flags)
	if err != nil {
		renderError(app.stderr, err, flags.verbose)
		return err
	}
	h, err := app.newHost(cfg, nil)
	if err != nil {
		return err
	}
	protos, diags, err := h.scan(args)
	if err != nil {
		renderError(app.stderr, err, flags.verbose)
		return err
	}

	found, err := h.discoverer.Discover(ctx, protos)
	if err != nil {
		return err
	}
	renderDiagnostics(app.stdout, append(diags, found.Diagnostics...))

	res := h.resolver.Resolve(found.Descriptors, func(string) bool { return false })

	fmt.Fprintln(app.stdout, TitleStyle.Render("Load order"))
	if len(res.Order) == 0 {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("  (nothing to load)"))
	}
	for i, d := range res.Order {
		line := fmt.Sprintf("  %d. %s %s", i+1, UnitStyle.Render(d.Name), d.Version)
		if len(d.Dependencies) > 0 {
			line += SubtitleStyle.Render(" <- " + strings.Join(d.Dependencies, ", "))
		}
		fmt.Fprintln(app.stdout, line)
	}

	if len(res.Excluded) == 0 {
		return nil
	}
	fmt.Fprintln(app.stdout)
	fmt.Fprintln(app.stdout, TitleStyle.Render("Excluded"))
	for _, d := range res.Excluded {
		line := fmt.Sprintf("  %s %s %s", UnitStyle.Render(d.Name), ErrorStyle.Render(d.Status().String()), SubtitleStyle.Render(d.Status().Fault().String()))
		if missing := res.Unsatisfied[d.Name]; len(missing) > 0 {
			line += ": needs " + strings.Join(missing, ", ")
		} else if d.Cause() != nil {
			line += ": " + d.Cause().Error()
		}
		fmt.Fprintln(app.stdout, line)
	}
	return nil
}
