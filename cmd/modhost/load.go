// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/invowk/modhost/internal/lifecycle"
	"github.com/invowk/modhost/internal/transform"
)

func newLoadCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var strict bool

	loadCmd := &cobra.Command{
		Use:   "load [search-path...]",
		Short: "Load units once, print the report and shut down",
		Long: `Load every unit found in the search paths as one batch, print what
happened to each unit, then unload everything again.

Arguments replace the configured search paths. Each search path is a
directory whose subdirectories and .zip archives are unit candidates.

Exit codes: 0 when the batch completed (excluded units are reported),
2 with --strict when any unit was excluded or a hook failed,
3 when a transformation fault aborted the batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd.Context(), app, flags, args, strict)
		},
	}
	loadCmd.Flags().BoolVar(&strict, "strict", false, "exit with status 2 when anything was excluded")
	return loadCmd
}

func runLoad(ctx context.Context, app *App, flags *rootFlagValues, args []string, strict bool) error {
	cfg, err := app.loadConfig(ctx, flags)
	if err != nil {
		renderError(app.stderr, err, flags.verbose)
		return err
	}
	h, err := app.newHost(cfg, nil)
	if err != nil {
		return err
	}

	rep, err := h.loadAll(ctx, app.stdout, args)
	if err != nil {
		if f, ok := transform.AsFault(err); ok {
			renderFault(app.stderr, f)
			return &ExitError{Code: ExitFault, Err: err}
		}
		renderError(app.stderr, err, flags.verbose)
		return err
	}

	shut := h.manager.Shutdown(ctx)
	fmt.Fprintf(app.stdout, "\n%s %d unit(s) unloaded\n", SubtitleStyle.Render("shutdown:"), len(shut.Unloaded))

	if strict && !rep.OK() {
		return &ExitError{Code: ExitExcluded, Err: fmt.Errorf("%d unit(s) excluded, %d hook error(s)", len(rep.Failures()), len(rep.PhaseErrors))}
	}
	return nil
}

// loadAll scans the search paths, loads the batch and prints the report.
// The scan diagnostics are folded into the returned report.
func (h *host) loadAll(ctx context.Context, w io.Writer, args []string) (*lifecycle.Report, error) {
	protos, diags, err := h.scan(args)
	if err != nil {
		return nil, err
	}
	rep, err := h.manager.LoadBatch(ctx, protos)
	if rep != nil {
		rep.Diagnostics = append(diags, rep.Diagnostics...)
		renderDiagnostics(w, rep.Diagnostics)
		renderReport(w, rep)
		if len(rep.Loaded) > 0 {
			fmt.Fprintf(w, "%s %v\n", SuccessStyle.Render("loaded:"), rep.Loaded)
		}
	}
	return rep, err
}
