// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/invowk/modhost/internal/discovery"
	"github.com/invowk/modhost/internal/lifecycle"
	"github.com/invowk/modhost/internal/telemetry"
	"github.com/invowk/modhost/internal/transform"
	"github.com/invowk/modhost/internal/watch"
)

func newRunCommand(app *App, flags *rootFlagValues) *cobra.Command {
	var noWatch bool

	runCmd := &cobra.Command{
		Use:   "run [search-path...]",
		Short: "Load units and keep them running with hot reload",
		Long: `Load every unit in the search paths, then keep running until interrupted.

While running, changes below the search paths are applied without a restart:
a changed unit is reloaded together with its dependents, a new unit is
loaded and a deleted unit is unloaded together with its dependents.
When telemetry.listen is configured, /metrics, /live and /ready are served.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(cmd.Context(), app, flags, args, !noWatch)
		},
	}
	runCmd.Flags().BoolVar(&noWatch, "no-watch", false, "disable hot reload")
	return runCmd
}

func runHost(ctx context.Context, app *App, flags *rootFlagValues, args []string, watchChanges bool) error {
	cfg, err := app.loadConfig(ctx, flags)
	if err != nil {
		renderError(app.stderr, err, flags.verbose)
		return err
	}

	var (
		tel *telemetry.Server
		reg prometheus.Registerer
	)
	if cfg.Telemetry.Listen != "" {
		tel = telemetry.New(telemetry.WithLogger(app.newLogger(cfg).WithPrefix("telemetry")))
		reg = tel.Registerer()
	}
	h, err := app.newHost(cfg, reg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		faulted  atomic.Bool
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
		cancel()
	}

	if tel != nil {
		tel.AddReadinessCheck("transformation", func() error {
			if faulted.Load() {
				return errors.New("last batch aborted by a transformation fault")
			}
			return nil
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tel.ListenAndServe(ctx, cfg.Telemetry.Listen); err != nil {
				fail(err)
			}
		}()
	}

	_, err = h.loadAll(ctx, app.stdout, args)
	switch f, isFault := transform.AsFault(err); {
	case isFault:
		renderFault(app.stderr, f)
		faulted.Store(true)
	case err != nil:
		renderError(app.stderr, err, flags.verbose)
		cancel()
		wg.Wait()
		return err
	}
	if tel != nil {
		tel.MarkReady()
	}

	if watchChanges && cfg.Watch.Enabled {
		paths, _ := h.searchPaths(args)
		w, err := watch.New(watch.Config{
			Roots:    paths,
			Patterns: cfg.Watch.Patterns,
			Debounce: cfg.Watch.Debounce,
			Logger:   h.logger.WithPrefix("watch"),
			OnChange: func(ctx context.Context, changed []string) error {
				h.refresh(ctx, app, paths, changed, &faulted)
				return nil
			},
		})
		if err != nil {
			renderError(app.stderr, err, flags.verbose)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := w.Run(ctx); err != nil {
					fail(err)
				}
			}()
			fmt.Fprintf(app.stdout, "%s watching %v (Ctrl+C to stop)\n", SubtitleStyle.Render("→"), w.Roots())
		}
	}

	<-ctx.Done()
	shut := h.manager.Shutdown(ctx)
	fmt.Fprintf(app.stdout, "\n%s %d unit(s) unloaded\n", SubtitleStyle.Render("shutdown:"), len(shut.Unloaded))
	cancel()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return firstErr
}

// refresh applies a batch of changed paths to the running units.
func (h *host) refresh(ctx context.Context, app *App, paths, changed []string, faulted *atomic.Bool) {
	protos, _ := discovery.Scan(paths, h.cfg.Disabled)
	roots := h.manager.Origins()
	for _, p := range protos {
		roots = append(roots, p.Origin)
	}
	slices.Sort(roots)
	roots = slices.Compact(roots)

	affected := lifecycle.AffectedRoots(changed, roots)
	if len(affected) == 0 {
		h.logger.Debug("changes outside every unit", "paths", changed)
		return
	}
	h.logger.Info("applying changes", "locations", affected)

	rep, err := h.manager.Refresh(ctx, affected)
	faulted.Store(false)
	if f, ok := transform.AsFault(err); ok {
		faulted.Store(true)
		renderFault(app.stderr, f)
	} else if err != nil {
		h.logger.Error("refresh failed", "error", err)
	}
	if rep == nil {
		return
	}
	renderDiagnostics(app.stdout, rep.Diagnostics)
	for _, u := range rep.Failures() {
		fmt.Fprintf(app.stdout, "%s %s %s: %v\n", ErrorStyle.Render("excluded"), UnitStyle.Render(u.Name), u.Status, u.Cause)
	}
	if len(rep.Unloaded) > 0 {
		fmt.Fprintf(app.stdout, "%s %v\n", SubtitleStyle.Render("unloaded:"), rep.Unloaded)
	}
	if len(rep.Loaded) > 0 {
		fmt.Fprintf(app.stdout, "%s %v\n", SuccessStyle.Render("loaded:"), rep.Loaded)
	}
}
