// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/invowk/modhost/internal/discovery"
	"github.com/invowk/modhost/pkg/unitmod"
)

// DefaultRetryPolicy is used by Refresh when Options.RetryPolicy is nil: a
// short exponential backoff that gives up after a few seconds, long enough
// for an editor or archiver to finish writing.
func DefaultRetryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 5 * time.Second
	return b
}

// Refresh applies changes at unit locations. A location that no longer
// exists unloads the units it held; a location holding an active unit
// reloads it; any other location is loaded as a new unit. A location whose
// manifest cannot be read, even after retries, is left alone and reported
// as a diagnostic, so the running version stays live.
func (m *Manager) Refresh(ctx context.Context, locations []string) (*Report, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	rep := newReport()
	var (
		gone   []string
		reload []string
		fresh  []unitmod.Prototype
	)
	for _, loc := range dedupeLocations(locations) {
		names := m.unitsAt(loc)
		if _, err := os.Stat(loc); errors.Is(err, fs.ErrNotExist) {
			gone = append(gone, names...)
			continue
		}
		if err := m.probe(ctx, loc); err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			m.logger.Warn("unit location unreadable, keeping current state", "origin", loc, "error", err)
			rep.Diagnostics = append(rep.Diagnostics, discovery.Diagnostic{
				Severity: discovery.SeverityWarning,
				Code:     discovery.CodeOriginUnreadable,
				Message:  "refresh skipped",
				Path:     loc,
				Cause:    err,
			})
			continue
		}
		if len(names) == 0 {
			fresh = append(fresh, unitmod.Prototype{Origin: loc, Enabled: true})
			continue
		}
		reload = append(reload, names...)
	}

	if len(gone) > 0 {
		m.teardownAll(ctx, rep, m.teardownOrder(m.closure(gone...)))
	}
	if len(reload) == 0 && len(fresh) == 0 {
		return rep, nil
	}

	var (
		loaded *Report
		err    error
	)
	if len(reload) > 0 {
		loaded, err = m.reload(ctx, reload, fresh)
	} else {
		loaded, err = m.loadBatch(ctx, fresh)
	}
	rep.merge(loaded)
	return rep, err
}

// probe reads the manifest at loc, retrying while it is unreadable.
func (m *Manager) probe(ctx context.Context, loc string) error {
	policy := m.retry
	if policy == nil {
		policy = DefaultRetryPolicy
	}
	op := func() error {
		_, _, err := m.discoverer.Inspect(loc)
		return err
	}
	notify := func(err error, wait time.Duration) {
		m.logger.Debug("unit location not ready", "origin", loc, "retry_in", wait, "error", err)
	}
	return backoff.RetryNotify(op, backoff.WithContext(policy(), ctx), notify)
}

// unitsAt returns the active units discovered at loc.
func (m *Manager) unitsAt(loc string) []string {
	m.activeMu.RLock()
	defer m.activeMu.RUnlock()

	var names []string
	for name, u := range m.active {
		if samePath(u.Descriptor.Origin, loc) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Origins returns the locations of the active units, sorted.
func (m *Manager) Origins() []string {
	m.activeMu.RLock()
	defer m.activeMu.RUnlock()

	out := make([]string, 0, len(m.active))
	for _, u := range m.active {
		out = append(out, u.Descriptor.Origin)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// AffectedRoots maps changed file paths to the unit roots containing them.
// A path equal to a root, or below it, selects that root. Paths outside
// every root are dropped. The result is sorted.
func AffectedRoots(paths, roots []string) []string {
	var out []string
	for _, p := range paths {
		p = filepath.Clean(p)
		for _, root := range roots {
			r := filepath.Clean(root)
			if p == r || strings.HasPrefix(p, r+string(filepath.Separator)) {
				out = append(out, r)
				break
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func dedupeLocations(locations []string) []string {
	out := make([]string, 0, len(locations))
	for _, loc := range locations {
		loc = filepath.Clean(loc)
		if !slices.Contains(out, loc) {
			out = append(out, loc)
		}
	}
	return out
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
