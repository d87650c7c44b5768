// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/charmbracelet/log"

	"github.com/invowk/modhost/pkg/unitmod"
)

// ErrNoManifest is the cause of a manifest_missing diagnostic.
var ErrNoManifest = errors.New("no unit manifest found")

type (
	// Result is the outcome of Discover.
	Result struct {
		// Descriptors are the surviving candidates in discovery order,
		// including ones that failed validation.
		Descriptors []*unitmod.Descriptor
		// Diagnostics explain every skipped or dropped candidate.
		Diagnostics []Diagnostic

		origins map[*unitmod.Descriptor]Origin
	}

	// Discoverer reads prototypes into descriptors.
	Discoverer struct {
		logger *log.Logger
		open   func(location string) (Origin, error)
	}

	// Option configures a Discoverer.
	Option func(*Discoverer)
)

// WithLogger sets the discovery logger.
func WithLogger(logger *log.Logger) Option {
	return func(d *Discoverer) {
		d.logger = logger
	}
}

// WithOpener replaces Open, the function used to open candidate locations.
func WithOpener(open func(location string) (Origin, error)) Option {
	return func(d *Discoverer) {
		d.open = open
	}
}

// New creates a Discoverer.
func New(opts ...Option) *Discoverer {
	d := &Discoverer{open: Open}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = log.Default().WithPrefix("discovery")
	}
	return d
}

// Origin returns the origin a descriptor was read from.
func (r *Result) Origin(d *unitmod.Descriptor) Origin {
	return r.origins[d]
}

// Discover reads every enabled prototype in order. Disabled prototypes are
// skipped silently. Per-candidate problems become diagnostics; only context
// cancellation is returned as an error, together with what was discovered
// so far.
func (d *Discoverer) Discover(ctx context.Context, prototypes []unitmod.Prototype) (*Result, error) {
	res := &Result{origins: map[*unitmod.Descriptor]Origin{}}
	var found []*unitmod.Descriptor

	for _, proto := range prototypes {
		if err := ctx.Err(); err != nil {
			res.Descriptors = d.dedupe(found, res)
			return res, err
		}
		if !proto.Enabled {
			continue
		}

		desc, origin, diag := d.read(proto.Origin, len(found))
		if diag != nil {
			d.logger.Warn("unit candidate skipped", "origin", diag.Path, "code", diag.Code, "error", diag.Cause)
			res.Diagnostics = append(res.Diagnostics, *diag)
			continue
		}
		if proto.Name != "" && desc.Pending() && proto.Name != desc.Name {
			d.logger.Debug("prototype name differs from manifest", "prototype", proto.Name, "unit", desc.Name)
		}
		res.origins[desc] = origin
		found = append(found, desc)
	}

	res.Descriptors = d.dedupe(found, res)
	return res, nil
}

// Inspect reads a single location regardless of enablement. The returned
// error is the cause of the diagnostic Discover would have produced.
func (d *Discoverer) Inspect(location string) (*unitmod.Descriptor, Origin, error) {
	desc, origin, diag := d.read(location, 0)
	if diag != nil {
		return nil, nil, fmt.Errorf("%s: %s: %w", diag.Path, diag.Message, diag.Cause)
	}
	return desc, origin, nil
}

func (d *Discoverer) read(location string, seq int) (*unitmod.Descriptor, Origin, *Diagnostic) {
	origin, err := d.open(location)
	if err != nil {
		return nil, nil, &Diagnostic{
			Severity: SeverityError,
			Code:     CodeOriginUnreadable,
			Message:  "unit origin could not be opened",
			Path:     location,
			Cause:    err,
		}
	}

	name, data, err := findManifest(origin)
	if err != nil {
		code, msg := CodeOriginUnreadable, "unit manifest could not be read"
		if errors.Is(err, ErrNoManifest) {
			code, msg = CodeManifestMissing, "no unit manifest at origin root"
		}
		return nil, nil, &Diagnostic{Severity: SeverityError, Code: code, Message: msg, Path: location, Cause: err}
	}

	manifest, err := unitmod.Decode(data, name)
	if err != nil {
		return nil, nil, &Diagnostic{
			Severity: SeverityError,
			Code:     CodeManifestInvalid,
			Message:  fmt.Sprintf("%s could not be decoded", name),
			Path:     location,
			Cause:    err,
		}
	}

	desc := unitmod.Parse(manifest, location, unitmod.WithLogger(d.logger), unitmod.WithSeq(seq))
	if !desc.Pending() {
		d.logger.Warn("unit descriptor rejected", "origin", location, "status", desc.Status(), "error", desc.Cause())
	}
	return desc, origin, nil
}

// findManifest returns the first manifest present in fallback order.
func findManifest(origin Origin) (string, []byte, error) {
	for _, name := range unitmod.ManifestNames {
		data, err := origin.ReadFile(name)
		if err == nil {
			return name, data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", nil, err
		}
	}
	return "", nil, ErrNoManifest
}

// dedupe keeps the highest version of each valid unit name. Ties keep the
// first discovered. Failed descriptors are never deduplicated.
func (d *Discoverer) dedupe(found []*unitmod.Descriptor, res *Result) []*unitmod.Descriptor {
	winners := map[string]*unitmod.Descriptor{}
	for _, desc := range found {
		if !desc.Pending() {
			continue
		}
		best, ok := winners[desc.Name]
		if !ok || unitmod.CompareVersions(desc.Version, best.Version) > 0 {
			winners[desc.Name] = desc
		}
	}

	out := make([]*unitmod.Descriptor, 0, len(found))
	for _, desc := range found {
		if !desc.Pending() || winners[desc.Name] == desc {
			out = append(out, desc)
			continue
		}
		winner := winners[desc.Name]
		d.logger.Warn("duplicate unit dropped", "unit", desc.Name, "version", desc.Version, "kept", winner.Version)
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeDuplicateUnit,
			Message:  fmt.Sprintf("unit %s shadowed by version %s at %s", desc, winner.Version, winner.Origin),
			Path:     desc.Origin,
		})
		delete(res.origins, desc)
	}
	return out
}
