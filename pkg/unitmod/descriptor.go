// SPDX-License-Identifier: MPL-2.0

package unitmod

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
)

type (
	// Prototype identifies a candidate unit before its manifest is read.
	// Several prototypes may share a name; they are told apart by the version
	// of their descriptors.
	Prototype struct {
		// Origin is the unit directory or zip archive path.
		Origin string
		// Name is the name the prototype is known by (may be empty).
		Name string
		// Enabled prototypes are the only ones discovered.
		Enabled bool
	}

	// Descriptor is the normalized, validated form of a manifest.
	//
	// Status transitions: Pending -> (any failure status | LoadSuccess).
	// Once a descriptor leaves Pending it never changes again.
	Descriptor struct {
		Name                   string
		DeclaredName           string
		Version                string
		Entrypoint             string
		Authors                []string
		Dependencies           []string
		CodeModifiers          []string
		MixinConfig            string
		AccessWidener          string
		ReversibleAccessSetter string
		External               ExternalDependencies

		// Origin is the location the descriptor was discovered at.
		Origin string
		// Seq is the discovery order, used as the deterministic tie-break.
		Seq int

		status LoadStatus
		cause  error
	}

	parseConfig struct {
		logger *log.Logger
		seq    int
	}

	// ParseOption configures Parse.
	ParseOption func(*parseConfig)
)

// WithLogger sets the logger used for non-fatal manifest warnings.
func WithLogger(logger *log.Logger) ParseOption {
	return func(c *parseConfig) {
		c.logger = logger
	}
}

// WithSeq sets the discovery sequence number of the descriptor.
func WithSeq(seq int) ParseOption {
	return func(c *parseConfig) {
		c.seq = seq
	}
}

// Parse validates m and fills structural defaults. It never fails: a
// missing or malformed name yields InvalidName, a missing entrypoint yields
// NoEntrypoint. In both cases the descriptor name is replaced by the status
// label. A missing version only logs a warning.
func Parse(m *Manifest, origin string, opts ...ParseOption) *Descriptor {
	cfg := parseConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = log.Default()
	}
	if m == nil {
		m = &Manifest{}
	}

	d := &Descriptor{
		Name:                   m.Name,
		DeclaredName:           m.Name,
		Version:                m.Version,
		Entrypoint:             m.Entrypoint,
		Authors:                cloneOrEmpty(m.Authors),
		Dependencies:           cloneOrEmpty(m.Dependencies),
		CodeModifiers:          cloneOrEmpty(m.CodeModifiers),
		MixinConfig:            m.MixinConfig,
		AccessWidener:          m.AccessWidener,
		ReversibleAccessSetter: m.ReversibleAccessSetter,
		External: ExternalDependencies{
			Repositories: slices.Clone(m.ExternalDependencies.Repositories),
			Artifacts:    cloneOrEmpty(m.ExternalDependencies.Artifacts),
		},
		Origin: origin,
		Seq:    cfg.seq,
	}
	if d.External.Repositories == nil {
		d.External.Repositories = []Repository{}
	}
	if d.Version == "" {
		d.Version = UnspecifiedVersion
	}

	if err := UnitName(m.Name).Validate(); err != nil {
		d.fail(InvalidName, err)
		return d
	}

	if m.Entrypoint == "" {
		d.fail(NoEntrypoint, fmt.Errorf("unit %q declares no entrypoint", m.Name))
		return d
	}

	if m.Version == "" {
		logger.Warn("unit manifest has no version", "unit", m.Name, "origin", origin)
	}

	return d
}

// Status returns the current load status.
func (d *Descriptor) Status() LoadStatus { return d.status }

// Cause returns the error recorded with the first failure status, if any.
func (d *Descriptor) Cause() error { return d.cause }

// Pending reports whether the descriptor has not reached a verdict yet.
func (d *Descriptor) Pending() bool { return d.status == Pending }

// Fail moves a pending descriptor to a failure status and records cause.
// It returns false, changing nothing, if the descriptor already left
// Pending or status is not a failure status.
func (d *Descriptor) Fail(status LoadStatus, cause error) bool {
	if d.status != Pending || !status.IsFailure() {
		return false
	}
	d.status = status
	d.cause = cause
	return true
}

// MarkLoaded moves a pending descriptor to LoadSuccess.
func (d *Descriptor) MarkLoaded() bool {
	if d.status != Pending {
		return false
	}
	d.status = LoadSuccess
	return true
}

// String returns "name@version".
func (d *Descriptor) String() string {
	return d.Name + "@" + d.Version
}

// fail is Fail for Parse: the name is replaced by the status label.
func (d *Descriptor) fail(status LoadStatus, cause error) {
	d.Fail(status, cause)
	d.Name = status.String()
}

func cloneOrEmpty(s []string) []string {
	if len(s) == 0 {
		return []string{}
	}
	return slices.Clone(s)
}
