// SPDX-License-Identifier: MPL-2.0

package unitapi

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/invowk/modhost/pkg/unitcode"
)

// CapabilityInterface is the interface identifier an entrypoint class must
// declare to be instantiated.
const CapabilityInterface = "modhost.api.Unit"

type (
	// Unit is a live unit instance. Hooks run in the order PreInit, Init,
	// PostInit when a batch loads (each phase completes for the whole batch
	// before the next begins) and PreTerminate, Terminate, PostTerminate,
	// Unload when the unit is unloaded. A returned error is logged and
	// reported; it does not deactivate the unit.
	Unit interface {
		PreInit(ctx context.Context) error
		Init(ctx context.Context) error
		PostInit(ctx context.Context) error
		PreTerminate(ctx context.Context) error
		Terminate(ctx context.Context) error
		PostTerminate(ctx context.Context) error
		Unload(ctx context.Context) error
	}

	// Base implements every Unit hook as a no-op. Embed it and override the
	// hooks you need.
	Base struct{}

	// Setup is handed to a Factory. A unit may keep it for its lifetime.
	Setup interface {
		// Name is the unit name from the manifest.
		Name() string
		// Logger is a logger prefixed with the unit name.
		Logger() *log.Logger
		// Resolve looks a class up through the unit namespace.
		Resolve(id string) (*unitcode.Class, error)
		// AddTransformer registers a pipeline transformer owned by the unit.
		// It is removed when the unit unloads.
		AddTransformer(spec TransformerSpec) error
	}

	// Factory constructs a unit instance.
	Factory func(Setup) (Unit, error)

	// TransformFunc rewrites cls in place. modified reports whether it
	// changed anything; returning valid=false removes the transformer from
	// the pipeline after this call. A returned error aborts the whole load.
	//
	// Transformers run under the pipeline lock and must not resolve classes
	// or register transformers. Setup.Resolve and Setup.AddTransformer
	// called from the owning unit's transformer fail with a
	// *transform.Fault instead of waiting on that lock.
	TransformFunc func(cls *unitcode.Class) (modified, valid bool, err error)

	// TransformerSpec describes a transformer contributed by a unit.
	TransformerSpec struct {
		// ID names the transformer in logs. Defaults to the code modifier id.
		ID string
		// Targets are doublestar patterns over dotted class identifiers
		// with '.' treated as the path separator (com.example.**).
		// Empty means every class.
		Targets []string
		// Priority orders transformers; lower runs first.
		Priority int
		Transform TransformFunc
	}
)

func (Base) PreInit(context.Context) error       { return nil }
func (Base) Init(context.Context) error          { return nil }
func (Base) PostInit(context.Context) error      { return nil }
func (Base) PreTerminate(context.Context) error  { return nil }
func (Base) Terminate(context.Context) error     { return nil }
func (Base) PostTerminate(context.Context) error { return nil }
func (Base) Unload(context.Context) error        { return nil }
