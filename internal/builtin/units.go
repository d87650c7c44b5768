// SPDX-License-Identifier: MPL-2.0

package builtin

import (
	"context"

	"github.com/invowk/modhost/pkg/unitapi"
	"github.com/invowk/modhost/pkg/unitcode"
)

const (
	// StampModifier records the transformation in a class attribute.
	StampModifier = "modhost.builtin.stamp"
	// SealModifier marks non-interface classes final.
	SealModifier = "modhost.builtin.seal"

	// StampAttribute is the attribute StampModifier sets.
	StampAttribute = "modhost.stamped"

	stampPriority = 1000
	sealPriority  = 900
)

// loggingUnit logs its hooks through the logger handed to it.
type loggingUnit struct {
	setup unitapi.Setup
}

var _ unitapi.Unit = (*loggingUnit)(nil)

func (u *loggingUnit) hook(name string) error {
	u.setup.Logger().Info("lifecycle", "hook", name)
	return nil
}

func (u *loggingUnit) PreInit(context.Context) error       { return u.hook("PreInit") }
func (u *loggingUnit) Init(context.Context) error          { return u.hook("Init") }
func (u *loggingUnit) PostInit(context.Context) error      { return u.hook("PostInit") }
func (u *loggingUnit) PreTerminate(context.Context) error  { return u.hook("PreTerminate") }
func (u *loggingUnit) Terminate(context.Context) error     { return u.hook("Terminate") }
func (u *loggingUnit) PostTerminate(context.Context) error { return u.hook("PostTerminate") }
func (u *loggingUnit) Unload(context.Context) error        { return u.hook("Unload") }

// NewLoggingUnit is the factory for LoggingUnit.
func NewLoggingUnit(setup unitapi.Setup) (unitapi.Unit, error) {
	return &loggingUnit{setup: setup}, nil
}

func stamp(cls *unitcode.Class) (modified, valid bool, err error) {
	if cls.Attributes[StampAttribute] == "true" {
		return false, true, nil
	}
	if cls.Attributes == nil {
		cls.Attributes = map[string]string{}
	}
	cls.Attributes[StampAttribute] = "true"
	return true, true, nil
}

func seal(cls *unitcode.Class) (modified, valid bool, err error) {
	if cls.Access.Has(unitcode.Interface) || cls.Access.Has(unitcode.Final) {
		return false, true, nil
	}
	cls.Access = cls.Access.Set(unitcode.Final)
	return true, true, nil
}

// Register binds the built-in entrypoints and code modifiers in r.
func Register(r *unitapi.Registry) {
	r.RegisterEntrypoint(LoggingUnit, NewLoggingUnit)
	r.RegisterCodeModifier(StampModifier, unitapi.TransformerSpec{
		Priority:  stampPriority,
		Transform: stamp,
	})
	r.RegisterCodeModifier(SealModifier, unitapi.TransformerSpec{
		Priority:  sealPriority,
		Transform: seal,
	})
}

func init() {
	Register(unitapi.DefaultRegistry)
}
