// SPDX-License-Identifier: MPL-2.0

package builtin

import (
	"github.com/invowk/modhost/internal/namespace"
	"github.com/invowk/modhost/pkg/unitapi"
	"github.com/invowk/modhost/pkg/unitcode"
)

const (
	// ObjectClass is the implicit superclass of every class.
	ObjectClass = "go.lang.Object"
	// LoggingUnit is an entrypoint that logs every lifecycle hook.
	LoggingUnit = "modhost.builtin.LoggingUnit"
)

// hookDesc is the descriptor shared by every lifecycle hook method.
const hookDesc = "(Lgo/context/Context;)Lgo/error;"

// hookNames are the Unit methods in lifecycle order.
var hookNames = []string{"PreInit", "Init", "PostInit", "PreTerminate", "Terminate", "PostTerminate", "Unload"}

// PlatformClasses returns fresh copies of the classes the root namespace
// serves.
func PlatformClasses() []*unitcode.Class {
	hooks := make([]unitcode.Member, 0, len(hookNames))
	for _, name := range hookNames {
		hooks = append(hooks, unitcode.Member{
			Name:   name,
			Desc:   hookDesc,
			Access: unitcode.Public | unitcode.Abstract,
		})
	}
	impl := make([]unitcode.Member, len(hooks))
	for i, m := range hooks {
		m.Access = unitcode.Public
		impl[i] = m
	}

	return []*unitcode.Class{
		{
			Name:   ObjectClass,
			Access: unitcode.Public,
		},
		{
			Name:    unitapi.CapabilityInterface,
			Access:  unitcode.Public | unitcode.Interface | unitcode.Abstract,
			Methods: hooks,
		},
		{
			Name:       LoggingUnit,
			Access:     unitcode.Public | unitcode.Final,
			Super:      ObjectClass,
			Interfaces: []string{unitapi.CapabilityInterface},
			Methods:    impl,
		},
	}
}

// Platform returns the source backing the root namespace.
func Platform() (namespace.StaticSource, error) {
	src := namespace.StaticSource{}
	for _, cls := range PlatformClasses() {
		if err := src.AddClass(cls); err != nil {
			return nil, err
		}
	}
	return src, nil
}
