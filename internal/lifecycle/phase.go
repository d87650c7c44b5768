// SPDX-License-Identifier: MPL-2.0

package lifecycle

import (
	"context"
	"fmt"

	"github.com/invowk/modhost/pkg/unitapi"
)

const (
	PhasePreInit       Phase = "pre-init"
	PhaseInit          Phase = "init"
	PhasePostInit      Phase = "post-init"
	PhasePreTerminate  Phase = "pre-terminate"
	PhaseTerminate     Phase = "terminate"
	PhasePostTerminate Phase = "post-terminate"
	PhaseUnload        Phase = "unload"
)

// Phase names a unit hook.
type Phase string

var (
	initPhases      = []Phase{PhasePreInit, PhaseInit, PhasePostInit}
	terminatePhases = []Phase{PhasePreTerminate, PhaseTerminate, PhasePostTerminate, PhaseUnload}
)

func (p Phase) hook(u unitapi.Unit) func(context.Context) error {
	switch p {
	case PhasePreInit:
		return u.PreInit
	case PhaseInit:
		return u.Init
	case PhasePostInit:
		return u.PostInit
	case PhasePreTerminate:
		return u.PreTerminate
	case PhaseTerminate:
		return u.Terminate
	case PhasePostTerminate:
		return u.PostTerminate
	default:
		return u.Unload
	}
}

// call runs the hook for p, converting a panic into an error.
func (p Phase) call(ctx context.Context, u unitapi.Unit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.hook(u)(ctx)
}
