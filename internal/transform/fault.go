// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"errors"
	"fmt"

	"github.com/invowk/modhost/pkg/unitmod"
)

var (
	// ErrTransformFailed is wrapped by every Fault.
	ErrTransformFailed = errors.New("transformation failed")
	// ErrReentrant reports a transformer calling back into the pipeline.
	ErrReentrant = errors.New("transformer re-entered the pipeline")
)

// Fault reports a failed transformation. It is fatal to the load that
// triggered it.
type Fault struct {
	// Class is the identifier being transformed.
	Class string
	// Entry is the ID of the failing entry, or empty when decoding or
	// encoding the class failed.
	Entry string
	// Owner is the unit that registered the failing entry.
	Owner string
	// Panic holds the recovered value when the transformer panicked.
	Panic any
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	var where string
	switch {
	case f.Entry != "" && f.Owner != "":
		where = fmt.Sprintf("transformer %s (unit %s)", f.Entry, f.Owner)
	case f.Entry != "":
		where = "transformer " + f.Entry
	default:
		where = "pipeline"
	}
	switch {
	case f.Panic != nil:
		return fmt.Sprintf("%s panicked on %s: %v", where, f.Class, f.Panic)
	case f.Err != nil:
		return fmt.Sprintf("%s failed on %s: %v", where, f.Class, f.Err)
	default:
		return fmt.Sprintf("%s failed on %s", where, f.Class)
	}
}

// Unwrap exposes ErrTransformFailed and the cause.
func (f *Fault) Unwrap() []error {
	if f.Err == nil {
		return []error{ErrTransformFailed}
	}
	return []error{ErrTransformFailed, f.Err}
}

// Kind is always unitmod.TransformationFault.
func (f *Fault) Kind() unitmod.FaultKind { return unitmod.TransformationFault }

// AsFault returns the first *Fault in err's chain.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
