// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"errors"
	"fmt"

	"github.com/invowk/modhost/pkg/unitapi"
)

// ErrInvalidEntry is returned by Pipeline.Add for entries without an ID or
// transform function.
var ErrInvalidEntry = errors.New("invalid transformer entry")

type (
	// Func rewrites a class in place. See unitapi.TransformFunc.
	Func = unitapi.TransformFunc

	// Entry is a transformer registered in the pipeline.
	Entry struct {
		ID        string
		Owner     string
		Target    Predicate
		Priority  int
		Transform Func
	}

	// registered is an Entry plus its insertion sequence.
	registered struct {
		Entry
		seq uint64
	}
)

// FromSpec builds an entry owned by owner from a unit-supplied spec.
func FromSpec(owner string, spec unitapi.TransformerSpec) (Entry, error) {
	target, err := Glob(spec.Targets...)
	if err != nil {
		return Entry{}, fmt.Errorf("transformer %s: %w", spec.ID, err)
	}
	id := spec.ID
	if id == "" {
		id = owner + ":transformer"
	}
	return Entry{
		ID:        id,
		Owner:     owner,
		Target:    target,
		Priority:  spec.Priority,
		Transform: spec.Transform,
	}, nil
}

func (e Entry) validate() error {
	switch {
	case e.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidEntry)
	case e.Transform == nil:
		return fmt.Errorf("%w: %s has no transform function", ErrInvalidEntry, e.ID)
	}
	return nil
}
