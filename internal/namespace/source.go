// SPDX-License-Identifier: MPL-2.0

package namespace

import (
	"fmt"
	"io/fs"

	"github.com/invowk/modhost/pkg/unitcode"
)

type (
	// Source provides the raw files behind a namespace. Misses must wrap
	// fs.ErrNotExist. Unit origins from discovery satisfy it.
	Source interface {
		ReadFile(name string) ([]byte, error)
	}

	// Materializer turns raw class documents into their resident form.
	// The transformation pipeline satisfies it.
	Materializer interface {
		Apply(id string, raw []byte) ([]byte, bool, error)
	}

	// StaticSource is an in-memory Source keyed by slash-separated name.
	StaticSource map[string][]byte

	// Symbol is a class resident in a namespace.
	Symbol struct {
		ID string
		// Data is the materialized class document.
		Data []byte
		// Namespace is the name of the namespace that materialized it.
		Namespace string
		// Transformed reports whether the pipeline rewrote the document.
		Transformed bool
	}
)

// ReadFile implements Source.
func (s StaticSource) ReadFile(name string) ([]byte, error) {
	data, ok := s[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return data, nil
}

// AddClass stores cls at its resource path.
func (s StaticSource) AddClass(cls *unitcode.Class) error {
	data, err := unitcode.EncodeClass(cls)
	if err != nil {
		return fmt.Errorf("add class: %w", err)
	}
	s[unitcode.ResourcePath(cls.Name)] = data
	return nil
}

// Class decodes the symbol.
func (s *Symbol) Class() (*unitcode.Class, error) {
	return unitcode.DecodeClass(s.Data)
}
