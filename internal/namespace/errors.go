// SPDX-License-Identifier: MPL-2.0

package namespace

import (
	"errors"
	"fmt"
)

var (
	// ErrSymbolNotFound is wrapped by SymbolNotFoundError.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrResourceNotFound is returned by FindResource on a miss.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrNoLiveParent means none of a unit's dependencies has a live namespace.
	ErrNoLiveParent = errors.New("no live parent namespace")
	// ErrNamespaceExists means a live namespace already uses the name.
	ErrNamespaceExists = errors.New("namespace already exists")
	// ErrNamespaceNotFound means no live namespace has the name.
	ErrNamespaceNotFound = errors.New("namespace not found")
)

// SymbolNotFoundError reports a lookup miss.
type SymbolNotFoundError struct {
	ID        string
	Namespace string
}

// Error implements the error interface.
func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("symbol %s not found from namespace %s", e.ID, e.Namespace)
}

// Unwrap returns ErrSymbolNotFound for errors.Is compatibility.
func (e *SymbolNotFoundError) Unwrap() error { return ErrSymbolNotFound }
