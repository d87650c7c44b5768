// SPDX-License-Identifier: MPL-2.0

package namespace

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/sync/singleflight"

	"github.com/invowk/modhost/pkg/unitcode"
)

// RootName is the name of the root namespace.
const RootName = "<root>"

// Namespace resolves symbols for one unit, or for the platform when it is
// the root.
type Namespace struct {
	name   string
	source Source
	mgr    *Manager

	// edgeMu guards parents and children only; it is never held while
	// resolving.
	edgeMu   sync.RWMutex
	parents  []*Namespace
	children []*Namespace

	symbols cmap.ConcurrentMap[string, *Symbol]
	// flight collapses concurrent first lookups of one id so the class is
	// read and passed through the pipeline exactly once.
	flight singleflight.Group
}

// NewRoot creates the root namespace over the platform classes.
func NewRoot(platform Source) *Namespace {
	if platform == nil {
		platform = StaticSource{}
	}
	return &Namespace{name: RootName, source: platform, symbols: cmap.New[*Symbol]()}
}

// Name returns the owning unit name, or RootName.
func (n *Namespace) Name() string { return n.name }

// IsRoot reports whether n is the root namespace.
func (n *Namespace) IsRoot() bool { return n.mgr == nil }

// Parents returns a snapshot of the parent list in registration order.
func (n *Namespace) Parents() []*Namespace {
	n.edgeMu.RLock()
	defer n.edgeMu.RUnlock()
	return slices.Clone(n.parents)
}

// Children returns a snapshot of the child list.
func (n *Namespace) Children() []*Namespace {
	n.edgeMu.RLock()
	defer n.edgeMu.RUnlock()
	return slices.Clone(n.children)
}

// Resolve finds class id as seen from n. Identifiers under a protected
// prefix are only looked up in the root. A miss is a *SymbolNotFoundError;
// a pipeline failure is returned as is.
func (n *Namespace) Resolve(id string) (*Symbol, error) {
	var (
		sym *Symbol
		err error
	)
	if n.mgr != nil && n.mgr.protected.Match(id) {
		sym, err = n.mgr.root.local(id)
	} else {
		sym, err = n.resolve(id, map[*Namespace]bool{})
	}
	if err != nil {
		return nil, err
	}
	if sym == nil {
		return nil, &SymbolNotFoundError{ID: id, Namespace: n.name}
	}
	return sym, nil
}

// ResolveClass is Resolve followed by decoding the class document.
func (n *Namespace) ResolveClass(id string) (*unitcode.Class, error) {
	sym, err := n.Resolve(id)
	if err != nil {
		return nil, err
	}
	return sym.Class()
}

func (n *Namespace) resolve(id string, visited map[*Namespace]bool) (*Symbol, error) {
	if visited[n] {
		return nil, nil
	}
	visited[n] = true

	if sym, err := n.local(id); sym != nil || err != nil {
		return sym, err
	}
	for _, p := range n.Parents() {
		if sym, err := p.resolve(id, visited); sym != nil || err != nil {
			return sym, err
		}
	}
	return nil, nil
}

// local looks id up among n's resident symbols, then materializes it from
// n's source. Concurrent first lookups share one materialization.
func (n *Namespace) local(id string) (*Symbol, error) {
	if sym, ok := n.symbols.Get(id); ok {
		return sym, nil
	}
	v, err, _ := n.flight.Do(id, func() (any, error) {
		return n.materialize(id)
	})
	if err != nil {
		return nil, err
	}
	sym, _ := v.(*Symbol)
	return sym, nil
}

// materialize reads id from the source and runs it through the pipeline.
// It only runs inside n.flight, so at most one call per id is in progress.
func (n *Namespace) materialize(id string) (*Symbol, error) {
	if sym, ok := n.symbols.Get(id); ok {
		return sym, nil
	}
	raw, err := n.source.ReadFile(unitcode.ResourcePath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("namespace %s: read %s: %w", n.name, id, err)
	}
	sym := &Symbol{ID: id, Data: raw, Namespace: n.name}
	if n.mgr != nil && n.mgr.pipeline != nil {
		data, modified, err := n.mgr.pipeline.Apply(id, raw)
		if err != nil {
			return nil, err
		}
		sym.Data, sym.Transformed = data, modified
	}
	n.symbols.Set(id, sym)
	return sym, nil
}

// FindResource reads name from n's source, then from its descendants
// breadth-first. It returns the content and the namespace that held it.
func (n *Namespace) FindResource(name string) ([]byte, *Namespace, error) {
	visited := map[*Namespace]bool{n: true}
	queue := []*Namespace{n}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		data, err := cur.source.ReadFile(name)
		if err == nil {
			return data, cur, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("namespace %s: read %s: %w", cur.name, name, err)
		}
		for _, c := range cur.Children() {
			if !visited[c] {
				visited[c] = true
				queue = append(queue, c)
			}
		}
	}
	return nil, nil, fmt.Errorf("%s from %s: %w", name, n.name, ErrResourceNotFound)
}

// Resident returns the identifiers materialized in n so far.
func (n *Namespace) Resident() []string {
	ids := n.symbols.Keys()
	slices.Sort(ids)
	return ids
}
