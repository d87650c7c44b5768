// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

type (
	// Predicate selects the class identifiers an entry applies to.
	Predicate interface {
		Match(id string) bool
	}

	// PredicateFunc adapts a function to Predicate.
	PredicateFunc func(id string) bool

	exact []string

	prefix string

	glob []string
)

// Match implements Predicate.
func (f PredicateFunc) Match(id string) bool { return f(id) }

// Any matches every identifier.
var Any Predicate = PredicateFunc(func(string) bool { return true })

// Exact matches the listed identifiers.
func Exact(ids ...string) Predicate { return exact(ids) }

func (e exact) Match(id string) bool { return slices.Contains(e, id) }

// Prefix matches identifiers starting with p.
func Prefix(p string) Predicate { return prefix(p) }

func (p prefix) Match(id string) bool { return strings.HasPrefix(id, string(p)) }

// Glob matches identifiers against doublestar patterns in which '.' plays
// the role of the path separator: "com.example.*" matches direct members of
// com.example, "com.example.**" matches the whole subtree. An empty pattern
// list matches everything.
func Glob(patterns ...string) (Predicate, error) {
	if len(patterns) == 0 {
		return Any, nil
	}
	g := make(glob, 0, len(patterns))
	for _, pat := range patterns {
		p := dotsToSlashes(pat)
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid target pattern %q", pat)
		}
		g = append(g, p)
	}
	return g, nil
}

func (g glob) Match(id string) bool {
	name := dotsToSlashes(id)
	for _, pat := range g {
		if matched, err := doublestar.Match(pat, name); err == nil && matched {
			return true
		}
	}
	return false
}

func dotsToSlashes(s string) string { return strings.ReplaceAll(s, ".", "/") }
