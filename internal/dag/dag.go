// SPDX-License-Identifier: MPL-2.0

// Package dag orders named nodes by their "requires" relationships. It is
// used by the resolver to compute a unit load order and by the lifecycle
// manager to compute unload cascades.
package dag

import (
	"fmt"
	"slices"
	"strings"
)

type (
	// CycleError indicates that some nodes could never be scheduled because
	// they are part of, or depend on, a cycle or an unknown node.
	CycleError struct {
		// Cycle lists the unscheduled nodes in insertion order.
		Cycle []string
		// Unsatisfied maps each unscheduled node to the requirements that
		// were still outstanding when scheduling stopped.
		Unsatisfied map[string][]string
	}

	// Graph is a directed graph of requirements.
	// Nodes are identified by string keys. Require(node, dep) means dep must
	// be scheduled before node.
	Graph struct {
		// requires maps each node to the nodes it requires, deduplicated.
		requires map[string][]string
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes []string
		// nodeSet provides O(1) lookup for node existence.
		nodeSet map[string]bool
	}

	// Schedule is the result of a round-based topological sort.
	Schedule struct {
		// Rounds holds the nodes that became ready together, in insertion order.
		Rounds [][]string
		// Order is Rounds flattened.
		Order []string
		// Unsatisfied maps each node that was never scheduled to its
		// outstanding requirements. Empty when every node was scheduled.
		Unsatisfied map[string][]string
		// Leftover lists the unscheduled nodes in insertion order.
		Leftover []string
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		requires: make(map[string][]string),
		nodeSet:  make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// Require records that node needs dep scheduled first. node is added if
// missing; dep is not. A requirement on a node that is never added can never
// be satisfied, which is how callers pin a node as blocked.
func (g *Graph) Require(node, dep string) {
	g.AddNode(node)
	if slices.Contains(g.requires[node], dep) {
		return
	}
	g.requires[node] = append(g.requires[node], dep)
}

// Schedule runs Kahn's algorithm in rounds. Each round selects every
// unscheduled node whose outstanding requirements are empty, in insertion
// order, then removes the selected nodes from every outstanding list.
// Scheduling stops when a round selects nothing.
func (g *Graph) Schedule() *Schedule {
	remaining := make(map[string][]string, len(g.nodes))
	for _, node := range g.nodes {
		remaining[node] = slices.Clone(g.requires[node])
	}

	s := &Schedule{Unsatisfied: map[string][]string{}}
	scheduled := make(map[string]bool, len(g.nodes))

	for len(scheduled) < len(g.nodes) {
		var round []string
		for _, node := range g.nodes {
			if !scheduled[node] && len(remaining[node]) == 0 {
				round = append(round, node)
			}
		}
		if len(round) == 0 {
			break
		}
		for _, node := range round {
			scheduled[node] = true
		}
		for node, reqs := range remaining {
			remaining[node] = slices.DeleteFunc(reqs, func(dep string) bool {
				return scheduled[dep]
			})
		}
		s.Rounds = append(s.Rounds, round)
		s.Order = append(s.Order, round...)
	}

	for _, node := range g.nodes {
		if !scheduled[node] {
			s.Leftover = append(s.Leftover, node)
			s.Unsatisfied[node] = remaining[node]
		}
	}
	return s
}

// Err returns a *CycleError describing the leftover nodes, or nil.
func (s *Schedule) Err() error {
	if len(s.Leftover) == 0 {
		return nil
	}
	return &CycleError{Cycle: s.Leftover, Unsatisfied: s.Unsatisfied}
}

// TopologicalSort returns the flattened schedule, or a CycleError if any
// node could not be scheduled.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}
	s := g.Schedule()
	if err := s.Err(); err != nil {
		return nil, err
	}
	return s.Order, nil
}
