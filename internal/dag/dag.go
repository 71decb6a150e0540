// SPDX-License-Identifier: MPL-2.0

// Package dag orders the packages reached by the dependency walk and reports
// the dependency cycles among them.
package dag

import (
	"fmt"
	"slices"
	"strings"
)

type (
	// CycleError is returned by LinkOrder when packages depend on each other
	// in a loop.
	CycleError struct {
		// Cycles lists each strongly connected group of packages, sorted.
		Cycles [][]string
	}

	// Edge is a "Dependent depends on Dependency" relation.
	Edge struct {
		Dependent  string `json:"dependent"`
		Dependency string `json:"dependency"`
	}

	// Graph is a package dependency graph.
	Graph struct {
		// deps maps each package to the packages it depends on.
		deps map[string][]string
		// nodes keeps first-insertion order for deterministic output.
		nodes   []string
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Cycles))
	for i, c := range e.Cycles {
		parts[i] = strings.Join(append(slices.Clone(c), c[0]), " -> ")
	}
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(parts, "; "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		deps:    make(map[string][]string),
		nodeSet: make(map[string]bool),
	}
}

// FromEdges builds a graph from a list of edges.
func FromEdges(edges []Edge) *Graph {
	g := New()
	for _, e := range edges {
		g.AddDependency(e.Dependent, e.Dependency)
	}
	return g
}

// AddNode adds a package. Adding an existing package is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddDependency records that dependent depends on dependency. Repeated edges
// are ignored.
func (g *Graph) AddDependency(dependent, dependency string) {
	g.AddNode(dependent)
	g.AddNode(dependency)
	if slices.Contains(g.deps[dependent], dependency) {
		return
	}
	g.deps[dependent] = append(g.deps[dependent], dependency)
}

// Nodes returns the packages in insertion order.
func (g *Graph) Nodes() []string { return slices.Clone(g.nodes) }

// LinkOrder returns the packages with every dependency before its dependents,
// using Kahn's algorithm. Packages at the same depth keep insertion order.
// A *CycleError is returned when the graph has a cycle.
func (g *Graph) LinkOrder() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	// remaining counts unresolved dependencies; dependents is the reverse map.
	remaining := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for _, node := range g.nodes {
		remaining[node] = len(g.deps[node])
		for _, dep := range g.deps[node] {
			dependents[dep] = append(dependents[dep], node)
		}
	}

	queue := make([]string, 0, len(g.nodes))
	for _, node := range g.nodes {
		if remaining[node] == 0 {
			queue = append(queue, node)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, dependent := range dependents[node] {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, &CycleError{Cycles: g.Cycles()}
	}
	return order, nil
}

// Cycles returns every group of packages that depend on each other, directly
// or transitively, including single packages that depend on themselves. Each
// group is sorted and the groups are ordered by their first member.
//
// The search is Tarjan's strongly connected components algorithm, run with an
// explicit stack.
func (g *Graph) Cycles() [][]string {
	var (
		index   = make(map[string]int, len(g.nodes))
		low     = make(map[string]int, len(g.nodes))
		onStack = make(map[string]bool, len(g.nodes))
		stack   []string
		next    int
		cycles  [][]string
	)

	type frame struct {
		node string
		edge int
	}

	for _, root := range g.nodes {
		if _, seen := index[root]; seen {
			continue
		}

		index[root], low[root] = next, next
		next++
		stack = append(stack, root)
		onStack[root] = true
		work := []frame{{node: root}}

		for len(work) > 0 {
			top := &work[len(work)-1]
			if top.edge < len(g.deps[top.node]) {
				dep := g.deps[top.node][top.edge]
				top.edge++
				if _, seen := index[dep]; !seen {
					index[dep], low[dep] = next, next
					next++
					stack = append(stack, dep)
					onStack[dep] = true
					work = append(work, frame{node: dep})
				} else if onStack[dep] {
					low[top.node] = min(low[top.node], index[dep])
				}
				continue
			}

			node := top.node
			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := work[len(work)-1].node
				low[parent] = min(low[parent], low[node])
			}
			if low[node] != index[node] {
				continue
			}

			var component []string
			for {
				last := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[last] = false
				component = append(component, last)
				if last == node {
					break
				}
			}
			if len(component) > 1 || slices.Contains(g.deps[node], node) {
				slices.Sort(component)
				cycles = append(cycles, component)
			}
		}
	}

	slices.SortFunc(cycles, func(a, b []string) int { return strings.Compare(a[0], b[0]) })
	return cycles
}
