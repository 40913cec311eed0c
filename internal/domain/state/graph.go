package state

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// Errors for DependencyGraph operations.
var (
	ErrDuplicateStep    = errors.New("step already registered")
	ErrCyclicDependency = errors.New("cyclic dependency detected")
	ErrMissingDep       = errors.New("dependency on unregistered step")
)

// DependencyGraph records which steps become stale when a step is invalidated.
// Edges point from a step to the steps that consume its output.
type DependencyGraph[S cmp.Ordered] struct {
	names      map[S]string
	dependents map[S][]S
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph[S cmp.Ordered]() *DependencyGraph[S] {
	return &DependencyGraph[S]{
		names:      make(map[S]string),
		dependents: make(map[S][]S),
	}
}

// Add registers a step with a display name.
func (g *DependencyGraph[S]) Add(step S, name string) error {
	if _, exists := g.names[step]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateStep, name)
	}
	g.names[step] = name
	return nil
}

// DependsOn declares that every step in dependents consumes the output of step.
func (g *DependencyGraph[S]) DependsOn(step S, dependents ...S) {
	g.dependents[step] = append(g.dependents[step], dependents...)
}

// Len returns the number of registered steps.
func (g *DependencyGraph[S]) Len() int {
	return len(g.names)
}

// Name returns the display name of step.
func (g *DependencyGraph[S]) Name(step S) string {
	return g.names[step]
}

// Validate checks that every edge refers to registered steps and that the graph is acyclic.
func (g *DependencyGraph[S]) Validate() error {
	for from, deps := range g.dependents {
		if _, ok := g.names[from]; !ok {
			return fmt.Errorf("%w: %v", ErrMissingDep, from)
		}
		for _, to := range deps {
			if _, ok := g.names[to]; !ok {
				return fmt.Errorf("%w: %s -> %v", ErrMissingDep, g.names[from], to)
			}
		}
	}
	_, err := g.TopologicalSort()
	return err
}

// TopologicalSort returns the steps so that every step precedes its dependents.
// Ties are broken by step value so the order is stable.
func (g *DependencyGraph[S]) TopologicalSort() ([]S, error) {
	inDegree := make(map[S]int, len(g.names))
	for step := range g.names {
		inDegree[step] = 0
	}
	for _, deps := range g.dependents {
		for _, to := range deps {
			inDegree[to]++
		}
	}

	var queue []S
	for step, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, step)
		}
	}
	slices.Sort(queue)

	sorted := make([]S, 0, len(g.names))
	for len(queue) > 0 {
		step := queue[0]
		queue = queue[1:]
		sorted = append(sorted, step)

		var ready []S
		for _, to := range g.dependents[step] {
			inDegree[to]--
			if inDegree[to] == 0 {
				ready = append(ready, to)
			}
		}
		slices.Sort(ready)
		queue = append(queue, ready...)
	}

	if len(sorted) != len(g.names) {
		return nil, ErrCyclicDependency
	}
	return sorted, nil
}

// Closure returns every step transitively depending on step, excluding step itself,
// in ascending order.
func (g *DependencyGraph[S]) Closure(step S) []S {
	seen := map[S]bool{step: true}
	stack := []S{step}
	var out []S
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, to := range g.dependents[cur] {
			if seen[to] {
				continue
			}
			seen[to] = true
			out = append(out, to)
			stack = append(stack, to)
		}
	}
	slices.Sort(out)
	return out
}
