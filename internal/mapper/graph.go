package mapper

import (
	"fmt"
	"strings"

	"github.com/strata-db/strata/internal/annotation"
)

// DependencyGraph is the belongsTo dependency graph between mapped entities.
// An edge A -> B means A's table carries a foreign key derived from B, so
// B's table must exist first. Only relations whose target is itself part of
// the mapping become edges; self references are not edges since they never
// constrain creation order.
type DependencyGraph struct {
	order []string
	edges map[string][]string
}

// NewDependencyGraph builds the graph for a mapping. Traversal order is the
// mapping's build order, so results are deterministic.
func NewDependencyGraph(mapping *Mapping) *DependencyGraph {
	g := &DependencyGraph{edges: make(map[string][]string)}
	for _, entity := range mapping.Entities() {
		g.order = append(g.order, entity.Class)
		seen := make(map[string]bool)
		for _, rel := range entity.Relations {
			if rel.Type != annotation.RelationBelongsTo {
				continue
			}
			target := rel.RelatedClass
			if target == entity.Class || seen[target] {
				continue
			}
			if _, ok := mapping.Entity(target); !ok {
				continue
			}
			seen[target] = true
			g.edges[entity.Class] = append(g.edges[entity.Class], target)
		}
	}
	return g
}

// Dependencies returns the classes the given class directly depends on.
func (g *DependencyGraph) Dependencies(class string) []string {
	deps := make([]string, len(g.edges[class]))
	copy(deps, g.edges[class])
	return deps
}

// Dependents returns the classes that directly depend on the given class.
func (g *DependencyGraph) Dependents(class string) []string {
	var dependents []string
	for _, node := range g.order {
		for _, dep := range g.edges[node] {
			if dep == class {
				dependents = append(dependents, node)
				break
			}
		}
	}
	return dependents
}

// DetectCycles returns every belongsTo cycle found in the graph.
func (g *DependencyGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var dfs func(node string, path []string) bool
	dfs = func(node string, path []string) bool {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for _, neighbor := range g.edges[node] {
			if !visited[neighbor] {
				if dfs(neighbor, path) {
					return true
				}
			} else if onStack[neighbor] {
				start := -1
				for i, n := range path {
					if n == neighbor {
						start = i
						break
					}
				}
				if start >= 0 {
					cycle := make([]string, len(path)-start)
					copy(cycle, path[start:])
					cycles = append(cycles, cycle)
				}
				return true
			}
		}

		onStack[node] = false
		return false
	}

	for _, node := range g.order {
		if !visited[node] {
			dfs(node, nil)
		}
	}
	return cycles
}

// TopologicalSort returns the classes in safe creation order, dependencies
// first. It fails when the graph has a cycle.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	outDegree := make(map[string]int)
	for _, node := range g.order {
		outDegree[node] = len(g.edges[node])
	}

	reverse := make(map[string][]string)
	for _, node := range g.order {
		for _, target := range g.edges[node] {
			reverse[target] = append(reverse[target], node)
		}
	}

	var queue []string
	for _, node := range g.order {
		if outDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, dependent := range reverse[node] {
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.order) {
		if cycles := g.DetectCycles(); len(cycles) > 0 {
			return nil, fmt.Errorf("circular belongsTo dependency: %s", formatCycles(cycles))
		}
		return nil, fmt.Errorf("circular belongsTo dependency")
	}
	return result, nil
}

func formatCycles(cycles [][]string) string {
	var b strings.Builder
	for i, cycle := range cycles {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(strings.Join(cycle, " -> "))
		b.WriteString(" -> " + cycle[0])
	}
	return b.String()
}
