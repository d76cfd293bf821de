package metadata

import (
	"fmt"
	"sort"
)

// DependencyGraph is the relation graph over a snapshot's entities. Nodes
// are classes; edges are declared relations.
type DependencyGraph struct {
	Nodes map[string]*DependencyNode `json:"nodes"`
	Edges []DependencyEdge           `json:"edges"`
}

// DependencyNode is one entity in the graph.
type DependencyNode struct {
	Class string `json:"class"`
	Table string `json:"table,omitempty"`
}

// DependencyEdge is one relation between two entities.
type DependencyEdge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Relation string `json:"relation"`
	Kind     string `json:"kind"`
}

// DependencyOptions configures dependency queries.
type DependencyOptions struct {
	Depth   int      // maximum traversal depth (0 = unlimited)
	Reverse bool     // traverse incoming edges (what targets this class)
	Kinds   []string // keep only edges of these relation kinds
}

// BuildDependencyGraph constructs the full relation graph of a snapshot.
// morphTo relations have no static target and contribute no edge.
func BuildDependencyGraph(snapshot *Snapshot) *DependencyGraph {
	graph := &DependencyGraph{
		Nodes: make(map[string]*DependencyNode),
		Edges: make([]DependencyEdge, 0),
	}
	if snapshot == nil {
		return graph
	}

	for i := range snapshot.Entities {
		entity := &snapshot.Entities[i]
		graph.Nodes[entity.Class] = &DependencyNode{
			Class: entity.Class,
			Table: entity.Table.Name,
		}

		for _, rel := range entity.Relations {
			if rel.Related == "" {
				continue
			}
			graph.Edges = append(graph.Edges, DependencyEdge{
				From:     entity.Class,
				To:       rel.Related,
				Relation: rel.Name,
				Kind:     rel.Kind,
			})
			if _, exists := graph.Nodes[rel.Related]; !exists {
				graph.Nodes[rel.Related] = &DependencyNode{Class: rel.Related}
			}
		}
	}
	return graph
}

// WithKinds returns a copy of the graph keeping only edges of the given
// relation kinds. Nodes are kept as-is.
func (g *DependencyGraph) WithKinds(kinds ...string) *DependencyGraph {
	kindSet := make(map[string]bool)
	for _, k := range kinds {
		kindSet[k] = true
	}
	filtered := &DependencyGraph{
		Nodes: g.Nodes,
		Edges: make([]DependencyEdge, 0),
	}
	for _, edge := range g.Edges {
		if kindSet[edge.Kind] {
			filtered.Edges = append(filtered.Edges, edge)
		}
	}
	return filtered
}

// Dependencies extracts the subgraph reachable from a class, honoring the
// depth, direction, and kind filters in opts.
func (r *Registry) Dependencies(class string, opts DependencyOptions) (*DependencyGraph, error) {
	if _, ok := r.entitiesByClass[class]; !ok {
		return nil, fmt.Errorf("entity not found: %s", class)
	}

	full := BuildDependencyGraph(r.snapshot)
	if len(opts.Kinds) > 0 {
		full = full.WithKinds(opts.Kinds...)
	}
	return extractSubgraph(full, class, opts), nil
}

// DependencyDepth returns the longest outgoing relation chain from a class.
// Chains never revisit a class, so cyclic graphs terminate.
func (r *Registry) DependencyDepth(class string) (int, error) {
	graph, err := r.Dependencies(class, DependencyOptions{})
	if err != nil {
		return 0, err
	}

	onPath := make(map[string]bool)
	var walk func(class string, depth int) int
	walk = func(class string, depth int) int {
		onPath[class] = true
		deepest := depth
		for _, edge := range outgoingEdges(graph, class) {
			if onPath[edge.To] {
				continue
			}
			if d := walk(edge.To, depth+1); d > deepest {
				deepest = d
			}
		}
		onPath[class] = false
		return deepest
	}
	return walk(class, 0), nil
}

// DetectCycles returns every relation cycle in the graph. A cycle is
// reported as the class path that closes it.
func DetectCycles(graph *DependencyGraph) [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	nodes := make([]string, 0, len(graph.Nodes))
	for class := range graph.Nodes {
		nodes = append(nodes, class)
	}
	sort.Strings(nodes)

	for _, class := range nodes {
		if !visited[class] {
			findCycles(graph, class, visited, onStack, nil, &cycles)
		}
	}
	return cycles
}

type depthNode struct {
	class string
	depth int
}

func extractSubgraph(full *DependencyGraph, start string, opts DependencyOptions) *DependencyGraph {
	result := &DependencyGraph{
		Nodes: make(map[string]*DependencyNode),
		Edges: make([]DependencyEdge, 0),
	}

	visited := map[string]bool{start: true}
	if node, exists := full.Nodes[start]; exists {
		result.Nodes[start] = node
	}

	queue := []depthNode{{class: start, depth: 0}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		var edges []DependencyEdge
		if opts.Reverse {
			edges = incomingEdges(full, current.class)
		} else {
			edges = outgoingEdges(full, current.class)
		}

		for _, edge := range edges {
			result.Edges = append(result.Edges, edge)

			next := edge.To
			if opts.Reverse {
				next = edge.From
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			if node, exists := full.Nodes[next]; exists {
				result.Nodes[next] = node
			}
			if opts.Depth == 0 || current.depth+1 < opts.Depth {
				queue = append(queue, depthNode{class: next, depth: current.depth + 1})
			}
		}
	}
	return result
}

func outgoingEdges(graph *DependencyGraph, class string) []DependencyEdge {
	var result []DependencyEdge
	for _, edge := range graph.Edges {
		if edge.From == class {
			result = append(result, edge)
		}
	}
	return result
}

func incomingEdges(graph *DependencyGraph, class string) []DependencyEdge {
	var result []DependencyEdge
	for _, edge := range graph.Edges {
		if edge.To == class {
			result = append(result, edge)
		}
	}
	return result
}

func findCycles(graph *DependencyGraph, class string, visited, onStack map[string]bool, path []string, cycles *[][]string) {
	visited[class] = true
	onStack[class] = true
	path = append(path, class)

	for _, edge := range outgoingEdges(graph, class) {
		next := edge.To
		if onStack[next] {
			start := -1
			for i, n := range path {
				if n == next {
					start = i
					break
				}
			}
			if start >= 0 {
				cycle := make([]string, len(path)-start)
				copy(cycle, path[start:])
				cycle = append(cycle, next)
				*cycles = append(*cycles, cycle)
			}
		} else if !visited[next] {
			findCycles(graph, next, visited, onStack, path, cycles)
		}
	}
	onStack[class] = false
}
