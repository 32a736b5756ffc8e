package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// SuperTypeCycle is an inheritance cycle among declared node types. A type
// cannot be its own ancestor, so every cycle is an error.
type SuperTypeCycle struct {
	Path    []string `json:"path"`    // Cycle path: ["a:A", "a:B", "a:A"]
	Message string   `json:"message"` // Human-readable description
}

// AnalyzeCycles detects supertype cycles among node type declarations.
//
// The algorithm:
//  1. Build the type → supertypes graph from the declarations
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a cycle
//
// A DAG (no cycles) returns an empty list.
func AnalyzeCycles(decls []NodeTypeDecl) []SuperTypeCycle {
	graph := make(dependencyGraph, len(decls))
	for _, d := range decls {
		graph[d.Name] = append([]string{}, d.SuperTypes...)
	}

	var cycles []SuperTypeCycle
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i].Path[0] < cycles[j].Path[0] })
	return cycles
}

// dependencyGraph maps a node type to its declared supertypes.
type dependencyGraph map[string][]string

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of type names.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	// Visit nodes in sorted order so results do not depend on map order
	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// sccToCycle converts an SCC to a SuperTypeCycle starting at its smallest name.
func sccToCycle(scc []string, graph dependencyGraph) SuperTypeCycle {
	sorted := append([]string{}, scc...)
	sort.Strings(sorted)

	if len(sorted) == 1 {
		name := sorted[0]
		return SuperTypeCycle{
			Path:    []string{name, name},
			Message: fmt.Sprintf("node type %s inherits from itself", name),
		}
	}

	path := reconstructCyclePath(sorted, graph)
	return SuperTypeCycle{
		Path:    path,
		Message: fmt.Sprintf("supertype cycle: %s", strings.Join(path, " → ")),
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at first node in SCC, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}
