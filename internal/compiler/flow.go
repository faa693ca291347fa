package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/storyweave/internal/ir"
)

// FlowWarning describes a structural oddity in the story graph.
//
// These are warnings, not errors. Loops are normal in stories (a player can
// return to a node); what is flagged is a loop nothing leads out of, or a
// node the start node can never reach.
type FlowWarning struct {
	Nodes   []string `json:"nodes"`
	Message string   `json:"message"`
	Kind    string   `json:"kind"` // "unreachable" or "trap"
}

// AnalyzeFlow performs static analysis of node transitions.
//
// The algorithm:
//  1. build node -> target edges from every transition (conditions ignored)
//  2. walk from the first node in load order; unvisited nodes are unreachable
//  3. find strongly connected components with Tarjan's algorithm
//  4. report each cyclic SCC with no edge leaving it as a trap
//
// Edges to missing nodes are ignored here; Validate reports them.
func AnalyzeFlow(cfg *ir.Config) []FlowWarning {
	if len(cfg.Story.Nodes) == 0 {
		return []FlowWarning{}
	}

	graph, order := buildNodeGraph(cfg)
	var warnings []FlowWarning

	reached := reachable(order[0], graph)
	var unreachable []string
	for _, id := range order {
		if !reached[id] {
			unreachable = append(unreachable, id)
		}
	}
	if len(unreachable) > 0 {
		warnings = append(warnings, FlowWarning{
			Nodes:   unreachable,
			Message: fmt.Sprintf("nodes not reachable from %q: %s", order[0], strings.Join(unreachable, ", ")),
			Kind:    "unreachable",
		})
	}

	for _, scc := range tarjanSCC(graph, order) {
		if len(scc) == 1 && !hasSelfLoop(scc[0], graph) {
			continue
		}
		if leavesComponent(scc, graph) {
			continue
		}
		slices.SortFunc(scc, func(a, b string) int {
			return slices.Index(order, a) - slices.Index(order, b)
		})
		path := reconstructCyclePath(scc, graph)
		warnings = append(warnings, FlowWarning{
			Nodes:   scc,
			Message: fmt.Sprintf("loop with no way out: %s", strings.Join(path, " → ")),
			Kind:    "trap",
		})
	}

	return warnings
}

// nodeGraph maps node id -> distinct target ids in declaration order.
type nodeGraph map[string][]string

func buildNodeGraph(cfg *ir.Config) (nodeGraph, []string) {
	graph := make(nodeGraph, len(cfg.Story.Nodes))
	order := make([]string, 0, len(cfg.Story.Nodes))
	for _, n := range cfg.Story.Nodes {
		if _, seen := graph[n.ID]; !seen {
			order = append(order, n.ID)
			graph[n.ID] = []string{}
		}
	}
	for _, n := range cfg.Story.Nodes {
		for _, t := range n.Next {
			if _, ok := graph[t.Target]; !ok {
				continue
			}
			if !slices.Contains(graph[n.ID], t.Target) {
				graph[n.ID] = append(graph[n.ID], t.Target)
			}
		}
	}
	return graph, order
}

func reachable(start string, graph nodeGraph) map[string]bool {
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range graph[cur] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}

func hasSelfLoop(node string, graph nodeGraph) bool {
	return slices.Contains(graph[node], node)
}

// leavesComponent reports whether any member has an edge outside the SCC.
func leavesComponent(scc []string, graph nodeGraph) bool {
	for _, node := range scc {
		for _, next := range graph[node] {
			if !slices.Contains(scc, next) {
				return true
			}
		}
	}
	return false
}

// tarjanSCC finds strongly connected components. Nodes are visited in load
// order so output is deterministic.
func tarjanSCC(graph nodeGraph, order []string) [][]string {
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

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// reconstructCyclePath follows edges inside the SCC from its first member
// back to itself.
func reconstructCyclePath(scc []string, graph nodeGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if slices.Contains(scc, neighbor) && (!visited[neighbor] || neighbor == start) {
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
