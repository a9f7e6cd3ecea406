// Package toposort orders named nodes under "runs before" constraints.
//
// The sort is stable: when several nodes are ready at the same time the one
// that was added first wins, so unconstrained nodes keep their insertion order.
package toposort

import (
	"fmt"
	"strings"
)

// CycleError reports a set of constraints that cannot be satisfied.
// Cycle holds the shortest cycle found, in edge order, without repeating the
// first node at the end.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	if len(e.Cycle) == 0 {
		return "circular ordering constraint"
	}
	path := append(append([]string{}, e.Cycle...), e.Cycle[0])
	return fmt.Sprintf("circular ordering constraint: %s", strings.Join(path, " -> "))
}

// Graph accumulates nodes and "from runs before to" edges.
type Graph struct {
	index map[string]int
	nodes []string
	edges [][]int
	seen  map[[2]int]bool
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		index: make(map[string]int),
		seen:  make(map[[2]int]bool),
	}
}

// AddNode registers a node. Adding an existing node is a no-op and keeps its
// original position.
func (g *Graph) AddNode(name string) {
	if _, ok := g.index[name]; ok {
		return
	}
	g.index[name] = len(g.nodes)
	g.nodes = append(g.nodes, name)
	g.edges = append(g.edges, nil)
}

// Has reports whether name was added.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// AddEdge records that from must come before to. Edges that mention unknown
// nodes are ignored; callers decide whether a dangling reference is an error.
func (g *Graph) AddEdge(from, to string) bool {
	f, ok := g.index[from]
	if !ok {
		return false
	}
	t, ok := g.index[to]
	if !ok {
		return false
	}
	key := [2]int{f, t}
	if g.seen[key] {
		return true
	}
	g.seen[key] = true
	g.edges[f] = append(g.edges[f], t)
	return true
}

// Sort returns the nodes in an order satisfying every edge. Ties are broken
// by insertion order. A *CycleError is returned when no order exists.
func (g *Graph) Sort() ([]string, error) {
	n := len(g.nodes)
	inDegree := make([]int, n)
	for _, targets := range g.edges {
		for _, t := range targets {
			inDegree[t]++
		}
	}

	done := make([]bool, n)
	result := make([]string, 0, n)
	for len(result) < n {
		next := -1
		for i := 0; i < n; i++ {
			if !done[i] && inDegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			return nil, &CycleError{Cycle: g.shortestCycle(done)}
		}
		done[next] = true
		result = append(result, g.nodes[next])
		for _, t := range g.edges[next] {
			inDegree[t]--
		}
	}
	return result, nil
}

// shortestCycle runs a BFS from every unsorted node and keeps the shortest
// path that returns to its start.
func (g *Graph) shortestCycle(done []bool) []string {
	var best []int
	for start := range g.nodes {
		if done[start] {
			continue
		}
		parent := make(map[int]int)
		queue := []int{start}
		visited := map[int]bool{start: true}
		var found []int
	search:
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, nxt := range g.edges[cur] {
				if done[nxt] {
					continue
				}
				if nxt == start {
					path := []int{cur}
					for p := cur; p != start; {
						p = parent[p]
						path = append(path, p)
					}
					for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
						path[i], path[j] = path[j], path[i]
					}
					found = path
					break search
				}
				if !visited[nxt] {
					visited[nxt] = true
					parent[nxt] = cur
					queue = append(queue, nxt)
				}
			}
		}
		if found != nil && (best == nil || len(found) < len(best)) {
			best = found
		}
	}

	cycle := make([]string, 0, len(best))
	for _, i := range best {
		cycle = append(cycle, g.nodes[i])
	}
	return cycle
}
