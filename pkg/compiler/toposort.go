package compiler

import (
	"slices"

	"github.com/dukex/graphflow/pkg/models"
)

// topologicalOrder runs Kahn's algorithm over every edge. When several nodes
// are ready the one declared first wins, so the order is deterministic. The
// second result lists the nodes left unordered by a cycle.
func topologicalOrder(g *models.Graph) ([]string, []string) {
	index := make(map[string]int, len(g.Nodes))
	for i, node := range g.Nodes {
		index[node.ID] = i
	}

	inDegree := make([]int, len(g.Nodes))
	successors := make([][]int, len(g.Nodes))

	for _, edge := range g.Edges {
		source, target := index[edge.Source], index[edge.Target]
		successors[source] = append(successors[source], target)
		inDegree[target]++
	}

	var ready []int

	for i := range g.Nodes {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]string, 0, len(g.Nodes))

	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]

		order = append(order, g.Nodes[current].ID)

		for _, next := range successors[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				pos, _ := slices.BinarySearch(ready, next)
				ready = slices.Insert(ready, pos, next)
			}
		}
	}

	var remaining []string

	for i, node := range g.Nodes {
		if inDegree[i] > 0 {
			remaining = append(remaining, node.ID)
		}
	}

	return order, remaining
}

const (
	white = iota
	grey
	black
)

// findCycle walks the nodes a cycle left unordered and returns one cycle.
func findCycle(g *models.Graph, remaining []string) []string {
	inCycle := make(map[string]bool, len(remaining))
	for _, id := range remaining {
		inCycle[id] = true
	}

	successors := make(map[string][]string)

	for _, edge := range g.Edges {
		if inCycle[edge.Source] && inCycle[edge.Target] {
			successors[edge.Source] = append(successors[edge.Source], edge.Target)
		}
	}

	color := make(map[string]int, len(remaining))

	var (
		stack []string
		cycle []string
	)

	var visit func(id string) bool

	visit = func(id string) bool {
		color[id] = grey
		stack = append(stack, id)

		for _, next := range successors[id] {
			switch color[next] {
			case grey:
				start := slices.Index(stack, next)
				cycle = append([]string{}, stack[start:]...)

				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black

		return false
	}

	for _, id := range remaining {
		if color[id] == white && visit(id) {
			return cycle
		}
	}

	return remaining
}
