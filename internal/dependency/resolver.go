// Package dependency orders diagram nodes along their edges.
package dependency

import (
	"errors"
	"fmt"
	"sort"

	"github.com/json-to-terraform/atc/internal/diagram"
)

// ErrCycle is returned when the edges form a cycle. The editor accepts
// cycles; only generation needs an order and rejects them.
var ErrCycle = errors.New("dependency cycle detected")

// Resolve returns the node ids in topological order (an edge's source
// before its target) and grouped into tiers: tier 0 has no incoming edges,
// tier n depends only on earlier tiers. Within a tier ids keep diagram
// order. Self edges and edges to unknown nodes are ignored; duplicate
// edges count once.
func Resolve(d *diagram.Diagram) (ordered []string, tiers [][]string, err error) {
	if d == nil || len(d.Nodes) == 0 {
		return nil, nil, nil
	}

	pos := make(map[string]int, len(d.Nodes))
	for i := range d.Nodes {
		pos[d.Nodes[i].ID] = i
	}

	inDegree := make(map[string]int, len(d.Nodes))
	succ := make(map[string][]string)
	seen := make(map[[2]string]bool)
	for _, e := range d.Edges {
		_, okS := pos[e.Source]
		_, okT := pos[e.Target]
		key := [2]string{e.Source, e.Target}
		if !okS || !okT || e.Source == e.Target || seen[key] {
			continue
		}
		seen[key] = true
		succ[e.Source] = append(succ[e.Source], e.Target)
		inDegree[e.Target]++
	}

	var queue []string
	for i := range d.Nodes {
		if inDegree[d.Nodes[i].ID] == 0 {
			queue = append(queue, d.Nodes[i].ID)
		}
	}

	ordered = make([]string, 0, len(d.Nodes))
	for len(queue) > 0 {
		tiers = append(tiers, queue)
		var next []string
		for _, u := range queue {
			ordered = append(ordered, u)
			for _, v := range succ[u] {
				inDegree[v]--
				if inDegree[v] == 0 {
					next = append(next, v)
				}
			}
		}
		sort.Slice(next, func(i, j int) bool { return pos[next[i]] < pos[next[j]] })
		queue = next
	}

	if len(ordered) != len(d.Nodes) {
		var stuck []string
		for i := range d.Nodes {
			if inDegree[d.Nodes[i].ID] > 0 {
				stuck = append(stuck, d.Nodes[i].ID)
			}
		}
		return nil, nil, fmt.Errorf("%w among %v", ErrCycle, stuck)
	}
	return ordered, tiers, nil
}
