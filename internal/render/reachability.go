package render

import (
	"pycdump/internal/bytecode"
	"pycdump/internal/graph"
)

// ReachableSet performs BFS from entry points following internal call
// edges and returns the set of all reachable unit names.
func ReachableSet(entryPoints []string, edges []graph.Edge) map[string]bool {
	adj := make(map[string][]string)
	for _, e := range edges {
		if e.Kind == bytecode.EdgeCall && e.Internal {
			adj[e.Caller] = append(adj[e.Caller], e.Callee)
		}
	}

	reachable := make(map[string]bool)
	queue := make([]string, 0, len(entryPoints))
	for _, ep := range entryPoints {
		if !reachable[ep] {
			reachable[ep] = true
			queue = append(queue, ep)
		}
	}

	for len(queue) > 0 {
		fn := queue[0]
		queue = queue[1:]
		for _, target := range adj[fn] {
			if !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}
	}
	return reachable
}
