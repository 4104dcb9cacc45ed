package graph

import (
	"github.com/zboralski/lattice"

	"pycdump/internal/bytecode"
)

// Edge is a call edge with its callee mapped onto the file's units.
type Edge struct {
	Caller   string `json:"caller"`
	Callee   string `json:"callee"` // unit name, the raw callee text, or "" if unknown
	Kind     string `json:"kind"`
	Offset   int    `json:"offset"`
	Internal bool   `json:"internal"` // Callee names a unit in the file
}

// Edges returns every def and call edge of units with callees resolved.
func Edges(units []*Unit) []Edge {
	r := newResolver(units)
	var out []Edge
	for _, u := range units {
		for _, e := range u.Edges {
			callee := r.resolve(u, e.Callee)
			out = append(out, Edge{
				Caller:   u.Name,
				Callee:   callee,
				Kind:     e.Kind,
				Offset:   e.Offset,
				Internal: r.byName[callee] != nil,
			})
		}
	}
	return out
}

// BuildCallGraph constructs a lattice.Graph from collected units.
// Each unit becomes a node. Each def or call edge with a known callee
// becomes an edge; callees naming a unit in the file are mapped onto that
// unit's node. Calls whose callee could not be recovered are skipped.
func BuildCallGraph(units []*Unit) *lattice.Graph {
	g := &lattice.Graph{}
	for _, u := range units {
		g.Nodes = append(g.Nodes, u.Name)
	}
	for _, e := range Edges(units) {
		if e.Callee == "" {
			continue
		}
		g.Edges = append(g.Edges, lattice.Edge{
			Caller: e.Caller,
			Callee: e.Callee,
		})
	}
	g.Dedup()
	return g
}

// Calls returns only the call edges of es.
func Calls(es []Edge) []Edge {
	var out []Edge
	for _, e := range es {
		if e.Kind == bytecode.EdgeCall {
			out = append(out, e)
		}
	}
	return out
}

// NestingGraph constructs a lattice.Graph whose edges run from each unit
// to the units defined in its Consts.
func NestingGraph(units []*Unit) *lattice.Graph {
	g := &lattice.Graph{}
	for _, u := range units {
		g.Nodes = append(g.Nodes, u.Name)
		if u.Parent != "" {
			g.Edges = append(g.Edges, lattice.Edge{Caller: u.Parent, Callee: u.Name})
		}
	}
	g.Dedup()
	return g
}
