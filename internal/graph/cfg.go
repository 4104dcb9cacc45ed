package graph

import (
	"github.com/zboralski/lattice"

	"pycdump/internal/bytecode"
	"pycdump/internal/pyver"
)

// BuildCFG constructs a lattice.CFGGraph with one function per unit.
func BuildCFG(units []*Unit, v *pyver.Version) *lattice.CFGGraph {
	r := newResolver(units)
	cg := &lattice.CFGGraph{}
	for _, u := range units {
		lcfg, _ := buildFuncCFG(r, u, v)
		cg.Funcs = append(cg.Funcs, lcfg)
	}
	return cg
}

// BuildFuncCFG builds a single-unit lattice.FuncCFG. units supplies the
// names callees are resolved against and may be nil. It also returns the
// number of basic blocks, for filtering trivial units.
func BuildFuncCFG(u *Unit, units []*Unit, v *pyver.Version) (*lattice.FuncCFG, int) {
	return buildFuncCFG(newResolver(units), u, v)
}

func buildFuncCFG(r *resolver, u *Unit, v *pyver.Version) (*lattice.FuncCFG, int) {
	bcfg := bytecode.BuildCFG(u.Name, u.Insts, v)
	return convertFuncCFG(r, u, &bcfg), len(bcfg.Blocks)
}

// convertFuncCFG maps a bytecode.FuncCFG to a lattice.FuncCFG.
// Call edges are placed into blocks by matching instruction offsets.
func convertFuncCFG(r *resolver, u *Unit, bcfg *bytecode.FuncCFG) *lattice.FuncCFG {
	edgeByOff := make(map[int]bytecode.CallEdge, len(u.Edges))
	for _, e := range u.Edges {
		if e.Kind == bytecode.EdgeCall {
			edgeByOff[e.Offset] = e
		}
	}

	lcfg := &lattice.FuncCFG{Name: bcfg.Name}
	for _, bb := range bcfg.Blocks {
		lb := &lattice.BasicBlock{
			ID:    bb.ID,
			Start: bb.Start,
			End:   bb.End,
			Term:  bb.IsTerm,
		}
		for _, s := range bb.Succs {
			lb.Succs = append(lb.Succs, lattice.Successor{
				BlockID: s.BlockID,
				Cond:    s.Cond,
			})
		}
		for idx := bb.Start; idx < bb.End && idx < len(bcfg.Insts); idx++ {
			e, ok := edgeByOff[bcfg.Insts[idx].Offset]
			if !ok {
				continue
			}
			callee := r.resolve(u, e.Callee)
			if callee == "" {
				callee = "?"
			}
			lb.Calls = append(lb.Calls, lattice.CallSite{
				Offset: idx,
				Callee: callee,
			})
		}
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg
}
