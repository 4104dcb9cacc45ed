package bytecode

import (
	"sort"

	"pycdump/internal/pyver"
)

// BasicBlock is a run of instructions with a single entry point.
type BasicBlock struct {
	ID      int
	Start   int    // index into FuncCFG.Insts (inclusive)
	End     int    // index into FuncCFG.Insts (exclusive)
	Succs   []Succ // successor edges
	IsEntry bool
	IsTerm  bool // ends with a return, a raise or a jump out of the unit
}

// Succ is a control-flow successor edge.
type Succ struct {
	BlockID int
	Cond    string // "" = unconditional, "T" = taken, "F" = fallthrough
}

// FuncCFG is the control-flow graph of one code unit.
// Exception handler edges are not modelled.
type FuncCFG struct {
	Name   string
	Blocks []BasicBlock
	Insts  []Instruction
}

// BuildCFG partitions insts into basic blocks:
//  1. leaders are index 0, jump targets and instructions after a transfer;
//  2. blocks run from one leader to the next;
//  3. successors come from each block's last instruction.
func BuildCFG(name string, insts []Instruction, v *pyver.Version) FuncCFG {
	if len(insts) == 0 {
		return FuncCFG{Name: name, Insts: insts}
	}

	offToIdx := make(map[int]int, len(insts))
	for i, in := range insts {
		offToIdx[in.Offset] = i
	}

	leaders := map[int]bool{0: true}
	for i, in := range insts {
		bi := DecodeBranch(in, v)
		if bi == nil {
			continue
		}
		if i+1 < len(insts) {
			leaders[i+1] = true
		}
		if idx, ok := offToIdx[bi.Target]; ok && !bi.IsExit {
			leaders[idx] = true
		}
	}

	sorted := make([]int, 0, len(leaders))
	for idx := range leaders {
		sorted = append(sorted, idx)
	}
	sort.Ints(sorted)

	blocks := make([]BasicBlock, len(sorted))
	leaderToBlock := make(map[int]int, len(sorted))
	for i, start := range sorted {
		end := len(insts)
		if i+1 < len(sorted) {
			end = sorted[i+1]
		}
		blocks[i] = BasicBlock{ID: i, Start: start, End: end, IsEntry: start == 0}
		leaderToBlock[start] = i
	}

	for i := range blocks {
		blk := &blocks[i]
		last := insts[blk.End-1]
		bi := DecodeBranch(last, v)
		if bi == nil {
			if next, ok := leaderToBlock[blk.End]; ok {
				blk.Succs = append(blk.Succs, Succ{BlockID: next})
			} else {
				blk.IsTerm = true
			}
			continue
		}
		if bi.IsExit {
			blk.IsTerm = true
			continue
		}

		target := -1
		if idx, ok := offToIdx[bi.Target]; ok {
			target = leaderToBlock[idx]
		}
		if bi.Cond {
			if target >= 0 {
				blk.Succs = append(blk.Succs, Succ{BlockID: target, Cond: "T"})
			}
			if next, ok := leaderToBlock[blk.End]; ok {
				blk.Succs = append(blk.Succs, Succ{BlockID: next, Cond: "F"})
			}
			continue
		}
		if target >= 0 {
			blk.Succs = append(blk.Succs, Succ{BlockID: target})
		} else {
			blk.IsTerm = true
		}
	}

	return FuncCFG{Name: name, Blocks: blocks, Insts: insts}
}
