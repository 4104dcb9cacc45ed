package bytecode

import "pycdump/internal/pyver"

// BranchInfo describes a control transfer.
type BranchInfo struct {
	Target int  // byte offset of the jump target; -1 for exits
	Cond   bool // falls through when not taken
	IsExit bool // return or raise
}

// DecodeBranch returns the control transfer of in, or nil if in falls
// through to the next instruction.
func DecodeBranch(in Instruction, v *pyver.Version) *BranchInfo {
	if v.Jumps.Exits(in.Name) {
		return &BranchInfo{Target: -1, IsExit: true}
	}
	j, ok := v.Jumps.Jump(in.Name)
	if !ok {
		return nil
	}
	unit := v.Jumps.Unit
	next := in.End() + 2*j.Caches
	arg := int(in.Arg)
	var target int
	switch j.Kind {
	case pyver.JumpAbsolute:
		target = arg * unit
	case pyver.JumpForward:
		target = next + arg*unit
	case pyver.JumpBackward:
		target = next - arg*unit
	default:
		return nil
	}
	return &BranchInfo{Target: target, Cond: j.Cond}
}
