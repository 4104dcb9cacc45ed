package pyver

// JumpKind says how a jump instruction's argument encodes its target.
type JumpKind int

const (
	JumpNone     JumpKind = iota
	JumpAbsolute          // target = arg * unit
	JumpForward           // target = next + arg * unit
	JumpBackward          // target = next - arg * unit
)

// Jump describes one control-transfer opcode.
type Jump struct {
	Kind   JumpKind
	Cond   bool // falls through when not taken
	Caches int  // inline cache entries between the opcode and the jump base (3.12+)
}

// JumpTable holds the control-flow rules of one release, keyed by mnemonic.
type JumpTable struct {
	// Unit is the size in bytes of one argument step: 1 before 3.10,
	// 2 once jump arguments count instructions.
	Unit  int
	jumps map[string]Jump
	exits map[string]bool
}

// Jump returns the rule for a mnemonic.
func (t *JumpTable) Jump(name string) (Jump, bool) {
	j, ok := t.jumps[name]
	return j, ok
}

// Exits reports whether the mnemonic leaves the code unit.
func (t *JumpTable) Exits(name string) bool { return t.exits[name] }

var (
	abs     = Jump{Kind: JumpAbsolute}
	absCond = Jump{Kind: JumpAbsolute, Cond: true}
	fwd     = Jump{Kind: JumpForward}
	fwdCond = Jump{Kind: JumpForward, Cond: true}
	back    = Jump{Kind: JumpBackward}
	bkCond  = Jump{Kind: JumpBackward, Cond: true}
)

func exitSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

var (
	// 2.7 through 3.9: absolute targets and relative offsets in bytes.
	jumpsPy27 = &JumpTable{
		Unit: 1,
		jumps: map[string]Jump{
			"JUMP_FORWARD":          fwd,
			"JUMP_ABSOLUTE":         abs,
			"CONTINUE_LOOP":         abs,
			"POP_JUMP_IF_FALSE":     absCond,
			"POP_JUMP_IF_TRUE":      absCond,
			"JUMP_IF_FALSE_OR_POP":  absCond,
			"JUMP_IF_TRUE_OR_POP":   absCond,
			"JUMP_IF_NOT_EXC_MATCH": absCond,
			"FOR_ITER":              fwdCond,
		},
		exits: exitSet("RETURN_VALUE", "RAISE_VARARGS", "RERAISE"),
	}

	// 3.10: same opcodes, arguments count 2-byte instructions.
	jumpsPy310 = &JumpTable{Unit: 2, jumps: jumpsPy27.jumps, exits: jumpsPy27.exits}

	// 3.11: absolute jumps are gone; backward jumps get their own opcodes.
	jumpsPy311 = &JumpTable{
		Unit: 2,
		jumps: map[string]Jump{
			"JUMP_FORWARD":                  fwd,
			"JUMP_BACKWARD":                 back,
			"JUMP_BACKWARD_NO_INTERRUPT":    back,
			"POP_JUMP_FORWARD_IF_FALSE":     fwdCond,
			"POP_JUMP_FORWARD_IF_TRUE":      fwdCond,
			"POP_JUMP_FORWARD_IF_NONE":      fwdCond,
			"POP_JUMP_FORWARD_IF_NOT_NONE":  fwdCond,
			"POP_JUMP_BACKWARD_IF_FALSE":    bkCond,
			"POP_JUMP_BACKWARD_IF_TRUE":     bkCond,
			"POP_JUMP_BACKWARD_IF_NONE":     bkCond,
			"POP_JUMP_BACKWARD_IF_NOT_NONE": bkCond,
			"JUMP_IF_FALSE_OR_POP":          fwdCond,
			"JUMP_IF_TRUE_OR_POP":           fwdCond,
			"FOR_ITER":                      fwdCond,
			"SEND":                          fwdCond,
		},
		exits: exitSet("RETURN_VALUE", "RAISE_VARARGS", "RERAISE"),
	}

	jumpsPy312 = &JumpTable{
		Unit: 2,
		jumps: map[string]Jump{
			"JUMP_FORWARD":               fwd,
			"JUMP_BACKWARD":              back,
			"JUMP_BACKWARD_NO_INTERRUPT": back,
			"POP_JUMP_IF_FALSE":          fwdCond,
			"POP_JUMP_IF_TRUE":           fwdCond,
			"POP_JUMP_IF_NONE":           fwdCond,
			"POP_JUMP_IF_NOT_NONE":       fwdCond,
			"FOR_ITER":                   {Kind: JumpForward, Cond: true, Caches: 1},
			"SEND":                       {Kind: JumpForward, Cond: true, Caches: 1},
		},
		exits: exitSet("RETURN_VALUE", "RETURN_CONST", "RAISE_VARARGS", "RERAISE"),
	}
)
