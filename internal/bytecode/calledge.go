package bytecode

import (
	"math/bits"

	"pycdump/internal/marshal"
	"pycdump/internal/pyver"
)

// CallEdge is a call site or a nested definition found in a code unit.
type CallEdge struct {
	Offset int    `json:"offset"`
	Kind   string `json:"kind"` // EdgeCall or EdgeDef
	Callee string `json:"callee,omitempty"`
}

// CallEdge kinds.
const (
	EdgeCall = "call"
	EdgeDef  = "def"
)

// Stack slot markers. Real values carry the dotted name that produced them.
const (
	slotUnknown = ""
	slotNull    = "\x00null"
	slotSelf    = "\x00self"
)

// valueTracker follows the provenance of the top of the value stack through
// the handful of opcodes that build a call. Any opcode it does not model
// clears the stack, so unresolved calls get an empty callee.
type valueTracker struct {
	stack []string
}

func (t *valueTracker) push(s ...string) { t.stack = append(t.stack, s...) }

func (t *valueTracker) pop(n int) {
	if n > len(t.stack) {
		t.stack = t.stack[:0]
		return
	}
	t.stack = t.stack[:len(t.stack)-n]
}

func (t *valueTracker) top() string {
	if len(t.stack) == 0 {
		return slotUnknown
	}
	return t.stack[len(t.stack)-1]
}

func (t *valueTracker) reset() { t.stack = t.stack[:0] }

// call returns the first real name among the frame slots that sit below the
// top depth values, then replaces the frame and its arguments with the result.
func (t *valueTracker) call(depth, frame int) string {
	if frame+depth > len(t.stack) {
		t.reset()
		t.push(slotUnknown)
		return ""
	}
	base := len(t.stack) - depth - frame
	name := ""
	for _, s := range t.stack[base : base+frame] {
		if isReal(s) {
			name = s
			break
		}
	}
	t.stack = t.stack[:base]
	t.push(slotUnknown)
	return name
}

// makeFunctionPops returns the number of stack values a function-building
// instruction consumes.
func makeFunctionPops(in Instruction, v *pyver.Version) int {
	arg := int(in.Arg)
	closure := 0
	if in.Name == "MAKE_CLOSURE" {
		closure = 1
	}
	switch {
	case v.Major < 3:
		return 1 + closure + arg
	case !v.AtLeast(3, 6):
		return 2 + closure + arg&0xff + 2*(arg>>8&0xff) + arg>>16&0x7fff
	}
	n := 1 + bits.OnesCount32(in.Arg&0x0f)
	if !v.AtLeast(3, 11) {
		n++ // qualified name
	}
	return n
}

func isReal(s string) bool { return s != slotUnknown && s != slotNull && s != slotSelf }

// CallEdges extracts call sites and nested definitions from insts.
// Callee names are best effort: "print", "os.path.join", "self.run".
func CallEdges(c *marshal.Code, insts []Instruction, v *pyver.Version) []CallEdge {
	var edges []CallEdge
	var t valueTracker
	lastCode := ""

	for _, in := range insts {
		arg := int(in.Arg)
		switch in.Name {
		case "NOP", "CACHE", "PRECALL", "KW_NAMES", "RESUME", "EXTENDED_ARG", "COPY_FREE_VARS", "MAKE_CELL":

		case "PUSH_NULL":
			t.push(slotNull)

		case "LOAD_CONST":
			if code, ok := c.ConstAt(arg).(*marshal.Code); ok {
				lastCode = code.DisplayName()
			}
			t.push(slotUnknown)

		case "LOAD_NAME", "LOAD_GLOBAL":
			name, _ := index(c.Names, nameIndex(in, v))
			if pushesNull(in, v) {
				t.push(slotNull)
			}
			t.push(name)

		case "LOAD_FAST", "LOAD_FAST_CHECK":
			name, _ := localName(c, v, arg)
			t.push(name)

		case "LOAD_DEREF", "LOAD_CLASSDEREF", "LOAD_CLOSURE":
			name, _ := freeName(c, v, arg)
			t.push(name)

		case "LOAD_BUILD_CLASS":
			t.push("__build_class__")

		case "LOAD_ATTR", "LOAD_METHOD":
			attr, _ := index(c.Names, nameIndex(in, v))
			owner := t.top()
			t.pop(1)
			full := attr
			if isReal(owner) && attr != "" {
				full = owner + "." + attr
			}
			switch {
			case in.Name == "LOAD_METHOD", pushesNull(in, v):
				t.push(full, slotSelf)
			default:
				t.push(full)
			}

		case "BUILD_TUPLE", "BUILD_LIST", "BUILD_SET", "BUILD_STRING":
			t.pop(arg)
			t.push(slotUnknown)
		case "BUILD_MAP":
			t.pop(2 * arg)
			t.push(slotUnknown)
		case "BUILD_CONST_KEY_MAP":
			t.pop(arg + 1)
			t.push(slotUnknown)

		case "MAKE_FUNCTION", "MAKE_CLOSURE":
			if lastCode != "" {
				edges = append(edges, CallEdge{Offset: in.Offset, Kind: EdgeDef, Callee: lastCode})
			}
			lastCode = ""
			t.pop(makeFunctionPops(in, v))
			t.push(slotUnknown)

		case "CALL_FUNCTION", "CALL_FUNCTION_VAR", "CALL_FUNCTION_KW", "CALL_FUNCTION_VAR_KW":
			depth := arg
			extra := 0
			if v.Layout == pyver.LayoutVariable {
				// Low byte positional, high byte keyword pairs.
				depth = arg&0xff + 2*(arg>>8&0xff)
				switch in.Name {
				case "CALL_FUNCTION_VAR", "CALL_FUNCTION_KW":
					extra = 1
				case "CALL_FUNCTION_VAR_KW":
					extra = 2
				}
			} else if in.Name == "CALL_FUNCTION_KW" {
				extra = 1
			}
			edges = append(edges, CallEdge{Offset: in.Offset, Kind: EdgeCall, Callee: t.call(depth+extra, 1)})

		case "CALL_FUNCTION_EX":
			depth := 1 + arg&1
			frame := 1
			if v.AtLeast(3, 11) {
				frame = 2
			}
			edges = append(edges, CallEdge{Offset: in.Offset, Kind: EdgeCall, Callee: t.call(depth, frame)})

		case "CALL_METHOD", "CALL":
			edges = append(edges, CallEdge{Offset: in.Offset, Kind: EdgeCall, Callee: t.call(arg, 2)})

		case "POP_TOP", "STORE_NAME", "STORE_FAST", "STORE_GLOBAL", "STORE_DEREF":
			t.pop(1)

		default:
			t.reset()
		}
	}
	return edges
}
