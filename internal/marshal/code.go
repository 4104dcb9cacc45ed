package marshal

import (
	"fmt"
	"strings"
)

// CodeFlags is the co_flags bitmask of a code unit.
type CodeFlags uint32

const (
	CoOptimized             CodeFlags = 0x0001
	CoNewLocals             CodeFlags = 0x0002
	CoVarArgs               CodeFlags = 0x0004
	CoVarKeywords           CodeFlags = 0x0008
	CoNested                CodeFlags = 0x0010
	CoGenerator             CodeFlags = 0x0020
	CoNoFree                CodeFlags = 0x0040
	CoCoroutine             CodeFlags = 0x0080
	CoIterableCoroutine     CodeFlags = 0x0100
	CoAsyncGenerator        CodeFlags = 0x0200
	CoFutureDivision        CodeFlags = 0x2000
	CoFutureAbsoluteImport  CodeFlags = 0x4000
	CoFutureWithStatement   CodeFlags = 0x8000
	CoFuturePrintFunction   CodeFlags = 0x10000
	CoFutureUnicodeLiterals CodeFlags = 0x20000
	CoFutureBarryAsBDFL     CodeFlags = 0x40000
	CoFutureGeneratorStop   CodeFlags = 0x80000
	CoFutureAnnotations     CodeFlags = 0x1000000
)

var flagNames = []struct {
	flag CodeFlags
	name string
}{
	{CoOptimized, "CO_OPTIMIZED"},
	{CoNewLocals, "CO_NEWLOCALS"},
	{CoVarArgs, "CO_VARARGS"},
	{CoVarKeywords, "CO_VARKEYWORDS"},
	{CoNested, "CO_NESTED"},
	{CoGenerator, "CO_GENERATOR"},
	{CoNoFree, "CO_NOFREE"},
	{CoCoroutine, "CO_COROUTINE"},
	{CoIterableCoroutine, "CO_ITERABLE_COROUTINE"},
	{CoAsyncGenerator, "CO_ASYNC_GENERATOR"},
	{CoFutureDivision, "CO_FUTURE_DIVISION"},
	{CoFutureAbsoluteImport, "CO_FUTURE_ABSOLUTE_IMPORT"},
	{CoFutureWithStatement, "CO_FUTURE_WITH_STATEMENT"},
	{CoFuturePrintFunction, "CO_FUTURE_PRINT_FUNCTION"},
	{CoFutureUnicodeLiterals, "CO_FUTURE_UNICODE_LITERALS"},
	{CoFutureBarryAsBDFL, "CO_FUTURE_BARRY_AS_BDFL"},
	{CoFutureGeneratorStop, "CO_FUTURE_GENERATOR_STOP"},
	{CoFutureAnnotations, "CO_FUTURE_ANNOTATIONS"},
}

// String renders the set flags as "CO_A | CO_B". Unnamed bits are shown in hex.
func (f CodeFlags) String() string {
	if f == 0 {
		return "0"
	}
	var parts []string
	rest := f
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
			rest &^= fn.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, " | ")
}

// Has reports whether all bits of g are set.
func (f CodeFlags) Has(g CodeFlags) bool { return f&g == g }

// Localsplus kind bits (3.11+).
const (
	kindLocal byte = 0x20
	kindCell  byte = 0x40
	kindFree  byte = 0x80
)

// Code is one compiled module, class or function body.
type Code struct {
	Name        string
	QualName    string // 3.11+
	Filename    string
	FirstLineNo int

	ArgCount        int
	PosOnlyArgCount int // 3.8+
	KwOnlyArgCount  int // 3.0+
	NLocals         int
	StackSize       int
	Flags           CodeFlags

	Code   []byte
	Consts *Tuple
	Names  []string

	VarNames []string
	FreeVars []string
	CellVars []string

	// Raw 3.11+ tables. VarNames, CellVars and FreeVars are derived from them.
	LocalsPlusNames []string
	LocalsPlusKinds []byte

	LineTable      []byte
	ExceptionTable []byte // 3.11+
}

func (*Code) Type() Type { return TypeCode }

func (c *Code) String() string {
	return fmt.Sprintf("<code object %s, file %q, line %d>", c.Name, c.Filename, c.FirstLineNo)
}

// Children returns the code units found directly in Consts, in order.
func (c *Code) Children() []*Code {
	if c.Consts == nil {
		return nil
	}
	var out []*Code
	for _, o := range c.Consts.Items {
		if child, ok := o.(*Code); ok {
			out = append(out, child)
		}
	}
	return out
}

// ConstAt returns Consts[i], or nil when i is out of range.
func (c *Code) ConstAt(i int) Object {
	if c.Consts == nil || i < 0 || i >= len(c.Consts.Items) {
		return nil
	}
	return c.Consts.Items[i]
}

// DisplayName returns the qualified name when present.
func (c *Code) DisplayName() string {
	if c.QualName != "" {
		return c.QualName
	}
	return c.Name
}

// splitLocalsPlus derives the classic variable tables from the 3.11+
// localsplus pair. A cell that is also an argument appears in both
// VarNames and CellVars, as in the reference runtime.
func (c *Code) splitLocalsPlus() {
	c.VarNames, c.CellVars, c.FreeVars = nil, nil, nil
	for i, name := range c.LocalsPlusNames {
		var kind byte
		if i < len(c.LocalsPlusKinds) {
			kind = c.LocalsPlusKinds[i]
		}
		switch {
		case kind&kindFree != 0:
			c.FreeVars = append(c.FreeVars, name)
		case kind&kindCell != 0:
			if kind&kindLocal != 0 {
				c.VarNames = append(c.VarNames, name)
			}
			c.CellVars = append(c.CellVars, name)
		case kind&kindLocal != 0:
			c.VarNames = append(c.VarNames, name)
		}
	}
	c.NLocals = len(c.VarNames)
}
