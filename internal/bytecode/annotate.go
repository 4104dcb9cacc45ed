package bytecode

import (
	"fmt"
	"strings"

	"pycdump/internal/marshal"
	"pycdump/internal/pyver"
)

// Annotator returns an optional inline comment for an instruction.
// Empty string means no annotation.
type Annotator func(in Instruction) string

var compareOps = []string{"<", "<=", "==", "!=", ">", ">=", "in", "not in", "is", "is not", "exception match", "BAD"}

// Argument table an opcode indexes.
type argKind int

const (
	argNone argKind = iota
	argConst
	argName
	argLocal
	argFree
	argCompare
)

var argKinds = map[string]argKind{
	"LOAD_CONST":   argConst,
	"RETURN_CONST": argConst,
	"KW_NAMES":     argConst,

	"LOAD_NAME":     argName,
	"STORE_NAME":    argName,
	"DELETE_NAME":   argName,
	"LOAD_ATTR":     argName,
	"STORE_ATTR":    argName,
	"DELETE_ATTR":   argName,
	"LOAD_GLOBAL":   argName,
	"STORE_GLOBAL":  argName,
	"DELETE_GLOBAL": argName,
	"IMPORT_NAME":   argName,
	"IMPORT_FROM":   argName,
	"LOAD_METHOD":   argName,

	"LOAD_FAST":           argLocal,
	"STORE_FAST":          argLocal,
	"DELETE_FAST":         argLocal,
	"LOAD_FAST_CHECK":     argLocal,
	"LOAD_FAST_AND_CLEAR": argLocal,

	"LOAD_DEREF":              argFree,
	"STORE_DEREF":             argFree,
	"DELETE_DEREF":            argFree,
	"LOAD_CLOSURE":            argFree,
	"LOAD_CLASSDEREF":         argFree,
	"MAKE_CELL":               argFree,
	"LOAD_FROM_DICT_OR_DEREF": argFree,

	"COMPARE_OP": argCompare,
}

// nameIndex returns the co_names index an instruction refers to. Newer
// releases pack flag bits below the index.
func nameIndex(in Instruction, v *pyver.Version) int {
	arg := int(in.Arg)
	switch {
	case in.Name == "LOAD_GLOBAL" && v.AtLeast(3, 11):
		return arg >> 1
	case in.Name == "LOAD_ATTR" && v.AtLeast(3, 12):
		return arg >> 1
	}
	return arg
}

// pushesNull reports whether a 3.11+ load also pushes NULL or self for a call.
func pushesNull(in Instruction, v *pyver.Version) bool {
	switch {
	case in.Name == "LOAD_GLOBAL" && v.AtLeast(3, 11):
		return in.Arg&1 != 0
	case in.Name == "LOAD_ATTR" && v.AtLeast(3, 12):
		return in.Arg&1 != 0
	}
	return false
}

// freeName resolves a cell or free variable slot. From 3.11 the index is
// into localsplus; before that cells come first, then free variables.
func freeName(c *marshal.Code, v *pyver.Version, i int) (string, bool) {
	if v.AtLeast(3, 11) {
		return index(c.LocalsPlusNames, i)
	}
	if i < len(c.CellVars) {
		return c.CellVars[i], true
	}
	return index(c.FreeVars, i-len(c.CellVars))
}

func localName(c *marshal.Code, v *pyver.Version, i int) (string, bool) {
	if v.AtLeast(3, 11) {
		return index(c.LocalsPlusNames, i)
	}
	return index(c.VarNames, i)
}

func index(s []string, i int) (string, bool) {
	if i < 0 || i >= len(s) {
		return "", false
	}
	return s[i], true
}

// ArgRepr renders the resolved argument of in: the constant, name or
// comparison it selects, or the target of a jump.
func ArgRepr(in Instruction, c *marshal.Code, v *pyver.Version) string {
	if !in.HasArg {
		return ""
	}
	switch argKinds[in.Name] {
	case argConst:
		if o := c.ConstAt(int(in.Arg)); o != nil {
			return constRepr(o)
		}
	case argName:
		if s, ok := index(c.Names, nameIndex(in, v)); ok {
			if pushesNull(in, v) {
				return "NULL + " + s
			}
			return s
		}
	case argLocal:
		if s, ok := localName(c, v, int(in.Arg)); ok {
			return s
		}
	case argFree:
		if s, ok := freeName(c, v, int(in.Arg)); ok {
			return s
		}
	case argCompare:
		i := int(in.Arg)
		if v.AtLeast(3, 12) {
			i >>= 4
		}
		if i < len(compareOps) {
			return compareOps[i]
		}
	}
	if bi := DecodeBranch(in, v); bi != nil && !bi.IsExit {
		return fmt.Sprintf("to %d", bi.Target)
	}
	return ""
}

func constRepr(o marshal.Object) string {
	if code, ok := o.(*marshal.Code); ok {
		return fmt.Sprintf("<code object %s>", code.DisplayName())
	}
	s := o.String()
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}

// ArgAnnotator returns an Annotator backed by ArgRepr.
func ArgAnnotator(c *marshal.Code, v *pyver.Version) Annotator {
	return func(in Instruction) string { return ArgRepr(in, c, v) }
}

// Format renders instructions as stable text, one per line:
// <offset>  <mnemonic> <arg>  ; <annotation>
// Annotators are checked in order; the first non-empty result is used.
func Format(insts []Instruction, annotators ...Annotator) string {
	var b strings.Builder
	for _, in := range insts {
		line := fmt.Sprintf("%6d  %-24s", in.Offset, in.Name)
		if in.HasArg {
			line += fmt.Sprintf(" %d", in.Arg)
		}
		for _, ann := range annotators {
			if s := ann(in); s != "" {
				line += "  ; " + s
				break
			}
		}
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteByte('\n')
	}
	return b.String()
}
