// Package pyctest synthesizes marshal data and .pyc files for tests.
package pyctest

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"pycdump/internal/pyver"
)

// Tuple, List and the other wrappers select the marshal kind written for a
// Go value.
type (
	Tuple []any
	List  []any
	Dict  [][2]any
	Set   struct {
		Items  []any
		Frozen bool
	}
	// Interned is written with the 't' tag.
	Interned string
	// Ref is a back-reference to slot N.
	Ref int32
	// StringRef is a Python 2 reference into the interned string list.
	StringRef int32
	// Shared writes Value with the reference flag set.
	Shared struct{ Value any }
	// Raw is copied to the output verbatim.
	Raw []byte
	// Null is the dict terminator.
	Null struct{}
	// Ellipsis is the Ellipsis singleton.
	Ellipsis struct{}
)

// Code describes a code record. For 3.11+ the localsplus tables are derived
// from VarNames, CellVars and FreeVars unless LocalsPlusNames is set.
type Code struct {
	Name, QualName, Filename string
	FirstLineNo              int32
	ArgCount                 int32
	PosOnlyArgCount          int32
	KwOnlyArgCount           int32
	NLocals                  int32
	StackSize                int32
	Flags                    int32
	Bytecode                 []byte
	Consts                   []any
	Names                    []string
	VarNames                 []string
	FreeVars                 []string
	CellVars                 []string
	LocalsPlusNames          []string
	LocalsPlusKinds          []byte
	LineTable                []byte
	ExceptionTable           []byte
}

// Writer accumulates marshal bytes for one version.
type Writer struct {
	v   *pyver.Version
	buf []byte
}

// NewWriter returns an empty writer.
func NewWriter(v *pyver.Version) *Writer { return &Writer{v: v} }

// Bytes returns the encoded data.
func (w *Writer) Bytes() []byte { return w.buf }

// Byte appends one byte.
func (w *Writer) Byte(b byte) *Writer {
	w.buf = append(w.buf, b)
	return w
}

// Int32 appends a little-endian int32.
func (w *Writer) Int32(n int32) *Writer {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(n))
	return w
}

func (w *Writer) sized(tag byte, b []byte) {
	w.Byte(tag)
	w.Int32(int32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *Writer) str(s string) {
	if w.v.Major < 3 {
		w.sized('s', []byte(s))
		return
	}
	if len(s) < 256 && isASCII(s) {
		w.Byte('z').Byte(byte(len(s)))
		w.buf = append(w.buf, s...)
		return
	}
	w.sized('u', []byte(s))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func (w *Writer) seq(tag byte, items []any) {
	w.Byte(tag)
	if tag == ')' {
		w.Byte(byte(len(items)))
	} else {
		w.Int32(int32(len(items)))
	}
	for _, it := range items {
		w.Object(it)
	}
}

// Object appends one value. It panics on a Go type it cannot encode.
func (w *Writer) Object(o any) *Writer {
	switch v := o.(type) {
	case nil:
		w.Byte('N')
	case Null:
		w.Byte('0')
	case Ellipsis:
		w.Byte('.')
	case bool:
		if v {
			w.Byte('T')
		} else {
			w.Byte('F')
		}
	case int:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			w.Byte('i').Int32(int32(v))
		} else {
			w.Byte('I')
			w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(v))
		}
	case *big.Int:
		w.long(v)
	case float64:
		w.Byte('g')
		w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
	case complex128:
		w.Byte('y')
		w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(real(v)))
		w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(imag(v)))
	case string:
		w.str(v)
	case Interned:
		w.sized('t', []byte(v))
	case []byte:
		w.sized('s', v)
	case Tuple:
		if len(v) < 256 && w.v.Major >= 3 {
			w.seq(')', v)
		} else {
			w.seq('(', v)
		}
	case List:
		w.seq('[', v)
	case Set:
		if v.Frozen {
			w.seq('>', v.Items)
		} else {
			w.seq('<', v.Items)
		}
	case Dict:
		w.Byte('{')
		for _, kv := range v {
			w.Object(kv[0]).Object(kv[1])
		}
		w.Byte('0')
	case Ref:
		w.Byte('r').Int32(int32(v))
	case StringRef:
		w.Byte('R').Int32(int32(v))
	case Shared:
		at := len(w.buf)
		w.Object(v.Value)
		w.buf[at] |= 0x80
	case Raw:
		w.buf = append(w.buf, v...)
	case *Code:
		w.code(v)
	default:
		panic(fmt.Sprintf("pyctest: cannot encode %T", o))
	}
	return w
}

func (w *Writer) long(v *big.Int) {
	abs := new(big.Int).Abs(v)
	var digits []uint16
	mask := big.NewInt(0x7fff)
	for abs.Sign() > 0 {
		digits = append(digits, uint16(new(big.Int).And(abs, mask).Uint64()))
		abs.Rsh(abs, 15)
	}
	n := int32(len(digits))
	if v.Sign() < 0 {
		n = -n
	}
	w.Byte('l').Int32(n)
	for _, d := range digits {
		w.buf = binary.LittleEndian.AppendUint16(w.buf, d)
	}
}

func names(ns []string) Tuple {
	t := make(Tuple, len(ns))
	for i, n := range ns {
		t[i] = n
	}
	return t
}

func (w *Writer) code(c *Code) {
	w.Byte('c')
	lpNames, lpKinds := c.LocalsPlusNames, c.LocalsPlusKinds
	if lpNames == nil {
		for _, n := range c.VarNames {
			lpNames, lpKinds = append(lpNames, n), append(lpKinds, 0x20)
		}
		for _, n := range c.CellVars {
			lpNames, lpKinds = append(lpNames, n), append(lpKinds, 0x40)
		}
		for _, n := range c.FreeVars {
			lpNames, lpKinds = append(lpNames, n), append(lpKinds, 0x80)
		}
	}
	for _, f := range w.v.CodeFields {
		switch f {
		case pyver.FieldArgCount:
			w.Int32(c.ArgCount)
		case pyver.FieldPosOnlyArgCount:
			w.Int32(c.PosOnlyArgCount)
		case pyver.FieldKwOnlyArgCount:
			w.Int32(c.KwOnlyArgCount)
		case pyver.FieldNLocals:
			w.Int32(c.NLocals)
		case pyver.FieldStackSize:
			w.Int32(c.StackSize)
		case pyver.FieldFlags:
			w.Int32(c.Flags)
		case pyver.FieldFirstLineNo:
			w.Int32(c.FirstLineNo)
		case pyver.FieldCode:
			w.sized('s', c.Bytecode)
		case pyver.FieldConsts:
			w.seq('(', c.Consts)
		case pyver.FieldNames:
			w.Object(names(c.Names))
		case pyver.FieldVarNames:
			w.Object(names(c.VarNames))
		case pyver.FieldFreeVars:
			w.Object(names(c.FreeVars))
		case pyver.FieldCellVars:
			w.Object(names(c.CellVars))
		case pyver.FieldLocalsPlusNames:
			w.Object(names(lpNames))
		case pyver.FieldLocalsPlusKinds:
			w.sized('s', lpKinds)
		case pyver.FieldFilename:
			w.str(c.Filename)
		case pyver.FieldName:
			w.str(c.Name)
		case pyver.FieldQualName:
			w.str(c.QualName)
		case pyver.FieldLineTable:
			w.sized('s', c.LineTable)
		case pyver.FieldExceptionTable:
			w.sized('s', c.ExceptionTable)
		}
	}
}

// Marshal encodes one value.
func Marshal(v *pyver.Version, o any) []byte {
	return NewWriter(v).Object(o).Bytes()
}

// Header returns a header for v's release magic with mtime 0 and size 0.
func Header(v *pyver.Version) []byte {
	h := binary.LittleEndian.AppendUint16(nil, v.Magic)
	h = append(h, '\r', '\n')
	return append(h, make([]byte, v.Header.Size()-4)...)
}

// File returns a complete .pyc image holding root.
func File(v *pyver.Version, root any) []byte {
	return append(Header(v), Marshal(v, root)...)
}

// Ins is one instruction for Asm.
type Ins struct {
	Name string
	Arg  uint32
}

// Op is shorthand for an instruction.
func Op(name string, arg ...uint32) Ins {
	in := Ins{Name: name}
	if len(arg) > 0 {
		in.Arg = arg[0]
	}
	return in
}

// Asm assembles instructions for v, inserting EXTENDED_ARG prefixes for
// arguments wider than one operand.
func Asm(v *pyver.Version, ins ...Ins) []byte {
	ext := v.Opcodes.ExtendedArg()
	bits := v.Layout.OperandBits()
	mask := uint32(1)<<bits - 1
	var out []byte
	emit := func(op byte, arg uint32, hasArg bool) {
		switch {
		case v.Layout == pyver.LayoutWordcode:
			out = append(out, op, byte(arg))
		case hasArg:
			out = append(out, op, byte(arg), byte(arg>>8))
		default:
			out = append(out, op)
		}
	}
	for _, in := range ins {
		op, ok := v.Opcodes.ByName(in.Name)
		if !ok {
			panic("pyctest: no opcode " + in.Name + " in " + v.Name())
		}
		hasArg := v.Opcodes.Lookup(op).HasArg
		if hasArg {
			var prefixes []uint32
			for a := in.Arg >> bits; a != 0; a >>= bits {
				prefixes = append(prefixes, a&mask)
			}
			for i := len(prefixes) - 1; i >= 0; i-- {
				emit(ext, prefixes[i], true)
			}
		}
		emit(op, in.Arg&mask, hasArg)
	}
	return out
}
