// Package marshal decodes the Python marshal serialization embedded in .pyc files.
package marshal

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Type identifies the kind of a decoded value.
type Type int

const (
	TypeNull Type = iota
	TypeNone
	TypeBool
	TypeInt
	TypeFloat
	TypeComplex
	TypeStr
	TypeBytes
	TypeTuple
	TypeList
	TypeDict
	TypeSet
	TypeCode
	TypeEllipsis
	TypeStopIteration
)

var typeNames = [...]string{
	TypeNull:          "null",
	TypeNone:          "none",
	TypeBool:          "bool",
	TypeInt:           "int",
	TypeFloat:         "float",
	TypeComplex:       "complex",
	TypeStr:           "str",
	TypeBytes:         "bytes",
	TypeTuple:         "tuple",
	TypeList:          "list",
	TypeDict:          "dict",
	TypeSet:           "set",
	TypeCode:          "code",
	TypeEllipsis:      "ellipsis",
	TypeStopIteration: "stopiteration",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Object is a decoded marshal value. The set of implementations is closed:
// Null, None, Bool, Int, Float, Complex, Str, Bytes, *Tuple, *List, *Dict,
// *Set, *Code, Ellipsis and StopIteration.
type Object interface {
	Type() Type
	String() string
}

// Null is the marshal NULL marker. It terminates dicts and never appears
// inside a well-formed tree otherwise.
type Null struct{}

// None is Python's None.
type None struct{}

// Ellipsis is Python's Ellipsis.
type Ellipsis struct{}

// StopIteration is the StopIteration singleton.
type StopIteration struct{}

// Bool is True or False.
type Bool bool

// Int is an arbitrary-precision integer.
type Int struct{ *big.Int }

// Float is a binary64 float.
type Float float64

// Complex is a pair of binary64 floats.
type Complex complex128

// Str is decoded text.
type Str string

// Bytes is a raw byte string.
type Bytes []byte

// Tuple is an immutable ordered sequence.
type Tuple struct{ Items []Object }

// List is a mutable ordered sequence.
type List struct{ Items []Object }

// DictItem is one key/value pair of a Dict.
type DictItem struct {
	Key, Value Object
}

// Dict is a mapping, kept in stream order.
type Dict struct{ Items []DictItem }

// Set is a set or frozenset.
type Set struct {
	Items  []Object
	Frozen bool
}

func (Null) Type() Type          { return TypeNull }
func (None) Type() Type          { return TypeNone }
func (Ellipsis) Type() Type      { return TypeEllipsis }
func (StopIteration) Type() Type { return TypeStopIteration }
func (Bool) Type() Type          { return TypeBool }
func (Int) Type() Type           { return TypeInt }
func (Float) Type() Type         { return TypeFloat }
func (Complex) Type() Type       { return TypeComplex }
func (Str) Type() Type           { return TypeStr }
func (Bytes) Type() Type         { return TypeBytes }
func (*Tuple) Type() Type        { return TypeTuple }
func (*List) Type() Type         { return TypeList }
func (*Dict) Type() Type         { return TypeDict }
func (*Set) Type() Type          { return TypeSet }

func (Null) String() string          { return "<NULL>" }
func (None) String() string          { return "None" }
func (Ellipsis) String() string      { return "Ellipsis" }
func (StopIteration) String() string { return "StopIteration" }

func (b Bool) String() string {
	if b {
		return "True"
	}
	return "False"
}

func (i Int) String() string {
	if i.Int == nil {
		return "0"
	}
	return i.Int.String()
}

func (f Float) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }

func (c Complex) String() string {
	return fmt.Sprintf("(%s%+gj)", Float(real(c)), imag(c))
}

func (s Str) String() string   { return strconv.Quote(string(s)) }
func (b Bytes) String() string { return "b" + strconv.Quote(string(b)) }

func (t *Tuple) String() string { return repr(t, nil) }
func (l *List) String() string  { return repr(l, nil) }
func (d *Dict) String() string  { return repr(d, nil) }
func (s *Set) String() string   { return repr(s, nil) }

// repr renders o. A container met again while it is still being rendered
// prints as "[...]", "(...)" or "{...}" so self-referential values terminate.
func repr(o Object, active map[Object]bool) string {
	switch o.(type) {
	case *Tuple, *List, *Dict, *Set:
	default:
		return o.String()
	}
	if active[o] {
		switch o.(type) {
		case *Tuple:
			return "(...)"
		case *List:
			return "[...]"
		default:
			return "{...}"
		}
	}
	if active == nil {
		active = map[Object]bool{}
	}
	active[o] = true
	defer delete(active, o)

	switch v := o.(type) {
	case *Tuple:
		if len(v.Items) == 1 {
			return "(" + repr(v.Items[0], active) + ",)"
		}
		return "(" + joinObjects(v.Items, active) + ")"
	case *List:
		return "[" + joinObjects(v.Items, active) + "]"
	case *Dict:
		parts := make([]string, len(v.Items))
		for i, it := range v.Items {
			parts[i] = repr(it.Key, active) + ": " + repr(it.Value, active)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		s := o.(*Set)
		if s.Frozen {
			return "frozenset({" + joinObjects(s.Items, active) + "})"
		}
		if len(s.Items) == 0 {
			return "set()"
		}
		return "{" + joinObjects(s.Items, active) + "}"
	}
}

func joinObjects(items []Object, active map[Object]bool) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = repr(it, active)
	}
	return strings.Join(parts, ", ")
}

// NewInt returns an Int holding v.
func NewInt(v int64) Int { return Int{big.NewInt(v)} }

// AsString returns the text of a Str, or a Bytes decoded as-is.
// Python 2 stores identifiers as byte strings.
func AsString(o Object) (string, bool) {
	switch v := o.(type) {
	case Str:
		return string(v), true
	case Bytes:
		return string(v), true
	}
	return "", false
}
