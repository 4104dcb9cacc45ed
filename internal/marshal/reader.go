package marshal

import (
	"math/big"
	"strconv"

	"go.uber.org/zap"

	"pycdump/internal/pycfmt"
	"pycdump/internal/pyver"
)

// Type tags. The high bit (flagRef) is stripped before dispatch.
const (
	tagNull          = '0'
	tagNone          = 'N'
	tagFalse         = 'F'
	tagTrue          = 'T'
	tagStopIter      = 'S'
	tagEllipsis      = '.'
	tagInt           = 'i'
	tagInt64         = 'I'
	tagFloat         = 'f'
	tagBinaryFloat   = 'g'
	tagComplex       = 'x'
	tagBinaryComplex = 'y'
	tagLong          = 'l'
	tagString        = 's'
	tagInterned      = 't'
	tagStringRef     = 'R'
	tagRef           = 'r'
	tagTuple         = '('
	tagSmallTuple    = ')'
	tagList          = '['
	tagDict          = '{'
	tagCode          = 'c'
	tagUnicode       = 'u'
	tagSet           = '<'
	tagFrozenSet     = '>'
	tagASCII         = 'a'
	tagASCIIInterned = 'A'
	tagShortASCII    = 'z'
	tagShortASCIIInt = 'Z'

	flagRef = 0x80
)

const (
	longShift = 15
	longBase  = 1 << longShift
)

// ReadObject decodes one marshalled value at the stream position and
// advances past it. References are resolved in place: a back-reference
// yields the very object it points to.
func ReadObject(s *pycfmt.Stream, v *pyver.Version, opts pycfmt.Options) (Object, error) {
	r := &reader{
		s:        s,
		v:        v,
		maxDepth: opts.EffectiveMaxDepth(),
		log:      pycfmt.Logger().Named("marshal"),
	}
	return r.object()
}

type reader struct {
	s        *pycfmt.Stream
	v        *pyver.Version
	refs     internTable
	strs     internTable // Python 2 interned strings
	depth    int
	maxDepth int
	log      *zap.Logger
}

// registers reports whether a flagged value of this kind takes a slot.
// Singletons and references never do.
func registers(tag byte) bool {
	switch tag {
	case tagNull, tagNone, tagFalse, tagTrue, tagStopIter, tagEllipsis, tagRef, tagStringRef:
		return false
	}
	return true
}

func (r *reader) object() (Object, error) {
	start := r.s.Position()
	r.depth++
	defer func() { r.depth-- }()
	if r.depth > r.maxDepth {
		return nil, pycfmt.DepthExceeded(start, r.maxDepth)
	}

	code, err := r.s.ReadByte()
	if err != nil {
		return nil, err
	}
	tag := code
	slot := -1
	if r.v.Marshal.RefFlag && code&flagRef != 0 {
		tag = code &^ flagRef
		if registers(tag) {
			slot = r.refs.reserve()
		}
	}

	obj, err := r.value(tag, start, slot)
	if err != nil {
		return nil, err
	}
	if slot >= 0 {
		r.refs.fill(slot, obj)
	}
	return obj, nil
}

// early fills a container's slot before its children are decoded.
func (r *reader) early(slot int, o Object) {
	if slot >= 0 {
		r.refs.fill(slot, o)
	}
}

func (r *reader) value(tag byte, start, slot int) (Object, error) {
	switch tag {
	case tagNull:
		return Null{}, nil
	case tagNone:
		return None{}, nil
	case tagFalse:
		return Bool(false), nil
	case tagTrue:
		return Bool(true), nil
	case tagStopIter:
		return StopIteration{}, nil
	case tagEllipsis:
		return Ellipsis{}, nil

	case tagInt:
		n, err := r.s.ReadInt32()
		if err != nil {
			return nil, err
		}
		return NewInt(int64(n)), nil
	case tagInt64:
		n, err := r.s.ReadInt64()
		if err != nil {
			return nil, err
		}
		return NewInt(n), nil
	case tagLong:
		return r.long()

	case tagFloat:
		f, err := r.textFloat()
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	case tagBinaryFloat:
		f, err := r.s.ReadFloat64()
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	case tagComplex:
		re, err := r.textFloat()
		if err != nil {
			return nil, err
		}
		im, err := r.textFloat()
		if err != nil {
			return nil, err
		}
		return Complex(complex(re, im)), nil
	case tagBinaryComplex:
		re, err := r.s.ReadFloat64()
		if err != nil {
			return nil, err
		}
		im, err := r.s.ReadFloat64()
		if err != nil {
			return nil, err
		}
		return Complex(complex(re, im)), nil

	case tagString:
		b, err := r.sized()
		if err != nil {
			return nil, err
		}
		if r.v.Major < 3 {
			return Str(b), nil
		}
		return Bytes(b), nil
	case tagInterned:
		b, err := r.sized()
		if err != nil {
			return nil, err
		}
		s := Str(b)
		if r.v.Marshal.StringRefs {
			r.strs.add(s)
		}
		return s, nil
	case tagStringRef:
		if !r.v.Marshal.StringRefs {
			return nil, pycfmt.UnknownTag(start, tag)
		}
		idx, err := r.s.ReadInt32()
		if err != nil {
			return nil, err
		}
		return r.strs.get(start, idx)
	case tagUnicode, tagASCII, tagASCIIInterned:
		b, err := r.sized()
		if err != nil {
			return nil, err
		}
		return Str(b), nil
	case tagShortASCII, tagShortASCIIInt:
		n, err := r.s.ReadByte()
		if err != nil {
			return nil, err
		}
		b, err := r.s.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		return Str(b), nil

	case tagRef:
		idx, err := r.s.ReadInt32()
		if err != nil {
			return nil, err
		}
		return r.refs.get(start, idx)

	case tagTuple, tagSmallTuple:
		var n int
		if tag == tagSmallTuple {
			b, err := r.s.ReadByte()
			if err != nil {
				return nil, err
			}
			n = int(b)
		} else {
			var err error
			if n, err = r.length(); err != nil {
				return nil, err
			}
		}
		t := &Tuple{}
		r.early(slot, t)
		items, err := r.items(n)
		if err != nil {
			return nil, err
		}
		t.Items = items
		return t, nil
	case tagList:
		n, err := r.length()
		if err != nil {
			return nil, err
		}
		l := &List{}
		r.early(slot, l)
		if l.Items, err = r.items(n); err != nil {
			return nil, err
		}
		return l, nil
	case tagSet, tagFrozenSet:
		n, err := r.length()
		if err != nil {
			return nil, err
		}
		s := &Set{Frozen: tag == tagFrozenSet}
		if !s.Frozen {
			r.early(slot, s)
		}
		if s.Items, err = r.items(n); err != nil {
			return nil, err
		}
		return s, nil
	case tagDict:
		d := &Dict{}
		r.early(slot, d)
		for {
			k, err := r.object()
			if err != nil {
				return nil, err
			}
			if _, ok := k.(Null); ok {
				break
			}
			val, err := r.object()
			if err != nil {
				return nil, err
			}
			if _, ok := val.(Null); ok {
				break
			}
			d.Items = append(d.Items, DictItem{Key: k, Value: val})
		}
		return d, nil

	case tagCode:
		return r.code(start)
	}
	return nil, pycfmt.UnknownTag(start, tag)
}

// length reads an int32 element or byte count and rejects negative values.
func (r *reader) length() (int, error) {
	at := r.s.Position()
	n, err := r.s.ReadInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, pycfmt.InvalidData(at, "negative size %d", n)
	}
	return int(n), nil
}

func (r *reader) sized() ([]byte, error) {
	n, err := r.length()
	if err != nil {
		return nil, err
	}
	return r.s.ReadBytes(n)
}

func (r *reader) items(n int) ([]Object, error) {
	// Every element needs at least one byte; cap the allocation by what is left.
	items := make([]Object, 0, min(n, r.s.Remaining()))
	for i := 0; i < n; i++ {
		o, err := r.object()
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, nil
}

func (r *reader) textFloat() (float64, error) {
	at := r.s.Position()
	n, err := r.s.ReadByte()
	if err != nil {
		return 0, err
	}
	b, err := r.s.ReadBytes(int(n))
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return 0, &pycfmt.Error{Kind: pycfmt.KindInvalidData, Offset: at, Detail: "bad float literal", Cause: err}
	}
	return f, nil
}

// long decodes base 2**15 digits, least significant first. The sign of the
// digit count is the sign of the value.
func (r *reader) long() (Object, error) {
	at := r.s.Position()
	n, err := r.s.ReadInt32()
	if err != nil {
		return nil, err
	}
	neg := n < 0
	size := int(n)
	if neg {
		size = -size
	}
	raw, err := r.s.ReadBytes(2 * size)
	if err != nil {
		return nil, err
	}
	v := new(big.Int)
	digit := new(big.Int)
	for i := size - 1; i >= 0; i-- {
		d := uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
		if d >= longBase {
			return nil, pycfmt.InvalidData(at+4+2*i, "long digit %d out of range", d)
		}
		if i == size-1 && d == 0 {
			return nil, pycfmt.InvalidData(at+4+2*i, "unnormalized long data")
		}
		v.Lsh(v, longShift)
		v.Or(v, digit.SetUint64(uint64(d)))
	}
	if neg {
		v.Neg(v)
	}
	return Int{v}, nil
}

// code reads a code record field by field in the order of the version's schema.
func (r *reader) code(start int) (Object, error) {
	c := &Code{}
	for _, f := range r.v.CodeFields {
		at := r.s.Position()
		if f.Raw() {
			n, err := r.s.ReadInt32()
			if err != nil {
				return nil, err
			}
			setRaw(c, f, int(n))
			continue
		}
		o, err := r.object()
		if err != nil {
			return nil, err
		}
		if err := setField(c, f, o); err != nil {
			return nil, pycfmt.InvalidData(at, "%s: %v", f, err)
		}
	}
	if len(c.LocalsPlusNames) > 0 || len(c.LocalsPlusKinds) > 0 {
		if len(c.LocalsPlusNames) != len(c.LocalsPlusKinds) {
			return nil, pycfmt.InvalidData(start, "localsplus: %d names, %d kinds",
				len(c.LocalsPlusNames), len(c.LocalsPlusKinds)).InCode(c.Name)
		}
		c.splitLocalsPlus()
	}
	if c.Consts == nil {
		c.Consts = &Tuple{}
	}
	r.log.Debug("code unit",
		zap.String("name", c.DisplayName()),
		zap.Int("offset", start),
		zap.Int("bytecode", len(c.Code)),
		zap.Int("consts", len(c.Consts.Items)),
	)
	return c, nil
}

func setRaw(c *Code, f pyver.Field, n int) {
	switch f {
	case pyver.FieldArgCount:
		c.ArgCount = n
	case pyver.FieldPosOnlyArgCount:
		c.PosOnlyArgCount = n
	case pyver.FieldKwOnlyArgCount:
		c.KwOnlyArgCount = n
	case pyver.FieldNLocals:
		c.NLocals = n
	case pyver.FieldStackSize:
		c.StackSize = n
	case pyver.FieldFlags:
		c.Flags = CodeFlags(uint32(n))
	case pyver.FieldFirstLineNo:
		c.FirstLineNo = n
	}
}

type fieldError string

func (e fieldError) Error() string { return string(e) }

func setField(c *Code, f pyver.Field, o Object) error {
	var err error
	switch f {
	case pyver.FieldCode:
		c.Code, err = asBytes(o)
	case pyver.FieldConsts:
		t, ok := o.(*Tuple)
		if !ok {
			return fieldError("expected tuple, got " + o.Type().String())
		}
		c.Consts = t
	case pyver.FieldNames:
		c.Names, err = asNames(o)
	case pyver.FieldVarNames:
		c.VarNames, err = asNames(o)
	case pyver.FieldFreeVars:
		c.FreeVars, err = asNames(o)
	case pyver.FieldCellVars:
		c.CellVars, err = asNames(o)
	case pyver.FieldLocalsPlusNames:
		c.LocalsPlusNames, err = asNames(o)
	case pyver.FieldLocalsPlusKinds:
		c.LocalsPlusKinds, err = asBytes(o)
	case pyver.FieldFilename:
		c.Filename, err = asName(o)
	case pyver.FieldName:
		c.Name, err = asName(o)
	case pyver.FieldQualName:
		c.QualName, err = asName(o)
	case pyver.FieldLineTable:
		c.LineTable, err = asBytes(o)
	case pyver.FieldExceptionTable:
		c.ExceptionTable, err = asBytes(o)
	}
	return err
}

func asBytes(o Object) ([]byte, error) {
	switch v := o.(type) {
	case Bytes:
		return []byte(v), nil
	case Str:
		return []byte(v), nil
	}
	return nil, fieldError("expected bytes, got " + o.Type().String())
}

func asName(o Object) (string, error) {
	if s, ok := AsString(o); ok {
		return s, nil
	}
	return "", fieldError("expected string, got " + o.Type().String())
}

func asNames(o Object) ([]string, error) {
	t, ok := o.(*Tuple)
	if !ok {
		return nil, fieldError("expected tuple, got " + o.Type().String())
	}
	out := make([]string, len(t.Items))
	for i, it := range t.Items {
		s, err := asName(it)
		if err != nil {
			return nil, fieldError("item " + strconv.Itoa(i) + ": " + err.Error())
		}
		out[i] = s
	}
	return out, nil
}
