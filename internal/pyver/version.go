// Package pyver maps a .pyc magic number to the decoding rules of the
// release that produced it.
package pyver

import (
	"fmt"

	"pycdump/internal/pycfmt"
)

// Layout identifies how instructions are laid out in a code unit.
type Layout int

const (
	// LayoutVariable: 1 byte without an argument, 3 bytes with one
	// (little-endian 16-bit operand). Python 2.x through 3.5.
	LayoutVariable Layout = iota

	// LayoutWordcode: every instruction is 2 bytes, opcode then an 8-bit
	// operand. Python 3.6+.
	LayoutWordcode
)

func (l Layout) String() string {
	switch l {
	case LayoutVariable:
		return "variable"
	case LayoutWordcode:
		return "wordcode"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// OperandBits returns the width of one raw operand, which is also the shift
// applied per argument-extension prefix.
func (l Layout) OperandBits() uint {
	if l == LayoutVariable {
		return 16
	}
	return 8
}

// HeaderLayout identifies the fields between the magic and the marshalled body.
type HeaderLayout int

const (
	HeaderTimestamp     HeaderLayout = iota // magic, mtime (< 3.3)
	HeaderTimestampSize                     // magic, mtime, source size (3.3-3.6)
	HeaderFlags                             // magic, flags, mtime+size or hash (3.7+)
)

// Size returns the header length in bytes, magic included.
func (h HeaderLayout) Size() int {
	switch h {
	case HeaderTimestamp:
		return 8
	case HeaderTimestampSize:
		return 12
	default:
		return 16
	}
}

// Marshal holds the serialization rules that vary by release.
type Marshal struct {
	RefFlag    bool // tag bit 0x80 registers the value for 'r' references
	StringRefs bool // 't' strings are interned and addressable by 'R'
}

// Version holds the decoding rules for one release.
type Version struct {
	Major, Minor int
	Magic        uint16 // release magic
	MagicMin     uint16 // lowest development magic of the release
	Opcodes      *OpcodeTable
	Jumps        *JumpTable
	Layout       Layout
	CodeFields   []Field
	Header       HeaderLayout
	Marshal      Marshal
}

// Name returns "major.minor".
func (v *Version) Name() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

func (v *Version) String() string { return "Python " + v.Name() }

// AtLeast reports whether v is major.minor or newer.
func (v *Version) AtLeast(major, minor int) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

var (
	marshalPy2 = Marshal{StringRefs: true}
	marshalPy3 = Marshal{RefFlag: true}
)

// versions is ordered by release. Magic ranges come from the
// importlib._bootstrap_external history; each development magic of a
// release resolves to that release's row.
var versions = []*Version{
	{Major: 2, Minor: 7, Magic: 62211, MagicMin: 62171, Opcodes: newTable(opsPy27), Jumps: jumpsPy27, Layout: LayoutVariable, CodeFields: schemaPy2, Header: HeaderTimestamp, Marshal: marshalPy2},
	{Major: 3, Minor: 5, Magic: 3351, MagicMin: 3320, Opcodes: newTable(opsPy35), Jumps: jumpsPy27, Layout: LayoutVariable, CodeFields: schemaPy30, Header: HeaderTimestampSize, Marshal: marshalPy3},
	{Major: 3, Minor: 6, Magic: 3379, MagicMin: 3360, Opcodes: newTable(opsPy36), Jumps: jumpsPy27, Layout: LayoutWordcode, CodeFields: schemaPy30, Header: HeaderTimestampSize, Marshal: marshalPy3},
	{Major: 3, Minor: 7, Magic: 3394, MagicMin: 3390, Opcodes: newTable(opsPy37), Jumps: jumpsPy27, Layout: LayoutWordcode, CodeFields: schemaPy30, Header: HeaderFlags, Marshal: marshalPy3},
	{Major: 3, Minor: 8, Magic: 3413, MagicMin: 3400, Opcodes: newTable(opsPy38), Jumps: jumpsPy27, Layout: LayoutWordcode, CodeFields: schemaPy38, Header: HeaderFlags, Marshal: marshalPy3},
	{Major: 3, Minor: 9, Magic: 3425, MagicMin: 3420, Opcodes: newTable(opsPy39), Jumps: jumpsPy27, Layout: LayoutWordcode, CodeFields: schemaPy38, Header: HeaderFlags, Marshal: marshalPy3},
	{Major: 3, Minor: 10, Magic: 3439, MagicMin: 3430, Opcodes: newTable(opsPy310), Jumps: jumpsPy310, Layout: LayoutWordcode, CodeFields: schemaPy38, Header: HeaderFlags, Marshal: marshalPy3},
	{Major: 3, Minor: 11, Magic: 3495, MagicMin: 3450, Opcodes: newTable(opsPy311), Jumps: jumpsPy311, Layout: LayoutWordcode, CodeFields: schemaPy311, Header: HeaderFlags, Marshal: marshalPy3},
	{Major: 3, Minor: 12, Magic: 3531, MagicMin: 3500, Opcodes: newTable(opsPy312), Jumps: jumpsPy312, Layout: LayoutWordcode, CodeFields: schemaPy311, Header: HeaderFlags, Marshal: marshalPy3},
}

// Resolve returns the release whose magic range contains magic.
func Resolve(magic uint16) (*Version, error) {
	for _, v := range versions {
		if magic >= v.MagicMin && magic <= v.Magic {
			return v, nil
		}
	}
	return nil, pycfmt.Unsupported(0, magic)
}

// Lookup returns the release named "major.minor".
func Lookup(name string) (*Version, error) {
	for _, v := range versions {
		if v.Name() == name {
			return v, nil
		}
	}
	return nil, pycfmt.Errorf(pycfmt.KindUnsupportedVersion, 0, "no release %q", name)
}

// All returns every supported release, oldest first.
func All() []*Version {
	out := make([]*Version, len(versions))
	copy(out, versions)
	return out
}
