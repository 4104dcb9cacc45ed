package pyver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pycdump/internal/pycfmt"
)

func TestResolveReleaseMagics(t *testing.T) {
	tests := []struct {
		magic  uint16
		want   string
		layout Layout
	}{
		{62211, "2.7", LayoutVariable},
		{3351, "3.5", LayoutVariable},
		{3379, "3.6", LayoutWordcode},
		{3394, "3.7", LayoutWordcode},
		{3413, "3.8", LayoutWordcode},
		{3425, "3.9", LayoutWordcode},
		{3439, "3.10", LayoutWordcode},
		{3495, "3.11", LayoutWordcode},
		{3531, "3.12", LayoutWordcode},
		{3361, "3.6", LayoutWordcode}, // development magic
		{3450, "3.11", LayoutWordcode},
	}
	for _, tt := range tests {
		v, err := Resolve(tt.magic)
		require.NoError(t, err, "magic %d", tt.magic)
		assert.Equal(t, tt.want, v.Name(), "magic %d", tt.magic)
		assert.Equal(t, tt.layout, v.Layout, "magic %d", tt.magic)
	}
}

func TestResolveUnsupported(t *testing.T) {
	for _, magic := range []uint16{0, 3310, 3440, 3600, 0xffff} {
		v, err := Resolve(magic)
		assert.Nil(t, v)
		assert.True(t, errors.Is(err, pycfmt.ErrUnsupportedVersion), "magic %d", magic)
	}
}

func TestLookup(t *testing.T) {
	v, err := Lookup("3.8")
	require.NoError(t, err)
	assert.Equal(t, uint16(3413), v.Magic)

	_, err = Lookup("1.5")
	assert.ErrorIs(t, err, pycfmt.ErrUnsupportedVersion)
}

func TestRangesDoNotOverlap(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)
	for i, a := range all {
		assert.LessOrEqual(t, a.MagicMin, a.Magic, a.Name())
		for _, b := range all[i+1:] {
			overlap := a.MagicMin <= b.Magic && b.MagicMin <= a.Magic
			assert.False(t, overlap, "%s overlaps %s", a.Name(), b.Name())
		}
	}
}

func TestExtendedArgOpcode(t *testing.T) {
	v27, _ := Lookup("2.7")
	assert.Equal(t, byte(145), v27.Opcodes.ExtendedArg())
	for _, name := range []string{"3.5", "3.6", "3.9", "3.11", "3.12"} {
		v, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, byte(144), v.Opcodes.ExtendedArg(), name)
	}
}

func TestOpcodeDeltas(t *testing.T) {
	tests := []struct {
		version string
		op      byte
		want    string
	}{
		{"2.7", 100, "LOAD_CONST"},
		{"2.7", 71, "PRINT_ITEM"},
		{"3.5", 134, "MAKE_CLOSURE"},
		{"3.6", 142, "CALL_FUNCTION_EX"},
		{"3.6", 134, "<134>"},
		{"3.7", 160, "LOAD_METHOD"},
		{"3.7", 127, "<127>"},
		{"3.8", 120, "<120>"},
		{"3.8", 6, "ROT_FOUR"},
		{"3.9", 48, "RERAISE"},
		{"3.9", 82, "LIST_TO_TUPLE"},
		{"3.10", 48, "<48>"},
		{"3.10", 119, "RERAISE"},
		{"3.11", 0, "CACHE"},
		{"3.11", 171, "CALL"},
		{"3.12", 121, "RETURN_CONST"},
		{"3.12", 83, "RETURN_VALUE"},
	}
	for _, tt := range tests {
		v, err := Lookup(tt.version)
		require.NoError(t, err)
		assert.Equal(t, tt.want, v.Opcodes.Lookup(tt.op).Name, "%s op %d", tt.version, tt.op)
	}
}

func TestOpcodeHasArg(t *testing.T) {
	v, _ := Lookup("3.9")
	assert.False(t, v.Opcodes.Lookup(83).HasArg)
	assert.True(t, v.Opcodes.Lookup(100).HasArg)
	assert.True(t, v.Opcodes.Lookup(200).HasArg, "unknown opcodes follow HAVE_ARGUMENT")
	assert.False(t, v.Opcodes.Lookup(200).Known)

	op, ok := v.Opcodes.ByName("RETURN_VALUE")
	require.True(t, ok)
	assert.Equal(t, byte(83), op)
}

func TestCodeSchemas(t *testing.T) {
	tests := []struct {
		version string
		fields  int
		first   []Field
	}{
		{"2.7", 14, []Field{FieldArgCount, FieldNLocals}},
		{"3.5", 15, []Field{FieldArgCount, FieldKwOnlyArgCount}},
		{"3.8", 16, []Field{FieldArgCount, FieldPosOnlyArgCount, FieldKwOnlyArgCount}},
		{"3.11", 16, []Field{FieldArgCount, FieldPosOnlyArgCount, FieldKwOnlyArgCount, FieldStackSize}},
	}
	for _, tt := range tests {
		v, err := Lookup(tt.version)
		require.NoError(t, err)
		assert.Len(t, v.CodeFields, tt.fields, tt.version)
		assert.Equal(t, tt.first, v.CodeFields[:len(tt.first)], tt.version)
	}

	v311, _ := Lookup("3.11")
	assert.Contains(t, v311.CodeFields, FieldLocalsPlusKinds)
	assert.NotContains(t, v311.CodeFields, FieldVarNames)
}

func TestHeaderLayouts(t *testing.T) {
	v27, _ := Lookup("2.7")
	v36, _ := Lookup("3.6")
	v37, _ := Lookup("3.7")
	assert.Equal(t, 8, v27.Header.Size())
	assert.Equal(t, 12, v36.Header.Size())
	assert.Equal(t, 16, v37.Header.Size())
	assert.False(t, v27.Marshal.RefFlag)
	assert.True(t, v37.Marshal.RefFlag)
}
