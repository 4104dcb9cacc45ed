package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pycdump/internal/marshal"
	"pycdump/internal/pycfmt"
	"pycdump/internal/pyctest"
)

func TestCallEdgesPy39(t *testing.T) {
	v := version(t, "3.9")
	c := &marshal.Code{
		Name: "<module>",
		Code: pyctest.Asm(v,
			pyctest.Op("LOAD_CONST", 0),
			pyctest.Op("LOAD_CONST", 1),
			pyctest.Op("MAKE_FUNCTION", 0),
			pyctest.Op("STORE_NAME", 0),
			pyctest.Op("LOAD_NAME", 1),
			pyctest.Op("LOAD_NAME", 0),
			pyctest.Op("CALL_FUNCTION", 0),
			pyctest.Op("CALL_FUNCTION", 1),
			pyctest.Op("POP_TOP"),
			pyctest.Op("LOAD_NAME", 2),
			pyctest.Op("LOAD_METHOD", 3),
			pyctest.Op("CALL_METHOD", 0),
			pyctest.Op("POP_TOP"),
			pyctest.Op("LOAD_CONST", 2),
			pyctest.Op("RETURN_VALUE"),
		),
		Consts: &marshal.Tuple{Items: []marshal.Object{&marshal.Code{Name: "f"}, marshal.Str("f"), marshal.None{}}},
		Names:  []string{"f", "print", "os", "getcwd"},
	}
	insts, err := Decode(c, v, pycfmt.Options{})
	require.NoError(t, err)

	assert.Equal(t, []CallEdge{
		{Offset: 4, Kind: "def", Callee: "f"},
		{Offset: 12, Kind: "call", Callee: "f"},
		{Offset: 14, Kind: "call", Callee: "print"},
		{Offset: 22, Kind: "call", Callee: "os.getcwd"},
	}, CallEdges(c, insts, v))
}

func TestCallEdgesPy311(t *testing.T) {
	v := version(t, "3.11")
	c := &marshal.Code{
		Name: "main",
		Code: pyctest.Asm(v,
			pyctest.Op("RESUME", 0),
			pyctest.Op("LOAD_GLOBAL", 1), // NULL + print
			pyctest.Op("LOAD_CONST", 0),
			pyctest.Op("PRECALL", 1),
			pyctest.Op("CALL", 1),
			pyctest.Op("POP_TOP"),
			pyctest.Op("LOAD_FAST", 0),
			pyctest.Op("LOAD_METHOD", 1),
			pyctest.Op("PRECALL", 0),
			pyctest.Op("CALL", 0),
			pyctest.Op("RETURN_VALUE"),
		),
		Consts:          &marshal.Tuple{Items: []marshal.Object{marshal.Str("hi")}},
		Names:           []string{"print", "run"},
		LocalsPlusNames: []string{"self"},
	}
	insts, err := Decode(c, v, pycfmt.Options{SkipCache: true})
	require.NoError(t, err)

	edges := CallEdges(c, insts, v)
	require.Len(t, edges, 2)
	assert.Equal(t, "print", edges[0].Callee)
	assert.Equal(t, "self.run", edges[1].Callee)
}

func TestCallEdgesClassBody(t *testing.T) {
	v := version(t, "3.8")
	c := &marshal.Code{
		Name: "<module>",
		Code: pyctest.Asm(v,
			pyctest.Op("LOAD_BUILD_CLASS"),
			pyctest.Op("LOAD_CONST", 0),
			pyctest.Op("LOAD_CONST", 1),
			pyctest.Op("MAKE_FUNCTION", 0),
			pyctest.Op("LOAD_CONST", 1),
			pyctest.Op("CALL_FUNCTION", 2),
			pyctest.Op("STORE_NAME", 0),
		),
		Consts: &marshal.Tuple{Items: []marshal.Object{&marshal.Code{Name: "C"}, marshal.Str("C")}},
		Names:  []string{"C"},
	}
	insts, err := Decode(c, v, pycfmt.Options{})
	require.NoError(t, err)
	assert.Equal(t, []CallEdge{
		{Offset: 6, Kind: "def", Callee: "C"},
		{Offset: 10, Kind: "call", Callee: "__build_class__"},
	}, CallEdges(c, insts, v))
}

func TestCallEdgesUnresolved(t *testing.T) {
	v := version(t, "3.9")
	c := &marshal.Code{
		Name: "f",
		Code: pyctest.Asm(v,
			pyctest.Op("LOAD_NAME", 0),
			pyctest.Op("UNARY_NOT"),
			pyctest.Op("CALL_FUNCTION", 0),
		),
		Consts: &marshal.Tuple{},
		Names:  []string{"g"},
	}
	insts, err := Decode(c, v, pycfmt.Options{})
	require.NoError(t, err)
	edges := CallEdges(c, insts, v)
	require.Len(t, edges, 1)
	assert.Empty(t, edges[0].Callee)
}
