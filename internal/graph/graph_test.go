package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"pycdump/internal/marshal"
	"pycdump/internal/pycfmt"
	"pycdump/internal/pyctest"
	"pycdump/internal/pyver"
)

// fixture is, for 3.9:
//
//	def f(x):
//	    def inner(): ...
//	    if x:
//	        inner()
//	    print(None)
//	f()
func fixture(t *testing.T) (*marshal.Code, *pyver.Version) {
	t.Helper()
	v, err := pyver.Lookup("3.9")
	require.NoError(t, err)

	inner := &marshal.Code{
		Name:     "inner",
		QualName: "f.<locals>.inner",
		Code:     pyctest.Asm(v, pyctest.Op("LOAD_CONST", 0), pyctest.Op("RETURN_VALUE")),
		Consts:   &marshal.Tuple{Items: []marshal.Object{marshal.None{}}},
	}
	f := &marshal.Code{
		Name:     "f",
		QualName: "f",
		Code: pyctest.Asm(v,
			pyctest.Op("LOAD_CONST", 1),         //  0
			pyctest.Op("LOAD_CONST", 2),         //  2
			pyctest.Op("MAKE_FUNCTION", 0),      //  4
			pyctest.Op("STORE_FAST", 1),         //  6
			pyctest.Op("LOAD_FAST", 0),          //  8
			pyctest.Op("POP_JUMP_IF_FALSE", 18), // 10
			pyctest.Op("LOAD_FAST", 1),          // 12
			pyctest.Op("CALL_FUNCTION", 0),      // 14
			pyctest.Op("POP_TOP"),               // 16
			pyctest.Op("LOAD_GLOBAL", 0),        // 18
			pyctest.Op("LOAD_CONST", 0),         // 20
			pyctest.Op("CALL_FUNCTION", 1),      // 22
			pyctest.Op("RETURN_VALUE"),          // 24
		),
		Consts:   &marshal.Tuple{Items: []marshal.Object{marshal.None{}, inner, marshal.Str("f.<locals>.inner")}},
		Names:    []string{"print"},
		VarNames: []string{"x", "inner"},
	}
	mod := &marshal.Code{
		Name:     "<module>",
		QualName: "<module>",
		Code: pyctest.Asm(v,
			pyctest.Op("LOAD_CONST", 0),
			pyctest.Op("LOAD_CONST", 1),
			pyctest.Op("MAKE_FUNCTION", 0),
			pyctest.Op("STORE_NAME", 0),
			pyctest.Op("LOAD_NAME", 0),
			pyctest.Op("CALL_FUNCTION", 0),
			pyctest.Op("POP_TOP"),
			pyctest.Op("LOAD_CONST", 2),
			pyctest.Op("RETURN_VALUE"),
		),
		Consts: &marshal.Tuple{Items: []marshal.Object{f, marshal.Str("f"), marshal.None{}}},
		Names:  []string{"f"},
	}
	return mod, v
}

func TestCollect(t *testing.T) {
	mod, v := fixture(t)
	units, err := Collect(mod, v, pycfmt.Options{})
	require.NoError(t, err)
	require.Len(t, units, 3)

	assert.Equal(t, "<module>", units[0].Name)
	assert.Empty(t, units[0].Parent)
	assert.Equal(t, "f", units[1].Name)
	assert.Equal(t, "<module>", units[1].Parent)
	assert.Equal(t, []int{0}, units[1].Path)
	assert.Equal(t, "f.inner", units[2].Name)
	assert.Equal(t, "f", units[2].Parent)
	assert.Equal(t, []int{0, 1}, units[2].Path)
	assert.Len(t, units[1].Insts, 13)
}

func TestCollectDuplicateNames(t *testing.T) {
	v, err := pyver.Lookup("3.9")
	require.NoError(t, err)
	lambda := func() *marshal.Code {
		return &marshal.Code{Name: "<lambda>", Consts: &marshal.Tuple{}}
	}
	mod := &marshal.Code{
		Name:   "<module>",
		Consts: &marshal.Tuple{Items: []marshal.Object{lambda(), lambda()}},
	}
	units, err := Collect(mod, v, pycfmt.Options{})
	require.NoError(t, err)
	require.Len(t, units, 3)
	assert.Equal(t, "<lambda>", units[1].Name)
	assert.Equal(t, "<lambda>#1", units[2].Name)
}

func TestCollectAggregatesErrors(t *testing.T) {
	v, err := pyver.Lookup("3.9")
	require.NoError(t, err)
	bad := &marshal.Code{Name: "bad", Code: []byte{100, 0, 83}, Consts: &marshal.Tuple{}}
	worse := &marshal.Code{Name: "worse", Code: []byte{144, 1}, Consts: &marshal.Tuple{}}
	mod := &marshal.Code{
		Name:   "<module>",
		Code:   []byte{100, 0, 83, 0},
		Consts: &marshal.Tuple{Items: []marshal.Object{bad, worse}},
	}
	units, err := Collect(mod, v, pycfmt.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, pycfmt.ErrMalformedBytecode)
	assert.Contains(t, err.Error(), "2 errors occurred")
	assert.Len(t, units, 3)
	assert.Len(t, units[0].Insts, 2)
}

func TestBuildCallGraph(t *testing.T) {
	mod, v := fixture(t)
	units, err := Collect(mod, v, pycfmt.Options{})
	require.NoError(t, err)

	g := BuildCallGraph(units)
	assert.Subset(t, g.Nodes, []string{"<module>", "f", "f.inner"})
	assert.ElementsMatch(t, []lattice.Edge{
		{Caller: "<module>", Callee: "f"},
		{Caller: "f", Callee: "f.inner"},
		{Caller: "f", Callee: "print"},
	}, g.Edges)

	dot := render.DOT(g, "calls")
	assert.Contains(t, dot, "digraph")
	assert.Contains(t, dot, "print")
}

func TestNestingGraph(t *testing.T) {
	mod, v := fixture(t)
	units, err := Collect(mod, v, pycfmt.Options{})
	require.NoError(t, err)

	g := NestingGraph(units)
	assert.ElementsMatch(t, []lattice.Edge{
		{Caller: "<module>", Callee: "f"},
		{Caller: "f", Callee: "f.inner"},
	}, g.Edges)
}

func TestBuildCFG(t *testing.T) {
	mod, v := fixture(t)
	units, err := Collect(mod, v, pycfmt.Options{})
	require.NoError(t, err)

	cg := BuildCFG(units, v)
	require.Len(t, cg.Funcs, 3)

	f := cg.Funcs[1]
	assert.Equal(t, "f", f.Name)
	// Leaders: 0, 6 (after the jump), 9 (jump target).
	require.Len(t, f.Blocks, 3)

	b0 := f.Blocks[0]
	assert.Equal(t, []lattice.Successor{{BlockID: 2, Cond: "T"}, {BlockID: 1, Cond: "F"}}, b0.Succs)
	assert.Empty(t, b0.Calls)

	b1 := f.Blocks[1]
	require.Len(t, b1.Calls, 1)
	assert.Equal(t, lattice.CallSite{Offset: 7, Callee: "f.inner"}, b1.Calls[0])
	assert.Equal(t, []lattice.Successor{{BlockID: 2}}, b1.Succs)

	b2 := f.Blocks[2]
	require.Len(t, b2.Calls, 1)
	assert.Equal(t, "print", b2.Calls[0].Callee)
	assert.True(t, b2.Term)

	dot := render.DOTCFG(cg, "cfg")
	assert.NotEmpty(t, dot)
}

func TestBuildFuncCFG(t *testing.T) {
	mod, v := fixture(t)
	units, err := Collect(mod, v, pycfmt.Options{})
	require.NoError(t, err)

	lcfg, n := BuildFuncCFG(units[0], nil, v)
	assert.Equal(t, 1, n)
	require.Len(t, lcfg.Blocks, 1)
	require.Len(t, lcfg.Blocks[0].Calls, 1)
	assert.Equal(t, "f", lcfg.Blocks[0].Calls[0].Callee)
}

func TestEdges(t *testing.T) {
	mod, v := fixture(t)
	units, err := Collect(mod, v, pycfmt.Options{})
	require.NoError(t, err)

	es := Edges(units)
	require.Len(t, es, 5)
	assert.Equal(t, Edge{Caller: "<module>", Callee: "f", Kind: "def", Offset: 4, Internal: true}, es[0])
	assert.Equal(t, Edge{Caller: "f", Callee: "print", Kind: "call", Offset: 22}, es[4])

	calls := Calls(es)
	require.Len(t, calls, 3)
	for _, e := range calls {
		assert.Equal(t, "call", e.Kind)
	}
}
