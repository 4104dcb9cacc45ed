package render

import (
	"bytes"
	"strings"
	"testing"

	"pycdump/internal/bytecode"
	"pycdump/internal/graph"
	"pycdump/internal/marshal"
	"pycdump/internal/pyver"
)

func units() []*graph.Unit {
	return []*graph.Unit{
		{Name: "<module>", Code: &marshal.Code{Name: "<module>"}, Insts: make([]bytecode.Instruction, 4)},
		{Name: "C", Parent: "<module>", Code: &marshal.Code{Name: "C"}, Insts: make([]bytecode.Instruction, 2)},
		{Name: "C.run", Parent: "C", Code: &marshal.Code{Name: "run"}},
		{Name: "C.stop", Parent: "C", Code: &marshal.Code{Name: "stop"}},
	}
}

func edges() []graph.Edge {
	return []graph.Edge{
		{Caller: "<module>", Callee: "C", Kind: "def", Internal: true},
		{Caller: "<module>", Callee: "__build_class__", Kind: "call", Offset: 8},
		{Caller: "C", Callee: "C.run", Kind: "def", Internal: true},
		{Caller: "C", Callee: "C.stop", Kind: "def", Internal: true},
		{Caller: "C.run", Callee: "C.stop", Kind: "call", Internal: true},
		{Caller: "C.run", Callee: "print", Kind: "call"},
		{Caller: "C.run", Callee: "print", Kind: "call"},
		{Caller: "C.run", Callee: "print", Kind: "call"},
		{Caller: "C.stop", Callee: "", Kind: "call"},
	}
}

func TestClassifyEdge(t *testing.T) {
	want := []string{CatDef, CatExternal, CatDef, CatDef, CatInternal, CatExternal, CatExternal, CatExternal, CatUnresolved}
	for i, e := range edges() {
		if got := ClassifyEdge(e); got != want[i] {
			t.Errorf("edge %d: got %q, want %q", i, got, want[i])
		}
	}
}

func TestCallgraphDOT(t *testing.T) {
	dot := CallgraphDOT(units(), edges(), "m.pyc", NASA, 0)

	if !strings.HasPrefix(dot, "digraph callgraph {") {
		t.Fatalf("unexpected header: %q", dot[:min(40, len(dot))])
	}
	for _, want := range []string{
		"subgraph cluster_n_C {",
		`n_C_002erun [label="run"]`,
		`n_print [label="print", shape=plaintext`,
		`n__003f [label="?"`,
		`n_C_002erun -> n_print [color="#00695C", style="solid", penwidth=0.8, label=`,
		`n__003cmodule_003e -> n_C [color="#9E9E9E", style="dotted"]`,
		`n_C_002estop -> n__003f [color="#FC3D21", style="dashed"]`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("missing %q in:\n%s", want, dot)
		}
	}
	if dot != CallgraphDOT(units(), edges(), "m.pyc", NASA, 0) {
		t.Error("output is not deterministic")
	}
}

func TestCallgraphDOTMaxNodes(t *testing.T) {
	dot := CallgraphDOT(units(), edges(), "", NASA, 2)
	if strings.Contains(dot, "C_002erun") {
		t.Errorf("node beyond the limit rendered:\n%s", dot)
	}
	if !strings.Contains(dot, "n__003cmodule_003e -> n_C ") {
		t.Errorf("edge between rendered units missing:\n%s", dot)
	}
}

func TestComputeStats(t *testing.T) {
	s := ComputeStats(units(), edges())
	if s.Units != 4 || s.Instructions != 6 {
		t.Errorf("units=%d insts=%d, want 4 and 6", s.Units, s.Instructions)
	}
	if s.DefEdges != 3 || s.CallEdges != 6 {
		t.Errorf("defs=%d calls=%d, want 3 and 6", s.DefEdges, s.CallEdges)
	}
	if s.CategoryCounts[CatExternal] != 4 || s.CategoryCounts[CatUnresolved] != 1 {
		t.Errorf("categories = %v", s.CategoryCounts)
	}
	if len(s.TopCallers) == 0 || s.TopCallers[0] != (NameCount{"C.run", 4}) {
		t.Errorf("top callers = %v", s.TopCallers)
	}
	if len(s.TopCallees) == 0 || s.TopCallees[0] != (NameCount{"print", 3}) {
		t.Errorf("top callees = %v", s.TopCallees)
	}
	// Nothing calls into C from the module body.
	want := []string{"C", "C.run", "C.stop"}
	if strings.Join(s.Unreached, ",") != strings.Join(want, ",") {
		t.Errorf("unreached = %v, want %v", s.Unreached, want)
	}
}

func TestReachableSet(t *testing.T) {
	r := ReachableSet([]string{"C.run"}, edges())
	if !r["C.run"] || !r["C.stop"] {
		t.Errorf("reachable = %v", r)
	}
	if r["print"] {
		t.Error("external callee should not be reachable")
	}
}

func TestCFGDOT(t *testing.T) {
	v, err := pyver.Lookup("3.9")
	if err != nil {
		t.Fatal(err)
	}
	insts := []bytecode.Instruction{
		{Offset: 0, Name: "LOAD_NAME", HasArg: true, Size: 2},
		{Offset: 2, Name: "POP_JUMP_IF_FALSE", HasArg: true, Arg: 8, Size: 2},
		{Offset: 4, Name: "LOAD_CONST", HasArg: true, Size: 2},
		{Offset: 6, Name: "RETURN_VALUE", Size: 2},
		{Offset: 8, Name: "LOAD_CONST", HasArg: true, Arg: 1, Size: 2},
		{Offset: 10, Name: "RETURN_VALUE", Size: 2},
	}
	cfg := bytecode.BuildCFG("f", insts, v)
	dot := CFGDOT(cfg, func(in bytecode.Instruction) string {
		if in.Name == "LOAD_NAME" {
			return "x"
		}
		return ""
	}, NASA)

	for _, want := range []string{
		"digraph cfg {",
		"0: LOAD_NAME 0 (x)",
		"bb0 -> bb2 [color=\"#0B3D91\"",
		"bb0 -> bb1 [color=\"#FC3D21\"",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("missing %q in:\n%s", want, dot)
		}
	}
	if CFGDOT(bytecode.FuncCFG{Name: "empty"}, nil, NASA) != "" {
		t.Error("empty CFG should render nothing")
	}
}

func TestWriteIndexHTML(t *testing.T) {
	var buf bytes.Buffer
	WriteIndexHTML(&buf, ComputeStats(units(), edges()), "m.pyc <3.9>", []string{"callgraph.dot"})
	out := buf.String()
	for _, want := range []string{
		"<title>m.pyc &lt;3.9&gt;</title>",
		`<a href="callgraph.dot">callgraph.dot</a>`,
		"<td class=\"unit\">C.run</td><td class=\"num\">4</td>",
		"</body></html>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestSafeFileName(t *testing.T) {
	if got := SafeFileName("f.<locals>.<lambda>"); got != "f._locals_._lambda_" {
		t.Errorf("got %q", got)
	}
}
