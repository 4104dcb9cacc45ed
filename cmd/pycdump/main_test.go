package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pycdump/internal/pyctest"
	"pycdump/internal/pyver"
)

// writeFixture writes a 3.9 module that defines f and calls it.
func writeFixture(t *testing.T, dir string) string {
	t.Helper()
	v, err := pyver.Lookup("3.9")
	require.NoError(t, err)
	f := &pyctest.Code{
		Name:     "f",
		Filename: "m.py",
		Bytecode: pyctest.Asm(v, pyctest.Op("LOAD_CONST", 1), pyctest.Op("RETURN_VALUE")),
		Consts:   []any{nil, 42},
	}
	mod := &pyctest.Code{
		Name:     "<module>",
		Filename: "m.py",
		Bytecode: pyctest.Asm(v,
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
		Consts: []any{f, "f", nil},
		Names:  []string{"f"},
	}
	path := filepath.Join(dir, "m.pyc")
	require.NoError(t, os.WriteFile(path, pyctest.File(v, mod), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestDump(t *testing.T) {
	path := writeFixture(t, t.TempDir())

	out, _, err := run(t, "dump", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Python 3.9\n")
	assert.Contains(t, out, "--- Main Module: <module> ---\n")
	assert.Contains(t, out, "--- Main Module -> Const 0: f ---\n")
	assert.Contains(t, out, "    10: CALL_FUNCTION                  (arg=0)\n")
	assert.NotContains(t, out, "==>")
}

func TestDumpAnnotate(t *testing.T) {
	path := writeFixture(t, t.TempDir())

	out, _, err := run(t, "dump", "--annotate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "(arg=0)  ; f\n")
}

func TestDumpMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir)
	missing := filepath.Join(dir, "missing.pyc")

	out, _, err := run(t, "dump", path, missing, path)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, out, "==> "+path+" <==\n")
	assert.Contains(t, out, "==> "+missing+" <==\n")
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte("Python 3.9\n")))
}

func TestDumpJSON(t *testing.T) {
	path := writeFixture(t, t.TempDir())

	out, _, err := run(t, "dump", "--json", path)
	require.NoError(t, err)

	var doc struct {
		Version string `json:"version"`
		Units   []struct {
			Name string `json:"name"`
		} `json:"units"`
		Edges []struct {
			Caller string `json:"caller"`
			Callee string `json:"callee"`
			Kind   string `json:"kind"`
		} `json:"edges"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "3.9", doc.Version)
	require.Len(t, doc.Units, 2)
	assert.Equal(t, "f", doc.Units[1].Name)
	require.Len(t, doc.Edges, 2)
	assert.Equal(t, "call", doc.Edges[1].Kind)
	assert.Equal(t, "f", doc.Edges[1].Callee)
}

func TestDumpForcedVersion(t *testing.T) {
	path := writeFixture(t, t.TempDir())

	_, _, err := run(t, "--python", "2.0", "dump", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported_version")
}

func TestDumpRequiresFile(t *testing.T) {
	_, _, err := run(t, "dump")
	assert.Error(t, err)
}

func TestInfo(t *testing.T) {
	path := writeFixture(t, t.TempDir())

	out, _, err := run(t, "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Version:       Python 3.9 (magic 3425)\n")
	assert.Contains(t, out, "Header:        16 bytes, flags 0x0\n")
	assert.Contains(t, out, "Code units:    2\n")
	assert.Contains(t, out, "Edges:         1 def, 1 call\n")

	out, _, err = run(t, "info", "--json", path)
	require.NoError(t, err)
	var info fileInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, 2, info.Units)
	assert.Equal(t, 11, info.Instructions)
	assert.Equal(t, "code", info.RootType)
}

func TestGraph(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir)
	out := filepath.Join(dir, "out")

	_, log, err := run(t, "graph", "--out", out, "--cfg", "--min-blocks", "1", "--html", path)
	require.NoError(t, err)
	assert.Contains(t, log, "Python 3.9: 2 units, 2 edges\n")
	assert.Contains(t, log, "reachable units: 2 / 2\n")

	for _, name := range []string{
		"callgraph.dot", "lattice.dot", "nesting.dot", "edges.json",
		"document.json", "cfg.dot", "index.html",
		filepath.Join("cfg", "f.dot"),
	} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}

	html, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<title>m.pyc</title>")
	assert.Contains(t, string(html), `<a href="cfg.dot">cfg.dot</a>`)
}

func TestGraphRequiresOut(t *testing.T) {
	path := writeFixture(t, t.TempDir())
	_, _, err := run(t, "graph", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--out is required")
}

func TestVersions(t *testing.T) {
	out, _, err := run(t, "versions")
	require.NoError(t, err)
	assert.Contains(t, out, "RELEASE  MAGIC         LAYOUT    HEADER    OPCODES  ARG FROM\n")

	for _, name := range []string{"2.7", "3.9"} {
		v, err := pyver.Lookup(name)
		require.NoError(t, err)
		assert.Contains(t, out, fmt.Sprintf("%-8d %d\n", v.Opcodes.Len(), v.Opcodes.HaveArgument()))
	}
	assert.Contains(t, out, "3.9      3420-3425     wordcode  16 bytes  ")
	assert.Contains(t, out, "2.7      62171-62211   variable  8 bytes   ")
}

func TestInfoUnknownOpcodes(t *testing.T) {
	v, err := pyver.Lookup("3.9")
	require.NoError(t, err)
	mod := &pyctest.Code{
		Name:     "<module>",
		Bytecode: []byte{200, 0, 201, 0, 100, 0, 83, 0},
		Consts:   []any{nil},
	}
	path := filepath.Join(t.TempDir(), "odd.pyc")
	require.NoError(t, os.WriteFile(path, pyctest.File(v, mod), 0644))

	out, _, err := run(t, "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Unknown ops:   2\n")

	out, _, err = run(t, "info", "--json", path)
	require.NoError(t, err)
	var info fileInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, 2, info.Unknown)
}

func TestConfigFromEnv(t *testing.T) {
	path := writeFixture(t, t.TempDir())
	t.Setenv("PYCDUMP_PYTHON", "3.8")

	out, _, err := run(t, "dump", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Python 3.8\n")
}
