// Package output writes pycdump results: the text listing, the JSON
// document and graph files.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"pycdump/internal/bytecode"
	"pycdump/internal/graph"
	"pycdump/internal/pyver"
	"pycdump/internal/render"
)

// WriteDocumentJSON writes doc to <dir>/document.json.
func WriteDocumentJSON(dir string, doc *Document) error {
	return writeJSON(filepath.Join(dir, "document.json"), doc)
}

// WriteEdgesJSON writes resolved edges to <dir>/edges.json.
func WriteEdgesJSON(dir string, edges []graph.Edge) error {
	return writeJSON(filepath.Join(dir, "edges.json"), edges)
}

// WriteText writes text to <dir>/<name>, creating parent directories.
// name may contain path separators (e.g., "cfg/f.dot").
func WriteText(dir, name, text string) error {
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, []byte(text), 0644)
}

// WriteCFGs writes one DOT file per unit with at least minBlocks basic
// blocks to <dir>/cfg/<unit>.dot and returns the relative paths written.
func WriteCFGs(dir string, units []*graph.Unit, v *pyver.Version, minBlocks int) ([]string, error) {
	var written []string
	for _, u := range units {
		cfg := bytecode.BuildCFG(u.Name, u.Insts, v)
		if len(cfg.Blocks) < minBlocks {
			continue
		}
		dot := render.CFGDOT(cfg, bytecode.ArgAnnotator(u.Code, v), render.NASA)
		if dot == "" {
			continue
		}
		name := filepath.Join("cfg", render.SafeFileName(u.Name)+".dot")
		if err := WriteText(dir, name, dot); err != nil {
			return written, err
		}
		written = append(written, name)
	}
	return written, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode %s: %w", path, err)
	}
	return nil
}
