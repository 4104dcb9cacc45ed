package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	latticerender "github.com/zboralski/lattice/render"

	"pycdump/internal/graph"
	"pycdump/internal/output"
	"pycdump/internal/pyc"
	"pycdump/internal/render"
)

type graphFlags struct {
	out       string
	title     string
	maxNodes  int
	cfg       bool
	minBlocks int
	html      bool
	svg       bool
}

func (a *app) graphCmd() *cobra.Command {
	var fl graphFlags
	cmd := &cobra.Command{
		Use:   "graph <file.pyc>",
		Short: "Write call graph, nesting graph and CFG files for a file",
		Long: `graph decodes every code unit of a file and writes to --out:

  callgraph.dot      themed call graph with definition edges
  lattice.dot        plain call graph
  nesting.dot        which unit defines which
  edges.json         resolved def and call edges
  document.json      the full decoded document
  cfg/<unit>.dot     per-unit control-flow graphs (--cfg)
  cfg.dot            all CFGs in one file (--cfg)
  index.html         summary page (--html)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fl.out == "" {
				return fmt.Errorf("--out is required")
			}
			return a.runGraph(cmd, args[0], fl)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&fl.out, "out", "o", "", "output directory")
	f.StringVar(&fl.title, "title", "", "graph title (defaults to the file name)")
	f.IntVar(&fl.maxNodes, "max-nodes", 0, "max unit nodes in callgraph.dot (0 = all)")
	f.BoolVar(&fl.cfg, "cfg", false, "write per-unit control-flow graphs")
	f.IntVar(&fl.minBlocks, "min-blocks", 2, "skip CFGs with fewer basic blocks")
	f.BoolVar(&fl.html, "html", false, "write index.html")
	f.BoolVar(&fl.svg, "svg", false, "render callgraph.svg with graphviz dot")
	return cmd
}

func (a *app) runGraph(cmd *cobra.Command, path string, fl graphFlags) error {
	log := cmd.ErrOrStderr()
	opts := a.decodeOptions()

	f, err := pyc.ReadFile(path, opts)
	if err != nil {
		return err
	}
	root, ok := f.Code()
	if !ok {
		return fmt.Errorf("%s: root object is %s, not code", path, f.Root.Type())
	}
	if fl.title == "" {
		fl.title = filepath.Base(path)
	}

	units, err := graph.Collect(root, f.Version, opts)
	if err != nil {
		// Units before a decode failure are still graphed.
		fmt.Fprintf(log, "warning: %v\n", err)
	}
	edges := graph.Edges(units)
	fmt.Fprintf(log, "%s: %d units, %d edges\n", f.Version, len(units), len(edges))

	if err := os.MkdirAll(fl.out, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", fl.out, err)
	}

	artifacts := []string{"callgraph.dot", "lattice.dot", "nesting.dot", "edges.json", "document.json"}
	texts := map[string]string{
		"callgraph.dot": render.CallgraphDOT(units, edges, fl.title, render.NASA, fl.maxNodes),
		"lattice.dot":   latticerender.DOT(graph.BuildCallGraph(units), fl.title),
		"nesting.dot":   latticerender.DOT(graph.NestingGraph(units), fl.title+" (nesting)"),
	}
	for _, name := range artifacts[:3] {
		if err := output.WriteText(fl.out, name, texts[name]); err != nil {
			return err
		}
		wrote(log, filepath.Join(fl.out, name))
	}

	if err := output.WriteEdgesJSON(fl.out, edges); err != nil {
		return err
	}
	wrote(log, filepath.Join(fl.out, "edges.json"))

	doc, _ := output.BuildDocument(path, f, opts)
	if err := output.WriteDocumentJSON(fl.out, doc); err != nil {
		return err
	}
	wrote(log, filepath.Join(fl.out, "document.json"))

	reached := render.ReachableSet([]string{units[0].Name}, edges)
	fmt.Fprintf(log, "reachable units: %d / %d\n", len(reached), len(units))

	if fl.svg {
		svgPath := filepath.Join(fl.out, "callgraph.svg")
		if err := runDot(filepath.Join(fl.out, "callgraph.dot"), svgPath, "svg"); err != nil {
			fmt.Fprintf(log, "warning: callgraph SVG failed: %v\n", err)
		} else {
			artifacts = append(artifacts, "callgraph.svg")
			wrote(log, svgPath)
		}
	}

	if fl.cfg {
		written, err := output.WriteCFGs(fl.out, units, f.Version, fl.minBlocks)
		if err != nil {
			return fmt.Errorf("write CFGs: %w", err)
		}
		fmt.Fprintf(log, "generated %d CFGs in %s\n", len(written), filepath.Join(fl.out, "cfg"))
		artifacts = append(artifacts, written...)

		dot := latticerender.DOTCFG(graph.BuildCFG(units, f.Version), fl.title)
		if err := output.WriteText(fl.out, "cfg.dot", dot); err != nil {
			return err
		}
		artifacts = append(artifacts, "cfg.dot")
		wrote(log, filepath.Join(fl.out, "cfg.dot"))
	}

	if fl.html {
		htmlPath := filepath.Join(fl.out, "index.html")
		var b strings.Builder
		render.WriteIndexHTML(&b, render.ComputeStats(units, edges), fl.title, artifacts)
		if err := output.WriteText(fl.out, "index.html", b.String()); err != nil {
			return err
		}
		wrote(log, htmlPath)
	}
	return nil
}
