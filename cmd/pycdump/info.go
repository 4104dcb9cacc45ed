package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pycdump/internal/graph"
	"pycdump/internal/output"
	"pycdump/internal/pyc"
	"pycdump/internal/render"
)

// fileInfo is the summary printed by the info command.
type fileInfo struct {
	File         string             `json:"file"`
	Version      string             `json:"version"`
	Magic        uint16             `json:"magic"`
	HeaderSize   int                `json:"header_size"`
	Flags        uint32             `json:"flags"`
	HashBased    bool               `json:"hash_based"`
	CheckSource  bool               `json:"check_source,omitempty"`
	Hash         string             `json:"hash,omitempty"`
	ModTime      string             `json:"mtime,omitempty"`
	SourceSize   uint32             `json:"source_size,omitempty"`
	RootType     string             `json:"root_type"`
	Units        int                `json:"units"`
	Instructions int                `json:"instructions"`
	DefEdges     int                `json:"def_edges"`
	CallEdges    int                `json:"call_edges"`
	Unknown      int                `json:"unknown_opcodes,omitempty"`
	TopCallees   []render.NameCount `json:"top_callees,omitempty"`
	Errors       int                `json:"errors,omitempty"`
}

func (a *app) infoCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "info <file.pyc>",
		Short: "Summarize the header and code units of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.collectInfo(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return output.WriteJSON(out, info, prettyJSON(out))
			}
			writeInfo(out, info)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	return cmd
}

func (a *app) collectInfo(path string) (*fileInfo, error) {
	opts := a.decodeOptions()
	f, err := pyc.ReadFile(path, opts)
	if err != nil {
		return nil, err
	}
	h := f.Header
	info := &fileInfo{
		File:        path,
		Version:     f.Version.Name(),
		Magic:       h.Magic,
		HeaderSize:  h.Size,
		Flags:       h.Flags,
		HashBased:   h.HashBased(),
		CheckSource: h.HashBased() && h.CheckSource(),
		SourceSize:  h.SourceSize,
		RootType:    f.Root.Type().String(),
	}
	if h.Hash != nil {
		info.Hash = hex.EncodeToString(h.Hash)
	}
	if t := h.ModTime(); !t.IsZero() {
		info.ModTime = t.Format("2006-01-02 15:04:05 UTC")
	}

	root, ok := f.Code()
	if !ok {
		return info, nil
	}
	units, err := graph.Collect(root, f.Version, opts)
	if err != nil {
		info.Errors = errorCount(err)
	}
	stats := render.ComputeStats(units, graph.Edges(units))
	info.Units = stats.Units
	info.Instructions = stats.Instructions
	info.DefEdges = stats.DefEdges
	info.CallEdges = stats.CallEdges
	info.TopCallees = stats.TopCallees
	for _, u := range units {
		for _, in := range u.Insts {
			if !f.Version.Opcodes.Lookup(in.Opcode).Known {
				info.Unknown++
			}
		}
	}
	return info, nil
}

func writeInfo(w io.Writer, info *fileInfo) {
	row := func(label, format string, args ...any) {
		fmt.Fprintf(w, "%-14s "+format+"\n", append([]any{label + ":"}, args...)...)
	}
	row("File", "%s", info.File)
	row("Version", "Python %s (magic %d)", info.Version, info.Magic)
	row("Header", "%d bytes, flags 0x%x", info.HeaderSize, info.Flags)
	if info.HashBased {
		row("Hash", "%s (check_source=%t)", info.Hash, info.CheckSource)
	} else {
		if info.ModTime != "" {
			row("Modified", "%s", info.ModTime)
		}
		if info.SourceSize != 0 {
			row("Source size", "%d", info.SourceSize)
		}
	}
	row("Root", "%s", info.RootType)
	if info.Units == 0 {
		return
	}
	row("Code units", "%d", info.Units)
	row("Instructions", "%d", info.Instructions)
	row("Edges", "%d def, %d call", info.DefEdges, info.CallEdges)
	if info.Unknown > 0 {
		row("Unknown ops", "%s", red(fmt.Sprint(info.Unknown)))
	}
	if info.Errors > 0 {
		row("Errors", "%s", red(fmt.Sprint(info.Errors)))
	}
	if len(info.TopCallees) > 0 {
		fmt.Fprintln(w, "Top callees:")
		for _, nc := range info.TopCallees {
			fmt.Fprintf(w, "  %5d  %s\n", nc.Count, nc.Name)
		}
	}
}
