package render

import (
	"fmt"
	"sort"
	"strings"

	"pycdump/internal/bytecode"
	"pycdump/internal/graph"
)

// Edge categories.
const (
	CatDef        = "def"
	CatInternal   = "internal"
	CatExternal   = "external"
	CatUnresolved = "unresolved"
)

// ClassifyEdge returns the category of a resolved edge.
func ClassifyEdge(e graph.Edge) string {
	switch {
	case e.Kind == bytecode.EdgeDef:
		return CatDef
	case e.Callee == "":
		return CatUnresolved
	case e.Internal:
		return CatInternal
	default:
		return CatExternal
	}
}

// edgeColor returns the DOT color for an edge category.
func edgeColor(cat string, t Theme) string {
	switch cat {
	case CatDef:
		return t.EdgeDef
	case CatExternal:
		return t.EdgeExternal
	case CatUnresolved:
		return t.EdgeUnresolved
	default:
		return t.EdgeInternal
	}
}

// edgeStyle returns the DOT style for an edge category.
func edgeStyle(cat string) string {
	switch cat {
	case CatDef:
		return "dotted"
	case CatUnresolved:
		return "dashed"
	default:
		return "solid"
	}
}

// unresolvedNode stands in for every call whose callee was not recovered.
const unresolvedNode = "?"

// CallgraphDOT renders units and their resolved edges as DOT. Units nested
// in the same parent are clustered; callees outside the file are shown as
// plaintext nodes. maxNodes limits the number of unit nodes (0 = all).
func CallgraphDOT(units []*graph.Unit, edges []graph.Edge, title string, t Theme, maxNodes int) string {
	rendered := units
	if maxNodes > 0 && len(rendered) > maxNodes {
		rendered = rendered[:maxNodes]
	}
	unitSet := make(map[string]bool, len(rendered))
	for _, u := range rendered {
		unitSet[u.Name] = true
	}

	type edgeKey struct {
		from, to, cat string
	}
	counts := make(map[edgeKey]int)
	var keys []edgeKey
	external := make(map[string]bool)
	for _, e := range edges {
		if !unitSet[e.Caller] {
			continue
		}
		cat := ClassifyEdge(e)
		to := e.Callee
		if cat == CatUnresolved {
			to = unresolvedNode
		}
		if !unitSet[to] {
			if e.Internal {
				continue // callee cut by maxNodes
			}
			external[to] = true
		}
		k := edgeKey{e.Caller, to, cat}
		if counts[k] == 0 {
			keys = append(keys, k)
		}
		counts[k]++
	}

	var b strings.Builder
	b.WriteString("digraph callgraph {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  compound=true;\n")
	b.WriteString("  splines=true;\n")
	b.WriteString("  nodesep=0.4;\n")
	b.WriteString("  ranksep=0.6;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Helvetica Neue,Helvetica,Arial\", fontsize=9, fontcolor=%q, height=0.3, margin=\"0.12,0.06\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	b.WriteString("  edge [penwidth=0.5, arrowsize=0.5, arrowhead=vee];\n")
	if title != "" {
		b.WriteString("  labelloc=t;\n  labeljust=l;\n")
		fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.TextColor, dotEscape(title))
	}
	b.WriteByte('\n')

	// Group by parent for clustering; parents keep first-seen order.
	children := make(map[string][]*graph.Unit)
	var parents []string
	var top []*graph.Unit
	for _, u := range rendered {
		if u.Parent == "" {
			top = append(top, u)
			continue
		}
		if _, ok := children[u.Parent]; !ok {
			parents = append(parents, u.Parent)
		}
		children[u.Parent] = append(children[u.Parent], u)
	}

	writeNode := func(indent string, u *graph.Unit, label string) {
		attrs := fmt.Sprintf("label=%q", truncLabel(label, 50))
		if u.Parent == "" {
			attrs += fmt.Sprintf(", penwidth=1.5, color=%q", t.EntryBorder)
		}
		fmt.Fprintf(&b, "%s%s [%s];\n", indent, dotID(u.Name), attrs)
	}

	for _, parent := range parents {
		kids := children[parent]
		if len(kids) < 2 {
			top = append(top, kids...)
			continue
		}
		fmt.Fprintf(&b, "  subgraph %s {\n", "cluster_"+dotID(parent))
		fmt.Fprintf(&b, "    label=<<font point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.ClusterLabel, dotEscape(parent))
		fmt.Fprintf(&b, "    style=dotted; color=%q; penwidth=0.3;\n", t.ClusterBorder)
		for _, u := range kids {
			writeNode("    ", u, stripParent(u.Name, parent))
		}
		b.WriteString("  }\n")
	}
	for _, u := range top {
		writeNode("  ", u, u.Name)
	}
	b.WriteByte('\n')

	ext := make([]string, 0, len(external))
	for name := range external {
		ext = append(ext, name)
	}
	sort.Strings(ext)
	for _, name := range ext {
		fmt.Fprintf(&b, "  %s [label=%q, shape=plaintext, style=\"\", fillcolor=none, fontcolor=%q, fontsize=8];\n",
			dotID(name), truncLabel(name, 50), t.ExternalText)
	}
	if len(ext) > 0 {
		b.WriteByte('\n')
	}

	for _, k := range keys {
		color := edgeColor(k.cat, t)
		attrs := fmt.Sprintf("color=%q, style=%q", color, edgeStyle(k.cat))
		if n := counts[k]; n > 1 {
			attrs += fmt.Sprintf(", penwidth=%.1f", 0.5+float64(n)*0.1)
			if n > 2 {
				attrs += fmt.Sprintf(", label=<<font point-size=\"7\" color=\"%s\">%dx</font>>", color, n)
			}
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", dotID(k.from), dotID(k.to), attrs)
	}

	b.WriteString("}\n")
	return b.String()
}

// Stats summarizes the units and edges of one file.
type Stats struct {
	Units          int
	Instructions   int
	DefEdges       int
	CallEdges      int
	CategoryCounts map[string]int
	Unreached      []string    // units no call chain from the root reaches
	TopCallers     []NameCount // sorted desc
	TopCallees     []NameCount // sorted desc
}

// NameCount pairs a name with a count.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ComputeStats computes call statistics for units.
func ComputeStats(units []*graph.Unit, edges []graph.Edge) Stats {
	stats := Stats{
		Units:          len(units),
		CategoryCounts: make(map[string]int),
	}
	for _, u := range units {
		stats.Instructions += len(u.Insts)
	}

	callerCount := make(map[string]int)
	calleeCount := make(map[string]int)
	for _, e := range edges {
		cat := ClassifyEdge(e)
		stats.CategoryCounts[cat]++
		if cat == CatDef {
			stats.DefEdges++
			continue
		}
		stats.CallEdges++
		callerCount[e.Caller]++
		if e.Callee != "" {
			calleeCount[e.Callee]++
		}
	}

	if len(units) > 0 {
		reached := ReachableSet([]string{units[0].Name}, edges)
		for _, u := range units {
			if !reached[u.Name] {
				stats.Unreached = append(stats.Unreached, u.Name)
			}
		}
	}

	stats.TopCallers = topNMap(callerCount, 20)
	stats.TopCallees = topNMap(calleeCount, 20)
	return stats
}

// topNMap returns the top n entries of m, by count then name.
func topNMap(m map[string]int, n int) []NameCount {
	entries := make([]NameCount, 0, len(m))
	for name, count := range m {
		entries = append(entries, NameCount{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
