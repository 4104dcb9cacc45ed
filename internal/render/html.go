package render

import (
	"fmt"
	"io"
)

// WriteIndexHTML writes a small HTML page summarizing one file's units and
// call edges. artifacts are relative links to files written alongside it.
func WriteIndexHTML(w io.Writer, stats Stats, title string, artifacts []string) {
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: "Helvetica Neue", Helvetica, Arial, sans-serif; font-size: 14px; color: #1A1A1A; background: #F5F5F5; margin: 2em; max-width: 900px; }
h1 { font-size: 18px; font-weight: 600; margin-bottom: 0.5em; }
h2 { font-size: 14px; font-weight: 600; margin-top: 1.5em; border-bottom: 1px solid #ddd; padding-bottom: 4px; }
table { border-collapse: collapse; margin: 0.5em 0; }
th, td { text-align: left; padding: 3px 12px 3px 0; font-size: 13px; }
th { font-weight: 600; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
.cat { display: inline-block; width: 10px; height: 10px; border-radius: 2px; margin-right: 4px; vertical-align: middle; }
a { color: #0B3D91; }
.bar { height: 8px; border-radius: 2px; display: inline-block; vertical-align: middle; }
.unit { font-family: "Courier New", monospace; font-size: 12px; }
</style>
</head>
<body>
`, htmlEscape(title))

	fmt.Fprintf(w, "<h1>%s</h1>\n", htmlEscape(title))

	fmt.Fprintln(w, "<h2>Summary</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintf(w, "<tr><td>Code units</td><td class=\"num\">%d</td></tr>\n", stats.Units)
	fmt.Fprintf(w, "<tr><td>Instructions</td><td class=\"num\">%d</td></tr>\n", stats.Instructions)
	fmt.Fprintf(w, "<tr><td>Definitions</td><td class=\"num\">%d</td></tr>\n", stats.DefEdges)
	fmt.Fprintf(w, "<tr><td>Call sites</td><td class=\"num\">%d</td></tr>\n", stats.CallEdges)
	fmt.Fprintf(w, "<tr><td>Units not reached by calls</td><td class=\"num\">%d</td></tr>\n", len(stats.Unreached))
	fmt.Fprintln(w, "</table>")

	fmt.Fprintln(w, "<h2>Edge Categories</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(w, "<tr><th></th><th>Category</th><th>Count</th><th></th></tr>")
	catLabels := map[string]string{
		CatDef:        "Definition",
		CatInternal:   "Call within file",
		CatExternal:   "Call to external name",
		CatUnresolved: "Unresolved call",
	}
	total := stats.DefEdges + stats.CallEdges
	for _, cat := range []string{CatDef, CatInternal, CatExternal, CatUnresolved} {
		count := stats.CategoryCounts[cat]
		if count == 0 {
			continue
		}
		color := edgeColor(cat, NASA)
		barW := 0
		if total > 0 {
			barW = max(count*200/total, 2)
		}
		fmt.Fprintf(w, "<tr><td><span class=\"cat\" style=\"background:%s\"></span></td><td>%s</td><td class=\"num\">%d</td><td><span class=\"bar\" style=\"width:%dpx;background:%s\"></span></td></tr>\n",
			color, catLabels[cat], count, barW, color)
	}
	fmt.Fprintln(w, "</table>")

	if len(artifacts) > 0 {
		fmt.Fprintln(w, "<h2>Graphs</h2>")
		fmt.Fprint(w, "<p>")
		for i, a := range artifacts {
			if i > 0 {
				fmt.Fprint(w, " | ")
			}
			fmt.Fprintf(w, "<a href=\"%s\">%s</a>", htmlEscape(a), htmlEscape(a))
		}
		fmt.Fprintln(w, "</p>")
	}

	writeCounts := func(heading, col string, ncs []NameCount) {
		if len(ncs) == 0 {
			return
		}
		fmt.Fprintf(w, "<h2>%s</h2>\n", heading)
		fmt.Fprintln(w, "<table>")
		fmt.Fprintf(w, "<tr><th>Unit</th><th>%s</th></tr>\n", col)
		for _, nc := range ncs[:min(len(ncs), 15)] {
			fmt.Fprintf(w, "<tr><td class=\"unit\">%s</td><td class=\"num\">%d</td></tr>\n", htmlEscape(nc.Name), nc.Count)
		}
		fmt.Fprintln(w, "</table>")
	}
	writeCounts("Top Callers", "Outgoing", stats.TopCallers)
	writeCounts("Top Callees", "Incoming", stats.TopCallees)

	if len(stats.Unreached) > 0 {
		fmt.Fprintln(w, "<h2>Not Reached by Calls</h2>")
		fmt.Fprintln(w, "<table>")
		for _, name := range stats.Unreached {
			fmt.Fprintf(w, "<tr><td class=\"unit\">%s</td></tr>\n", htmlEscape(name))
		}
		fmt.Fprintln(w, "</table>")
	}

	fmt.Fprintln(w, "</body></html>")
}
