package render

// Theme holds colors for graph rendering.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	// Edge colors by category.
	EdgeDef        string // nested definition (MAKE_FUNCTION)
	EdgeInternal   string // call resolved to a unit in the file
	EdgeExternal   string // call to a name defined elsewhere
	EdgeUnresolved string // call whose callee was not recovered

	// Control-flow edge colors.
	EdgeTaken       string
	EdgeFallthrough string

	// Node accents.
	EntryBorder  string // root unit, CFG entry block
	ExitFill     string // terminal CFG blocks
	ExternalText string // external / unresolved targets

	// Cluster styling.
	ClusterBorder string // subgraph cluster border
	ClusterLabel  string // subgraph cluster label text
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	EdgeDef:        "#9E9E9E", // gray
	EdgeInternal:   "#424242", // dark gray
	EdgeExternal:   "#00695C", // teal
	EdgeUnresolved: "#FC3D21", // NASA red

	EdgeTaken:       "#0B3D91", // NASA blue
	EdgeFallthrough: "#FC3D21",

	EntryBorder:  "#0B3D91",
	ExitFill:     "#ECEFF1", // blue-gray 50
	ExternalText: "#9E9E9E",

	ClusterBorder: "#BDBDBD",
	ClusterLabel:  "#757575",
}
