package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"

	"pycdump/internal/bytecode"
	"pycdump/internal/marshal"
	"pycdump/internal/pyc"
	"pycdump/internal/pycfmt"
)

// ListingOptions controls WriteListing.
type ListingOptions struct {
	Decode   pycfmt.Options
	Annotate bool // append resolved argument values
}

var (
	bold    = color.New(color.Bold).SprintFunc()
	cyan    = color.New(color.FgCyan).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
	red     = color.New(color.FgRed).SprintFunc()
	heading = color.New(color.FgGreen, color.Bold).SprintFunc()
)

// rootPrefix labels the root unit; nested units append " -> Const i".
const rootPrefix = "Main Module"

// WriteListing prints the text listing of f: a version banner, the root
// object type, then every code unit depth first with its name tables and
// instructions. A unit whose instructions fail to decode is reported in
// place and the listing continues; all such failures are returned together.
func WriteListing(w io.Writer, f *pyc.File, opts ListingOptions) error {
	fmt.Fprintln(w, bold(f.Version.String()))
	fmt.Fprintln(w, "===================================")
	fmt.Fprintf(w, "Object Type: %s\n", f.Root.Type())

	root, ok := f.Code()
	if !ok {
		fmt.Fprintf(w, "No code object at the root: %s\n", f.Root)
		return nil
	}

	var errs *multierror.Error
	walkErr := bytecode.Walk(root, func(path []int, c *marshal.Code) error {
		fmt.Fprintf(w, "\n%s\n", heading(fmt.Sprintf("--- %s: %s ---", unitPrefix(path), c.Name)))
		writeNames(w, "VarNames", c.VarNames)
		writeNames(w, "CellVars", c.CellVars)
		writeNames(w, "FreeVars", c.FreeVars)
		writeNames(w, "Names", c.Names)
		if err := writeInstructions(w, c, f, opts); err != nil {
			fmt.Fprintf(w, "  %s\n", red("Error: "+err.Error()))
			errs = multierror.Append(errs, err)
		}
		return nil
	})
	if walkErr != nil {
		return walkErr
	}
	return errs.ErrorOrNil()
}

func unitPrefix(path []int) string {
	var b strings.Builder
	b.WriteString(rootPrefix)
	for _, i := range path {
		fmt.Fprintf(&b, " -> Const %d", i)
	}
	return b.String()
}

func writeNames(w io.Writer, label string, names []string) {
	fmt.Fprintf(w, "  %s: [%s]\n", label, strings.Join(names, ", "))
}

// writeInstructions streams c's instructions through the lazy decoder so
// the lines before a malformed instruction are still printed.
func writeInstructions(w io.Writer, c *marshal.Code, f *pyc.File, opts ListingOptions) error {
	d, err := bytecode.NewDecoder(c, f.Version, opts.Decode)
	if err != nil {
		return err
	}
	var ann bytecode.Annotator
	if opts.Annotate {
		ann = bytecode.ArgAnnotator(c, f.Version)
	}
	for d.HasMore() {
		in, err := d.Advance()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, instructionLine(in, ann))
	}
	return nil
}

// instructionLine renders "  OFFSET: MNEMONIC (arg=N)  ; annotation".
func instructionLine(in bytecode.Instruction, ann bytecode.Annotator) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %4d: ", in.Offset)
	if !in.HasArg {
		b.WriteString(cyan(in.Name))
		return b.String()
	}
	b.WriteString(cyan(fmt.Sprintf("%-30s", in.Name)))
	b.WriteString(yellow(fmt.Sprintf(" (arg=%d)", in.Arg)))
	if ann != nil {
		if a := ann(in); a != "" {
			b.WriteString(faint("  ; " + a))
		}
	}
	return b.String()
}
