package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/mattn/go-isatty"
)

var red = color.New(color.FgRed).SprintFunc()

func fatal(msg interface{}) {
	var s string
	switch msg := msg.(type) {
	case string:
		s = msg
	case error:
		s = msg.Error()
	default:
		s = fmt.Sprintf("%v", msg)
	}
	fmt.Fprintf(os.Stderr, "%s\n", red("error: "+s))
	os.Exit(1)
}

// isTerminal reports whether w is a terminal. Only *os.File writers qualify.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// prettyJSON reports whether JSON written to w should be colorized.
func prettyJSON(w io.Writer) bool {
	return !color.NoColor && isTerminal(w)
}

// runDot invokes graphviz dot to produce the given format.
func runDot(dotPath, outPath, format string) error {
	cmd := exec.Command("dot", "-T"+format, "-o", outPath, dotPath)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// wrote logs a written artifact and its size.
func wrote(w io.Writer, path string) {
	if fi, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "wrote %s (%d bytes)\n", path, fi.Size())
	}
}

// errorCount returns the number of errors aggregated in err.
func errorCount(err error) int {
	if err == nil {
		return 0
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		return merr.Len()
	}
	return 1
}
