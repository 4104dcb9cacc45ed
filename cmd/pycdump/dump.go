package main

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"pycdump/internal/output"
	"pycdump/internal/pyc"
	"pycdump/internal/pycfmt"
)

type dumpFlags struct {
	json     bool
	annotate bool
}

func (a *app) dumpCmd() *cobra.Command {
	var fl dumpFlags
	cmd := &cobra.Command{
		Use:   "dump <file.pyc>...",
		Short: "Print the bytecode listing of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			opts := a.decodeOptions()

			// A failing file does not stop the others.
			var errs *multierror.Error
			for i, path := range args {
				if len(args) > 1 && !fl.json {
					if i > 0 {
						fmt.Fprintln(out)
					}
					fmt.Fprintf(out, "==> %s <==\n", path)
				}
				if err := dumpFile(out, path, opts, fl); err != nil {
					errs = multierror.Append(errs, err)
				}
			}
			return errs.ErrorOrNil()
		},
	}
	cmd.Flags().BoolVar(&fl.json, "json", false, "emit a JSON document per file instead of the listing")
	cmd.Flags().BoolVar(&fl.annotate, "annotate", false, "append resolved argument values to each instruction")
	return cmd
}

func dumpFile(out io.Writer, path string, opts pycfmt.Options, fl dumpFlags) error {
	f, err := pyc.ReadFile(path, opts)
	if err != nil {
		return err
	}
	if fl.json {
		doc, derr := output.BuildDocument(path, f, opts)
		if err := output.WriteJSON(out, doc, prettyJSON(out)); err != nil {
			return err
		}
		if derr != nil {
			return fmt.Errorf("%s: %w", path, derr)
		}
		return nil
	}
	if err := output.WriteListing(out, f, output.ListingOptions{Decode: opts, Annotate: fl.annotate}); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
