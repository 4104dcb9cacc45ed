package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pycdump/internal/pyver"
)

func (a *app) versionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "List the supported Python releases and their magic numbers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-8s %-13s %-9s %-9s %-8s %s\n", "RELEASE", "MAGIC", "LAYOUT", "HEADER", "OPCODES", "ARG FROM")
			for _, v := range pyver.All() {
				fmt.Fprintf(out, "%-8s %-13s %-9s %-9s %-8d %d\n",
					v.Name(),
					fmt.Sprintf("%d-%d", v.MagicMin, v.Magic),
					v.Layout,
					fmt.Sprintf("%d bytes", v.Header.Size()),
					v.Opcodes.Len(),
					v.Opcodes.HaveArgument())
			}
			return nil
		},
	}
}
