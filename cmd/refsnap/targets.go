package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/refsnap/internal/app"
)

func newTargetsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the pages a run would visit, in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := buildConfig(cmd, *opts)
			if err != nil {
				return err
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tCATEGORY\tSHAPE\tURL")
			for i, d := range a.Targets().All() {
				shape := string(d.Shape)
				if shape == "" {
					shape = "-"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, d.Category, shape, d.URL)
			}
			return tw.Flush()
		},
	}
}
