package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/refsnap/internal/report"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <snapshot.json>...",
		Short: "Check snapshot files against the snapshot schema",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range args {
				recs, err := report.ReadSnapshot(p)
				if err != nil {
					return fmt.Errorf("%s: %w", p, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d records)\n", p, len(recs))
			}
			return nil
		},
	}
}
