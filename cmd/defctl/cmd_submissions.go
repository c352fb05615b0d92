package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/stake-plus/defcalls/src/defence/store"
)

func newSubmissionsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "submissions",
		Short: "List pledges recorded against open calls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := store.OpenLedger(filepath.Join(opts.stateDir, store.LedgerFile), opts.logger)
			if err != nil {
				return err
			}
			channels := ledger.Channels()
			if len(channels) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending submissions")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CHANNEL\tUSER\tUNITS\tTIME\tSUBMITTED")
			for _, id := range channels {
				for _, s := range ledger.List(id) {
					declared := s.DeclaredTime
					if declared == "" {
						declared = "-"
					}
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
						id, s.DisplayName, s.Units, declared, s.SubmittedAt.UTC().Format(time.RFC3339))
				}
			}
			return w.Flush()
		},
	}
}
