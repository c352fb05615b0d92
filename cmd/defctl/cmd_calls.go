package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/stake-plus/defcalls/src/defence/store"
)

func newCallsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "calls",
		Short: "List tracked defence channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := store.OpenRegistry(filepath.Join(opts.stateDir, store.RegistryFile), opts.logger)
			if err != nil {
				return err
			}
			calls, err := reg.LoadAll()
			if err != nil {
				return err
			}
			if len(calls) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no tracked calls")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CHANNEL\tNAME\tTYPE\tCOORDS\tAMOUNT\tSTATUS\tENDS")
			for _, c := range calls {
				status := "open"
				if !c.IsOpen() {
					status = "completed"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d|%d\t%d\t%s\t%s\n",
					c.ChannelID, c.ChannelName, c.Kind, c.Coordinates.X, c.Coordinates.Y,
					c.Amount, status, c.EndsAt().UTC().Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}
