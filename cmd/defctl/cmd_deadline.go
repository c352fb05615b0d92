package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/stake-plus/defcalls/src/defence"
)

func newDeadlineCmd() *cobra.Command {
	var now string
	cmd := &cobra.Command{
		Use:   "deadline HH:mm",
		Short: "Print the attack time a clock value resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at := time.Now().UTC()
			if now != "" {
				parsed, err := time.Parse(time.RFC3339, now)
				if err != nil {
					return fmt.Errorf("--now: %w", err)
				}
				at = parsed
			}
			deadline, err := defence.ResolveDeadline(at, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), deadline.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&now, "now", "", "reference instant (RFC3339), defaults to the current time")
	return cmd
}
