package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/stake-plus/defcalls/src/defence/store"
	"go.uber.org/zap"
)

// newPruneCmd drops records whose channels should already be gone. It
// only edits the state files; Discord channels are left alone.
func newPruneCmd(opts *options) *cobra.Command {
	var now string
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop records whose end time has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at := time.Now().UTC()
			if now != "" {
				parsed, err := time.Parse(time.RFC3339, now)
				if err != nil {
					return fmt.Errorf("--now: %w", err)
				}
				at = parsed
			}
			reg, err := store.OpenRegistry(filepath.Join(opts.stateDir, store.RegistryFile), opts.logger)
			if err != nil {
				return err
			}
			ledger, err := store.OpenLedger(filepath.Join(opts.stateDir, store.LedgerFile), opts.logger)
			if err != nil {
				return err
			}
			pruned, err := reg.Prune(at)
			if err != nil {
				return err
			}
			for _, id := range pruned {
				if err := ledger.Purge(id); err != nil {
					opts.logger.Warn("purge submissions", zap.String("channel", id), zap.Error(err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), "pruned", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d record(s) pruned\n", len(pruned))
			return nil
		},
	}
	cmd.Flags().StringVar(&now, "now", "", "reference instant (RFC3339), defaults to the current time")
	return cmd
}
