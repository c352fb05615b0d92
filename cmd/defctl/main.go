// Command defctl inspects and maintains the defence bot's state files
// while the bot is stopped.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	stateDir string
	verbose  bool
	logger   *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{logger: zap.NewNop()}
	root := &cobra.Command{
		Use:           "defctl",
		Short:         "Inspect defence call state",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				opts.logger = l
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.stateDir, "state-dir", "./data", "directory holding the defence state files")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log store activity")

	root.AddCommand(
		newCallsCmd(opts),
		newSubmissionsCmd(opts),
		newDeadlineCmd(),
		newPruneCmd(opts),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "defctl:", err)
		os.Exit(1)
	}
}
