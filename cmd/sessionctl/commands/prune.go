package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPruneCommand(a *app) *cobra.Command {
	var (
		olderThan     time.Duration
		signedOutOnly bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete sessions not used for a while",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			cutoff := a.now().Add(-olderThan)

			var n int64
			var err error
			if signedOutOnly {
				n, err = a.store.DeleteLoggedOutBefore(cmd.Context(), cutoff)
			} else {
				n, err = a.store.DeleteIdleBefore(cmd.Context(), cutoff)
			}
			if err != nil {
				return fmt.Errorf("failed to prune sessions: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d session(s) last used before %s\n", n, cutoff.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Delete sessions idle for longer than this")
	cmd.Flags().BoolVar(&signedOutOnly, "signed-out", false, "Only delete sessions that are signed out")
	return cmd
}
