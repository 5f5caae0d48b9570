package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRevokeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <session-id>",
		Short: "Delete a session, signing its browser out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := a.store.Delete(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to revoke session: %w", err)
			}
			if !deleted {
				return fmt.Errorf("session %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked session %s\n", args[0])
			return nil
		},
	}
}
