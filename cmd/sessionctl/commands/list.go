package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"kindergarten/internal/models"
)

// sessionJSON is a session as printed by list --json. The token is never printed.
type sessionJSON struct {
	ID            string    `json:"id"`
	Identity      string    `json:"identity"`
	Authenticated bool      `json:"authenticated"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toJSON(sessions []models.Session) []sessionJSON {
	out := make([]sessionJSON, len(sessions))
	for i, s := range sessions {
		out[i] = sessionJSON{
			ID:            s.ID,
			Identity:      s.Identity,
			Authenticated: s.Authenticated,
			CreatedAt:     s.CreatedAt,
			UpdatedAt:     s.UpdatedAt,
		}
	}
	return out
}

func newListCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions, most recently used first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := a.store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(toJSON(sessions))
			}

			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions found")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tIDENTITY\tSIGNED IN\tLAST USED")
			for _, s := range sessions {
				identity := s.Identity
				if identity == "" {
					identity = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", s.ID, identity, s.Authenticated, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print sessions as JSON")
	return cmd
}
