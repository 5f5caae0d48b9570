package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"kindergarten/internal/config"
	"kindergarten/internal/database"
	"kindergarten/internal/models"
	"kindergarten/internal/repository"
	"kindergarten/internal/security"
)

// Store is the part of the session store the commands use
type Store interface {
	List(ctx context.Context) ([]models.Session, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteLoggedOutBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Opener connects to the session store. The returned func closes it.
type Opener func(ctx context.Context) (Store, func() error, error)

type app struct {
	open  Opener
	store Store
	close func() error
	now   func() time.Time
}

// NewRootCommand creates the root command
func NewRootCommand(open Opener) *cobra.Command {
	a := &app{open: open, now: time.Now}

	rootCmd := &cobra.Command{
		Use:   "sessionctl",
		Short: "Inspect and maintain the Šilelis session store",
		Long: `sessionctl lists, revokes and prunes the staff sessions kept by the
Šilelis admin server. It reads the same configuration (DB_TYPE, DB_PATH,
DATABASE_URL, SESSION_SECRET) as the server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := a.open(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to open session store: %w", err)
			}
			a.store = store
			a.close = closeFn
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.close == nil {
				return nil
			}
			return a.close()
		},
	}

	rootCmd.AddCommand(newListCommand(a))
	rootCmd.AddCommand(newRevokeCommand(a))
	rootCmd.AddCommand(newPruneCommand(a))

	return rootCmd
}

// Execute runs the root command against the configured database
func Execute() {
	rootCmd := NewRootCommand(openConfigured)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openConfigured(ctx context.Context) (Store, func() error, error) {
	cfg := config.Load()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	keys, err := security.DeriveKeys(cfg.SessionSecret)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	sealer, err := security.NewSealer(keys.Token)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return repository.NewSessionRepository(db, sealer), db.Close, nil
}
