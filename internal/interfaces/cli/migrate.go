// internal/interfaces/cli/migrate.go

package cli

import (
	"github.com/spf13/cobra"

	"github.com/fileready/fileready/internal/infrastructure/database/postgres"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, dir, err := connectForMigrations(opts)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := conn.RollbackMigrations(dir, steps); err != nil {
				return err
			}
			cmd.Printf("rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, dir, err := connectForMigrations(opts)
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := conn.RunMigrations(dir); err != nil {
				return err
			}
			cmd.Println("migrations applied")
			return nil
		},
	}

	cmd.AddCommand(up, down)
	return cmd
}

func connectForMigrations(opts *rootOptions) (*postgres.Connection, string, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, "", err
	}
	log, err := opts.newLogger()
	if err != nil {
		return nil, "", err
	}
	conn, err := postgres.NewConnection(cfg.Postgres, log)
	if err != nil {
		return nil, "", err
	}
	dir := cfg.Postgres.MigrationPath
	if dir == "" {
		dir = "migrations"
	}
	return conn, dir, nil
}
