package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/FreshGuard/internal/infrastructure/database/postgres"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
)

// NewMigrateCmd manages the PostgreSQL schema. It talks to the database
// directly and never builds the engine.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}
	cmd.AddCommand(newMigrateUpCmd(), newMigrateDownCmd(), newMigrateStatusCmd(), newMigrateForceCmd())
	return cmd
}

func migrateURL(cmd *cobra.Command) (string, *CLIContext, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return "", nil, err
	}
	return postgres.ConnString(cliCtx.Config.Database), cliCtx, nil
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, cliCtx, err := migrateURL(cmd)
			if err != nil {
				return err
			}
			if err := postgres.RunMigrations(url); err != nil {
				return err
			}
			version, _, err := postgres.MigrationStatus(url)
			if err != nil {
				return err
			}
			cliCtx.Logger.Info("migrations applied", logging.Int("version", int(version)))
			return PrintResult(cmd, fmt.Sprintf("schema at version %d", version))
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _, err := migrateURL(cmd)
			if err != nil {
				return err
			}
			if err := postgres.RollbackMigration(url, steps); err != nil {
				return err
			}
			return PrintResult(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

type migrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func (s migrationStatus) String() string {
	if s.Dirty {
		return fmt.Sprintf("version %d (dirty)", s.Version)
	}
	return fmt.Sprintf("version %d", s.Version)
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _, err := migrateURL(cmd)
			if err != nil {
				return err
			}
			version, dirty, err := postgres.MigrationStatus(url)
			if err != nil {
				return err
			}
			return PrintResult(cmd, migrationStatus{Version: version, Dirty: dirty})
		},
	}
}

func newMigrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force VERSION",
		Short: "Mark the schema as VERSION after a failed migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			url, _, err := migrateURL(cmd)
			if err != nil {
				return err
			}
			if err := postgres.ForceMigrationVersion(url, version); err != nil {
				return err
			}
			return PrintResult(cmd, fmt.Sprintf("schema forced to version %d", version))
		},
	}
}
