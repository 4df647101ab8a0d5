package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/rulestore/postgres"
)

func newMigrateCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the tariff nomenclature schema",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return postgres.RollbackMigration(postgres.DSN(cfg.Database), cfg.Database.MigrationPath, steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig(opts)
				if err != nil {
					return err
				}
				return postgres.RunMigrations(postgres.DSN(cfg.Database), cfg.Database.MigrationPath)
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show the current schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig(opts)
				if err != nil {
					return err
				}
				version, dirty, err := postgres.MigrationStatus(postgres.DSN(cfg.Database), cfg.Database.MigrationPath)
				if err != nil {
					return err
				}
				state := "clean"
				if dirty {
					state = "dirty"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (%s)\n", version, state)
				return nil
			},
		},
	)

	return cmd
}
