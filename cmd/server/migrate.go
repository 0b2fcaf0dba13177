package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jimdaga/promise/internal/config"
	"github.com/jimdaga/promise/internal/database"
)

var (
	flagDown    int
	flagVersion bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
	Long: `Apply every pending migration, roll back with --down N, or print the
current schema version with --version.

Examples:
  promise migrate
  promise migrate --down 1
  promise migrate --version`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().IntVar(&flagDown, "down", 0, "number of migrations to roll back")
	migrateCmd.Flags().BoolVar(&flagVersion, "version", false, "print the current migration version")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Store != config.StorePostgres {
		return fmt.Errorf("migrations need STORE=%s", config.StorePostgres)
	}
	db, err := a.openDB()
	if err != nil {
		return err
	}

	switch {
	case flagVersion:
		version, dirty, err := database.MigrationVersion(db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
		return nil
	case flagDown > 0:
		return database.RollbackMigrations(db, flagDown, a.logger)
	default:
		return database.RunMigrations(db, a.logger)
	}
}
