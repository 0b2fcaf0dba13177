package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jimdaga/promise/internal/database"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the development user, promise and invitation",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.IsDevelopment() {
		return fmt.Errorf("refusing to seed with ENV=%s", a.cfg.Env)
	}
	if err := a.openStore(a.cfg.RunMigrations); err != nil {
		return err
	}

	user, err := database.SeedDevData(cmd.Context(), a.store, a.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "dev user %s (%s)\n", user.Email, user.ID)
	return nil
}
