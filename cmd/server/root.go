package main

import (
	"github.com/spf13/cobra"
)

// Global flags
var (
	flagLogLevel string
	flagEnvFile  bool
)

var rootCmd = &cobra.Command{
	Use:   "promise",
	Short: "Daily promise tracker: API server, reminder worker and database tools",
	Long: `Promise lets people make one small commitment a day and keep it.

Examples:
  promise serve
  promise worker
  promise migrate
  promise migrate --down 1
  promise seed`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagEnvFile, "env-file", true, "load a .env file from the working directory")
}
