package cmd

import (
	"github.com/spf13/cobra"
)

const (
	groupBookings = "bookings"
	groupReports  = "reports"
	groupSetup    = "setup"
)

// Global flags shared by every subcommand.
var (
	flagConfigPath string
	flagDBPath     string
)

var rootCmd = &cobra.Command{
	Use:   "ridebook",
	Short: "ride booking ledger backed by SQLite",
	Long: `ridebook - ride booking ledger backed by SQLite
  - users, bookings and an append-only booking event trail
  - lifecycle: pending → confirmed → driver_assigned → completed
  - revenue and event-trail consistency reports`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file (default: $XDG_CONFIG_HOME/ridebook/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "database file, overrides database.path")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupBookings, Title: "Bookings:"},
		&cobra.Group{ID: groupReports, Title: "Reports:"},
		&cobra.Group{ID: groupSetup, Title: "Setup:"},
	)

	rootCmd.AddCommand(versionCmd)
}
