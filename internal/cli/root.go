// Package cli implements the campusreg command line: serving the API and
// managing database migrations.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
// Example: go build -ldflags "-X github.com/campusreg/service/internal/cli.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "campusreg",
	Short: "Event registration and payment proof API",
	Long: `campusreg serves the HTTP API for college event registration:
accounts, colleges, events, registrations and payment proof review.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "campusreg version %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. It is called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
