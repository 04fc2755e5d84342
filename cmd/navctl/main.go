// Package main implements the navctl CLI for offline operator tasks against
// a navigatord data directory: schema migrations today, without needing the
// daemon itself running.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "navctl",
	Short: "Operator CLI for navigatord's on-disk store",
	Long: `navctl is a command-line interface for offline operations against a
navigatord data directory, without requiring the daemon to be running.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().String("data-dir", "", "navigator data directory (default: $NAVIGATOR_DATA_DIR or ~/.config/navigator)")
	rootCmd.AddCommand(migrateCmd)
}
