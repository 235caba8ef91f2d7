// Package main is the entry point for the flightboard CLI.
//
// FlightBoard can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	flightboard serve -c config.yaml    # Start the web dashboard
//	flightboard serve --demo            # Synthetic traffic, no API key
//	flightboard tui -c config.yaml      # Terminal board
//	flightboard validate -c config.yaml # Validate configuration
//	flightboard version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "flightboard",
	Short: "A live board of flights near you",
	Long: `FlightBoard polls the FlightRadar24 API for aircraft around a point and
shows them on a live board, in the browser or in the terminal.

Quick start:
  1. Create a config file (config.yaml) with your API key and location
  2. Run: flightboard serve -c config.yaml
  3. Open http://localhost:8080 in your browser

Without an API key:
  flightboard serve --demo --lat 51.47 --lon -0.45

Example config:
  api:
    key: ${FR24_API_KEY}
  location:
    center_lat: 51.47
    center_lon: -0.45
    radius_km: 100
  display:
    refresh_interval: 10s
    sort_by: distance`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this flightboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "flightboard %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
