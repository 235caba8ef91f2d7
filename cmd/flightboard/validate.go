package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/flightboard/config"
)

// validateCmd validates a config file without starting the board.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a FlightBoard configuration file without starting the board.

This command parses the YAML, expands environment variables, applies the
FR24_API_KEY override and validates all fields. It's useful for CI/CD
pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  flightboard validate -c config.yaml
  flightboard validate --config /etc/flightboard/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	mode := "live (" + cfg.API.EndpointType + " endpoint)"
	if cfg.Demo {
		mode = "demo"
	}
	cache := "in-memory"
	if cfg.Details.RedisAddr != "" {
		cache = "redis " + cfg.Details.RedisAddr
	}
	order := "ascending"
	if !cfg.Display.Ascending() {
		order = "descending"
	}
	r := cfg.Region()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Mode:          %s\n", mode)
	fmt.Fprintf(out, "  Port:          %d\n", cfg.Port)
	fmt.Fprintf(out, "  Location:      %.4f, %.4f (%g km)\n", r.CenterLat, r.CenterLon, r.RadiusKm)
	fmt.Fprintf(out, "  Refresh:       %s\n", cfg.Display.RefreshInterval.Duration())
	fmt.Fprintf(out, "  Display:       %d flights by %s, %s\n", cfg.Display.MaxFlights, cfg.Display.SortBy, order)
	fmt.Fprintf(out, "  Details cache: %s\n", cache)

	return nil
}
