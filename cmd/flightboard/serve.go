package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/flightboard/internal/observability"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the FlightBoard web dashboard.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web dashboard",
	Long: `Start the FlightBoard web dashboard.

The server will:
  - Load configuration from the given YAML file, or the first of
    ~/.config/flightboard/config.yaml, /etc/flightboard/config.yaml
    and ./config.yaml
  - Poll the FR24 API for flights around the configured location
  - Serve the board on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  flightboard serve -c config.yaml
  flightboard serve --demo --lat 40.64 --lon -73.78`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addBoardFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := observability.NewLogger(logConfig(cmd, os.Stderr))
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	region := cfg.Region()
	logger.Info("config loaded",
		"demo", cfg.Demo,
		"center_lat", region.CenterLat,
		"center_lon", region.CenterLon,
		"radius_km", region.RadiusKm,
		"endpoint_type", cfg.API.EndpointType,
	)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := newBoard(ctx, cfg, logger, os.Stderr)
	if err != nil {
		return err
	}
	defer b.Close()

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- b.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
