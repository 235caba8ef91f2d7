package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/flightboard"
	"github.com/jpalmerr/flightboard/config"
	"github.com/jpalmerr/flightboard/internal/observability"
)

// addBoardFlags registers the flags shared by serve and tui.
func addBoardFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("config", "c", "", "path to config file (default: search standard locations)")
	f.Bool("demo", false, "use synthetic flights instead of the FR24 API")
	f.Float64("lat", flightboard.DefaultRegion.CenterLat, "demo centre latitude")
	f.Float64("lon", flightboard.DefaultRegion.CenterLon, "demo centre longitude")
	f.BoolP("verbose", "v", false, "enable debug logging")
	f.String("log-file", "", "also write logs to this file")
	cmd.MarkFlagsMutuallyExclusive("config", "demo")
}

// loadConfig returns the demo config when --demo is set, otherwise the file
// named by --config or the first one found in the search paths.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if demo, _ := cmd.Flags().GetBool("demo"); demo {
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")
		cfg := config.Demo(lat, lon)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid demo location: %w", err)
		}
		return cfg, nil
	}

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		found, err := config.Find()
		if err != nil {
			return nil, err
		}
		path = found
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// logConfig reads the logging flags.
func logConfig(cmd *cobra.Command, w io.Writer) observability.LogConfig {
	verbose, _ := cmd.Flags().GetBool("verbose")
	file, _ := cmd.Flags().GetString("log-file")
	return observability.LogConfig{Verbose: verbose, File: file, Writer: w}
}

// board is a configured FlightBoard plus the resources it holds.
type board struct {
	*flightboard.FlightBoard
	cleanups []func()
}

// Close releases resources in reverse order of acquisition.
func (b *board) Close() {
	for i := len(b.cleanups) - 1; i >= 0; i-- {
		b.cleanups[i]()
	}
	b.cleanups = nil
}

// newBoard wires tracing, metrics, and the flight source for cfg.
// Tracing output from the stdout exporter goes to traceOut.
func newBoard(ctx context.Context, cfg *config.Config, logger *slog.Logger, traceOut io.Writer, extra ...flightboard.Option) (*board, error) {
	b := &board{}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
		Writer:      traceOut,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	b.cleanups = append(b.cleanups, func() {
		observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := observability.NewCollector(reg)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	src, closeSource, err := config.BuildSource(ctx, cfg, logger, collector)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.cleanups = append(b.cleanups, func() {
		if err := closeSource(); err != nil {
			logger.Warn("failed to close flight source", "error", err)
		}
	})

	opts := config.BuildOptions(cfg)
	opts = append(opts,
		flightboard.WithSource(src),
		flightboard.WithLogger(logger),
		flightboard.WithMetricsRegisterer(reg),
	)
	if !cfg.Metrics.On() {
		opts = append(opts, flightboard.WithoutMetricsEndpoint())
	}
	opts = append(opts, extra...)

	fb, err := flightboard.New(opts...)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to create FlightBoard: %w", err)
	}
	b.FlightBoard = fb
	return b, nil
}
