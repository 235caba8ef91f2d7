package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/flightboard"
	"github.com/jpalmerr/flightboard/example/fr24mock"
	"github.com/jpalmerr/flightboard/flight"
	"github.com/jpalmerr/flightboard/internal/source"
)

const mockKey = "example-key"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// mock FR24 API that rate limits every 7th request and fails every 11th
	go func() {
		err := fr24mock.ListenAndServe(ctx, ":9999", fr24mock.Config{
			Region:         flightboard.DefaultRegion,
			APIKey:         mockKey,
			RateLimitEvery: 7,
			FailEvery:      11,
		}, slog.Default())
		if err != nil {
			slog.Error("mock server failed", "error", err)
		}
	}()
	time.Sleep(100 * time.Millisecond)

	fr24, err := source.NewFR24(source.FR24Config{
		APIKey:  mockKey,
		BaseURL: "http://localhost:9999",
		Timeout: 5 * time.Second,
	}, slog.Default())
	if err != nil {
		slog.Error("failed to create FR24 client", "error", err)
		os.Exit(1)
	}
	defer fr24.Close()

	fb, err := flightboard.New(
		flightboard.WithSource(fr24),
		flightboard.WithRegion(flightboard.DefaultRegion),
		flightboard.WithRefreshInterval(5*time.Second),
		flightboard.WithSort(flightboard.SortByAltitude, false),
		flightboard.WithMaxFlights(20),
		flightboard.WithPort(8080),
		flightboard.WithViewCallback(func(v flightboard.View) {
			if v.State != flight.Connected {
				slog.Warn("feed degraded", "state", v.State, "failures", v.Failures, "message", v.Message)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create flightboard", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  FlightBoard demo")
	fmt.Println()
	fmt.Println("  Open http://localhost:8080 in your browser")
	fmt.Println("  Mock FR24 API on :9999 (injects 429 and 503 responses)")
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	if err := fb.Start(ctx); err != nil {
		slog.Error("flightboard error", "error", err)
		os.Exit(1)
	}
}
