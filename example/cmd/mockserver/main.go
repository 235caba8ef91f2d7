// Standalone mock FR24 API for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/flightboard serve -c example/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jpalmerr/flightboard"
	"github.com/jpalmerr/flightboard/example/fr24mock"
)

func main() {
	addr := flag.String("addr", ":9999", "listen address")
	key := flag.String("key", "", "require this bearer token")
	failEvery := flag.Int("fail-every", 0, "answer every Nth request with 503")
	limitEvery := flag.Int("rate-limit-every", 0, "answer every Nth request with 429")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Mock FR24 API starting on %s\n", *addr)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	err := fr24mock.ListenAndServe(ctx, *addr, fr24mock.Config{
		Region:         flightboard.DefaultRegion,
		APIKey:         *key,
		FailEvery:      *failEvery,
		RateLimitEvery: *limitEvery,
	}, slog.Default())
	if err != nil {
		slog.Error("mock server failed", "error", err)
		os.Exit(1)
	}
}
