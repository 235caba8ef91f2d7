package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/flightboard/config"
)

func newFlagCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addBoardFlags(cmd)
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return cmd
}

func TestLoadConfig_Demo(t *testing.T) {
	cfg, err := loadConfig(newFlagCmd(t, "--demo", "--lat", "40.64", "--lon", "-73.78"))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if !cfg.Demo {
		t.Error("Demo = false, want true")
	}
	r := cfg.Region()
	if r.CenterLat != 40.64 || r.CenterLon != -73.78 {
		t.Errorf("Region() = %+v", r)
	}
}

func TestLoadConfig_DemoBadLocation(t *testing.T) {
	if _, err := loadConfig(newFlagCmd(t, "--demo", "--lat", "123")); err == nil {
		t.Fatal("loadConfig() expected error for latitude 123")
	}
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("FR24_API_KEY", "")
	path := writeConfig(t, "api: {key: abc}\nlocation: {center_lat: 1, center_lon: 2}\n")

	cfg, err := loadConfig(newFlagCmd(t, "-c", path))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.API.Key != "abc" || cfg.Demo {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfig_NothingFound(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)

	if _, err := loadConfig(newFlagCmd(t)); !errors.Is(err, config.ErrNotFound) {
		t.Fatalf("loadConfig() error = %v, want ErrNotFound", err)
	}
}

func TestNewBoard_Demo(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b, err := newBoard(context.Background(), config.Demo(51.47, -0.45), logger, io.Discard)
	if err != nil {
		t.Fatalf("newBoard() error = %v", err)
	}
	defer b.Close()

	if !b.Demo() {
		t.Error("Demo() = false, want true")
	}
	b.Close()
	b.Close()
}
