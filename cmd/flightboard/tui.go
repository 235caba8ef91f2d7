package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/flightboard"
	"github.com/jpalmerr/flightboard/internal/observability"
	"github.com/jpalmerr/flightboard/internal/tui"
)

// tuiCmd shows the board in the terminal.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Show the board in the terminal",
	Long: `Show the FlightBoard in the terminal.

The terminal UI drives the display loop itself; the poller runs in the
background. Logs are discarded unless --log-file is given, so they do not
draw over the board. Pass --web to serve the web dashboard as well.

Keys:
  q, esc, ctrl+c  quit

Example:
  flightboard tui -c config.yaml
  flightboard tui --demo --log-file /tmp/flightboard.log`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	addBoardFlags(tuiCmd)
	tuiCmd.Flags().Bool("web", false, "also serve the web dashboard")
}

func runTUI(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := observability.NewLogger(logConfig(cmd, io.Discard))
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var extra []flightboard.Option
	if web, _ := cmd.Flags().GetBool("web"); !web {
		extra = append(extra, flightboard.WithHeadless())
	}

	b, err := newBoard(ctx, cfg, logger, io.Discard, extra...)
	if err != nil {
		return err
	}
	defer b.Close()

	session, err := b.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to start board: %w", err)
	}
	defer session.Close()

	return tui.Run(ctx, session, cfg.Title)
}
