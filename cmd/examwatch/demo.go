package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/examwatch/examwatch/internal/config"
	"github.com/examwatch/examwatch/internal/demo"
	"github.com/spf13/cobra"
)

// NewDemoCmd creates the demo command.
func NewDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Watch a built-in practice exam page",
		Long: `Demo serves a practice exam page on a local port, launches a browser
pointed at it, and watches it exactly like a real session.

The practice page shows the live suspicious-event count, so switching tabs,
clicking another window, or opening devtools demonstrates each detection
end to end without touching a real exam.

Examples:
  # Start the demo (Ctrl+C to stop)
  examwatch demo

  # Run the demo headless for five seconds (useful on CI)
  examwatch demo --headless --duration 5s`,
		RunE: runDemoCmd,
	}

	cmd.Flags().String("listen", demo.DefaultAddr,
		"Address for the practice page server (port 0 picks a free port)")
	cmd.Flags().Bool("headless", false,
		"Launch the browser without a visible window")
	cmd.Flags().String("chrome", "",
		"Path to the Chrome or Chromium executable (default: search standard locations)")
	cmd.Flags().DurationP("duration", "d", 0,
		"End the demo after this duration (0 runs until interrupted)")

	return cmd
}

// runDemoCmd executes the demo command.
func runDemoCmd(cmd *cobra.Command, _ []string) error {
	verbose := getVerboseFlag(cmd)
	logger := setupLogger(verbose)
	slog.SetDefault(logger)

	listenAddr, err := cmd.Flags().GetString("listen")
	if err != nil {
		return err
	}

	cfg := config.NewConfig()

	cfg.Headless, err = cmd.Flags().GetBool("headless")
	if err != nil {
		return err
	}

	cfg.ChromePath, err = cmd.Flags().GetString("chrome")
	if err != nil {
		return err
	}

	cfg.Duration, err = cmd.Flags().GetDuration("duration")
	if err != nil {
		return err
	}

	// Demo sessions land in the journal like real ones so the history
	// command has something to show afterwards
	cfg.SaveToDB = true
	cfg.DBDir = config.XDGDataDir()

	// Serve the practice page and point the watch at it
	server := demo.NewServer(listenAddr, demo.WithServerLogger(logger))
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start demo server: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to stop demo server", "error", err)
		}
	}()

	cfg.TargetURL = server.URL()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	fmt.Printf("Practice exam page: %s\n", cfg.TargetURL)
	fmt.Println("Switch tabs, click another window, or open devtools to see detections.")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, ending demo...")
		cancel()
	}()

	return runWatch(ctx, cfg, logger)
}
