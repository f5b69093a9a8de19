// Package cmd implements the calcrag command line interface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/calcrag/calcrag/internal/app"
	"github.com/calcrag/calcrag/internal/config"
	"github.com/calcrag/calcrag/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "calcrag",
	Short: "calcrag - retrieval-augmented calculus tutor",
	Long: `calcrag answers calculus questions with retrieval-augmented generation.

Questions are routed to a small, medium or large model by complexity,
grounded in an indexed knowledge base, and checked against a
prerequisite graph so answers can point out what to study first.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initLogger builds the process logger. DEBUG in the environment lowers
// the level. Logs go to stderr so stdout stays clean for answers.
func initLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	return log.New(cfg)
}

// setup loads config and builds the application behind a signal-aware
// context. Callers must invoke both returned cleanup paths via a.Close
// and cancel.
func setup() (context.Context, context.CancelFunc, *app.App, error) {
	logger := initLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("initializing application: %w", err)
	}
	return ctx, cancel, a, nil
}
