package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/songseeker/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:     "songseeker",
		Usage:    "Map SongSeeker card decks to a Plex library and run the game tooling",
		Version:  "1.0.0",
		Flags:    globalFlags(),
		Before:   runner.loadConfig,
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		switch {
		case errors.Is(err, errDiscrepancies):
			stop()
			os.Exit(1)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
