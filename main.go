// Package main provides the entry point for the dayflow CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/yourusername/dayflow/internal/cli"
	"github.com/yourusername/dayflow/internal/ui"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.New().Execute(ctx, os.Args[1:])
	stop()

	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, ui.Error(cli.Message(err)))
	}
	os.Exit(cli.ExitCode(err))
}
