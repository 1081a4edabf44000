package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sglre6355/sgrtune/internal/bot"
	_ "github.com/sglre6355/sgrtune/internal/modules/music_player"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot and its HTTP server until interrupted",
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	slog.Info("starting sgrtune", "version", version)

	// Load configuration
	cfg, err := bot.LoadConfig()
	if err != nil {
		return err
	}

	// Create and configure bot
	b := bot.NewBot(cfg)
	b.LoadModules()

	// Start bot
	if err := b.Start(); err != nil {
		_ = b.Stop()
		return err
	}

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("received termination signal, shutting down")
	if err := b.Stop(); err != nil {
		slog.Error("failed to shutdown", "error", err)
	}

	slog.Info("completed bot shutdown")
	return nil
}
