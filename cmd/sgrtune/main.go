package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sglre6355/sgrtune/internal/bot"
	"github.com/spf13/cobra"
)

// version is set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0" ./cmd/sgrtune
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "sgrtune",
	Short:         "Discord music bot with persistent queues",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		bot.LoadDotEnv()
		return setupLogging(os.Getenv("LOG_LEVEL"))
	},
	// Running without a subcommand serves the bot.
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, queuesCmd, cacheCmd, libraryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to run command", "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging installs a JSON logger at the given level as the default.
func setupLogging(level string) error {
	lvl, err := bot.ParseLogLevel(level)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
	return nil
}
