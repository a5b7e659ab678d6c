package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/newsfold/newsfold/config"
)

var (
	flagConfig  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "newsfold",
	Short: "LLM-powered topic briefings from content sources",
	Long: `newsfold fetches a set of content sources, clusters their content into
named topics with an LLM, and produces a structured summary per topic.
Run it as a server (newsfold serve) or one-off from the CLI (newsfold run).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
}

// newLogger builds the process logger honoring the verbose flag.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig loads the config file from the flag, or defaults when unset.
func loadConfig() (*config.Config, error) {
	if flagConfig == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadFromFile(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
