package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newsfold/newsfold/topic"
)

var (
	flagSources []string
	flagFeeds   []string
	flagUser    string
	flagJSON    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one briefing from the CLI and print the summaries",
	RunE:  runOnce,
}

func init() {
	runCmd.Flags().StringArrayVar(&flagSources, "source", nil, "source URL (repeatable)")
	runCmd.Flags().StringArrayVar(&flagFeeds, "feed", nil, "RSS/Atom feed URL to expand (repeatable)")
	runCmd.Flags().StringVar(&flagUser, "user", "cli", "user id to persist results under")
	runCmd.Flags().BoolVar(&flagJSON, "json", false, "print results as JSON")
}

func runOnce(cmd *cobra.Command, _ []string) error {
	if len(flagSources) == 0 && len(flagFeeds) == 0 {
		return fmt.Errorf("at least one --source or --feed is required")
	}

	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	application, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.close()

	var sources []topic.Source
	for _, u := range flagSources {
		sources = append(sources, topic.Source{URL: u})
	}
	for _, u := range flagFeeds {
		sources = append(sources, topic.Source{URL: u, Feed: true})
	}

	results, err := application.engine.Run(ctx, flagUser, sources)
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for _, r := range results {
		fmt.Printf("## %s (%s)\n\n%s\n\n", r.Summary.Title, r.Topic, r.Summary.Summary)
		if r.Summary.Image != "" {
			fmt.Printf("Image: %s\n\n", r.Summary.Image)
		}
	}
	return nil
}
