// Package main provides the newsfold binary entry point. Newsfold ingests
// content sources, clusters them into topics with an LLM, and serves
// per-topic briefings over a batch or streaming HTTP API.
package main

import (
	"os"

	"github.com/joho/godotenv"

	// Register LLM providers via init()
	_ "github.com/newsfold/newsfold/llm/providers"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
