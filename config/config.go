// Package config provides configuration loading and management for newsfold.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete newsfold configuration.
type Config struct {
	Model     ModelConfig  `yaml:"model"`
	Server    ServerConfig `yaml:"server"`
	NATS      NATSConfig   `yaml:"nats"`
	Probe     ProbeConfig  `yaml:"probe"`
	Ingest    IngestConfig `yaml:"ingest"`
	Briefings []JobConfig  `yaml:"briefings"`
}

// ModelConfig configures the LLM backend.
type ModelConfig struct {
	// Provider is the registered provider name ("openrouter", "ollama").
	Provider string `yaml:"provider"`
	// Model is the model identifier (e.g. "google/gemini-flash-1.5-8b").
	Model string `yaml:"model"`
	// Endpoint overrides the provider's default base URL.
	Endpoint string `yaml:"endpoint"`
	// Temperature controls randomness (0.0-1.0).
	Temperature float64 `yaml:"temperature"`
	// Timeout bounds a single model request.
	Timeout Duration `yaml:"timeout"`
	// MaxTokens limits response length. 0 uses the endpoint default.
	MaxTokens int `yaml:"max_tokens"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`
	// JWTSecretEnv names the environment variable holding the HS256 signing
	// secret. Empty disables authentication.
	JWTSecretEnv string `yaml:"jwt_secret_env"`
}

// NATSConfig configures briefing persistence. An empty URL disables it.
type NATSConfig struct {
	URL    string `yaml:"url"`
	Bucket string `yaml:"bucket"`
}

// ProbeConfig configures URL reachability checks.
type ProbeConfig struct {
	// Timeout bounds a single probe.
	Timeout Duration `yaml:"timeout"`
	// Concurrency bounds simultaneous probes in bulk validation.
	Concurrency int `yaml:"concurrency"`
}

// IngestConfig configures content fetching.
type IngestConfig struct {
	// Timeout bounds a single page fetch.
	Timeout Duration `yaml:"timeout"`
	// FeedLimit caps item links taken per RSS/Atom feed.
	FeedLimit int `yaml:"feed_limit"`
}

// SourceConfig is one configured content source.
type SourceConfig struct {
	URL         string `yaml:"url"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Feed        bool   `yaml:"feed"`
}

// JobConfig is one scheduled briefing.
type JobConfig struct {
	User     string         `yaml:"user"`
	Schedule string         `yaml:"schedule"`
	Sources  []SourceConfig `yaml:"sources"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    "openrouter",
			Model:       "google/gemini-flash-1.5-8b",
			Temperature: 0.2,
			Timeout:     Duration(2 * time.Minute),
		},
		Server: ServerConfig{
			Addr:         ":8080",
			JWTSecretEnv: "NEWSFOLD_JWT_SECRET",
		},
		NATS: NATSConfig{
			Bucket: "BRIEFINGS",
		},
		Probe: ProbeConfig{
			Timeout:     Duration(5 * time.Second),
			Concurrency: 8,
		},
		Ingest: IngestConfig{
			Timeout:   Duration(30 * time.Second),
			FeedLimit: 10,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Model.Provider == "" {
		return fmt.Errorf("model.provider is required")
	}
	if c.Model.Model == "" {
		return fmt.Errorf("model.model is required")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		return fmt.Errorf("model.temperature must be between 0 and 1")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Probe.Concurrency < 1 {
		return fmt.Errorf("probe.concurrency must be at least 1")
	}
	if c.Ingest.FeedLimit < 1 {
		return fmt.Errorf("ingest.feed_limit must be at least 1")
	}
	for i, job := range c.Briefings {
		if job.User == "" {
			return fmt.Errorf("briefings[%d].user is required", i)
		}
		if job.Schedule == "" {
			return fmt.Errorf("briefings[%d].schedule is required", i)
		}
		if len(job.Sources) == 0 {
			return fmt.Errorf("briefings[%d].sources is required", i)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, layered over defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
