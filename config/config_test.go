package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "openrouter", cfg.Model.Provider)
	assert.Equal(t, 0.2, cfg.Model.Temperature)
	assert.Equal(t, 2*time.Minute, cfg.Model.Timeout.Duration())
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "BRIEFINGS", cfg.NATS.Bucket)
	assert.Equal(t, 5*time.Second, cfg.Probe.Timeout.Duration())
	assert.Equal(t, 8, cfg.Probe.Concurrency)
	assert.Equal(t, 10, cfg.Ingest.FeedLimit)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFileLayersOverDefaults(t *testing.T) {
	path := writeConfig(t, `
model:
  provider: ollama
  model: llama3
  temperature: 0.5
  timeout: 90s
server:
  addr: ":9090"
probe:
  timeout: 2s
briefings:
  - user: alice
    schedule: "0 7 * * *"
    sources:
      - url: https://news.example/feed
        feed: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Model.Provider)
	assert.Equal(t, "llama3", cfg.Model.Model)
	assert.Equal(t, 0.5, cfg.Model.Temperature)
	assert.Equal(t, 90*time.Second, cfg.Model.Timeout.Duration())
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Probe.Timeout.Duration())

	// Untouched fields keep their defaults.
	assert.Equal(t, 8, cfg.Probe.Concurrency)
	assert.Equal(t, 10, cfg.Ingest.FeedLimit)

	require.Len(t, cfg.Briefings, 1)
	assert.Equal(t, "alice", cfg.Briefings[0].User)
	require.Len(t, cfg.Briefings[0].Sources, 1)
	assert.True(t, cfg.Briefings[0].Sources[0].Feed)
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadFromFile(writeConfig(t, "model: [not a mapping"))
	require.Error(t, err)

	_, err = LoadFromFile(writeConfig(t, "model:\n  provider: \"\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model.provider is required")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing model", func(c *Config) { c.Model.Model = "" }, "model.model is required"},
		{"temperature too high", func(c *Config) { c.Model.Temperature = 1.5 }, "model.temperature"},
		{"temperature negative", func(c *Config) { c.Model.Temperature = -0.1 }, "model.temperature"},
		{"missing addr", func(c *Config) { c.Server.Addr = "" }, "server.addr is required"},
		{"zero probe concurrency", func(c *Config) { c.Probe.Concurrency = 0 }, "probe.concurrency"},
		{"zero feed limit", func(c *Config) { c.Ingest.FeedLimit = 0 }, "ingest.feed_limit"},
		{
			"job without user",
			func(c *Config) {
				c.Briefings = []JobConfig{{Schedule: "@daily", Sources: []SourceConfig{{URL: "https://a.example"}}}}
			},
			"briefings[0].user",
		},
		{
			"job without schedule",
			func(c *Config) {
				c.Briefings = []JobConfig{{User: "alice", Sources: []SourceConfig{{URL: "https://a.example"}}}}
			},
			"briefings[0].schedule",
		},
		{
			"job without sources",
			func(c *Config) {
				c.Briefings = []JobConfig{{User: "alice", Schedule: "@daily"}}
			},
			"briefings[0].sources",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDurationYAML(t *testing.T) {
	var parsed struct {
		Timeout Duration `yaml:"timeout"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("timeout: 1m30s"), &parsed))
	assert.Equal(t, 90*time.Second, parsed.Timeout.Duration())

	out, err := yaml.Marshal(parsed)
	require.NoError(t, err)
	assert.Equal(t, "timeout: 1m30s\n", string(out))

	require.Error(t, yaml.Unmarshal([]byte("timeout: soon"), &parsed))
}
