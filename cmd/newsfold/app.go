package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/newsfold/newsfold/agent"
	"github.com/newsfold/newsfold/briefing"
	"github.com/newsfold/newsfold/config"
	"github.com/newsfold/newsfold/ingest"
	"github.com/newsfold/newsfold/llm"
	"github.com/newsfold/newsfold/metrics"
	"github.com/newsfold/newsfold/persist"
	"github.com/newsfold/newsfold/probe"
	"github.com/newsfold/newsfold/topic"
)

// app holds the process-wide components. Everything here is shared across
// runs; per-run state lives inside the engine's runs.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	agent    *agent.Agent
	engine   *briefing.Engine
	registry *prometheus.Registry
	history  *persist.KVStore
	nc       *nats.Conn
}

// buildApp wires the process-wide components from config.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	client, err := llm.NewClient(llm.Config{
		Provider: cfg.Model.Provider,
		Model:    cfg.Model.Model,
		BaseURL:  cfg.Model.Endpoint,
		Timeout:  cfg.Model.Timeout.Duration(),
	}, llm.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}

	prober := probe.New(
		probe.WithTimeout(cfg.Probe.Timeout.Duration()),
		probe.WithConcurrency(cfg.Probe.Concurrency),
		probe.WithLogger(logger),
	)

	ingestor := ingest.NewWebIngestor(
		ingest.WithTimeout(cfg.Ingest.Timeout.Duration()),
		ingest.WithLogger(logger),
	)

	expander := ingest.NewFeedExpander(
		ingest.WithFeedLimit(cfg.Ingest.FeedLimit),
		ingest.WithFeedLogger(logger),
	)

	ag := agent.New(client, prober,
		agent.WithTemperature(cfg.Model.Temperature),
		agent.WithMaxTokens(cfg.Model.MaxTokens),
		agent.WithLogger(logger),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		agent:    ag,
		registry: registry,
	}

	var persister persist.Persister = persist.Noop{}
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("newsfold"))
		if err != nil {
			return nil, fmt.Errorf("connect to nats: %w", err)
		}
		store, err := persist.NewKVStore(ctx, nc, cfg.NATS.Bucket, logger)
		if err != nil {
			nc.Close()
			return nil, err
		}
		a.nc = nc
		a.history = store
		persister = store
	}

	a.engine = briefing.New(ag, ag, ingestor, prober,
		briefing.WithPersister(persister),
		briefing.WithFeedExpander(expander),
		briefing.WithMetrics(m),
		briefing.WithLogger(logger),
	)
	return a, nil
}

// close releases process-wide resources.
func (a *app) close() {
	if a.nc != nil {
		a.nc.Close()
	}
}

// configSources converts configured sources to engine inputs.
func configSources(in []config.SourceConfig) []topic.Source {
	out := make([]topic.Source, len(in))
	for i, s := range in {
		out[i] = topic.Source{
			URL:         s.URL,
			Name:        s.Name,
			Description: s.Description,
			Feed:        s.Feed,
		}
	}
	return out
}
