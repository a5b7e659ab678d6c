package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/newsfold/newsfold/api"
	"github.com/newsfold/newsfold/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the briefing HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.close()

	serverOpts := []api.ServerOption{
		api.WithSuggester(application.agent),
		api.WithLogger(logger),
	}
	if application.history != nil {
		serverOpts = append(serverOpts, api.WithHistory(application.history))
	}
	if cfg.Server.JWTSecretEnv != "" {
		if secret := os.Getenv(cfg.Server.JWTSecretEnv); secret != "" {
			serverOpts = append(serverOpts, api.WithAuthenticator(api.NewAuthenticator([]byte(secret))))
			logger.Info("Bearer authentication enabled")
		} else {
			logger.Warn("Authentication disabled: secret env is empty", "env", cfg.Server.JWTSecretEnv)
		}
	}

	mux := http.NewServeMux()
	api.NewServer(application.engine, serverOpts...).RegisterHTTPHandlers(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(application.registry, promhttp.HandlerOpts{}))

	sched := scheduler.New(application.engine, logger)
	for _, job := range cfg.Briefings {
		if err := sched.Add(scheduler.Job{
			UserID:   job.User,
			Schedule: job.Schedule,
			Sources:  configSources(job.Sources),
		}); err != nil {
			return err
		}
	}
	if sched.Jobs() > 0 {
		sched.Start()
		defer sched.Stop()
		logger.Info("Scheduler started", "jobs", sched.Jobs())
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		// No write timeout: the SSE endpoint holds connections open for the
		// whole run.
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "addr", cfg.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
