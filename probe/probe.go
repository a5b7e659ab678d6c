// Package probe provides bounded-timeout reachability checks for URLs.
// It is used wherever a further-reading or suggested-source URL must be
// validated before being trusted.
package probe

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultConcurrency = 8
)

// Prober issues lightweight existence checks against URLs. Probes touch no
// shared mutable state, so a single Prober is safe for concurrent use and is
// shared process-wide.
type Prober struct {
	client      *http.Client
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Prober) {
		p.client = c
	}
}

// WithTimeout sets the per-probe deadline.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		p.timeout = d
	}
}

// WithConcurrency bounds how many probes Filter runs at once.
func WithConcurrency(n int) Option {
	return func(p *Prober) {
		p.concurrency = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		p.logger = logger
	}
}

// New creates a Prober. The default HTTP client follows redirects, which is
// what we want: a URL that redirects to a live page counts as reachable.
func New(opts ...Option) *Prober {
	p := &Prober{
		client:      &http.Client{},
		timeout:     defaultTimeout,
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Reachable reports whether url answers a HEAD request with a success status
// within the probe deadline. It returns false on any transport error,
// timeout, or non-success final status; it never returns an error.
func (p *Prober) Reachable(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("Probe failed", "url", url, "error", err)
		return false
	}
	resp.Body.Close()

	return resp.StatusCode < 400
}

// Filter probes urls concurrently (bounded by the configured concurrency)
// and returns the reachable subset in the original order.
func (p *Prober) Filter(ctx context.Context, urls []string) []string {
	if len(urls) == 0 {
		return nil
	}

	reachable := make([]bool, len(urls))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, url := range urls {
		g.Go(func() error {
			reachable[i] = p.Reachable(ctx, url)
			return nil
		})
	}
	// Probes never return errors; Wait only synchronizes.
	_ = g.Wait()

	kept := make([]string, 0, len(urls))
	for i, url := range urls {
		if reachable[i] {
			kept = append(kept, url)
		}
	}
	return kept
}
