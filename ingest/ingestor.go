// Package ingest fetches textual content for source URLs. Pages are reduced
// to readable markdown before being handed to the classification and
// summarization capabilities, which keeps prompts small while preserving the
// article links the classifier mines for further readings.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

const (
	defaultTimeout = 30 * time.Second
	// maxBodySize bounds fetched pages; anything larger is truncated.
	maxBodySize = 4 * 1024 * 1024 // 4MB

	userAgent = "newsfold/1.0 (+https://github.com/newsfold/newsfold)"
)

// Ingestor fetches textual content for a URL. A failure is fatal for that
// content item.
type Ingestor interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// WebIngestor fetches a page over HTTP, extracts the readable article with
// go-readability, and converts it to markdown.
type WebIngestor struct {
	client    *http.Client
	converter *md.Converter
	timeout   time.Duration
	logger    *slog.Logger
}

// IngestorOption configures a WebIngestor.
type IngestorOption func(*WebIngestor)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) IngestorOption {
	return func(w *WebIngestor) {
		w.client = c
	}
}

// WithTimeout sets the per-fetch deadline.
func WithTimeout(d time.Duration) IngestorOption {
	return func(w *WebIngestor) {
		w.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) IngestorOption {
	return func(w *WebIngestor) {
		w.logger = logger
	}
}

// NewWebIngestor creates a WebIngestor. One instance is shared across runs.
func NewWebIngestor(opts ...IngestorOption) *WebIngestor {
	w := &WebIngestor{
		client:    &http.Client{},
		converter: md.NewConverter("", true, nil),
		timeout:   defaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Fetch retrieves rawURL and returns its readable content as markdown.
func (w *WebIngestor) Fetch(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rawURL, err)
	}

	return w.reduce(rawURL, body)
}

// reduce extracts the readable article and converts it to markdown. When
// readability cannot identify an article the whole body is converted
// instead, so short or unusual pages still yield content.
func (w *WebIngestor) reduce(rawURL string, body []byte) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %s: %w", rawURL, err)
	}

	var markdown, title string

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil {
		title = article.Title
		if converted, cerr := w.converter.ConvertString(article.Content); cerr == nil {
			markdown = strings.TrimSpace(converted)
		} else {
			markdown = strings.TrimSpace(article.TextContent)
		}
	} else {
		w.logger.Debug("Readability extraction failed", "url", rawURL, "error", err)
	}

	// Pages readability cannot carve an article out of are converted whole.
	if markdown == "" {
		if title == "" {
			title = pageTitle(bytes.NewReader(body))
		}
		converted, cerr := w.converter.ConvertString(string(body))
		if cerr != nil {
			return "", fmt.Errorf("convert %s to markdown: %w", rawURL, cerr)
		}
		markdown = strings.TrimSpace(converted)
	}

	if markdown == "" {
		return "", fmt.Errorf("no readable content at %s", rawURL)
	}

	if title != "" {
		return "# " + title + "\n\n" + markdown, nil
	}
	return markdown, nil
}

// pageTitle extracts the <title> text from an HTML document, or "".
func pageTitle(r io.Reader) string {
	tokenizer := html.NewTokenizer(r)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "title" {
				if tokenizer.Next() == html.TextToken {
					return strings.TrimSpace(string(tokenizer.Text()))
				}
				return ""
			}
		}
	}
}
