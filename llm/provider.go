package llm

import (
	"net/http"
	"sync"
)

// Provider defines the wire-level contract for an LLM backend.
type Provider interface {
	// Name returns the provider identifier (e.g., "openrouter", "ollama").
	Name() string

	// BuildURL constructs the full API endpoint URL from a base URL.
	BuildURL(baseURL string) string

	// SetHeaders adds provider-specific headers to the request.
	SetHeaders(req *http.Request)

	// BuildRequestBody creates the JSON request body. temperature is nil to
	// use the endpoint default. format is nil for free-form text output.
	BuildRequestBody(model string, messages []Message, temperature *float64, maxTokens int, format *SchemaFormat) ([]byte, error)

	// ParseResponse extracts the completion from provider-specific JSON.
	ParseResponse(body []byte, model string) (*Response, error)
}

var (
	providerRegistry = make(map[string]Provider)
	providerMu       sync.RWMutex
)

// RegisterProvider adds a provider to the registry. Providers register
// themselves via init() in the providers subpackage.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a provider by name, or nil if unknown.
func GetProvider(name string) Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[name]
}

// ListProviders returns all registered provider names.
func ListProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()

	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	return names
}
