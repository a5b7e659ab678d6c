package providers

import (
	"net/http"
	"os"
	"strings"

	"github.com/newsfold/newsfold/llm"
)

// OpenRouterProvider implements the OpenRouter API. OpenRouter speaks the
// OpenAI chat completions dialect, so request/response handling is shared
// with OllamaProvider; only the endpoint and auth differ.
type OpenRouterProvider struct {
	OllamaProvider // Embed for shared request/response format
}

func init() {
	llm.RegisterProvider(&OpenRouterProvider{})
}

// Name returns the provider identifier.
func (o *OpenRouterProvider) Name() string {
	return "openrouter"
}

// BuildURL constructs the OpenRouter API endpoint.
func (o *OpenRouterProvider) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	return baseURL + "/chat/completions"
}

// SetHeaders adds OpenRouter authentication and attribution headers.
func (o *OpenRouterProvider) SetHeaders(req *http.Request) {
	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	if siteURL := os.Getenv("OPENROUTER_SITE_URL"); siteURL != "" {
		req.Header.Set("HTTP-Referer", siteURL)
	}
	if siteName := os.Getenv("OPENROUTER_SITE_NAME"); siteName != "" {
		req.Header.Set("X-Title", siteName)
	}
}
