// Package providers implements the LLM backends. Importing it registers all
// providers via init().
package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/newsfold/newsfold/llm"
)

// OllamaProvider implements the OpenAI-compatible chat completions API used
// by Ollama, vLLM, and similar local endpoints.
type OllamaProvider struct{}

func init() {
	llm.RegisterProvider(&OllamaProvider{})
}

// Name returns the provider identifier.
func (o *OllamaProvider) Name() string {
	return "ollama"
}

// BuildURL constructs the chat completions endpoint.
func (o *OllamaProvider) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	return baseURL + "/chat/completions"
}

// SetHeaders adds OpenAI-compatible headers.
func (o *OllamaProvider) SetHeaders(req *http.Request) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

// openAIRequest is the OpenAI-compatible request format.
type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    *float64              `json:"temperature,omitempty"`
	MaxTokens      *int                  `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openAIResponseFormat requests structured output constrained to a schema.
type openAIResponseFormat struct {
	Type       string           `json:"type"`
	JSONSchema openAIJSONSchema `json:"json_schema"`
}

type openAIJSONSchema struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

// BuildRequestBody creates the OpenAI-compatible JSON request body.
func (o *OllamaProvider) BuildRequestBody(model string, messages []llm.Message, temperature *float64, maxTokens int, format *llm.SchemaFormat) ([]byte, error) {
	req := openAIRequest{
		Model:       model,
		Temperature: temperature,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openAIMessage{Role: m.Role, Content: m.Content})
	}
	if maxTokens > 0 {
		req.MaxTokens = &maxTokens
	}
	if format != nil {
		req.ResponseFormat = &openAIResponseFormat{
			Type: "json_schema",
			JSONSchema: openAIJSONSchema{
				Name:   format.Name,
				Strict: format.Strict,
				Schema: format.Schema,
			},
		}
	}
	return json.Marshal(req)
}

// openAIResponse is the OpenAI-compatible response format.
type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// ParseResponse extracts the completion from OpenAI-compatible JSON.
func (o *OllamaProvider) ParseResponse(body []byte, model string) (*llm.Response, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	respModel := resp.Model
	if respModel == "" {
		respModel = model
	}

	return &llm.Response{
		Content:      resp.Choices[0].Message.Content,
		Model:        respModel,
		TokensUsed:   resp.Usage.TotalTokens,
		FinishReason: resp.Choices[0].FinishReason,
	}, nil
}
