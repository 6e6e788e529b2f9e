package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"intentgate/internal/domain"
)

type Provider interface {
	Complete(ctx context.Context, req domain.LLMRequest) (domain.LLMResponse, error)
}

type Config struct {
	Provider         string
	GeminiBaseURL    string
	GeminiAPIKey     string
	OpenAIBaseURL    string
	OpenAIAPIKey     string
	AnthropicBaseURL string
	AnthropicAPIKey  string
}

func NewProvider(cfg Config) (Provider, error) {
	client := &http.Client{Timeout: 60 * time.Second}

	switch cfg.Provider {
	case "gemini":
		return NewGeminiProvider(client, cfg.GeminiBaseURL, cfg.GeminiAPIKey), nil
	case "openai":
		return NewOpenAIProvider(client, cfg.OpenAIBaseURL, cfg.OpenAIAPIKey), nil
	case "claude":
		return NewClaudeProvider(client, cfg.AnthropicBaseURL, cfg.AnthropicAPIKey), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
