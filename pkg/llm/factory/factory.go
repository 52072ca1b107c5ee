package factory

import (
	"context"
	"fmt"
	"time"

	"move-quote-be/pkg/llm"
	"move-quote-be/pkg/llm/einoprovider"

	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
)

type Config struct {
	Provider    string // "openai" or "ollama"
	Model       string
	BaseURL     string
	APIKey      string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

func NewLLMProvider(ctx context.Context, cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		mc := &openai.ChatModelConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}
		if cfg.MaxTokens > 0 {
			maxTokens := cfg.MaxTokens
			mc.MaxTokens = &maxTokens
		}
		if cfg.Temperature > 0 {
			temperature := cfg.Temperature
			mc.Temperature = &temperature
		}
		m, err := openai.NewChatModel(ctx, mc)
		if err != nil {
			return nil, fmt.Errorf("create openai chat model: %w", err)
		}
		return einoprovider.New("openai", m), nil

	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		m, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: baseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create ollama chat model: %w", err)
		}
		return einoprovider.New("ollama", m), nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
