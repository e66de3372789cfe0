package completion

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config controls client construction.
type Config struct {
	Mode          string
	GeminiBaseURL string
	GeminiModel   string
	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIModel   string
	Timeout       time.Duration
}

// NewClient selects a completion provider. In auto mode the first provider
// with a configured credential wins, falling back to the mock.
func NewClient(cfg Config) (Client, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
			return NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiModel, cfg.Timeout), nil
		}
		if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
			return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
		}
		return NewMockClient(), nil
	case "gemini":
		return NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiModel, cfg.Timeout), nil
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, errors.New("openai api key is required for openai mode")
		}
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("invalid completion provider: %q (expected auto|gemini|openai|mock)", cfg.Mode)
	}
}
