package ai

import (
	"context"
	"fmt"
	"strings"

	"smartaset/pkg/domain"
)

// Generator produces a single model reply for a structured request.
// All LLM providers (Gemini, Ollama, OpenAI-compatible) implement this interface.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Request is one generation call: a system instruction, optional prior
// dialogue, and the ordered parts of the final user turn.
type Request struct {
	SystemInstruction string
	History           []domain.ChatTurn
	Parts             []Part
	// ResponseSchema requests JSON output matching the schema when set.
	ResponseSchema *Schema
	Temperature    *float64
}

// Part is either text or an inline image.
type Part struct {
	Text  string
	Image *domain.ImagePart
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func ImagePart(img domain.ImagePart) Part {
	return Part{Image: &img}
}

// ImageParts wraps each image as a request part, preserving order.
func ImageParts(images []domain.ImagePart) []Part {
	out := make([]Part, 0, len(images))
	for _, img := range images {
		out = append(out, ImagePart(img))
	}
	return out
}

// Temperature returns a pointer for Request.Temperature.
func Temperature(v float64) *float64 {
	return &v
}

// ProviderConfig selects and configures a Generator.
type ProviderConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
}

// NewGenerator builds the Generator named by cfg.Provider (default gemini).
func NewGenerator(cfg ProviderConfig) (Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "gemini"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("generation model required")
	}
	switch provider {
	case "gemini":
		opts := []GeminiOption{}
		if strings.TrimSpace(cfg.BaseURL) != "" {
			opts = append(opts, WithGeminiBaseURL(cfg.BaseURL))
		}
		client, err := NewGeminiClient(cfg.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return NewGeminiGenerator(client, cfg.Model), nil
	case "ollama":
		return NewOllamaGenerator(cfg.BaseURL, cfg.Model), nil
	case "openai-compat", "openai":
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, fmt.Errorf("openai-compat base url required")
		}
		return NewOpenAICompatGenerator(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", provider)
	}
}
