package ai

import "context"

// GeminiGenerator wraps GeminiClient with a fixed model.
type GeminiGenerator struct {
	client *GeminiClient
	model  string
}

// NewGeminiGenerator builds a Gemini-based Generator.
func NewGeminiGenerator(client *GeminiClient, model string) *GeminiGenerator {
	return &GeminiGenerator{client: client, model: model}
}

// Generate implements Generator using Gemini generateContent.
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (string, error) {
	return g.client.Generate(ctx, g.model, req)
}
