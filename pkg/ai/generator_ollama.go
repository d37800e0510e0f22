package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"smartaset/pkg/domain"
)

const defaultOllamaBaseURL = "http://127.0.0.1:11434"

// OllamaGenerator talks to a local Ollama server through /api/chat.
type OllamaGenerator struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaGenerator builds an Ollama-based Generator. An empty baseURL
// points at the default local daemon.
func NewOllamaGenerator(baseURL, model string) *OllamaGenerator {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &OllamaGenerator{
		baseURL: baseURL,
		model:   model,
		// Local vision models are slow on page-sized images.
		httpClient: &http.Client{Timeout: 300 * time.Second},
	}
}

// Generate implements Generator using Ollama /api/chat. Ollama attaches images
// to a message rather than interleaving them, so text parts are joined and
// every image of the final turn rides on the last user message.
func (g *OllamaGenerator) Generate(ctx context.Context, req Request) (string, error) {
	model := strings.TrimSpace(g.model)
	if model == "" {
		return "", fmt.Errorf("ollama generation model required")
	}

	messages := make([]ollamaChatMessage, 0, len(req.History)+2)
	if strings.TrimSpace(req.SystemInstruction) != "" {
		messages = append(messages, ollamaChatMessage{Role: "system", Content: req.SystemInstruction})
	}
	for _, turn := range req.History {
		role := "user"
		if turn.Role == domain.RoleModel {
			role = "assistant"
		}
		messages = append(messages, ollamaChatMessage{Role: role, Content: turn.Text})
	}
	var texts []string
	var images [][]byte
	for _, p := range req.Parts {
		if p.Image != nil {
			images = append(images, p.Image.Data)
			continue
		}
		texts = append(texts, p.Text)
	}
	messages = append(messages, ollamaChatMessage{
		Role:    "user",
		Content: strings.Join(texts, "\n\n"),
		Images:  images,
	})

	reqBody := ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
	}
	if req.ResponseSchema != nil {
		reqBody.Format = req.ResponseSchema.JSONSchema()
	}
	if req.Temperature != nil {
		reqBody.Options = &ollamaOptions{Temperature: req.Temperature}
	}

	resp, err := g.chat(ctx, reqBody)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		return "", fmt.Errorf("empty response from ollama")
	}
	return resp.Message.Content, nil
}

func (g *OllamaGenerator) chat(ctx context.Context, payload ollamaChatRequest) (ollamaChatResponse, error) {
	var out ollamaChatResponse
	body, err := json.Marshal(payload)
	if err != nil {
		return out, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return out, fmt.Errorf("ollama api error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return out, fmt.Errorf("ollama api error: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode ollama response: %w", err)
	}
	return out, nil
}

type ollamaChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  [][]byte `json:"images,omitempty"`
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Format   map[string]any      `json:"format,omitempty"`
	Options  *ollamaOptions      `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
}
