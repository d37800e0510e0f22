package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"smartaset/pkg/domain"
)

// OpenAICompatGenerator calls any OpenAI-compatible /v1/chat/completions endpoint.
// Works with vLLM, LiteLLM, LocalAI, OpenRouter and other vision-capable gateways.
type OpenAICompatGenerator struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAICompatGenerator builds an OpenAI-compatible Generator.
// baseURL should include the /v1 prefix, e.g. "http://localhost:8000/v1".
// apiKey can be empty for local models that do not require authentication.
func NewOpenAICompatGenerator(baseURL, apiKey, model string) *OpenAICompatGenerator {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return &OpenAICompatGenerator{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		model:   strings.TrimSpace(model),
		httpClient: &http.Client{
			Timeout: 180 * time.Second,
		},
	}
}

// Generate implements Generator using the OpenAI chat completions API.
func (g *OpenAICompatGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if g.model == "" {
		return "", fmt.Errorf("openai-compat generation model required")
	}
	messages := make([]oaiMessage, 0, len(req.History)+2)
	if strings.TrimSpace(req.SystemInstruction) != "" {
		messages = append(messages, oaiMessage{Role: "system", Content: req.SystemInstruction})
	}
	for _, turn := range req.History {
		role := "user"
		if turn.Role == domain.RoleModel {
			role = "assistant"
		}
		messages = append(messages, oaiMessage{Role: role, Content: turn.Text})
	}
	contentParts := make([]oaiContentPart, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.Image != nil {
			contentParts = append(contentParts, oaiContentPart{
				Type: "image_url",
				ImageURL: &oaiImageURL{
					URL: "data:" + p.Image.MimeType + ";base64," + base64.StdEncoding.EncodeToString(p.Image.Data),
				},
			})
			continue
		}
		contentParts = append(contentParts, oaiContentPart{Type: "text", Text: p.Text})
	}
	messages = append(messages, oaiMessage{Role: "user", Content: contentParts})

	reqBody := oaiChatRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.ResponseSchema != nil {
		reqBody.ResponseFormat = &oaiResponseFormat{
			Type: "json_schema",
			JSONSchema: &oaiJSONSchema{
				Name:   "response",
				Schema: req.ResponseSchema.JSONSchema(),
			},
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := g.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai-compat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp oaiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return "", fmt.Errorf("openai-compat api error: %s", errResp.Error.Message)
		}
		return "", fmt.Errorf("openai-compat api error: %s", resp.Status)
	}

	var chatResp oaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("openai-compat decode: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty response from openai-compat api")
	}
	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty response from openai-compat api")
	}
	return text, nil
}

// OpenAI-compatible request/response types.

type oaiMessage struct {
	Role string `json:"role"`
	// Content is a string or a []oaiContentPart.
	Content any `json:"content"`
}

type oaiContentPart struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	ImageURL *oaiImageURL `json:"image_url,omitempty"`
}

type oaiImageURL struct {
	URL string `json:"url"`
}

type oaiJSONSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
}

type oaiResponseFormat struct {
	Type       string         `json:"type"`
	JSONSchema *oaiJSONSchema `json:"json_schema,omitempty"`
}

type oaiChatRequest struct {
	Model          string             `json:"model"`
	Messages       []oaiMessage       `json:"messages"`
	Temperature    *float64           `json:"temperature,omitempty"`
	ResponseFormat *oaiResponseFormat `json:"response_format,omitempty"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type oaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
