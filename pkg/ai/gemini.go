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

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient calls the Google AI Studio (Gemini) API.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// GeminiOption customizes a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithGeminiBaseURL points the client at another endpoint (proxies, tests).
func WithGeminiBaseURL(baseURL string) GeminiOption {
	return func(c *GeminiClient) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// WithGeminiHTTPClient replaces the default HTTP client.
func WithGeminiHTTPClient(hc *http.Client) GeminiOption {
	return func(c *GeminiClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewGeminiClient constructs a client with the provided API key.
func NewGeminiClient(apiKey string, opts ...GeminiOption) (*GeminiClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key required")
	}
	c := &GeminiClient{
		apiKey:  apiKey,
		baseURL: defaultGeminiBaseURL,
		// Audits carry up to a dozen page images plus video frames.
		httpClient: &http.Client{Timeout: 180 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate sends one multi-part request and returns the concatenated reply text.
func (c *GeminiClient) Generate(ctx context.Context, model string, req Request) (string, error) {
	reqBody := generateRequest{
		Contents: make([]content, 0, len(req.History)+1),
	}
	for _, turn := range req.History {
		role := "user"
		if turn.Role == domain.RoleModel {
			role = "model"
		}
		reqBody.Contents = append(reqBody.Contents, content{
			Role:  role,
			Parts: []part{{Text: turn.Text}},
		})
	}
	userParts := make([]part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.Image != nil {
			userParts = append(userParts, part{InlineData: &inlineData{MimeType: p.Image.MimeType, Data: p.Image.Data}})
			continue
		}
		userParts = append(userParts, part{Text: p.Text})
	}
	if len(userParts) == 0 {
		return "", fmt.Errorf("gemini request has no parts")
	}
	reqBody.Contents = append(reqBody.Contents, content{Role: "user", Parts: userParts})

	if strings.TrimSpace(req.SystemInstruction) != "" {
		reqBody.SystemInstruction = &content{
			Parts: []part{{Text: req.SystemInstruction}},
		}
	}
	if req.Temperature != nil || req.ResponseSchema != nil {
		reqBody.GenerationConfig = &generationConfig{Temperature: req.Temperature}
		if req.ResponseSchema != nil {
			reqBody.GenerationConfig.ResponseMimeType = "application/json"
			reqBody.GenerationConfig.ResponseSchema = req.ResponseSchema.Gemini()
		}
	}

	var resp generateResponse
	if err := c.doJSON(ctx, fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, normalizeModel(model)), reqBody, &resp); err != nil {
		return "", err
	}
	if resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked prompt: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

func normalizeModel(model string) string {
	model = strings.TrimSpace(model)
	model = strings.TrimPrefix(model, "models/")
	return model
}

func (c *GeminiClient) doJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	// The key travels in a header so transport errors, which quote the URL,
	// never carry it.
	req.Header.Set("x-goog-api-key", c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return fmt.Errorf("gemini api error: %s", errResp.Error.Message)
		}
		return fmt.Errorf("gemini api error: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	return nil
}

// inlineData carries raw bytes; encoding/json writes []byte as base64.
type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      *float64       `json:"temperature,omitempty"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
