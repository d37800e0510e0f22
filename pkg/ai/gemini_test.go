package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"smartaset/pkg/domain"
)

func TestGeminiGenerateSendsPartsInOrder(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/test-model:generateContent") {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "k" {
			t.Fatalf("missing api key header")
		}
		if r.URL.RawQuery != "" {
			t.Fatalf("query must stay empty, got %q", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]}}]}`))
	}))
	defer srv.Close()

	client, err := NewGeminiClient("k", WithGeminiBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	schema := &Schema{Type: "object", Properties: map[string]*Schema{"a": {Type: "number"}}, Required: []string{"a"}}
	out, err := NewGeminiGenerator(client, "models/test-model").Generate(context.Background(), Request{
		SystemInstruction: "rubric",
		History:           []domain.ChatTurn{{Role: domain.RoleUser, Text: "hi"}, {Role: domain.RoleModel, Text: "yo"}},
		Parts: []Part{
			ImagePart(domain.ImagePart{MimeType: "image/jpeg", Data: []byte{1, 2, 3}}),
			TextPart("marker"),
		},
		ResponseSchema: schema,
		Temperature:    Temperature(0.15),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != `{"a":1}` {
		t.Fatalf("reply = %q", out)
	}

	contents := got["contents"].([]any)
	if len(contents) != 3 {
		t.Fatalf("contents len = %d, want 3", len(contents))
	}
	if role := contents[1].(map[string]any)["role"]; role != "model" {
		t.Fatalf("history role = %v, want model", role)
	}
	parts := contents[2].(map[string]any)["parts"].([]any)
	inline := parts[0].(map[string]any)["inlineData"].(map[string]any)
	if inline["data"] != base64.StdEncoding.EncodeToString([]byte{1, 2, 3}) {
		t.Fatalf("inline data = %v", inline["data"])
	}
	if parts[1].(map[string]any)["text"] != "marker" {
		t.Fatalf("second part = %v", parts[1])
	}
	cfg := got["generationConfig"].(map[string]any)
	if cfg["temperature"] != 0.15 {
		t.Fatalf("temperature = %v", cfg["temperature"])
	}
	if cfg["responseMimeType"] != "application/json" {
		t.Fatalf("responseMimeType = %v", cfg["responseMimeType"])
	}
	if typ := cfg["responseSchema"].(map[string]any)["type"]; typ != "OBJECT" {
		t.Fatalf("schema type = %v, want OBJECT", typ)
	}
	sys := got["systemInstruction"].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"]
	if sys != "rubric" {
		t.Fatalf("system instruction = %v", sys)
	}
}

func TestGeminiGenerateSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer srv.Close()

	client, _ := NewGeminiClient("k", WithGeminiBaseURL(srv.URL))
	_, err := client.Generate(context.Background(), "m", Request{Parts: []Part{TextPart("x")}})
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestGeminiTransportErrorOmitsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	client, _ := NewGeminiClient("sekret-key-123", WithGeminiBaseURL(base))
	_, err := client.Generate(context.Background(), "m", Request{Parts: []Part{TextPart("x")}})
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if strings.Contains(err.Error(), "sekret-key-123") {
		t.Fatalf("error leaks api key: %v", err)
	}
}

func TestGeminiGenerateRejectsEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	client, _ := NewGeminiClient("k", WithGeminiBaseURL(srv.URL))
	if _, err := client.Generate(context.Background(), "m", Request{Parts: []Part{TextPart("x")}}); err == nil {
		t.Fatalf("expected error for empty candidates")
	}
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	if _, err := NewGeminiClient("  "); err == nil {
		t.Fatalf("expected error for blank api key")
	}
}

func TestNewGeneratorProviders(t *testing.T) {
	if _, err := NewGenerator(ProviderConfig{Provider: "gemini", APIKey: "k", Model: "m"}); err != nil {
		t.Fatalf("gemini: %v", err)
	}
	if _, err := NewGenerator(ProviderConfig{Provider: "ollama", Model: "llava"}); err != nil {
		t.Fatalf("ollama: %v", err)
	}
	if _, err := NewGenerator(ProviderConfig{Provider: "openai-compat", Model: "m"}); err == nil {
		t.Fatalf("openai-compat without base url should fail")
	}
	if _, err := NewGenerator(ProviderConfig{Provider: "nope", Model: "m"}); err == nil {
		t.Fatalf("unknown provider should fail")
	}
	if _, err := NewGenerator(ProviderConfig{APIKey: "k"}); err == nil {
		t.Fatalf("missing model should fail")
	}
}
