package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"smartaset/pkg/domain"
)

func TestOllamaGenerateAttachesImagesAndFormat(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"ok"}}`))
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(srv.URL, "llava")
	out, err := gen.Generate(context.Background(), Request{
		SystemInstruction: "sys",
		History:           []domain.ChatTurn{{Role: domain.RoleModel, Text: "earlier"}},
		Parts: []Part{
			TextPart("a"),
			ImagePart(domain.ImagePart{MimeType: "image/jpeg", Data: []byte("img")}),
			TextPart("b"),
		},
		ResponseSchema: &Schema{Type: "OBJECT"},
		Temperature:    Temperature(0.15),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "ok" {
		t.Fatalf("reply = %q", out)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(got.Messages))
	}
	if got.Messages[1].Role != "assistant" {
		t.Fatalf("history role = %q", got.Messages[1].Role)
	}
	last := got.Messages[2]
	if last.Content != "a\n\nb" {
		t.Fatalf("content = %q", last.Content)
	}
	if len(last.Images) != 1 || string(last.Images[0]) != "img" {
		t.Fatalf("images = %v", last.Images)
	}
	if got.Format["type"] != "object" {
		t.Fatalf("format type = %v", got.Format["type"])
	}
	if got.Options == nil || got.Options.Temperature == nil || *got.Options.Temperature != 0.15 {
		t.Fatalf("temperature not forwarded")
	}
}

func TestOllamaGenerateRejectsEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"  "}}`))
	}))
	defer srv.Close()
	gen := NewOllamaGenerator(srv.URL, "llava")
	if _, err := gen.Generate(context.Background(), Request{Parts: []Part{TextPart("x")}}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOllamaGenerateSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"llava\" not found"}`))
	}))
	defer srv.Close()
	gen := NewOllamaGenerator(srv.URL+"/", "llava")
	_, err := gen.Generate(context.Background(), Request{Parts: []Part{TextPart("x")}})
	if err == nil || !strings.Contains(err.Error(), `model "llava" not found`) {
		t.Fatalf("err = %v", err)
	}
}

func TestOpenAICompatGenerateBuildsMultipartContent(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Fatalf("missing bearer")
		}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" done "}}]}`))
	}))
	defer srv.Close()

	gen := NewOpenAICompatGenerator(srv.URL+"/", "secret", "gpt")
	out, err := gen.Generate(context.Background(), Request{
		Parts: []Part{
			ImagePart(domain.ImagePart{MimeType: "image/jpeg", Data: []byte{0xff}}),
			TextPart("look"),
		},
		ResponseSchema: &Schema{Type: "object"},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "done" {
		t.Fatalf("reply = %q", out)
	}
	msgs := raw["messages"].([]any)
	parts := msgs[0].(map[string]any)["content"].([]any)
	url := parts[0].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Fatalf("image url = %q", url)
	}
	if raw["response_format"].(map[string]any)["type"] != "json_schema" {
		t.Fatalf("response_format = %v", raw["response_format"])
	}
}

func TestSchemaRendering(t *testing.T) {
	s := &Schema{
		Type:       "object",
		Properties: map[string]*Schema{"status": {Type: "string", Enum: []string{"PASS"}}, "tags": {Type: "array", Items: &Schema{Type: "string"}}},
		Order:      []string{"status", "tags"},
		Required:   []string{"status"},
	}
	g := s.Gemini()
	if g["type"] != "OBJECT" {
		t.Fatalf("gemini type = %v", g["type"])
	}
	if _, ok := g["propertyOrdering"]; !ok {
		t.Fatalf("gemini schema missing propertyOrdering")
	}
	tags := g["properties"].(map[string]any)["tags"].(map[string]any)
	if tags["items"].(map[string]any)["type"] != "STRING" {
		t.Fatalf("items type = %v", tags["items"])
	}
	j := s.JSONSchema()
	if j["type"] != "object" {
		t.Fatalf("json schema type = %v", j["type"])
	}
	if _, ok := j["propertyOrdering"]; ok {
		t.Fatalf("json schema must not carry propertyOrdering")
	}
}
