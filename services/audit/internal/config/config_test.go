package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("HISTORY_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("MAX_CONCURRENT_AUDITS", "4")
	t.Setenv("GENERATION_TEMPERATURE", "0.3")
	t.Setenv("SMARTASET_CORS_ORIGINS", "https://a.example, https://b.example")

	path := writeConfig(t, `
port: "9090"
logLevel: "debug"
uploadsDir: "/var/lib/smartaset"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != "9090" || cfg.LogLevel != "debug" {
		t.Fatalf("yaml values lost: %+v", cfg)
	}
	if cfg.GenerationModel != DefaultGenerationModel {
		t.Fatalf("generationModel = %q, want default", cfg.GenerationModel)
	}
	if cfg.GenerationAPIKey != "gemini-key" {
		t.Fatalf("generationAPIKey = %q", cfg.GenerationAPIKey)
	}
	if cfg.HistoryBackend != "redis" || cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("history backend = %q %q", cfg.HistoryBackend, cfg.RedisAddr)
	}
	if cfg.MaxConcurrent != 4 {
		t.Fatalf("maxConcurrentAudits = %d, want 4", cfg.MaxConcurrent)
	}
	if cfg.Temperature != 0.3 {
		t.Fatalf("temperature = %f, want 0.3", cfg.Temperature)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("corsOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadGenerationKeyPrecedence(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("GENERATION_API_KEY", "explicit-key")
	cfg, err := Load(writeConfig(t, "port: \"8080\"\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.GenerationAPIKey != "explicit-key" {
		t.Fatalf("generationAPIKey = %q, want explicit-key", cfg.GenerationAPIKey)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestLoadDefaultFileIsOptional(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("SMARTASET_CONFIG", "")
	chdir(t, t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load without config.yaml: %v", err)
	}
	if cfg.Port != DefaultPort || cfg.HistoryBackend != "sqlite" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func validConfig() FileConfig {
	cfg := defaults()
	cfg.GenerationAPIKey = "k"
	return cfg
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*FileConfig)
	}{
		{"gemini without key", func(c *FileConfig) { c.GenerationAPIKey = "" }},
		{"openai-compat without base url", func(c *FileConfig) { c.GenerationProvider = "openai-compat" }},
		{"unknown provider", func(c *FileConfig) { c.GenerationProvider = "bard" }},
		{"unknown history backend", func(c *FileConfig) { c.HistoryBackend = "etcd" }},
		{"postgres without dsn", func(c *FileConfig) { c.HistoryBackend = "postgres" }},
		{"zero concurrency", func(c *FileConfig) { c.MaxConcurrent = 0 }},
		{"temperature out of range", func(c *FileConfig) { c.Temperature = 3 }},
		{"bad session ttl", func(c *FileConfig) { c.SessionTTL = "forever" }},
		{"minio endpoint without bucket", func(c *FileConfig) { c.MinioEndpoint = "localhost:9000" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := validateConfig(cfg); err == nil {
				t.Fatalf("validateConfig() expected error")
			}
		})
	}
	if err := validateConfig(validConfig()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	ollama := validConfig()
	ollama.GenerationProvider = "ollama"
	ollama.GenerationAPIKey = ""
	if err := validateConfig(ollama); err != nil {
		t.Fatalf("ollama needs no api key: %v", err)
	}
}

func TestValidateServeRequiresSecret(t *testing.T) {
	cfg := validConfig()
	if err := ValidateServe(cfg); err == nil {
		t.Fatalf("expected error without session secret")
	}
	cfg.SessionSecret = "0123456789abcdef0123456789abcdef"
	if err := ValidateServe(cfg); err != nil {
		t.Fatalf("ValidateServe: %v", err)
	}
}

func TestParseSessionTTL(t *testing.T) {
	ttl, err := ParseSessionTTL("")
	if err != nil || ttl != 12*time.Hour {
		t.Fatalf("default ttl = %v, %v", ttl, err)
	}
	if _, err := ParseSessionTTL("-1h"); err == nil {
		t.Fatalf("expected error for negative ttl")
	}
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent to testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
