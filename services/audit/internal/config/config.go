package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config location; SMARTASET_CONFIG overrides it.
const ConfigPath = "config.yaml"

// Defaults applied before the YAML file and environment are read.
const (
	DefaultPort                = "8080"
	DefaultGenerationModel     = "gemini-3-flash-preview"
	DefaultTemperature         = 0.15
	DefaultMaxUploadBytes      = 200 << 20
	DefaultMaxConcurrentAudits = 2
	DefaultRateLimitPerMinute  = 6
	DefaultSessionTTL          = "12h"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port               string   `yaml:"port"`
	LogLevel           string   `yaml:"logLevel"`
	UploadsDir         string   `yaml:"uploadsDir"`
	MaxUploadBytes     int64    `yaml:"maxUploadBytes"`
	CORSOrigins        []string `yaml:"corsOrigins"`
	TrustedProxies     []string `yaml:"trustedProxies"`
	GenerationProvider string   `yaml:"generationProvider"`
	GenerationBaseURL  string   `yaml:"generationBaseURL"`
	GenerationAPIKey   string   `yaml:"generationAPIKey"`
	GenerationModel    string   `yaml:"generationModel"`
	Temperature        float64  `yaml:"temperature"`
	HistoryBackend     string   `yaml:"historyBackend"`
	HistoryPath        string   `yaml:"historyPath"`
	RedisAddr          string   `yaml:"redisAddr"`
	RedisPassword      string   `yaml:"redisPassword"`
	DatabaseURL        string   `yaml:"databaseURL"`
	SessionSecret      string   `yaml:"sessionSecret"`
	SessionTTL         string   `yaml:"sessionTTL"`
	MaxConcurrent      int      `yaml:"maxConcurrentAudits"`
	RateLimitPerMinute int      `yaml:"rateLimitPerMinute"`
	PdftoppmPath       string   `yaml:"pdftoppmPath"`
	FfmpegPath         string   `yaml:"ffmpegPath"`
	FfprobePath        string   `yaml:"ffprobePath"`
	MinioEndpoint      string   `yaml:"minioEndpoint"`
	MinioAccessKey     string   `yaml:"minioAccessKey"`
	MinioSecretKey     string   `yaml:"minioSecretKey"`
	MinioBucket        string   `yaml:"minioBucket"`
	MinioUseSSL        bool     `yaml:"minioUseSSL"`
	AMQPURL            string   `yaml:"amqpURL"`
	AMQPExchange       string   `yaml:"amqpExchange"`
}

func defaults() FileConfig {
	return FileConfig{
		Port:               DefaultPort,
		LogLevel:           "info",
		UploadsDir:         "data/uploads",
		MaxUploadBytes:     DefaultMaxUploadBytes,
		GenerationProvider: "gemini",
		GenerationModel:    DefaultGenerationModel,
		Temperature:        DefaultTemperature,
		HistoryBackend:     "sqlite",
		HistoryPath:        "data/history.db",
		SessionTTL:         DefaultSessionTTL,
		MaxConcurrent:      DefaultMaxConcurrentAudits,
		RateLimitPerMinute: DefaultRateLimitPerMinute,
		AMQPExchange:       "smartaset",
	}
}

// Path resolves the config file location.
func Path() string {
	if v := strings.TrimSpace(os.Getenv("SMARTASET_CONFIG")); v != "" {
		return v
	}
	return ConfigPath
}

// Load reads .env, then the YAML file at path, then environment overrides.
// An explicit path must exist; the default config.yaml is optional.
func Load(path string) (FileConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return FileConfig{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := defaults()
	explicit := path != ""
	if !explicit {
		path = Path()
		explicit = path != ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	applyEnv(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	// Later entries win, so GENERATION_API_KEY overrides GEMINI_API_KEY.
	overrides := []struct {
		name string
		dst  *string
	}{
		{"SMARTASET_PORT", &cfg.Port},
		{"LOG_LEVEL", &cfg.LogLevel},
		{"SMARTASET_UPLOADS_DIR", &cfg.UploadsDir},
		{"GENERATION_PROVIDER", &cfg.GenerationProvider},
		{"GENERATION_BASE_URL", &cfg.GenerationBaseURL},
		{"GEMINI_API_KEY", &cfg.GenerationAPIKey},
		{"GENERATION_API_KEY", &cfg.GenerationAPIKey},
		{"GENERATION_MODEL", &cfg.GenerationModel},
		{"HISTORY_BACKEND", &cfg.HistoryBackend},
		{"HISTORY_PATH", &cfg.HistoryPath},
		{"REDIS_ADDR", &cfg.RedisAddr},
		{"REDIS_PASSWORD", &cfg.RedisPassword},
		{"DATABASE_URL", &cfg.DatabaseURL},
		{"SMARTASET_SESSION_SECRET", &cfg.SessionSecret},
		{"SESSION_TTL", &cfg.SessionTTL},
		{"PDFTOPPM_PATH", &cfg.PdftoppmPath},
		{"FFMPEG_PATH", &cfg.FfmpegPath},
		{"FFPROBE_PATH", &cfg.FfprobePath},
		{"MINIO_ENDPOINT", &cfg.MinioEndpoint},
		{"MINIO_ACCESS_KEY", &cfg.MinioAccessKey},
		{"MINIO_SECRET_KEY", &cfg.MinioSecretKey},
		{"MINIO_BUCKET", &cfg.MinioBucket},
		{"AMQP_URL", &cfg.AMQPURL},
		{"AMQP_EXCHANGE", &cfg.AMQPExchange},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.name); v != "" {
			*o.dst = v
		}
	}
	if v := os.Getenv("SMARTASET_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("GENERATION_TEMPERATURE"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Temperature = n
		}
	}
	if v := os.Getenv("MAX_CONCURRENT_AUDITS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrent = n
		}
	}
	if v := os.Getenv("AUDIT_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	if v := os.Getenv("SMARTASET_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("SMARTASET_TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = splitList(v)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseSessionTTL parses the sessionTTL duration string.
func ParseSessionTTL(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultSessionTTL
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid sessionTTL %q: %w", raw, err)
	}
	if ttl <= 0 {
		return 0, errors.New("config: sessionTTL must be > 0")
	}
	return ttl, nil
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("config: port is required (set in config.yaml or SMARTASET_PORT)")
	}
	switch strings.ToLower(cfg.GenerationProvider) {
	case "", "gemini":
		if strings.TrimSpace(cfg.GenerationAPIKey) == "" {
			return errors.New("config: generationAPIKey is required for gemini (set GEMINI_API_KEY)")
		}
	case "ollama":
	case "openai-compat", "openai":
		if strings.TrimSpace(cfg.GenerationBaseURL) == "" {
			return errors.New("config: generationBaseURL is required for openai-compat")
		}
	default:
		return fmt.Errorf("config: unknown generationProvider %q", cfg.GenerationProvider)
	}
	if strings.TrimSpace(cfg.GenerationModel) == "" {
		return errors.New("config: generationModel is required")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return errors.New("config: temperature must be between 0 and 2")
	}
	switch strings.ToLower(cfg.HistoryBackend) {
	case "memory":
	case "", "sqlite":
		if strings.TrimSpace(cfg.HistoryPath) == "" {
			return errors.New("config: historyPath is required for the sqlite backend")
		}
	case "redis":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required for the redis backend (set REDIS_ADDR)")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("config: databaseURL is required for the postgres backend (set DATABASE_URL)")
		}
	default:
		return fmt.Errorf("config: unknown historyBackend %q", cfg.HistoryBackend)
	}
	if cfg.MaxUploadBytes <= 0 {
		return errors.New("config: maxUploadBytes must be > 0")
	}
	if cfg.MaxConcurrent <= 0 {
		return errors.New("config: maxConcurrentAudits must be > 0")
	}
	if cfg.RateLimitPerMinute < 0 {
		return errors.New("config: rateLimitPerMinute must be >= 0")
	}
	if _, err := ParseSessionTTL(cfg.SessionTTL); err != nil {
		return err
	}
	if (cfg.MinioEndpoint == "") != (cfg.MinioBucket == "") {
		return errors.New("config: minioEndpoint and minioBucket must be set together")
	}
	return nil
}

// ValidateServe adds the checks only the HTTP server needs.
func ValidateServe(cfg FileConfig) error {
	if len(strings.TrimSpace(cfg.SessionSecret)) < 32 {
		return errors.New("config: sessionSecret of at least 32 bytes is required to serve (set SMARTASET_SESSION_SECRET)")
	}
	if strings.TrimSpace(cfg.UploadsDir) == "" {
		return errors.New("config: uploadsDir is required")
	}
	return nil
}
