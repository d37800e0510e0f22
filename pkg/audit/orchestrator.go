package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"smartaset/pkg/ai"
	"smartaset/pkg/domain"
)

// Recorder persists finished audits.
type Recorder interface {
	Record(ctx context.Context, result domain.AuditResult) error
}

// Config wires the orchestrator.
type Config struct {
	Generator   ai.Generator
	History     Recorder
	Temperature float64
	Logger      *slog.Logger
	Now         func() time.Time
	NewID       func() string
}

// Auditor submits extracted content to the model and stamps the result.
type Auditor struct {
	gen         ai.Generator
	history     Recorder
	temperature float64
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

// New validates cfg and applies defaults.
func New(cfg Config) (*Auditor, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator required")
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Auditor{
		gen:         cfg.Generator,
		history:     cfg.History,
		temperature: temperature,
		logger:      logger,
		now:         now,
		newID:       newID,
	}, nil
}

// BuildParts orders the request: page images, text block, opening marker and
// frames, closing marker and frames, then the closing instruction.
func BuildParts(content domain.ExtractedContent, assetName string) []ai.Part {
	parts := ai.ImageParts(content.Images)
	if content.Text != "" {
		parts = append(parts, ai.TextPart(TextMarker+content.Text))
	}
	if len(content.OpeningFrames) > 0 {
		parts = append(parts, ai.TextPart(OpeningMarker))
		parts = append(parts, ai.ImageParts(content.OpeningFrames)...)
	}
	if len(content.ClosingFrames) > 0 {
		parts = append(parts, ai.TextPart(ClosingMarker))
		parts = append(parts, ai.ImageParts(content.ClosingFrames)...)
	}
	parts = append(parts, ai.TextPart(fmt.Sprintf("Analisis aset: %s. Berikan review mentor yang mendalam dan manusiawi.", assetName)))
	return parts
}

// Analyze performs one audit call. The returned result always carries a fresh
// id and the local completion time, whatever the model replied.
func (a *Auditor) Analyze(ctx context.Context, content domain.ExtractedContent, assetName string) (domain.AuditResult, error) {
	assetName = strings.TrimSpace(assetName)
	if assetName == "" {
		assetName = DefaultAssetName
	}
	start := a.now()
	raw, err := a.gen.Generate(ctx, ai.Request{
		SystemInstruction: SystemInstruction,
		Parts:             BuildParts(content, assetName),
		ResponseSchema:    ResultSchema,
		Temperature:       ai.Temperature(a.temperature),
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.AuditResult{}, err
		}
		return domain.AuditResult{}, fmt.Errorf("%w: %v", ErrModelCall, err)
	}
	result, err := ParseResult(raw)
	if err != nil {
		a.logger.Warn("audit response rejected", "asset", assetName, "err", err, "bytes", len(raw))
		return domain.AuditResult{}, err
	}
	result.ID = a.newID()
	result.Timestamp = a.now()

	a.logger.Info("audit completed",
		"asset", assetName,
		"audit_id", result.ID,
		"score", result.OverallScore,
		"details", len(result.Details),
		"images", len(content.Images),
		"duration_ms", result.Timestamp.Sub(start).Milliseconds(),
	)
	if a.history != nil {
		if err := a.history.Record(ctx, result); err != nil {
			a.logger.Warn("history write failed", "audit_id", result.ID, "err", err)
		}
	}
	return result, nil
}
