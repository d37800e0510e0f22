package app

import (
	"context"
	"fmt"
	"time"

	"smartaset/internal/util"
	"smartaset/pkg/audit"
	"smartaset/pkg/domain"
	"smartaset/pkg/events"
	"smartaset/pkg/extract"
)

// run executes one audit strictly in sequence: primary source, opening clip,
// closing clip, then a single model call. Progress goes 5..50 during
// extraction, 75 before the model call.
func (a *App) run(ctx context.Context, workspaceID string, files domain.SourceSelection, progress extract.ProgressFunc) (domain.AuditResult, error) {
	logger := util.LoggerFromContext(ctx).With("workspace_id", workspaceID)
	if progress == nil {
		progress = func(int) {}
	}
	if err := a.audits.Acquire(ctx, 1); err != nil {
		return domain.AuditResult{}, err
	}
	defer a.audits.Release(1)

	primary, kind := files.Primary()
	start := time.Now()
	fingerprint, err := extract.Fingerprint(primary.Path)
	if err != nil {
		return domain.AuditResult{}, fmt.Errorf("%w: %v", audit.ErrExtraction, err)
	}
	logger = logger.With("source", kind, "fingerprint", fingerprint)

	var content domain.ExtractedContent
	switch kind {
	case domain.SourceDocument:
		doc, err := a.documents.Extract(ctx, primary.Path, progress)
		if err != nil {
			return domain.AuditResult{}, fmt.Errorf("%w: %v", audit.ErrExtraction, err)
		}
		content.Images = doc.Images
		content.Text = doc.Text
		logger.Info("document extracted", "pages", len(doc.Images), "total_pages", doc.TotalPages, "scanned", doc.Scanned)
	case domain.SourcePackage:
		pkg, err := a.packages(primary.Path)
		if err != nil {
			return domain.AuditResult{}, fmt.Errorf("%w: %v", audit.ErrExtraction, err)
		}
		content.Text = pkg.Text
		progress(50)
		logger.Info("package extracted", "manifest", pkg.HasManifest, "markup_files", pkg.MarkupFiles, "sampled", len(pkg.Sampled))
	}

	if files.VideoOpening != nil {
		frames, err := a.frames.Sample(ctx, files.VideoOpening.Path)
		if err != nil {
			return domain.AuditResult{}, fmt.Errorf("%w: opening video: %v", audit.ErrExtraction, err)
		}
		content.OpeningFrames = frames
	}
	if files.VideoClosing != nil {
		frames, err := a.frames.Sample(ctx, files.VideoClosing.Path)
		if err != nil {
			return domain.AuditResult{}, fmt.Errorf("%w: closing video: %v", audit.ErrExtraction, err)
		}
		content.ClosingFrames = frames
	}
	progress(75)
	logger.Info("extraction finished",
		"images", len(content.Images),
		"opening_frames", len(content.OpeningFrames),
		"closing_frames", len(content.ClosingFrames),
		"text_chars", len(content.Text),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	result, err := a.analyzer.Analyze(ctx, content, primary.Name)
	if err != nil {
		return domain.AuditResult{}, err
	}

	evt := events.NewAuditCompleted(workspaceID, kind, fingerprint, result)
	if err := a.events.PublishAuditCompleted(ctx, evt); err != nil {
		logger.Warn("publish audit event failed", "audit_id", result.ID, "err", err)
	}
	return result, nil
}
