package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"smartaset/internal/util"
	"smartaset/pkg/ai"
	"smartaset/pkg/audit"
	"smartaset/pkg/domain"
	"smartaset/pkg/events"
	"smartaset/pkg/extract"
	"smartaset/pkg/history"
	"smartaset/pkg/storage"
)

const defaultMaxConcurrentAudits = 2

// Analyzer submits extracted content for one audit.
type Analyzer interface {
	Analyze(ctx context.Context, content domain.ExtractedContent, assetName string) (domain.AuditResult, error)
}

// DocumentExtractor turns a PDF into page images and text.
type DocumentExtractor interface {
	Extract(ctx context.Context, path string, progress extract.ProgressFunc) (extract.DocumentContent, error)
}

// FrameSampler takes stills from a video clip.
type FrameSampler interface {
	Sample(ctx context.Context, path string) ([]domain.ImagePart, error)
}

// Config holds runtime dependencies for the core application.
type Config struct {
	Analyzer  Analyzer
	Generator ai.Generator
	History   *history.Store
	Documents DocumentExtractor
	Frames    FrameSampler
	Packages  func(path string) (extract.PackageContent, error)
	Files     *storage.FileStore
	Archive   storage.ObjectStore
	Events    events.Publisher

	MaxConcurrentAudits int
	WorkspaceTTL        time.Duration
	Logger              *slog.Logger
}

// App owns the workspaces and runs the audit pipeline.
type App struct {
	analyzer  Analyzer
	generator ai.Generator
	history   *history.Store
	documents DocumentExtractor
	frames    FrameSampler
	packages  func(path string) (extract.PackageContent, error)
	files     *storage.FileStore
	archive   storage.ObjectStore
	events    events.Publisher
	audits    *semaphore.Weighted
	ttl       time.Duration
	logger    *slog.Logger

	mu         sync.RWMutex
	workspaces map[string]*Workspace
}

// New validates cfg and applies defaults.
func New(cfg Config) (*App, error) {
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("analyzer required")
	}
	if cfg.History == nil {
		return nil, fmt.Errorf("history store required")
	}
	if cfg.Documents == nil || cfg.Frames == nil {
		return nil, fmt.Errorf("document extractor and frame sampler required")
	}
	packages := cfg.Packages
	if packages == nil {
		packages = extract.ExtractPackage
	}
	publisher := cfg.Events
	if publisher == nil {
		publisher = events.Nop{}
	}
	limit := cfg.MaxConcurrentAudits
	if limit <= 0 {
		limit = defaultMaxConcurrentAudits
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		analyzer:   cfg.Analyzer,
		generator:  cfg.Generator,
		history:    cfg.History,
		documents:  cfg.Documents,
		frames:     cfg.Frames,
		packages:   packages,
		files:      cfg.Files,
		archive:    cfg.Archive,
		events:     publisher,
		audits:     semaphore.NewWeighted(int64(limit)),
		ttl:        cfg.WorkspaceTTL,
		logger:     logger,
		workspaces: make(map[string]*Workspace),
	}, nil
}

// CreateWorkspace opens an empty reviewer session.
func (a *App) CreateWorkspace() *Workspace {
	ws := NewWorkspace(util.NewID(), a.openChat)
	a.mu.Lock()
	a.workspaces[ws.ID()] = ws
	a.mu.Unlock()
	a.logger.Info("workspace created", "workspace_id", ws.ID())
	return ws
}

// Workspace looks up a session by id.
func (a *App) Workspace(id string) (*Workspace, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ws, ok := a.workspaces[id]
	if !ok {
		return nil, ErrWorkspaceNotFound
	}
	return ws, nil
}

func (a *App) openChat(report domain.AuditResult) *audit.ChatSession {
	return audit.NewChatSession(a.generator, report, a.logger)
}

// UploadSource stores r as the primary source of kind and selects it. The
// upload is staged first and only moved into its slot under the workspace
// lock, once no audit is running.
func (a *App) UploadSource(ws *Workspace, kind domain.SourceKind, name string, r io.Reader) (Snapshot, error) {
	if ws.Analyzing() {
		return Snapshot{}, ErrAuditInProgress
	}
	staged, err := a.stage(ws, name, r)
	if err != nil {
		return Snapshot{}, err
	}
	_, err = ws.PlaceSource(kind, func() (domain.UploadedFile, error) {
		file, err := a.files.Commit(ws.ID(), string(kind), staged)
		if err != nil {
			return file, err
		}
		// Selecting one primary kind always clears the other.
		a.discard(ws, otherKind(kind))
		return file, nil
	})
	if err != nil {
		a.drop(ws, staged)
		return Snapshot{}, err
	}
	return ws.Snapshot(), nil
}

// ClearSource deselects and deletes the primary source of kind.
func (a *App) ClearSource(ws *Workspace, kind domain.SourceKind) (Snapshot, error) {
	if err := ws.RemoveSource(kind, func() { a.discard(ws, string(kind)) }); err != nil {
		return Snapshot{}, err
	}
	return ws.Snapshot(), nil
}

// UploadVideo stores r as the opening or closing clip.
func (a *App) UploadVideo(ws *Workspace, tag domain.VideoTag, name string, r io.Reader) (Snapshot, error) {
	if ws.Analyzing() {
		return Snapshot{}, ErrAuditInProgress
	}
	staged, err := a.stage(ws, name, r)
	if err != nil {
		return Snapshot{}, err
	}
	err = ws.PlaceVideo(tag, func() (domain.UploadedFile, error) {
		return a.files.Commit(ws.ID(), string(tag), staged)
	})
	if err != nil {
		a.drop(ws, staged)
		return Snapshot{}, err
	}
	return ws.Snapshot(), nil
}

// ClearVideo removes the opening or closing clip.
func (a *App) ClearVideo(ws *Workspace, tag domain.VideoTag) (Snapshot, error) {
	if err := ws.RemoveVideo(tag, func() { a.discard(ws, string(tag)) }); err != nil {
		return Snapshot{}, err
	}
	return ws.Snapshot(), nil
}

func (a *App) stage(ws *Workspace, name string, r io.Reader) (storage.Staged, error) {
	if a.files == nil {
		return storage.Staged{}, fmt.Errorf("upload storage not configured")
	}
	return a.files.Stage(ws.ID(), name, r)
}

func (a *App) drop(ws *Workspace, staged storage.Staged) {
	if err := a.files.Discard(staged); err != nil {
		a.logger.Warn("discard staged upload failed", "workspace_id", ws.ID(), "err", err)
	}
}

func (a *App) discard(ws *Workspace, slot string) {
	if a.files == nil {
		return
	}
	if err := a.files.Remove(ws.ID(), slot); err != nil {
		a.logger.Warn("remove upload failed", "workspace_id", ws.ID(), "slot", slot, "err", err)
	}
}

func otherKind(kind domain.SourceKind) string {
	if kind == domain.SourceDocument {
		return string(domain.SourcePackage)
	}
	return string(domain.SourceDocument)
}

// RunAudit audits the workspace selection and activates the result. Any
// failure after the start leaves the workspace with the generic message.
func (a *App) RunAudit(ctx context.Context, ws *Workspace) (domain.AuditResult, error) {
	files, err := ws.StartAudit()
	if err != nil {
		return domain.AuditResult{}, err
	}
	result, err := a.run(ctx, ws.ID(), files, ws.SetProgress)
	if err != nil {
		ws.AuditFailed()
		util.LoggerFromContext(ctx).Error("audit failed", "workspace_id", ws.ID(), "err", err)
		return domain.AuditResult{}, err
	}
	ws.AuditSucceeded(result)
	return result, nil
}

// AuditFiles runs the pipeline outside any workspace (CLI).
func (a *App) AuditFiles(ctx context.Context, files domain.SourceSelection, progress extract.ProgressFunc) (domain.AuditResult, error) {
	if primary, _ := files.Primary(); primary == nil {
		return domain.AuditResult{}, audit.ErrNoPrimarySource
	}
	return a.run(ctx, "", files, progress)
}

// SendChat asks a follow-up question about the active report.
func (a *App) SendChat(ctx context.Context, ws *Workspace, message string) (domain.ChatTurn, []domain.ChatTurn, error) {
	chat, err := ws.Chat()
	if err != nil {
		return domain.ChatTurn{}, nil, err
	}
	reply, err := chat.Send(ctx, message)
	if err != nil {
		return domain.ChatTurn{}, nil, err
	}
	return reply, chat.Transcript(), nil
}

// SelectHistoryItem activates a recorded result by id.
func (a *App) SelectHistoryItem(ws *Workspace, id string) (Snapshot, error) {
	result, err := a.HistoryItem(id)
	if err != nil {
		return Snapshot{}, err
	}
	if err := ws.SelectHistoryItem(result); err != nil {
		return Snapshot{}, err
	}
	return ws.Snapshot(), nil
}

// History lists recorded results, newest first.
func (a *App) History() []domain.AuditResult {
	return a.history.List()
}

// HistoryItem returns one recorded result.
func (a *App) HistoryItem(id string) (domain.AuditResult, error) {
	result, err := a.history.Get(id)
	if errors.Is(err, history.ErrNotFound) {
		return domain.AuditResult{}, ErrReportNotFound
	}
	return result, err
}

// Reset clears the workspace and deletes its uploads.
func (a *App) Reset(ws *Workspace) (Snapshot, error) {
	if err := ws.Reset(); err != nil {
		return Snapshot{}, err
	}
	if a.files != nil {
		if err := a.files.Delete(ws.ID()); err != nil {
			a.logger.Warn("delete uploads failed", "workspace_id", ws.ID(), "err", err)
		}
	}
	return ws.Snapshot(), nil
}

// Sweep drops workspaces idle for longer than the configured TTL.
func (a *App) Sweep(now time.Time) int {
	if a.ttl <= 0 {
		return 0
	}
	var expired []*Workspace
	a.mu.Lock()
	for id, ws := range a.workspaces {
		if ws.Analyzing() || now.Sub(ws.IdleSince()) < a.ttl {
			continue
		}
		delete(a.workspaces, id)
		expired = append(expired, ws)
	}
	a.mu.Unlock()
	for _, ws := range expired {
		if a.files != nil {
			_ = a.files.Delete(ws.ID())
		}
	}
	if len(expired) > 0 {
		a.logger.Info("workspaces expired", "count", len(expired))
	}
	return len(expired)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (a *App) RunSweeper(ctx context.Context, interval time.Duration) {
	if a.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			a.Sweep(now)
		}
	}
}

// Close releases the event publisher.
func (a *App) Close() error {
	return a.events.Close()
}
