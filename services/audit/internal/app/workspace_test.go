package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartaset/pkg/ai"
	"smartaset/pkg/audit"
	"smartaset/pkg/domain"
)

func file(name string) domain.UploadedFile {
	return domain.UploadedFile{Name: name, Path: "/tmp/" + name, SizeBytes: 1}
}

func TestWorkspaceSelectSourceIsExclusive(t *testing.T) {
	ws := NewWorkspace("ws", nil)
	if displaced, err := ws.SelectSource(domain.SourceDocument, file("a.pdf")); err != nil || displaced != nil {
		t.Fatalf("first select: displaced=%v err=%v", displaced, err)
	}
	displaced, err := ws.SelectSource(domain.SourcePackage, file("b.zip"))
	if err != nil {
		t.Fatalf("select package: %v", err)
	}
	if displaced == nil || displaced.Name != "a.pdf" {
		t.Fatalf("displaced = %+v, want the document", displaced)
	}
	snap := ws.Snapshot()
	if snap.Files.Document != nil || snap.Files.Package.Name != "b.zip" {
		t.Fatalf("files = %+v", snap.Files)
	}
}

func TestWorkspaceAuditLifecycle(t *testing.T) {
	ws := NewWorkspace("ws", nil)
	if _, err := ws.StartAudit(); !errors.Is(err, audit.ErrNoPrimarySource) {
		t.Fatalf("err = %v, want ErrNoPrimarySource", err)
	}
	if got := ws.Snapshot().Error; got != audit.MessageNoSource {
		t.Fatalf("error = %q", got)
	}

	_, _ = ws.SelectSource(domain.SourceDocument, file("a.pdf"))
	if ws.Snapshot().Error != "" {
		t.Fatalf("selecting a source clears the error")
	}
	_ = ws.SetVideo(domain.VideoOpening, &domain.UploadedFile{Name: "o.mp4"})
	files, err := ws.StartAudit()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if files.Document == nil || files.VideoOpening == nil {
		t.Fatalf("start returned %+v", files)
	}
	if _, err := ws.StartAudit(); !errors.Is(err, ErrAuditInProgress) {
		t.Fatalf("double start: err = %v", err)
	}
	if _, err := ws.SelectSource(domain.SourcePackage, file("b.zip")); !errors.Is(err, ErrAuditInProgress) {
		t.Fatalf("selection during audit: err = %v", err)
	}

	ws.SetProgress(40)
	ws.SetProgress(20)
	if got := ws.Snapshot().Progress; got != 40 {
		t.Fatalf("progress = %d, want 40 (monotonic)", got)
	}
	ws.SetProgress(100)
	if got := ws.Snapshot().Progress; got != 99 {
		t.Fatalf("progress = %d, want 99 before success", got)
	}

	ws.AuditFailed()
	snap := ws.Snapshot()
	if snap.IsAnalyzing || snap.Error != audit.MessageAuditFailed {
		t.Fatalf("after failure = %+v", snap)
	}
	ws.SetProgress(80)
	if ws.Snapshot().Progress != 99 {
		t.Fatalf("progress must not move while idle")
	}

	if _, err := ws.StartAudit(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if snap := ws.Snapshot(); snap.Progress != 5 || snap.Error != "" {
		t.Fatalf("restart snapshot = %+v", snap)
	}
	ws.AuditSucceeded(domain.AuditResult{ID: "r1"})
	snap = ws.Snapshot()
	if snap.IsAnalyzing || snap.Progress != 100 || snap.View != domain.ViewReport || snap.Report.ID != "r1" {
		t.Fatalf("after success = %+v", snap)
	}
}

func TestWorkspaceNavigate(t *testing.T) {
	ws := NewWorkspace("ws", nil)
	if err := ws.Navigate(domain.ViewReport); !errors.Is(err, ErrNoActiveReport) {
		t.Fatalf("err = %v, want ErrNoActiveReport", err)
	}
	if err := ws.Navigate(domain.ViewGuideline); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if ws.Snapshot().View != domain.ViewGuideline {
		t.Fatalf("view not switched")
	}
	if err := ws.SelectHistoryItem(domain.AuditResult{ID: "old"}); err != nil {
		t.Fatalf("select history: %v", err)
	}
	if err := ws.Navigate(domain.ViewHistory); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if err := ws.Navigate(domain.ViewReport); err != nil {
		t.Fatalf("report view with active report: %v", err)
	}
	if _, err := ws.Chat(); !errors.Is(err, ErrNoActiveReport) {
		t.Fatalf("no chat factory means no chat: err = %v", err)
	}
}

func TestWorkspaceResetKeepsNothing(t *testing.T) {
	ws := NewWorkspace("ws", nil)
	_, _ = ws.SelectSource(domain.SourceDocument, file("a.pdf"))
	_ = ws.SelectHistoryItem(domain.AuditResult{ID: "old"})
	if err := ws.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	snap := ws.Snapshot()
	if snap.View != domain.ViewHome || snap.Report != nil || snap.ActiveSource != "" {
		t.Fatalf("after reset = %+v", snap)
	}
	if _, err := ws.Report(); !errors.Is(err, ErrNoActiveReport) {
		t.Fatalf("err = %v", err)
	}
}

type gatedGenerator struct {
	started chan struct{}
	release chan struct{}
}

func (g *gatedGenerator) Generate(ctx context.Context, _ ai.Request) (string, error) {
	close(g.started)
	select {
	case <-g.release:
		return "Sudah lengkap.", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestWorkspaceStaysResponsiveDuringChat(t *testing.T) {
	gen := &gatedGenerator{started: make(chan struct{}), release: make(chan struct{})}
	ws := NewWorkspace("ws", func(r domain.AuditResult) *audit.ChatSession {
		return audit.NewChatSession(gen, r, nil)
	})
	ws.AuditSucceeded(domain.AuditResult{ID: "r1", AssetName: "a.pdf"})
	chat, err := ws.Chat()
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	sent := make(chan domain.ChatTurn, 1)
	go func() {
		turn, _ := chat.Send(context.Background(), "Apa yang kurang?")
		sent <- turn
	}()
	<-gen.started

	done := make(chan Snapshot, 1)
	go func() {
		snap := ws.Snapshot()
		_ = ws.Navigate(domain.ViewHistory)
		done <- snap
	}()
	select {
	case snap := <-done:
		if len(snap.Chat) != 1 || snap.Chat[0].Role != domain.RoleUser {
			t.Fatalf("chat during call = %+v, want the pending user turn", snap.Chat)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("snapshot and navigate blocked behind an outstanding chat call")
	}

	close(gen.release)
	if turn := <-sent; turn.Text != "Sudah lengkap." {
		t.Fatalf("reply = %q", turn.Text)
	}
	if got := ws.Snapshot().Chat; len(got) != 2 {
		t.Fatalf("transcript = %+v, want 2 turns", got)
	}
}

func TestWorkspacePlaceSkipsDiskWorkWhileAnalyzing(t *testing.T) {
	ws := NewWorkspace("w", nil)
	_, _ = ws.SelectSource(domain.SourceDocument, file("a.pdf"))
	if _, err := ws.StartAudit(); err != nil {
		t.Fatalf("start: %v", err)
	}
	called := false
	place := func() (domain.UploadedFile, error) {
		called = true
		return file("b.pdf"), nil
	}
	if _, err := ws.PlaceSource(domain.SourceDocument, place); !errors.Is(err, ErrAuditInProgress) {
		t.Fatalf("place source: err = %v", err)
	}
	if err := ws.PlaceVideo(domain.VideoClosing, place); !errors.Is(err, ErrAuditInProgress) {
		t.Fatalf("place video: err = %v", err)
	}
	if err := ws.RemoveSource(domain.SourceDocument, func() { called = true }); !errors.Is(err, ErrAuditInProgress) {
		t.Fatalf("remove source: err = %v", err)
	}
	if called {
		t.Fatalf("slot callbacks must not run during an audit")
	}
	if got := ws.Snapshot().Files.Document; got == nil || got.Name != "a.pdf" {
		t.Fatalf("document = %+v", got)
	}
}

func TestWorkspacePlaceErrorKeepsSelection(t *testing.T) {
	ws := NewWorkspace("w", nil)
	_, _ = ws.SelectSource(domain.SourcePackage, file("p.zip"))
	boom := errors.New("rename failed")
	_, err := ws.PlaceSource(domain.SourceDocument, func() (domain.UploadedFile, error) {
		return domain.UploadedFile{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	snap := ws.Snapshot()
	if snap.Files.Package == nil || snap.Files.Document != nil {
		t.Fatalf("files = %+v", snap.Files)
	}
}
