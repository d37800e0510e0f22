package app

import (
	"sync"
	"time"

	"smartaset/pkg/audit"
	"smartaset/pkg/domain"
)

// ChatFactory opens a follow-up conversation for a report.
type ChatFactory func(report domain.AuditResult) *audit.ChatSession

// Workspace is one reviewer session. All state changes go through the named
// transitions below; readers get copies via Snapshot.
type Workspace struct {
	id      string
	newChat ChatFactory
	now     func() time.Time

	mu        sync.Mutex
	view      domain.View
	files     domain.SourceSelection
	analyzing bool
	report    *domain.AuditResult
	errMsg    string
	progress  int
	chat      *audit.ChatSession
	lastSeen  time.Time
}

// Snapshot is the read model of a workspace.
type Snapshot struct {
	ID           string                 `json:"workspaceId"`
	View         domain.View            `json:"view"`
	Files        domain.SourceSelection `json:"files"`
	ActiveSource domain.SourceKind      `json:"activeSource,omitempty"`
	IsAnalyzing  bool                   `json:"isAnalyzing"`
	Progress     int                    `json:"progress"`
	Error        string                 `json:"error,omitempty"`
	Report       *domain.AuditResult    `json:"report,omitempty"`
	Chat         []domain.ChatTurn      `json:"chat"`
}

// NewWorkspace starts on the home view with nothing selected.
func NewWorkspace(id string, newChat ChatFactory) *Workspace {
	w := &Workspace{id: id, newChat: newChat, now: time.Now, view: domain.ViewHome}
	w.lastSeen = w.now()
	return w
}

func (w *Workspace) ID() string { return w.id }

func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	s := Snapshot{
		ID:          w.id,
		View:        w.view,
		Files:       w.files,
		IsAnalyzing: w.analyzing,
		Progress:    w.progress,
		Error:       w.errMsg,
		Chat:        []domain.ChatTurn{},
	}
	_, s.ActiveSource = w.files.Primary()
	if w.report != nil {
		r := *w.report
		s.Report = &r
	}
	chat := w.chat
	w.mu.Unlock()

	// The transcript is read outside w.mu; a chat call may be in flight.
	if chat != nil {
		s.Chat = chat.Transcript()
	}
	return s
}

// Analyzing reports whether an audit is running.
func (w *Workspace) Analyzing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.analyzing
}

// SelectSource makes file the primary source. The other primary kind is
// cleared and returned so its upload can be discarded.
func (w *Workspace) SelectSource(kind domain.SourceKind, file domain.UploadedFile) (*domain.UploadedFile, error) {
	return w.PlaceSource(kind, func() (domain.UploadedFile, error) { return file, nil })
}

// PlaceSource runs place under the workspace lock and selects the file it
// returns. place is where the upload is moved into its slot on disk, so a
// slot never changes underneath a running audit.
func (w *Workspace) PlaceSource(kind domain.SourceKind, place func() (domain.UploadedFile, error)) (*domain.UploadedFile, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.analyzing {
		return nil, ErrAuditInProgress
	}
	file, err := place()
	if err != nil {
		return nil, err
	}
	w.touch()
	var displaced *domain.UploadedFile
	switch kind {
	case domain.SourceDocument:
		displaced, w.files.Package = w.files.Package, nil
		w.files.Document = &file
	case domain.SourcePackage:
		displaced, w.files.Document = w.files.Document, nil
		w.files.Package = &file
	}
	w.errMsg = ""
	return displaced, nil
}

// ClearSource deselects the primary source of kind.
func (w *Workspace) ClearSource(kind domain.SourceKind) error {
	return w.RemoveSource(kind, nil)
}

// RemoveSource deselects the primary source of kind and, when remove is set,
// runs it before releasing the lock.
func (w *Workspace) RemoveSource(kind domain.SourceKind, remove func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.analyzing {
		return ErrAuditInProgress
	}
	w.touch()
	switch kind {
	case domain.SourceDocument:
		w.files.Document = nil
	case domain.SourcePackage:
		w.files.Package = nil
	}
	w.errMsg = ""
	if remove != nil {
		remove()
	}
	return nil
}

// SetVideo sets or, with a nil file, clears one of the optional clips.
func (w *Workspace) SetVideo(tag domain.VideoTag, file *domain.UploadedFile) error {
	return w.updateVideo(tag, func() (*domain.UploadedFile, error) { return file, nil })
}

// PlaceVideo is PlaceSource for the optional clips.
func (w *Workspace) PlaceVideo(tag domain.VideoTag, place func() (domain.UploadedFile, error)) error {
	return w.updateVideo(tag, func() (*domain.UploadedFile, error) {
		file, err := place()
		if err != nil {
			return nil, err
		}
		return &file, nil
	})
}

// RemoveVideo clears a clip and runs remove under the lock.
func (w *Workspace) RemoveVideo(tag domain.VideoTag, remove func()) error {
	return w.updateVideo(tag, func() (*domain.UploadedFile, error) {
		if remove != nil {
			remove()
		}
		return nil, nil
	})
}

func (w *Workspace) updateVideo(tag domain.VideoTag, next func() (*domain.UploadedFile, error)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.analyzing {
		return ErrAuditInProgress
	}
	file, err := next()
	if err != nil {
		return err
	}
	w.touch()
	switch tag {
	case domain.VideoOpening:
		w.files.VideoOpening = file
	case domain.VideoClosing:
		w.files.VideoClosing = file
	}
	return nil
}

// StartAudit enters the analyzing state and returns the selection to audit.
// Without a primary source the workspace shows the validation message.
func (w *Workspace) StartAudit() (domain.SourceSelection, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()
	if w.analyzing {
		return domain.SourceSelection{}, ErrAuditInProgress
	}
	if primary, _ := w.files.Primary(); primary == nil {
		w.errMsg = audit.MessageNoSource
		return domain.SourceSelection{}, audit.ErrNoPrimarySource
	}
	w.analyzing = true
	w.progress = 5
	w.errMsg = ""
	return w.files, nil
}

// SetProgress raises the progress of a running audit. It never goes backwards
// and stays below 100 until the audit succeeds.
func (w *Workspace) SetProgress(percent int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.analyzing {
		return
	}
	percent = min(percent, 99)
	if percent > w.progress {
		w.progress = percent
	}
}

// AuditSucceeded activates result, opens a fresh chat and shows the report.
func (w *Workspace) AuditSucceeded(result domain.AuditResult) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()
	w.analyzing = false
	w.progress = 100
	w.errMsg = ""
	w.activate(result)
}

// AuditFailed leaves the analyzing state with the generic failure message.
func (w *Workspace) AuditFailed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()
	w.analyzing = false
	w.errMsg = audit.MessageAuditFailed
}

// SelectHistoryItem shows a previously recorded result.
func (w *Workspace) SelectHistoryItem(result domain.AuditResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.analyzing {
		return ErrAuditInProgress
	}
	w.touch()
	w.activate(result)
	return nil
}

// Reset returns to the home view with no files, report or chat.
func (w *Workspace) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.analyzing {
		return ErrAuditInProgress
	}
	w.touch()
	w.view = domain.ViewHome
	w.files = domain.SourceSelection{}
	w.report = nil
	w.chat = nil
	w.errMsg = ""
	w.progress = 0
	return nil
}

// Navigate switches the visible view. The report view needs an active report.
func (w *Workspace) Navigate(view domain.View) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()
	if view == domain.ViewReport && w.report == nil {
		return ErrNoActiveReport
	}
	w.view = view
	return nil
}

// Report returns the active report.
func (w *Workspace) Report() (domain.AuditResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.report == nil {
		return domain.AuditResult{}, ErrNoActiveReport
	}
	return *w.report, nil
}

// Chat returns the conversation bound to the active report.
func (w *Workspace) Chat() (*audit.ChatSession, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.chat == nil {
		return nil, ErrNoActiveReport
	}
	return w.chat, nil
}

// IdleSince reports the last time the workspace was used.
func (w *Workspace) IdleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

func (w *Workspace) touch() { w.lastSeen = w.now() }

// activate must be called with mu held. The previous transcript is dropped.
func (w *Workspace) activate(result domain.AuditResult) {
	w.report = &result
	w.view = domain.ViewReport
	w.chat = nil
	if w.newChat != nil {
		w.chat = w.newChat(result)
	}
}
