package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"smartaset/internal/ratelimit"
	"smartaset/internal/sessiontoken"
	"smartaset/internal/util"
	"smartaset/pkg/audit"
	"smartaset/pkg/domain"
	"smartaset/pkg/report"
	"smartaset/pkg/storage"
	"smartaset/services/audit/internal/app"
)

// auditWriteTimeout replaces the server-wide write deadline for audit requests,
// which wait on extraction and the model call.
const auditWriteTimeout = 5 * time.Minute

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Tokens         *sessiontoken.Manager
	Limiter        ratelimit.Limiter
	TrustedProxies util.TrustedProxies
	CORSOrigins    []string
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Server exposes the workspace API.
type Server struct {
	app            *app.App
	tokens         *sessiontoken.Manager
	limiter        ratelimit.Limiter
	trusted        util.TrustedProxies
	corsOrigins    []string
	maxUploadBytes int64
	logger         *slog.Logger
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("token manager is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		app:            cfg.App,
		tokens:         cfg.Tokens,
		limiter:        cfg.Limiter,
		trusted:        cfg.TrustedProxies,
		corsOrigins:    cfg.CORSOrigins,
		maxUploadBytes: cfg.MaxUploadBytes,
		logger:         logger,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.corsOrigins, s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/guidelines", s.handleGuidelines)
	s.mux.HandleFunc("/workspaces", s.handleCreateWorkspace)

	s.mux.Handle("/workspace", s.withWorkspace(s.handleWorkspace))
	s.mux.Handle("/workspace/sources/", s.withWorkspace(s.handleSource))
	s.mux.Handle("/workspace/videos/", s.withWorkspace(s.handleVideo))
	s.mux.Handle("/workspace/audits", s.withWorkspace(s.handleAudit))
	s.mux.Handle("/workspace/chat", s.withWorkspace(s.handleChat))
	s.mux.Handle("/workspace/report.txt", s.withWorkspace(s.handleReportText))
	s.mux.Handle("/workspace/report.pdf", s.withWorkspace(s.handleReportPDF))
	s.mux.Handle("/workspace/report/archive", s.withWorkspace(s.handleArchive))
	s.mux.Handle("/workspace/history/", s.withWorkspace(s.handleSelectHistory))
	s.mux.Handle("/workspace/reset", s.withWorkspace(s.handleReset))
	s.mux.Handle("/workspace/view", s.withWorkspace(s.handleView))
	s.mux.Handle("/history", s.withWorkspace(s.handleHistory))
	s.mux.Handle("/history/", s.withWorkspace(s.handleHistoryItem))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGuidelines(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, audit.Reference())
}

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	ws := s.app.CreateWorkspace()
	token, err := s.tokens.Issue(ws.ID())
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("issue workspace token failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"workspaceId": ws.ID(),
		"token":       token,
		"expiresIn":   int(s.tokens.TTL().Seconds()),
		"workspace":   ws.Snapshot(),
	})
}

type workspaceHandler func(http.ResponseWriter, *http.Request, *app.Workspace)

func (s *Server) withWorkspace(next workspaceHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := sessiontoken.BearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		id, err := s.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ws, err := s.app.Workspace(id)
		if err != nil {
			writeError(w, http.StatusNotFound, "workspace expired")
			return
		}
		ctx := util.ContextWithLogger(r.Context(), util.LoggerFromContext(r.Context()).With("workspace_id", id))
		next(w, r.WithContext(ctx), ws)
	})
}

func (s *Server) handleWorkspace(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, ws.Snapshot())
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	kind, err := domain.ParseSourceKind(strings.TrimPrefix(r.URL.Path, "/workspace/sources/"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPut:
		up, ok := s.readUpload(w, r)
		if !ok {
			return
		}
		defer up.body.Close()
		if !allowedSource(kind, up.name) {
			writeError(w, http.StatusBadRequest, "unsupported file type")
			return
		}
		snap, err := s.app.UploadSource(ws, kind, up.name, up.body)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	case http.MethodDelete:
		snap, err := s.app.ClearSource(ws, kind)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	tag, err := domain.ParseVideoTag(strings.TrimPrefix(r.URL.Path, "/workspace/videos/"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPut:
		up, ok := s.readUpload(w, r)
		if !ok {
			return
		}
		defer up.body.Close()
		if !allowedVideo(up.name, up.contentType) {
			writeError(w, http.StatusBadRequest, "unsupported file type")
			return
		}
		snap, err := s.app.UploadVideo(ws, tag, up.name, up.body)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	case http.MethodDelete:
		snap, err := s.app.ClearVideo(ws, tag)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.limiter != nil {
		ok, retry := s.limiter.Allow(r.Context(), ws.ID()+":"+util.ClientIP(r, s.trusted))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds()+0.999)))
			writeError(w, http.StatusTooManyRequests, "too many audits, try again later")
			return
		}
	}
	_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(auditWriteTimeout))
	if _, err := s.app.RunAudit(r.Context(), ws); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.Snapshot())
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"transcript": ws.Snapshot().Chat})
	case http.MethodPost:
		var req chatRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		reply, transcript, err := s.app.SendChat(r.Context(), ws, req.Message)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reply": reply, "transcript": transcript})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleReportText(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	result, err := ws.Report()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeAttachment(w, "text/plain; charset=utf-8", report.TextFilename(result), []byte(report.RenderText(result)))
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	result, err := ws.Report()
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WritePDF(&buf, result, report.PDFOptions{}); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeAttachment(w, "application/pdf", report.PDFFilename(result), buf.Bytes())
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	archived, err := s.app.ArchiveReport(r.Context(), ws)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, archived)
}

func (s *Server) handleSelectHistory(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/workspace/history/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	snap, err := s.app.SelectHistoryItem(ws, id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	snap, err := s.app.Reset(ws)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type viewRequest struct {
	View string `json:"view"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request, ws *app.Workspace) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req viewRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	view, err := domain.ParseView(req.View)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := ws.Navigate(view); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ws.Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, _ *app.Workspace) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	items := s.app.History()
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) handleHistoryItem(w http.ResponseWriter, r *http.Request, _ *app.Workspace) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	result, err := s.app.HistoryItem(strings.TrimPrefix(r.URL.Path, "/history/"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type upload struct {
	name        string
	contentType string
	body        io.ReadCloser
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (upload, bool) {
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+1<<20)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return upload{}, false
		}
		writeError(w, http.StatusBadRequest, "invalid form data")
		return upload{}, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return upload{}, false
	}
	return upload{name: header.Filename, contentType: header.Header.Get("Content-Type"), body: file}, true
}

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, audit.ErrNoPrimarySource):
		writeError(w, http.StatusBadRequest, audit.MessageNoSource)
	case errors.Is(err, audit.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrAuditInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrNoActiveReport), errors.Is(err, app.ErrReportNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrArchiveDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, storage.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
	case errors.Is(err, audit.ErrExtraction), errors.Is(err, audit.ErrModelCall), errors.Is(err, audit.ErrMalformedResponse):
		writeError(w, http.StatusUnprocessableEntity, audit.MessageAuditFailed)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":     "internal error",
			"requestId": util.RequestIDFromContext(r.Context()),
		})
	}
}

func allowedSource(kind domain.SourceKind, name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	switch kind {
	case domain.SourceDocument:
		return ext == ".pdf"
	case domain.SourcePackage:
		return ext == ".zip"
	}
	return false
}

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".m4v": {}, ".mov": {}, ".webm": {}, ".mkv": {}, ".avi": {}, ".mpeg": {}, ".mpg": {},
}

// allowedVideo accepts any video/* part, or a known extension when the client
// sent a generic content type.
func allowedVideo(name, contentType string) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasPrefix(mediaType, "video/") {
		return true
	}
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
