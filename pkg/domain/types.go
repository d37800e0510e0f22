package domain

import (
	"fmt"
	"strings"
	"time"
)

type SourceKind string

const (
	SourceDocument SourceKind = "document"
	SourcePackage  SourceKind = "package"
)

// ParseSourceKind accepts the API spelling plus the legacy "pdf"/"scorm" aliases.
func ParseSourceKind(raw string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "document", "pdf":
		return SourceDocument, nil
	case "package", "scorm":
		return SourcePackage, nil
	default:
		return "", fmt.Errorf("unknown source kind %q", raw)
	}
}

type VideoTag string

const (
	VideoOpening VideoTag = "opening"
	VideoClosing VideoTag = "closing"
)

func ParseVideoTag(raw string) (VideoTag, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "opening":
		return VideoOpening, nil
	case "closing":
		return VideoClosing, nil
	default:
		return "", fmt.Errorf("unknown video tag %q", raw)
	}
}

type Status string

const (
	StatusPass    Status = "PASS"
	StatusFail    Status = "FAIL"
	StatusWarning Status = "WARNING"
)

// ParseStatus normalizes case and rejects anything outside PASS/FAIL/WARNING.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case StatusPass, StatusFail, StatusWarning:
		return s, nil
	default:
		return "", fmt.Errorf("unknown status %q", raw)
	}
}

type View string

const (
	ViewHome      View = "home"
	ViewReport    View = "report"
	ViewHistory   View = "history"
	ViewGuideline View = "guideline"
)

func ParseView(raw string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(raw)))
	switch v {
	case ViewHome, ViewReport, ViewHistory, ViewGuideline:
		return v, nil
	default:
		return "", fmt.Errorf("unknown view %q", raw)
	}
}

// UploadedFile is a user-selected file persisted on local disk.
type UploadedFile struct {
	Name       string    `json:"name"`
	Path       string    `json:"-"`
	SizeBytes  int64     `json:"sizeBytes"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// SourceSelection holds at most one primary source plus optional videos.
type SourceSelection struct {
	Document     *UploadedFile `json:"document,omitempty"`
	Package      *UploadedFile `json:"package,omitempty"`
	VideoOpening *UploadedFile `json:"videoOpening,omitempty"`
	VideoClosing *UploadedFile `json:"videoClosing,omitempty"`
}

// Primary returns the active primary source and its kind.
func (s SourceSelection) Primary() (*UploadedFile, SourceKind) {
	if s.Document != nil {
		return s.Document, SourceDocument
	}
	if s.Package != nil {
		return s.Package, SourcePackage
	}
	return nil, ""
}

type ImagePart struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// ExtractedContent is everything pulled from the selected files for one audit call.
type ExtractedContent struct {
	Images        []ImagePart
	Text          string
	OpeningFrames []ImagePart
	ClosingFrames []ImagePart
}

type VideoAudit struct {
	OpeningValid bool `json:"openingValid"`
	ClosingValid bool `json:"closingValid"`
	DurationOK   bool `json:"durationOk"`
}

type EvaluationDetail struct {
	Criterion      string `json:"criterion"`
	Status         Status `json:"status"`
	Finding        string `json:"finding"`
	Recommendation string `json:"recommendation"`
}

// AuditResult is a complete evaluation report. ID and Timestamp are always
// assigned locally, never taken from model output.
type AuditResult struct {
	ID               string             `json:"id"`
	Timestamp        time.Time          `json:"timestamp"`
	AssetName        string             `json:"assetName"`
	OverallScore     float64            `json:"overallScore"`
	LogoDetected     bool               `json:"logoDetected"`
	UserGuidePresent bool               `json:"userGuidePresent"`
	VideoAudit       VideoAudit         `json:"videoAudit"`
	TyposFound       []string           `json:"typosFound"`
	Details          []EvaluationDetail `json:"details"`
	Summary          string             `json:"summary"`
}

type ChatRole string

const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

type ChatTurn struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}
