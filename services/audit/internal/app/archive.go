package app

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"smartaset/pkg/domain"
	"smartaset/pkg/report"
)

// ArchiveLinkTTL is how long archived report links stay valid.
const ArchiveLinkTTL = 24 * time.Hour

// ArchivedReport points at both exports in object storage.
type ArchivedReport struct {
	AuditID   string    `json:"auditId"`
	TextURL   string    `json:"textUrl"`
	PDFURL    string    `json:"pdfUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ArchiveReport uploads the text and PDF exports of the active report and
// returns presigned download links.
func (a *App) ArchiveReport(ctx context.Context, ws *Workspace) (ArchivedReport, error) {
	if a.archive == nil {
		return ArchivedReport{}, ErrArchiveDisabled
	}
	result, err := ws.Report()
	if err != nil {
		return ArchivedReport{}, err
	}

	text := []byte(report.RenderText(result))
	var pdf bytes.Buffer
	if err := report.WritePDF(&pdf, result, report.PDFOptions{}); err != nil {
		return ArchivedReport{}, err
	}

	textKey := archiveKey(result, report.TextFilename(result))
	pdfKey := archiveKey(result, report.PDFFilename(result))
	if err := a.archive.Put(ctx, textKey, bytes.NewReader(text), int64(len(text)), "text/plain; charset=utf-8"); err != nil {
		return ArchivedReport{}, err
	}
	if err := a.archive.Put(ctx, pdfKey, bytes.NewReader(pdf.Bytes()), int64(pdf.Len()), "application/pdf"); err != nil {
		return ArchivedReport{}, err
	}

	out := ArchivedReport{AuditID: result.ID, ExpiresAt: time.Now().Add(ArchiveLinkTTL)}
	if out.TextURL, err = a.archive.PresignGet(ctx, textKey, ArchiveLinkTTL); err != nil {
		return ArchivedReport{}, err
	}
	if out.PDFURL, err = a.archive.PresignGet(ctx, pdfKey, ArchiveLinkTTL); err != nil {
		return ArchivedReport{}, err
	}
	a.logger.Info("report archived", "audit_id", result.ID, "pdf_bytes", pdf.Len(), "text_bytes", len(text))
	return out, nil
}

func archiveKey(result domain.AuditResult, filename string) string {
	return fmt.Sprintf("reports/%s/%s", result.ID, filename)
}
