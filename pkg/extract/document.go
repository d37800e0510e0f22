package extract

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"smartaset/pkg/domain"
)

const (
	// MaxDocumentPages caps how many leading pages are sampled.
	MaxDocumentPages = 12
	// DocumentRenderDPI renders at 2x the 72 dpi page space.
	DocumentRenderDPI = 144
)

// DocumentContent is the sample taken from a slide document.
type DocumentContent struct {
	Images     []domain.ImagePart
	Text       string
	TotalPages int
	Scanned    int
}

type pageReader interface {
	NumPage() int
	PageText(n int) (string, error)
}

// DocumentExtractor renders and reads the leading pages of a PDF.
type DocumentExtractor struct {
	runner   CommandRunner
	pdftoppm string
	open     func(path string) (pageReader, func() error, error)
}

// NewDocumentExtractor uses pdftoppm (poppler-utils) for rasterizing pages.
func NewDocumentExtractor(runner CommandRunner, pdftoppmPath string) *DocumentExtractor {
	if runner == nil {
		runner = ExecRunner{}
	}
	if strings.TrimSpace(pdftoppmPath) == "" {
		pdftoppmPath = "pdftoppm"
	}
	return &DocumentExtractor{runner: runner, pdftoppm: pdftoppmPath, open: openPDF}
}

// Extract samples pages 1..min(total, 12) in order. Progress moves from 5 to 50.
func (e *DocumentExtractor) Extract(ctx context.Context, path string, progress ProgressFunc) (DocumentContent, error) {
	doc, closeFn, err := e.open(path)
	if err != nil {
		return DocumentContent{}, err
	}
	defer closeFn()

	total := doc.NumPage()
	if total <= 0 {
		return DocumentContent{}, fmt.Errorf("pdf has no pages")
	}
	pages := min(total, MaxDocumentPages)
	out := DocumentContent{
		Images:     make([]domain.ImagePart, 0, pages),
		TotalPages: total,
	}
	var text strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return DocumentContent{}, err
		}
		raster, err := e.renderPage(ctx, path, i)
		if err != nil {
			return DocumentContent{}, fmt.Errorf("render page %d: %w", i, err)
		}
		img, err := toJPEG(raster)
		if err != nil {
			return DocumentContent{}, fmt.Errorf("page %d: %w", i, err)
		}
		out.Images = append(out.Images, img)

		pageText, err := doc.PageText(i)
		if err != nil {
			// Keep the page image; text on broken content streams is optional.
			slog.Debug("pdf page text unavailable", "page", i, "err", err)
			pageText = ""
		}
		text.WriteString("[Halaman ")
		text.WriteString(strconv.Itoa(i))
		text.WriteString("]\n")
		text.WriteString(pageText)
		text.WriteString("\n\n")

		out.Scanned = i
		progress.report(5 + int(math.Round(float64(i)/float64(pages)*45)))
	}
	out.Text = text.String()
	return out, nil
}

func (e *DocumentExtractor) renderPage(ctx context.Context, path string, page int) ([]byte, error) {
	n := strconv.Itoa(page)
	return e.runner.Run(ctx, e.pdftoppm,
		"-r", strconv.Itoa(DocumentRenderDPI),
		"-png",
		"-f", n, "-l", n,
		"-singlefile",
		path, "-",
	)
}

type ledongthucDoc struct {
	reader *pdf.Reader
}

func openPDF(path string) (pageReader, func() error, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open pdf: %w", err)
	}
	return ledongthucDoc{reader: reader}, file.Close, nil
}

func (d ledongthucDoc) NumPage() int {
	return d.reader.NumPage()
}

func (d ledongthucDoc) PageText(n int) (text string, err error) {
	// The reader panics on some malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read page %d: %v", n, r)
		}
	}()
	page := d.reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	raw, err := page.GetPlainText(nil)
	if err != nil {
		return "", err
	}
	return normalizeText(raw), nil
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\x00", " ")
	text = strings.ToValidUTF8(text, "")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}
