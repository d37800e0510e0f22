package report

import (
	"embed"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"smartaset/pkg/audit"
	"smartaset/pkg/domain"
)

const (
	pageBottom   = 280.0
	marginLeft   = 20.0
	detailIndent = 25.0
)

// fontFamily names the embedded DejaVu Sans Condensed faces.
const fontFamily = "DejaVu"

//go:embed fonts/*.ttf
var fontFiles embed.FS

var fontStyles = []struct{ style, file string }{
	{"", "fonts/DejaVuSansCondensed.ttf"},
	{"B", "fonts/DejaVuSansCondensed-Bold.ttf"},
	{"I", "fonts/DejaVuSansCondensed-Oblique.ttf"},
}

type rgb struct{ r, g, b int }

var (
	brandGreen = rgb{5, 150, 105}
	ink        = rgb{15, 23, 42}
	muted      = rgb{100, 116, 139}
	slate      = rgb{71, 85, 105}
	body       = rgb{51, 65, 85}
	panel      = rgb{248, 250, 252}
	alert      = rgb{190, 18, 60}
	white      = rgb{255, 255, 255}
)

// PDFOptions tweak rendering; the zero value is what the server uses.
type PDFOptions struct {
	// Uncompressed leaves page streams readable, which tests rely on.
	Uncompressed bool
}

type pdfWriter struct {
	pdf *fpdf.Fpdf
	y   float64
}

// WritePDF renders r as an A4 report and writes it to w.
func WritePDF(w io.Writer, r domain.AuditResult, opts PDFOptions) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(!opts.Uncompressed)
	pdf.SetTitle("Laporan Analisis Aset - "+r.AssetName, true)
	pdf.SetCreator("SmartAset", true)
	for _, f := range fontStyles {
		b, err := fontFiles.ReadFile(f.file)
		if err != nil {
			return fmt.Errorf("load font: %w", err)
		}
		pdf.AddUTF8FontFromBytes(fontFamily, f.style, b)
	}
	pdf.AddPage()

	pw := &pdfWriter{pdf: pdf}
	pw.header(r)
	pw.summary(r)
	pw.criteria(r)
	pw.typos(r)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (p *pdfWriter) color(c rgb) { p.pdf.SetTextColor(c.r, c.g, c.b) }

// clean swaps runes outside the Basic Multilingual Plane, which the font
// width tables do not cover, for a visible placeholder.
func clean(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0xFFFF {
			return '?'
		}
		return r
	}, s)
}

func (p *pdfWriter) text(x, y float64, s string) { p.pdf.Text(x, y, clean(s)) }

func (p *pdfWriter) centered(cx, y float64, s string) {
	s = clean(s)
	p.pdf.Text(cx-p.pdf.GetStringWidth(s)/2, y, s)
}

// lines splits s to width and draws it line by line, breaking pages as needed.
// It returns the number of lines drawn.
func (p *pdfWriter) lines(x float64, s string, width, step float64) int {
	parts := p.pdf.SplitText(clean(s), width)
	for i, line := range parts {
		if i > 0 && p.y > pageBottom {
			p.newPage()
		}
		p.pdf.Text(x, p.y, line)
		if i < len(parts)-1 {
			p.y += step
		}
	}
	return len(parts)
}

func (p *pdfWriter) newPage() {
	p.pdf.AddPage()
	p.y = 25
}

func (p *pdfWriter) header(r domain.AuditResult) {
	pdf := p.pdf
	pdf.SetFillColor(brandGreen.r, brandGreen.g, brandGreen.b)
	pdf.Rect(0, 0, 210, 50, "F")
	p.color(white)
	pdf.SetFont(fontFamily, "B", 26)
	p.text(marginLeft, 32, "Laporan Analisis Aset")
	pdf.SetFont(fontFamily, "", 10)
	p.text(marginLeft, 42, "SmartAset v 1.0 • Standar Kemenkes CorpU Professional Analysis")

	p.y = 65
	p.color(ink)
	pdf.SetFont(fontFamily, "B", 18)
	p.text(marginLeft, p.y, r.AssetName)
	p.y += 10
	pdf.SetFont(fontFamily, "", 9)
	p.color(muted)
	p.text(marginLeft, p.y, fmt.Sprintf("ID Analisis: %s | Tanggal: %s", r.ID, FormatDate(r.Timestamp)))

	pdf.SetFillColor(panel.r, panel.g, panel.b)
	pdf.RoundedRect(160, 55, 35, 35, 5, "1234", "F")
	pdf.SetFont(fontFamily, "B", 8)
	p.color(slate)
	p.centered(177.5, 68, "SKOR AKHIR")
	pdf.SetFont(fontFamily, "B", 28)
	p.color(brandGreen)
	p.centered(177.5, 82, audit.FormatScore(r.OverallScore))
}

func (p *pdfWriter) summary(r domain.AuditResult) {
	p.y += 20
	p.color(ink)
	p.pdf.SetFont(fontFamily, "B", 12)
	p.text(marginLeft, p.y, "Ringkasan Analisis:")
	p.y += 7
	p.pdf.SetFont(fontFamily, "", 10)
	p.color(body)
	p.lines(marginLeft, r.Summary, 170, 6)
	p.y += 16
}

func (p *pdfWriter) criteria(r domain.AuditResult) {
	p.color(ink)
	p.pdf.SetFont(fontFamily, "B", 12)
	p.text(marginLeft, p.y, "Analisis Komprehensif Kriteria Standar:")
	p.y += 10

	for i, d := range r.Details {
		if p.y > 250 {
			p.newPage()
		}
		p.color(ink)
		p.pdf.SetFont(fontFamily, "B", 10)
		p.text(marginLeft, p.y, fmt.Sprintf("%d. %s [Status: %s]", i+1, d.Criterion, d.Status))
		p.y += 6

		p.pdf.SetFont(fontFamily, "", 9)
		p.color(slate)
		p.lines(detailIndent, "Temuan Mentor: "+d.Finding, 165, 5)
		p.y += 8

		p.color(brandGreen)
		p.pdf.SetFont(fontFamily, "I", 9)
		p.lines(detailIndent, "Usulan Perbaikan: "+d.Recommendation, 165, 5)
		p.y += 13
	}
}

func (p *pdfWriter) typos(r domain.AuditResult) {
	if len(r.TyposFound) == 0 {
		return
	}
	if p.y > 230 {
		p.newPage()
	}
	p.y += 5
	p.color(ink)
	p.pdf.SetFont(fontFamily, "B", 12)
	p.text(marginLeft, p.y, "Audit Tata Bahasa (KBBI & PUEBI):")
	p.y += 10
	p.pdf.SetFont(fontFamily, "", 9)
	p.color(alert)
	for _, t := range r.TyposFound {
		if p.y > 275 {
			p.newPage()
		}
		p.text(detailIndent, p.y, "[!] "+t)
		p.y += 6
	}
}
