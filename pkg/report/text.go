package report

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"smartaset/pkg/audit"
	"smartaset/pkg/domain"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// FormatDate renders a timestamp the way Indonesian locales print date-times.
func FormatDate(t time.Time) string {
	return t.Local().Format("2/1/2006, 15.04.05")
}

// TextFilename is the download name for the plain-text export.
func TextFilename(r domain.AuditResult) string {
	return "Laporan_Analisis_PTP_" + whitespaceRun.ReplaceAllString(r.AssetName, "_") + ".txt"
}

// PDFFilename is the download name for the PDF export.
func PDFFilename(r domain.AuditResult) string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(r.AssetName)
	return "Laporan_Analisis_SmartAset_" + name + ".pdf"
}

// RenderText returns the plain-text export. Sections always appear in the
// same order and every detail is listed exactly once.
func RenderText(r domain.AuditResult) string {
	var b strings.Builder
	b.WriteString("HASIL ANALISIS PROFESIONAL SMARTASET v 1.0\n")
	b.WriteString("STANDAR PENILAIAN PTP KEMENKES CORPU\n")
	b.WriteString("==================================================\n\n")
	fmt.Fprintf(&b, "NAMA ASET      : %s\n", r.AssetName)
	fmt.Fprintf(&b, "SKOR AKHIR     : %s/100\n", audit.FormatScore(r.OverallScore))
	fmt.Fprintf(&b, "TANGGAL ANALISIS  : %s\n\n", FormatDate(r.Timestamp))

	b.WriteString("RINGKASAN ANALISIS MENTOR AI:\n")
	b.WriteString("---------------------------\n")
	b.WriteString(r.Summary)
	b.WriteString("\n\n")

	b.WriteString("DETAIL ANALISIS VIDEO:\n")
	b.WriteString("-------------------\n")
	fmt.Fprintf(&b, "- Validasi Video Opening: %s\n", pick(r.VideoAudit.OpeningValid, "MEMENUHI SYARAT", "PERLU PERBAIKAN NASKAH"))
	fmt.Fprintf(&b, "- Validasi Video Closing: %s\n", pick(r.VideoAudit.ClosingValid, "MEMENUHI SYARAT", "LAYAR PENUTUP TIDAK LENGKAP"))
	fmt.Fprintf(&b, "- Standarisasi Durasi   : %s\n\n", pick(r.VideoAudit.DurationOK, "SESUAI PEDOMAN (<60 DETIK)", "TERLALU LAMA (EFEKTIVITAS RENDAH)"))

	b.WriteString("TEMUAN BERDASARKAN KRITERIA PEDOMAN:\n")
	b.WriteString("------------------------------------\n")
	for i, d := range r.Details {
		fmt.Fprintf(&b, "%d. [%s]\n", i+1, strings.ToUpper(d.Criterion))
		fmt.Fprintf(&b, "   Status      : %s\n", d.Status)
		fmt.Fprintf(&b, "   Temuan      : %s\n", d.Finding)
		fmt.Fprintf(&b, "   Rekomendasi : %s\n\n", d.Recommendation)
	}

	if len(r.TyposFound) > 0 {
		b.WriteString("DAFTAR AUDIT TATA BAHASA (KBBI/PUEBI):\n")
		b.WriteString("--------------------------------------\n")
		for _, t := range r.TyposFound {
			fmt.Fprintf(&b, "[!] %s\n", t)
		}
	}
	return b.String()
}

// WriteText writes the plain-text export to w.
func WriteText(w io.Writer, r domain.AuditResult) error {
	_, err := io.WriteString(w, RenderText(r))
	return err
}

func pick(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
