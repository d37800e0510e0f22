package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"smartaset/pkg/audit"
	"smartaset/pkg/domain"
)

var (
	brand     = lipgloss.Color("#059669")
	mutedInk  = lipgloss.Color("#64748B")
	alertInk  = lipgloss.Color("#BE123C")
	warnInk   = lipgloss.Color("#B45309")
	titleText = lipgloss.NewStyle().Bold(true).Foreground(brand)
	labelText = lipgloss.NewStyle().Bold(true)
	mutedText = lipgloss.NewStyle().Foreground(mutedInk)
	scoreBox  = lipgloss.NewStyle().
			Bold(true).
			Foreground(brand).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(brand).
			Padding(0, 2)
)

func statusStyle(s domain.Status) lipgloss.Style {
	switch s {
	case domain.StatusPass:
		return lipgloss.NewStyle().Bold(true).Foreground(brand)
	case domain.StatusFail:
		return lipgloss.NewStyle().Bold(true).Foreground(alertInk)
	default:
		return lipgloss.NewStyle().Bold(true).Foreground(warnInk)
	}
}

func check(ok bool) string {
	if ok {
		return statusStyle(domain.StatusPass).Render("ya")
	}
	return statusStyle(domain.StatusFail).Render("tidak")
}

// printResult renders the report summary for a terminal.
func printResult(w io.Writer, r domain.AuditResult) {
	fmt.Fprintln(w, titleText.Render(r.AssetName))
	fmt.Fprintln(w, mutedText.Render(fmt.Sprintf("ID %s • %s", r.ID, humanize.Time(r.Timestamp))))
	fmt.Fprintln(w, scoreBox.Render(audit.FormatScore(r.OverallScore)+"/100"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, r.Summary)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s   %s %s\n", labelText.Render("Logo:"), check(r.LogoDetected), labelText.Render("Petunjuk:"), check(r.UserGuidePresent))
	fmt.Fprintf(w, "%s %s   %s %s   %s %s\n",
		labelText.Render("Opening:"), check(r.VideoAudit.OpeningValid),
		labelText.Render("Closing:"), check(r.VideoAudit.ClosingValid),
		labelText.Render("Durasi:"), check(r.VideoAudit.DurationOK))
	fmt.Fprintln(w)
	for i, d := range r.Details {
		fmt.Fprintf(w, "%2d. %-8s %s\n", i+1, statusStyle(d.Status).Render(string(d.Status)), labelText.Render(d.Criterion))
		fmt.Fprintf(w, "    %s\n", d.Finding)
		fmt.Fprintf(w, "    %s\n", mutedText.Render("→ "+d.Recommendation))
	}
	if len(r.TyposFound) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, labelText.Render("Tata bahasa:"))
		for _, t := range r.TyposFound {
			fmt.Fprintln(w, lipgloss.NewStyle().Foreground(alertInk).Render("  [!] "+t))
		}
	}
}

func describeFile(f *domain.UploadedFile) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", f.Name, humanize.Bytes(uint64(f.SizeBytes)))
}

func truncate(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n-1]) + "…"
}
