package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"smartaset/pkg/audit"
	"smartaset/pkg/domain"
	"smartaset/pkg/report"
)

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent audits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			logger := stderrLogger(cmd, cfg.LogLevel)
			rt, err := wire(cmd.Context(), cfg, logger, wireOptions{})
			if err != nil {
				return err
			}
			defer rt.close(logger)

			items := rt.app.History()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}
			if len(items) == 0 {
				fmt.Fprintln(out, mutedText.Render("Belum ada riwayat audit."))
				return nil
			}
			for _, r := range items {
				fmt.Fprintf(out, "%s  %6s  %-40s %s\n",
					r.ID,
					titleText.Render(audit.FormatScore(r.OverallScore)),
					truncate(r.AssetName, 40),
					mutedText.Render(humanize.Time(r.Timestamp)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the entries as JSON")
	return cmd
}

func newExportCmd(flags *globalFlags) *cobra.Command {
	var txtPath, pdfPath, dir string
	cmd := &cobra.Command{
		Use:   "export AUDIT_ID",
		Short: "Write the text and PDF reports of a past audit",
		Long:  "Writes the reports of an audit kept in history. Without --txt or --pdf both files are written to --dir under their download names.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			logger := stderrLogger(cmd, cfg.LogLevel)
			rt, err := wire(cmd.Context(), cfg, logger, wireOptions{})
			if err != nil {
				return err
			}
			defer rt.close(logger)

			result, err := rt.app.HistoryItem(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if txtPath == "" && pdfPath == "" {
				txtPath, pdfPath = defaultExportPaths(dir, result)
			}
			if err := writeExports(result, txtPath, pdfPath); err != nil {
				return err
			}
			for _, p := range []string{txtPath, pdfPath} {
				if p != "" {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&txtPath, "txt", "", "Text report path")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "PDF report path")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory for default file names")
	return cmd
}

func defaultExportPaths(dir string, r domain.AuditResult) (string, string) {
	return filepath.Join(dir, report.TextFilename(r)), filepath.Join(dir, report.PDFFilename(r))
}

func newGuidelineCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "guideline",
		Short: "Print the audit guideline reference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g := audit.Reference()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(g)
			}
			fmt.Fprintln(out, titleText.Render("Kriteria Audit"))
			for _, c := range g.Criteria {
				fmt.Fprintf(out, "%s %s\n   %s\n", labelText.Render(c.ID), labelText.Render(c.Title), c.Detail)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, titleText.Render("Logo Wajib"))
			for _, l := range g.Logos {
				fmt.Fprintf(out, "- %s: %s\n", l.Name, mutedText.Render(l.Description))
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, titleText.Render("Palet Warna"))
			for _, s := range g.Palette {
				swatch := lipgloss.NewStyle().Background(lipgloss.Color(s.Hex)).Render("    ")
				fmt.Fprintf(out, "%s %s %s\n", swatch, s.Hex, s.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the guideline as JSON")
	return cmd
}
