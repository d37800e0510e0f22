package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"smartaset/pkg/domain"
	"smartaset/pkg/report"
)

type auditFlags struct {
	document string
	pkg      string
	opening  string
	closing  string
	asJSON   bool
	txtOut   string
	pdfOut   string
}

func newAuditCmd(flags *globalFlags) *cobra.Command {
	f := &auditFlags{}
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit one asset and print the report",
		Example: `  smartaset audit --document modul.pdf --opening intro.mp4 --closing outro.mp4
  smartaset audit --package paket.zip --pdf laporan.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, err := f.selection()
			if err != nil {
				return err
			}
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

			stderr := cmd.ErrOrStderr()
			primary, kind := files.Primary()
			fmt.Fprintf(stderr, "%s %s [%s]\n", titleText.Render("Menganalisis"), describeFile(primary), kind)
			fmt.Fprintf(stderr, "  opening: %s\n  closing: %s\n", describeFile(files.VideoOpening), describeFile(files.VideoClosing))
			result, err := rt.app.AuditFiles(cmd.Context(), files, func(percent int) {
				fmt.Fprintln(stderr, mutedText.Render(fmt.Sprintf("  %3d%%", percent)))
			})
			if err != nil {
				return err
			}
			return f.emit(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&f.document, "document", "", "Slide deck PDF")
	cmd.Flags().StringVar(&f.pkg, "package", "", "SCORM package ZIP")
	cmd.Flags().StringVar(&f.opening, "opening", "", "Opening video")
	cmd.Flags().StringVar(&f.closing, "closing", "", "Closing video")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().StringVar(&f.txtOut, "txt", "", "Also write the text report to this path")
	cmd.Flags().StringVar(&f.pdfOut, "pdf", "", "Also write the PDF report to this path")
	cmd.MarkFlagsMutuallyExclusive("document", "package")
	return cmd
}

func (f *auditFlags) selection() (domain.SourceSelection, error) {
	var files domain.SourceSelection
	var err error
	switch {
	case f.document != "":
		files.Document, err = localFile(f.document)
	case f.pkg != "":
		files.Package, err = localFile(f.pkg)
	default:
		return files, errors.New("one of --document or --package is required")
	}
	if err != nil {
		return files, err
	}
	if f.opening != "" {
		if files.VideoOpening, err = localFile(f.opening); err != nil {
			return files, err
		}
	}
	if f.closing != "" {
		if files.VideoClosing, err = localFile(f.closing); err != nil {
			return files, err
		}
	}
	return files, nil
}

func localFile(path string) (*domain.UploadedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &domain.UploadedFile{
		Name:       filepath.Base(path),
		Path:       path,
		SizeBytes:  info.Size(),
		UploadedAt: info.ModTime(),
	}, nil
}

func (f *auditFlags) emit(w io.Writer, result domain.AuditResult) error {
	if err := writeExports(result, f.txtOut, f.pdfOut); err != nil {
		return err
	}
	if f.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(w, result)
	return nil
}

func writeExports(result domain.AuditResult, txtPath, pdfPath string) error {
	if txtPath != "" {
		if err := writeFile(txtPath, func(w io.Writer) error { return report.WriteText(w, result) }); err != nil {
			return fmt.Errorf("write text report: %w", err)
		}
	}
	if pdfPath != "" {
		if err := writeFile(pdfPath, func(w io.Writer) error { return report.WritePDF(w, result, report.PDFOptions{}) }); err != nil {
			return fmt.Errorf("write pdf report: %w", err)
		}
	}
	return nil
}

func writeFile(path string, render func(io.Writer) error) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
