// Package cli implements the smartaset command line: the HTTP service plus
// one-shot audits and history exports for scripted use.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"smartaset/internal/util"
	"smartaset/services/audit/internal/config"
)

type globalFlags struct {
	configPath string
	logLevel   string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "smartaset",
		Short:         "Audit learning assets against the CorpU production guideline",
		Long:          "SmartAset reviews slide PDFs and SCORM packages, with optional opening and closing videos, and reports how well they follow the Kemenkes CorpU guideline.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file (default: $SMARTASET_CONFIG or ./config.yaml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(
		newServeCmd(flags),
		newAuditCmd(flags),
		newHistoryCmd(flags),
		newExportCmd(flags),
		newGuidelineCmd(),
	)
	return root
}

func (f *globalFlags) load() (config.FileConfig, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return cfg, nil
}

// stderrLogger keeps stdout clean for command output.
func stderrLogger(cmd *cobra.Command, level string) *slog.Logger {
	return util.InitLoggerTo(cmd.ErrOrStderr(), level)
}
