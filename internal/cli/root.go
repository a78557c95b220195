package cli

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"partforge/internal/config"
	"partforge/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	verbose bool

	// logger is built once per invocation in the root PersistentPreRunE
	// and synced in PersistentPostRun.
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "partforge",
	Short: "LLM-driven compiler loop for ArchiCAD GDL library parts",
	Long: `Partforge turns natural-language instructions into compiled GDL
library parts. It generates libpart XML with an LLM, validates it,
compiles it with LP_XMLConverter in a sandbox, and feeds compiler
errors back into the next attempt until the part builds.`,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := config.DefaultLogLevel
		development := false
		cwd, err := os.Getwd()
		if err == nil {
			// Config problems are reported by the command itself; here
			// they only mean default log settings.
			if cfg, err := config.LoadConfig(cwd); err == nil {
				level = cfg.Logging.Level
				development = cfg.Logging.Development
			}
		}
		if verbose {
			level = "debug"
			development = true
		}
		logger, err = logging.New(level, development)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("partforge version {{.Version}}\n")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// log returns the invocation logger, or a no-op logger before setup.
func log() *zap.Logger {
	if logger == nil {
		return logging.Nop()
	}
	return logger
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
