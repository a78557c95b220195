package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"partforge/internal/compiler"
	"partforge/internal/config"
)

var decompileOutputDir string

var decompileCmd = &cobra.Command{
	Use:   "decompile <artifact.gsm>",
	Short: "Extract libpart XML source from a compiled part",
	Long: `Decompile runs LP_XMLConverter in reverse: it extracts the XML source
of a compiled .gsm library part into the source directory, where runs
can then modify it.

Example:
  partforge decompile output/cabinet.gsm
  partforge decompile vendor/Chair.gsm -o src/vendor`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runDecompile,
}

func init() {
	decompileCmd.Flags().StringVarP(&decompileOutputDir, "output-dir", "o", "", "directory for the extracted XML (default: configured src dir)")

	rootCmd.AddCommand(decompileCmd)
}

func runDecompile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg, err := config.LoadConfig(cwd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	comp := compiler.NewLPXMLConverter(cfg.Compiler.ConverterPath, cfg.CompileTimeout())
	if !comp.Available() {
		return fmt.Errorf("LP_XMLConverter not available; set compiler.converter_path in %s/config.yaml", config.DirName)
	}

	artifact, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve artifact path: %w", err)
	}
	outputDir := resolvePath(cwd, cfg.Paths.SrcDir)
	if decompileOutputDir != "" {
		outputDir, err = filepath.Abs(decompileOutputDir)
		if err != nil {
			return fmt.Errorf("failed to resolve output directory: %w", err)
		}
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	result := comp.Decompile(ctx, artifact, outputDir)
	if !result.Success {
		if summary := result.Summary(); summary != "" {
			failColor.Fprintln(os.Stdout, summary)
		}
		return fmt.Errorf("decompile failed with exit code %d", result.ExitCode)
	}

	successColor.Fprintf(os.Stdout, "decompiled %s -> %s\n", args[0], outputDir)
	dimColor.Fprintf(os.Stdout, "%s\n", formatMillis(result.DurationMS))
	return nil
}
