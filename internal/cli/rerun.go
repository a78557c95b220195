package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"partforge/internal/state"
)

var rerunCmd = &cobra.Command{
	Use:   "rerun <run-id>",
	Short: "Repeat a finished run",
	Long: `Rerun loads a stored run record and executes the generate/compile
loop again with the same instruction, source file, and output target.
The repeat gets its own run ID and event log.

Useful after editing prompts, knowledge files, or the source by hand,
or when an exhausted run deserves a fresh attempt budget.

Example:
  partforge rerun 3f1c9a2e-8c1b-4a4e-9f2d-0c5b6a7d8e9f
  partforge rerun 3f1c9a2e-8c1b-4a4e-9f2d-0c5b6a7d8e9f --max-iterations 8`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runRerun,
}

func init() {
	rerunCmd.Flags().BoolVar(&runJSON, "json", false, "print the result as JSON instead of progress lines")
	rerunCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "override the configured attempt limit")
	rerunCmd.Flags().BoolVar(&runMockCompiler, "mock-compiler", false, "compile with the built-in mock instead of LP_XMLConverter")

	rootCmd.AddCommand(rerunCmd)
}

func runRerun(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	record, err := state.NewStore(cwd).GetRun(args[0])
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}

	if !runJSON {
		fmt.Printf("Rerunning %s\n", record.ID)
		fmt.Printf("  Instruction: %s\n", record.Instruction)
		fmt.Printf("  Source: %s\n", record.SourcePath)
	}

	runInstruction = record.Instruction
	runSource = record.SourcePath
	runOutput = record.OutputPath
	return runRun(cmd, nil)
}
