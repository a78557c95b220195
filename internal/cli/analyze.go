package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"partforge/internal/config"
	"partforge/internal/preflight"
	"partforge/internal/resolver"
)

var (
	analyzeInstruction string
	analyzeSource      string
	analyzeJSON        bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Pre-flight an instruction without calling the LLM",
	Long: `Analyze checks an instruction against a source file the same way run
does before its first attempt: feasibility blockers, a complexity
estimate, unresolved macro CALLs, and the context slice that would be
sent to the model. No LLM call and no compile happen.

Example:
  partforge analyze -i "add a third shelf" -s src/cabinet.xml
  partforge analyze -i "rounded corners" -s src/table.xml --json`,
	SilenceUsage: true,
	RunE:         runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeInstruction, "instruction", "i", "", "instruction to analyze (required)")
	analyzeCmd.Flags().StringVarP(&analyzeSource, "source", "s", "", "libpart XML source file (required)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the analysis as JSON")

	analyzeCmd.MarkFlagRequired("instruction")
	analyzeCmd.MarkFlagRequired("source")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg, err := config.LoadConfig(cwd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var roots []string
	for _, root := range cfg.SearchRoots() {
		roots = append(roots, resolvePath(cwd, root))
	}

	// A missing source is fine; the run would generate it from scratch.
	document := ""
	if data, err := os.ReadFile(analyzeSource); err == nil {
		document = string(data)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read source file: %w", err)
	}

	analysis := preflight.NewAnalyzer(resolver.New(roots...)).Analyze(analyzeInstruction, document)

	if analyzeJSON {
		output, err := json.MarshalIndent(analysis, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal analysis: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if analysis.Feasible {
		successColor.Fprintln(os.Stdout, "feasible: yes")
	} else {
		failColor.Fprintln(os.Stdout, "feasible: no")
	}
	fmt.Printf("complexity: %s\n", analysis.Complexity)
	fmt.Printf("summary: %s\n", analysis.Summary)
	for _, blocker := range analysis.Blockers {
		failColor.Fprintf(os.Stdout, "blocker: %s\n", blocker)
	}
	for _, name := range analysis.UnresolvedMacros {
		warnColor.Fprintf(os.Stdout, "unresolved macro: %s\n", name)
	}
	if cs := analysis.ContextSlice; cs != nil && !cs.IsFull {
		dimColor.Fprintf(os.Stdout, "context slice: %d of %d chars (%.1f%% saved)\n",
			cs.SlicedChars, cs.TotalChars, cs.Savings())
	}

	if !analysis.Feasible {
		return fmt.Errorf("instruction is blocked")
	}
	return nil
}
