package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"partforge/internal/config"
	"partforge/internal/resolver"
)

var (
	depsSource string
	depsJSON   bool
)

// DepsOutput is the JSON output format for deps --json.
type DepsOutput struct {
	Resolved   []resolver.DependencyRecord `json:"resolved"`
	Unresolved []string                    `json:"unresolved"`
}

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Show which macros a source file calls",
	Long: `Deps scans a libpart XML source for CALL statements and resolves each
macro name against the configured search roots. Resolved macros are
listed with their parameter signature and defining file; unresolved
names are flagged the same way a run would flag them.

Example:
  partforge deps -s src/cabinet.xml`,
	SilenceUsage: true,
	RunE:         runDeps,
}

func init() {
	depsCmd.Flags().StringVarP(&depsSource, "source", "s", "", "libpart XML source file (required)")
	depsCmd.Flags().BoolVar(&depsJSON, "json", false, "print the report as JSON")

	depsCmd.MarkFlagRequired("source")

	rootCmd.AddCommand(depsCmd)
}

func runDeps(cmd *cobra.Command, args []string) error {
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

	data, err := os.ReadFile(depsSource)
	if err != nil {
		return fmt.Errorf("failed to read source file: %w", err)
	}
	document := string(data)

	res := resolver.New(roots...)
	resolved := res.Resolve(document)
	unresolved := res.Unresolved(document)

	if depsJSON {
		report := DepsOutput{Resolved: resolved, Unresolved: unresolved}
		if report.Resolved == nil {
			report.Resolved = []resolver.DependencyRecord{}
		}
		if report.Unresolved == nil {
			report.Unresolved = []string{}
		}
		output, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if len(resolved) == 0 && len(unresolved) == 0 {
		fmt.Printf("%s calls no macros\n", depsSource)
		return nil
	}

	for _, record := range resolved {
		successColor.Fprintf(os.Stdout, "%s", record.Name)
		dimColor.Fprintf(os.Stdout, "  (%s)\n", record.SourceLocation)
		if record.Signature != "" {
			fmt.Printf("  %s\n", record.Signature)
		}
	}
	for _, name := range unresolved {
		failColor.Fprintf(os.Stdout, "%s  (unresolved)\n", name)
	}

	if len(unresolved) > 0 {
		return fmt.Errorf("%d macro(s) unresolved", len(unresolved))
	}
	return nil
}
