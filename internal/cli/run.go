package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"partforge/internal/agent"
	"partforge/internal/compiler"
	"partforge/internal/config"
	"partforge/internal/generator"
	"partforge/internal/knowledge"
	"partforge/internal/prompts"
	"partforge/internal/resolver"
	"partforge/internal/sandbox"
	"partforge/internal/snippets"
	"partforge/internal/state"
)

var (
	runInstruction   string
	runSource        string
	runOutput        string
	runJSON          bool
	runMaxIterations int
	runMockCompiler  bool
)

// RunOutput is the JSON output format for --json mode. It wraps the
// agent result with the persisted run ID so scripts can follow up with
// `partforge events <run-id>`.
type RunOutput struct {
	RunID  string        `json:"run_id"`
	Result *agent.Result `json:"result"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate, validate, and compile a library part",
	Long: `Run the generate/compile loop for one instruction against one libpart
XML source file. The source may be new (generated from scratch) or
existing (modified in place on success).

Each attempt sends the instruction, the current source, and resolved
macro signatures to the LLM, validates the returned XML, and compiles
it in a sandbox. Compiler errors feed the next attempt. The canonical
source and the compiled artifact are only replaced after a clean
compile.

Example:
  partforge run -i "add a third shelf" -s src/cabinet.xml
  partforge run -i "a parametric bar stool" -s src/stool.xml -o output/stool.gsm
  partforge run -i "wider door frame" -s src/door.xml --json`,
	SilenceUsage: true,
	RunE:         runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runInstruction, "instruction", "i", "", "what to build or change (required)")
	runCmd.Flags().StringVarP(&runSource, "source", "s", "", "libpart XML source file (required)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "compiled artifact path (default: <output dir>/<source stem>.gsm)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the result as JSON instead of progress lines")
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "override the configured attempt limit")
	runCmd.Flags().BoolVar(&runMockCompiler, "mock-compiler", false, "compile with the built-in mock instead of LP_XMLConverter")

	runCmd.MarkFlagRequired("instruction")
	runCmd.MarkFlagRequired("source")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
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
	if runMaxIterations > 0 {
		cfg.Agent.MaxIterations = runMaxIterations
	}

	apiKey, err := config.APIKey(cwd, cfg)
	if err != nil {
		return fmt.Errorf("failed to resolve API key: %w", err)
	}
	if apiKey == "" {
		return fmt.Errorf("%s not set in environment or %s/.env", cfg.Generator.APIKeyEnv, config.DirName)
	}
	gen, err := generator.NewGemini(ctx, generator.GeminiOptions{
		APIKey:      apiKey,
		Model:       cfg.Generator.Model,
		Temperature: float32(cfg.Generator.Temperature),
		MaxRetries:  cfg.Generator.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	var comp compiler.Compiler
	if runMockCompiler {
		comp = compiler.NewMock()
	} else {
		comp = compiler.NewLPXMLConverter(cfg.Compiler.ConverterPath, cfg.CompileTimeout())
	}

	// The sandbox targets the directories of the actual source and
	// output paths so promotion lands exactly where the caller asked.
	sourcePath, err := filepath.Abs(runSource)
	if err != nil {
		return fmt.Errorf("failed to resolve source path: %w", err)
	}
	outputDir := resolvePath(cwd, cfg.Paths.OutputDir)
	outputPath := ""
	if runOutput != "" {
		outputPath, err = filepath.Abs(runOutput)
		if err != nil {
			return fmt.Errorf("failed to resolve output path: %w", err)
		}
		outputDir = filepath.Dir(outputPath)
	}
	box := sandbox.New(filepath.Dir(sourcePath), resolvePath(cwd, cfg.Paths.WorkDir), outputDir)

	var roots []string
	for _, root := range cfg.SearchRoots() {
		roots = append(roots, resolvePath(cwd, root))
	}

	// Event sinks: colored progress lines plus a persisted NDJSON log.
	store := state.NewStore(cwd)
	runID := uuid.NewString()
	eventLog, err := state.OpenEventLog(store.EventLogPath(runID))
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer eventLog.Close()

	printer := &eventPrinter{out: os.Stdout, quiet: runJSON}
	observer := func(e agent.Event) {
		printer.print(e)
		if err := eventLog.Append(e.Name, e.Fields); err != nil {
			log().Warn("failed to append event", zap.String("event", e.Name), zap.Error(err))
		}
	}

	a := agent.New(agent.Options{
		Config:    cfg,
		Generator: gen,
		Compiler:  comp,
		Knowledge: knowledge.Load(resolvePath(cwd, cfg.Paths.KnowledgeDir)),
		Snippets:  snippets.NewLibrary(),
		Resolver:  resolver.New(roots...),
		Sandbox:   box,
		Prompts:   prompts.Load(resolvePath(cwd, cfg.Paths.PromptsDir)),
		Observer:  observer,
		Logger:    log(),
	})

	startedAt := time.Now()
	result := a.Run(ctx, runInstruction, sourcePath, outputPath)

	record := &state.RunRecord{
		ID:              runID,
		Instruction:     runInstruction,
		SourcePath:      sourcePath,
		OutputPath:      result.OutputPath,
		Status:          result.Status,
		Attempts:        result.Attempts,
		ErrorSummary:    result.ErrorSummary,
		TotalTokens:     result.TotalTokens,
		TotalDurationMS: result.TotalDurationMS,
		StartedAt:       startedAt.UTC(),
		FinishedAt:      time.Now().UTC(),
	}
	if err := store.SaveRun(record); err != nil {
		log().Warn("failed to save run record", zap.String("run_id", runID), zap.Error(err))
	}

	if runJSON {
		output, err := json.MarshalIndent(RunOutput{RunID: runID, Result: result}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Println(string(output))
	} else {
		printer.printResult(result, runID)
	}

	if !result.Success() {
		return fmt.Errorf("run %s: %s", result.Status, result.ErrorSummary)
	}
	return nil
}

// resolvePath joins a config-relative path onto the project base.
func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
