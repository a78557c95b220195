// Package agent drives the generate-validate-compile retry loop that
// turns a natural-language instruction into a compiled GDL library
// part. Each attempt asks the generator for a full XML document,
// validates it, compiles it in a sandbox, and either promotes the
// artifact or feeds the failure back into the next attempt.
package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"partforge/internal/compiler"
	"partforge/internal/config"
	"partforge/internal/gdlxml"
	"partforge/internal/generator"
	"partforge/internal/knowledge"
	"partforge/internal/logging"
	"partforge/internal/preflight"
	"partforge/internal/prompts"
	"partforge/internal/resolver"
	"partforge/internal/sandbox"
	"partforge/internal/snippets"
)

// Agent runs one instruction against one library part source file.
type Agent struct {
	cfg      *config.Config
	gen      generator.Client
	comp     compiler.Compiler
	kb       *knowledge.Base
	snippets *snippets.Library
	resolver *resolver.Resolver
	analyzer *preflight.Analyzer
	sandbox  *sandbox.Sandbox
	prompts  *prompts.Set
	observer Observer
	logger   *zap.Logger
}

// Options holds dependencies for creating an Agent. Generator and
// Compiler are required; everything else defaults from Config paths.
// This struct enables test-friendly construction with explicit
// dependencies.
type Options struct {
	Config    *config.Config
	Generator generator.Client
	Compiler  compiler.Compiler
	Knowledge *knowledge.Base
	Snippets  *snippets.Library
	Resolver  *resolver.Resolver
	Sandbox   *sandbox.Sandbox
	Prompts   *prompts.Set
	Observer  Observer
	Logger    *zap.Logger
}

// New creates an Agent, filling unset optional dependencies from the
// config's project layout.
func New(opts Options) *Agent {
	cfg := opts.Config
	if cfg == nil {
		c := config.DefaultConfig()
		cfg = &c
	}
	kb := opts.Knowledge
	if kb == nil {
		kb = knowledge.Load(cfg.Paths.KnowledgeDir)
	}
	lib := opts.Snippets
	if lib == nil {
		lib = snippets.NewLibrary()
	}
	res := opts.Resolver
	if res == nil {
		res = resolver.New(cfg.SearchRoots()...)
	}
	sb := opts.Sandbox
	if sb == nil {
		sb = sandbox.New(cfg.Paths.SrcDir, cfg.Paths.WorkDir, cfg.Paths.OutputDir)
	}
	ps := opts.Prompts
	if ps == nil {
		ps = prompts.Load(cfg.Paths.PromptsDir)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return &Agent{
		cfg:      cfg,
		gen:      opts.Generator,
		comp:     opts.Compiler,
		kb:       kb,
		snippets: lib,
		resolver: res,
		analyzer: preflight.NewAnalyzer(res),
		sandbox:  sb,
		prompts:  ps,
		observer: opts.Observer,
		logger:   logger,
	}
}

// Run executes the retry loop until a terminal state is reached. It
// never returns an error: every outcome, including internal failures,
// is expressed as a Result status. The canonical source and output
// files change only on StatusSuccess.
func (a *Agent) Run(ctx context.Context, instruction, sourcePath, outputPath string) *Result {
	start := time.Now()
	maxAttempts := a.cfg.Agent.MaxIterations

	a.emit("start", map[string]any{
		"instruction":    instruction,
		"source":         sourcePath,
		"max_iterations": maxAttempts,
	})
	a.logger.Info("run started",
		zap.String("source", sourcePath),
		zap.Int("max_iterations", maxAttempts))

	if !a.comp.Available() {
		a.emit("compiler_unavailable", nil)
		return &Result{
			Status:          StatusCompilerUnavailable,
			ErrorSummary:    "LP_XMLConverter not available.",
			TotalDurationMS: time.Since(start).Milliseconds(),
		}
	}

	xmlContent := a.readSource(sourcePath)

	analysis := a.analyzer.Analyze(instruction, xmlContent)
	a.emit("analysis_complete", map[string]any{
		"summary":    analysis.Summary,
		"complexity": string(analysis.Complexity),
	})
	if !analysis.Feasible {
		return &Result{
			Status:          StatusBlocked,
			ErrorSummary:    "Pre-flight blocked: " + strings.Join(analysis.Blockers, "; "),
			Analysis:        analysis,
			TotalDurationMS: time.Since(start).Milliseconds(),
		}
	}

	slice := analysis.ContextSlice
	if !slice.IsFull {
		a.emit("context_sliced", map[string]any{
			"original": slice.TotalChars,
			"sliced":   slice.SlicedChars,
			"savings":  slice.Savings(),
		})
	}

	systemPrompt := a.buildSystemPrompt(instruction, xmlContent, analysis)
	sourceName, outputName := artifactNames(sourcePath, outputPath)

	var (
		history     []AttemptRecord
		prevError   string
		prevXML     string
		totalTokens int
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			a.cleanup()
			return &Result{
				Status:          StatusFailed,
				Attempts:        attempt - 1,
				ErrorSummary:    ctx.Err().Error(),
				History:         history,
				TotalTokens:     totalTokens,
				TotalDurationMS: time.Since(start).Milliseconds(),
				Analysis:        analysis,
			}
		default:
		}

		attemptStart := time.Now()
		a.emit("attempt_start", map[string]any{
			"attempt":      attempt,
			"max_attempts": maxAttempts,
		})
		a.logger.Debug("attempt started", zap.Int("attempt", attempt))

		paths, err := a.sandbox.Prepare(sourceName, outputName, attempt)
		if err != nil {
			history = append(history, AttemptRecord{
				Attempt:    attempt,
				Stage:      StageSandbox,
				Error:      err.Error(),
				DurationMS: time.Since(attemptStart).Milliseconds(),
			})
			a.cleanup()
			return &Result{
				Status:          StatusFailed,
				Attempts:        attempt,
				ErrorSummary:    fmt.Sprintf("sandbox setup failed: %v", err),
				History:         history,
				TotalTokens:     totalTokens,
				TotalDurationMS: time.Since(start).Milliseconds(),
				Analysis:        analysis,
			}
		}

		messages := a.buildMessages(systemPrompt, instruction, slice, xmlContent, attempt, prevError, prevXML)

		a.emit("llm_call", map[string]any{"attempt": attempt})
		resp, err := a.gen.Generate(ctx, messages)
		if err != nil {
			errMsg := fmt.Sprintf("LLM call failed: %v", err)
			a.emit("llm_error", map[string]any{"error": err.Error()})
			history = append(history, AttemptRecord{
				Attempt:    attempt,
				Stage:      StageLLMCall,
				Error:      errMsg,
				DurationMS: time.Since(attemptStart).Milliseconds(),
			})
			prevError = errMsg
			continue
		}
		totalTokens += resp.Usage.TotalTokens

		newXML, ok := gdlxml.Extract(resp.Content)
		if !ok {
			a.emit("xml_extract_failed", map[string]any{"attempt": attempt})
			history = append(history, AttemptRecord{
				Attempt:    attempt,
				Stage:      StageXMLExtraction,
				Error:      "Could not extract valid XML from LLM response",
				DurationMS: time.Since(attemptStart).Milliseconds(),
			})
			prevError = "Failed to extract XML. Please output the complete XML file."
			prevXML = resp.Content
			continue
		}

		// Idempotence guard: a candidate identical to the previous
		// failed one would fail the same way, so stop paying for it.
		if a.cfg.Agent.DiffCheck && prevXML != "" && gdlxml.Identical(newXML, prevXML) {
			a.emit("identical_retry", map[string]any{"attempt": attempt})
			history = append(history, AttemptRecord{
				Attempt:    attempt,
				Stage:      StageDiffCheck,
				Error:      "Identical to previous attempt",
				DurationMS: time.Since(attemptStart).Milliseconds(),
			})
			a.cleanup()
			return &Result{
				Status:          StatusFailed,
				Attempts:        attempt,
				ErrorSummary:    "Agent produced identical code twice.",
				History:         history,
				TotalTokens:     totalTokens,
				TotalDurationMS: time.Since(start).Milliseconds(),
				Analysis:        analysis,
			}
		}

		if a.cfg.Agent.SelfReview && a.prompts.SelfReview != "" && attempt == 1 {
			passed, corrected, tokens := a.runSelfReview(ctx, systemPrompt, newXML)
			totalTokens += tokens
			if corrected != "" {
				a.emit("self_review_correction", map[string]any{"attempt": attempt})
				newXML = corrected
			} else if passed {
				a.emit("self_review_passed", map[string]any{"attempt": attempt})
			}
		}

		if a.cfg.Agent.ValidateXML {
			if err := gdlxml.Validate(newXML); err != nil {
				a.emit("xml_invalid", map[string]any{
					"attempt": attempt,
					"error":   err.Error(),
				})
				history = append(history, AttemptRecord{
					Attempt:    attempt,
					Stage:      StageXMLValidation,
					Error:      err.Error(),
					DurationMS: time.Since(attemptStart).Milliseconds(),
				})
				prevError = fmt.Sprintf("XML is not well-formed: %v", err)
				prevXML = newXML
				if err := a.sandbox.ArchiveAttempt(paths); err != nil {
					a.logger.Warn("attempt archive failed", zap.Error(err))
				}
				continue
			}
			if issues := gdlxml.ValidateStructure(newXML); len(issues) > 0 {
				a.emit("gdl_issues", map[string]any{
					"attempt": attempt,
					"issues":  issues,
				})
				history = append(history, AttemptRecord{
					Attempt:    attempt,
					Stage:      StageGDLValidation,
					Error:      strings.Join(issues, "; "),
					DurationMS: time.Since(attemptStart).Milliseconds(),
				})
				prevError = "GDL validation issues:\n- " + strings.Join(issues, "\n- ")
				prevXML = newXML
				if err := a.sandbox.ArchiveAttempt(paths); err != nil {
					a.logger.Warn("attempt archive failed", zap.Error(err))
				}
				continue
			}
		}
		a.emit("validation_passed", map[string]any{"attempt": attempt})

		var diff string
		if xmlContent != "" {
			diff = gdlxml.Diff(xmlContent, newXML)
		}

		if a.cfg.Agent.DebugMode {
			newXML = gdlxml.InjectDebugAnchors(newXML)
			a.emit("debug_anchors_injected", map[string]any{"attempt": attempt})
		}

		if err := a.sandbox.WriteTemp(paths, newXML); err != nil {
			history = append(history, AttemptRecord{
				Attempt:    attempt,
				Stage:      StageSandbox,
				Error:      err.Error(),
				DurationMS: time.Since(attemptStart).Milliseconds(),
			})
			a.cleanup()
			return &Result{
				Status:          StatusFailed,
				Attempts:        attempt,
				ErrorSummary:    fmt.Sprintf("sandbox write failed: %v", err),
				History:         history,
				TotalTokens:     totalTokens,
				TotalDurationMS: time.Since(start).Milliseconds(),
				Analysis:        analysis,
			}
		}
		a.emit("sandbox_written", map[string]any{"path": paths.TempSource})

		a.emit("compile_start", map[string]any{"attempt": attempt})
		compileResult := a.comp.Compile(ctx, paths.TempSource, paths.TempOutput)

		if compileResult.Success {
			if err := a.sandbox.Promote(paths); err != nil {
				a.emit("promote_failed", map[string]any{
					"attempt": attempt,
					"error":   err.Error(),
				})
				history = append(history, AttemptRecord{
					Attempt:    attempt,
					Stage:      StagePromote,
					Error:      err.Error(),
					DurationMS: time.Since(attemptStart).Milliseconds(),
				})
				a.cleanup()
				return &Result{
					Status:          StatusFailed,
					Attempts:        attempt,
					ErrorSummary:    fmt.Sprintf("promotion failed: %v", err),
					History:         history,
					TotalTokens:     totalTokens,
					TotalDurationMS: time.Since(start).Milliseconds(),
					Analysis:        analysis,
				}
			}
			a.cleanup()
			a.emit("compile_success", map[string]any{
				"attempt":     attempt,
				"output":      paths.FinalOutput,
				"duration_ms": compileResult.DurationMS,
			})
			history = append(history, AttemptRecord{
				Attempt:    attempt,
				Stage:      StageCompile,
				Success:    true,
				Diff:       diff,
				DurationMS: time.Since(attemptStart).Milliseconds(),
			})
			a.logger.Info("run succeeded",
				zap.Int("attempts", attempt),
				zap.String("output", paths.FinalOutput))
			return &Result{
				Status:          StatusSuccess,
				Attempts:        attempt,
				OutputPath:      paths.FinalOutput,
				History:         history,
				TotalTokens:     totalTokens,
				TotalDurationMS: time.Since(start).Milliseconds(),
				Analysis:        analysis,
			}
		}

		errorMsg := compileResult.Summary()
		if errorMsg == "" {
			errorMsg = "Unknown error"
		}
		a.emit("compile_failed", map[string]any{
			"attempt": attempt,
			"error":   errorMsg,
		})
		if err := a.sandbox.ArchiveAttempt(paths); err != nil {
			a.logger.Warn("attempt archive failed", zap.Error(err))
		}
		history = append(history, AttemptRecord{
			Attempt:    attempt,
			Stage:      StageCompile,
			Error:      errorMsg,
			Diff:       diff,
			DurationMS: time.Since(attemptStart).Milliseconds(),
		})
		prevError = errorMsg
		prevXML = newXML
	}

	a.cleanup()
	lastError := prevError
	if lastError == "" {
		lastError = "Unknown error"
	}
	a.emit("exhausted", map[string]any{
		"max_attempts": maxAttempts,
		"last_error":   lastError,
	})
	a.logger.Info("run exhausted", zap.Int("attempts", maxAttempts))
	return &Result{
		Status:          StatusExhausted,
		Attempts:        maxAttempts,
		ErrorSummary:    lastError,
		History:         history,
		TotalTokens:     totalTokens,
		TotalDurationMS: time.Since(start).Milliseconds(),
		Analysis:        analysis,
	}
}

// readSource loads the current part document. A missing file means a
// new part; any other read error is surfaced but also treated as
// starting from scratch.
func (a *Agent) readSource(sourcePath string) string {
	content, err := os.ReadFile(sourcePath)
	if err != nil {
		if !os.IsNotExist(err) {
			a.emit("file_read_error", map[string]any{"error": err.Error()})
		}
		return ""
	}
	a.emit("file_read", map[string]any{
		"path": sourcePath,
		"size": len(content),
	})
	return string(content)
}

// buildSystemPrompt assembles the system message: the base template
// with relevant knowledge, then matched snippets, then resolved macro
// signatures, then a warning block for macros that resolve nowhere.
func (a *Agent) buildSystemPrompt(instruction, xmlContent string, analysis *preflight.AnalysisResult) string {
	prompt := a.prompts.RenderSystem(a.kb.Relevant(instruction))

	matched := a.snippets.Match(instruction, xmlContent)
	if len(matched) > 0 {
		names := make([]string, len(matched))
		for i, s := range matched {
			names[i] = s.Name
		}
		a.emit("snippets_matched", map[string]any{
			"count": len(matched),
			"names": names,
		})
		prompt += snippets.FormatForPrompt(matched)
	}

	if xmlContent != "" {
		records := a.resolver.Resolve(xmlContent)
		if len(records) > 0 {
			names := make([]string, len(records))
			for i, rec := range records {
				names[i] = rec.Name
			}
			a.emit("deps_resolved", map[string]any{
				"count": len(records),
				"names": names,
			})
			prompt += resolver.FormatForPrompt(records)
		}
	}

	if len(analysis.UnresolvedMacros) > 0 {
		var sb strings.Builder
		sb.WriteString("\n\n## Unresolved Macros\n\n")
		sb.WriteString("The following macros are CALLed but their parameter signatures could not be found. Be extra careful with CALL parameters:\n")
		for _, name := range analysis.UnresolvedMacros {
			fmt.Fprintf(&sb, "- `%s`\n", name)
		}
		prompt += sb.String()
	}

	return prompt
}

// buildMessages constructs the conversation for one attempt. The first
// attempt states the task with the (possibly sliced) document; retries
// instead send the error-analysis template with the previous failure
// and candidate.
func (a *Agent) buildMessages(systemPrompt, instruction string, slice *preflight.ContextSlice, xmlContent string, attempt int, prevError, prevXML string) []generator.Message {
	var user string
	if attempt == 1 {
		var sb strings.Builder
		sb.WriteString("## Task\n\n")
		sb.WriteString(instruction)
		sb.WriteString("\n")
		if xmlContent != "" {
			sb.WriteString("\n## Current XML Source\n\n```xml\n")
			sb.WriteString(slice.Text())
			sb.WriteString("\n```\n")
			if !slice.IsFull {
				sb.WriteString("\n**Note:** The above shows only the sections relevant to your task. However, you MUST output the COMPLETE XML file including ALL sections (even those not shown). Preserve all existing sections unchanged.\n")
			}
		} else {
			sb.WriteString("\n## Note\n\nNew file. Generate the complete XML from scratch.\n")
		}
		user = sb.String()
	} else {
		user = a.prompts.RenderErrorAnalysis(prevError, attempt, a.cfg.Agent.MaxIterations, prevXML)
	}

	return []generator.Message{
		{Role: generator.RoleSystem, Content: systemPrompt},
		{Role: generator.RoleUser, Content: user},
	}
}

// runSelfReview asks the generator to review its own first candidate.
// Returns passed=true when the reviewer answers LGTM, or a corrected
// document when the reviewer returns one. Transport errors and
// unusable review replies skip the review rather than failing the
// attempt.
func (a *Agent) runSelfReview(ctx context.Context, systemPrompt, xmlDoc string) (passed bool, corrected string, tokens int) {
	messages := []generator.Message{
		{Role: generator.RoleSystem, Content: systemPrompt},
		{Role: generator.RoleUser, Content: a.prompts.RenderSelfReview(xmlDoc)},
	}
	resp, err := a.gen.Generate(ctx, messages)
	if err != nil {
		return true, "", 0
	}
	tokens = resp.Usage.TotalTokens

	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(resp.Content)), "LGTM") {
		return true, "", tokens
	}
	if fixed, ok := gdlxml.Extract(resp.Content); ok {
		return false, fixed, tokens
	}
	return true, "", tokens
}

// cleanup removes the sandbox working root at every terminal state.
func (a *Agent) cleanup() {
	if err := a.sandbox.Cleanup(); err != nil {
		a.logger.Warn("sandbox cleanup failed", zap.Error(err))
	}
}

// artifactNames derives the sandbox file names from the run's paths.
// The output name follows the source stem unless an explicit output
// path overrides it.
func artifactNames(sourcePath, outputPath string) (sourceName, outputName string) {
	sourceName = "current.xml"
	if sourcePath != "" {
		sourceName = filepath.Base(sourcePath)
	}
	if outputPath != "" {
		outputName = filepath.Base(outputPath)
	} else {
		outputName = strings.TrimSuffix(sourceName, filepath.Ext(sourceName)) + ".gsm"
	}
	return sourceName, outputName
}
