package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"partforge/internal/agent"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	failColor    = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
	dimColor     = color.New(color.Faint)
)

// eventPrinter renders run events as progress lines. In quiet mode
// nothing is printed; events still reach the run's event log.
type eventPrinter struct {
	out   io.Writer
	quiet bool
}

func (p *eventPrinter) print(e agent.Event) {
	if p.quiet {
		return
	}
	f := e.Fields

	switch e.Name {
	case "start":
		headerColor.Fprintf(p.out, "Run: %v\n", f["instruction"])
		dimColor.Fprintf(p.out, "source %v, max %v attempts\n", f["source"], f["max_iterations"])
	case "compiler_unavailable":
		failColor.Fprintln(p.out, "LP_XMLConverter not available.")
	case "file_read":
		dimColor.Fprintf(p.out, "read %v (%v bytes)\n", f["path"], f["size"])
	case "file_read_error":
		warnColor.Fprintf(p.out, "source read failed: %v\n", f["error"])
	case "analysis_complete":
		fmt.Fprintf(p.out, "analysis: %v\n", f["summary"])
	case "context_sliced":
		dimColor.Fprintf(p.out, "context sliced %v -> %v chars\n", f["original"], f["sliced"])
	case "snippets_matched":
		dimColor.Fprintf(p.out, "snippets: %v\n", f["names"])
	case "deps_resolved":
		dimColor.Fprintf(p.out, "macros resolved: %v\n", f["names"])
	case "attempt_start":
		headerColor.Fprintf(p.out, "attempt %v/%v\n", f["attempt"], f["max_attempts"])
	case "llm_call":
		dimColor.Fprintln(p.out, "  generating...")
	case "llm_error":
		failColor.Fprintf(p.out, "  generation failed: %v\n", f["error"])
	case "xml_extract_failed":
		failColor.Fprintln(p.out, "  response contained no XML document")
	case "identical_retry":
		failColor.Fprintln(p.out, "  candidate identical to previous attempt")
	case "self_review_passed":
		successColor.Fprintln(p.out, "  self-review passed")
	case "self_review_correction":
		warnColor.Fprintln(p.out, "  self-review corrected the candidate")
	case "xml_invalid":
		failColor.Fprintf(p.out, "  XML invalid: %v\n", f["error"])
	case "gdl_issues":
		failColor.Fprintf(p.out, "  GDL issues: %v\n", f["issues"])
	case "validation_passed":
		successColor.Fprintln(p.out, "  validation passed")
	case "debug_anchors_injected":
		dimColor.Fprintln(p.out, "  debug anchors injected")
	case "sandbox_written":
		dimColor.Fprintf(p.out, "  sandbox: %v\n", f["path"])
	case "compile_start":
		dimColor.Fprintln(p.out, "  compiling...")
	case "compile_success":
		successColor.Fprintf(p.out, "  compiled in %vms -> %v\n", f["duration_ms"], f["output"])
	case "compile_failed":
		failColor.Fprintf(p.out, "  compile failed:\n%s\n", indent(fmt.Sprintf("%v", f["error"]), "    "))
	case "promote_failed":
		failColor.Fprintf(p.out, "  promote failed: %v\n", f["error"])
	case "exhausted":
		failColor.Fprintf(p.out, "exhausted after %v attempts\n", f["max_attempts"])
	default:
		dimColor.Fprintf(p.out, "%s %v\n", e.Name, f)
	}
}

// printResult renders the terminal summary for a finished run.
func (p *eventPrinter) printResult(result *agent.Result, runID string) {
	if p.quiet {
		return
	}

	fmt.Fprintln(p.out)
	statusStyle := failColor
	if result.Success() {
		statusStyle = successColor
	}
	statusStyle.Fprintf(p.out, "%s", strings.ToUpper(result.Status))
	fmt.Fprintf(p.out, "  (%d attempt(s), %d tokens, %s)\n",
		result.Attempts, result.TotalTokens, formatMillis(result.TotalDurationMS))

	if result.OutputPath != "" {
		fmt.Fprintf(p.out, "output: %s\n", result.OutputPath)
	}
	if result.ErrorSummary != "" {
		failColor.Fprintf(p.out, "%s\n", result.ErrorSummary)
	}
	dimColor.Fprintf(p.out, "run id: %s\n", runID)
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func formatMillis(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}
