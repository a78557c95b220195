// Package compiler wraps the LP_XMLConverter toolchain that turns GDL
// XML source into .gsm library parts. Implementations never return Go
// errors from Compile or Decompile: unavailability, timeouts, and
// spawn failures are Result states with negative exit codes, so the
// caller handles every outcome through one type.
package compiler

import (
	"context"
	"strings"
)

// Synthetic exit codes for failures that never reached the converter.
const (
	ExitUnavailable  = -1
	ExitTimeout      = -2
	ExitSpawnFailure = -3
)

// Result captures one converter invocation.
type Result struct {
	Success    bool     `json:"success"`
	Stdout     string   `json:"stdout,omitempty"`
	Stderr     string   `json:"stderr,omitempty"`
	ExitCode   int      `json:"exit_code"`
	DurationMS int64    `json:"duration_ms"`
	OutputPath string   `json:"output_path,omitempty"`
	Command    []string `json:"command,omitempty"`
}

// Summary condenses converter output to its first five non-empty
// lines, preferring stderr over stdout. The condensed form is what
// attempt records and retry prompts carry.
func (r *Result) Summary() string {
	src := r.Stderr
	if src == "" {
		src = r.Stdout
	}
	if src == "" {
		return ""
	}
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(src), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == 5 {
			break
		}
	}
	return strings.Join(lines, "\n")
}

// Compiler is the capability the agent loop compiles through.
type Compiler interface {
	// Available reports whether the converter can be invoked at all.
	Available() bool

	// Compile builds source into a library part at output.
	Compile(ctx context.Context, source, output string) *Result

	// Decompile extracts a library part back into XML source under
	// outputDir.
	Decompile(ctx context.Context, artifact, outputDir string) *Result
}
