package agent

import (
	"partforge/internal/preflight"
)

// Terminal statuses for a run. Every Run ends in exactly one of these.
const (
	StatusSuccess             = "success"              // Candidate compiled and was promoted
	StatusFailed              = "failed"               // Unrecoverable failure mid-run
	StatusExhausted           = "exhausted"            // Attempt budget spent without a compile
	StatusCompilerUnavailable = "compiler_unavailable" // LP_XMLConverter not found
	StatusBlocked             = "blocked"              // Pre-flight analysis refused the run
)

// Pipeline stages an attempt can fail in, in execution order.
const (
	StageSandbox       = "sandbox"
	StageLLMCall       = "llm_call"
	StageXMLExtraction = "xml_extraction"
	StageDiffCheck     = "diff_check"
	StageXMLValidation = "xml_validation"
	StageGDLValidation = "gdl_validation"
	StageCompile       = "compile"
	StagePromote       = "promote"
)

// AttemptRecord captures the outcome of one generate-compile attempt.
// Stage names the step the attempt ended in.
type AttemptRecord struct {
	Attempt    int    `json:"attempt"`
	Stage      string `json:"stage"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Diff       string `json:"diff,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Result contains the outcome of a run.
type Result struct {
	Status          string                    `json:"status"`
	Attempts        int                       `json:"attempts"`
	OutputPath      string                    `json:"output_path,omitempty"`
	ErrorSummary    string                    `json:"error_summary,omitempty"`
	History         []AttemptRecord           `json:"history,omitempty"`
	TotalTokens     int                       `json:"total_tokens"`
	TotalDurationMS int64                     `json:"total_duration_ms"`
	Analysis        *preflight.AnalysisResult `json:"analysis,omitempty"`
}

// Success reports whether the run promoted a compiled artifact.
func (r *Result) Success() bool {
	return r.Status == StatusSuccess
}
