// Package prompts owns the prompt templates for generation, retry,
// and self-review. Defaults are baked into the binary; a project can
// override any of them by dropping a same-named file into its prompts
// directory.
package prompts

import (
	"embed"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

//go:embed defaults
var defaults embed.FS

// Template file names, identical for embedded defaults and overrides.
const (
	SystemFile        = "system.md"
	ErrorAnalysisFile = "error_analysis.md"
	SelfReviewFile    = "self_review.md"
)

// Set holds the three loaded templates.
type Set struct {
	System        string
	ErrorAnalysis string
	SelfReview    string
}

// Load returns the prompt set for a project. Each template comes from
// dir when a readable override exists there, otherwise from the
// embedded default. A missing or empty dir therefore still yields a
// complete set.
func Load(dir string) *Set {
	return &Set{
		System:        load(dir, SystemFile),
		ErrorAnalysis: load(dir, ErrorAnalysisFile),
		SelfReview:    load(dir, SelfReviewFile),
	}
}

func load(dir, name string) string {
	if dir != "" {
		if data, err := os.ReadFile(filepath.Join(dir, name)); err == nil {
			return string(data)
		}
	}
	data, err := defaults.ReadFile("defaults/" + name)
	if err != nil {
		return ""
	}
	return string(data)
}

// RenderSystem fills the {knowledge} placeholder.
func (s *Set) RenderSystem(knowledge string) string {
	return strings.ReplaceAll(s.System, "{knowledge}", knowledge)
}

// RenderErrorAnalysis fills the retry template's placeholders.
func (s *Set) RenderErrorAnalysis(errMsg string, attempt, maxAttempts int, previousCode string) string {
	if errMsg == "" {
		errMsg = "Unknown error"
	}
	if previousCode == "" {
		previousCode = "(not available)"
	}
	return strings.NewReplacer(
		"{error}", errMsg,
		"{attempt}", strconv.Itoa(attempt),
		"{max_attempts}", strconv.Itoa(maxAttempts),
		"{previous_code}", previousCode,
	).Replace(s.ErrorAnalysis)
}

// RenderSelfReview fills the {generated_xml} placeholder.
func (s *Set) RenderSelfReview(generatedXML string) string {
	return strings.ReplaceAll(s.SelfReview, "{generated_xml}", generatedXML)
}
