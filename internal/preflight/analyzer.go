package preflight

import (
	"fmt"
	"regexp"
	"strings"

	"partforge/internal/resolver"
)

// Complexity estimates how hard an instruction is for the generator.
type Complexity string

const (
	ComplexityTrivial  Complexity = "trivial"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Thresholds for the complexity estimate.
const (
	trivialInstructionChars = 80
	trivialDocumentChars    = 2000
	complexInstructionChars = 400
	complexDocumentChars    = 20000
)

// instructionMacroRe finds macros the instruction itself names, e.g.
// `call "shelf_unit"` or `use macro "leg_profile"`.
var instructionMacroRe = regexp.MustCompile(`(?i)\b(?:call|macro)\s+"([^"]+)"`)

// AnalysisResult is the feasibility verdict produced exactly once per
// run. Blockers is non-empty exactly when Feasible is false.
type AnalysisResult struct {
	Feasible         bool          `json:"feasible"`
	Blockers         []string      `json:"blockers,omitempty"`
	Complexity       Complexity    `json:"complexity"`
	Summary          string        `json:"summary"`
	UnresolvedMacros []string      `json:"unresolved_macros,omitempty"`
	ContextSlice     *ContextSlice `json:"context_slice,omitempty"`
}

// Analyzer composes the resolver, the slicer, and the blocker rule set
// into one pass that runs before any generator or compiler call.
type Analyzer struct {
	resolver *resolver.Resolver
}

// NewAnalyzer creates an Analyzer over the given resolver.
func NewAnalyzer(r *resolver.Resolver) *Analyzer {
	return &Analyzer{resolver: r}
}

// Analyze produces the run's AnalysisResult. Hard blockers: an empty
// instruction, or a macro the instruction names that resolves in no
// source root. Macros the existing document CALLs without a resolvable
// signature are surfaced as UnresolvedMacros but do not block.
func (a *Analyzer) Analyze(instruction, document string) *AnalysisResult {
	var blockers []string

	if strings.TrimSpace(instruction) == "" {
		blockers = append(blockers, "instruction is empty")
	}

	for _, name := range instructionMacros(instruction) {
		if _, ok := a.resolver.ResolveName(name); !ok {
			blockers = append(blockers, fmt.Sprintf(
				"macro %q is not defined in any source root", name))
		}
	}

	unresolved := a.resolver.Unresolved(document)
	slice := SliceContext(instruction, document)

	result := &AnalysisResult{
		Feasible:         len(blockers) == 0,
		Blockers:         blockers,
		Complexity:       estimateComplexity(instruction, document, unresolved),
		UnresolvedMacros: unresolved,
		ContextSlice:     slice,
	}
	result.Summary = summarize(result, slice)
	return result
}

func instructionMacros(instruction string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range instructionMacroRe.FindAllStringSubmatch(instruction, -1) {
		key := strings.ToLower(m[1])
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, m[1])
	}
	return names
}

func estimateComplexity(instruction, document string, unresolved []string) Complexity {
	switch {
	case len(unresolved) > 0,
		len(instruction) > complexInstructionChars,
		len(document) > complexDocumentChars:
		return ComplexityComplex
	case len(instruction) < trivialInstructionChars && len(document) < trivialDocumentChars:
		return ComplexityTrivial
	default:
		return ComplexityModerate
	}
}

func summarize(result *AnalysisResult, slice *ContextSlice) string {
	if !result.Feasible {
		return fmt.Sprintf("blocked: %s", strings.Join(result.Blockers, "; "))
	}
	parts := []string{fmt.Sprintf("feasible, %s complexity", result.Complexity)}
	if n := len(result.UnresolvedMacros); n > 0 {
		parts = append(parts, fmt.Sprintf("%d unresolved macro(s)", n))
	}
	parts = append(parts, describeSlice(slice))
	return strings.Join(parts, ", ")
}
