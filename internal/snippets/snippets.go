// Package snippets carries a built-in library of proven GDL patterns.
// Matched snippets are appended to the system prompt so the generator
// reaches for known-good constructs instead of improvising syntax it
// has rarely seen.
package snippets

import (
	"fmt"
	"sort"
	"strings"
)

// maxMatches caps how many snippets are injected into one prompt.
const maxMatches = 3

// Snippet is one reusable pattern.
type Snippet struct {
	Name     string
	Keywords []string
	Lang     string
	Code     string

	// NewFileOnly restricts the snippet to runs that start from an
	// empty document.
	NewFileOnly bool
}

// Library holds the built-in snippets.
type Library struct {
	snippets []Snippet
}

// NewLibrary returns the built-in pattern library.
func NewLibrary() *Library {
	return &Library{snippets: builtins}
}

// Names returns every snippet name in definition order.
func (l *Library) Names() []string {
	names := make([]string, len(l.snippets))
	for i, s := range l.snippets {
		names[i] = s.Name
	}
	return names
}

// Match selects snippets whose keywords appear in the instruction,
// best matches first. The document only gates NewFileOnly snippets,
// which drop out once a part already exists.
func (l *Library) Match(instruction, document string) []Snippet {
	instr := strings.ToLower(instruction)

	type hit struct {
		count   int
		snippet Snippet
	}
	var hits []hit
	for _, s := range l.snippets {
		if s.NewFileOnly && strings.TrimSpace(document) != "" {
			continue
		}
		count := 0
		for _, kw := range s.Keywords {
			if strings.Contains(instr, kw) {
				count++
			}
		}
		if count > 0 {
			hits = append(hits, hit{count: count, snippet: s})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].count > hits[j].count })
	if len(hits) > maxMatches {
		hits = hits[:maxMatches]
	}

	matched := make([]Snippet, len(hits))
	for i, h := range hits {
		matched[i] = h.snippet
	}
	return matched
}

// FormatForPrompt serializes matched snippets into a prompt block.
// Returns "" when there is nothing to inject.
func FormatForPrompt(matched []Snippet) string {
	if len(matched) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\n## GDL Snippet Patterns\n\n")
	sb.WriteString("Proven patterns relevant to this task. Adapt names to the part's parameters.\n")
	for _, s := range matched {
		lang := s.Lang
		if lang == "" {
			lang = "gdl"
		}
		fmt.Fprintf(&sb, "\n### %s\n\n```%s\n%s\n```\n", s.Name, lang, s.Code)
	}
	return sb.String()
}

var builtins = []Snippet{
	{
		Name:     "parametric_block",
		Keywords: []string{"box", "block", "cube", "rectangular", "slab"},
		Code: `! body driven by the standard a/b/zzyzx envelope
BLOCK a, b, zzyzx`,
	},
	{
		Name:     "conditional_geometry",
		Keywords: []string{"conditional", "toggle", "optional", "switch", "show", "hide"},
		Code: `IF showTop THEN
    ADDz zzyzx - topThickness
    BLOCK a, b, topThickness
    DEL 1
ENDIF`,
	},
	{
		Name:     "shelf_loop",
		Keywords: []string{"shelf", "shelves", "loop", "repeat", "array", "evenly"},
		Code: `FOR i = 1 TO shelfCount
    ADDz i * zzyzx / (shelfCount + 1)
    BLOCK a - 2 * sideThickness, b, shelfThickness
    DEL 1
NEXT i`,
	},
	{
		Name:     "value_list",
		Keywords: []string{"value list", "dropdown", "choice", "options", "preset"},
		Lang:     "gdl",
		Code: `! Script_VL restricts the parameter to listed values
VALUES "frontStyle" "flat", "shaker", "glass"
VALUES "shelfCount" RANGE [1, 10]`,
	},
	{
		Name:     "stretchy_hotspots",
		Keywords: []string{"hotspot", "handle", "stretch", "editable", "grips"},
		Code: `! 2D outline with corner edit handles
HOTSPOT2 0, 0, 1
HOTSPOT2 a, 0, 2
HOTSPOT2 a, b, 3
HOTSPOT2 0, b, 4
RECT2 0, 0, a, b`,
	},
	{
		Name:     "surface_override",
		Keywords: []string{"material", "surface", "texture", "finish"},
		Code: `SET MATERIAL frontMaterial
PRISM_ 4, frontThickness,
    0, 0, 15,
    a, 0, 15,
    a, b, 15,
    0, b, -1`,
	},
	{
		Name:        "part_skeleton",
		Keywords:    []string{"new part", "from scratch", "new file", "create a part"},
		Lang:        "xml",
		NewFileOnly: true,
		Code: `<?xml version="1.0" encoding="UTF-8"?>
<Symbol>
	<ParamSection>
		<Parameter Name="a" Type="Length" Value="1.0"/>
		<Parameter Name="b" Type="Length" Value="0.6"/>
		<Parameter Name="zzyzx" Type="Length" Value="0.8"/>
	</ParamSection>
	<Script_3D><![CDATA[BLOCK a, b, zzyzx]]></Script_3D>
	<Script_2D><![CDATA[RECT2 0, 0, a, b]]></Script_2D>
</Symbol>`,
	},
}
