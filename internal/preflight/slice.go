// Package preflight provides the feasibility pass that runs before any
// generation cost is incurred: hard-blocker detection, a complexity
// estimate, unresolved-macro discovery, and context slicing that trims
// the document shown to the generator down to the sections an
// instruction concerns.
package preflight

import (
	"fmt"
	"regexp"
)

// minSliceSize is the document size below which slicing is not worth
// the risk of dropping context.
const minSliceSize = 4096

// sectionNames lists the top-level libpart sections the slicer knows
// how to carve out. Unknown sections are always retained.
var sectionNames = []string{
	"Script_1D",
	"Script_2D",
	"Script_3D",
	"Script_PR",
	"Script_UI",
	"Script_VL",
	"ParamSection",
	"MigrationTable",
	"Copyright",
	"Picture",
	"Keywords",
}

// mandatorySections are always retained in a slice regardless of what
// the instruction asks for.
var mandatorySections = map[string]bool{
	"ParamSection": true,
}

// keywordSections maps instruction vocabulary to the section it
// concerns. Keywords are matched on word boundaries.
var keywordSections = []struct {
	section  string
	keywords []string
}{
	{"Script_3D", []string{"3d", "model", "body", "geometry", "solid", "extrude"}},
	{"Script_2D", []string{"2d", "plan", "symbol", "outline", "hotspot"}},
	{"Script_UI", []string{"ui", "dialog", "interface", "tab page"}},
	{"Script_1D", []string{"master", "variable", "initialization"}},
	{"Script_PR", []string{"property", "properties", "listing"}},
	{"Script_VL", []string{"value list", "range check"}},
	{"ParamSection", []string{"parameter", "parameters", "default value"}},
}

// ContextSlice is the reduced view of a document shown to the
// generator. The full text is retained for final write-back; only the
// counts and the IsFull flag are persisted.
type ContextSlice struct {
	FullText    string `json:"-"`
	SlicedText  string `json:"-"`
	TotalChars  int    `json:"total_chars"`
	SlicedChars int    `json:"sliced_chars"`
	IsFull      bool   `json:"is_full"`
}

// Text returns the content to show the generator: the sliced view when
// a reduction was possible, the full document otherwise.
func (c *ContextSlice) Text() string {
	if c.IsFull {
		return c.FullText
	}
	return c.SlicedText
}

// Savings returns the percentage of characters the slice removed.
func (c *ContextSlice) Savings() float64 {
	if c.TotalChars == 0 || c.IsFull {
		return 0
	}
	return 100 * (1 - float64(c.SlicedChars)/float64(c.TotalChars))
}

// SliceContext selects the minimal relevant subset of a document for
// an instruction. Sections the instruction concerns are retained along
// with mandatory sections; every other known section is replaced by an
// omission marker. IsFull is set when no safe reduction exists: the
// document is small, no keyword maps to a section, or a targeted
// section is missing from the document.
func SliceContext(instruction, document string) *ContextSlice {
	full := &ContextSlice{
		FullText:    document,
		SlicedText:  document,
		TotalChars:  len(document),
		SlicedChars: len(document),
		IsFull:      true,
	}

	if len(document) < minSliceSize {
		return full
	}

	targeted := matchSections(instruction)
	if len(targeted) == 0 {
		return full
	}
	for section := range targeted {
		if !hasSection(document, section) {
			return full
		}
	}

	sliced := document
	for _, name := range sectionNames {
		if mandatorySections[name] || targeted[name] {
			continue
		}
		sliced = omitSection(sliced, name)
	}

	if len(sliced) >= len(document) {
		return full
	}

	return &ContextSlice{
		FullText:    document,
		SlicedText:  sliced,
		TotalChars:  len(document),
		SlicedChars: len(sliced),
		IsFull:      false,
	}
}

// matchSections returns the set of sections the instruction's
// vocabulary points at.
func matchSections(instruction string) map[string]bool {
	matched := make(map[string]bool)
	for _, group := range keywordSections {
		for _, kw := range group.keywords {
			re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
			if re.MatchString(instruction) {
				matched[group.section] = true
				break
			}
		}
	}
	return matched
}

func hasSection(document, name string) bool {
	_, _, ok := sectionSpan(document, name)
	return ok
}

// sectionSpan locates the byte range of one named section, from its
// opening tag through its closing tag.
func sectionSpan(document, name string) (start, end int, ok bool) {
	re := regexp.MustCompile(`(?s)<` + name + `[ \t>].*?</` + name + `>`)
	loc := re.FindStringIndex(document)
	if loc == nil {
		// Self-closing form.
		re = regexp.MustCompile(`<` + name + `[^>]*/>`)
		loc = re.FindStringIndex(document)
	}
	if loc == nil {
		return 0, 0, false
	}
	return loc[0], loc[1], true
}

// omitSection replaces a section with a marker so the generator knows
// content was withheld.
func omitSection(document, name string) string {
	start, end, ok := sectionSpan(document, name)
	if !ok {
		return document
	}
	marker := fmt.Sprintf("<!-- %s omitted -->", name)
	return document[:start] + marker + document[end:]
}

// describeSlice renders the one-line summary fragment for a slice.
func describeSlice(slice *ContextSlice) string {
	if slice.IsFull {
		return "full document context"
	}
	return fmt.Sprintf("context sliced %d -> %d chars (%.0f%% saved)",
		slice.TotalChars, slice.SlicedChars, slice.Savings())
}
