// Package gdlxml provides parsing, validation, and diffing for GDL
// libpart XML documents: extracting a document from free-form generator
// output, checking well-formedness and lightweight structural rules,
// normalized equality, and line-level diffs.
package gdlxml

import (
	"regexp"
	"strings"
)

// Prologue is the XML declaration synthesized when a bare <Symbol>
// element is extracted without one.
const Prologue = `<?xml version="1.0" encoding="UTF-8"?>`

var (
	fenceRe  = regexp.MustCompile("(?s)```(?:xml)?[ \t]*\n(.*?)```")
	spanRe   = regexp.MustCompile(`(?s)(<\?xml.*?</Symbol>)`)
	symbolRe = regexp.MustCompile(`(?s)(<Symbol>.*?</Symbol>)`)
)

// Extract locates a libpart document in free-form generator output.
// Layered strategy, first hit wins:
//
//  1. a fenced code block whose content starts with an XML declaration
//     or a <Symbol> element
//  2. the first <?xml ... </Symbol> span
//  3. a bare <Symbol>...</Symbol> span, with a synthesized declaration
//  4. the whole trimmed response, if it already reads as a document
//
// The second return is false when no layer matches.
func Extract(response string) (string, bool) {
	for _, m := range fenceRe.FindAllStringSubmatch(response, -1) {
		candidate := strings.TrimSpace(m[1])
		if looksLikeDocument(candidate) {
			return candidate, true
		}
	}

	if m := spanRe.FindStringSubmatch(response); m != nil {
		return m[1], true
	}

	if m := symbolRe.FindStringSubmatch(response); m != nil {
		return Prologue + "\n" + m[1], true
	}

	trimmed := strings.TrimSpace(response)
	if looksLikeDocument(trimmed) {
		return trimmed, true
	}

	return "", false
}

func looksLikeDocument(s string) bool {
	return strings.HasPrefix(s, "<?xml") || strings.HasPrefix(s, "<Symbol")
}
