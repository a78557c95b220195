package gdlxml

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// diffContext is the number of unchanged lines kept on each side of a
// change; longer unchanged runs are elided.
const diffContext = 2

var dmp = newMatcher()

func newMatcher() *diffmatchpatch.DiffMatchPatch {
	d := diffmatchpatch.New()
	d.DiffTimeout = 0
	return d
}

// Identical reports whether two documents are equal after
// normalization: leading/trailing whitespace trimmed per line and blank
// lines dropped. This backs the idempotence guard, so formatting-only
// variation between candidates does not count as progress.
func Identical(a, b string) bool {
	return normalize(a) == normalize(b)
}

func normalize(s string) string {
	lines := strings.Split(s, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Diff renders a line-level diff from old to new with -/+/space
// prefixes, eliding long unchanged runs. Returns "" when the contents
// are equal.
func Diff(old, new string) string {
	if old == new {
		return ""
	}

	a, b, lineIndex := dmp.DiffLinesToChars(old, new)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	diffs = dmp.DiffCharsToLines(diffs, lineIndex)

	var out []string
	for i, d := range diffs {
		lines := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			for _, line := range lines {
				out = append(out, "-"+line)
			}
		case diffmatchpatch.DiffInsert:
			for _, line := range lines {
				out = append(out, "+"+line)
			}
		default:
			out = appendContext(out, lines, i == 0, i == len(diffs)-1)
		}
	}
	return strings.Join(out, "\n")
}

// appendContext keeps up to diffContext unchanged lines adjacent to a
// change and replaces the elided middle with a "..." marker.
func appendContext(out, lines []string, first, last bool) []string {
	lead, trail := diffContext, diffContext
	if first {
		lead = 0
	}
	if last {
		trail = 0
	}

	if len(lines) <= lead+trail {
		for _, line := range lines {
			out = append(out, " "+line)
		}
		return out
	}

	for _, line := range lines[:lead] {
		out = append(out, " "+line)
	}
	out = append(out, "...")
	for _, line := range lines[len(lines)-trail:] {
		out = append(out, " "+line)
	}
	return out
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
