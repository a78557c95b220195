// Package resolver resolves GDL macro invocations against an ordered
// list of library source roots. A document's CALL statements are
// scanned, each name is searched for in the roots in order (first match
// wins), and the matching part's parameter signature is returned for
// injection into generation context.
package resolver

import (
	"encoding/xml"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// maxDefinitionChars bounds the definition excerpt carried per record
// so a large macro cannot dominate the generation context.
const maxDefinitionChars = 1200

// callRe matches CALL "name" and CALL name invocation forms.
var callRe = regexp.MustCompile(`(?i)\bCALL[ \t]+(?:"([^"]+)"|([A-Za-z_][A-Za-z0-9_]*))`)

// DependencyRecord describes one resolved macro: where its definition
// lives and the parameter signature a caller must honor.
type DependencyRecord struct {
	Name           string `json:"name"`
	Signature      string `json:"signature"`
	SourceLocation string `json:"source_location"`
	DefinitionText string `json:"definition_text"`
}

// Resolver searches an ordered list of source roots for macro
// definitions. Roots earlier in the list shadow later ones, so a
// project tree placed before the template tree overrides templates.
type Resolver struct {
	roots []string
}

// New creates a Resolver over the given roots, searched in order.
func New(roots ...string) *Resolver {
	return &Resolver{roots: roots}
}

// Roots returns the ordered search roots.
func (r *Resolver) Roots() []string {
	out := make([]string, len(r.roots))
	copy(out, r.roots)
	return out
}

// CallNames extracts the macro names a document invokes, deduplicated,
// in first-appearance order.
func CallNames(document string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range callRe.FindAllStringSubmatch(document, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	return names
}

// Resolve returns a record for every invoked macro that has a
// definition in some root, sorted by name. Names with no definition
// anywhere are omitted; Unresolved surfaces those. Resolving the same
// document twice yields the same result set.
func (r *Resolver) Resolve(document string) []DependencyRecord {
	var records []DependencyRecord
	for _, name := range CallNames(document) {
		if rec, ok := r.ResolveName(name); ok {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records
}

// Unresolved returns the invoked macro names that resolve in no root,
// sorted.
func (r *Resolver) Unresolved(document string) []string {
	var missing []string
	for _, name := range CallNames(document) {
		if _, ok := r.ResolveName(name); !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// ResolveName searches the roots in order for a part file defining the
// named macro. A macro "name" is defined by a file name.xml
// (case-insensitive) anywhere under a root.
func (r *Resolver) ResolveName(name string) (*DependencyRecord, bool) {
	for _, root := range r.roots {
		path, ok := findPartFile(root, name)
		if !ok {
			continue
		}
		rec := &DependencyRecord{
			Name:           name,
			SourceLocation: path,
		}
		if content, err := os.ReadFile(path); err == nil {
			params, section := paramSection(string(content))
			rec.Signature = strings.Join(params, ", ")
			rec.DefinitionText = excerpt(section, maxDefinitionChars)
		}
		return rec, true
	}
	return nil, false
}

// findPartFile walks root looking for <name>.xml, case-insensitively.
// Walk order is lexical, so the first hit is deterministic.
func findPartFile(root, name string) (string, bool) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		base := d.Name()
		ext := filepath.Ext(base)
		if !strings.EqualFold(ext, ".xml") {
			return nil
		}
		if strings.EqualFold(strings.TrimSuffix(base, ext), name) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil || found == "" {
		return "", false
	}
	return found, true
}

// paramSection extracts the parameter names and the raw ParamSection
// text from a part document. Parameter names are the Name attributes of
// elements nested inside ParamSection, in document order.
func paramSection(doc string) (names []string, section string) {
	start := strings.Index(doc, "<ParamSection")
	end := strings.Index(doc, "</ParamSection>")
	if start >= 0 && end > start {
		section = doc[start : end+len("</ParamSection>")]
	}

	dec := xml.NewDecoder(strings.NewReader(doc))
	depth := 0
	seen := make(map[string]bool)
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "ParamSection" {
				depth++
				continue
			}
			if depth == 0 {
				continue
			}
			for _, attr := range el.Attr {
				if attr.Name.Local == "Name" && attr.Value != "" && !seen[attr.Value] {
					seen[attr.Value] = true
					names = append(names, attr.Value)
				}
			}
		case xml.EndElement:
			if el.Name.Local == "ParamSection" {
				depth--
			}
		}
	}
	return names, section
}

func excerpt(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n..."
}

// FormatForPrompt serializes resolved records into a context block the
// generator can use to honor CALL signatures. Returns "" when there is
// nothing to inject.
func FormatForPrompt(records []DependencyRecord) string {
	if len(records) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\n## Available Macros\n\n")
	sb.WriteString("Macros CALLed by this part. Match their parameter signatures exactly.\n")
	for _, rec := range records {
		fmt.Fprintf(&sb, "\n### %s\n", rec.Name)
		fmt.Fprintf(&sb, "Source: %s\n", rec.SourceLocation)
		if rec.Signature != "" {
			fmt.Fprintf(&sb, "Parameters: %s\n", rec.Signature)
		}
		if rec.DefinitionText != "" {
			fmt.Fprintf(&sb, "\n```xml\n%s\n```\n", rec.DefinitionText)
		}
	}
	return sb.String()
}
