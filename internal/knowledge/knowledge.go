// Package knowledge loads GDL reference documents and selects the
// ones relevant to an instruction. The docs compensate for how little
// GDL the models saw in training: syntax references, XML structure
// templates, and catalogs of common compile errors, injected into the
// system prompt.
package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// maxRelevantDocs caps how many documents Relevant returns.
const maxRelevantDocs = 3

// Keyword groups that boost topically matching documents.
var (
	errorKeywords    = []string{"error", "bug", "fix", "fail", "wrong"}
	syntaxKeywords   = []string{"prism", "revolve", "extrude", "tube", "syntax", "command"}
	templateKeywords = []string{"xml", "template", "structure"}
)

// Doc is one reference document, named after its file stem.
type Doc struct {
	Name    string
	Content string
}

// Base holds the loaded documents in name order.
type Base struct {
	docs []Doc
}

// Load reads every .md file under dir. A missing directory yields an
// empty base; unreadable files are skipped.
func Load(dir string) *Base {
	base := &Base{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return base
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		base.docs = append(base.docs, Doc{
			Name:    strings.TrimSuffix(entry.Name(), ".md"),
			Content: string(data),
		})
	}
	sort.Slice(base.docs, func(i, j int) bool { return base.docs[i].Name < base.docs[j].Name })
	return base
}

// Count returns the number of loaded documents.
func (b *Base) Count() int {
	return len(b.docs)
}

// Names returns the document names in load order.
func (b *Base) Names() []string {
	names := make([]string, len(b.docs))
	for i, doc := range b.docs {
		names[i] = doc.Name
	}
	return names
}

// All concatenates every document under a "## name" header, separated
// by horizontal rules.
func (b *Base) All() string {
	return render(b.docs)
}

// Relevant scores documents against the query and returns the top
// matches concatenated. Scoring is plain keyword overlap: a query
// word in a document's name counts 10, in its content 1, and topical
// boosts add 20 when an error, syntax, or template query hits a
// document named for that topic. When nothing scores, every document
// is returned rather than none.
func (b *Base) Relevant(query string) string {
	if len(b.docs) == 0 {
		return ""
	}

	queryLower := strings.ToLower(query)
	words := strings.Fields(queryLower)

	type scoredDoc struct {
		score int
		doc   Doc
	}
	var scored []scoredDoc

	for _, doc := range b.docs {
		nameLower := strings.ToLower(doc.Name)
		contentLower := strings.ToLower(doc.Content)

		score := 0
		for _, word := range words {
			if len(word) <= 2 {
				continue
			}
			if strings.Contains(nameLower, word) {
				score += 10
			}
			if strings.Contains(contentLower, word) {
				score++
			}
		}

		if containsAny(queryLower, errorKeywords) &&
			(strings.Contains(nameLower, "error") || strings.Contains(nameLower, "common")) {
			score += 20
		}
		if containsAny(queryLower, syntaxKeywords) &&
			(strings.Contains(nameLower, "reference") || strings.Contains(nameLower, "guide")) {
			score += 20
		}
		if containsAny(queryLower, templateKeywords) &&
			(strings.Contains(nameLower, "template") || strings.Contains(nameLower, "xml")) {
			score += 20
		}

		if score > 0 {
			scored = append(scored, scoredDoc{score: score, doc: doc})
		}
	}

	if len(scored) == 0 {
		return b.All()
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > maxRelevantDocs {
		scored = scored[:maxRelevantDocs]
	}

	docs := make([]Doc, len(scored))
	for i, s := range scored {
		docs[i] = s.doc
	}
	return render(docs)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func render(docs []Doc) string {
	if len(docs) == 0 {
		return ""
	}
	parts := make([]string, len(docs))
	for i, doc := range docs {
		parts[i] = fmt.Sprintf("## %s\n\n%s", doc.Name, doc.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}
