package gdlxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// RootElement is the required document root for libpart XML.
const RootElement = "Symbol"

// scriptRe matches one script section: name, attributes, body. Script
// sections never nest, so the non-greedy body stops at the matching
// closing tag.
var scriptRe = regexp.MustCompile(`(?s)<(Script_\w+)([^>]*)>(.*?)</Script_\w+>`)

var (
	blockIfRe = regexp.MustCompile(`(?im)\bIF\b[^\n]*?\bTHEN[ \t]*\r?$`)
	endifRe   = regexp.MustCompile(`(?i)\bENDIF\b`)
	forRe     = regexp.MustCompile(`(?i)\bFOR\b`)
	nextRe    = regexp.MustCompile(`(?i)\bNEXT\b`)
)

// Validate checks that the document is well-formed XML containing at
// least one element. The returned error carries the parser's diagnosis.
func Validate(doc string) error {
	dec := xml.NewDecoder(strings.NewReader(doc))
	sawElement := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("not well-formed: %w", err)
		}
		if _, ok := tok.(xml.StartElement); ok {
			sawElement = true
		}
	}
	if !sawElement {
		return errors.New("document contains no elements")
	}
	return nil
}

// RootName returns the name of the document's root element.
func RootName(doc string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return "", errors.New("document contains no elements")
		}
		if err != nil {
			return "", fmt.Errorf("not well-formed: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// ValidateStructure applies lightweight GDL structural rules to a
// well-formed document: the root element must be Symbol, and every
// script section must balance its block keywords. A multiline IF (THEN
// at end of line) opens a block that needs an ENDIF; an inline
// "IF x THEN y" does not. Returns one message per issue, nil when clean.
func ValidateStructure(doc string) []string {
	var issues []string

	root, err := RootName(doc)
	if err != nil {
		return []string{err.Error()}
	}
	if root != RootElement {
		issues = append(issues, fmt.Sprintf("root element is %q, want %s", root, RootElement))
	}

	for _, m := range scriptRe.FindAllStringSubmatch(doc, -1) {
		name, body := m[1], m[3]

		ifs := len(blockIfRe.FindAllString(body, -1))
		endifs := len(endifRe.FindAllString(body, -1))
		if ifs != endifs {
			issues = append(issues, fmt.Sprintf(
				"%s: unbalanced IF/ENDIF (%d IF blocks, %d ENDIFs)", name, ifs, endifs))
		}

		fors := len(forRe.FindAllString(body, -1))
		nexts := len(nextRe.FindAllString(body, -1))
		if fors != nexts {
			issues = append(issues, fmt.Sprintf(
				"%s: unbalanced FOR/NEXT (%d FORs, %d NEXTs)", name, fors, nexts))
		}
	}

	return issues
}
