package gdlxml

import (
	"strings"
)

const cdataOpen = "<![CDATA["

// InjectDebugAnchors prepends a traceable GDL comment naming the
// enclosing section to the body of every script section. Anchors are
// cosmetic: the compiler treats "!" lines as comments, so compile
// semantics are unchanged.
func InjectDebugAnchors(doc string) string {
	return scriptRe.ReplaceAllStringFunc(doc, func(section string) string {
		m := scriptRe.FindStringSubmatch(section)
		if m == nil {
			return section
		}
		name, attrs, body := m[1], m[2], m[3]
		return "<" + name + attrs + ">" + injectAnchor(name, body) + "</" + name + ">"
	})
}

// injectAnchor places the anchor inside a CDATA wrapper when one is
// present, keeping the section's XML shape intact.
func injectAnchor(name, body string) string {
	anchor := "! anchor: " + name + "\n"
	if idx := strings.Index(body, cdataOpen); idx >= 0 && strings.TrimSpace(body[:idx]) == "" {
		at := idx + len(cdataOpen)
		return body[:at] + "\n" + anchor + body[at:]
	}
	return "\n" + anchor + body
}
