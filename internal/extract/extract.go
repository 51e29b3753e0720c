// Package extract recovers a clean HTML document from raw model output.
// It is purely textual: the document is never parsed as a DOM.
package extract

import (
	"errors"
	"strings"
)

// Sentinel is returned in place of a document when the model produced
// nothing usable. It matches the failure comment the product renders.
const Sentinel = "<!-- Falha ao gerar conteúdo -->"

// ErrNoDocument reports that no document could be recovered. Callers
// decide whether that is fatal; Document still returns the Sentinel.
var ErrNoDocument = errors.New("no html document in model output")

const (
	doctypeMarker = "<!doctype html"
	closeMarker   = "</html>"
)

// Document extracts a single HTML document from raw model text.
//
// The envelope is the first case-insensitive "<!DOCTYPE html" through the
// first case-insensitive "</html>" that follows it, both inclusive. Using
// the first closing tag after the doctype keeps trailing narration the
// model may append out of the result. When no envelope is found the text
// is treated as possibly Markdown-fenced and the fences are stripped.
// Empty input yields the Sentinel and ErrNoDocument.
//
// Document is total: malformed input produces a best-effort substring or
// the Sentinel, never a panic. It is also idempotent over its own output.
func Document(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return Sentinel, ErrNoDocument
	}

	// Both markers are pure ASCII; byte-preserving folding keeps the
	// indices below valid against the original string.
	lower := asciiLower(raw)
	if start := strings.Index(lower, doctypeMarker); start >= 0 {
		if off := strings.Index(lower[start:], closeMarker); off >= 0 {
			end := start + off + len(closeMarker)
			return raw[start:end], nil
		}
	}

	stripped := stripFences(raw)
	if strings.TrimSpace(stripped) == "" {
		return Sentinel, ErrNoDocument
	}
	return stripped, nil
}

// asciiLower lowercases ASCII letters only, leaving every other byte
// untouched so offsets into the result index the input exactly.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// stripFences removes a leading Markdown code fence (optionally tagged
// "html") and a trailing fence, returning whatever remains.
func stripFences(text string) string {
	s := strings.TrimSpace(text)

	if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
		if len(s) >= 4 && strings.EqualFold(s[:4], "html") {
			s = s[4:]
		}
		s = strings.TrimLeft(s, " \t\r\n")
	}
	if strings.HasSuffix(strings.TrimRight(s, " \t\r\n"), "```") {
		s = strings.TrimRight(s, " \t\r\n")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
