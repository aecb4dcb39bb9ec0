package fields

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Extractor applies a fixed pattern table to document text. It holds only
// compiled, read-only patterns and is safe for concurrent use.
type Extractor struct {
	patterns []compiledPattern
}

// NewExtractor compiles the given table. A nil or empty table uses DefaultPatterns.
func NewExtractor(patterns []Pattern) (*Extractor, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	compiled, err := compilePatterns(patterns)
	if err != nil {
		return nil, err
	}
	return &Extractor{patterns: compiled}, nil
}

// MustNewExtractor is NewExtractor that panics on an invalid table
func MustNewExtractor(patterns []Pattern) *Extractor {
	e, err := NewExtractor(patterns)
	if err != nil {
		panic(err)
	}
	return e
}

// Extract runs every pattern independently against the full text and keeps
// the first match's trimmed capture. Unmatched fields stay empty.
func (e *Extractor) Extract(text string) FieldMap {
	out := NewFieldMap()
	if text == "" {
		return out
	}
	text = norm.NFC.String(text)

	for _, p := range e.patterns {
		m := p.re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		out.Set(p.key, strings.TrimSpace(m[1]))
	}
	return out
}

// Matched returns the keys that Extract would fill for text, in table order
func (e *Extractor) Matched(text string) []Key {
	fm := e.Extract(text)
	var keys []Key
	for _, p := range e.patterns {
		if fm.Get(p.key) != "" {
			keys = append(keys, p.key)
		}
	}
	return keys
}
