// Package tokenizer provides the text normalization shared by the keyword
// index, the query side of retrieval and the lexical reranker. Documents and
// queries must go through the same normalization or term statistics would
// never line up.
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenize lowercases the text, strips every non-alphanumeric rune to a
// space and splits on whitespace. Returns nil for text with no tokens.
func Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// TokenSet returns the unique tokens of text.
func TokenSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range Tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}
