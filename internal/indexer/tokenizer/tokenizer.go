// Package tokenizer provides text tokenisation for the search engine.
// It splits input on whitespace, strips non-word characters from each
// fragment, drops single-character fragments, and lower-cases the rest.
// Indexing and querying both go through Tokenize so that index-time and
// query-time terms are always comparable.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenize breaks text into normalised terms. Empty input yields nil.
func Tokenize(text string) []string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		term := normalize(field)
		if utf8.RuneCountInString(term) < 2 {
			continue
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return nil
	}
	return terms
}

// NormalizeTag returns the index form of a tag. Tags are atomic terms and are
// never split or stripped, only trimmed and lower-cased.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// normalize removes every rune that is not a word character and lower-cases
// what is left.
func normalize(fragment string) string {
	var b strings.Builder
	b.Grow(len(fragment))
	for _, r := range fragment {
		if isWordRune(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
