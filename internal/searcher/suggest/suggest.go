// Package suggest produces autocomplete terms from the inverted index.
// Terms that start with the partial query rank ahead of terms that merely
// contain it; within each tier the index's term order is kept.
package suggest

import (
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/indexer/index"
)

// MinPrefixLength is the shortest partial query that produces suggestions.
const MinPrefixLength = 2

// Normalize trims and lower-cases a partial query.
func Normalize(partial string) string {
	return strings.ToLower(strings.TrimSpace(partial))
}

// Suggest returns up to limit indexed terms matching partial.
func Suggest(snap *index.Snapshot, partial string, limit int) []string {
	partial = Normalize(partial)
	if limit <= 0 || utf8.RuneCountInString(partial) < MinPrefixLength {
		return []string{}
	}

	prefix := make([]string, 0, limit)
	var contains []string
	for _, term := range snap.Terms() {
		switch {
		case strings.HasPrefix(term, partial):
			prefix = append(prefix, term)
			if len(prefix) == limit {
				return prefix
			}
		case len(contains) < limit && strings.Contains(term, partial):
			contains = append(contains, term)
		}
	}

	out := prefix
	for _, term := range contains {
		if len(out) == limit {
			break
		}
		out = append(out, term)
	}
	return out
}
