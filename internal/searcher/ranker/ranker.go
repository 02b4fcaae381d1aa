package ranker

import (
	"slices"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
)

// Field weights of the relevance heuristic.
const (
	TitleWeight          = 10
	DescriptionWeight    = 5
	TagWeight            = 3
	SingleTermTitleBonus = 5
)

// Signals are the per-record match facts that feed Score.
type Signals struct {
	TitleMatched       bool
	DescriptionMatched bool
	MatchedTags        int
	QueryTerms         int
}

// Score combines match signals into a relevance score. The single-term bonus
// stacks on top of the title weight.
func Score(s Signals) int {
	score := 0
	if s.TitleMatched {
		score += TitleWeight
		if s.QueryTerms == 1 {
			score += SingleTermTitleBonus
		}
	}
	if s.DescriptionMatched {
		score += DescriptionWeight
	}
	score += s.MatchedTags * TagWeight
	return score
}

// Sort orders results by score, highest first. Equal scores keep their
// relative input order.
func Sort(results []catalog.SearchResult) {
	slices.SortStableFunc(results, func(a, b catalog.SearchResult) int {
		return b.Score - a.Score
	})
}

// Limit truncates results to at most limit entries. A limit of zero or less
// leaves the slice untouched.
func Limit(results []catalog.SearchResult, limit int) []catalog.SearchResult {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
