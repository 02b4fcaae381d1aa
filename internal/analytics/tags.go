package analytics

import (
	"slices"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/indexer/tokenizer"
)

// CountTags counts every tag occurrence across records and returns the full
// ranking: descending count, ties in first-seen order. Tags are counted as
// whole units after trimming and lower-casing; empty tags are skipped.
func CountTags(records []catalog.Record) []catalog.TagFrequency {
	positions := make(map[string]int)
	ranking := make([]catalog.TagFrequency, 0)
	for _, rec := range records {
		for _, tag := range rec.Tags {
			tag = tokenizer.NormalizeTag(tag)
			if tag == "" {
				continue
			}
			if i, seen := positions[tag]; seen {
				ranking[i].Count++
				continue
			}
			positions[tag] = len(ranking)
			ranking = append(ranking, catalog.TagFrequency{Tag: tag, Count: 1})
		}
	}
	// Stable sort keeps first-seen order among equal counts.
	slices.SortStableFunc(ranking, func(a, b catalog.TagFrequency) int {
		return b.Count - a.Count
	})
	return ranking
}

// PopularTags returns the top limit entries of CountTags(records).
func PopularTags(records []catalog.Record, limit int) []catalog.TagFrequency {
	return TopTags(CountTags(records), limit)
}

// TopTags copies the first limit entries of a precomputed ranking.
func TopTags(ranking []catalog.TagFrequency, limit int) []catalog.TagFrequency {
	if limit <= 0 {
		return []catalog.TagFrequency{}
	}
	if limit > len(ranking) {
		limit = len(ranking)
	}
	return slices.Clone(ranking[:limit])
}
