package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		in   Signals
		want int
	}{
		{"nothing", Signals{QueryTerms: 1}, 0},
		{"title single term", Signals{TitleMatched: true, QueryTerms: 1}, 15},
		{"title multi term", Signals{TitleMatched: true, QueryTerms: 2}, 10},
		{"description", Signals{DescriptionMatched: true, QueryTerms: 1}, 5},
		{"tags", Signals{MatchedTags: 3, QueryTerms: 2}, 9},
		{"everything", Signals{TitleMatched: true, DescriptionMatched: true, MatchedTags: 1, QueryTerms: 1}, 23},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.in))
		})
	}
}

func result(id string, score int) catalog.SearchResult {
	return catalog.SearchResult{Record: catalog.Record{ID: id}, Score: score}
}

func TestSortIsStableDescending(t *testing.T) {
	results := []catalog.SearchResult{
		result("a", 5), result("b", 18), result("c", 5), result("d", 10), result("e", 18),
	}
	Sort(results)

	order := make([]string, len(results))
	for i, r := range results {
		order[i] = r.Record.ID
	}
	assert.Equal(t, []string{"b", "e", "d", "a", "c"}, order)
}

func TestLimit(t *testing.T) {
	results := []catalog.SearchResult{result("a", 3), result("b", 2), result("c", 1)}
	assert.Len(t, Limit(results, 2), 2)
	assert.Len(t, Limit(results, 10), 3)
	assert.Len(t, Limit(results, 0), 3)
	assert.Len(t, Limit(results, -1), 3)
}
