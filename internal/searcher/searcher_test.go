package searcher

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/searcher/highlight"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/config"
)

func newSearcher(t testing.TB) *Searcher {
	t.Helper()
	s, err := New(config.IndexerConfig{SuggestCacheSize: 64})
	require.NoError(t, err)
	return s
}

func mountainCatalog() []catalog.Record {
	return []catalog.Record{
		{ID: "m1", Title: "Mountain Sunset", Tags: []string{"nature", "sunset"}, Gallery: "landscapes"},
	}
}

func TestMountainSunsetScenario(t *testing.T) {
	s := newSearcher(t)
	s.IndexCatalog(mountainCatalog())

	results := s.Search(catalog.SearchFilters{Query: "sunset"})
	require.Len(t, results, 1)
	assert.Equal(t, 18, results[0].Score)
	assert.True(t, results[0].Matches.Title)
	assert.False(t, results[0].Matches.Description)
	assert.Equal(t, []string{"sunset"}, results[0].Matches.Tags)
}

func TestGalleryExcludesOnlyRecord(t *testing.T) {
	s := newSearcher(t)
	s.IndexCatalog(mountainCatalog())
	assert.Empty(t, s.Search(catalog.SearchFilters{Gallery: "urban"}))
}

func testCatalog(n int) []catalog.Record {
	titles := []string{"Mountain Sunset", "City Lights", "Ocean Waves", "Forest Trail", "Desert Dunes"}
	tags := [][]string{{"nature"}, {"urban", "night"}, {"beach", "water"}, {"nature", "trees"}, {}}
	galleries := []string{"landscapes", "urban", "coast"}
	out := make([]catalog.Record, n)
	for i := range out {
		out[i] = catalog.Record{
			ID:          fmt.Sprintf("id-%03d", i),
			Title:       titles[i%len(titles)],
			Description: fmt.Sprintf("Shot number %d of the series", i),
			Tags:        tags[i%len(tags)],
			Gallery:     galleries[i%len(galleries)],
		}
	}
	return out
}

func TestNoFiltersReturnsEveryRecordOnce(t *testing.T) {
	for _, n := range []int{0, 1, 7, 40} {
		t.Run(fmt.Sprintf("records_%d", n), func(t *testing.T) {
			s := newSearcher(t)
			records := testCatalog(n)
			s.IndexCatalog(records)

			results := s.Search(catalog.SearchFilters{})
			require.Len(t, results, n)
			seen := make(map[string]bool, n)
			for i, r := range results {
				assert.Equal(t, records[i].ID, r.Record.ID)
				assert.Equal(t, 0, r.Score)
				assert.False(t, seen[r.Record.ID])
				seen[r.Record.ID] = true
			}
		})
	}
}

func TestTitleMatchScoresAtLeastTen(t *testing.T) {
	s := newSearcher(t)
	records := testCatalog(20)
	s.IndexCatalog(records)

	for _, rec := range records {
		for _, term := range tokenizer.Tokenize(rec.Title) {
			results := s.Search(catalog.SearchFilters{Query: term})
			found := false
			for _, r := range results {
				if r.Record.ID == rec.ID {
					found = true
					assert.GreaterOrEqual(t, r.Score, 10, "query %q record %s", term, rec.ID)
				}
			}
			assert.True(t, found, "query %q missed record %s", term, rec.ID)
		}
	}
}

func TestTagFilterNeverReturnsOtherRecords(t *testing.T) {
	s := newSearcher(t)
	s.IndexCatalog(testCatalog(30))

	filter := []string{"beach", "night"}
	for _, q := range []string{"", "mountain", "shot", "lights"} {
		for _, r := range s.Search(catalog.SearchFilters{Query: q, Tags: filter}) {
			has := false
			for _, tag := range r.Record.Tags {
				if tag == "beach" || tag == "night" {
					has = true
				}
			}
			assert.True(t, has, "record %s has none of %v", r.Record.ID, filter)
		}
	}
}

func TestAllGalleryIsNoFilter(t *testing.T) {
	s := newSearcher(t)
	s.IndexCatalog(testCatalog(15))
	for _, q := range []string{"", "ocean", "shot series"} {
		assert.Equal(t,
			s.Search(catalog.SearchFilters{Query: q}),
			s.Search(catalog.SearchFilters{Query: q, Gallery: "all"}),
		)
	}
}

func TestSuggestPrefixBeforeSubstring(t *testing.T) {
	s := newSearcher(t)
	s.IndexCatalog([]catalog.Record{
		{ID: "1", Title: "important portrait"},
	})
	assert.Equal(t, []string{"portrait", "important"}, s.Suggest("po", 5))
}

func TestPopularTagsSunsetBeach(t *testing.T) {
	s := newSearcher(t)
	s.IndexCatalog([]catalog.Record{
		{ID: "1", Tags: []string{"sunset"}},
		{ID: "2", Tags: []string{"sunset", "beach"}},
		{ID: "3", Tags: []string{"beach"}},
	})
	assert.Equal(t, []catalog.TagFrequency{
		{Tag: "sunset", Count: 2},
		{Tag: "beach", Count: 2},
	}, s.PopularTags(3))
}

func TestHighlightRoundTrip(t *testing.T) {
	s := newSearcher(t)
	texts := []string{
		"Mountain Sunset over the SUNSET strip",
		"No match here",
		"(sun)set [brackets] and regex.chars*",
	}
	for _, text := range texts {
		for _, q := range []string{"sunset", "SUN", "regex.chars*", "(sun)", ""} {
			out := s.Highlight(text, q)
			assert.Equal(t, tokenizer.Tokenize(text), tokenizer.Tokenize(highlight.Strip(out)))
		}
	}
}

func TestQueryBeforeIndexIsEmpty(t *testing.T) {
	s := newSearcher(t)
	assert.Empty(t, s.Search(catalog.SearchFilters{Query: "anything"}))
	assert.Empty(t, s.Search(catalog.SearchFilters{}))
	assert.Empty(t, s.Suggest("an", 5))
	assert.Empty(t, s.PopularTags(5))
}

func TestNegativeLimits(t *testing.T) {
	s := newSearcher(t)
	s.IndexCatalog(testCatalog(10))
	assert.Empty(t, s.Suggest("mo", -1))
	assert.Empty(t, s.PopularTags(-3))
	assert.Empty(t, s.PopularTags(0))
}

func TestSearchersAreIndependent(t *testing.T) {
	a := newSearcher(t)
	b := newSearcher(t)
	a.IndexCatalog(mountainCatalog())
	assert.Len(t, a.Search(catalog.SearchFilters{}), 1)
	assert.Empty(t, b.Search(catalog.SearchFilters{}))
}

func TestSuggestCacheInvalidatedOnRebuild(t *testing.T) {
	s := newSearcher(t)
	s.IndexCatalog([]catalog.Record{{ID: "1", Title: "portrait"}})
	assert.Equal(t, []string{"portrait"}, s.Suggest("po", 5))
	assert.Equal(t, []string{"portrait"}, s.Suggest("po", 5))

	s.IndexCatalog([]catalog.Record{{ID: "1", Title: "pottery"}})
	assert.Equal(t, []string{"pottery"}, s.Suggest("po", 5))

	hits, misses := s.SuggestCacheStats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
}

func TestSearchAtPinsState(t *testing.T) {
	s := newSearcher(t)
	s.IndexCatalog(mountainCatalog())
	state := s.State()
	s.IndexCatalog(nil)

	assert.Len(t, s.SearchAt(state, catalog.SearchFilters{Query: "sunset"}), 1)
	assert.Empty(t, s.Search(catalog.SearchFilters{Query: "sunset"}))
}

func TestConcurrentSearchDuringRebuild(t *testing.T) {
	s := newSearcher(t)
	small, large := testCatalog(5), testCatalog(50)
	s.IndexCatalog(small)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				n := len(s.Search(catalog.SearchFilters{}))
				if n != 5 && n != 50 {
					t.Errorf("saw %d records", n)
					return
				}
				_ = s.Suggest("mo", 3)
				_ = s.PopularTags(2)
			}
		}()
	}
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			s.IndexCatalog(large)
		} else {
			s.IndexCatalog(small)
		}
	}
	wg.Wait()
}

func BenchmarkSearch(b *testing.B) {
	s := newSearcher(b)
	s.IndexCatalog(testCatalog(5000))
	queries := []string{"sunset", "mountain sunset", "shot series number", "ocean"}
	for _, q := range queries {
		b.Run(strings.ReplaceAll(q, " ", "_"), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = s.Search(catalog.SearchFilters{Query: q})
			}
		})
	}
}

func BenchmarkSearchParallel(b *testing.B) {
	s := newSearcher(b)
	s.IndexCatalog(testCatalog(5000))
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = s.Search(catalog.SearchFilters{Query: "forest", Tags: []string{"nature"}})
		}
	})
}
