package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
)

func tagged(tags ...[]string) []catalog.Record {
	out := make([]catalog.Record, len(tags))
	for i, t := range tags {
		out[i] = catalog.Record{ID: string(rune('a' + i)), Tags: t}
	}
	return out
}

func TestPopularTagsTieByFirstSeen(t *testing.T) {
	records := tagged([]string{"sunset"}, []string{"sunset", "beach"}, []string{"beach"})
	assert.Equal(t, []catalog.TagFrequency{
		{Tag: "sunset", Count: 2},
		{Tag: "beach", Count: 2},
	}, PopularTags(records, 3))
}

func TestCountTagsDescending(t *testing.T) {
	records := tagged(
		[]string{"a", "b"},
		[]string{"c", "b"},
		[]string{"c", "B ", ""},
		[]string{"d"},
	)
	assert.Equal(t, []catalog.TagFrequency{
		{Tag: "b", Count: 3},
		{Tag: "c", Count: 2},
		{Tag: "a", Count: 1},
		{Tag: "d", Count: 1},
	}, CountTags(records))
}

func TestCountTagsCountsRepeatsWithinRecord(t *testing.T) {
	records := tagged([]string{"x", "x"}, []string{"y"})
	assert.Equal(t, 2, CountTags(records)[0].Count)
}

func TestTopTags(t *testing.T) {
	ranking := []catalog.TagFrequency{{Tag: "a", Count: 3}, {Tag: "b", Count: 1}}
	assert.Equal(t, []catalog.TagFrequency{}, TopTags(ranking, 0))
	assert.Equal(t, []catalog.TagFrequency{}, TopTags(ranking, -1))
	assert.Equal(t, ranking[:1], TopTags(ranking, 1))
	assert.Equal(t, ranking, TopTags(ranking, 10))

	top := TopTags(ranking, 1)
	top[0].Count = 99
	assert.Equal(t, 3, ranking[0].Count)
}

func TestCountTagsFoldsCase(t *testing.T) {
	records := tagged([]string{"Sunset"}, []string{"sunset", "Black & White"}, []string{"SUNSET", "black & white"})
	assert.Equal(t, []catalog.TagFrequency{
		{Tag: "sunset", Count: 3},
		{Tag: "black & white", Count: 2},
	}, CountTags(records))
}
