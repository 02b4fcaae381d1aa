package executor

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/searcher/ranker"
)

type Executor struct {
	engine *indexer.Engine
	logger *slog.Logger
}

func New(engine *indexer.Engine) *Executor {
	return &Executor{
		engine: engine,
		logger: slog.Default().With("component", "query-executor"),
	}
}

// Execute runs filters against the engine's current index.
func (e *Executor) Execute(filters catalog.SearchFilters) []catalog.SearchResult {
	state := e.engine.Current()
	results := Run(state.Snapshot, filters)
	e.logger.Debug("query executed",
		"query", filters.Query,
		"generation", state.Generation,
		"results", len(results),
	)
	return results
}

// Run applies the structural filters to every record of snap and, when the
// query has terms, scores and ranks what survives. Without query terms the
// filtered records are returned unscored in catalog order.
func Run(snap *index.Snapshot, filters catalog.SearchFilters) []catalog.SearchResult {
	candidates := filterRecords(snap, filters)
	plan := parser.Parse(filters.Query)
	if plan.IsEmpty() {
		results := make([]catalog.SearchResult, 0, len(candidates))
		for _, i := range candidates {
			results = append(results, catalog.SearchResult{
				Record:  snap.Records()[i],
				Matches: catalog.MatchDetail{Tags: []string{}},
			})
		}
		return results
	}

	results := make([]catalog.SearchResult, 0)
	for _, i := range candidates {
		matches := matchRecord(snap.Fields(i), plan.Terms)
		score := ranker.Score(ranker.Signals{
			TitleMatched:       matches.Title,
			DescriptionMatched: matches.Description,
			MatchedTags:        len(matches.Tags),
			QueryTerms:         len(plan.Terms),
		})
		if score == 0 {
			continue
		}
		results = append(results, catalog.SearchResult{
			Record:  snap.Records()[i],
			Score:   score,
			Matches: matches,
		})
	}
	ranker.Sort(results)
	return results
}

// filterRecords returns the catalog positions of records that pass every
// structural filter. Filters combine with AND; the tag filter is an OR over
// its own members.
func filterRecords(snap *index.Snapshot, filters catalog.SearchFilters) []int {
	tagFilter := make(map[string]struct{}, len(filters.Tags))
	for _, tag := range filters.Tags {
		if t := tokenizer.NormalizeTag(tag); t != "" {
			tagFilter[t] = struct{}{}
		}
	}

	records := snap.Records()
	candidates := tagCandidates(snap, tagFilter)
	if candidates == nil {
		candidates = make([]int, len(records))
		for i := range candidates {
			candidates[i] = i
		}
	}
	out := make([]int, 0, len(candidates))
	for _, i := range candidates {
		rec := records[i]
		if filters.HasGallery() && rec.Gallery != filters.Gallery {
			continue
		}
		if filters.TimeRange != nil && !filters.TimeRange.Contains(rec.CreatedAt) {
			continue
		}
		if len(tagFilter) > 0 && !hasAnyTag(snap.Fields(i).Tags, tagFilter) {
			continue
		}
		out = append(out, i)
	}
	return out
}

// tagCandidates narrows the scan to records indexed under one of the filter
// tags, in catalog order. Postings also hold title and description terms, so
// candidates still go through hasAnyTag. It returns nil without a tag filter.
func tagCandidates(snap *index.Snapshot, tagFilter map[string]struct{}) []int {
	if len(tagFilter) == 0 {
		return nil
	}
	seen := make(map[int]struct{})
	out := []int{}
	for tag := range tagFilter {
		for _, i := range snap.Positions(tag) {
			if _, dup := seen[i]; !dup {
				seen[i] = struct{}{}
				out = append(out, i)
			}
		}
	}
	slices.Sort(out)
	return out
}

func hasAnyTag(tags []string, want map[string]struct{}) bool {
	for _, tag := range tags {
		if _, ok := want[tag]; ok {
			return true
		}
	}
	return false
}

// matchRecord compares query terms against one record. Title and description
// need an exact term; a tag matches when any query term is a substring of it.
func matchRecord(fields index.RecordTerms, terms []string) catalog.MatchDetail {
	m := catalog.MatchDetail{Tags: []string{}}
	for _, term := range terms {
		if fields.Title.Has(term) {
			m.Title = true
		}
		if fields.Description.Has(term) {
			m.Description = true
		}
	}
	for j, tag := range fields.Tags {
		for _, term := range terms {
			if strings.Contains(tag, term) {
				m.Tags = append(m.Tags, fields.TagLabels[j])
				break
			}
		}
	}
	return m
}
