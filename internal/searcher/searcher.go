// Package searcher is the entry point of the media catalog search engine.
// A Searcher owns one index at a time: IndexCatalog replaces it wholesale,
// and Search, Suggest and PopularTags read whichever index is current.
// Independent Searchers share no state.
package searcher

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/searcher/highlight"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/searcher/suggest"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/config"
)

type Searcher struct {
	engine      *indexer.Engine
	executor    *executor.Executor
	suggestions *suggest.Cache
}

func New(cfg config.IndexerConfig) (*Searcher, error) {
	engine := indexer.NewEngine(cfg)
	suggestions, err := suggest.NewCache(engine, cfg.SuggestCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating searcher: %w", err)
	}
	return &Searcher{
		engine:      engine,
		executor:    executor.New(engine),
		suggestions: suggestions,
	}, nil
}

// Engine exposes the underlying index owner, mainly to register rebuild hooks.
func (s *Searcher) Engine() *indexer.Engine {
	return s.engine
}

// IndexCatalog replaces the index with one built from records.
func (s *Searcher) IndexCatalog(records []catalog.Record) indexer.RebuildStats {
	return s.engine.IndexCatalog(records)
}

// Search returns matching records, best score first.
func (s *Searcher) Search(filters catalog.SearchFilters) []catalog.SearchResult {
	return s.executor.Execute(filters)
}

// State returns the current index state. Passing it to SearchAt pins a
// sequence of calls to one catalog version.
func (s *Searcher) State() *indexer.State {
	return s.engine.Current()
}

// SearchAt runs filters against a previously obtained state.
func (s *Searcher) SearchAt(state *indexer.State, filters catalog.SearchFilters) []catalog.SearchResult {
	return executor.Run(state.Snapshot, filters)
}

// Suggest returns up to limit indexed terms for a partial query.
func (s *Searcher) Suggest(partial string, limit int) []string {
	return s.suggestions.Suggest(partial, limit)
}

// SuggestCacheStats returns the suggestion cache hit and miss counters.
func (s *Searcher) SuggestCacheStats() (hits, misses int64) {
	return s.suggestions.Stats()
}

// PopularTags returns the limit most frequent tags in the catalog.
func (s *Searcher) PopularTags(limit int) []catalog.TagFrequency {
	return s.engine.PopularTags(limit)
}

// Highlight marks case-insensitive occurrences of query in text.
func (s *Searcher) Highlight(text, query string) string {
	return highlight.Highlight(text, query)
}
