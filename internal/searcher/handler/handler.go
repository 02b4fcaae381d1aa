// Package handler exposes the search engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog/refresh"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog/validator"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/middleware"
)

const maxCatalogBodyBytes = 64 << 20

// Engine is the search surface the handler serves. *searcher.Searcher
// satisfies it.
type Engine interface {
	State() *indexer.State
	SearchAt(state *indexer.State, filters catalog.SearchFilters) []catalog.SearchResult
	Suggest(partial string, limit int) []string
	SuggestCacheStats() (hits, misses int64)
	PopularTags(limit int) []catalog.TagFrequency
	Highlight(text, query string) string
	IndexCatalog(records []catalog.Record) indexer.RebuildStats
}

// Reloader reloads the catalog from its store. *refresh.Refresher satisfies it.
type Reloader interface {
	Refresh(ctx context.Context, reason string) (indexer.RebuildStats, error)
	Status() refresh.Status
}

// Options holds the optional collaborators of a Handler. Nil fields disable
// the corresponding feature.
type Options struct {
	Cache     *cache.QueryCache
	Collector *analytics.Collector
	Reloader  Reloader
	Metrics   *metrics.Metrics
}

type Handler struct {
	engine    Engine
	cache     *cache.QueryCache
	collector *analytics.Collector
	reloader  Reloader
	metrics   *metrics.Metrics
	cfg       config.SearchConfig
	logger    *slog.Logger
}

func New(engine Engine, cfg config.SearchConfig, opts Options) *Handler {
	return &Handler{
		engine:    engine,
		cache:     opts.Cache,
		collector: opts.Collector,
		reloader:  opts.Reloader,
		metrics:   opts.Metrics,
		cfg:       cfg,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every endpoint on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/suggest", h.Suggest)
	mux.HandleFunc("GET /api/v1/tags/popular", h.PopularTags)
	mux.HandleFunc("GET /api/v1/highlight", h.Highlight)
	mux.HandleFunc("POST /api/v1/catalog", h.ReplaceCatalog)
	mux.HandleFunc("POST /api/v1/catalog/reload", h.ReloadCatalog)
	mux.HandleFunc("GET /api/v1/catalog/status", h.CatalogStatus)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type searchHit struct {
	catalog.SearchResult
	Highlights *highlights `json:"highlights,omitempty"`
}

type highlights struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type searchResponse struct {
	Query      string      `json:"query"`
	Terms      []string    `json:"terms"`
	TotalHits  int         `json:"total_hits"`
	Results    []searchHit `json:"results"`
	Generation uint64      `json:"generation"`
	CacheHit   bool        `json:"cache_hit"`
	LatencyMs  float64     `json:"latency_ms"`
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	filters, err := parseFilters(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"), h.cfg.DefaultLimit, h.cfg.MaxResults)
	if err != nil {
		h.writeError(w, err)
		return
	}
	withHighlights := r.URL.Query().Get("highlight") == "true"

	plan := parser.Parse(filters.Query)
	state := h.engine.State()

	var results []catalog.SearchResult
	cacheHit := false
	cacheStatus := "disabled"
	if h.cache != nil {
		// The full ranked list is cached so that every limit shares one entry.
		results, cacheHit = h.cache.GetOrCompute(ctx, state.Fingerprint, filters, 0, func() []catalog.SearchResult {
			return h.engine.SearchAt(state, filters)
		})
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		results = h.engine.SearchAt(state, filters)
	}

	total := len(results)
	page := ranker.Limit(results, limit)
	hits := make([]searchHit, len(page))
	for i, res := range page {
		hits[i] = searchHit{SearchResult: res}
		if withHighlights && !plan.IsEmpty() {
			hits[i].Highlights = &highlights{
				Title:       h.engine.Highlight(res.Record.Title, filters.Query),
				Description: h.engine.Highlight(res.Record.Description, filters.Query),
			}
		}
	}

	latency := time.Since(start)
	eventType := analytics.EventSearch
	switch {
	case plan.IsEmpty():
		eventType = analytics.EventFilterOnly
	case total == 0:
		eventType = analytics.EventZeroResult
	}
	if h.metrics != nil {
		resultType := "ranked"
		switch eventType {
		case analytics.EventFilterOnly:
			resultType = "filter_only"
		case analytics.EventZeroResult:
			resultType = "zero_result"
		}
		h.metrics.ObserveSearch(resultType, cacheStatus, total, latency)
		switch cacheStatus {
		case "hit":
			h.metrics.CacheHitsTotal.Inc()
		case "miss":
			h.metrics.CacheMissesTotal.Inc()
		}
	}
	if h.collector != nil {
		h.collector.Track(analytics.SearchEvent{
			Type:       eventType,
			Query:      filters.Query,
			Terms:      plan.Terms,
			Tags:       filters.Tags,
			Gallery:    filters.Gallery,
			TotalHits:  total,
			Returned:   len(hits),
			LatencyUs:  latency.Microseconds(),
			CacheHit:   cacheHit,
			Generation: state.Generation,
			Timestamp:  time.Now().UTC(),
			RequestID:  middleware.GetRequestID(ctx),
		})
	}

	log.Info("search completed",
		"query", filters.Query,
		"total_hits", total,
		"returned", len(hits),
		"cache", cacheStatus,
		"latency_ms", latency.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, searchResponse{
		Query:      filters.Query,
		Terms:      nonNil(plan.Terms),
		TotalHits:  total,
		Results:    hits,
		Generation: state.Generation,
		CacheHit:   cacheHit,
		LatencyMs:  float64(latency.Microseconds()) / 1000,
	})
}

func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	partial := r.URL.Query().Get("q")
	limit, err := parseLimit(r.URL.Query().Get("limit"), h.cfg.DefaultSuggestLimit, h.cfg.MaxSuggestLimit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	suggestions := h.engine.Suggest(partial, limit)
	if h.metrics != nil {
		h.metrics.SuggestRequestsTotal.Inc()
	}
	if h.collector != nil {
		h.collector.Track(analytics.SearchEvent{
			Type:      analytics.EventSuggest,
			Query:     partial,
			TotalHits: len(suggestions),
			Returned:  len(suggestions),
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(r.Context()),
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"query":       partial,
		"suggestions": suggestions,
	})
}

func (h *Handler) PopularTags(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"), h.cfg.DefaultPopularTags, 0)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"tags": h.engine.PopularTags(limit),
	})
}

func (h *Handler) Highlight(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	query := r.URL.Query().Get("q")
	h.writeJSON(w, http.StatusOK, map[string]string{
		"text":        text,
		"query":       query,
		"highlighted": h.engine.Highlight(text, query),
	})
}

// ReplaceCatalog indexes the JSON array of records in the request body.
func (h *Handler) ReplaceCatalog(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxCatalogBodyBytes)

	var records []catalog.Record
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		h.writeError(w, apperrors.InvalidInputf("invalid catalog body: %v", err))
		return
	}
	if err := validator.ValidateCatalog(records); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "invalid catalog",
				"fields": verr.Fields,
			})
			return
		}
		h.writeError(w, err)
		return
	}

	stats := h.engine.IndexCatalog(records)
	log.Info("catalog replaced via api", "records", stats.Records, "generation", stats.Generation)
	h.writeJSON(w, http.StatusOK, rebuildResponse(stats))
}

func (h *Handler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		h.writeError(w, apperrors.New(apperrors.ErrCatalogUnavailable, http.StatusServiceUnavailable, "catalog store is not configured"))
		return
	}
	stats, err := h.reloader.Refresh(r.Context(), "api")
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rebuildResponse(stats))
}

func (h *Handler) CatalogStatus(w http.ResponseWriter, r *http.Request) {
	state := h.engine.State()
	resp := map[string]any{
		"generation":  state.Generation,
		"fingerprint": state.Fingerprint,
		"records":     state.Snapshot.DocCount(),
		"terms":       state.Snapshot.TermCount(),
	}
	if h.reloader != nil {
		resp["refresh"] = h.reloader.Status()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	suggestHits, suggestMisses := h.engine.SuggestCacheStats()
	resp := map[string]any{
		"suggest": cacheStats(suggestHits, suggestMisses),
	}
	if h.cache == nil {
		resp["search"] = map[string]string{"status": "disabled"}
	} else {
		hits, misses := h.cache.Stats()
		resp["search"] = cacheStats(hits, misses)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrCacheUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, fmt.Errorf("%w: %w", apperrors.ErrCacheUnavailable, err))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func cacheStats(hits, misses int64) map[string]any {
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	return map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	}
}

func rebuildResponse(stats indexer.RebuildStats) map[string]any {
	return map[string]any{
		"generation":  stats.Generation,
		"fingerprint": stats.Fingerprint,
		"records":     stats.Records,
		"terms":       stats.Terms,
		"duration_ms": stats.Duration.Milliseconds(),
	}
}

// parseFilters reads q, tags, gallery, from and to. Tags may be repeated or
// comma separated.
func parseFilters(r *http.Request) (catalog.SearchFilters, error) {
	q := r.URL.Query()
	filters := catalog.SearchFilters{
		Query:   q.Get("q"),
		Gallery: strings.TrimSpace(q.Get("gallery")),
	}
	for _, raw := range q["tags"] {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filters.Tags = append(filters.Tags, tag)
			}
		}
	}

	from, to := q.Get("from"), q.Get("to")
	if from == "" && to == "" {
		return filters, nil
	}
	if from == "" || to == "" {
		return filters, apperrors.InvalidInputf("from and to must be given together")
	}
	start, err := time.Parse(time.RFC3339, from)
	if err != nil {
		return filters, apperrors.InvalidInputf("from must be an RFC 3339 timestamp")
	}
	end, err := time.Parse(time.RFC3339, to)
	if err != nil {
		return filters, apperrors.InvalidInputf("to must be an RFC 3339 timestamp")
	}
	if end.Before(start) {
		return filters, apperrors.InvalidInputf("to must not be before from")
	}
	filters.TimeRange = &catalog.TimeRange{Start: start, End: end}
	return filters, nil
}

// parseLimit returns def for an empty value and caps the result at maxLimit
// when maxLimit is positive.
func parseLimit(raw string, def, maxLimit int) (int, error) {
	limit := def
	if raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return 0, apperrors.InvalidInputf("limit must be a positive integer")
		}
		limit = parsed
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return limit, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "status", status, "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": apperrors.Message(err)})
}
