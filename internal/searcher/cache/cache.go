package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/searcher/parser"
	pkgredis "github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/redis"
)

const keyPrefix = "search:"

// Store is the key-value backend of the cache. *pkgredis.Client satisfies
// it; a missing key must be reported with an error for which
// pkgredis.IsNilError returns true.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// QueryCache stores ranked search results keyed by catalog fingerprint and
// normalised filters. Results for a replaced catalog are never served
// because the fingerprint is part of the key.
type QueryCache struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(store Store, ttl time.Duration) *QueryCache {
	return &QueryCache{
		store:  store,
		ttl:    ttl,
		logger: slog.Default().With("component", "query-cache"),
	}
}

// Get returns cached results for filters, if any.
func (c *QueryCache) Get(ctx context.Context, fingerprint string, filters catalog.SearchFilters, limit int) ([]catalog.SearchResult, bool) {
	key := BuildKey(fingerprint, filters, limit)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var results []catalog.SearchResult
	if err := json.Unmarshal(data, &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", filters.Query, "key", key)
	return results, true
}

// Set stores results for filters. Failures are logged and otherwise ignored.
func (c *QueryCache) Set(ctx context.Context, fingerprint string, filters catalog.SearchFilters, limit int, results []catalog.SearchResult) {
	key := BuildKey(fingerprint, filters, limit)
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute serves filters from the cache or runs computeFn, collapsing
// concurrent misses for the same key into one computation. The boolean
// reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	fingerprint string,
	filters catalog.SearchFilters,
	limit int,
	computeFn func() []catalog.SearchResult,
) ([]catalog.SearchResult, bool) {
	if results, ok := c.Get(ctx, fingerprint, filters, limit); ok {
		return results, true
	}
	key := BuildKey(fingerprint, filters, limit)
	val, _, _ := c.group.Do(key, func() (interface{}, error) {
		results := computeFn()
		c.Set(ctx, fingerprint, filters, limit, results)
		return results, nil
	})
	return val.([]catalog.SearchResult), false
}

// Invalidate deletes every cached search result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BuildKey derives the cache key. Filters that search identically map to the
// same key: query terms and tags are normalised and sorted, and the "all"
// gallery is the same as no gallery.
func BuildKey(fingerprint string, filters catalog.SearchFilters, limit int) string {
	raw := fmt.Sprintf("%s|%s|limit=%d", fingerprint, normalizeFilters(filters), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

func normalizeFilters(filters catalog.SearchFilters) string {
	terms := slices.Clone(parser.Parse(filters.Query).Terms)
	slices.Sort(terms)

	tags := make([]string, 0, len(filters.Tags))
	for _, tag := range filters.Tags {
		if t := tokenizer.NormalizeTag(tag); t != "" {
			tags = append(tags, t)
		}
	}
	slices.Sort(tags)
	tags = slices.Compact(tags)

	gallery := ""
	if filters.HasGallery() {
		gallery = filters.Gallery
	}

	timeRange := ""
	if tr := filters.TimeRange; tr != nil {
		timeRange = tr.Start.UTC().Format(time.RFC3339Nano) + "/" + tr.End.UTC().Format(time.RFC3339Nano)
	}

	return strings.Join([]string{
		"q=" + strings.Join(terms, ","),
		"tags=" + strings.Join(tags, "\x1f"),
		"gallery=" + strconv.Quote(gallery),
		"time=" + timeRange,
	}, "|")
}
