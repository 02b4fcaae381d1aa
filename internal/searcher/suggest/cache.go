package suggest

import (
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/indexer"
)

// DefaultCacheSize is used when the configured size is not positive.
const DefaultCacheSize = 1024

// Cache memoises suggestions for the engine's current index. Keys include
// the index generation, so entries from a replaced catalog are never served.
type Cache struct {
	engine *indexer.Engine
	lru    *lru.Cache[string, []string]
	hits   atomic.Int64
	misses atomic.Int64
	logger *slog.Logger
}

func NewCache(engine *indexer.Engine, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	l, err := lru.New[string, []string](size)
	if err != nil {
		return nil, fmt.Errorf("creating suggestion cache: %w", err)
	}
	c := &Cache{
		engine: engine,
		lru:    l,
		logger: slog.Default().With("component", "suggest-cache"),
	}
	engine.OnRebuild(func(stats indexer.RebuildStats) {
		c.lru.Purge()
		c.logger.Debug("suggestion cache purged", "generation", stats.Generation)
	})
	return c, nil
}

// Suggest returns suggestions for partial, computing them on a miss.
func (c *Cache) Suggest(partial string, limit int) []string {
	state := c.engine.Current()
	key := fmt.Sprintf("%d|%d|%s", state.Generation, limit, Normalize(partial))
	if terms, ok := c.lru.Get(key); ok {
		c.hits.Add(1)
		return slices.Clone(terms)
	}
	c.misses.Add(1)
	terms := Suggest(state.Snapshot, partial, limit)
	c.lru.Add(key, terms)
	return slices.Clone(terms)
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}
