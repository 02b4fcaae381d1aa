package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/config"
)

// State is one published version of the index. It is never modified after
// the engine swaps it in.
type State struct {
	Snapshot   *index.Snapshot
	TagRanking []catalog.TagFrequency
	Generation uint64
	// Fingerprint identifies the catalog content, so that replicas indexing
	// the same catalog agree on it regardless of their generation.
	Fingerprint string
}

// RebuildStats describes a completed IndexCatalog call.
type RebuildStats struct {
	Generation  uint64
	Fingerprint string
	Records     int
	Terms       int
	SizeBytes   int64
	Duration    time.Duration
}

// RebuildHook is called after a new index has been published.
type RebuildHook func(stats RebuildStats)

type Engine struct {
	mu      sync.RWMutex
	current *State
	cfg     config.IndexerConfig
	logger  *slog.Logger

	hooksMu sync.Mutex
	hooks   []RebuildHook
}

// NewEngine returns an engine holding an empty index, so queries issued
// before the first IndexCatalog call return empty results.
func NewEngine(cfg config.IndexerConfig) *Engine {
	return &Engine{
		current: &State{
			Snapshot:    index.Empty(),
			TagRanking:  []catalog.TagFrequency{},
			Fingerprint: fingerprint(nil),
		},
		cfg:    cfg,
		logger: slog.Default().With("component", "indexer"),
	}
}

// IndexCatalog replaces the whole index with one built from records. The new
// index is built without holding the lock and swapped in atomically, so a
// concurrent reader sees either the previous catalog or this one.
func (e *Engine) IndexCatalog(records []catalog.Record) RebuildStats {
	start := time.Now()
	snap := index.Build(records)
	ranking := analytics.CountTags(snap.Records())
	fp := fingerprint(snap.Records())

	e.mu.Lock()
	next := &State{
		Snapshot:    snap,
		TagRanking:  ranking,
		Generation:  e.current.Generation + 1,
		Fingerprint: fp,
	}
	e.current = next
	e.mu.Unlock()

	stats := RebuildStats{
		Generation:  next.Generation,
		Fingerprint: next.Fingerprint,
		Records:     snap.DocCount(),
		Terms:       snap.TermCount(),
		SizeBytes:   snap.Size(),
		Duration:    time.Since(start),
	}
	e.logger.Info("catalog indexed",
		"generation", stats.Generation,
		"records", stats.Records,
		"terms", stats.Terms,
		"size_bytes", stats.SizeBytes,
		"duration", stats.Duration,
	)
	if e.cfg.SlowRebuildThreshold > 0 && stats.Duration > e.cfg.SlowRebuildThreshold {
		e.logger.Warn("slow catalog rebuild",
			"duration", stats.Duration,
			"threshold", e.cfg.SlowRebuildThreshold,
		)
	}

	e.hooksMu.Lock()
	hooks := make([]RebuildHook, len(e.hooks))
	copy(hooks, e.hooks)
	e.hooksMu.Unlock()
	for _, hook := range hooks {
		hook(stats)
	}
	return stats
}

// Current returns the published index state.
func (e *Engine) Current() *State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// Generation returns how many times the catalog has been indexed.
func (e *Engine) Generation() uint64 {
	return e.Current().Generation
}

// PopularTags returns the limit most frequent tags of the current catalog.
func (e *Engine) PopularTags(limit int) []catalog.TagFrequency {
	return analytics.TopTags(e.Current().TagRanking, limit)
}

// OnRebuild registers a hook that runs after every IndexCatalog call.
func (e *Engine) OnRebuild(hook RebuildHook) {
	e.hooksMu.Lock()
	defer e.hooksMu.Unlock()
	e.hooks = append(e.hooks, hook)
}

// fingerprint hashes every field of every record in catalog order.
func fingerprint(records []catalog.Record) string {
	h := sha256.New()
	field := func(s string) {
		h.Write([]byte(strconv.Itoa(len(s))))
		h.Write([]byte{':'})
		h.Write([]byte(s))
	}
	for _, rec := range records {
		field(rec.ID)
		field(rec.Title)
		field(rec.Description)
		field(rec.Gallery)
		field(rec.CreatedAt.UTC().Format(time.RFC3339Nano))
		for _, tag := range rec.Tags {
			field(tag)
		}
		h.Write([]byte{'\n'})
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:12])
}
