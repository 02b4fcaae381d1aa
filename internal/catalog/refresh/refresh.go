// Package refresh reloads the full catalog from its datastore and hands it to
// the search engine for a rebuild. It is triggered at startup, by catalog
// update events, and by the reload endpoint.
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog/store"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog/validator"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/resilience"
)

// Indexer is the part of the search engine the refresher drives.
type Indexer interface {
	IndexCatalog(records []catalog.Record) indexer.RebuildStats
}

// Status describes the outcome of the most recent refresh attempts.
type Status struct {
	LastSuccess time.Time `json:"last_success"`
	// LoadedAt is when the load behind LastSuccess started. Changes made
	// to the store before it are reflected in the index.
	LoadedAt    time.Time `json:"loaded_at"`
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at"`
	Records     int       `json:"records"`
	Generation  uint64    `json:"generation"`
}

type Refresher struct {
	loader  store.Loader
	target  Indexer
	cfg     config.CatalogConfig
	metrics *metrics.Metrics
	logger  *slog.Logger

	// mu serialises refreshes so that every trigger leads to a load that
	// starts after it.
	mu       sync.Mutex
	statusMu sync.RWMutex
	status   Status
}

// New creates a Refresher. m may be nil.
func New(loader store.Loader, target Indexer, cfg config.CatalogConfig, m *metrics.Metrics) *Refresher {
	return &Refresher{
		loader:  loader,
		target:  target,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "catalog-refresh"),
	}
}

// Refresh loads the catalog, retrying transient failures, and rebuilds the
// index. On failure the current index is left untouched and the returned
// error wraps ErrCatalogUnavailable.
func (r *Refresher) Refresh(ctx context.Context, reason string) (indexer.RebuildStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := time.Now().UTC()
	var records []catalog.Record
	retryCfg := resilience.RetryConfig{
		MaxAttempts:  r.cfg.RetryAttempts,
		InitialDelay: r.cfg.RetryDelay,
	}
	err := resilience.Retry(ctx, "catalog-load", retryCfg, func(ctx context.Context) error {
		return resilience.WithTimeout(ctx, r.cfg.LoadTimeout, "catalog load", func(ctx context.Context) error {
			loaded, err := r.loader.Load(ctx)
			if err != nil {
				return err
			}
			records = loaded
			return nil
		})
	})
	if err != nil {
		r.recordFailure(err)
		r.logger.Error("catalog refresh failed", "reason", reason, "error", err)
		return indexer.RebuildStats{}, fmt.Errorf("%w: %w", apperrors.ErrCatalogUnavailable, err)
	}

	if err := validator.ValidateCatalog(records); err != nil {
		r.logger.Warn("catalog has invalid records, indexing anyway",
			"reason", reason,
			"problems", err.Error(),
		)
	}

	stats := r.target.IndexCatalog(records)
	r.statusMu.Lock()
	r.status.LastSuccess = time.Now().UTC()
	r.status.LoadedAt = started
	r.status.Records = stats.Records
	r.status.Generation = stats.Generation
	r.statusMu.Unlock()
	r.logger.Info("catalog refreshed",
		"reason", reason,
		"records", stats.Records,
		"generation", stats.Generation,
	)
	return stats, nil
}

// Status returns a copy of the refresh status.
func (r *Refresher) Status() Status {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.status
}

func (r *Refresher) recordFailure(err error) {
	if r.metrics != nil {
		r.metrics.ObserveRebuildFailure()
	}
	r.statusMu.Lock()
	r.status.LastError = err.Error()
	r.status.LastErrorAt = time.Now().UTC()
	r.statusMu.Unlock()
}
