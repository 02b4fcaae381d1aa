// Package consumer listens for catalog update notifications on Kafka and
// triggers a full catalog reload for each one that the current index does
// not already reflect.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog/refresh"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/kafka"
)

// Reloader rebuilds the index from the catalog store.
type Reloader interface {
	Refresh(ctx context.Context, reason string) (indexer.RebuildStats, error)
	Status() refresh.Status
}

// CatalogConsumer wraps a Kafka consumer on the catalog updates topic.
type CatalogConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *CatalogConsumer {
	return &CatalogConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "catalog-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (cc *CatalogConsumer) Start(ctx context.Context) error {
	cc.logger.Info("catalog consumer starting")
	return cc.consumer.Start(ctx)
}

func (cc *CatalogConsumer) Close() error {
	return cc.consumer.Close()
}

// HandleMessage returns a MessageHandler that reloads the catalog for every
// update event newer than the last successful load. Undecodable messages are
// logged and committed; failed reloads are left uncommitted.
func HandleMessage(reloader Reloader) kafka.MessageHandler {
	logger := slog.Default().With("component", "catalog-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[catalog.UpdateEvent](value)
		if err != nil {
			logger.Error("failed to decode catalog update event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if isStale(event, reloader.Status().LoadedAt) {
			logger.Debug("skipping catalog update already indexed",
				"record_id", event.RecordID,
				"updated_at", event.UpdatedAt,
			)
			return nil
		}

		action := event.Action
		if action == "" {
			action = "update"
		}
		stats, err := reloader.Refresh(ctx, "event:"+action)
		if err != nil {
			return fmt.Errorf("reloading catalog for record %s: %w", event.RecordID, err)
		}
		logger.Info("catalog reloaded from update event",
			"action", action,
			"record_id", event.RecordID,
			"generation", stats.Generation,
		)
		return nil
	}
}

// isStale reports whether the last successful load started after the event
// was produced. Events without a timestamp are never stale.
func isStale(event catalog.UpdateEvent, loadedAt time.Time) bool {
	if event.UpdatedAt.IsZero() || loadedAt.IsZero() {
		return false
	}
	return event.UpdatedAt.Before(loadedAt)
}
