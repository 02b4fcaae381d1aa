package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/kafka"
)

const (
	defaultBufferSize    = 10000
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
)

// Publisher sends batches of events downstream. *kafka.Producer satisfies it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type CollectorConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// Collector accepts search events without blocking the request path. Every
// event is folded into the aggregator and, when a publisher is configured,
// published in batches.
type Collector struct {
	publisher  Publisher
	aggregator *Aggregator
	eventCh    chan SearchEvent
	cfg        CollectorConfig
	logger     *slog.Logger
	done       chan struct{}
	closeOnce  sync.Once
	pending    []kafka.Event
}

// NewCollector creates a collector. publisher may be nil, in which case
// events are only aggregated.
func NewCollector(publisher Publisher, aggregator *Aggregator, cfg CollectorConfig) *Collector {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	return &Collector{
		publisher:  publisher,
		aggregator: aggregator,
		eventCh:    make(chan SearchEvent, cfg.BufferSize),
		cfg:        cfg,
		logger:     slog.Default().With("component", "analytics-collector"),
		done:       make(chan struct{}),
	}
}

// Run consumes tracked events until ctx is cancelled or Close is called,
// then flushes what is left.
func (c *Collector) Run(ctx context.Context) error {
	defer close(c.done)
	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	c.logger.Info("analytics collector started",
		"buffer_size", c.cfg.BufferSize,
		"publishing", c.publisher != nil,
	)
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				c.flush(context.Background())
				return nil
			}
			c.handle(ctx, event)
		case <-ticker.C:
			c.flush(ctx)
		case <-ctx.Done():
			c.drain()
			c.flush(context.Background())
			return nil
		}
	}
}

// Track queues an event. Events are dropped when the buffer is full.
func (c *Collector) Track(event SearchEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for Run to finish. Run must have
// been started.
func (c *Collector) Close() {
	c.closeOnce.Do(func() { close(c.eventCh) })
	<-c.done
}

func (c *Collector) handle(ctx context.Context, event SearchEvent) {
	if c.aggregator != nil {
		c.aggregator.Record(event)
	}
	if c.publisher == nil {
		return
	}
	c.pending = append(c.pending, kafka.Event{Key: string(event.Type), Value: event})
	if len(c.pending) >= c.cfg.BatchSize {
		c.flush(ctx)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.handle(context.Background(), event)
		default:
			return
		}
	}
}

// flush publishes pending events. On failure they are kept for the next
// attempt, bounded to a few batches.
func (c *Collector) flush(ctx context.Context) {
	if c.publisher == nil || len(c.pending) == 0 {
		return
	}
	batch := c.pending
	c.pending = nil
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish search events", "count", len(batch), "error", err)
		maxPending := c.cfg.BatchSize * 3
		if len(batch) > maxPending {
			batch = batch[len(batch)-maxPending:]
		}
		c.pending = batch
	}
}
