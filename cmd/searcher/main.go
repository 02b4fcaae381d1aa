package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog/refresh"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/catalog/store"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/media-catalog-search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"catalog_source", cfg.Catalog.Source,
	)

	m := metrics.New()

	s, err := searcher.New(cfg.Indexer)
	if err != nil {
		return err
	}
	s.Engine().OnRebuild(func(stats indexer.RebuildStats) {
		m.ObserveRebuild(stats.Generation, stats.Records, stats.Terms, stats.Duration)
	})

	checker := health.NewChecker()

	var reloader *refresh.Refresher
	switch cfg.Catalog.Source {
	case config.SourcePostgres:
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
		loader, err := store.NewPostgresLoader(db, cfg.Catalog.Table)
		if err != nil {
			return err
		}
		reloader = refresh.New(loader, s, cfg.Catalog, m)
		checker.Register("postgres", health.PingCheck(db.Ping))
	case config.SourceFile:
		reloader = refresh.New(store.NewFileLoader(cfg.Catalog.FilePath), s, cfg.Catalog, m)
	}
	if reloader != nil {
		// Startup continues on failure; the index stays empty until a reload
		// succeeds.
		if _, err := reloader.Refresh(ctx, "startup"); err != nil {
			slog.Warn("initial catalog load failed, serving empty index", "error", err)
		}
	}
	checker.Register("catalog", func(ctx context.Context) health.ComponentHealth {
		state := s.State()
		if state.Generation == 0 {
			return health.ComponentHealth{Status: health.StatusDown, Message: "catalog not indexed"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("generation %d, %d records", state.Generation, state.Snapshot.DocCount()),
		}
	})

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL)
			checker.Register("redis", health.DegradedOnError(redisClient.Ping))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return m.Serve(gctx, cfg.Metrics.Port)
		})
	}

	aggregator := analytics.NewAggregator()
	var publisher analytics.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer producer.Close()
		publisher = producer
	}
	collector := analytics.NewCollector(publisher, aggregator, analytics.CollectorConfig{})
	g.Go(func() error {
		return collector.Run(gctx)
	})

	if cfg.Kafka.Enabled && reloader != nil {
		catalogConsumer := consumer.New(kafka.NewConsumer(
			cfg.Kafka,
			cfg.Kafka.Topics.CatalogUpdates,
			consumer.HandleMessage(reloader),
		))
		g.Go(func() error {
			defer catalogConsumer.Close()
			return catalogConsumer.Start(gctx)
		})
		slog.Info("catalog update consumer started", "topic", cfg.Kafka.Topics.CatalogUpdates)
	}

	opts := handler.Options{
		Cache:     queryCache,
		Collector: collector,
		Metrics:   m,
	}
	if reloader != nil {
		opts.Reloader = reloader
	}
	h := handler.New(s, cfg.Search, opts)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", m.Handler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		slog.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
