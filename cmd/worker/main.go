package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jobflow/go-jobflow/internal/common/cleaner"
	"github.com/jobflow/go-jobflow/internal/common/dedup"
	"github.com/jobflow/go-jobflow/internal/common/indexer"
	"github.com/jobflow/go-jobflow/internal/common/normalizer"
	"github.com/jobflow/go-jobflow/internal/common/techstack"
	"github.com/jobflow/go-jobflow/internal/config"
	"github.com/jobflow/go-jobflow/internal/logger"
	"github.com/jobflow/go-jobflow/internal/module/worker"
	"github.com/jobflow/go-jobflow/internal/queue"
	"github.com/jobflow/go-jobflow/internal/store"
)

func main() {
	var rep reportFlags
	flag.BoolVar(&rep.enabled, "report", false, "print a report from the database and exit")
	flag.IntVar(&rep.top, "top", 20, "number of tech stacks in the report")
	flag.StringVar(&rep.company, "company", "", "include this company and its active postings in the report")
	flag.StringVar(&rep.posting, "posting", "", "include this posting (source:job_id) in the report")
	flag.Parse()

	// Load configuration
	cfg := config.Load()

	opts := logger.FromEnv()
	opts.Level = cfg.App.LogLevel
	opts.Service = "worker"
	logger.Init(opts)
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Str("host", cfg.Postgres.Host).Msg("postgres connection failed")
	}
	defer db.Close()
	log.Info().Msg("postgres connected")

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	if rep.enabled {
		if err := writeReport(ctx, os.Stdout, db, rep); err != nil {
			log.Fatal().Err(err).Msg("report failed")
		}
		return
	}

	log.Info().Str("environment", cfg.App.Environment).Msg("starting job worker service")

	// Initialize Redis client
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis connection failed")
	}
	log.Info().Msg("redis connected")

	indexers := indexer.Multi{{Name: "postgres", Indexer: indexer.NewPostgresIndexer(db)}}
	if cfg.Elasticsearch.Enabled {
		esIndexer, err := indexer.NewElasticsearchIndexer(cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Index)
		if err != nil {
			log.Fatal().Err(err).Msg("elasticsearch connection failed")
		}
		if err := esIndexer.EnsureIndex(ctx); err != nil {
			log.Warn().Err(err).Msg("ensure index failed")
		}
		indexers = append(indexers, indexer.Named{Name: "elasticsearch", Indexer: esIndexer})
		log.Info().Str("index", cfg.Elasticsearch.Index).Msg("elasticsearch connected")
	}

	w := worker.NewWorker(
		queue.NewConsumer(rdb, cfg.Redis.JobQueue, 5*time.Second),
		normalizer.NewNormalizer(techstack.Default()),
		cleaner.NewStrictCleaner(),
		indexers,
		dedup.NewDeduplicator(rdb, "job:seen", 30*24*time.Hour),
		worker.Config{
			Concurrency: cfg.Worker.Concurrency,
			BatchSize:   cfg.Worker.BatchSize,
		},
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Run(ctx); err != nil {
			log.Error().Err(err).Msg("worker error")
		}
	}()

	go expirePostings(ctx, db, time.Hour)

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")

	select {
	case <-done:
		log.Info().Msg("graceful shutdown complete")
	case <-time.After(30 * time.Second):
		log.Warn().Msg("shutdown timeout, forcing exit")
	}
}

// expirePostings deactivates postings past their deadline, now and every interval
func expirePostings(ctx context.Context, db *store.DB, interval time.Duration) {
	log := logger.Named("expiry")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		y, m, d := time.Now().In(normalizer.KST).Date()
		today := time.Date(y, m, d, 0, 0, 0, 0, normalizer.KST)
		if n, err := db.DeactivateExpired(ctx, today); err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("deactivate expired postings failed")
			}
		} else if n > 0 {
			log.Info().Int64("postings", n).Msg("deactivated expired postings")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
