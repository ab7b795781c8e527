package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jobflow/go-jobflow/internal/common/dedup"
	"github.com/jobflow/go-jobflow/internal/common/extractor"
	"github.com/jobflow/go-jobflow/internal/config"
	"github.com/jobflow/go-jobflow/internal/logger"
	"github.com/jobflow/go-jobflow/internal/module"
	"github.com/jobflow/go-jobflow/internal/module/rocketpunch"
	"github.com/jobflow/go-jobflow/internal/module/saramin"
	"github.com/jobflow/go-jobflow/internal/queue"
)

func main() {
	once := flag.Bool("once", false, "crawl every source once and exit")
	flag.Parse()

	// Load configuration
	cfg := config.Load()

	opts := logger.FromEnv()
	opts.Level = cfg.App.LogLevel
	opts.Service = "crawler"
	logger.Init(opts)
	log := logger.Get()
	log.Info().Str("environment", cfg.App.Environment).Msg("starting job crawler service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	extractorCfg := extractor.ExtractorConfig{
		UserAgent:    cfg.Crawler.UserAgent,
		ProxyURL:     cfg.Crawler.ProxyURL,
		MaxRetries:   cfg.Crawler.MaxRetries,
		RequestDelay: cfg.Crawler.RequestDelay,
	}

	crawlers := []module.Crawler{
		saramin.NewCrawler(
			saramin.NewDefaultExtractor(extractorCfg),
			saramin.Config{
				ListURL:      cfg.Crawler.SaraminListURL,
				MaxPages:     cfg.Crawler.MaxPages,
				RequestDelay: cfg.Crawler.RequestDelay,
			},
		),
		rocketpunch.NewCrawler(rocketpunch.Config{
			APIURL:        cfg.Crawler.RocketpunchAPIURL,
			MaxPages:      cfg.Crawler.MaxPages,
			MaxRetries:    cfg.Crawler.MaxRetries,
			RatePerSecond: cfg.Crawler.RatePerSecond,
			UserAgent:     cfg.Crawler.UserAgent,
		}),
	}

	s := &scheduler{
		crawlers:  crawlers,
		seen:      dedup.NewDeduplicator(rdb, "job:seen", 30*24*time.Hour),
		publisher: queue.NewPublisher(rdb, cfg.Redis.JobQueue),
		interval:  cfg.Crawler.Interval,
		log:       logger.Named("scheduler"),
	}

	if *once {
		s.runAll(ctx)
		log.Info().Msg("single pass complete")
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.run(ctx)
	}()

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
