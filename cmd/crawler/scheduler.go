package main

import (
	"context"
	"time"

	"github.com/jobflow/go-jobflow/internal/common/dedup"
	"github.com/jobflow/go-jobflow/internal/domain"
	"github.com/jobflow/go-jobflow/internal/logger"
	"github.com/jobflow/go-jobflow/internal/module"
)

// seenStore is the part of the deduplicator the scheduler uses
type seenStore interface {
	CheckJob(ctx context.Context, job *domain.RawJob) (dedup.CheckResult, error)
	MarkSeen(ctx context.Context, job *domain.RawJob) error
}

// batchPublisher is the part of the queue publisher the scheduler uses
type batchPublisher interface {
	PublishBatch(ctx context.Context, jobs []*domain.RawJob) error
}

// crawlStats counts postings per dedup outcome for one crawler run
type crawlStats struct {
	total, fresh, updated, unchanged, failed int
}

type scheduler struct {
	crawlers  []module.Crawler
	seen      seenStore
	publisher batchPublisher
	interval  time.Duration
	log       *logger.Logger
}

// run crawls every source immediately, then once per interval until ctx is done
func (s *scheduler) run(ctx context.Context) {
	s.runAll(ctx)

	interval := s.interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

// runAll runs each crawler in turn
func (s *scheduler) runAll(ctx context.Context) {
	for _, c := range s.crawlers {
		if ctx.Err() != nil {
			return
		}
		s.runOne(ctx, c)
	}
}

func (s *scheduler) runOne(ctx context.Context, c module.Crawler) crawlStats {
	log := s.log.With().Str("source", c.Source().String()).Logger()
	log.Info().Msg("running crawler")

	var stats crawlStats
	err := c.CrawlWithCallback(ctx, func(jobs []*domain.RawJob) error {
		page := s.publishPage(ctx, jobs)
		stats.total += page.total
		stats.fresh += page.fresh
		stats.updated += page.updated
		stats.unchanged += page.unchanged
		stats.failed += page.failed
		log.Debug().Int("new", page.fresh).Int("updated", page.updated).Int("unchanged", page.unchanged).Msg("page done")
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("crawler failed")
	}

	log.Info().
		Int("total", stats.total).
		Int("new", stats.fresh).
		Int("updated", stats.updated).
		Int("unchanged", stats.unchanged).
		Int("failed", stats.failed).
		Msg("crawler finished")
	return stats
}

// publishPage queues the new and changed postings of one page and marks them seen
func (s *scheduler) publishPage(ctx context.Context, jobs []*domain.RawJob) crawlStats {
	stats := crawlStats{total: len(jobs)}

	pending := make([]*domain.RawJob, 0, len(jobs))
	for _, job := range jobs {
		if job.ID == "" {
			job.ID = job.URL
		}

		result, err := s.seen.CheckJob(ctx, job)
		if err != nil {
			stats.failed++
			s.log.Error().Err(err).Str("job_id", job.ID).Msg("dedup check failed")
			continue
		}

		switch result {
		case dedup.ResultUnchanged:
			stats.unchanged++
			continue
		case dedup.ResultUpdated:
			stats.updated++
		case dedup.ResultNew:
			stats.fresh++
		}
		pending = append(pending, job)
	}

	if len(pending) == 0 {
		return stats
	}

	if err := s.publisher.PublishBatch(ctx, pending); err != nil {
		s.log.Error().Err(err).Int("jobs", len(pending)).Msg("publish failed")
		stats.failed += len(pending)
		stats.fresh, stats.updated = 0, 0
		return stats
	}

	for _, job := range pending {
		if err := s.seen.MarkSeen(ctx, job); err != nil {
			s.log.Error().Err(err).Str("job_id", job.ID).Msg("mark seen failed")
		}
	}
	return stats
}
