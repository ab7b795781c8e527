package worker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jobflow/go-jobflow/internal/common/cleaner"
	"github.com/jobflow/go-jobflow/internal/common/indexer"
	"github.com/jobflow/go-jobflow/internal/common/normalizer"
	"github.com/jobflow/go-jobflow/internal/domain"
	"github.com/jobflow/go-jobflow/internal/logger"
)

// Source hands out batches of scraped postings. An empty batch means the
// wait timed out.
type Source interface {
	ConsumeBatch(ctx context.Context, maxBatch int) ([]*domain.RawJob, error)
}

// Forgetter drops a posting from the dedup store so the next crawl queues it again
type Forgetter interface {
	Forget(ctx context.Context, source, jobID string) error
}

// Worker processes jobs from queue and indexes to storage
type Worker struct {
	source     Source
	normalizer *normalizer.Normalizer
	cleaner    *cleaner.Cleaner
	indexer    indexer.Indexer
	forgetter  Forgetter
	log        *logger.Logger

	batchSize   int
	concurrency int
	retryDelay  time.Duration
}

// Config holds worker configuration
type Config struct {
	Concurrency int
	BatchSize   int
	// RetryDelay is the pause after a failed consume
	RetryDelay time.Duration
}

// Stats counts what happened to one batch
type Stats struct {
	Received int
	Rejected int
	Indexed  int
}

// NewWorker creates a new worker. forget may be nil.
func NewWorker(
	source Source,
	norm *normalizer.Normalizer,
	clean *cleaner.Cleaner,
	idx indexer.Indexer,
	forget Forgetter,
	cfg Config,
) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}

	return &Worker{
		source:      source,
		normalizer:  norm,
		cleaner:     clean,
		indexer:     idx,
		forgetter:   forget,
		log:         logger.Named("worker"),
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		retryDelay:  cfg.RetryDelay,
	}
}

// Run starts the worker pool and blocks until ctx is done
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Int("workers", w.concurrency).Int("batch_size", w.batchSize).Msg("starting worker pool")

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			return w.runSingle(ctx, i)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) runSingle(ctx context.Context, workerID int) error {
	log := w.log.With().Int("worker_id", workerID).Logger()
	log.Debug().Msg("worker started")

	for {
		if ctx.Err() != nil {
			log.Debug().Msg("worker stopping")
			return nil
		}

		// ConsumeBatch blocks on the first item, so an idle queue does not spin
		rawJobs, err := w.source.ConsumeBatch(ctx, w.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Msg("consume failed")
			if err := sleep(ctx, w.retryDelay); err != nil {
				return nil
			}
			continue
		}

		if len(rawJobs) == 0 {
			continue
		}

		stats := w.ProcessBatch(ctx, rawJobs)
		log.Info().
			Int("received", stats.Received).
			Int("rejected", stats.Rejected).
			Int("indexed", stats.Indexed).
			Msg("batch processed")
	}
}

// ProcessBatch cleans, normalizes, validates and indexes one batch. Records
// that fail normalization or validation are logged and dropped.
func (w *Worker) ProcessBatch(ctx context.Context, rawJobs []*domain.RawJob) Stats {
	stats := Stats{Received: len(rawJobs)}

	jobs := make([]*domain.NormalizedJob, 0, len(rawJobs))
	for _, raw := range rawJobs {
		job, err := w.prepare(raw)
		if err != nil {
			stats.Rejected++
			w.log.Warn().Err(err).Str("source", raw.Source).Str("job_id", raw.ID).Msg("rejecting posting")
			continue
		}
		jobs = append(jobs, job)
	}

	if len(jobs) == 0 {
		return stats
	}

	if err := w.indexer.BulkIndex(ctx, jobs); err != nil {
		w.log.Error().Err(err).Int("jobs", len(jobs)).Msg("index failed")
		w.forget(ctx, jobs)
		return stats
	}
	stats.Indexed = len(jobs)
	return stats
}

func (w *Worker) prepare(raw *domain.RawJob) (*domain.NormalizedJob, error) {
	if raw.RawData != nil {
		raw.RawData = w.cleaner.CleanMap(raw.RawData)
	}

	job, err := w.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}
	if err := domain.Validate(job); err != nil {
		return nil, err
	}
	return job, nil
}

// forget lets the crawler re-queue postings whose indexing failed
func (w *Worker) forget(ctx context.Context, jobs []*domain.NormalizedJob) {
	if w.forgetter == nil {
		return
	}
	// the batch context may already be canceled on shutdown
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	for _, job := range jobs {
		if err := w.forgetter.Forget(ctx, job.Posting.Source, job.Posting.JobID); err != nil {
			w.log.Error().Err(err).Str("posting", job.Key()).Msg("forget failed")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
