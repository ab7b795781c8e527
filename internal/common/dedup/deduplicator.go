package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jobflow/go-jobflow/internal/domain"
)

// expiryGrace keeps a key around a little past the posting's deadline so a
// late re-crawl of a closed posting is still recognised.
const expiryGrace = 24 * time.Hour

// Deduplicator remembers which postings were already queued, per source
type Deduplicator struct {
	client     redis.Cmdable
	prefix     string
	defaultTTL time.Duration
}

// NewDeduplicator creates a new Redis-based deduplicator
func NewDeduplicator(client redis.Cmdable, prefix string, defaultTTL time.Duration) *Deduplicator {
	if prefix == "" {
		prefix = "dedup"
	}
	if defaultTTL == 0 {
		defaultTTL = 30 * 24 * time.Hour
	}
	return &Deduplicator{
		client:     client,
		prefix:     prefix,
		defaultTTL: defaultTTL,
	}
}

// CheckResult represents the result of checking a job
type CheckResult int

const (
	// ResultNew - job has never been seen
	ResultNew CheckResult = iota
	// ResultUpdated - job exists but its change token differs
	ResultUpdated
	// ResultUnchanged - job exists and is unchanged
	ResultUnchanged
)

func (r CheckResult) String() string {
	switch r {
	case ResultNew:
		return "new"
	case ResultUpdated:
		return "updated"
	case ResultUnchanged:
		return "unchanged"
	}
	return fmt.Sprintf("CheckResult(%d)", int(r))
}

// CheckJob reports whether a posting is new, changed since it was last
// marked, or unchanged
func (d *Deduplicator) CheckJob(ctx context.Context, job *domain.RawJob) (CheckResult, error) {
	stored, err := d.client.Get(ctx, d.makeKey(job.Source, job.ID)).Result()
	if errors.Is(err, redis.Nil) {
		return ResultNew, nil
	}
	if err != nil {
		return ResultNew, fmt.Errorf("redis get: %w", err)
	}
	if stored != ChangeToken(job) {
		return ResultUpdated, nil
	}
	return ResultUnchanged, nil
}

// MarkSeen stores the posting's change token until shortly after its deadline
func (d *Deduplicator) MarkSeen(ctx context.Context, job *domain.RawJob) error {
	ttl := d.ttlFor(job.ExpiredOn, time.Now())
	if err := d.client.Set(ctx, d.makeKey(job.Source, job.ID), ChangeToken(job), ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Forget drops a posting so the next crawl queues it again
func (d *Deduplicator) Forget(ctx context.Context, source, jobID string) error {
	if err := d.client.Del(ctx, d.makeKey(source, jobID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (d *Deduplicator) ttlFor(expiredOn, now time.Time) time.Duration {
	ttl := expiredOn.Sub(now)
	if expiredOn.IsZero() || ttl <= 0 {
		ttl = d.defaultTTL
	}
	return ttl + expiryGrace
}

func (d *Deduplicator) makeKey(source, id string) string {
	return fmt.Sprintf("%s:%s:%s", d.prefix, source, id)
}

// ChangeToken is the value compared between crawls: the source's own
// last-updated marker when it has one, otherwise a hash of the scraped data.
func ChangeToken(job *domain.RawJob) string {
	if job.LastUpdatedOn != "" {
		return job.LastUpdatedOn
	}
	// json.Marshal sorts map keys, so equal data hashes equally
	b, err := json.Marshal(job.RawData)
	if err != nil {
		b = []byte(job.URL)
	}
	h := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(h[:16])
}
