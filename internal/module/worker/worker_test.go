package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobflow/go-jobflow/internal/common/cleaner"
	"github.com/jobflow/go-jobflow/internal/common/normalizer"
	"github.com/jobflow/go-jobflow/internal/common/techstack"
	"github.com/jobflow/go-jobflow/internal/domain"
)

// fakeSource hands out the queued batches, then blocks until canceled
type fakeSource struct {
	mu      sync.Mutex
	batches [][]*domain.RawJob
	errs    []error
}

func (f *fakeSource) ConsumeBatch(ctx context.Context, maxBatch int) ([]*domain.RawJob, error) {
	f.mu.Lock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		f.mu.Unlock()
		return nil, err
	}
	if len(f.batches) > 0 {
		b := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return b, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

type fakeIndexer struct {
	mu      sync.Mutex
	err     error
	batches [][]*domain.NormalizedJob
	done    chan struct{}
}

func (f *fakeIndexer) BulkIndex(ctx context.Context, jobs []*domain.NormalizedJob) error {
	f.mu.Lock()
	f.batches = append(f.batches, jobs)
	f.mu.Unlock()
	if f.done != nil {
		f.done <- struct{}{}
	}
	return f.err
}

type fakeForgetter struct {
	keys []string
}

func (f *fakeForgetter) Forget(ctx context.Context, source, jobID string) error {
	f.keys = append(f.keys, source+":"+jobID)
	return nil
}

func saraminJob(id string) *domain.RawJob {
	return &domain.RawJob{
		ID:     id,
		URL:    "https://www.saramin.co.kr/zf_user/jobs/relay/view?rec_idx=" + id,
		Source: "saramin",
		RawData: map[string]any{
			"title":       "<b>백엔드</b> 개발자",
			"company":     "(주)잡플로우",
			"location":    "서울 강남구 테헤란로",
			"salary":      "3,000~4,000만원",
			"experience":  "신입·경력",
			"description": "<p>Go &amp; Kubernetes</p><script>alert(1)</script>",
			"tags":        []string{"Golang", "k8s"},
		},
		ExtractedAt: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
	}
}

func newTestWorker(src Source, idx *fakeIndexer, forget Forgetter) *Worker {
	return NewWorker(src,
		normalizer.NewNormalizer(techstack.Default()),
		cleaner.NewStrictCleaner(),
		idx, forget,
		Config{Concurrency: 2, BatchSize: 10, RetryDelay: time.Millisecond},
	)
}

func TestProcessBatch(t *testing.T) {
	idx := &fakeIndexer{}
	w := newTestWorker(&fakeSource{}, idx, nil)

	noTitle := saraminJob("2")
	delete(noTitle.RawData, "title")
	longURL := saraminJob("3")
	longURL.URL = "https://example.com/" + strings.Repeat("a", 500)

	stats := w.ProcessBatch(context.Background(), []*domain.RawJob{saraminJob("1"), noTitle, longURL})
	assert.Equal(t, Stats{Received: 3, Rejected: 2, Indexed: 1}, stats)

	require.Len(t, idx.batches, 1)
	require.Len(t, idx.batches[0], 1)
	job := idx.batches[0][0]

	assert.Equal(t, "saramin:1", job.Key())
	assert.Equal(t, "백엔드 개발자", job.Posting.Title)
	assert.Equal(t, "Go & Kubernetes", job.Posting.Description)
	assert.Equal(t, "서울특별시", job.Posting.Si)
	assert.Equal(t, "강남구", job.Posting.Gu)
	assert.Equal(t, "신입·경력", job.Posting.ExperienceLevel)
	require.NotNil(t, job.Posting.SalaryMin)
	assert.Equal(t, 3000, *job.Posting.SalaryMin)
	require.Len(t, job.TechStacks, 2)
}

func TestProcessBatchForgetsOnIndexFailure(t *testing.T) {
	idx := &fakeIndexer{err: errors.New("db down")}
	forget := &fakeForgetter{}
	w := newTestWorker(&fakeSource{}, idx, forget)

	stats := w.ProcessBatch(context.Background(), []*domain.RawJob{saraminJob("1"), saraminJob("2")})
	assert.Equal(t, 0, stats.Indexed)
	assert.Equal(t, []string{"saramin:1", "saramin:2"}, forget.keys)
}

func TestProcessBatchAllRejected(t *testing.T) {
	idx := &fakeIndexer{}
	w := newTestWorker(&fakeSource{}, idx, nil)

	bad := saraminJob("1")
	bad.URL = ""
	stats := w.ProcessBatch(context.Background(), []*domain.RawJob{bad})
	assert.Equal(t, Stats{Received: 1, Rejected: 1}, stats)
	assert.Empty(t, idx.batches)
}

func TestRunConsumesUntilCanceled(t *testing.T) {
	src := &fakeSource{
		errs:    []error{errors.New("redis: connection refused")},
		batches: [][]*domain.RawJob{{saraminJob("1")}, {}, {saraminJob("2")}},
	}
	idx := &fakeIndexer{done: make(chan struct{}, 2)}
	w := newTestWorker(src, idx, nil)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- w.Run(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case <-idx.done:
		case <-time.After(5 * time.Second):
			t.Fatal("batch was not indexed")
		}
	}
	cancel()

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Len(t, idx.batches, 2)
}
