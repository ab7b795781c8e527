package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jobflow/go-jobflow/internal/common/dedup"
	"github.com/jobflow/go-jobflow/internal/domain"
	"github.com/jobflow/go-jobflow/internal/logger"
	"github.com/jobflow/go-jobflow/internal/module"
)

type pagedCrawler struct {
	pages [][]*domain.RawJob
}

func (c *pagedCrawler) Crawl(ctx context.Context) ([]*domain.RawJob, error) {
	var all []*domain.RawJob
	for _, p := range c.pages {
		all = append(all, p...)
	}
	return all, nil
}

func (c *pagedCrawler) CrawlWithCallback(ctx context.Context, handler module.JobHandler) error {
	for _, p := range c.pages {
		if err := handler(p); err != nil {
			return err
		}
	}
	return nil
}

func (c *pagedCrawler) Source() domain.JobSource { return domain.SourceSaramin }

// memorySeen keeps change tokens in a map
type memorySeen struct {
	tokens  map[string]string
	failIDs map[string]bool
}

func (m *memorySeen) CheckJob(ctx context.Context, job *domain.RawJob) (dedup.CheckResult, error) {
	if m.failIDs[job.ID] {
		return dedup.ResultNew, errors.New("redis timeout")
	}
	token, ok := m.tokens[job.ID]
	switch {
	case !ok:
		return dedup.ResultNew, nil
	case token != dedup.ChangeToken(job):
		return dedup.ResultUpdated, nil
	}
	return dedup.ResultUnchanged, nil
}

func (m *memorySeen) MarkSeen(ctx context.Context, job *domain.RawJob) error {
	m.tokens[job.ID] = dedup.ChangeToken(job)
	return nil
}

type recordingPublisher struct {
	published []string
	err       error
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, jobs []*domain.RawJob) error {
	if p.err != nil {
		return p.err
	}
	for _, j := range jobs {
		p.published = append(p.published, j.ID)
	}
	return nil
}

func job(id, token string) *domain.RawJob {
	return &domain.RawJob{ID: id, URL: "https://example.com/" + id, Source: "saramin", LastUpdatedOn: token}
}

func newScheduler(c module.Crawler, seen *memorySeen, pub *recordingPublisher) *scheduler {
	return &scheduler{crawlers: []module.Crawler{c}, seen: seen, publisher: pub, log: logger.Named("test")}
}

func TestRunOnePublishesNewAndUpdated(t *testing.T) {
	seen := &memorySeen{tokens: map[string]string{"2": "v1", "3": "v1"}}
	pub := &recordingPublisher{}
	c := &pagedCrawler{pages: [][]*domain.RawJob{
		{job("1", "v1"), job("2", "v2")},
		{job("3", "v1")},
	}}

	stats := newScheduler(c, seen, pub).runOne(context.Background(), c)

	assert.Equal(t, crawlStats{total: 3, fresh: 1, updated: 1, unchanged: 1}, stats)
	assert.Equal(t, []string{"1", "2"}, pub.published)
	assert.Equal(t, "v1", seen.tokens["1"])
	assert.Equal(t, "v2", seen.tokens["2"])
}

func TestSecondPassIsUnchanged(t *testing.T) {
	seen := &memorySeen{tokens: map[string]string{}}
	pub := &recordingPublisher{}
	c := &pagedCrawler{pages: [][]*domain.RawJob{{job("1", "v1"), job("2", "v1")}}}
	s := newScheduler(c, seen, pub)

	s.runAll(context.Background())
	stats := s.runOne(context.Background(), c)

	assert.Equal(t, 2, stats.unchanged)
	assert.Len(t, pub.published, 2)
}

func TestPublishFailureLeavesJobsUnseen(t *testing.T) {
	seen := &memorySeen{tokens: map[string]string{}}
	pub := &recordingPublisher{err: errors.New("redis down")}
	c := &pagedCrawler{pages: [][]*domain.RawJob{{job("1", "v1")}}}

	stats := newScheduler(c, seen, pub).runOne(context.Background(), c)

	assert.Equal(t, 1, stats.failed)
	assert.Empty(t, seen.tokens)
}

func TestDedupErrorSkipsJob(t *testing.T) {
	seen := &memorySeen{tokens: map[string]string{}, failIDs: map[string]bool{"1": true}}
	pub := &recordingPublisher{}
	c := &pagedCrawler{pages: [][]*domain.RawJob{{job("1", "v1"), job("2", "v1")}}}

	stats := newScheduler(c, seen, pub).runOne(context.Background(), c)

	assert.Equal(t, crawlStats{total: 2, fresh: 1, failed: 1}, stats)
	assert.Equal(t, []string{"2"}, pub.published)
}

func TestMissingIDFallsBackToURL(t *testing.T) {
	seen := &memorySeen{tokens: map[string]string{}}
	pub := &recordingPublisher{}
	j := job("", "v1")
	j.URL = "https://example.com/x"
	c := &pagedCrawler{pages: [][]*domain.RawJob{{j}}}

	newScheduler(c, seen, pub).runOne(context.Background(), c)
	assert.Equal(t, []string{"https://example.com/x"}, pub.published)
}
