// Package saramin crawls the Saramin recruit search list.
package saramin

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jobflow/go-jobflow/internal/common/extractor"
	"github.com/jobflow/go-jobflow/internal/common/normalizer"
	"github.com/jobflow/go-jobflow/internal/domain"
	"github.com/jobflow/go-jobflow/internal/logger"
	"github.com/jobflow/go-jobflow/internal/module"
)

const (
	BaseURL    = "https://www.saramin.co.kr"
	ListingURL = BaseURL + "/zf_user/search/recruit?cat_mcls=2&recruitPageCount=40"
)

// Crawler implements job crawling for Saramin
type Crawler struct {
	extractor extractor.Extractor
	config    Config
	log       *logger.Logger
	now       func() time.Time
}

// Config holds Saramin-specific configuration
type Config struct {
	ListURL      string
	MaxPages     int
	RequestDelay time.Duration
	// FetchDetails visits each posting for its description. List pages
	// already carry every other field.
	FetchDetails bool
}

// NewCrawler creates a new Saramin crawler
func NewCrawler(ext extractor.Extractor, cfg Config) *Crawler {
	if cfg.ListURL == "" {
		cfg.ListURL = ListingURL
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	return &Crawler{
		extractor: ext,
		config:    cfg,
		log:       logger.Named("saramin"),
		now:       time.Now,
	}
}

// NewDefaultExtractor creates a Colly extractor configured for the Saramin
// recruit search list
func NewDefaultExtractor(cfg extractor.ExtractorConfig) extractor.Extractor {
	selectors := extractor.Selectors{
		JobItem:   "div.item_recruit",
		JobLink:   "h2.job_tit a",
		IDParam:   "rec_idx",
		JobItemID: "value",
		PageParam: "recruitPage",
		Fields: map[string]string{
			"title":    "h2.job_tit a",
			"company":  "strong.corp_name a",
			"deadline": "div.job_date span.date",
			"job_day":  "span.job_day",
		},
		Lists: map[string]string{
			"sectors": "div.job_sector a",
		},
		Conditions:    "div.job_condition > span",
		ConditionKeys: []string{"location", "experience", "education", "employment_type", "salary"},

		Description: "div.jv_detail, div.user_content",
	}
	return extractor.NewCollyExtractor(domain.SourceSaramin, selectors, cfg)
}

// Crawl fetches job listings from Saramin
func (c *Crawler) Crawl(ctx context.Context) ([]*domain.RawJob, error) {
	var allJobs []*domain.RawJob
	err := c.CrawlWithCallback(ctx, func(jobs []*domain.RawJob) error {
		allJobs = append(allJobs, jobs...)
		return nil
	})
	return allJobs, err
}

// CrawlWithCallback fetches list pages in order and calls handler after each page
func (c *Crawler) CrawlWithCallback(ctx context.Context, handler module.JobHandler) error {
	total := 0

	for page := 1; page <= c.config.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.log.Info().Int("page", page).Int("max_pages", c.config.MaxPages).Msg("fetching list page")

		jobs, err := c.extractor.ExtractList(ctx, c.config.ListURL, page)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error().Err(err).Int("page", page).Msg("list page failed")
			break
		}

		if len(jobs) == 0 {
			c.log.Info().Int("page", page).Msg("no more jobs")
			break
		}

		for _, job := range jobs {
			c.enrich(job)
			if c.config.FetchDetails {
				if err := c.sleep(ctx); err != nil {
					return err
				}
				c.attachDescription(ctx, job)
			}
		}

		if err := handler(jobs); err != nil {
			c.log.Error().Err(err).Int("page", page).Msg("handler failed")
		}

		total += len(jobs)
		c.log.Info().Int("page", page).Int("jobs", len(jobs)).Msg("page processed")

		if page < c.config.MaxPages {
			if err := c.sleep(ctx); err != nil {
				return err
			}
		}
	}

	c.log.Info().Int("jobs", total).Msg("crawl finished")
	return nil
}

// Source returns the source identifier
func (c *Crawler) Source() domain.JobSource {
	return domain.SourceSaramin
}

// enrich turns list-page text into the keys the normalizer reads and fills
// the dedup fields of the raw job
func (c *Crawler) enrich(job *domain.RawJob) {
	data := job.RawData

	// the first sector link is the job category, the rest are skills
	if sectors, ok := data["sectors"].([]string); ok && len(sectors) > 1 {
		data["tags"] = sectors[1:]
	}

	if day, ok := data["job_day"].(string); ok {
		label, date := splitJobDay(day)
		switch label {
		case "수정일":
			job.LastUpdatedOn = date
		default:
			data["posted_at"] = date
		}
		delete(data, "job_day")
	}

	if deadline, ok := data["deadline"].(string); ok {
		if t, ok := normalizer.NormalizeDate(deadline, c.now()); ok {
			job.ExpiredOn = t
		}
	}
}

// attachDescription adds the detail page description; failures keep the list data
func (c *Crawler) attachDescription(ctx context.Context, job *domain.RawJob) {
	detail, err := c.extractor.Extract(ctx, job.URL)
	if err != nil {
		c.log.Warn().Err(err).Str("job_id", job.ID).Msg("detail page failed")
		return
	}
	if desc, ok := detail.RawData["description"].(string); ok && desc != "" {
		job.RawData["description"] = desc
	}
}

// sleep waits the request delay plus up to a second of jitter
func (c *Crawler) sleep(ctx context.Context) error {
	if c.config.RequestDelay <= 0 {
		return ctx.Err()
	}
	d := c.config.RequestDelay + time.Duration(rand.Int64N(int64(time.Second)))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// splitJobDay splits "등록일 26/10/15" into its label and date
func splitJobDay(s string) (label, date string) {
	s = strings.TrimSpace(s)
	label, date, found := strings.Cut(s, " ")
	if !found {
		return "", s
	}
	return label, strings.TrimSpace(date)
}
