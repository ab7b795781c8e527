// Package rocketpunch crawls the Rocketpunch job API.
package rocketpunch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/jobflow/go-jobflow/internal/common/normalizer"
	"github.com/jobflow/go-jobflow/internal/domain"
	"github.com/jobflow/go-jobflow/internal/logger"
	"github.com/jobflow/go-jobflow/internal/module"
)

const (
	BaseURL      = "https://www.rocketpunch.com"
	SearchAPIURL = BaseURL + "/api/jobs/template"
	JobsPerPage  = 20
)

// errRetryable marks responses worth asking for again
var errRetryable = errors.New("retryable response")

// Crawler implements job crawling for Rocketpunch
type Crawler struct {
	client  *http.Client
	config  Config
	limiter *rate.Limiter
	log     *logger.Logger
	now     func() time.Time
}

// Config holds Rocketpunch-specific configuration
type Config struct {
	APIURL        string
	MaxPages      int
	MaxRetries    int
	RatePerSecond float64
	UserAgent     string
}

// SearchResponse is the Rocketpunch job API response
type SearchResponse struct {
	Data struct {
		Jobs        []JobData `json:"jobs"`
		CurrentPage int       `json:"current_page"`
		TotalPage   int       `json:"total_page"`
	} `json:"data"`
}

type JobData struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title"`
	Company         Company  `json:"company"`
	Location        string   `json:"location"`
	Salary          string   `json:"salary"`
	Career          string   `json:"career"`
	JobType         string   `json:"job_type"`
	JobCategory     string   `json:"job_category"`
	Education       string   `json:"education"`
	Description     string   `json:"description"`
	StacksRequired  []string `json:"stacks_required"`
	StacksPreferred []string `json:"stacks_preferred"`
	PublishedAt     string   `json:"published_at"`
	DueDate         string   `json:"due_date"`
	UpdatedAt       string   `json:"updated_at"`
}

type Company struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Address       string `json:"address"`
	Homepage      string `json:"homepage"`
	Logo          string `json:"logo"`
	Industry      string `json:"industry"`
	EmployeeCount int    `json:"employee_count"`
}

// NewCrawler creates a new Rocketpunch crawler
func NewCrawler(cfg Config) *Crawler {
	if cfg.APIURL == "" {
		cfg.APIURL = SearchAPIURL
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 0.5
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	}

	return &Crawler{
		client:  &http.Client{Timeout: 30 * time.Second},
		config:  cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		log:     logger.Named("rocketpunch"),
		now:     time.Now,
	}
}

// Crawl fetches job listings from the Rocketpunch API
func (c *Crawler) Crawl(ctx context.Context) ([]*domain.RawJob, error) {
	var allJobs []*domain.RawJob
	err := c.CrawlWithCallback(ctx, func(jobs []*domain.RawJob) error {
		allJobs = append(allJobs, jobs...)
		return nil
	})
	return allJobs, err
}

// CrawlWithCallback fetches jobs page by page and calls handler after each page
func (c *Crawler) CrawlWithCallback(ctx context.Context, handler module.JobHandler) error {
	total := 0

	for page := 1; page <= c.config.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.log.Info().Int("page", page).Int("max_pages", c.config.MaxPages).Msg("fetching page")

		jobs, totalPages, err := c.fetchPage(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error().Err(err).Int("page", page).Msg("page failed")
			break
		}

		if len(jobs) == 0 {
			c.log.Info().Int("page", page).Msg("no more jobs")
			break
		}

		if err := handler(jobs); err != nil {
			c.log.Error().Err(err).Int("page", page).Msg("handler failed")
		}

		total += len(jobs)
		c.log.Info().Int("page", page).Int("jobs", len(jobs)).Msg("page processed")

		if page >= totalPages {
			c.log.Info().Int("total_pages", totalPages).Msg("reached last page")
			break
		}
	}

	c.log.Info().Int("jobs", total).Msg("crawl finished")
	return nil
}

// fetchPage fetches one page, retrying 429 and 5xx responses
func (c *Crawler) fetchPage(ctx context.Context, page int) ([]*domain.RawJob, int, error) {
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}
		resp, err := c.requestPage(ctx, page)
		if err == nil {
			return c.toRawJobs(resp.Data.Jobs), resp.Data.TotalPage, nil
		}
		lastErr = err
		if !errors.Is(err, errRetryable) {
			break
		}
		c.log.Warn().Err(err).Int("page", page).Int("attempt", attempt+1).Msg("retrying page")
	}
	return nil, 0, lastErr
}

func (c *Crawler) requestPage(ctx context.Context, page int) (*SearchResponse, error) {
	u, err := url.Parse(c.config.APIURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(JobsPerPage))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("do request: %w: %w", err, errRetryable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("unexpected status %d: %w", resp.StatusCode, errRetryable)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(respBody, &searchResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &searchResp, nil
}

func (c *Crawler) toRawJobs(items []JobData) []*domain.RawJob {
	jobs := make([]*domain.RawJob, 0, len(items))
	for _, item := range items {
		if item.ID == 0 {
			continue
		}
		id := strconv.FormatInt(item.ID, 10)

		rawData := map[string]any{
			"title":            item.Title,
			"company_name":     item.Company.Name,
			"company_address":  item.Company.Address,
			"location":         item.Location,
			"salary":           item.Salary,
			"career":           item.Career,
			"job_type":         item.JobType,
			"job_category":     item.JobCategory,
			"education":        item.Education,
			"description":      item.Description,
			"stacks_required":  item.StacksRequired,
			"stacks_preferred": item.StacksPreferred,
			"published_at":     item.PublishedAt,
			"deadline":         item.DueDate,
			"homepage":         item.Company.Homepage,
			"logo":             item.Company.Logo,
			"industry":         item.Company.Industry,
		}
		if item.Company.EmployeeCount > 0 {
			rawData["employee_count"] = item.Company.EmployeeCount
		}

		job := &domain.RawJob{
			ID:            id,
			URL:           fmt.Sprintf("%s/jobs/%s", BaseURL, id),
			Source:        string(domain.SourceRocketpunch),
			RawData:       rawData,
			ExtractedAt:   c.now(),
			LastUpdatedOn: item.UpdatedAt,
		}
		if t, ok := normalizer.NormalizeDate(item.DueDate, c.now()); ok {
			job.ExpiredOn = t
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// Source returns the source identifier
func (c *Crawler) Source() domain.JobSource {
	return domain.SourceRocketpunch
}
