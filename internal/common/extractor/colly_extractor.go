package extractor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/jobflow/go-jobflow/internal/domain"
	"github.com/jobflow/go-jobflow/internal/logger"
)

// CollyExtractor implements Extractor using Colly for HTML scraping
type CollyExtractor struct {
	collector *colly.Collector
	config    ExtractorConfig
	source    domain.JobSource
	selectors Selectors
	log       *logger.Logger
}

// Selectors defines CSS selectors for extracting job data
type Selectors struct {
	// List page selectors
	JobItem string
	JobLink string
	// IDParam is the link query parameter holding the posting id. Items
	// without it fall back to the JobItemID attribute, then the link itself.
	IDParam   string
	JobItemID string
	// PageParam is the list URL query parameter selecting the page
	PageParam string

	// Text fields, raw data key -> selector relative to the item (or body on
	// detail pages)
	Fields map[string]string
	// Multi-valued fields, raw data key -> selector; every match is one value
	Lists map[string]string
	// Conditions are positional spans; the n-th span goes to ConditionKeys[n]
	Conditions    string
	ConditionKeys []string

	// Detail page selectors, inner HTML is kept for the cleaner
	Description string
}

// NewCollyExtractor creates a new Colly-based HTML scraper
func NewCollyExtractor(source domain.JobSource, selectors Selectors, config ExtractorConfig) *CollyExtractor {
	c := colly.NewCollector(
		colly.UserAgent(config.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(30 * time.Second)

	// Configure rate limiting
	if config.RequestDelay > 0 {
		c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Delay:       config.RequestDelay,
			RandomDelay: config.RequestDelay / 2,
		})
	}

	// Set proxy if configured
	if config.ProxyURL != "" {
		c.SetProxy(config.ProxyURL)
	}

	if selectors.PageParam == "" {
		selectors.PageParam = "page"
	}

	return &CollyExtractor{
		collector: c,
		config:    config,
		source:    source,
		selectors: selectors,
		log:       logger.Named("extractor." + string(source)),
	}
}

func (e *CollyExtractor) Name() string {
	return fmt.Sprintf("colly_%s", e.source)
}

func (e *CollyExtractor) Extract(ctx context.Context, jobURL string) (*domain.RawJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rawJob *domain.RawJob
	var failure visitError

	collector := e.collector.Clone()

	collector.OnHTML("body", func(el *colly.HTMLElement) {
		rawData := e.readFields(el.DOM)
		if e.selectors.Description != "" {
			if desc, err := el.DOM.Find(e.selectors.Description).First().Html(); err == nil {
				rawData["description"] = strings.TrimSpace(desc)
			}
		}

		rawJob = &domain.RawJob{
			ID:          e.jobID(jobURL, ""),
			URL:         jobURL,
			Source:      string(e.source),
			RawData:     rawData,
			ExtractedAt: time.Now(),
		}
	})

	collector.OnError(e.onError(&failure))

	if err := collector.Visit(jobURL); err != nil && !failure.seen {
		return nil, fmt.Errorf("visit url: %w", err)
	}

	if failure.err != nil {
		return nil, failure.err
	}

	if rawJob == nil {
		return nil, fmt.Errorf("no data extracted from %s", jobURL)
	}

	return rawJob, nil
}

func (e *CollyExtractor) ExtractList(ctx context.Context, listURL string, page int) ([]*domain.RawJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var jobs []*domain.RawJob
	var failure visitError

	collector := e.collector.Clone()

	collector.OnHTML(e.selectors.JobItem, func(el *colly.HTMLElement) {
		link := el.ChildAttr(e.selectors.JobLink, "href")
		if link == "" {
			link = el.Attr("href")
		}
		if link == "" {
			return
		}

		// Make absolute URL if needed
		if !strings.HasPrefix(link, "http") {
			link = el.Request.AbsoluteURL(link)
		}

		id := e.jobID(link, el.Attr(e.selectors.JobItemID))
		if id == "" {
			e.log.Warn().Str("url", link).Msg("list item without posting id")
			return
		}

		jobs = append(jobs, &domain.RawJob{
			ID:          id,
			URL:         link,
			Source:      string(e.source),
			RawData:     e.readFields(el.DOM),
			ExtractedAt: time.Now(),
		})
	})

	collector.OnError(e.onError(&failure))

	pageURL, err := withPage(listURL, e.selectors.PageParam, page)
	if err != nil {
		return nil, err
	}
	if err := collector.Visit(pageURL); err != nil && !failure.seen {
		return nil, fmt.Errorf("visit list url: %w", err)
	}

	if failure.err != nil {
		return nil, failure.err
	}

	return jobs, nil
}

// readFields applies the text, list and condition selectors to sel
func (e *CollyExtractor) readFields(sel *goquery.Selection) map[string]any {
	rawData := make(map[string]any)

	for key, selector := range e.selectors.Fields {
		if text := squash(sel.Find(selector).First().Text()); text != "" {
			rawData[key] = text
		}
	}

	for key, selector := range e.selectors.Lists {
		var values []string
		sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if text := squash(s.Text()); text != "" {
				values = append(values, text)
			}
		})
		if len(values) > 0 {
			rawData[key] = values
		}
	}

	if e.selectors.Conditions != "" {
		sel.Find(e.selectors.Conditions).Each(func(i int, s *goquery.Selection) {
			if i >= len(e.selectors.ConditionKeys) {
				return
			}
			key := e.selectors.ConditionKeys[i]
			if text := squash(s.Text()); key != "" && text != "" {
				rawData[key] = text
			}
		})
	}

	return rawData
}

// jobID takes the posting id from the link's IDParam, then from attr
func (e *CollyExtractor) jobID(link, attr string) string {
	if e.selectors.IDParam != "" {
		if u, err := url.Parse(link); err == nil {
			if id := u.Query().Get(e.selectors.IDParam); id != "" {
				return id
			}
		}
	}
	if attr = strings.TrimSpace(attr); attr != "" {
		return attr
	}
	if e.selectors.IDParam == "" {
		return link
	}
	return ""
}

// visitError records what the error callback made of a failed request.
// Visit reports the first failure even when a retry later succeeds.
type visitError struct {
	seen bool
	err  error
}

// onError retries transient failures up to MaxRetries, then records the error
func (e *CollyExtractor) onError(dst *visitError) colly.ErrorCallback {
	return func(r *colly.Response, err error) {
		dst.seen = true
		if retryable(r.StatusCode) {
			attempt, _ := r.Request.Ctx.GetAny("attempt").(int)
			if attempt < e.config.MaxRetries {
				r.Request.Ctx.Put("attempt", attempt+1)
				e.log.Warn().Err(err).Int("status", r.StatusCode).Int("attempt", attempt+1).
					Str("url", r.Request.URL.String()).Msg("retrying request")
				if rerr := r.Request.Retry(); rerr == nil {
					return
				}
			}
		}
		if dst.err != nil {
			return
		}
		dst.err = fmt.Errorf("colly error: %w (status: %d)", err, r.StatusCode)
	}
}

func retryable(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= 500
}

// withPage sets the page query parameter, keeping the list URL's own filters
func withPage(listURL, param string, page int) (string, error) {
	u, err := url.Parse(listURL)
	if err != nil {
		return "", fmt.Errorf("parse list url: %w", err)
	}
	q := u.Query()
	q.Set(param, fmt.Sprint(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
