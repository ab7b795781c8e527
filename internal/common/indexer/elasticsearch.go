package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/jobflow/go-jobflow/internal/domain"
	"github.com/jobflow/go-jobflow/internal/logger"
)

// ElasticsearchIndexer makes postings searchable by title, company, region and tech
type ElasticsearchIndexer struct {
	client    *elasticsearch.Client
	indexName string
	log       *logger.Logger
}

// NewElasticsearchIndexer creates a client and checks the cluster answers
func NewElasticsearchIndexer(addresses []string, indexName string) (*ElasticsearchIndexer, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("create es client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("es info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("es error: %s", res.Status())
	}

	return &ElasticsearchIndexer{
		client:    client,
		indexName: indexName,
		log:       logger.Named("indexer.elasticsearch"),
	}, nil
}

// postingDocument is the flattened search document for one posting
type postingDocument struct {
	ID                 string     `json:"id"`
	Source             string     `json:"source"`
	JobID              string     `json:"job_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Company            string     `json:"company"`
	Industry           string     `json:"industry,omitempty"`
	Category           string     `json:"category,omitempty"`
	Si                 string     `json:"si,omitempty"`
	Gu                 string     `json:"gu,omitempty"`
	DetailAddress      string     `json:"detail_address,omitempty"`
	ExperienceLevel    string     `json:"experience_level,omitempty"`
	EmploymentType     string     `json:"employment_type,omitempty"`
	Education          string     `json:"education,omitempty"`
	SalaryMin          *int       `json:"salary_min"`
	SalaryMax          *int       `json:"salary_max"`
	SalaryNegotiable   bool       `json:"salary_negotiable"`
	TechStacks         []string   `json:"tech_stacks"`
	RequiredTechStacks []string   `json:"required_tech_stacks"`
	TechCategories     []string   `json:"tech_categories"`
	URL                string     `json:"url"`
	PostedAt           time.Time  `json:"posted_at"`
	Deadline           *time.Time `json:"deadline,omitempty"`
	IsActive           bool       `json:"is_active"`
	CrawledAt          time.Time  `json:"crawled_at"`
}

func newPostingDocument(job *domain.NormalizedJob) postingDocument {
	p := job.Posting
	doc := postingDocument{
		ID:                 job.Key(),
		Source:             p.Source,
		JobID:              p.JobID,
		Title:              p.Title,
		Description:        p.Description,
		Company:            job.Company.Name,
		Industry:           job.Company.Industry,
		Si:                 p.Si,
		Gu:                 p.Gu,
		DetailAddress:      p.DetailAddress,
		ExperienceLevel:    p.ExperienceLevel,
		EmploymentType:     p.EmploymentType,
		Education:          p.Education,
		SalaryMin:          p.SalaryMin,
		SalaryMax:          p.SalaryMax,
		SalaryNegotiable:   p.SalaryNegotiable,
		TechStacks:         []string{},
		RequiredTechStacks: []string{},
		TechCategories:     []string{},
		URL:                p.URL,
		PostedAt:           p.PostedAt,
		Deadline:           p.Deadline,
		IsActive:           p.IsActive,
		CrawledAt:          p.CrawledAt,
	}
	if job.Category != nil {
		doc.Category = job.Category.Name
	}
	seenCategory := map[string]bool{}
	for _, ts := range job.TechStacks {
		doc.TechStacks = append(doc.TechStacks, ts.NormalizedName)
		if ts.IsRequired {
			doc.RequiredTechStacks = append(doc.RequiredTechStacks, ts.NormalizedName)
		}
		if !seenCategory[ts.Category] {
			seenCategory[ts.Category] = true
			doc.TechCategories = append(doc.TechCategories, ts.Category)
		}
	}
	return doc
}

// encodeBulk builds the NDJSON body of a bulk index request
func encodeBulk(indexName string, jobs []*domain.NormalizedJob) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, job := range jobs {
		meta := map[string]any{"index": map[string]any{"_index": indexName, "_id": job.Key()}}
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("encode bulk meta: %w", err)
		}
		if err := enc.Encode(newPostingDocument(job)); err != nil {
			return nil, fmt.Errorf("encode posting %s: %w", job.Key(), err)
		}
	}
	return buf.Bytes(), nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// BulkIndex indexes a batch. Per-document failures are logged, not returned.
func (i *ElasticsearchIndexer) BulkIndex(ctx context.Context, jobs []*domain.NormalizedJob) error {
	if len(jobs) == 0 {
		return nil
	}

	body, err := encodeBulk(i.indexName, jobs)
	if err != nil {
		return err
	}

	res, err := i.client.Bulk(bytes.NewReader(body), i.client.Bulk.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk error: %s", res.Status())
	}

	var bulkRes bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkRes); err != nil {
		return fmt.Errorf("parse bulk response: %w", err)
	}

	failed := 0
	if bulkRes.Errors {
		for _, item := range bulkRes.Items {
			if item.Index.Status >= 400 {
				failed++
				i.log.Error().
					Str("posting", item.Index.ID).
					Str("type", item.Index.Error.Type).
					Str("reason", item.Index.Error.Reason).
					Msg("bulk index failed")
			}
		}
	}
	i.log.Debug().Int("indexed", len(jobs)-failed).Int("failed", failed).Msg("batch indexed")
	return nil
}

// indexSettings tokenizes Korean text into character bigrams (cjk_bigram),
// which matches partial words without a morphological analyzer plugin.
const indexSettings = `{
	"settings": {
		"analysis": {
			"analyzer": {
				"korean_bigram": {
					"type": "custom",
					"tokenizer": "standard",
					"filter": ["cjk_width", "lowercase", "cjk_bigram"]
				}
			}
		}
	},
	"mappings": {
		"properties": {
			"id": {"type": "keyword"},
			"source": {"type": "keyword"},
			"job_id": {"type": "keyword"},
			"title": {
				"type": "text",
				"analyzer": "korean_bigram",
				"fields": {"keyword": {"type": "keyword"}}
			},
			"description": {"type": "text", "analyzer": "korean_bigram"},
			"company": {
				"type": "text",
				"analyzer": "korean_bigram",
				"fields": {"keyword": {"type": "keyword"}}
			},
			"industry": {"type": "keyword"},
			"category": {"type": "keyword"},
			"si": {"type": "keyword"},
			"gu": {"type": "keyword"},
			"detail_address": {"type": "text", "analyzer": "korean_bigram"},
			"experience_level": {"type": "keyword"},
			"employment_type": {"type": "keyword"},
			"education": {"type": "keyword"},
			"salary_min": {"type": "integer"},
			"salary_max": {"type": "integer"},
			"salary_negotiable": {"type": "boolean"},
			"tech_stacks": {"type": "keyword"},
			"required_tech_stacks": {"type": "keyword"},
			"tech_categories": {"type": "keyword"},
			"url": {"type": "keyword", "index": false},
			"posted_at": {"type": "date"},
			"deadline": {"type": "date"},
			"is_active": {"type": "boolean"},
			"crawled_at": {"type": "date"}
		}
	}
}`

// EnsureIndex creates the index with the Korean bigram analyzer if it is missing
func (i *ElasticsearchIndexer) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.indexName}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = i.client.Indices.Create(
		i.indexName,
		i.client.Indices.Create.WithBody(bytes.NewReader([]byte(indexSettings))),
		i.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index error: %s", res.Status())
	}

	i.log.Info().Str("index", i.indexName).Msg("created index")
	return nil
}
