package domain

import "time"

// RawJob represents raw extracted data before normalization
type RawJob struct {
	ID            string         `json:"id"`
	URL           string         `json:"url"`
	Source        string         `json:"source"`
	RawData       map[string]any `json:"raw_data"`
	HTMLContent   string         `json:"html_content,omitempty"`
	ExtractedAt   time.Time      `json:"extracted_at"`
	LastUpdatedOn string         `json:"last_updated_on,omitempty"` // change token from the source, if any
	ExpiredOn     time.Time      `json:"expired_on,omitempty"`      // deadline, drives dedup TTL
}

// JobSource represents a job listing source
type JobSource string

const (
	SourceSaramin     JobSource = "saramin"
	SourceRocketpunch JobSource = "rocketpunch"
)

func (s JobSource) String() string { return string(s) }

// NormalizedJob is one posting ready to be stored: the posting itself plus the
// company, category and tech stacks it references by name.
type NormalizedJob struct {
	Company    Company       `json:"company"`
	Category   *JobCategory  `json:"category,omitempty"`
	Posting    JobPosting    `json:"posting"`
	TechStacks []PostingTech `json:"tech_stacks" validate:"dive"`
}

// PostingTech is a tech stack as referenced by a posting.
type PostingTech struct {
	TechStack
	IsRequired bool `json:"is_required"`
}

// Key identifies the posting across crawls.
func (j *NormalizedJob) Key() string {
	return j.Posting.Source + ":" + j.Posting.JobID
}
