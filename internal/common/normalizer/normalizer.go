package normalizer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jobflow/go-jobflow/internal/domain"
)

// ErrIncompleteRecord is returned for postings without a title, company or URL.
var ErrIncompleteRecord = errors.New("incomplete record")

// TechResolver turns a scraped technology name into a catalogued tech stack.
type TechResolver interface {
	Resolve(name string) domain.TechStack
}

// Normalizer converts RawJob to a NormalizedJob ready for indexing
type Normalizer struct {
	techs TechResolver
	now   func() time.Time
}

// NewNormalizer creates a new normalizer
func NewNormalizer(techs TechResolver) *Normalizer {
	return &Normalizer{techs: techs, now: time.Now}
}

// fields holds the source-specific values once they are pulled out of RawData.
type fields struct {
	title          string
	company        string
	companyAddress string
	location       string
	salary         string
	experience     string
	employmentType string
	education      string
	category       string
	description    string
	postedAt       string
	deadline       string
	websiteURL     string
	logoURL        string
	industry       string
	employeeCount  *int
	required       []string
	preferred      []string
}

// Normalize converts a RawJob to a standardized NormalizedJob
func (n *Normalizer) Normalize(raw *domain.RawJob) (*domain.NormalizedJob, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: nil job", ErrIncompleteRecord)
	}
	data := raw.RawData
	if data == nil {
		data = map[string]any{}
	}

	var f fields
	switch domain.JobSource(raw.Source) {
	case domain.SourceSaramin:
		f = saraminFields(data)
	case domain.SourceRocketpunch:
		f = rocketpunchFields(data)
	default:
		f = genericFields(data)
	}

	switch {
	case f.title == "":
		return nil, fmt.Errorf("%w: %s:%s has no title", ErrIncompleteRecord, raw.Source, raw.ID)
	case f.company == "":
		return nil, fmt.Errorf("%w: %s:%s has no company", ErrIncompleteRecord, raw.Source, raw.ID)
	case raw.URL == "":
		return nil, fmt.Errorf("%w: %s:%s has no url", ErrIncompleteRecord, raw.Source, raw.ID)
	}

	now := n.now()
	crawledAt := raw.ExtractedAt
	if crawledAt.IsZero() {
		crawledAt = now
	}

	job := &domain.NormalizedJob{}
	job.Posting = domain.JobPosting{
		Source:          raw.Source,
		JobID:           raw.ID,
		Title:           truncate(f.title, 200),
		Description:     f.description,
		ExperienceLevel: mapExperienceLevel(f.experience),
		EmploymentType:  truncate(f.employmentType, 50),
		Education:       truncate(f.education, 50),
		URL:             raw.URL,
		IsActive:        true,
		CrawledAt:       crawledAt,
	}
	if job.Posting.Description == "" {
		job.Posting.Description = job.Posting.Title
	}

	addr := ParseAddress(f.location)
	job.Posting.Si = truncate(addr.Si, 100)
	job.Posting.Gu = truncate(addr.Gu, 100)
	job.Posting.DetailAddress = truncate(addr.Detail, 100)

	sal := ParseSalary(f.salary)
	job.Posting.SalaryMin = sal.Min
	job.Posting.SalaryMax = sal.Max
	job.Posting.SalaryNegotiable = sal.Negotiable

	if t, ok := NormalizeDate(f.postedAt, now); ok {
		job.Posting.PostedAt = t
	} else {
		job.Posting.PostedAt = startOfDay(crawledAt.In(KST))
	}
	if t, ok := NormalizeDate(f.deadline, now); ok {
		job.Posting.Deadline = &t
	} else if !raw.ExpiredOn.IsZero() {
		d := raw.ExpiredOn
		job.Posting.Deadline = &d
	}

	job.Company = domain.Company{
		Name:          truncate(f.company, 100),
		WebsiteURL:    truncate(f.websiteURL, 500),
		LogoURL:       truncate(f.logoURL, 200),
		Industry:      truncate(f.industry, 50),
		EmployeeCount: f.employeeCount,
	}
	companyAddr := addr
	if f.companyAddress != "" {
		companyAddr = ParseAddress(f.companyAddress)
	}
	job.Company.Si = truncate(companyAddr.Si, 100)
	job.Company.Gu = truncate(companyAddr.Gu, 100)
	job.Company.DetailAddress = truncate(companyAddr.Detail, 100)

	if f.category != "" {
		job.Category = &domain.JobCategory{Name: truncate(f.category, 50)}
	}

	job.TechStacks = n.resolveTechs(f.required, f.preferred)
	return job, nil
}

// resolveTechs catalogues tech names, dropping duplicates by normalized name.
// A name listed as both required and preferred stays required.
func (n *Normalizer) resolveTechs(required, preferred []string) []domain.PostingTech {
	if n.techs == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []domain.PostingTech
	add := func(names []string, isRequired bool) {
		for _, name := range names {
			ts := n.techs.Resolve(name)
			if ts.NormalizedName == "" || seen[ts.NormalizedName] {
				continue
			}
			seen[ts.NormalizedName] = true
			out = append(out, domain.PostingTech{TechStack: ts, IsRequired: isRequired})
		}
	}
	add(required, true)
	add(preferred, false)
	return out
}

// saraminFields reads the keys written by the Saramin list/detail extractor
func saraminFields(data map[string]any) fields {
	f := fields{
		title:          getString(data, "title"),
		company:        getString(data, "company"),
		location:       getString(data, "location"),
		salary:         getString(data, "salary"),
		experience:     getString(data, "experience"),
		employmentType: getString(data, "employment_type"),
		education:      getString(data, "education"),
		category:       getString(data, "category"),
		description:    getString(data, "description"),
		postedAt:       getString(data, "posted_at"),
		deadline:       getString(data, "deadline"),
		websiteURL:     getString(data, "company_url"),
		logoURL:        getString(data, "logo_url"),
		required:       getStringList(data, "tech_stack", "tags"),
	}
	if f.category == "" {
		// the first sector tag is the category on list pages
		if sectors := getStringList(data, "sectors"); len(sectors) > 0 {
			f.category = sectors[0]
		}
	}
	return f
}

// rocketpunchFields reads the keys of the Rocketpunch job API
func rocketpunchFields(data map[string]any) fields {
	f := fields{
		title:          getString(data, "title"),
		company:        getString(data, "company_name"),
		companyAddress: getString(data, "company_address"),
		location:       getString(data, "location", "company_address"),
		salary:         getString(data, "salary"),
		experience:     getString(data, "career"),
		employmentType: getString(data, "job_type"),
		education:      getString(data, "education"),
		category:       getString(data, "job_category"),
		description:    getString(data, "description"),
		postedAt:       getString(data, "published_at"),
		deadline:       getString(data, "deadline"),
		websiteURL:     getString(data, "homepage"),
		logoURL:        getString(data, "logo"),
		industry:       getString(data, "industry"),
		required:       getStringList(data, "stacks_required"),
		preferred:      getStringList(data, "stacks_preferred"),
	}
	if n, ok := getInt(data, "employee_count"); ok {
		f.employeeCount = &n
	}
	return f
}

// genericFields handles sources without a dedicated key set
func genericFields(data map[string]any) fields {
	f := fields{
		title:          getString(data, "title", "job_title", "name"),
		company:        getString(data, "company", "company_name", "companyName"),
		companyAddress: getString(data, "company_address"),
		location:       getString(data, "location", "address", "work_place"),
		salary:         getString(data, "salary", "pay"),
		experience:     getString(data, "experience", "career"),
		employmentType: getString(data, "employment_type", "job_type"),
		education:      getString(data, "education"),
		category:       getString(data, "category", "job_category"),
		description:    getString(data, "description", "content"),
		postedAt:       getString(data, "posted_at", "created_at"),
		deadline:       getString(data, "deadline", "expired_at"),
		websiteURL:     getString(data, "company_url", "homepage"),
		logoURL:        getString(data, "logo_url", "logo"),
		industry:       getString(data, "industry"),
		required:       getStringList(data, "tech_stack", "skills", "stacks_required"),
		preferred:      getStringList(data, "preferred_skills", "stacks_preferred"),
	}
	if n, ok := getInt(data, "employee_count"); ok {
		f.employeeCount = &n
	}
	return f
}

// mapExperienceLevel folds the many ways boards state experience into
// 신입, 경력, 신입·경력 or 무관. Unrecognised text is kept as is.
func mapExperienceLevel(exp string) string {
	compact := strings.ReplaceAll(fold(exp), " ", "")
	if compact == "" {
		return ""
	}
	newcomer := strings.Contains(compact, "신입")
	career := strings.Contains(compact, "경력") || strings.Contains(compact, "년")
	switch {
	case strings.Contains(compact, "무관"):
		return "무관"
	case newcomer && career:
		return "신입·경력"
	case newcomer:
		return "신입"
	case career:
		return "경력"
	}
	return truncate(strings.TrimSpace(exp), 50)
}
