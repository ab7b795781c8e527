package domain

import "time"

type Company struct {
	ID            int64     `json:"id,omitempty"`
	Name          string    `json:"name" validate:"required,max=100"`
	Description   string    `json:"description,omitempty"`
	WebsiteURL    string    `json:"website_url,omitempty" validate:"max=500"`
	LogoURL       string    `json:"logo_url,omitempty" validate:"max=200"`
	Si            string    `json:"si,omitempty" validate:"max=100"`
	Gu            string    `json:"gu,omitempty" validate:"max=100"`
	DetailAddress string    `json:"detail_address,omitempty" validate:"max=100"`
	EmployeeCount *int      `json:"employee_count,omitempty"`
	Industry      string    `json:"industry,omitempty" validate:"max=50"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

type JobCategory struct {
	ID          int64     `json:"id,omitempty"`
	Name        string    `json:"name" validate:"required,max=50"`
	Description string    `json:"description,omitempty" validate:"max=100"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

type TechStack struct {
	ID             int64     `json:"id,omitempty"`
	Name           string    `json:"name" validate:"required,max=50"`
	Category       string    `json:"category" validate:"required,max=50"`
	NormalizedName string    `json:"normalized_name" validate:"required,max=100"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

// JobPosting salaries are in 만원; nil means the posting did not say.
type JobPosting struct {
	ID               int64      `json:"id,omitempty"`
	Source           string     `json:"source" validate:"required,max=50"`
	JobID            string     `json:"job_id" validate:"required,max=100"`
	CompanyID        int64      `json:"company_id,omitempty"`
	CategoryID       *int64     `json:"category_id,omitempty"`
	Title            string     `json:"title" validate:"required,max=200"`
	Description      string     `json:"description" validate:"required"`
	Si               string     `json:"si,omitempty" validate:"max=100"`
	Gu               string     `json:"gu,omitempty" validate:"max=100"`
	DetailAddress    string     `json:"detail_address,omitempty" validate:"max=100"`
	ExperienceLevel  string     `json:"experience_level,omitempty" validate:"max=50"`
	EmploymentType   string     `json:"employment_type,omitempty" validate:"max=50"`
	SalaryMin        *int       `json:"salary_min"`
	SalaryMax        *int       `json:"salary_max"`
	SalaryNegotiable bool       `json:"salary_negotiable"`
	Education        string     `json:"education,omitempty" validate:"max=50"`
	URL              string     `json:"url" validate:"required,max=500"`
	PostedAt         time.Time  `json:"posted_at" validate:"required"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	IsActive         bool       `json:"is_active"`
	CrawledAt        time.Time  `json:"crawled_at"`
	UpdatedAt        time.Time  `json:"updated_at,omitempty"`
}

type JobTechStack struct {
	ID           int64 `json:"id,omitempty"`
	JobPostingID int64 `json:"job_posting_id"`
	TechStackID  int64 `json:"tech_stack_id"`
	IsRequired   bool  `json:"is_required"`
}

// JobPostingWithRelations is a posting joined with everything it references.
type JobPostingWithRelations struct {
	JobPosting
	Company    Company       `json:"company"`
	Category   *JobCategory  `json:"category,omitempty"`
	TechStacks []PostingTech `json:"tech_stacks"`
}

type CompanyWithJobs struct {
	Company
	JobPostings []JobPosting `json:"job_postings"`
}

type TechStackWithJobCount struct {
	TechStack
	JobCount       int `json:"job_count"`
	RequiredCount  int `json:"required_count"`
	PreferredCount int `json:"preferred_count"`
}
