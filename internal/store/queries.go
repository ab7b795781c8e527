package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jobflow/go-jobflow/internal/domain"
)

// ErrNotFound is returned by lookups that match no row
var ErrNotFound = errors.New("not found")

const postingColumns = `p.id, p.source, p.job_id, p.company_id, p.category_id, p.title, p.description,
	p.si, p.gu, p.detail_address, p.experience_level, p.employment_type,
	p.salary_min, p.salary_max, p.salary_negotiable, p.education, p.url,
	p.posted_at, p.deadline, p.is_active, p.crawled_at, p.updated_at`

const companyColumns = `c.id, c.name, c.description, c.website_url, c.logo_url,
	c.si, c.gu, c.detail_address, c.employee_count, c.industry, c.created_at, c.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// DeactivateExpired marks postings whose deadline passed before day as inactive
func (d *DB) DeactivateExpired(ctx context.Context, day time.Time) (int64, error) {
	const q = `UPDATE job_postings SET is_active = FALSE, updated_at = NOW()
		WHERE is_active AND deadline IS NOT NULL AND deadline < $1`
	d.trace(q, day)
	res, err := d.Pool.ExecContext(ctx, q, day)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired postings: %w", err)
	}
	return res.RowsAffected()
}

// TechStackStats counts active postings per tech stack, most used first
func (d *DB) TechStackStats(ctx context.Context, limit int) ([]domain.TechStackWithJobCount, error) {
	const q = `SELECT t.id, t.name, t.category, t.normalized_name, t.created_at,
			COUNT(p.id),
			COUNT(p.id) FILTER (WHERE jt.is_required),
			COUNT(p.id) FILTER (WHERE NOT jt.is_required)
		FROM tech_stacks t
		JOIN job_tech_stacks jt ON jt.tech_stack_id = t.id
		JOIN job_postings p ON p.id = jt.job_posting_id AND p.is_active
		GROUP BY t.id
		ORDER BY COUNT(p.id) DESC, t.normalized_name
		LIMIT $1`
	d.trace(q, limit)
	rows, err := d.Pool.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query tech stack stats: %w", err)
	}
	defer rows.Close()

	var out []domain.TechStackWithJobCount
	for rows.Next() {
		var s domain.TechStackWithJobCount
		if err := rows.Scan(&s.ID, &s.Name, &s.Category, &s.NormalizedName, &s.CreatedAt,
			&s.JobCount, &s.RequiredCount, &s.PreferredCount); err != nil {
			return nil, fmt.Errorf("scan tech stack stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CompanyWithJobs loads a company by name with its active postings
func (d *DB) CompanyWithJobs(ctx context.Context, name string) (*domain.CompanyWithJobs, error) {
	q := `SELECT ` + companyColumns + ` FROM companies c WHERE c.name = $1`
	d.trace(q, name)
	company, err := scanCompany(d.Pool.QueryRowContext(ctx, q, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("company %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load company: %w", err)
	}

	q = `SELECT ` + postingColumns + ` FROM job_postings p
		WHERE p.company_id = $1 AND p.is_active ORDER BY p.posted_at DESC`
	d.trace(q, company.ID)
	rows, err := d.Pool.QueryContext(ctx, q, company.ID)
	if err != nil {
		return nil, fmt.Errorf("query company postings: %w", err)
	}
	defer rows.Close()

	out := &domain.CompanyWithJobs{Company: company}
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		out.JobPostings = append(out.JobPostings, p)
	}
	return out, rows.Err()
}

// PostingWithRelations loads one posting with its company, category and tech stacks
func (d *DB) PostingWithRelations(ctx context.Context, source, jobID string) (*domain.JobPostingWithRelations, error) {
	q := `SELECT ` + postingColumns + `, ` + companyColumns + `, jc.id, jc.name, jc.description, jc.created_at
		FROM job_postings p
		JOIN companies c ON c.id = p.company_id
		LEFT JOIN job_categories jc ON jc.id = p.category_id
		WHERE p.source = $1 AND p.job_id = $2`
	d.trace(q, source, jobID)

	var (
		out      domain.JobPostingWithRelations
		catID    sql.NullInt64
		catName  sql.NullString
		catDesc  sql.NullString
		catAt    sql.NullTime
		postDest = postingDest(&out.JobPosting)
		compDest = companyDest(&out.Company)
	)
	dest := append(append(postDest.targets(), compDest.targets()...), &catID, &catName, &catDesc, &catAt)
	err := d.Pool.QueryRowContext(ctx, q, source, jobID).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("posting %s:%s: %w", source, jobID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load posting: %w", err)
	}
	postDest.apply()
	compDest.apply()
	if catID.Valid {
		out.Category = &domain.JobCategory{ID: catID.Int64, Name: catName.String, Description: catDesc.String, CreatedAt: catAt.Time}
	}

	q = `SELECT t.id, t.name, t.category, t.normalized_name, t.created_at, jt.is_required
		FROM job_tech_stacks jt JOIN tech_stacks t ON t.id = jt.tech_stack_id
		WHERE jt.job_posting_id = $1 ORDER BY jt.is_required DESC, t.normalized_name`
	d.trace(q, out.ID)
	rows, err := d.Pool.QueryContext(ctx, q, out.ID)
	if err != nil {
		return nil, fmt.Errorf("query posting tech stacks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pt domain.PostingTech
		if err := rows.Scan(&pt.ID, &pt.Name, &pt.Category, &pt.NormalizedName, &pt.CreatedAt, &pt.IsRequired); err != nil {
			return nil, fmt.Errorf("scan posting tech stack: %w", err)
		}
		out.TechStacks = append(out.TechStacks, pt)
	}
	return &out, rows.Err()
}

func (d *DB) trace(query string, args ...any) {
	if d.echo {
		d.log.Debug().Str("sql", query).Interface("args", args).Msg("query")
	}
}

// nullable columns are scanned into sql.Null* and copied over afterwards
type postingScan struct {
	p                                   *domain.JobPosting
	categoryID                          sql.NullInt64
	si, gu, detail, exp, emp, education sql.NullString
	salaryMin, salaryMax                sql.NullInt64
	deadline                            sql.NullTime
}

func postingDest(p *domain.JobPosting) *postingScan {
	return &postingScan{p: p}
}

func (s *postingScan) targets() []any {
	p := s.p
	return []any{&p.ID, &p.Source, &p.JobID, &p.CompanyID, &s.categoryID, &p.Title, &p.Description,
		&s.si, &s.gu, &s.detail, &s.exp, &s.emp,
		&s.salaryMin, &s.salaryMax, &p.SalaryNegotiable, &s.education, &p.URL,
		&p.PostedAt, &s.deadline, &p.IsActive, &p.CrawledAt, &p.UpdatedAt}
}

func (s *postingScan) apply() {
	p := s.p
	if s.categoryID.Valid {
		id := s.categoryID.Int64
		p.CategoryID = &id
	}
	p.Si, p.Gu, p.DetailAddress = s.si.String, s.gu.String, s.detail.String
	p.ExperienceLevel, p.EmploymentType, p.Education = s.exp.String, s.emp.String, s.education.String
	p.SalaryMin = intPtr(s.salaryMin)
	p.SalaryMax = intPtr(s.salaryMax)
	if s.deadline.Valid {
		t := s.deadline.Time
		p.Deadline = &t
	}
}

func scanPosting(row rowScanner) (domain.JobPosting, error) {
	var p domain.JobPosting
	s := postingDest(&p)
	if err := row.Scan(s.targets()...); err != nil {
		return p, err
	}
	s.apply()
	return p, nil
}

type companyScan struct {
	c                                             *domain.Company
	desc, website, logo, si, gu, detail, industry sql.NullString
	employees                                     sql.NullInt64
}

func companyDest(c *domain.Company) *companyScan {
	return &companyScan{c: c}
}

func (s *companyScan) targets() []any {
	c := s.c
	return []any{&c.ID, &c.Name, &s.desc, &s.website, &s.logo,
		&s.si, &s.gu, &s.detail, &s.employees, &s.industry, &c.CreatedAt, &c.UpdatedAt}
}

func (s *companyScan) apply() {
	c := s.c
	c.Description, c.WebsiteURL, c.LogoURL = s.desc.String, s.website.String, s.logo.String
	c.Si, c.Gu, c.DetailAddress, c.Industry = s.si.String, s.gu.String, s.detail.String, s.industry.String
	c.EmployeeCount = intPtr(s.employees)
}

func scanCompany(row rowScanner) (domain.Company, error) {
	var c domain.Company
	s := companyDest(&c)
	if err := row.Scan(s.targets()...); err != nil {
		return c, err
	}
	s.apply()
	return c, nil
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
