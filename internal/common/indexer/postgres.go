package indexer

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jobflow/go-jobflow/internal/domain"
	"github.com/jobflow/go-jobflow/internal/logger"
	"github.com/jobflow/go-jobflow/internal/store"
)

// PostgresIndexer writes postings and everything they reference into the
// relational schema
type PostgresIndexer struct {
	db  *store.DB
	log *logger.Logger
}

// NewPostgresIndexer creates a new PostgreSQL indexer on an open, migrated store
func NewPostgresIndexer(db *store.DB) *PostgresIndexer {
	return &PostgresIndexer{db: db, log: logger.Named("indexer.postgres")}
}

const upsertCompany = `
	INSERT INTO companies (name, website_url, logo_url, si, gu, detail_address, employee_count, industry)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (name) DO UPDATE SET
		website_url = COALESCE(EXCLUDED.website_url, companies.website_url),
		logo_url = COALESCE(EXCLUDED.logo_url, companies.logo_url),
		si = COALESCE(EXCLUDED.si, companies.si),
		gu = COALESCE(EXCLUDED.gu, companies.gu),
		detail_address = COALESCE(EXCLUDED.detail_address, companies.detail_address),
		employee_count = COALESCE(EXCLUDED.employee_count, companies.employee_count),
		industry = COALESCE(EXCLUDED.industry, companies.industry),
		updated_at = NOW()
	RETURNING id`

// the no-op update makes RETURNING yield the id of an existing row
const upsertCategory = `
	INSERT INTO job_categories (name) VALUES ($1)
	ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
	RETURNING id`

const upsertTechStack = `
	INSERT INTO tech_stacks (name, category, normalized_name) VALUES ($1, $2, $3)
	ON CONFLICT (normalized_name) DO UPDATE SET normalized_name = EXCLUDED.normalized_name
	RETURNING id`

const upsertPosting = `
	INSERT INTO job_postings (
		source, job_id, company_id, category_id, title, description,
		si, gu, detail_address, experience_level, employment_type,
		salary_min, salary_max, salary_negotiable, education, url,
		posted_at, deadline, is_active, crawled_at
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10, $11,
		$12, $13, $14, $15, $16,
		$17, $18, $19, $20
	)
	ON CONFLICT (source, job_id) DO UPDATE SET
		company_id = EXCLUDED.company_id,
		category_id = EXCLUDED.category_id,
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		si = EXCLUDED.si,
		gu = EXCLUDED.gu,
		detail_address = EXCLUDED.detail_address,
		experience_level = EXCLUDED.experience_level,
		employment_type = EXCLUDED.employment_type,
		salary_min = EXCLUDED.salary_min,
		salary_max = EXCLUDED.salary_max,
		salary_negotiable = EXCLUDED.salary_negotiable,
		education = EXCLUDED.education,
		url = EXCLUDED.url,
		posted_at = EXCLUDED.posted_at,
		deadline = EXCLUDED.deadline,
		is_active = EXCLUDED.is_active,
		crawled_at = EXCLUDED.crawled_at,
		updated_at = NOW()
	RETURNING id`

const deletePostingTechs = `DELETE FROM job_tech_stacks WHERE job_posting_id = $1`

const insertPostingTech = `
	INSERT INTO job_tech_stacks (job_posting_id, tech_stack_id, is_required) VALUES ($1, $2, $3)
	ON CONFLICT (job_posting_id, tech_stack_id) DO UPDATE SET is_required = EXCLUDED.is_required`

// BulkIndex writes a batch in one transaction. A record that fails is rolled
// back to its savepoint, logged and skipped.
func (i *PostgresIndexer) BulkIndex(ctx context.Context, jobs []*domain.NormalizedJob) error {
	if len(jobs) == 0 {
		return nil
	}

	var written, skipped int
	err := i.db.WithTx(ctx, func(tx *store.Tx) error {
		for _, job := range jobs {
			err := tx.Savepoint(ctx, "posting", func() error {
				return writeJob(ctx, tx, job)
			})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				skipped++
				i.log.Error().Err(err).Str("posting", job.Key()).Msg("skipping posting")
				continue
			}
			written++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("postgres bulk index: %w", err)
	}

	i.log.Debug().Int("written", written).Int("skipped", skipped).Msg("batch stored")
	return nil
}

func writeJob(ctx context.Context, tx *store.Tx, job *domain.NormalizedJob) error {
	c := job.Company
	var companyID int64
	err := tx.QueryRowContext(ctx, upsertCompany,
		c.Name, nullString(c.WebsiteURL), nullString(c.LogoURL),
		nullString(c.Si), nullString(c.Gu), nullString(c.DetailAddress),
		c.EmployeeCount, nullString(c.Industry),
	).Scan(&companyID)
	if err != nil {
		return fmt.Errorf("upsert company %q: %w", c.Name, err)
	}

	var categoryID *int64
	if job.Category != nil {
		var id int64
		if err := tx.QueryRowContext(ctx, upsertCategory, job.Category.Name).Scan(&id); err != nil {
			return fmt.Errorf("upsert category %q: %w", job.Category.Name, err)
		}
		categoryID = &id
	}

	p := job.Posting
	var postingID int64
	err = tx.QueryRowContext(ctx, upsertPosting,
		p.Source, p.JobID, companyID, categoryID, p.Title, p.Description,
		nullString(p.Si), nullString(p.Gu), nullString(p.DetailAddress),
		nullString(p.ExperienceLevel), nullString(p.EmploymentType),
		p.SalaryMin, p.SalaryMax, p.SalaryNegotiable, nullString(p.Education), p.URL,
		p.PostedAt, p.Deadline, p.IsActive, p.CrawledAt,
	).Scan(&postingID)
	if err != nil {
		return fmt.Errorf("upsert posting: %w", err)
	}

	if _, err := tx.ExecContext(ctx, deletePostingTechs, postingID); err != nil {
		return fmt.Errorf("clear posting tech stacks: %w", err)
	}
	for _, ts := range job.TechStacks {
		var techID int64
		if err := tx.QueryRowContext(ctx, upsertTechStack, ts.Name, ts.Category, ts.NormalizedName).Scan(&techID); err != nil {
			return fmt.Errorf("upsert tech stack %q: %w", ts.NormalizedName, err)
		}
		if _, err := tx.ExecContext(ctx, insertPostingTech, postingID, techID, ts.IsRequired); err != nil {
			return fmt.Errorf("link tech stack %q: %w", ts.NormalizedName, err)
		}
	}
	return nil
}

// nullString stores empty optional text as NULL
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
