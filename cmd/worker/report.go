package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jobflow/go-jobflow/internal/domain"
)

type reportFlags struct {
	enabled bool
	top     int
	company string
	posting string
}

// reportStore is the read side of the store used by the report
type reportStore interface {
	TechStackStats(ctx context.Context, limit int) ([]domain.TechStackWithJobCount, error)
	CompanyWithJobs(ctx context.Context, name string) (*domain.CompanyWithJobs, error)
	PostingWithRelations(ctx context.Context, source, jobID string) (*domain.JobPostingWithRelations, error)
}

type report struct {
	TechStacks []domain.TechStackWithJobCount `json:"tech_stacks"`
	Company    *domain.CompanyWithJobs        `json:"company,omitempty"`
	Posting    *domain.JobPostingWithRelations `json:"posting,omitempty"`
}

// writeReport prints tech stack usage and the requested company and posting as JSON
func writeReport(ctx context.Context, w io.Writer, db reportStore, f reportFlags) error {
	var out report

	stats, err := db.TechStackStats(ctx, f.top)
	if err != nil {
		return err
	}
	out.TechStacks = stats

	if f.company != "" {
		if out.Company, err = db.CompanyWithJobs(ctx, f.company); err != nil {
			return err
		}
	}

	if f.posting != "" {
		source, jobID, ok := strings.Cut(f.posting, ":")
		if !ok || source == "" || jobID == "" {
			return fmt.Errorf("posting %q: want source:job_id", f.posting)
		}
		if out.Posting, err = db.PostingWithRelations(ctx, source, jobID); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}
