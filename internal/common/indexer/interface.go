package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jobflow/go-jobflow/internal/domain"
)

// Indexer defines the interface for posting storage and search backends
type Indexer interface {
	// BulkIndex stores a batch of postings, skipping records it cannot write
	BulkIndex(ctx context.Context, jobs []*domain.NormalizedJob) error
}

// Named pairs an indexer with the name used in logs and errors
type Named struct {
	Name string
	Indexer
}

// Multi writes every batch to each indexer in order. All indexers are tried
// even when one fails; the returned error joins the failures.
type Multi []Named

func (m Multi) BulkIndex(ctx context.Context, jobs []*domain.NormalizedJob) error {
	var errs []error
	for _, ix := range m {
		if err := ix.BulkIndex(ctx, jobs); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ix.Name, err))
		}
	}
	return errors.Join(errs...)
}
