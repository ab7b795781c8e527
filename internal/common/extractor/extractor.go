package extractor

import (
	"context"
	"time"

	"github.com/jobflow/go-jobflow/internal/domain"
)

// Extractor defines the interface for extracting job data from HTML sources
type Extractor interface {
	// Extract fetches and extracts a single job from the given URL
	Extract(ctx context.Context, url string) (*domain.RawJob, error)

	// ExtractList fetches a listing page and extracts every posting on it
	ExtractList(ctx context.Context, listURL string, page int) ([]*domain.RawJob, error)

	// Name returns the name of this extractor
	Name() string
}

// ExtractorConfig holds common configuration for extractors
type ExtractorConfig struct {
	UserAgent    string
	ProxyURL     string
	MaxRetries   int
	RequestDelay time.Duration
}
