package scraper

import (
	"context"
	"fmt"

	"github.com/maltedev/sku-price-scraper/internal/browser"
	"github.com/maltedev/sku-price-scraper/internal/models"
)

// PageProvider hands out isolated pages from a shared browser context.
type PageProvider interface {
	NewPage() (browser.Page, error)
}

// Limiter is a counting gate; *semaphore.Weighted satisfies it.
type Limiter interface {
	Acquire(ctx context.Context, n int64) error
	Release(n int64)
}

// ItemExtractor turns one record into exactly one outcome and never fails.
type ItemExtractor interface {
	Extract(ctx context.Context, rec models.ProductRecord) models.Outcome
}

// UnclassifiedExtractionError is any extraction failure other than a
// navigation or selector timeout.
type UnclassifiedExtractionError struct {
	SKU string
	Err error
}

func (e *UnclassifiedExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.SKU, e.Err)
}

func (e *UnclassifiedExtractionError) Unwrap() error {
	return e.Err
}

// ResourceCleanupError is a failure to close a page after the outcome has
// already been decided.
type ResourceCleanupError struct {
	SKU string
	Err error
}

func (e *ResourceCleanupError) Error() string {
	return fmt.Sprintf("failed to close page for %s: %v", e.SKU, e.Err)
}

func (e *ResourceCleanupError) Unwrap() error {
	return e.Err
}
