package sink

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/maltedev/sku-price-scraper/internal/models"
)

// Sink receives the complete set of outcomes of a run.
type Sink interface {
	Write(ctx context.Context, outcomes []models.Outcome) error
}

// NewFile picks a table writer for path based on its extension.
func NewFile(path string, includeTimestamp bool) (Sink, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", "":
		return NewCSV(path, includeTimestamp), nil
	case ".xlsx":
		return NewXLSX(path, includeTimestamp), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}
}

// Multi writes to every sink, even when an earlier one fails.
type Multi []Sink

func (m Multi) Write(ctx context.Context, outcomes []models.Outcome) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, outcomes); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func header(includeTimestamp bool) []string {
	if includeTimestamp {
		return []string{"sku", "price", "last_updated"}
	}
	return []string{"sku", "price"}
}

func row(o models.Outcome, includeTimestamp bool) []string {
	if includeTimestamp {
		return []string{o.SKU, o.Price, o.Timestamp}
	}
	return []string{o.SKU, o.Price}
}
