package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maltedev/sku-price-scraper/internal/models"
)

// CSV rewrites a delimited table on every Write.
type CSV struct {
	path             string
	includeTimestamp bool
}

func NewCSV(path string, includeTimestamp bool) *CSV {
	return &CSV{path: path, includeTimestamp: includeTimestamp}
}

func (c *CSV) Path() string {
	return c.path
}

func (c *CSV) Write(ctx context.Context, outcomes []models.Outcome) error {
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Write to temp file first, then rename over the target.
	tmpFile := c.path + ".tmp"
	f, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmpFile, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header(c.includeTimestamp)); err != nil {
		f.Close()
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, o := range outcomes {
		if err := w.Write(row(o, c.includeTimestamp)); err != nil {
			f.Close()
			return fmt.Errorf("failed to write csv row for %s: %w", o.SKU, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpFile, err)
	}

	if err := os.Rename(tmpFile, c.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", c.path, err)
	}
	return nil
}
