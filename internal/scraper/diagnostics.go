package scraper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maltedev/sku-price-scraper/internal/browser"
)

// ScreenshotFunc captures the current state of page for sku. It is only
// called on unclassified failures and its error is logged, not returned.
type ScreenshotFunc func(page browser.Page, sku string) error

// Diagnostics writes failure screenshots to a fixed directory.
type Diagnostics struct {
	dir string
}

// NewDiagnostics creates dir if needed.
func NewDiagnostics(dir string) (*Diagnostics, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create diagnostics directory %s: %w", dir, err)
	}
	return &Diagnostics{dir: dir}, nil
}

func (d *Diagnostics) Dir() string {
	return d.dir
}

// Path is where the screenshot for sku is written.
func (d *Diagnostics) Path(sku string) string {
	return filepath.Join(d.dir, safeFileName(sku)+".png")
}

func (d *Diagnostics) Capture(page browser.Page, sku string) error {
	return page.Screenshot(d.Path(sku))
}

func safeFileName(sku string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, sku)
}
