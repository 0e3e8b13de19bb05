package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/maltedev/sku-price-scraper/internal/browser"
	"github.com/maltedev/sku-price-scraper/internal/config"
	"github.com/maltedev/sku-price-scraper/internal/models"
	"github.com/maltedev/sku-price-scraper/internal/pacing"
	"github.com/maltedev/sku-price-scraper/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBrowserOptions(t *testing.T) {
	opts := BrowserOptions(config.BrowserConfig{Headless: false, Locale: "fr-CA"})

	assert.False(t, opts.Headless)
	assert.Equal(t, "fr-CA", opts.Locale)
	assert.Equal(t, browser.DefaultOptions().TimezoneID, opts.TimezoneID)
	assert.NotEmpty(t, opts.UserAgent)
}

func TestStrategySelection(t *testing.T) {
	s, err := Strategy(config.ParserConfig{PriceSelector: "div.cat-price"})
	require.NoError(t, err)
	assert.IsType(t, &parser.DirectStrategy{}, s)

	s, err = Strategy(config.ParserConfig{
		GridItemSelector:     "li.item",
		CartControlSelector:  "a.cart",
		CartControlAttr:      "onclick",
		PriceElementSelector: "span.price",
	})
	require.NoError(t, err)
	assert.IsType(t, &parser.GridStrategy{}, s)
	assert.Equal(t, "li.item", s.WaitSelector())
}

// staticPage always renders the same document.
type staticPage struct{ html string }

func (p staticPage) Goto(url string, timeout time.Duration) error                 { return nil }
func (p staticPage) WaitForSelector(selector string, timeout time.Duration) error { return nil }
func (p staticPage) Content() (string, error)                                     { return p.html, nil }
func (p staticPage) Screenshot(path string) error                                 { return nil }
func (p staticPage) Close() error                                                 { return nil }

type staticPages struct{ html string }

func (s staticPages) NewPage() (browser.Page, error) { return staticPage{html: s.html}, nil }

func TestNewSchedulerFromConfig(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Output.ErrorFolder = filepath.Join(t.TempDir(), "screenshots")
	cfg.Scraper.RenderSettleMin, cfg.Scraper.RenderSettleMax = 0, 0
	cfg.Scraper.PacingMode = pacing.ModeNone
	cfg.Scraper.ConcurrencyCap = 2

	s, err := NewScheduler(cfg, staticPages{html: `<div class="cat-price">$ 12.50 CAD</div>`}, discardLogger())
	require.NoError(t, err)
	assert.DirExists(t, cfg.Output.ErrorFolder)

	outcomes, err := s.Run(context.Background(), []models.ProductRecord{
		{SKU: "A1", URL: "http://x/A1"},
		{SKU: "B2", URL: "http://x/B2"},
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Equal(t, "12.50", o.Price)
	}
}

func TestNewSchedulerRejectsBadConcurrency(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Output.ErrorFolder = t.TempDir()
	cfg.Scraper.ConcurrencyCap = 0

	_, err = NewScheduler(cfg, staticPages{}, discardLogger())
	assert.Error(t, err)
}

func TestPublishersWithoutBackends(t *testing.T) {
	p, err := ConnectPublishers(context.Background(), config.PublishConfig{}, discardLogger())
	require.NoError(t, err)

	assert.Nil(t, p.ForRun("run-1"))
	assert.NoError(t, p.Close())
}
