package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/sku-price-scraper/internal/browser"
	"github.com/maltedev/sku-price-scraper/internal/models"
	"github.com/maltedev/sku-price-scraper/internal/pacing"
	"github.com/maltedev/sku-price-scraper/internal/parser"
)

type ExtractorOptions struct {
	NavigationTimeout time.Duration
	SelectorTimeout   time.Duration
	// RenderSettle runs between navigation and the first DOM query. Nil skips it.
	RenderSettle pacing.Pacer
	// Screenshot is invoked on unclassified failures. Nil disables capture.
	Screenshot ScreenshotFunc
}

type Extractor struct {
	pages    PageProvider
	strategy parser.Strategy
	opts     ExtractorOptions
	logger   *slog.Logger
	now      func() time.Time
}

func NewExtractor(pages PageProvider, strategy parser.Strategy, opts ExtractorOptions, logger *slog.Logger) *Extractor {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 60 * time.Second
	}
	if opts.SelectorTimeout <= 0 {
		opts.SelectorTimeout = 30 * time.Second
	}
	if opts.RenderSettle == nil {
		opts.RenderSettle = pacing.None{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		pages:    pages,
		strategy: strategy,
		opts:     opts,
		logger:   logger.With("component", "extractor"),
		now:      time.Now,
	}
}

// Extract always returns an outcome for rec. Timeouts yield N/A, anything
// else yields ERROR plus a best-effort screenshot.
func (e *Extractor) Extract(ctx context.Context, rec models.ProductRecord) models.Outcome {
	page, err := e.pages.NewPage()
	if err != nil {
		e.logger.Error("failed to open page", "sku", rec.SKU, "error", err)
		return models.NewOutcome(rec.SKU, models.PriceError, e.now())
	}
	defer func() {
		if err := page.Close(); err != nil {
			e.logger.Warn("page cleanup failed", "error", &ResourceCleanupError{SKU: rec.SKU, Err: err})
		}
	}()

	price, err := e.extractPrice(ctx, page, rec)
	switch {
	case err == nil:
		return models.NewOutcome(rec.SKU, price, e.now())
	case isClassified(err):
		e.logger.Warn("price not available", "sku", rec.SKU, "url", rec.URL, "error", err)
		return models.NewOutcome(rec.SKU, models.PriceNotAvailable, e.now())
	default:
		failure := &UnclassifiedExtractionError{SKU: rec.SKU, Err: err}
		e.capture(page, rec.SKU)
		e.logger.Error("extraction failed", "sku", rec.SKU, "url", rec.URL, "error", failure)
		return models.NewOutcome(rec.SKU, models.PriceError, e.now())
	}
}

func (e *Extractor) extractPrice(ctx context.Context, page browser.Page, rec models.ProductRecord) (string, error) {
	if err := page.Goto(rec.URL, e.opts.NavigationTimeout); err != nil {
		return "", err
	}

	if err := e.opts.RenderSettle.Wait(ctx); err != nil {
		return "", fmt.Errorf("render settle interrupted: %w", err)
	}

	if err := page.WaitForSelector(e.strategy.WaitSelector(), e.opts.SelectorTimeout); err != nil {
		return "", err
	}

	html, err := page.Content()
	if err != nil {
		return "", err
	}

	text, found, err := e.strategy.Locate(html, rec.SKU)
	if err != nil {
		return "", err
	}
	if !found {
		e.logger.Debug("no price element for sku", "sku", rec.SKU)
		return models.PriceNotAvailable, nil
	}

	return parser.NormalizePrice(text), nil
}

func (e *Extractor) capture(page browser.Page, sku string) {
	if e.opts.Screenshot == nil {
		return
	}
	if err := e.opts.Screenshot(page, sku); err != nil {
		e.logger.Warn("failed to save screenshot", "sku", sku, "error", err)
		return
	}
	e.logger.Info("screenshot saved", "sku", sku)
}

func isClassified(err error) bool {
	return errors.Is(err, browser.ErrNavigationTimeout) || errors.Is(err, browser.ErrSelectorTimeout)
}
