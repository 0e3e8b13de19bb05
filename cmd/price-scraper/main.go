package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/maltedev/sku-price-scraper/internal/app"
	"github.com/maltedev/sku-price-scraper/internal/browser"
	"github.com/maltedev/sku-price-scraper/internal/config"
	"github.com/maltedev/sku-price-scraper/internal/models"
	"github.com/maltedev/sku-price-scraper/internal/records"
	"github.com/maltedev/sku-price-scraper/internal/sink"
	"github.com/maltedev/sku-price-scraper/pkg/logger"
)

func main() {
	var (
		envFile     = flag.String("env", ".env", "Optional .env file to seed the environment from")
		input       = flag.String("input", "", "Input table (.csv or .xlsx), overrides INPUT_PATH")
		output      = flag.String("output", "", "Output table (.csv or .xlsx), overrides OUTPUT_PATH")
		concurrency = flag.Int("concurrency", 0, "Maximum pages in flight, overrides CONCURRENCY_CAP")
		headless    = flag.Bool("headless", true, "Run browser in headless mode, overrides BROWSER_HEADLESS")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *input != "" {
		cfg.Input.Path = *input
	}
	if *output != "" {
		cfg.Output.Path = *output
	}
	if *concurrency != 0 {
		cfg.Scraper.ConcurrencyCap = *concurrency
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "headless" {
			cfg.Browser.Headless = *headless
		}
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bad input aborts before the browser is ever started.
	recs, err := records.Load(cfg.Input.Path, cfg.Input.BaseURLTemplate)
	if err != nil {
		logger.Error("Failed to load input", "path", cfg.Input.Path, "error", err)
		os.Exit(1)
	}

	out, err := sink.NewFile(cfg.Output.Path, cfg.Output.IncludeTimestamp)
	if err != nil {
		logger.Error("Invalid output", "path", cfg.Output.Path, "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, recs, out, logger); err != nil {
		logger.Error("Run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, recs []models.ProductRecord, out sink.Sink, logger *slog.Logger) error {
	runID := uuid.New().String()
	logger = logger.With("run_id", runID)
	logger.Info("Starting price scraper", "records", len(recs), "concurrency", cfg.Scraper.ConcurrencyCap)

	publishers, err := app.ConnectPublishers(ctx, cfg.Publish, logger)
	if err != nil {
		return err
	}
	defer publishers.Close()

	b, err := browser.New(app.BrowserOptions(cfg.Browser), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize browser: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warn("Browser shutdown incomplete", "error", err)
		}
	}()

	scheduler, err := app.NewScheduler(cfg, b, logger)
	if err != nil {
		return err
	}

	outcomes, runErr := scheduler.Run(ctx, recs)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if runErr != nil {
		logger.Warn("Run interrupted, writing partial results", "completed", len(outcomes), "total", len(recs))
	}

	sinks := sink.Multi{out}
	if published := publishers.ForRun(runID); published != nil {
		sinks = append(sinks, published)
	}
	// Results are written even after an interrupt so completed work is kept.
	if err := sinks.Write(context.WithoutCancel(ctx), outcomes); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	summary := models.Summarize(outcomes)
	logger.Info("Price update complete",
		"output", cfg.Output.Path,
		"total", summary.Total,
		"ok", summary.OK,
		"not_available", summary.NotAvailable,
		"errors", summary.Errors,
		"screenshots", cfg.Output.ErrorFolder,
	)
	return runErr
}
