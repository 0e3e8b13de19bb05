package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maltedev/sku-price-scraper/internal/models"
	"github.com/maltedev/sku-price-scraper/internal/pacing"
	"golang.org/x/sync/semaphore"
)

type Scheduler struct {
	extractor ItemExtractor
	limiter   Limiter
	pacer     pacing.Pacer
	logger    *slog.Logger
}

// NewScheduler builds a scheduler gated by a semaphore of size concurrency.
func NewScheduler(extractor ItemExtractor, concurrency int, pacer pacing.Pacer, logger *slog.Logger) (*Scheduler, error) {
	if concurrency < 1 {
		return nil, fmt.Errorf("concurrency cap must be at least 1, got %d", concurrency)
	}
	return NewSchedulerWithLimiter(extractor, semaphore.NewWeighted(int64(concurrency)), pacer, logger), nil
}

func NewSchedulerWithLimiter(extractor ItemExtractor, limiter Limiter, pacer pacing.Pacer, logger *slog.Logger) *Scheduler {
	if pacer == nil {
		pacer = pacing.None{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		extractor: extractor,
		limiter:   limiter,
		pacer:     pacer,
		logger:    logger.With("component", "scheduler"),
	}
}

// Run extracts every record and returns one outcome per record in completion
// order. It only fails when ctx is cancelled before all outcomes are in.
func (s *Scheduler) Run(ctx context.Context, records []models.ProductRecord) ([]models.Outcome, error) {
	type result struct {
		outcome models.Outcome
		err     error
	}

	// Buffered so workers never block on a slow or aborted collector.
	results := make(chan result, len(records))

	for _, rec := range records {
		go func(rec models.ProductRecord) {
			if err := s.limiter.Acquire(ctx, 1); err != nil {
				results <- result{err: fmt.Errorf("acquire slot for %s: %w", rec.SKU, err)}
				return
			}
			defer s.limiter.Release(1)

			results <- result{outcome: s.extractor.Extract(ctx, rec)}
		}(rec)
	}

	outcomes := make([]models.Outcome, 0, len(records))
	for range records {
		var r result
		select {
		case <-ctx.Done():
			return outcomes, ctx.Err()
		case r = <-results:
		}
		if r.err != nil {
			return outcomes, r.err
		}

		outcomes = append(outcomes, r.outcome)
		s.logger.Info("item completed",
			"sku", r.outcome.SKU,
			"price", r.outcome.Price,
			"status", r.outcome.Status(),
			"done", len(outcomes),
			"total", len(records),
		)

		if len(outcomes) < len(records) {
			if err := s.pacer.Wait(ctx); err != nil {
				return outcomes, err
			}
		}
	}

	return outcomes, nil
}
