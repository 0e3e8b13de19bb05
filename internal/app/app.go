// Package app wires configuration into the scraping pipeline and the
// optional publish sinks shared by the CLI and the HTTP service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maltedev/sku-price-scraper/internal/browser"
	"github.com/maltedev/sku-price-scraper/internal/config"
	"github.com/maltedev/sku-price-scraper/internal/database"
	"github.com/maltedev/sku-price-scraper/internal/pacing"
	"github.com/maltedev/sku-price-scraper/internal/parser"
	"github.com/maltedev/sku-price-scraper/internal/scraper"
	"github.com/maltedev/sku-price-scraper/internal/sink"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

func BrowserOptions(cfg config.BrowserConfig) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Headless
	if cfg.UserAgent != "" {
		opts.UserAgent = cfg.UserAgent
	}
	if cfg.Locale != "" {
		opts.Locale = cfg.Locale
	}
	if cfg.TimezoneID != "" {
		opts.TimezoneID = cfg.TimezoneID
	}
	return opts
}

// Strategy picks the search-grid strategy when a grid selector is configured
// and the direct selector otherwise.
func Strategy(cfg config.ParserConfig) (parser.Strategy, error) {
	if cfg.GridEnabled() {
		return parser.NewGridStrategy(parser.GridOptions{
			GridItemSelector:     cfg.GridItemSelector,
			CartControlSelector:  cfg.CartControlSelector,
			CartControlAttr:      cfg.CartControlAttr,
			PriceElementSelector: cfg.PriceElementSelector,
		})
	}
	return parser.NewDirectStrategy(cfg.PriceSelector)
}

// NewScheduler builds the extractor and scheduler on top of pages.
func NewScheduler(cfg *config.Config, pages scraper.PageProvider, logger *slog.Logger) (*scraper.Scheduler, error) {
	strategy, err := Strategy(cfg.Parser)
	if err != nil {
		return nil, err
	}

	diag, err := scraper.NewDiagnostics(cfg.Output.ErrorFolder)
	if err != nil {
		return nil, err
	}

	extractor := scraper.NewExtractor(pages, strategy, scraper.ExtractorOptions{
		NavigationTimeout: cfg.Scraper.NavigationTimeout,
		SelectorTimeout:   cfg.Scraper.SelectorTimeout,
		RenderSettle:      pacing.NewRandomDelay(cfg.Scraper.RenderSettleMin, cfg.Scraper.RenderSettleMax),
		Screenshot:        diag.Capture,
	}, logger)

	pacer, err := pacing.New(cfg.Scraper.PacingMode, cfg.Scraper.InterCompletionMin, cfg.Scraper.InterCompletionMax)
	if err != nil {
		return nil, err
	}

	return scraper.NewScheduler(extractor, cfg.Scraper.ConcurrencyCap, pacer, logger)
}

// Publishers holds the connections behind the optional publish sinks.
type Publishers struct {
	db        *database.DB
	redis     *redis.Client
	amqp      *amqp.Channel
	amqpClose func() error
	cfg       config.PublishConfig
	logger    *slog.Logger
}

// ConnectPublishers opens every publish backend that has an address
// configured. Backends without one are skipped.
func ConnectPublishers(ctx context.Context, cfg config.PublishConfig, logger *slog.Logger) (*Publishers, error) {
	p := &Publishers{cfg: cfg, logger: logger}

	if cfg.DatabaseURL != "" {
		db, err := database.New(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: 4})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		p.db = db
		if err := database.EnsureSchema(ctx, db); err != nil {
			p.Close()
			return nil, err
		}
		logger.Info("snapshot sink enabled")
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		p.redis = client
		if err := client.Ping(ctx).Err(); err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("redis stream sink enabled", "stream", cfg.RedisStream)
	}

	if cfg.AMQPURL != "" {
		ch, closeFn, err := sink.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.amqp, p.amqpClose = ch, closeFn
		logger.Info("amqp sink enabled", "exchange", cfg.AMQPExchange)
	}

	return p, nil
}

// ForRun returns the sinks bound to runID, or nil when nothing is configured.
func (p *Publishers) ForRun(runID string) sink.Sink {
	var sinks sink.Multi
	if p.db != nil {
		sinks = append(sinks, database.NewSnapshotSink(p.db, runID, p.logger))
	}
	if p.redis != nil {
		sinks = append(sinks, sink.NewRedisStream(p.redis, p.cfg.RedisStream, runID, p.logger))
	}
	if p.amqp != nil {
		sinks = append(sinks, sink.NewAMQP(p.amqp, p.cfg.AMQPExchange, p.cfg.AMQPRoutingKey, runID, p.logger))
	}
	if len(sinks) == 0 {
		return nil
	}
	return sinks
}

func (p *Publishers) Close() error {
	var errs []error
	if p.amqpClose != nil {
		errs = append(errs, p.amqpClose())
	}
	if p.redis != nil {
		errs = append(errs, p.redis.Close())
	}
	if p.db != nil {
		p.db.Close()
	}
	return errors.Join(errs...)
}
