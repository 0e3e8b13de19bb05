package sink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maltedev/sku-price-scraper/internal/models"
	"github.com/redis/go-redis/v9"
)

// StreamAdder is the subset of the redis client used for publishing.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStream appends one stream entry per outcome.
type RedisStream struct {
	client StreamAdder
	stream string
	runID  string
	logger *slog.Logger
}

func NewRedisStream(client StreamAdder, stream, runID string, logger *slog.Logger) *RedisStream {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStream{
		client: client,
		stream: stream,
		runID:  runID,
		logger: logger.With("component", "redis-sink"),
	}
}

func (r *RedisStream) Write(ctx context.Context, outcomes []models.Outcome) error {
	for _, o := range outcomes {
		err := r.client.XAdd(ctx, &redis.XAddArgs{
			Stream: r.stream,
			Values: map[string]interface{}{
				"run_id":       r.runID,
				"sku":          o.SKU,
				"price":        o.Price,
				"status":       string(o.Status()),
				"last_updated": o.Timestamp,
			},
		}).Err()
		if err != nil {
			return fmt.Errorf("failed to publish %s to redis stream: %w", o.SKU, err)
		}
	}

	r.logger.Info("published outcomes", "stream", r.stream, "count", len(outcomes))
	return nil
}
