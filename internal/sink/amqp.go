package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/sku-price-scraper/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the subset of *amqp.Channel used for publishing.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// PriceUpdate is the message body published per outcome.
type PriceUpdate struct {
	RunID       string `json:"run_id"`
	SKU         string `json:"sku"`
	Price       string `json:"price"`
	Status      string `json:"status"`
	LastUpdated string `json:"last_updated"`
}

// AMQP publishes one persistent JSON message per outcome.
type AMQP struct {
	publisher  Publisher
	exchange   string
	routingKey string
	runID      string
	logger     *slog.Logger
}

func NewAMQP(publisher Publisher, exchange, routingKey, runID string, logger *slog.Logger) *AMQP {
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQP{
		publisher:  publisher,
		exchange:   exchange,
		routingKey: routingKey,
		runID:      runID,
		logger:     logger.With("component", "amqp-sink"),
	}
}

func (a *AMQP) Write(ctx context.Context, outcomes []models.Outcome) error {
	for _, o := range outcomes {
		body, err := json.Marshal(PriceUpdate{
			RunID:       a.runID,
			SKU:         o.SKU,
			Price:       o.Price,
			Status:      string(o.Status()),
			LastUpdated: o.Timestamp,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal update for %s: %w", o.SKU, err)
		}

		err = a.publisher.PublishWithContext(ctx, a.exchange, a.routingKey, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    a.runID + ":" + o.SKU,
			Body:         body,
		})
		if err != nil {
			return fmt.Errorf("failed to publish %s: %w", o.SKU, err)
		}
	}

	a.logger.Info("published outcomes", "exchange", a.exchange, "routing_key", a.routingKey, "count", len(outcomes))
	return nil
}

// DialAMQP connects and declares a durable topic exchange. The returned
// close func releases both the channel and the connection.
func DialAMQP(url, exchange string) (*amqp.Channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange %q: %w", exchange, err)
	}

	closeFn := func() error {
		chErr := ch.Close()
		if err := conn.Close(); err != nil {
			return err
		}
		return chErr
	}
	return ch, closeFn, nil
}
