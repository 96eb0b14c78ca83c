package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	internalaws "github.com/motbungchow/go-food-orderflow/internal/aws"
	"github.com/motbungchow/go-food-orderflow/internal/orders"
)

// Processor consumes confirmed-order messages from the fulfillment queue.
// It re-reads the order before acting so duplicate and stale deliveries are
// harmless: anything not CONFIRMED is skipped.
type Processor struct {
	store   *orders.Store
	metrics *internalaws.MetricsPublisher
	logger  *zap.Logger
}

// NewProcessor creates a worker processor with its dependencies injected.
func NewProcessor(store *orders.Store, metrics *internalaws.MetricsPublisher, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Return error: Lambda will retry. If failed too many times, message goes to DLQ.
			p.logger.Error("worker error", zap.Error(err))
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg fulfillmentMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	p.logger.Info("received fulfillment message",
		zap.String("order_id", msg.OrderID),
		zap.String("restaurant_id", msg.RestaurantID))

	order, err := p.store.Get(ctx, msg.OrderID)
	if err != nil {
		if err == orders.ErrNotFound {
			// Should never happen; DLQ if it does
			return fmt.Errorf("order not found: %s", msg.OrderID)
		}
		return fmt.Errorf("failed to fetch order: %w", err)
	}

	if order.Status != orders.StatusConfirmed {
		p.logger.Info("skipping non-confirmed order",
			zap.String("order_id", order.OrderID),
			zap.String("status", order.Status))
		return nil
	}

	if p.metrics != nil {
		if err := p.metrics.PutOrderConfirmed(ctx, order.RestaurantID); err != nil {
			p.logger.Warn("metric put failed", zap.String("order_id", order.OrderID), zap.Error(err))
		}
	}

	// Fulfillment notification to the restaurant dashboard. Delivery channel
	// is the dashboard's poll of /api/orders/by-restaurant; this log line is
	// the operational trace that the order entered fulfillment.
	p.logger.Info("order entered fulfillment",
		zap.String("order_id", order.OrderID),
		zap.String("restaurant_id", order.RestaurantID),
		zap.Float64("total_amount", order.TotalAmount))

	return nil
}
