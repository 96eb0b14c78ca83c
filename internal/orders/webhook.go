package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/motbungchow/go-food-orderflow/internal/apperr"
)

// Gateway webhook event types.
const (
	eventPaymentCaptured = "payment.captured"
	eventPaymentFailed   = "payment.failed"
)

// EventOrderConfirmed tags confirmed-order messages on the fulfillment queue.
const EventOrderConfirmed = "order.confirmed"

// webhookEvent mirrors the gateway's webhook payload schema.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				OrderID string `json:"order_id"`
				ID      string `json:"id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// OrderConfirmedEvent is the message body sent to the fulfillment queue when
// an order reaches CONFIRMED.
type OrderConfirmedEvent struct {
	OrderID      string  `json:"order_id"`
	RestaurantID string  `json:"restaurant_id"`
	UserID       string  `json:"user_id"`
	TotalAmount  float64 `json:"total_amount"`
}

// HandleWebhook is the asynchronous, gateway-initiated reconciliation path.
// rawBody must be the unparsed request bytes; the signature covers them
// exactly. A redelivered capture for an already-CONFIRMED order is a no-op,
// and a failure event after capture is ignored. An unknown order on a
// recognized event is acknowledged (logged, never retried by the gateway),
// but a store failure surfaces so the gateway redelivers.
func (s *Service) HandleWebhook(ctx context.Context, rawBody []byte, signature string) error {
	if !s.gateway.VerifyWebhookSignature(rawBody, signature) {
		s.logger.Warn("webhook signature mismatch")
		return apperr.SignatureMismatch("webhook signature verification failed")
	}

	var ev webhookEvent
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return apperr.Validation("malformed webhook payload")
	}

	orderID := ev.Payload.Payment.Entity.OrderID
	paymentID := ev.Payload.Payment.Entity.ID

	switch ev.Event {
	case eventPaymentCaptured:
		err := s.confirm(ctx, orderID, paymentID)
		switch {
		case apperr.KindOf(err) == apperr.KindNotFound:
			// Gateway retries forever on non-2xx; an order we never created
			// is not worth a retry storm.
			s.logger.Warn("webhook capture for unknown order", zap.String("order_id", orderID))
			return nil
		case errors.Is(err, ErrStatusMismatch):
			// Permanently non-PENDING (e.g. FAILED); retrying cannot help.
			s.logger.Error("webhook capture for non-pending order", zap.String("order_id", orderID))
			return nil
		}
		return err

	case eventPaymentFailed:
		transitioned, err := s.store.MarkFailed(ctx, orderID)
		switch {
		case err == nil:
			if !transitioned {
				// capture won, or a redelivery; either way nothing to record
				s.logger.Info("ignoring failure event", zap.String("order_id", orderID))
				return nil
			}
			s.logger.Info("order payment failed", zap.String("order_id", orderID))
			if s.metrics != nil {
				if o, getErr := s.store.Get(ctx, orderID); getErr == nil {
					if mErr := s.metrics.PutPaymentFailed(ctx, o.RestaurantID); mErr != nil {
						s.logger.Warn("payment failed metric failed", zap.Error(mErr))
					}
				}
			}
			return nil
		case errors.Is(err, ErrNotFound):
			s.logger.Warn("webhook failure for unknown order", zap.String("order_id", orderID))
			return nil
		case errors.Is(err, ErrStatusMismatch):
			s.logger.Info("ignoring failure event", zap.String("order_id", orderID))
			return nil
		default:
			return fmt.Errorf("mark failed %s: %w", orderID, err)
		}

	default:
		// Gateways add event types over time; acknowledge what we don't
		// handle so they stop redelivering it.
		s.logger.Info("ignoring webhook event", zap.String("event", ev.Event))
		return nil
	}
}
