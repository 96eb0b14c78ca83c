package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/motbungchow/go-food-orderflow/internal/apperr"
)

// PaymentGateway is the slice of the gateway client the lifecycle needs.
// Injected so tests can run against a double.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amountMinorUnits int64, currency, receipt string) (string, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(rawBody []byte, signature string) bool
}

// EventPublisher pushes confirmed-order events to the fulfillment queue.
type EventPublisher interface {
	SendOrderMessage(ctx context.Context, messageBody string, attributes map[string]string) error
}

// Metrics records order lifecycle counters.
type Metrics interface {
	PutOrderConfirmed(ctx context.Context, restaurantID string) error
	PutPaymentFailed(ctx context.Context, restaurantID string) error
}

// Service orchestrates the order lifecycle: creation with gateway intent,
// stale-checkout cleanup, and the two reconciliation paths (client verify and
// gateway webhook) converging on one idempotent CONFIRMED transition.
type Service struct {
	store    *Store
	gateway  PaymentGateway
	events   EventPublisher // optional
	metrics  Metrics        // optional
	logger   *zap.Logger
	currency string
	nowFunc  func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store    *Store
	Gateway  PaymentGateway
	Events   EventPublisher
	Metrics  Metrics
	Logger   *zap.Logger
	Currency string
}

// NewService builds a Service. Events and Metrics may be nil; publishing is
// best-effort and never fails a reconciliation.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "INR"
	}
	return &Service{
		store:    cfg.Store,
		gateway:  cfg.Gateway,
		events:   cfg.Events,
		metrics:  cfg.Metrics,
		logger:   logger,
		currency: currency,
		nowFunc:  time.Now,
	}
}

// CartItem is a cart line as submitted at checkout. Each line carries the tag
// of the restaurant it was added from so cross-restaurant carts are rejected.
type CartItem struct {
	Name         string
	Qty          int
	Price        float64
	RestaurantID string
}

// CreateOrderInput is the checkout request after binding and authentication.
// Fee values are caller-supplied pass-throughs of fixed business constants.
type CreateOrderInput struct {
	UserID        string
	CustomerName  string
	RestaurantID  string
	Location      string
	MapLink       string
	PaymentMethod string
	Items         []CartItem
	PlatformFee   float64
	DeliveryFee   float64
	Tip           float64
}

// CreateOrderResult is what the caller needs for client-side payment
// collection; the financial breakdown beyond the total stays internal.
type CreateOrderResult struct {
	OrderID string
	Amount  float64
}

// CreateOrder validates the checkout, sweeps the caller's stale PENDING
// orders, opens a gateway intent for online payment, and persists the order.
// For ONLINE, the gateway call precedes persistence so no PENDING order can
// exist without a gateway counterpart.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	switch {
	case in.Location == "":
		return nil, apperr.Validation("location is required")
	case in.CustomerName == "":
		return nil, apperr.Validation("customer name is required")
	case in.RestaurantID == "":
		return nil, apperr.Validation("restaurant id is required")
	case len(in.Items) == 0:
		return nil, apperr.Validation("cart is empty")
	case in.PaymentMethod != PaymentMethodOnline && in.PaymentMethod != PaymentMethodCOD:
		return nil, apperr.Validation("payment method must be ONLINE or COD")
	case in.PlatformFee < 0 || in.DeliveryFee < 0 || in.Tip < 0:
		return nil, apperr.Validation("fees must not be negative")
	}

	for _, item := range in.Items {
		if item.RestaurantID != in.RestaurantID {
			return nil, apperr.CrossRestaurantCart("all items must belong to the same restaurant")
		}
	}

	// Best-effort sweep of this user's abandoned checkouts. Failure to clean
	// up must not fail the create.
	now := s.nowFunc()
	if n, err := s.store.DeleteStalePending(ctx, in.UserID, now.Add(-StaleWindow)); err != nil {
		s.logger.Warn("stale pending cleanup failed",
			zap.String("user_id", in.UserID),
			zap.Error(err))
	} else if n > 0 {
		s.logger.Info("removed stale pending orders",
			zap.String("user_id", in.UserID),
			zap.Int("count", n))
	}

	var itemsTotal float64
	items := make([]OrderItem, 0, len(in.Items))
	for _, item := range in.Items {
		itemsTotal += item.Price * float64(item.Qty)
		items = append(items, OrderItem{Name: item.Name, Qty: item.Qty, Price: item.Price})
	}
	totalAmount := itemsTotal + in.PlatformFee + in.DeliveryFee + in.Tip

	order := Order{
		UserID:        in.UserID,
		RestaurantID:  in.RestaurantID,
		CustomerName:  in.CustomerName,
		Location:      in.Location,
		MapLink:       in.MapLink,
		Items:         items,
		ItemsTotal:    itemsTotal,
		PlatformFee:   in.PlatformFee,
		DeliveryFee:   in.DeliveryFee,
		Tip:           in.Tip,
		TotalAmount:   totalAmount,
		PaymentMethod: in.PaymentMethod,
		CreatedAt:     now,
	}

	if in.PaymentMethod == PaymentMethodOnline {
		receipt := "rcpt_" + uuid.NewString()
		intentID, err := s.gateway.CreateIntent(ctx, MinorUnits(totalAmount), s.currency, receipt)
		if err != nil {
			return nil, apperr.PaymentGateway("failed to open payment intent", err)
		}
		order.OrderID = intentID
		order.GatewayOrderID = intentID
		order.Status = StatusPending
	} else {
		order.OrderID = "COD_" + uuid.NewString()
		order.Status = StatusCODPending
	}

	if err := s.store.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.logger.Info("order created",
		zap.String("order_id", order.OrderID),
		zap.String("user_id", order.UserID),
		zap.String("restaurant_id", order.RestaurantID),
		zap.String("payment_method", order.PaymentMethod),
		zap.Float64("total_amount", order.TotalAmount))

	return &CreateOrderResult{OrderID: order.OrderID, Amount: totalAmount}, nil
}

// VerifyPayment is the synchronous, client-initiated confirmation path. The
// client may never call it (browser closed after paying); the webhook is the
// authoritative fallback. Safe to repeat: the second identical call observes
// CONFIRMED and writes nothing.
func (s *Service) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) error {
	if !s.gateway.VerifyPaymentSignature(orderID, paymentID, signature) {
		s.logger.Warn("payment signature mismatch", zap.String("order_id", orderID))
		return apperr.SignatureMismatch("payment signature verification failed")
	}
	return s.confirm(ctx, orderID, paymentID)
}

// confirm is the single idempotent CONFIRMED transition both reconciliation
// entry points call. Whichever path arrives first wins; the loser observes
// CONFIRMED and reports success too.
func (s *Service) confirm(ctx context.Context, orderID, paymentID string) error {
	transitioned, err := s.store.ConfirmPayment(ctx, orderID, paymentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("order not found")
		}
		return fmt.Errorf("confirm order %s: %w", orderID, err)
	}
	if !transitioned {
		s.logger.Info("order already confirmed", zap.String("order_id", orderID))
		return nil
	}

	s.logger.Info("order confirmed",
		zap.String("order_id", orderID),
		zap.String("payment_id", paymentID))
	s.publishConfirmed(ctx, orderID)
	return nil
}

// publishConfirmed pushes the confirmed-order event and metric. Both are
// best-effort: the payment is already captured, so a queue or metrics outage
// must not turn a successful reconciliation into a client-visible failure.
func (s *Service) publishConfirmed(ctx context.Context, orderID string) {
	order, err := s.store.Get(ctx, orderID)
	if err != nil {
		s.logger.Warn("confirmed order re-read failed", zap.String("order_id", orderID), zap.Error(err))
		return
	}

	if s.metrics != nil {
		if err := s.metrics.PutOrderConfirmed(ctx, order.RestaurantID); err != nil {
			s.logger.Warn("order confirmed metric failed", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	if s.events == nil {
		return
	}
	ev := OrderConfirmedEvent{
		OrderID:      order.OrderID,
		RestaurantID: order.RestaurantID,
		UserID:       order.UserID,
		TotalAmount:  order.TotalAmount,
	}
	body, err := json.Marshal(ev)
	if err != nil {
		s.logger.Warn("marshal confirmed event failed", zap.String("order_id", orderID), zap.Error(err))
		return
	}
	attrs := map[string]string{
		"event":    EventOrderConfirmed,
		"order_id": order.OrderID,
	}
	if err := s.events.SendOrderMessage(ctx, string(body), attrs); err != nil {
		s.logger.Warn("publish confirmed event failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

// ListByUser returns the customer's placed orders newest-first: confirmed
// online orders plus cash orders awaiting fulfillment.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.store.QueryByUser(ctx, userID, []string{StatusConfirmed, StatusCODPending})
}

// ListByRestaurant returns a restaurant's actionable orders newest-first.
func (s *Service) ListByRestaurant(ctx context.Context, restaurantID string) ([]Order, error) {
	return s.store.QueryByRestaurant(ctx, restaurantID, []string{StatusConfirmed, StatusCODPending})
}

// MinorUnits converts a major-unit amount to the gateway's minor currency
// units (two decimal places).
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
