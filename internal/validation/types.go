package validation

// Item represents a single cart line item. Every line carries the tag of the
// restaurant it was added from.
type Item struct {
	Name         string  `json:"name" validate:"required"`
	Qty          int     `json:"qty" validate:"required,min=1"`
	Price        float64 `json:"price" validate:"required,gt=0"` // unit price
	RestaurantID string  `json:"restaurantId" validate:"required"`
}

// CreateOrderRequest is the payload for POST /api/orders. Fee values are
// caller-supplied pass-throughs of fixed business constants.
type CreateOrderRequest struct {
	Location      string  `json:"location" validate:"required"`
	MapLink       string  `json:"mapLink,omitempty"`
	CustomerName  string  `json:"customerName" validate:"required"`
	RestaurantID  string  `json:"restaurantId" validate:"required"`
	PaymentMethod string  `json:"paymentMethod" validate:"required,oneof=ONLINE COD"`
	Items         []Item  `json:"items" validate:"required,min=1,dive"`
	PlatformFee   float64 `json:"platformFee" validate:"gte=0"`
	DeliveryFee   float64 `json:"deliveryFee" validate:"gte=0"`
	Tip           float64 `json:"tip" validate:"gte=0"`
}

// VerifyPaymentRequest is the payload for POST /api/orders/verify, relayed by
// the client after completing payment in the gateway UI.
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId" validate:"required"`
	GatewayPaymentID string `json:"gatewayPaymentId" validate:"required"`
	// HMAC-SHA256 hex digest
	Signature string `json:"signature" validate:"required,len=64,hexadecimal"`
}
