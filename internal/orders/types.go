package orders

import "time"

// Payment methods
const (
	PaymentMethodOnline = "ONLINE"
	PaymentMethodCOD    = "COD"
)

// Order statuses. PENDING/CONFIRMED/FAILED apply to online payments;
// COD_PENDING is the cash path's awaiting-fulfillment state. One shared field
// holds both vocabularies.
const (
	StatusPending    = "PENDING"
	StatusConfirmed  = "CONFIRMED"
	StatusFailed     = "FAILED"
	StatusCODPending = "COD_PENDING"
)

// StaleWindow is the abandonment window: a PENDING order older than this is
// eligible for cleanup before its owner creates a new order.
const StaleWindow = 15 * time.Minute

// OrderItem is a single cart line. Price is the unit price at order time.
type OrderItem struct {
	Name  string  `dynamodbav:"name" json:"name"`
	Qty   int     `dynamodbav:"qty" json:"qty"`
	Price float64 `dynamodbav:"price" json:"price"`
}

// Order is the item stored in the orders DynamoDB table.
//
// OrderID is the PK and shares one ID space across both payment methods: the
// gateway-issued order id for ONLINE, a locally generated COD_<uuid> for cash.
// Financial fields are write-once; only Status and GatewayPaymentID mutate
// after creation.
type Order struct {
	OrderID          string      `dynamodbav:"order_id" json:"orderId"` // PK
	UserID           string      `dynamodbav:"user_id" json:"userId"`
	RestaurantID     string      `dynamodbav:"restaurant_id" json:"restaurantId"`
	CustomerName     string      `dynamodbav:"customer_name" json:"customerName"`
	Location         string      `dynamodbav:"location" json:"location"`
	MapLink          string      `dynamodbav:"map_link,omitempty" json:"mapLink,omitempty"`
	Items            []OrderItem `dynamodbav:"items" json:"items"`
	ItemsTotal       float64     `dynamodbav:"items_total" json:"itemsTotal"`
	PlatformFee      float64     `dynamodbav:"platform_fee" json:"platformFee"`
	DeliveryFee      float64     `dynamodbav:"delivery_fee" json:"deliveryFee"`
	Tip              float64     `dynamodbav:"tip" json:"tip"`
	TotalAmount      float64     `dynamodbav:"total_amount" json:"totalAmount"`
	PaymentMethod    string      `dynamodbav:"payment_method" json:"paymentMethod"`
	Status           string      `dynamodbav:"status" json:"status"`
	GatewayOrderID   string      `dynamodbav:"gateway_order_id,omitempty" json:"gatewayOrderId,omitempty"`
	GatewayPaymentID string      `dynamodbav:"gateway_payment_id,omitempty" json:"gatewayPaymentId,omitempty"`
	CreatedAt        time.Time   `dynamodbav:"created_at" json:"createdAt"`
	// CreatedAtUnix is the GSI sort key; numeric so range conditions and
	// newest-first ordering don't depend on string timestamp formats.
	CreatedAtUnix int64     `dynamodbav:"created_at_unix" json:"-"`
	UpdatedAt     time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}
