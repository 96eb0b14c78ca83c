package main

// fulfillmentMessage is the payload sent from API -> SQS -> worker when an
// order reaches CONFIRMED.
type fulfillmentMessage struct {
	OrderID      string  `json:"order_id"`
	RestaurantID string  `json:"restaurant_id"`
	UserID       string  `json:"user_id"`
	TotalAmount  float64 `json:"total_amount"`
}
