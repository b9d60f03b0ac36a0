package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderSubmitted       = "CHECKOUT_ORDER_SUBMITTED"
	EventTypeLoyaltyPointsDebited = "LOYALTY_POINTS_DEBITED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderSubmittedEvent published when a checkout session produced an order
type OrderSubmittedEvent struct {
	BaseEvent
	OrderID         int64           `json:"order_id"`
	OrderNumber     string          `json:"order_number"`
	CustomerID      int64           `json:"customer_id"`
	SessionID       string          `json:"session_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PointsRedeemed  int64           `json:"points_redeemed"`
	ShippingOfferID int64           `json:"shipping_offer_id"`
	PaymentMethodID int64           `json:"payment_method_id"`
}

// LoyaltyPointsDebitedEvent published once redeemed points are removed from a balance
type LoyaltyPointsDebitedEvent struct {
	BaseEvent
	OrderID    int64 `json:"order_id"`
	CustomerID int64 `json:"customer_id"`
	Points     int64 `json:"points"`
	Remaining  int64 `json:"remaining"`
}
