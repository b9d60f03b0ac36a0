package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog
type Product struct {
	ID        int64           `db:"id" json:"id"`
	SKU       string          `db:"sku" json:"sku"`
	Name      string          `db:"name" json:"name"`
	Price     decimal.Decimal `db:"price" json:"price"`
	WeightKg  float64         `db:"weight_kg" json:"weight_kg"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// CommissionTier is one contiguous amount range with its commission percentage.
// A null MaxThreshold means the tier is unbounded above.
type CommissionTier struct {
	ID           int64               `db:"id" json:"id"`
	MinThreshold decimal.Decimal     `db:"min_threshold" json:"min_threshold"`
	MaxThreshold decimal.NullDecimal `db:"max_threshold" json:"max_threshold"`
	Percentage   decimal.Decimal     `db:"percentage" json:"percentage"`
	Description  string              `db:"description" json:"description"`
	Active       bool                `db:"active" json:"active"`
	SortOrder    int                 `db:"sort_order" json:"order"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at" json:"updated_at"`
}

// OfferKind is the service level of a shipping offer.
type OfferKind string

const (
	OfferKindStandard      OfferKind = "STANDARD"
	OfferKindExpress       OfferKind = "EXPRESS"
	OfferKindUrgent        OfferKind = "URGENT"
	OfferKindPickupInStore OfferKind = "PICKUP_IN_STORE"
)

// ShippingOffer is a shipping option for a zone. When MinWeightKg or MaxWeightKg
// is set the offer only applies to parcels inside that band.
type ShippingOffer struct {
	ID          int64               `db:"id" json:"id"`
	Name        string              `db:"name" json:"name"`
	Zone        string              `db:"zone" json:"zone"`
	Kind        OfferKind           `db:"offer_kind" json:"offer_kind"`
	Fee         decimal.Decimal     `db:"fee" json:"fee"`
	MinDays     int                 `db:"min_days" json:"min_days"`
	MaxDays     int                 `db:"max_days" json:"max_days"`
	MinWeightKg decimal.NullDecimal `db:"min_weight_kg" json:"min_weight_kg"`
	MaxWeightKg decimal.NullDecimal `db:"max_weight_kg" json:"max_weight_kg"`
	Active      bool                `db:"active" json:"active"`
	Position    int                 `db:"position" json:"position"`
}

// WeightBanded reports whether the offer restricts parcel weight.
func (o ShippingOffer) WeightBanded() bool {
	return o.MinWeightKg.Valid || o.MaxWeightKg.Valid
}

// PaymentKind classifies a payment method.
type PaymentKind string

const (
	PaymentKindCard          PaymentKind = "CARD"
	PaymentKindMobileMoney   PaymentKind = "MOBILE_MONEY"
	PaymentKindBankTransfer  PaymentKind = "BANK_TRANSFER"
	PaymentKindCash          PaymentKind = "CASH"
	PaymentKindWallet        PaymentKind = "WALLET"
	PaymentKindCrypto        PaymentKind = "CRYPTO"
	PaymentKindLoyaltyPoints PaymentKind = "LOYALTY_POINTS"
)

// PaymentEnvironment separates sandbox methods from live ones.
type PaymentEnvironment string

const (
	PaymentEnvironmentTest       PaymentEnvironment = "TEST"
	PaymentEnvironmentProduction PaymentEnvironment = "PRODUCTION"
)

// PaymentMethod carries the fee schedule of a payment rail. Absent fee
// components are zero, so a free method needs no special handling.
type PaymentMethod struct {
	ID            int64               `db:"id" json:"id"`
	Name          string              `db:"name" json:"name"`
	Kind          PaymentKind         `db:"kind" json:"kind"`
	FixedFee      decimal.Decimal     `db:"fixed_fee" json:"fixed_fee"`
	PercentageFee decimal.Decimal     `db:"percentage_fee" json:"percentage_fee"`
	MinAmount     decimal.NullDecimal `db:"min_amount" json:"min_amount"`
	MaxAmount     decimal.NullDecimal `db:"max_amount" json:"max_amount"`
	Active        bool                `db:"active" json:"active"`
	Environment   PaymentEnvironment  `db:"environment" json:"environment"`
}

// LoyaltyBalance is the redeemable point balance of a customer.
type LoyaltyBalance struct {
	CustomerID      int64     `db:"customer_id" json:"customer_id"`
	AvailablePoints int64     `db:"available_points" json:"available_points"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// CartItem is one line of a cart snapshot. WeightKg is zero when the product has no known weight.
type CartItem struct {
	ProductID int64           `db:"product_id" json:"product_id"`
	Name      string          `db:"name" json:"name"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Subtotal  decimal.Decimal `db:"subtotal" json:"subtotal"`
	WeightKg  float64         `db:"weight_kg" json:"weight_kg"`
}

// CartSnapshot is an immutable view of a customer's cart.
type CartSnapshot struct {
	CartID      int64           `json:"cart_id"`
	CustomerID  int64           `json:"customer_id"`
	Items       []CartItem      `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
}

// Address is a delivery address. Zone is the shipping-rate grouping key.
type Address struct {
	FullName   string `json:"full_name" validate:"required,max=120"`
	Phone      string `json:"phone" validate:"required,min=6,max=32"`
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2,omitempty" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	Region     string `json:"region,omitempty" validate:"max=100"`
	PostalCode string `json:"postal_code,omitempty" validate:"max=20"`
	Country    string `json:"country" validate:"required,iso3166_1_alpha2"`
	Zone       string `json:"zone" validate:"required,max=64"`
}

// Order is the persisted result of a confirmed checkout.
type Order struct {
	ID              int64           `db:"id" json:"id"`
	OrderNumber     string          `db:"order_number" json:"order_number"`
	CustomerID      int64           `db:"customer_id" json:"customer_id"`
	CartID          int64           `db:"cart_id" json:"cart_id"`
	ShippingOfferID int64           `db:"shipping_offer_id" json:"shipping_offer_id"`
	PaymentMethodID int64           `db:"payment_method_id" json:"payment_method_id"`
	Subtotal        decimal.Decimal `db:"subtotal" json:"subtotal"`
	ShippingFee     decimal.Decimal `db:"shipping_fee" json:"shipping_fee"`
	Surcharge       decimal.Decimal `db:"surcharge" json:"surcharge"`
	PointsRedeemed  int64           `db:"points_redeemed" json:"points_redeemed"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	DeliveryAddress types.JSONText  `db:"delivery_address" json:"delivery_address"`
	Status          string          `db:"status" json:"status"`
	IdempotencyKey  string          `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem represents items in an order
type OrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	ProductID int64           `db:"product_id" json:"product_id"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	Subtotal  decimal.Decimal `db:"subtotal" json:"subtotal"`
}

// OrderRequest is what the checkout engine hands to the order collaborator on confirmation.
type OrderRequest struct {
	SessionID       string          `json:"session_id"`
	CustomerID      int64           `json:"customer_id"`
	Cart            CartSnapshot    `json:"cart"`
	DeliveryAddress Address         `json:"delivery_address"`
	ShippingOfferID int64           `json:"shipping_offer_id"`
	PaymentMethodID int64           `json:"payment_method_id"`
	PointsRedeemed  int64           `json:"points_redeemed"`
	FinalTotal      decimal.Decimal `json:"final_total"`
	IdempotencyKey  string          `json:"idempotency_key"`
}

// Order statuses
const (
	OrderStatusSubmitted = "SUBMITTED"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusCancelled = "CANCELLED"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
