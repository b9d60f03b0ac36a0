package service

import (
	"context"
	"time"

	"checkout-service/internal/models"
)

// The interfaces below are the parts of *store.Store, *redisclient.Client and
// *broker.EventPublisher each service needs.

type CartStore interface {
	GetActiveCart(ctx context.Context, customerID int64) (models.CartSnapshot, error)
}

type OfferStore interface {
	ListShippingOffersByZone(ctx context.Context, zone string) ([]models.ShippingOffer, error)
}

type OfferCache interface {
	GetCachedOffers(ctx context.Context, zone string, weightKg float64) ([]models.ShippingOffer, bool, error)
	CacheOffers(ctx context.Context, zone string, weightKg float64, offers []models.ShippingOffer, ttl time.Duration) error
}

type MethodStore interface {
	ListPaymentMethods(ctx context.Context, env models.PaymentEnvironment) ([]models.PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, id int64) (*models.PaymentMethod, error)
}

type LoyaltyStore interface {
	GetLoyaltyBalance(ctx context.Context, customerID int64) (models.LoyaltyBalance, error)
	DebitLoyaltyPointsTx(ctx context.Context, eventID, eventType string, customerID, points int64) (int64, bool, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
}

type OrderStore interface {
	CreateOrderTx(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
}

type IdempotencyStore interface {
	ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error)
	GetIdempotentOrderID(ctx context.Context, key string) (int64, bool, error)
	SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

type TierStore interface {
	ListCommissionTiers(ctx context.Context, activeOnly bool) ([]models.CommissionTier, error)
	GetCommissionTier(ctx context.Context, id int64) (*models.CommissionTier, error)
	CreateCommissionTier(ctx context.Context, tier *models.CommissionTier) error
	UpdateCommissionTier(ctx context.Context, tier *models.CommissionTier) error
	DeactivateCommissionTier(ctx context.Context, id int64) error
	ReplaceCommissionTiers(ctx context.Context, tiers []models.CommissionTier) ([]models.CommissionTier, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
}

type Events interface {
	PublishOrderSubmitted(ctx context.Context, event *models.OrderSubmittedEvent) error
	PublishLoyaltyPointsDebited(ctx context.Context, event *models.LoyaltyPointsDebitedEvent) error
}
