package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/pricing"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSubmissionRejected is the sentinel behind every *SubmissionError.
var ErrSubmissionRejected = errors.New("order submission rejected")

// Submission rejection reasons
const (
	ReasonDuplicateInFlight   = "duplicate_in_flight"
	ReasonCartChanged         = "cart_changed"
	ReasonOfferUnavailable    = "shipping_offer_unavailable"
	ReasonMethodUnavailable   = "payment_method_unavailable"
	ReasonMethodNotEligible   = "payment_method_not_eligible"
	ReasonPointsExceedBalance = "points_exceed_balance"
	ReasonTotalMismatch       = "total_mismatch"
)

// SubmissionError is a business rejection of an order; retrying the same request will not help.
type SubmissionError struct {
	Reason string
	Detail string
}

func (e *SubmissionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", ErrSubmissionRejected, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrSubmissionRejected, e.Reason, e.Detail)
}

func (e *SubmissionError) Unwrap() error { return ErrSubmissionRejected }

func reject(reason, format string, args ...interface{}) error {
	return &SubmissionError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// OrderService turns reviewed checkouts into orders
type OrderService struct {
	store        OrderStore
	idempotency  IdempotencyStore
	carts        *CartService
	shipping     *ShippingService
	payments     *PaymentService
	loyalty      *LoyaltyService
	events       Events
	unitWeightKg float64
	idemTTL      time.Duration
	logger       *zap.Logger
}

// OrderServiceConfig holds the collaborators of an OrderService
type OrderServiceConfig struct {
	Store          OrderStore
	Idempotency    IdempotencyStore
	Carts          *CartService
	Shipping       *ShippingService
	Payments       *PaymentService
	Loyalty        *LoyaltyService
	Events         Events
	UnitWeightKg   float64
	IdempotencyTTL time.Duration
}

// NewOrderService creates a new order service
func NewOrderService(cfg OrderServiceConfig) *OrderService {
	if cfg.UnitWeightKg <= 0 {
		cfg.UnitWeightKg = pricing.DefaultUnitWeightKg
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	return &OrderService{
		store:        cfg.Store,
		idempotency:  cfg.Idempotency,
		carts:        cfg.Carts,
		shipping:     cfg.Shipping,
		payments:     cfg.Payments,
		loyalty:      cfg.Loyalty,
		events:       cfg.Events,
		unitWeightKg: cfg.UnitWeightKg,
		idemTTL:      cfg.IdempotencyTTL,
		logger:       util.GetLogger(),
	}
}

// SubmitOrder re-verifies the request against current data and persists the
// order. A repeated idempotency key returns the order created the first time.
func (s *OrderService) SubmitOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.SubmitOrder")
	defer span.End()

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	existing, err := s.findExisting(ctx, req.IdempotencyKey)
	if err != nil || existing != nil {
		return existing, err
	}

	claimed, err := s.idempotency.ClaimIdempotencyKey(ctx, req.IdempotencyKey, s.idemTTL)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Lost the race to a concurrent request; it may have finished meanwhile.
		if existing, err := s.findExisting(ctx, req.IdempotencyKey); err != nil || existing != nil {
			return existing, err
		}
		return nil, reject(ReasonDuplicateInFlight, "key %s", req.IdempotencyKey)
	}

	order, err := s.createOrder(ctx, req)
	if err != nil {
		if relErr := s.idempotency.ReleaseIdempotencyKey(ctx, req.IdempotencyKey); relErr != nil {
			s.logger.Error("Failed to release idempotency key",
				zap.String("idempotency_key", req.IdempotencyKey), zap.Error(relErr))
		}
		util.SpanError(span, err)
		var subErr *SubmissionError
		if errors.As(err, &subErr) {
			s.logger.Warn("Order submission rejected",
				zap.String("session_id", req.SessionID),
				zap.String("reason", subErr.Reason),
				zap.String("detail", subErr.Detail))
		}
		return nil, err
	}

	if err := s.idempotency.SetIdempotencyKey(ctx, req.IdempotencyKey, order.ID, s.idemTTL); err != nil {
		s.logger.Error("Failed to record idempotency key", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	event := &models.OrderSubmittedEvent{
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		CustomerID:      order.CustomerID,
		SessionID:       req.SessionID,
		TotalAmount:     order.TotalAmount,
		PointsRedeemed:  order.PointsRedeemed,
		ShippingOfferID: order.ShippingOfferID,
		PaymentMethodID: order.PaymentMethodID,
	}
	if err := s.events.PublishOrderSubmitted(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderSubmitted event", zap.Error(err))
	}

	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.TotalAmount.String()))
	return order, nil
}

// findExisting returns the order already created for key. A pending marker
// only means in flight when Postgres holds no order for the key; a marker left
// by a failed write or a crash is repaired instead.
func (s *OrderService) findExisting(ctx context.Context, key string) (*models.Order, error) {
	orderID, pending, err := s.idempotency.GetIdempotentOrderID(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if orderID != 0 {
		return s.store.GetOrderByID(ctx, orderID)
	}

	existing, err := s.store.GetOrderByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing == nil {
		if pending {
			return nil, reject(ReasonDuplicateInFlight, "key %s", key)
		}
		return nil, nil
	}

	s.logger.Info("Duplicate order request detected",
		zap.String("idempotency_key", key),
		zap.Int64("order_id", existing.ID),
		zap.Bool("stale_marker", pending))
	if pending {
		if err := s.idempotency.SetIdempotencyKey(ctx, key, existing.ID, s.idemTTL); err != nil {
			s.logger.Warn("Failed to repair idempotency key", zap.String("idempotency_key", key), zap.Error(err))
		}
	}
	return existing, nil
}

// verify recomputes the breakdown from current data. The client's figures are never trusted.
func (s *OrderService) verify(ctx context.Context, req models.OrderRequest) (pricing.Breakdown, error) {
	cart, err := s.carts.GetCurrentCart(ctx, req.CustomerID)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	if cart.CartID != req.Cart.CartID || !cart.TotalAmount.Equal(req.Cart.TotalAmount) {
		return pricing.Breakdown{}, reject(ReasonCartChanged, "cart total is now %s", cart.TotalAmount)
	}

	weight := pricing.EstimateWeight(cart.Items, s.unitWeightKg)
	offers, err := s.shipping.ListActiveOffers(ctx, req.DeliveryAddress.Zone, weight)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	offer, ok := pricing.FindOffer(offers, req.ShippingOfferID)
	if !ok {
		return pricing.Breakdown{}, reject(ReasonOfferUnavailable, "offer %d", req.ShippingOfferID)
	}

	method, err := s.payments.GetUsableMethod(ctx, req.PaymentMethodID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return pricing.Breakdown{}, err
	}
	if method == nil {
		return pricing.Breakdown{}, reject(ReasonMethodUnavailable, "method %d", req.PaymentMethodID)
	}

	balance, err := s.loyalty.GetBalance(ctx, req.CustomerID)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	if req.PointsRedeemed > balance.AvailablePoints {
		return pricing.Breakdown{}, reject(ReasonPointsExceedBalance,
			"requested %d, available %d", req.PointsRedeemed, balance.AvailablePoints)
	}

	b := pricing.Compose(pricing.Input{
		Subtotal:        cart.TotalAmount,
		Offer:           &offer,
		Method:          method,
		AvailablePoints: balance.AvailablePoints,
		RequestedPoints: req.PointsRedeemed,
	})
	if !pricing.IsEligible(*method, b.AmountWithShipping) {
		return b, reject(ReasonMethodNotEligible, "amount %s", b.AmountWithShipping)
	}
	if b.PointsRedeemed != req.PointsRedeemed || !b.FinalTotal.Equal(req.FinalTotal) {
		return b, reject(ReasonTotalMismatch, "expected %s, got %s", b.FinalTotal, req.FinalTotal)
	}
	return b, nil
}

func (s *OrderService) createOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	b, err := s.verify(ctx, req)
	if err != nil {
		return nil, err
	}

	address, err := json.Marshal(req.DeliveryAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to encode address: %w", err)
	}

	order := &models.Order{
		OrderNumber:     newOrderNumber(),
		CustomerID:      req.CustomerID,
		CartID:          req.Cart.CartID,
		ShippingOfferID: req.ShippingOfferID,
		PaymentMethodID: req.PaymentMethodID,
		Subtotal:        b.Subtotal,
		ShippingFee:     b.ShippingFee,
		Surcharge:       b.Surcharge,
		PointsRedeemed:  b.PointsRedeemed,
		TotalAmount:     b.FinalTotal,
		DeliveryAddress: address,
		Status:          models.OrderStatusSubmitted,
		IdempotencyKey:  req.IdempotencyKey,
	}

	items := make([]models.OrderItem, 0, len(req.Cart.Items))
	for _, item := range req.Cart.Items {
		items = append(items, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}

	if err := s.store.CreateOrderTx(ctx, order, items); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

func newOrderNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return fmt.Sprintf("CHK-%s-%s", time.Now().UTC().Format("20060102"), id[:8])
}
