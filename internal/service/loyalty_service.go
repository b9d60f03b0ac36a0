package service

import (
	"context"
	"errors"
	"fmt"

	"checkout-service/internal/models"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// LoyaltyService reads balances for checkout and applies debits for submitted orders
type LoyaltyService struct {
	store  LoyaltyStore
	events Events
	logger *zap.Logger
}

// NewLoyaltyService creates a new loyalty service
func NewLoyaltyService(store LoyaltyStore, events Events) *LoyaltyService {
	return &LoyaltyService{store: store, events: events, logger: util.GetLogger()}
}

// GetBalance returns the customer's redeemable points
func (ls *LoyaltyService) GetBalance(ctx context.Context, customerID int64) (models.LoyaltyBalance, error) {
	ctx, span := util.StartSpan(ctx, "LoyaltyService.GetBalance")
	defer span.End()

	balance, err := ls.store.GetLoyaltyBalance(ctx, customerID)
	if err != nil {
		return models.LoyaltyBalance{}, fmt.Errorf("failed to get loyalty balance: %w", err)
	}
	return balance, nil
}

// HandleOrderSubmitted debits the redeemed points of an order exactly once and
// confirms the order. An order whose points are no longer covered is cancelled.
func (ls *LoyaltyService) HandleOrderSubmitted(ctx context.Context, event *models.OrderSubmittedEvent) error {
	ctx, span := util.StartSpan(ctx, "LoyaltyService.HandleOrderSubmitted")
	defer span.End()

	if event.PointsRedeemed <= 0 {
		if err := ls.store.UpdateOrderStatus(ctx, event.OrderID, models.OrderStatusConfirmed); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		util.LoyaltyDebitsTotal.WithLabelValues("none").Inc()
		return nil
	}

	remaining, applied, err := ls.store.DebitLoyaltyPointsTx(ctx,
		event.EventID, event.EventType, event.CustomerID, event.PointsRedeemed)
	if errors.Is(err, store.ErrInsufficientPoints) {
		util.LoyaltyDebitsTotal.WithLabelValues("insufficient").Inc()
		ls.logger.Error("Loyalty balance no longer covers order, cancelling",
			zap.Int64("order_id", event.OrderID),
			zap.Int64("customer_id", event.CustomerID),
			zap.Int64("points", event.PointsRedeemed),
			zap.Error(err))
		if err := ls.store.UpdateOrderStatus(ctx, event.OrderID, models.OrderStatusCancelled); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		return nil
	}
	if err != nil {
		util.LoyaltyDebitsTotal.WithLabelValues("error").Inc()
		return util.SpanError(span, fmt.Errorf("failed to debit loyalty points: %w", err))
	}
	if !applied {
		util.LoyaltyDebitsTotal.WithLabelValues("duplicate").Inc()
		ls.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	util.LoyaltyDebitsTotal.WithLabelValues("debited").Inc()
	if err := ls.store.UpdateOrderStatus(ctx, event.OrderID, models.OrderStatusConfirmed); err != nil {
		ls.logger.Error("Failed to confirm order", zap.Int64("order_id", event.OrderID), zap.Error(err))
	}

	debited := &models.LoyaltyPointsDebitedEvent{
		OrderID:    event.OrderID,
		CustomerID: event.CustomerID,
		Points:     event.PointsRedeemed,
		Remaining:  remaining,
	}
	if err := ls.events.PublishLoyaltyPointsDebited(ctx, debited); err != nil {
		ls.logger.Error("Failed to publish LoyaltyPointsDebited event", zap.Error(err))
	}

	ls.logger.Info("Loyalty points debited",
		zap.Int64("order_id", event.OrderID),
		zap.Int64("points", event.PointsRedeemed),
		zap.Int64("remaining", remaining))
	return nil
}
