package service

import (
	"context"
	"fmt"

	"checkout-service/internal/models"
	"checkout-service/internal/money"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// CartService serves cart snapshots to checkout
type CartService struct {
	store  CartStore
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store CartStore) *CartService {
	return &CartService{store: store, logger: util.GetLogger()}
}

// GetCurrentCart returns the active cart with line subtotals and the total recomputed.
func (s *CartService) GetCurrentCart(ctx context.Context, customerID int64) (models.CartSnapshot, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCurrentCart")
	defer span.End()

	snap, err := s.store.GetActiveCart(ctx, customerID)
	if err != nil {
		return models.CartSnapshot{}, fmt.Errorf("failed to get cart: %w", err)
	}
	return summarizeCart(snap), nil
}

func summarizeCart(snap models.CartSnapshot) models.CartSnapshot {
	total := money.Zero
	count := 0
	for i, item := range snap.Items {
		sub := money.Round(item.UnitPrice.Mul(money.FromInt(int64(item.Quantity))))
		snap.Items[i].Subtotal = sub
		total = total.Add(sub)
		count += item.Quantity
	}
	snap.TotalAmount = total
	snap.ItemCount = count
	return snap
}
