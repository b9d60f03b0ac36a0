package service

import (
	"context"
	"errors"
	"fmt"

	"checkout-service/internal/models"
	"checkout-service/internal/money"
	"checkout-service/internal/pricing"
	"checkout-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CommissionService administers the commission tier table and prices amounts with it
type CommissionService struct {
	store  TierStore
	logger *zap.Logger
}

// NewCommissionService creates a new commission service
func NewCommissionService(store TierStore) *CommissionService {
	return &CommissionService{store: store, logger: util.GetLogger()}
}

// ListTiers returns the tier table; inactive rows are included when all is set
func (cs *CommissionService) ListTiers(ctx context.Context, all bool) ([]models.CommissionTier, error) {
	ctx, span := util.StartSpan(ctx, "CommissionService.ListTiers")
	defer span.End()

	return cs.store.ListCommissionTiers(ctx, !all)
}

// GetTier returns one tier by id
func (cs *CommissionService) GetTier(ctx context.Context, id int64) (*models.CommissionTier, error) {
	ctx, span := util.StartSpan(ctx, "CommissionService.GetTier")
	defer span.End()

	return cs.store.GetCommissionTier(ctx, id)
}

func rowError(t models.CommissionTier) error {
	if problems := pricing.ValidateTier(t); len(problems) > 0 {
		return &pricing.TierTableError{Problems: problems}
	}
	return nil
}

// CreateTier validates and stores one tier. Whole-table consistency is checked
// by ValidateTable and enforced by ReplaceTiers.
func (cs *CommissionService) CreateTier(ctx context.Context, tier *models.CommissionTier) error {
	ctx, span := util.StartSpan(ctx, "CommissionService.CreateTier")
	defer span.End()

	if err := rowError(*tier); err != nil {
		return err
	}
	if err := cs.store.CreateCommissionTier(ctx, tier); err != nil {
		return fmt.Errorf("failed to create commission tier: %w", err)
	}
	cs.logger.Info("Commission tier created", zap.Int64("tier_id", tier.ID))
	return nil
}

// UpdateTier validates and overwrites one tier
func (cs *CommissionService) UpdateTier(ctx context.Context, tier *models.CommissionTier) error {
	ctx, span := util.StartSpan(ctx, "CommissionService.UpdateTier")
	defer span.End()

	if err := rowError(*tier); err != nil {
		return err
	}
	if err := cs.store.UpdateCommissionTier(ctx, tier); err != nil {
		return fmt.Errorf("failed to update commission tier: %w", err)
	}
	cs.logger.Info("Commission tier updated", zap.Int64("tier_id", tier.ID))
	return nil
}

// DeactivateTier switches a tier off
func (cs *CommissionService) DeactivateTier(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "CommissionService.DeactivateTier")
	defer span.End()

	if err := cs.store.DeactivateCommissionTier(ctx, id); err != nil {
		return fmt.Errorf("failed to deactivate commission tier: %w", err)
	}
	cs.logger.Info("Commission tier deactivated", zap.Int64("tier_id", id))
	return nil
}

// ReplaceTiers swaps the active table for tiers after checking it partitions [0, ∞).
func (cs *CommissionService) ReplaceTiers(ctx context.Context, tiers []models.CommissionTier) ([]models.CommissionTier, error) {
	ctx, span := util.StartSpan(ctx, "CommissionService.ReplaceTiers")
	defer span.End()

	for i := range tiers {
		tiers[i].Active = true
	}
	if err := pricing.ValidateTiers(tiers); err != nil {
		return nil, err
	}
	created, err := cs.store.ReplaceCommissionTiers(ctx, tiers)
	if err != nil {
		return nil, fmt.Errorf("failed to replace commission tiers: %w", err)
	}
	cs.logger.Info("Commission table replaced", zap.Int("tiers", len(created)))
	return created, nil
}

// TableReport is the result of checking the active tier table
type TableReport struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems"`
}

// ValidateTable checks the active tiers for gaps and overlaps
func (cs *CommissionService) ValidateTable(ctx context.Context) (TableReport, error) {
	ctx, span := util.StartSpan(ctx, "CommissionService.ValidateTable")
	defer span.End()

	tiers, err := cs.store.ListCommissionTiers(ctx, true)
	if err != nil {
		return TableReport{}, err
	}
	err = pricing.ValidateTiers(tiers)
	var tableErr *pricing.TierTableError
	if errors.As(err, &tableErr) {
		return TableReport{Valid: false, Problems: tableErr.Problems}, nil
	}
	if err != nil {
		return TableReport{}, err
	}
	return TableReport{Valid: true, Problems: []string{}}, nil
}

// Simulate prices amount with the active table. A *pricing.NoTierMatchError
// means the table is misconfigured.
func (cs *CommissionService) Simulate(ctx context.Context, amount decimal.Decimal) (pricing.Commission, error) {
	ctx, span := util.StartSpan(ctx, "CommissionService.Simulate")
	defer span.End()

	tiers, err := cs.store.ListCommissionTiers(ctx, true)
	if err != nil {
		return pricing.Commission{}, fmt.Errorf("failed to list commission tiers: %w", err)
	}

	c, err := pricing.ComputeCommission(amount, tiers)
	if err != nil {
		util.CommissionSimulationsTotal.WithLabelValues("no_tier").Inc()
		cs.logger.Error("Commission table has no tier for amount",
			zap.String("amount", amount.String()), zap.Error(err))
		return pricing.Commission{}, err
	}
	util.CommissionSimulationsTotal.WithLabelValues("ok").Inc()
	return c, nil
}

// PriceLabel is the commission-inclusive price of a catalog product
type PriceLabel struct {
	ProductID  int64              `json:"product_id"`
	SKU        string             `json:"sku"`
	Name       string             `json:"name"`
	BasePrice  decimal.Decimal    `json:"base_price"`
	Commission pricing.Commission `json:"commission"`
	Price      decimal.Decimal    `json:"price"`
}

// LabelProduct prices a product the same way Simulate prices an amount
func (cs *CommissionService) LabelProduct(ctx context.Context, productID int64) (*PriceLabel, error) {
	ctx, span := util.StartSpan(ctx, "CommissionService.LabelProduct")
	defer span.End()

	product, err := cs.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	c, err := cs.Simulate(ctx, product.Price)
	if err != nil {
		return nil, err
	}
	return &PriceLabel{
		ProductID:  product.ID,
		SKU:        product.SKU,
		Name:       product.Name,
		BasePrice:  money.Round(product.Price),
		Commission: c,
		Price:      c.TotalWithCommission,
	}, nil
}
