package store

import (
	"context"
	"database/sql"
	"fmt"

	"checkout-service/internal/models"
)

// ListCommissionTiers returns tiers ordered by threshold, optionally only the active ones.
func (s *Store) ListCommissionTiers(ctx context.Context, activeOnly bool) ([]models.CommissionTier, error) {
	query := "SELECT * FROM commission_tiers"
	if activeOnly {
		query += " WHERE active"
	}
	query += " ORDER BY min_threshold, sort_order, id"

	tiers := []models.CommissionTier{}
	err := s.db.SelectContext(ctx, &tiers, query)
	return tiers, err
}

// GetCommissionTier retrieves a tier by ID
func (s *Store) GetCommissionTier(ctx context.Context, id int64) (*models.CommissionTier, error) {
	var tier models.CommissionTier
	err := s.db.GetContext(ctx, &tier, "SELECT * FROM commission_tiers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("commission tier %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &tier, nil
}

const insertTier = `
	INSERT INTO commission_tiers (min_threshold, max_threshold, percentage, description, active, sort_order)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at, updated_at`

// CreateCommissionTier inserts a tier
func (s *Store) CreateCommissionTier(ctx context.Context, tier *models.CommissionTier) error {
	return s.db.QueryRowxContext(ctx, insertTier,
		tier.MinThreshold, tier.MaxThreshold, tier.Percentage, tier.Description, tier.Active, tier.SortOrder,
	).Scan(&tier.ID, &tier.CreatedAt, &tier.UpdatedAt)
}

// UpdateCommissionTier overwrites every editable column of a tier
func (s *Store) UpdateCommissionTier(ctx context.Context, tier *models.CommissionTier) error {
	query := `
		UPDATE commission_tiers
		SET min_threshold = $1, max_threshold = $2, percentage = $3, description = $4,
		    active = $5, sort_order = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		tier.MinThreshold, tier.MaxThreshold, tier.Percentage, tier.Description, tier.Active, tier.SortOrder, tier.ID,
	).Scan(&tier.CreatedAt, &tier.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("commission tier %d: %w", tier.ID, ErrNotFound)
	}
	return err
}

// DeactivateCommissionTier switches a tier off without deleting it
func (s *Store) DeactivateCommissionTier(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE commission_tiers SET active = FALSE, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("commission tier %d: %w", id, ErrNotFound)
	}
	return nil
}

// ReplaceCommissionTiers deactivates the current table and inserts tiers in one transaction
func (s *Store) ReplaceCommissionTiers(ctx context.Context, tiers []models.CommissionTier) ([]models.CommissionTier, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE commission_tiers SET active = FALSE, updated_at = NOW() WHERE active"); err != nil {
		return nil, fmt.Errorf("failed to deactivate tiers: %w", err)
	}

	out := make([]models.CommissionTier, 0, len(tiers))
	for _, t := range tiers {
		t.Active = true
		if err := tx.QueryRowxContext(ctx, insertTier,
			t.MinThreshold, t.MaxThreshold, t.Percentage, t.Description, t.Active, t.SortOrder,
		).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to insert tier: %w", err)
		}
		out = append(out, t)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}
