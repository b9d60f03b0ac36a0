package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"checkout-service/internal/models"
)

// ErrInsufficientPoints is returned when a debit exceeds the balance.
var ErrInsufficientPoints = errors.New("insufficient loyalty points")

// GetLoyaltyBalance returns the balance of a customer. Unknown customers have zero points.
func (s *Store) GetLoyaltyBalance(ctx context.Context, customerID int64) (models.LoyaltyBalance, error) {
	balance := models.LoyaltyBalance{CustomerID: customerID}
	err := s.db.GetContext(ctx, &balance,
		"SELECT * FROM loyalty_balances WHERE customer_id = $1", customerID)
	if err == sql.ErrNoRows {
		return models.LoyaltyBalance{CustomerID: customerID}, nil
	}
	return balance, err
}

// DebitLoyaltyPointsTx subtracts points and records eventID as processed in the
// same transaction. It reports false when eventID was already processed.
func (s *Store) DebitLoyaltyPointsTx(ctx context.Context, eventID, eventType string, customerID, points int64) (remaining int64, applied bool, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	if err != nil {
		return 0, false, fmt.Errorf("failed to mark event processed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, false, nil
	}

	err = tx.GetContext(ctx, &remaining,
		"SELECT available_points FROM loyalty_balances WHERE customer_id = $1 FOR UPDATE", customerID)
	if err == sql.ErrNoRows {
		remaining = 0
	} else if err != nil {
		return 0, false, fmt.Errorf("failed to lock loyalty balance: %w", err)
	}
	if remaining < points {
		return remaining, false, fmt.Errorf("%w: available=%d, requested=%d", ErrInsufficientPoints, remaining, points)
	}

	err = tx.GetContext(ctx, &remaining,
		`UPDATE loyalty_balances SET available_points = available_points - $1, updated_at = NOW()
		 WHERE customer_id = $2 RETURNING available_points`,
		points, customerID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to debit points: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, err
	}
	return remaining, true, nil
}
