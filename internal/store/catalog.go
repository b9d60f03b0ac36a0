package store

import (
	"context"
	"database/sql"
	"fmt"

	"checkout-service/internal/models"
)

// ListShippingOffersByZone returns every offer row of a zone, active or not, in display order
func (s *Store) ListShippingOffersByZone(ctx context.Context, zone string) ([]models.ShippingOffer, error) {
	offers := []models.ShippingOffer{}
	err := s.db.SelectContext(ctx, &offers,
		"SELECT * FROM shipping_offers WHERE zone = $1 ORDER BY position, id", zone)
	return offers, err
}

// ListPaymentMethods returns the active methods of an environment
func (s *Store) ListPaymentMethods(ctx context.Context, env models.PaymentEnvironment) ([]models.PaymentMethod, error) {
	methods := []models.PaymentMethod{}
	err := s.db.SelectContext(ctx, &methods,
		"SELECT * FROM payment_methods WHERE environment = $1 AND active ORDER BY id", env)
	return methods, err
}

// GetPaymentMethod retrieves a method by ID regardless of its state
func (s *Store) GetPaymentMethod(ctx context.Context, id int64) (*models.PaymentMethod, error) {
	var m models.PaymentMethod
	err := s.db.GetContext(ctx, &m, "SELECT * FROM payment_methods WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment method %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetActiveCart builds the snapshot of a customer's active cart. A customer
// without a cart gets an empty snapshot.
func (s *Store) GetActiveCart(ctx context.Context, customerID int64) (models.CartSnapshot, error) {
	snap := models.CartSnapshot{CustomerID: customerID, Items: []models.CartItem{}}

	err := s.db.GetContext(ctx, &snap.CartID,
		"SELECT id FROM carts WHERE customer_id = $1 AND active ORDER BY updated_at DESC LIMIT 1", customerID)
	if err == sql.ErrNoRows {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("failed to load cart: %w", err)
	}

	query := `
		SELECT ci.product_id, p.name, p.price AS unit_price, ci.quantity,
		       p.price * ci.quantity AS subtotal, p.weight_kg
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.product_id`
	if err := s.db.SelectContext(ctx, &snap.Items, query, snap.CartID); err != nil {
		return snap, fmt.Errorf("failed to load cart items: %w", err)
	}
	return snap, nil
}
