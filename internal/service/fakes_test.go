package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/money"
	"checkout-service/internal/redisclient"
	"checkout-service/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*redisclient.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return redisclient.Wrap(rdb), mr
}

// fakeDB is an in-memory stand-in for *store.Store.
type fakeDB struct {
	mu sync.Mutex

	cart     models.CartSnapshot
	offers   map[string][]models.ShippingOffer
	offerErr error
	calls    int
	methods  []models.PaymentMethod
	balances map[int64]int64
	tiers    []models.CommissionTier
	products map[int64]models.Product

	orders    []*models.Order
	statuses  map[int64]string
	processed map[string]bool
	replaced  int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		offers:    map[string][]models.ShippingOffer{},
		balances:  map[int64]int64{},
		products:  map[int64]models.Product{},
		statuses:  map[int64]string{},
		processed: map[string]bool{},
	}
}

func (f *fakeDB) GetActiveCart(_ context.Context, customerID int64) (models.CartSnapshot, error) {
	c := f.cart
	c.CustomerID = customerID
	c.Items = append([]models.CartItem(nil), f.cart.Items...)
	return c, nil
}

func (f *fakeDB) ListShippingOffersByZone(_ context.Context, zone string) ([]models.ShippingOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.offers[zone], f.offerErr
}

func (f *fakeDB) ListPaymentMethods(_ context.Context, env models.PaymentEnvironment) ([]models.PaymentMethod, error) {
	var out []models.PaymentMethod
	for _, m := range f.methods {
		if m.Environment == env && m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeDB) GetPaymentMethod(_ context.Context, id int64) (*models.PaymentMethod, error) {
	for _, m := range f.methods {
		if m.ID == id {
			m := m
			return &m, nil
		}
	}
	return nil, fmt.Errorf("payment method %d: %w", id, store.ErrNotFound)
}

func (f *fakeDB) GetLoyaltyBalance(_ context.Context, customerID int64) (models.LoyaltyBalance, error) {
	return models.LoyaltyBalance{CustomerID: customerID, AvailablePoints: f.balances[customerID]}, nil
}

func (f *fakeDB) DebitLoyaltyPointsTx(_ context.Context, eventID, _ string, customerID, points int64) (int64, bool, error) {
	if f.processed[eventID] {
		return 0, false, nil
	}
	if f.balances[customerID] < points {
		return f.balances[customerID], false, store.ErrInsufficientPoints
	}
	f.processed[eventID] = true
	f.balances[customerID] -= points
	return f.balances[customerID], true, nil
}

func (f *fakeDB) UpdateOrderStatus(_ context.Context, orderID int64, status string) error {
	f.statuses[orderID] = status
	return nil
}

func (f *fakeDB) CreateOrderTx(_ context.Context, order *models.Order, items []models.OrderItem) error {
	for _, o := range f.orders {
		if o.IdempotencyKey == order.IdempotencyKey {
			return fmt.Errorf("duplicate key")
		}
	}
	order.ID = int64(len(f.orders) + 1)
	order.CreatedAt = time.Now()
	f.orders = append(f.orders, order)
	return nil
}

func (f *fakeDB) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	for _, o := range f.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeDB) GetOrderByIdempotencyKey(_ context.Context, key string) (*models.Order, error) {
	for _, o := range f.orders {
		if o.IdempotencyKey == key {
			return o, nil
		}
	}
	return nil, nil
}

func (f *fakeDB) ListCommissionTiers(_ context.Context, activeOnly bool) ([]models.CommissionTier, error) {
	var out []models.CommissionTier
	for _, t := range f.tiers {
		if !activeOnly || t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeDB) GetCommissionTier(_ context.Context, id int64) (*models.CommissionTier, error) {
	for _, t := range f.tiers {
		if t.ID == id {
			t := t
			return &t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeDB) CreateCommissionTier(_ context.Context, tier *models.CommissionTier) error {
	tier.ID = int64(len(f.tiers) + 1)
	f.tiers = append(f.tiers, *tier)
	return nil
}

func (f *fakeDB) UpdateCommissionTier(_ context.Context, tier *models.CommissionTier) error {
	for i := range f.tiers {
		if f.tiers[i].ID == tier.ID {
			f.tiers[i] = *tier
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeDB) DeactivateCommissionTier(_ context.Context, id int64) error {
	for i := range f.tiers {
		if f.tiers[i].ID == id {
			f.tiers[i].Active = false
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeDB) ReplaceCommissionTiers(_ context.Context, tiers []models.CommissionTier) ([]models.CommissionTier, error) {
	f.replaced++
	for i := range f.tiers {
		f.tiers[i].Active = false
	}
	out := make([]models.CommissionTier, len(tiers))
	for i, t := range tiers {
		t.ID = int64(len(f.tiers) + 1)
		f.tiers = append(f.tiers, t)
		out[i] = t
	}
	return out, nil
}

func (f *fakeDB) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

type recordedEvents struct {
	submitted []*models.OrderSubmittedEvent
	debited   []*models.LoyaltyPointsDebitedEvent
}

func (r *recordedEvents) PublishOrderSubmitted(_ context.Context, e *models.OrderSubmittedEvent) error {
	r.submitted = append(r.submitted, e)
	return nil
}

func (r *recordedEvents) PublishLoyaltyPointsDebited(_ context.Context, e *models.LoyaltyPointsDebitedEvent) error {
	r.debited = append(r.debited, e)
	return nil
}

func bound(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(money.FromInt(v))
}

func standardTiers() []models.CommissionTier {
	return []models.CommissionTier{
		{ID: 1, MinThreshold: money.FromInt(0), MaxThreshold: bound(10000), Percentage: money.MustParse("5"), Active: true, SortOrder: 1},
		{ID: 2, MinThreshold: money.FromInt(10000), MaxThreshold: bound(50000), Percentage: money.MustParse("3"), Active: true, SortOrder: 2},
		{ID: 3, MinThreshold: money.FromInt(50000), Percentage: money.MustParse("1.5"), Active: true, SortOrder: 3},
	}
}
