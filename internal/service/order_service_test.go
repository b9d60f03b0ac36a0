package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/money"
	"checkout-service/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	db     *fakeDB
	events *recordedEvents
	idem   IdempotencyStore
	svc    *OrderService
}

// failingRecord loses every write of a created order id, leaving the claim pending.
type failingRecord struct {
	IdempotencyStore
}

func (failingRecord) SetIdempotencyKey(context.Context, string, interface{}, time.Duration) error {
	return errors.New("redis: connection reset")
}

func newOrderFixture(t *testing.T) *orderFixture {
	return newOrderFixtureWith(t, nil)
}

func newOrderFixtureWith(t *testing.T, wrap func(IdempotencyStore) IdempotencyStore) *orderFixture {
	t.Helper()
	db := newFakeDB()
	db.cart = models.CartSnapshot{
		CartID: 7,
		Items: []models.CartItem{
			{ProductID: 1, Name: "Wax print", UnitPrice: money.FromInt(15000), Quantity: 3},
		},
	}
	db.offers["DAKAR"] = []models.ShippingOffer{
		{ID: 1, Zone: "DAKAR", Name: "Standard", Kind: models.OfferKindStandard, Fee: money.FromInt(2000), MinDays: 1, MaxDays: 3, Active: true},
	}
	db.methods = []models.PaymentMethod{
		{ID: 10, Name: "Mobile money", Kind: models.PaymentKindMobileMoney, PercentageFee: money.MustParse("1.5"), Active: true, Environment: models.PaymentEnvironmentProduction},
		{ID: 11, Name: "Sandbox card", Kind: models.PaymentKindCard, Active: true, Environment: models.PaymentEnvironmentTest},
	}
	db.balances[1] = 1000

	redis, _ := newRedis(t)
	var idem IdempotencyStore = redis
	if wrap != nil {
		idem = wrap(idem)
	}
	events := &recordedEvents{}
	carts := NewCartService(db)
	svc := NewOrderService(OrderServiceConfig{
		Store:          db,
		Idempotency:    idem,
		Carts:          carts,
		Shipping:       NewShippingService(db, nil, 0),
		Payments:       NewPaymentService(db, models.PaymentEnvironmentProduction),
		Loyalty:        NewLoyaltyService(db, events),
		Events:         events,
		IdempotencyTTL: time.Hour,
	})
	return &orderFixture{db: db, events: events, idem: idem, svc: svc}
}

// request mirrors what a checkout session at Review would send.
func (f *orderFixture) request(t *testing.T, key string, points int64) models.OrderRequest {
	t.Helper()
	cart, err := NewCartService(f.db).GetCurrentCart(context.Background(), 1)
	require.NoError(t, err)
	offer := f.db.offers["DAKAR"][0]
	method := f.db.methods[0]
	b := pricing.Compose(pricing.Input{
		Subtotal: cart.TotalAmount, Offer: &offer, Method: &method,
		AvailablePoints: f.db.balances[1], RequestedPoints: points,
	})
	return models.OrderRequest{
		SessionID:       "s-1",
		CustomerID:      1,
		Cart:            cart,
		DeliveryAddress: models.Address{FullName: "Awa", Zone: "dakar", Country: "SN"},
		ShippingOfferID: 1,
		PaymentMethodID: 10,
		PointsRedeemed:  b.PointsRedeemed,
		FinalTotal:      b.FinalTotal,
		IdempotencyKey:  key,
	}
}

func TestSubmitOrderCreatesOrderAndPublishes(t *testing.T) {
	f := newOrderFixture(t)
	req := f.request(t, "key-1", 500)

	order, err := f.svc.SubmitOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "47205", order.TotalAmount.String())
	assert.Equal(t, "705", order.Surcharge.String())
	assert.Equal(t, int64(500), order.PointsRedeemed)
	assert.Equal(t, models.OrderStatusSubmitted, order.Status)
	assert.Contains(t, order.OrderNumber, "CHK-")

	require.Len(t, f.events.submitted, 1)
	assert.Equal(t, order.ID, f.events.submitted[0].OrderID)
	assert.Equal(t, int64(500), f.events.submitted[0].PointsRedeemed)
}

func TestSubmitOrderIsIdempotent(t *testing.T) {
	f := newOrderFixture(t)
	req := f.request(t, "key-1", 0)

	first, err := f.svc.SubmitOrder(context.Background(), req)
	require.NoError(t, err)
	second, err := f.svc.SubmitOrder(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.db.orders, 1)
	assert.Len(t, f.events.submitted, 1)
}

func TestSubmitOrderRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *orderFixture, req *models.OrderRequest)
		reason string
	}{
		{"method deactivated", func(f *orderFixture, _ *models.OrderRequest) {
			f.db.methods[0].Active = false
		}, ReasonMethodUnavailable},
		{"method from other environment", func(_ *orderFixture, req *models.OrderRequest) {
			req.PaymentMethodID = 11
		}, ReasonMethodUnavailable},
		{"points above balance", func(f *orderFixture, _ *models.OrderRequest) {
			f.db.balances[1] = 100
		}, ReasonPointsExceedBalance},
		{"tampered total", func(_ *orderFixture, req *models.OrderRequest) {
			req.FinalTotal = req.FinalTotal.Sub(decimal.NewFromInt(1))
		}, ReasonTotalMismatch},
		{"offer withdrawn", func(f *orderFixture, _ *models.OrderRequest) {
			f.db.offers["DAKAR"][0].Active = false
		}, ReasonOfferUnavailable},
		{"cart changed", func(f *orderFixture, _ *models.OrderRequest) {
			f.db.cart.Items[0].Quantity = 4
		}, ReasonCartChanged},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newOrderFixture(t)
			req := f.request(t, "key-"+tc.name, 500)
			tc.mutate(f, &req)

			_, err := f.svc.SubmitOrder(context.Background(), req)
			var subErr *SubmissionError
			require.True(t, errors.As(err, &subErr), "got %v", err)
			assert.Equal(t, tc.reason, subErr.Reason)
			assert.ErrorIs(t, err, ErrSubmissionRejected)
			assert.Empty(t, f.db.orders)
			assert.Empty(t, f.events.submitted)
		})
	}
}

func TestSubmitOrderReleasesKeyAfterRejection(t *testing.T) {
	f := newOrderFixture(t)
	f.db.methods[0].Active = false
	req := f.request(t, "key-1", 0)

	_, err := f.svc.SubmitOrder(context.Background(), req)
	require.Error(t, err)

	f.db.methods[0].Active = true
	order, err := f.svc.SubmitOrder(context.Background(), req)
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
}

func TestSubmitOrderRetryFindsOrderBehindPendingKey(t *testing.T) {
	f := newOrderFixtureWith(t, func(idem IdempotencyStore) IdempotencyStore {
		return failingRecord{idem}
	})
	req := f.request(t, "key-1", 0)

	first, err := f.svc.SubmitOrder(context.Background(), req)
	require.NoError(t, err)

	_, pending, err := f.idem.GetIdempotentOrderID(context.Background(), "key-1")
	require.NoError(t, err)
	require.True(t, pending)

	second, err := f.svc.SubmitOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.db.orders, 1)
	assert.Len(t, f.events.submitted, 1)
}

func TestSubmitOrderRepairsPendingKey(t *testing.T) {
	f := newOrderFixture(t)
	req := f.request(t, "key-1", 0)

	first, err := f.svc.SubmitOrder(context.Background(), req)
	require.NoError(t, err)

	// Simulate a crash between the claim and the write of the order id.
	require.NoError(t, f.idem.ReleaseIdempotencyKey(context.Background(), "key-1"))
	claimed, err := f.idem.ClaimIdempotencyKey(context.Background(), "key-1", time.Hour)
	require.NoError(t, err)
	require.True(t, claimed)

	second, err := f.svc.SubmitOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	orderID, pending, err := f.idem.GetIdempotentOrderID(context.Background(), "key-1")
	require.NoError(t, err)
	assert.False(t, pending)
	assert.Equal(t, first.ID, orderID)
}

func TestSubmitOrderRejectsKeyInFlight(t *testing.T) {
	f := newOrderFixture(t)
	req := f.request(t, "key-1", 0)

	claimed, err := f.idem.ClaimIdempotencyKey(context.Background(), "key-1", time.Hour)
	require.NoError(t, err)
	require.True(t, claimed)

	_, err = f.svc.SubmitOrder(context.Background(), req)
	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr), "got %v", err)
	assert.Equal(t, ReasonDuplicateInFlight, subErr.Reason)
	assert.Empty(t, f.db.orders)
}
