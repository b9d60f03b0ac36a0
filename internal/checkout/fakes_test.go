package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"checkout-service/internal/models"
	"checkout-service/internal/money"

	"github.com/shopspring/decimal"
)

// memStore round-trips sessions through JSON like the Redis store does.
type memStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
	locks    map[string]*sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{sessions: map[string][]byte{}, locks: map[string]*sync.Mutex{}}
}

func (m *memStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	raw, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *memStore) Save(_ context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[s.ID] = raw
	m.mu.Unlock()
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *memStore) Lock(_ context.Context, id string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock, nil
}

type fakeCart struct {
	cart models.CartSnapshot
	err  error
}

func (f *fakeCart) GetCurrentCart(context.Context, int64) (models.CartSnapshot, error) {
	return f.cart, f.err
}

// fakeShipping serves offers per zone. A zone listed in gates blocks until its channel is closed.
type fakeShipping struct {
	mu      sync.Mutex
	byZone  map[string][]models.ShippingOffer
	err     error
	gates   map[string]chan struct{}
	entered chan string
	calls   int
}

func (f *fakeShipping) ListActiveOffers(_ context.Context, zone string, _ float64) ([]models.ShippingOffer, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gates[zone]
	offers := f.byZone[zone]
	err := f.err
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- zone
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if offers == nil {
		return []models.ShippingOffer{}, nil
	}
	return offers, nil
}

type fakePayment struct {
	methods []models.PaymentMethod
	err     error
}

func (f *fakePayment) ListActiveMethods(context.Context) ([]models.PaymentMethod, error) {
	return f.methods, f.err
}

type fakeLoyalty struct {
	points int64
	err    error
}

func (f *fakeLoyalty) GetBalance(_ context.Context, customerID int64) (models.LoyaltyBalance, error) {
	if f.err != nil {
		return models.LoyaltyBalance{}, f.err
	}
	return models.LoyaltyBalance{CustomerID: customerID, AvailablePoints: f.points}, nil
}

type fakeOrders struct {
	err      error
	requests []models.OrderRequest
}

var errPaymentDeclined = errors.New("payment method is no longer active")

func (f *fakeOrders) SubmitOrder(_ context.Context, req models.OrderRequest) (*models.Order, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Order{ID: 42, OrderNumber: "CHK-0042", TotalAmount: req.FinalTotal, Status: models.OrderStatusSubmitted}, nil
}

func twoItemCart() models.CartSnapshot {
	return models.CartSnapshot{
		CartID:     7,
		CustomerID: 1,
		Items: []models.CartItem{
			{ProductID: 1, Name: "Wax print", UnitPrice: money.FromInt(15000), Quantity: 2, Subtotal: money.FromInt(30000)},
			{ProductID: 2, Name: "Sandals", UnitPrice: money.FromInt(15000), Quantity: 1, Subtotal: money.FromInt(15000)},
		},
		TotalAmount: money.FromInt(45000),
		ItemCount:   3,
	}
}

func offer(id int64, zone string, fee int64) models.ShippingOffer {
	return models.ShippingOffer{ID: id, Name: "Offer", Zone: zone, Kind: models.OfferKindStandard, Fee: money.FromInt(fee), MinDays: 1, MaxDays: 3, Active: true}
}

func mobileMoney() models.PaymentMethod {
	return models.PaymentMethod{ID: 10, Name: "Mobile money", Kind: models.PaymentKindMobileMoney, PercentageFee: decimal.RequireFromString("1.5"), Active: true}
}

func cashCapped() models.PaymentMethod {
	return models.PaymentMethod{ID: 11, Name: "Cash", Kind: models.PaymentKindCash, Active: true,
		MaxAmount: decimal.NewNullDecimal(money.FromInt(46000))}
}
