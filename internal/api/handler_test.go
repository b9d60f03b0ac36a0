package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"checkout-service/internal/checkout"
	"checkout-service/internal/models"
	"checkout-service/internal/money"
	"checkout-service/internal/redisclient"
	"checkout-service/internal/service"
	"checkout-service/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCart struct{}

func (stubCart) GetCurrentCart(_ context.Context, customerID int64) (models.CartSnapshot, error) {
	return models.CartSnapshot{
		CartID:      7,
		CustomerID:  customerID,
		Items:       []models.CartItem{{ProductID: 1, Name: "Wax print", UnitPrice: money.FromInt(15000), Quantity: 3, Subtotal: money.FromInt(45000)}},
		TotalAmount: money.FromInt(45000),
		ItemCount:   3,
	}, nil
}

type stubShipping struct{}

func (stubShipping) ListActiveOffers(_ context.Context, zone string, _ float64) ([]models.ShippingOffer, error) {
	if zone != "DAKAR" {
		return []models.ShippingOffer{}, nil
	}
	return []models.ShippingOffer{{ID: 1, Name: "Standard", Zone: "DAKAR", Fee: money.FromInt(2000), MinDays: 1, MaxDays: 3, Active: true}}, nil
}

type stubPayment struct{}

func (stubPayment) ListActiveMethods(context.Context) ([]models.PaymentMethod, error) {
	return []models.PaymentMethod{
		{ID: 10, Name: "Mobile money", Kind: models.PaymentKindMobileMoney, PercentageFee: money.MustParse("1.5"), Active: true},
		{ID: 11, Name: "Small cash", Kind: models.PaymentKindCash, Active: true, MaxAmount: decimal.NewNullDecimal(money.FromInt(1000))},
	}, nil
}

type stubLoyalty struct{}

func (stubLoyalty) GetBalance(_ context.Context, customerID int64) (models.LoyaltyBalance, error) {
	return models.LoyaltyBalance{CustomerID: customerID, AvailablePoints: 500}, nil
}

type stubOrders struct{ err error }

func (s *stubOrders) SubmitOrder(_ context.Context, req models.OrderRequest) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Order{ID: 42, OrderNumber: "CHK-20240301-ABCDEF12", TotalAmount: req.FinalTotal}, nil
}

type stubTiers struct {
	tiers    []models.CommissionTier
	products map[int64]models.Product
}

func (s *stubTiers) ListCommissionTiers(context.Context, bool) ([]models.CommissionTier, error) {
	return s.tiers, nil
}
func (s *stubTiers) GetCommissionTier(_ context.Context, id int64) (*models.CommissionTier, error) {
	return nil, store.ErrNotFound
}
func (s *stubTiers) CreateCommissionTier(_ context.Context, t *models.CommissionTier) error {
	t.ID = 99
	return nil
}
func (s *stubTiers) UpdateCommissionTier(context.Context, *models.CommissionTier) error { return nil }
func (s *stubTiers) DeactivateCommissionTier(context.Context, int64) error              { return nil }
func (s *stubTiers) ReplaceCommissionTiers(_ context.Context, t []models.CommissionTier) ([]models.CommissionTier, error) {
	return t, nil
}
func (s *stubTiers) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

type testServer struct {
	router *gin.Engine
	orders *stubOrders
	tiers  *stubTiers
	h      *Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	orders := &stubOrders{}
	engine, err := checkout.NewEngine(checkout.Deps{
		Cart:     stubCart{},
		Shipping: stubShipping{},
		Payment:  stubPayment{},
		Loyalty:  stubLoyalty{},
		Orders:   orders,
		Sessions: redisclient.NewSessionStore(redisclient.Wrap(rdb), time.Hour, time.Second),
	})
	require.NoError(t, err)

	tiers := &stubTiers{
		tiers: []models.CommissionTier{
			{ID: 1, MinThreshold: money.FromInt(0), MaxThreshold: decimal.NewNullDecimal(money.FromInt(10000)), Percentage: money.FromInt(5), Active: true},
			{ID: 2, MinThreshold: money.FromInt(10000), Percentage: money.FromInt(3), Active: true},
		},
		products: map[int64]models.Product{3: {ID: 3, SKU: "SKU-3", Name: "Boubou", Price: money.FromInt(20000)}},
	}

	h := NewHandler(engine, service.NewCommissionService(tiers))
	router := gin.New()
	h.SetupRoutes(router)
	return &testServer{router: router, orders: orders, tiers: tiers, h: h}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func address(zone string) gin.H {
	return gin.H{
		"full_name": "Awa Ndiaye",
		"phone":     "+221770000000",
		"line1":     "12 Rue Carnot",
		"city":      "Dakar",
		"country":   "SN",
		"zone":      zone,
	}
}

func (ts *testServer) startAt(t *testing.T, zone string) string {
	t.Helper()
	w, body := ts.do(t, http.MethodPost, "/api/v1/checkout/sessions", gin.H{"customer_id": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := body["id"].(string)

	w, _ = ts.do(t, http.MethodPut, "/api/v1/checkout/sessions/"+id+"/address", address(zone))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = ts.do(t, http.MethodPost, "/api/v1/checkout/sessions/"+id+"/continue", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return id
}

func TestCheckoutFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	id := ts.startAt(t, "dakar")
	base := "/api/v1/checkout/sessions/" + id

	w, body := ts.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SHIPPING_AND_PAYMENT", body["step"])
	assert.Equal(t, "ready", body["shipping_status"])
	assert.Equal(t, false, body["can_continue"])
	assert.Equal(t, "no payment method selected", body["blocked_reason"])

	w, body = ts.do(t, http.MethodGet, base+"/payment-methods", nil)
	require.Equal(t, http.StatusOK, w.Code)
	methods := body["methods"].([]interface{})
	require.Len(t, methods, 1, "cash capped below the amount is not offered")

	w, _ = ts.do(t, http.MethodPut, base+"/payment-method", gin.H{"method_id": 11})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, body = ts.do(t, http.MethodPut, base+"/payment-method", gin.H{"method_id": 10})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["can_continue"])

	w, body = ts.do(t, http.MethodPut, base+"/points", gin.H{"points": 900})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(500), body["points_redeemed"])
	breakdown := body["breakdown"].(map[string]interface{})
	assert.Equal(t, "47205", breakdown["final_total"])

	w, _ = ts.do(t, http.MethodPost, base+"/continue", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, body = ts.do(t, http.MethodPost, base+"/continue", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body = ts.do(t, http.MethodPost, base+"/submit", nil, "Idempotency-Key", "abc")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "CONFIRMED", body["step"])
	assert.Equal(t, "CHK-20240301-ABCDEF12", body["order_number"])

	w, _ = ts.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvalidAddressReturnsFieldErrors(t *testing.T) {
	ts := newTestServer(t)
	_, body := ts.do(t, http.MethodPost, "/api/v1/checkout/sessions", gin.H{"customer_id": 1})
	id := body["id"].(string)

	addr := address("DAKAR")
	delete(addr, "line1")
	w, body := ts.do(t, http.MethodPut, "/api/v1/checkout/sessions/"+id+"/address", addr)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	fields := body["fields"].(map[string]interface{})
	assert.Equal(t, "is required", fields["line1"])
}

func TestUnservedZoneBlocksContinue(t *testing.T) {
	ts := newTestServer(t)
	id := ts.startAt(t, "REMOTE")

	w, body := ts.do(t, http.MethodPost, "/api/v1/checkout/sessions/"+id+"/continue", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "no shipping offer is available for this destination", body["details"])
	session := body["session"].(map[string]interface{})
	assert.Equal(t, "unavailable", session["shipping_status"])
	assert.Equal(t, false, session["can_continue"])
	assert.Empty(t, session["offers"])
}

func TestSubmissionRejectionKeepsReview(t *testing.T) {
	ts := newTestServer(t)
	ts.orders.err = &service.SubmissionError{Reason: service.ReasonMethodUnavailable, Detail: "method 10"}
	id := ts.startAt(t, "DAKAR")
	base := "/api/v1/checkout/sessions/" + id

	ts.do(t, http.MethodPut, base+"/payment-method", gin.H{"method_id": 10})
	w, _ := ts.do(t, http.MethodPost, base+"/continue", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, body := ts.do(t, http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, service.ReasonMethodUnavailable, body["reason"])
	assert.Equal(t, "REVIEW", body["session"].(map[string]interface{})["step"])
}

func TestTransientSubmitFailureIsRetryable(t *testing.T) {
	ts := newTestServer(t)
	ts.orders.err = errors.New("connection reset")
	id := ts.startAt(t, "DAKAR")
	base := "/api/v1/checkout/sessions/" + id

	ts.do(t, http.MethodPut, base+"/payment-method", gin.H{"method_id": 10})
	ts.do(t, http.MethodPost, base+"/continue", nil)

	w, body := ts.do(t, http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, true, body["retryable"])
}

func TestCommissionEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w, body := ts.do(t, http.MethodPost, "/api/v1/admin/commission-tiers/simulate", gin.H{"amount": "10000"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "500", body["commission_amount"])
	assert.Equal(t, "10500", body["total_with_commission"])

	w, body = ts.do(t, http.MethodGet, "/api/v1/products/3/price-label", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "20600", body["price"])

	w, _ = ts.do(t, http.MethodGet, "/api/v1/products/4/price-label", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = ts.do(t, http.MethodGet, "/api/v1/admin/commission-tiers/validation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["valid"])

	w, body = ts.do(t, http.MethodPut, "/api/v1/admin/commission-tiers", gin.H{"tiers": []gin.H{
		{"min_threshold": "0", "max_threshold": "100", "percentage": "5"},
		{"min_threshold": "500", "percentage": "3"},
	}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.NotEmpty(t, body["problems"])

	ts.tiers.tiers = nil
	w, body = ts.do(t, http.MethodPost, "/api/v1/admin/commission-tiers/simulate", gin.H{"amount": 10})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Commission table misconfigured", body["error"])
}

func TestReadiness(t *testing.T) {
	ts := newTestServer(t)
	w, _ := ts.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	ts.h.AddReadinessCheck("database", func(context.Context) error { return errors.New("down") })
	w, body := ts.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "down", body["failures"].(map[string]interface{})["database"])
}
