package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/pricing"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CartProvider reads the customer's current cart.
type CartProvider interface {
	GetCurrentCart(ctx context.Context, customerID int64) (models.CartSnapshot, error)
}

// ShippingProvider lists the offers valid for a zone and parcel weight.
type ShippingProvider interface {
	ListActiveOffers(ctx context.Context, zone string, weightKg float64) ([]models.ShippingOffer, error)
}

// PaymentProvider lists the active payment methods of the configured environment.
type PaymentProvider interface {
	ListActiveMethods(ctx context.Context) ([]models.PaymentMethod, error)
}

// LoyaltyProvider reads point balances.
type LoyaltyProvider interface {
	GetBalance(ctx context.Context, customerID int64) (models.LoyaltyBalance, error)
}

// OrderSubmitter turns a reviewed checkout into an order.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error)
}

// SessionStore persists sessions between requests. Lock serialises mutations
// of one session and must stay held until unlock, however long the holder runs.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

// Deps are the collaborators of an Engine.
type Deps struct {
	Cart     CartProvider
	Shipping ShippingProvider
	Payment  PaymentProvider
	Loyalty  LoyaltyProvider
	Orders   OrderSubmitter
	Sessions SessionStore
	// UnitWeightKg is used for cart items without a known weight.
	UnitWeightKg float64
	Now          func() time.Time
}

// Engine drives checkout sessions. Fetches run outside the session lock and
// their results are applied under it, so a slow response never overwrites a newer one.
type Engine struct {
	deps   Deps
	logger *zap.Logger
}

// NewEngine validates deps and returns an engine.
func NewEngine(deps Deps) (*Engine, error) {
	switch {
	case deps.Cart == nil:
		return nil, errors.New("checkout: cart provider is required")
	case deps.Shipping == nil:
		return nil, errors.New("checkout: shipping provider is required")
	case deps.Payment == nil:
		return nil, errors.New("checkout: payment provider is required")
	case deps.Loyalty == nil:
		return nil, errors.New("checkout: loyalty provider is required")
	case deps.Orders == nil:
		return nil, errors.New("checkout: order submitter is required")
	case deps.Sessions == nil:
		return nil, errors.New("checkout: session store is required")
	}
	if deps.UnitWeightKg <= 0 {
		deps.UnitWeightKg = pricing.DefaultUnitWeightKg
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Engine{deps: deps, logger: util.GetLogger()}, nil
}

// mutate runs fn on the stored session under its lock and saves the result.
func (e *Engine) mutate(ctx context.Context, id string, fn func(s *Session) error) (*Session, error) {
	unlock, err := e.deps.Sessions.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := e.deps.Sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before, method := s.Step, s.MethodID
	if err := fn(s); err != nil {
		return s, err
	}
	if method != 0 && s.MethodID == 0 {
		e.methodDropped(s, method)
	}
	if s.Step != before {
		util.CheckoutTransitionsTotal.WithLabelValues(string(before), string(s.Step)).Inc()
	}
	s.UpdatedAt = e.deps.Now().UTC()
	if err := e.deps.Sessions.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to save checkout session: %w", err)
	}
	return s, nil
}

func (e *Engine) methodDropped(s *Session, previousID int64) {
	util.PaymentMethodsDropped.Inc()
	e.logger.Warn("Selected payment method no longer eligible",
		zap.String("session_id", s.ID),
		zap.Int64("method_id", previousID),
		zap.String("amount_with_shipping", s.Breakdown.AmountWithShipping.String()))
}

// Start opens a session for the customer's current cart. Payment and loyalty
// read failures degrade the session instead of failing it.
func (e *Engine) Start(ctx context.Context, customerID int64) (*Session, error) {
	ctx, span := util.StartSpan(ctx, "Engine.Start")
	defer span.End()

	cart, err := e.deps.Cart.GetCurrentCart(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	now := e.deps.Now().UTC()
	s := &Session{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Step:       StepAddress,
		Shipping:   ShippingIdle,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.SetCart(cart, e.deps.UnitWeightKg)
	e.loadMethods(ctx, s)
	e.loadLoyalty(ctx, s)

	if err := e.deps.Sessions.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to save checkout session: %w", err)
	}

	util.CheckoutSessionsStarted.Inc()
	e.logger.Info("Checkout session started",
		zap.String("session_id", s.ID),
		zap.Int64("customer_id", customerID),
		zap.Int("items", len(cart.Items)))
	return s, nil
}

func (e *Engine) loadMethods(ctx context.Context, s *Session) {
	methods, err := e.deps.Payment.ListActiveMethods(ctx)
	if err != nil {
		e.logger.Warn("Failed to load payment methods", zap.String("session_id", s.ID), zap.Error(err))
		s.MethodsError = err.Error()
		return
	}
	s.Methods = methods
	s.MethodsError = ""
	s.Recompute()
}

func (e *Engine) loadLoyalty(ctx context.Context, s *Session) {
	balance, err := e.deps.Loyalty.GetBalance(ctx, s.CustomerID)
	if err != nil {
		e.logger.Warn("Failed to load loyalty balance", zap.String("session_id", s.ID), zap.Error(err))
		s.SetLoyalty(0, false)
		return
	}
	s.SetLoyalty(balance.AvailablePoints, true)
}

// Get returns the stored session.
func (e *Engine) Get(ctx context.Context, id string) (*Session, error) {
	return e.deps.Sessions.Get(ctx, id)
}

// Discard drops a session, for instance when the customer navigates away.
func (e *Engine) Discard(ctx context.Context, id string) error {
	if _, err := e.deps.Sessions.Get(ctx, id); err != nil {
		return err
	}
	return e.deps.Sessions.Delete(ctx, id)
}

// SetAddress stores the delivery address. A new zone, or a zone whose offers
// never loaded, reloads the offer list.
func (e *Engine) SetAddress(ctx context.Context, id string, addr models.Address) (*Session, error) {
	ctx, span := util.StartSpan(ctx, "Engine.SetAddress")
	defer span.End()

	addr = NormalizeAddress(addr)
	if err := ValidateAddress(addr); err != nil {
		return nil, err
	}

	var token uint64
	var weight float64
	s, err := e.mutate(ctx, id, func(s *Session) error {
		if s.Step != StepAddress {
			return ErrWrongStep
		}
		s.Address = &addr
		zone := pricing.NormalizeZone(addr.Zone)
		if zone != s.Zone || s.Shipping == ShippingIdle || s.Shipping == ShippingFailed {
			token = s.BeginOfferFetch(zone, s.WeightKg)
			weight = s.WeightKg
		}
		return nil
	})
	if err != nil || token == 0 {
		return s, err
	}
	return e.loadOffers(ctx, id, token, addr.Zone, weight)
}

// loadOffers fetches offers for a fetch token and applies them if the token is still current.
func (e *Engine) loadOffers(ctx context.Context, id string, token uint64, zone string, weightKg float64) (*Session, error) {
	ctx, span := util.StartSpan(ctx, "Engine.loadOffers",
		attribute.String("session.id", id),
		attribute.String("shipping.zone", zone),
		attribute.Int64("shipping.fetch", int64(token)))
	defer span.End()

	start := time.Now()
	offers, fetchErr := e.deps.Shipping.ListActiveOffers(ctx, pricing.NormalizeZone(zone), weightKg)
	util.ShippingFetchLatency.Observe(time.Since(start).Seconds())
	util.SpanError(span, fetchErr)

	return e.mutate(ctx, id, func(s *Session) error {
		var applied bool
		if fetchErr != nil {
			applied = s.FailOfferFetch(token, fetchErr)
		} else {
			applied = s.ApplyOffers(token, offers)
		}
		if !applied {
			util.ShippingFetchDiscarded.Inc()
			e.logger.Warn("Discarded stale shipping offers",
				zap.String("session_id", id),
				zap.Uint64("token", token),
				zap.Uint64("current", s.OfferFetch))
			return nil
		}
		switch s.Shipping {
		case ShippingFailed:
			e.logger.Warn("Failed to load shipping offers", zap.String("session_id", id), zap.Error(fetchErr))
		case ShippingUnavailable:
			util.ShippingUnavailableTotal.WithLabelValues(s.Zone).Inc()
			e.logger.Warn("No shipping offer for destination",
				zap.String("session_id", id),
				zap.String("zone", s.Zone),
				zap.Float64("weight_kg", s.WeightKg))
		}
		return nil
	})
}

// RetryShipping reloads offers for the current zone.
func (e *Engine) RetryShipping(ctx context.Context, id string) (*Session, error) {
	var token uint64
	var zone string
	var weight float64
	_, err := e.mutate(ctx, id, func(s *Session) error {
		if s.Step == StepConfirmed {
			return ErrWrongStep
		}
		if s.Zone == "" {
			return ErrNoZone
		}
		zone, weight = s.Zone, s.WeightKg
		token = s.BeginOfferFetch(zone, weight)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.loadOffers(ctx, id, token, zone, weight)
}

// RetryLoyalty re-reads the point balance.
func (e *Engine) RetryLoyalty(ctx context.Context, id string) (*Session, error) {
	ctx, span := util.StartSpan(ctx, "Engine.RetryLoyalty")
	defer span.End()

	current, err := e.deps.Sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	balance, fetchErr := e.deps.Loyalty.GetBalance(ctx, current.CustomerID)
	return e.mutate(ctx, id, func(s *Session) error {
		if fetchErr != nil {
			e.logger.Warn("Failed to load loyalty balance", zap.String("session_id", id), zap.Error(fetchErr))
			s.SetLoyalty(0, false)
			return nil
		}
		s.SetLoyalty(balance.AvailablePoints, true)
		return nil
	})
}

// RefreshCart re-reads the cart and re-applies every downstream rule. A weight
// change reloads offers when a zone is known.
func (e *Engine) RefreshCart(ctx context.Context, id string) (*Session, error) {
	ctx, span := util.StartSpan(ctx, "Engine.RefreshCart")
	defer span.End()

	current, err := e.deps.Sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cart, err := e.deps.Cart.GetCurrentCart(ctx, current.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	var token uint64
	var zone string
	var weight float64
	s, err := e.mutate(ctx, id, func(s *Session) error {
		if s.Step == StepConfirmed {
			return ErrWrongStep
		}
		changed := s.SetCart(cart, e.deps.UnitWeightKg)
		if changed && s.Zone != "" {
			zone, weight = s.Zone, s.WeightKg
			token = s.BeginOfferFetch(zone, weight)
		}
		return nil
	})
	if err != nil || token == 0 {
		return s, err
	}
	return e.loadOffers(ctx, id, token, zone, weight)
}

// SelectOffer picks a shipping offer.
func (e *Engine) SelectOffer(ctx context.Context, id string, offerID int64) (*Session, error) {
	return e.mutate(ctx, id, func(s *Session) error {
		if s.Step != StepShippingAndPayment {
			return ErrWrongStep
		}
		return s.SelectOffer(offerID)
	})
}

// SelectMethod picks a payment method.
func (e *Engine) SelectMethod(ctx context.Context, id string, methodID int64) (*Session, error) {
	return e.mutate(ctx, id, func(s *Session) error {
		if s.Step != StepShippingAndPayment {
			return ErrWrongStep
		}
		return s.SelectMethod(methodID)
	})
}

// RedeemPoints sets the requested redemption; the applied amount is clamped.
func (e *Engine) RedeemPoints(ctx context.Context, id string, points int64) (*Session, error) {
	return e.mutate(ctx, id, func(s *Session) error {
		if s.Step != StepShippingAndPayment {
			return ErrWrongStep
		}
		s.RequestPoints(points)
		return nil
	})
}

// PaymentOptions quotes the methods that accept the session's amount with shipping.
func (e *Engine) PaymentOptions(ctx context.Context, id string) ([]pricing.MethodQuote, error) {
	s, err := e.deps.Sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return pricing.QuoteMethods(s.Methods, s.Breakdown.AmountWithShipping), nil
}

// Continue moves one step forward. At Review the order must be submitted instead.
func (e *Engine) Continue(ctx context.Context, id string) (*Session, error) {
	return e.mutate(ctx, id, func(s *Session) error {
		return s.Apply(EventContinue)
	})
}

// Back moves one step backward.
func (e *Engine) Back(ctx context.Context, id string) (*Session, error) {
	return e.mutate(ctx, id, func(s *Session) error {
		return s.Apply(EventBack)
	})
}

// Submit hands the reviewed checkout to the order collaborator. On failure the
// session stays at Review with the error recorded; on success it is confirmed
// and removed from the store.
func (e *Engine) Submit(ctx context.Context, id, idempotencyKey string) (*Session, error) {
	ctx, span := util.StartSpan(ctx, "Engine.Submit", attribute.String("session.id", id))
	defer span.End()
	log := util.SessionLogger(id)

	unlock, err := e.deps.Sessions.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := e.deps.Sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Step != StepReview {
		return s, ErrWrongStep
	}
	if _, err := Transition(s.Step, EventOrderPlaced, s.Readiness()); err != nil {
		return s, err
	}
	if idempotencyKey == "" {
		idempotencyKey = s.ID
	}

	order, submitErr := e.deps.Orders.SubmitOrder(ctx, s.OrderRequest(idempotencyKey))
	if submitErr != nil {
		util.CheckoutSubmissionsTotal.WithLabelValues("failed").Inc()
		util.SpanError(span, submitErr)
		log.Warn("Order submission failed", zap.Error(submitErr))
		s.SubmitError = submitErr.Error()
		s.UpdatedAt = e.deps.Now().UTC()
		if err := e.deps.Sessions.Save(ctx, s); err != nil {
			log.Error("Failed to save checkout session", zap.Error(err))
		}
		return s, submitErr
	}

	if err := s.Apply(EventOrderPlaced); err != nil {
		return s, err
	}
	s.SubmitError = ""
	s.OrderID = order.ID
	s.OrderNumber = order.OrderNumber
	s.UpdatedAt = e.deps.Now().UTC()

	util.CheckoutTransitionsTotal.WithLabelValues(string(StepReview), string(StepConfirmed)).Inc()
	util.CheckoutSubmissionsTotal.WithLabelValues("submitted").Inc()
	util.LoyaltyPointsRedeemed.Add(float64(s.PointsRedeemed))

	if err := e.deps.Sessions.Delete(ctx, id); err != nil {
		log.Error("Failed to discard confirmed session", zap.Error(err))
	}
	span.SetAttributes(attribute.Int64("order.id", order.ID))
	log.Info("Order submitted",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("final_total", s.Breakdown.FinalTotal.String()))
	return s, nil
}
