package checkout

import (
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/pricing"

	"github.com/shopspring/decimal"
)

// LoyaltyStatus tracks whether the point balance could be read.
type LoyaltyStatus string

const (
	LoyaltyReady  LoyaltyStatus = "ready"
	LoyaltyFailed LoyaltyStatus = "failed"
)

// Session is the state of one checkout. Breakdown is derived and rebuilt by
// Recompute after every change to cart, address, offer, method or points.
type Session struct {
	ID         string              `json:"id"`
	CustomerID int64               `json:"customer_id"`
	Step       Step                `json:"step"`
	Cart       models.CartSnapshot `json:"cart"`
	WeightKg   float64             `json:"weight_kg"`

	Address *models.Address `json:"address,omitempty"`
	Zone    string          `json:"zone,omitempty"`

	Shipping      ShippingStatus         `json:"shipping_status"`
	ShippingError string                 `json:"shipping_error,omitempty"`
	OfferFetch    uint64                 `json:"offer_fetch"`
	Offers        []models.ShippingOffer `json:"offers"`
	OfferID       int64                  `json:"selected_offer_id,omitempty"`
	// PreviousOfferID survives a reload so the same offer is re-selected when still offered.
	PreviousOfferID int64 `json:"previous_offer_id,omitempty"`

	Methods      []models.PaymentMethod `json:"methods"`
	MethodsError string                 `json:"methods_error,omitempty"`
	MethodID     int64                  `json:"selected_method_id,omitempty"`

	Loyalty         LoyaltyStatus `json:"loyalty_status"`
	AvailablePoints int64         `json:"available_points"`
	RequestedPoints int64         `json:"requested_points"`
	PointsRedeemed  int64         `json:"points_redeemed"`

	Breakdown pricing.Breakdown `json:"breakdown"`

	SubmitError string `json:"submit_error,omitempty"`
	OrderID     int64  `json:"order_id,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Session) selectedOffer() *models.ShippingOffer {
	if s.OfferID == 0 {
		return nil
	}
	o, ok := pricing.FindOffer(s.Offers, s.OfferID)
	if !ok {
		return nil
	}
	return &o
}

func (s *Session) selectedMethod() *models.PaymentMethod {
	if s.MethodID == 0 {
		return nil
	}
	m, ok := pricing.FindMethod(s.Methods, s.MethodID)
	if !ok {
		return nil
	}
	return &m
}

// AmountWithShipping is the base every payment method is priced against.
func (s *Session) AmountWithShipping() decimal.Decimal {
	return s.Breakdown.AmountWithShipping
}

// Readiness summarises what the transition guards look at.
func (s *Session) Readiness() Readiness {
	return Readiness{
		AddressValid:   s.Address != nil && ValidateAddress(*s.Address) == nil,
		Shipping:       s.Shipping,
		OfferSelected:  s.selectedOffer() != nil,
		MethodSelected: s.selectedMethod() != nil,
	}
}

// CanContinue reports whether EventContinue would be accepted and, if not, why.
func (s *Session) CanContinue() (bool, string) {
	_, err := Transition(s.Step, EventContinue, s.Readiness())
	if err == nil {
		return true, ""
	}
	if te, ok := err.(*TransitionError); ok {
		return false, te.Reason
	}
	return false, err.Error()
}

// Recompute re-applies eligibility and the redemption limit, then rebuilds the
// breakdown. It reports whether the selected payment method had to be dropped.
func (s *Session) Recompute() (methodDropped bool) {
	base := pricing.Compose(pricing.Input{Subtotal: s.Cart.TotalAmount, Offer: s.selectedOffer()})

	// The fee is unknown while offers reload; eligibility waits for it.
	if m := s.selectedMethod(); m != nil && s.Shipping != ShippingCalculating {
		if !m.Active || !pricing.IsEligible(*m, base.AmountWithShipping) {
			s.MethodID = 0
			methodDropped = true
		}
	} else if m == nil && s.MethodID != 0 {
		s.MethodID = 0
		methodDropped = true
	}

	max := pricing.MaxRedeemable(s.AvailablePoints, base.AmountWithShipping)
	s.PointsRedeemed = pricing.ClampUserInput(s.RequestedPoints, max)

	s.Breakdown = pricing.Compose(pricing.Input{
		Subtotal:        s.Cart.TotalAmount,
		Offer:           s.selectedOffer(),
		Method:          s.selectedMethod(),
		AvailablePoints: s.AvailablePoints,
		RequestedPoints: s.PointsRedeemed,
	})
	return methodDropped
}

// BeginOfferFetch invalidates the current offer list and returns the token a
// later ApplyOffers or FailOfferFetch must present.
func (s *Session) BeginOfferFetch(zone string, weightKg float64) uint64 {
	if s.OfferID != 0 {
		s.PreviousOfferID = s.OfferID
	}
	s.Zone = pricing.NormalizeZone(zone)
	s.WeightKg = weightKg
	s.OfferFetch++
	s.Shipping = ShippingCalculating
	s.ShippingError = ""
	s.Offers = nil
	s.OfferID = 0
	s.Recompute()
	return s.OfferFetch
}

// ApplyOffers installs the result of fetch token. Results of superseded fetches
// are discarded and false is returned.
func (s *Session) ApplyOffers(token uint64, offers []models.ShippingOffer) bool {
	if token != s.OfferFetch {
		return false
	}
	s.Offers = offers
	if o, ok := pricing.DefaultOffer(offers, s.PreviousOfferID); ok {
		s.Shipping = ShippingReady
		s.OfferID = o.ID
	} else {
		s.Shipping = ShippingUnavailable
		s.OfferID = 0
	}
	s.PreviousOfferID = 0
	s.Recompute()
	return true
}

// FailOfferFetch records a failed fetch. Like ApplyOffers it ignores stale tokens.
func (s *Session) FailOfferFetch(token uint64, err error) bool {
	if token != s.OfferFetch {
		return false
	}
	s.Shipping = ShippingFailed
	s.ShippingError = err.Error()
	s.Offers = nil
	s.OfferID = 0
	s.Recompute()
	return true
}

// SelectOffer picks one of the currently listed offers.
func (s *Session) SelectOffer(id int64) error {
	if s.Shipping != ShippingReady {
		return ErrShippingNotReady
	}
	if _, ok := pricing.FindOffer(s.Offers, id); !ok {
		return ErrUnknownOffer
	}
	s.OfferID = id
	s.Recompute()
	return nil
}

// SelectMethod picks a method that is active and accepts the amount with shipping.
func (s *Session) SelectMethod(id int64) error {
	m, ok := pricing.FindMethod(s.Methods, id)
	if !ok || !m.Active {
		return ErrUnknownMethod
	}
	if !pricing.IsEligible(m, s.Breakdown.AmountWithShipping) {
		return ErrMethodNotEligible
	}
	s.MethodID = id
	s.Recompute()
	return nil
}

// RequestPoints records the user's redemption request as asked. Recompute
// clamps the applied value, so the request survives a temporarily lower limit.
func (s *Session) RequestPoints(points int64) {
	if points < 0 {
		points = 0
	}
	s.RequestedPoints = points
	s.Recompute()
}

// SetCart replaces the cart snapshot and reports whether the parcel weight changed.
func (s *Session) SetCart(cart models.CartSnapshot, unitWeightKg float64) bool {
	s.Cart = cart
	weight := pricing.EstimateWeight(cart.Items, unitWeightKg)
	changed := weight != s.WeightKg
	s.WeightKg = weight
	s.Recompute()
	return changed
}

// SetLoyalty records a balance read. A failed read leaves no points redeemable.
func (s *Session) SetLoyalty(available int64, ok bool) {
	if ok {
		s.Loyalty = LoyaltyReady
		s.AvailablePoints = available
	} else {
		s.Loyalty = LoyaltyFailed
		s.AvailablePoints = 0
	}
	s.Recompute()
}

// Apply moves the session through the step function.
func (s *Session) Apply(event Event) error {
	next, err := Transition(s.Step, event, s.Readiness())
	if err != nil {
		return err
	}
	s.Step = next
	return nil
}

// OrderRequest freezes the session into what the order collaborator receives.
func (s *Session) OrderRequest(idempotencyKey string) models.OrderRequest {
	req := models.OrderRequest{
		SessionID:       s.ID,
		CustomerID:      s.CustomerID,
		Cart:            s.Cart,
		ShippingOfferID: s.OfferID,
		PaymentMethodID: s.MethodID,
		PointsRedeemed:  s.PointsRedeemed,
		FinalTotal:      s.Breakdown.FinalTotal,
		IdempotencyKey:  idempotencyKey,
	}
	if s.Address != nil {
		req.DeliveryAddress = *s.Address
	}
	return req
}
