package checkout

// Step is the position of a session in the checkout flow.
type Step string

const (
	StepAddress            Step = "ADDRESS"
	StepShippingAndPayment Step = "SHIPPING_AND_PAYMENT"
	StepReview             Step = "REVIEW"
	StepConfirmed          Step = "CONFIRMED"
)

// Event is a user action or outcome that may move a session between steps.
type Event string

const (
	EventContinue    Event = "CONTINUE"
	EventBack        Event = "BACK"
	EventOrderPlaced Event = "ORDER_PLACED"
)

// ShippingStatus tracks the offer list of the current zone.
type ShippingStatus string

const (
	ShippingIdle        ShippingStatus = "idle"
	ShippingCalculating ShippingStatus = "calculating"
	ShippingReady       ShippingStatus = "ready"
	ShippingUnavailable ShippingStatus = "unavailable"
	ShippingFailed      ShippingStatus = "failed"
)

// Readiness is the subset of session state that guards forward moves.
type Readiness struct {
	AddressValid   bool
	Shipping       ShippingStatus
	OfferSelected  bool
	MethodSelected bool
}

func (r Readiness) shippingBlock() string {
	switch r.Shipping {
	case ShippingCalculating:
		return "shipping fees are still being calculated"
	case ShippingUnavailable:
		return "no shipping offer is available for this destination"
	case ShippingFailed:
		return "shipping offers could not be loaded"
	case ShippingIdle:
		return "no delivery zone selected"
	}
	if !r.OfferSelected {
		return "no shipping offer selected"
	}
	if !r.MethodSelected {
		return "no payment method selected"
	}
	return ""
}

// Transition is the pure step function of the checkout flow. Only Review can
// reach Confirmed and only through EventOrderPlaced.
func Transition(from Step, event Event, r Readiness) (Step, error) {
	block := func(reason string) (Step, error) {
		return from, &TransitionError{From: from, Event: event, Reason: reason}
	}

	switch from {
	case StepAddress:
		switch event {
		case EventContinue:
			if !r.AddressValid {
				return block("delivery address is incomplete")
			}
			return StepShippingAndPayment, nil
		case EventBack:
			return block("already at the first step")
		}
	case StepShippingAndPayment:
		switch event {
		case EventContinue:
			if reason := r.shippingBlock(); reason != "" {
				return block(reason)
			}
			return StepReview, nil
		case EventBack:
			return StepAddress, nil
		}
	case StepReview:
		switch event {
		case EventContinue:
			return from, ErrSubmitRequired
		case EventBack:
			return StepShippingAndPayment, nil
		case EventOrderPlaced:
			if reason := r.shippingBlock(); reason != "" {
				return block(reason)
			}
			return StepConfirmed, nil
		}
	case StepConfirmed:
		return block("checkout is already confirmed")
	}
	return block("event not accepted at this step")
}
