package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrSessionNotFound   = errors.New("checkout session not found")
	ErrSessionBusy       = errors.New("checkout session is being modified")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrWrongStep         = errors.New("operation not allowed at current checkout step")
	ErrTransitionBlocked = errors.New("checkout transition blocked")
	ErrSubmitRequired    = errors.New("review is confirmed by submitting the order")
	ErrShippingNotReady  = errors.New("shipping offers are not available")
	ErrUnknownOffer      = errors.New("shipping offer is not offered for this destination")
	ErrUnknownMethod     = errors.New("payment method is not available")
	ErrMethodNotEligible = errors.New("payment method does not accept this amount")
	ErrNoZone            = errors.New("no delivery zone selected")
)

// TransitionError explains why a step change was refused.
type TransitionError struct {
	From   Step
	Event  Event
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s on %s: %s", ErrTransitionBlocked, e.Event, e.From, e.Reason)
}

func (e *TransitionError) Unwrap() error { return ErrTransitionBlocked }

// ValidationError carries per-field messages for the address step.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid address: " + strings.Join(parts, ", ")
}
