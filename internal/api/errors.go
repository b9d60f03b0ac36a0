package api

import (
	"errors"
	"net/http"

	"checkout-service/internal/checkout"
	"checkout-service/internal/pricing"
	"checkout-service/internal/service"
	"checkout-service/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps domain errors onto status codes. When s is not nil the
// current session is returned alongside the error.
func (h *Handler) respondError(c *gin.Context, err error, s *checkout.Session) {
	status, body := h.classify(err)
	if s != nil {
		body["session"] = newSessionView(s)
	}
	c.JSON(status, body)
}

func (h *Handler) classify(err error) (int, gin.H) {
	var (
		validationErr *checkout.ValidationError
		transitionErr *checkout.TransitionError
		tableErr      *pricing.TierTableError
		noTierErr     *pricing.NoTierMatchError
		submitErr     *service.SubmissionError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity, gin.H{"error": "Invalid address", "fields": validationErr.Fields}
	case errors.As(err, &tableErr):
		return http.StatusUnprocessableEntity, gin.H{"error": "Invalid commission tier table", "problems": tableErr.Problems}
	case errors.As(err, &noTierErr):
		h.logger.Error("Commission table misconfigured", zap.Error(err))
		return http.StatusInternalServerError, gin.H{
			"error":   "Commission table misconfigured",
			"details": "no active commission tier covers " + noTierErr.Amount.String() + "; fix the tier table",
		}
	case errors.As(err, &transitionErr):
		return http.StatusConflict, gin.H{"error": "Cannot change step", "details": transitionErr.Reason}
	case errors.As(err, &submitErr):
		return http.StatusConflict, gin.H{"error": "Order submission rejected", "reason": submitErr.Reason, "details": submitErr.Detail}
	case errors.Is(err, checkout.ErrSessionNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, gin.H{"error": "Not found", "details": err.Error()}
	case errors.Is(err, checkout.ErrSessionBusy):
		return http.StatusConflict, gin.H{"error": "Session busy", "details": err.Error(), "retryable": true}
	case errors.Is(err, checkout.ErrUnknownOffer),
		errors.Is(err, checkout.ErrUnknownMethod),
		errors.Is(err, checkout.ErrMethodNotEligible):
		return http.StatusUnprocessableEntity, gin.H{"error": "Invalid selection", "details": err.Error()}
	case errors.Is(err, checkout.ErrSubmitRequired),
		errors.Is(err, checkout.ErrWrongStep),
		errors.Is(err, checkout.ErrShippingNotReady),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrNoZone):
		return http.StatusConflict, gin.H{"error": "Not available", "details": err.Error()}
	}

	h.logger.Warn("Request failed", zap.Error(err))
	return http.StatusServiceUnavailable, gin.H{"error": "Temporarily unavailable", "details": err.Error(), "retryable": true}
}
