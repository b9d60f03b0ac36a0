package api

import (
	"net/http"
	"time"

	"checkout-service/internal/checkout"
	"checkout-service/internal/models"
	"checkout-service/internal/pricing"

	"github.com/gin-gonic/gin"
)

type sessionView struct {
	ID               string                  `json:"id"`
	CustomerID       int64                   `json:"customer_id"`
	Step             checkout.Step           `json:"step"`
	Cart             models.CartSnapshot     `json:"cart"`
	WeightKg         float64                 `json:"weight_kg"`
	Address          *models.Address         `json:"address"`
	Zone             string                  `json:"zone"`
	ShippingStatus   checkout.ShippingStatus `json:"shipping_status"`
	ShippingError    string                  `json:"shipping_error,omitempty"`
	Offers           []models.ShippingOffer  `json:"offers"`
	SelectedOfferID  *int64                  `json:"selected_offer_id"`
	SelectedMethodID *int64                  `json:"selected_method_id"`
	MethodsError     string                  `json:"payment_methods_error,omitempty"`
	LoyaltyStatus    checkout.LoyaltyStatus  `json:"loyalty_status"`
	AvailablePoints  int64                   `json:"available_points"`
	RequestedPoints  int64                   `json:"requested_points"`
	PointsRedeemed   int64                   `json:"points_redeemed"`
	Breakdown        pricing.Breakdown       `json:"breakdown"`
	CanContinue      bool                    `json:"can_continue"`
	BlockedReason    string                  `json:"blocked_reason,omitempty"`
	SubmitError      string                  `json:"submit_error,omitempty"`
	OrderID          int64                   `json:"order_id,omitempty"`
	OrderNumber      string                  `json:"order_number,omitempty"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

func optionalID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func newSessionView(s *checkout.Session) sessionView {
	offers := s.Offers
	if offers == nil {
		offers = []models.ShippingOffer{}
	}
	ok, reason := s.CanContinue()
	return sessionView{
		ID:               s.ID,
		CustomerID:       s.CustomerID,
		Step:             s.Step,
		Cart:             s.Cart,
		WeightKg:         s.WeightKg,
		Address:          s.Address,
		Zone:             s.Zone,
		ShippingStatus:   s.Shipping,
		ShippingError:    s.ShippingError,
		Offers:           offers,
		SelectedOfferID:  optionalID(s.OfferID),
		SelectedMethodID: optionalID(s.MethodID),
		MethodsError:     s.MethodsError,
		LoyaltyStatus:    s.Loyalty,
		AvailablePoints:  s.AvailablePoints,
		RequestedPoints:  s.RequestedPoints,
		PointsRedeemed:   s.PointsRedeemed,
		Breakdown:        s.Breakdown,
		CanContinue:      ok,
		BlockedReason:    reason,
		SubmitError:      s.SubmitError,
		OrderID:          s.OrderID,
		OrderNumber:      s.OrderNumber,
		UpdatedAt:        s.UpdatedAt,
	}
}

// reply writes the session or maps err. A session returned with an error is
// the state the client should now display.
func (h *Handler) reply(c *gin.Context, status int, s *checkout.Session, err error) {
	if err != nil {
		h.respondError(c, err, s)
		return
	}
	c.JSON(status, newSessionView(s))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}

type startSessionRequest struct {
	CustomerID int64 `json:"customer_id" binding:"required,gt=0"`
}

func (h *Handler) startSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.checkout.Start(c.Request.Context(), req.CustomerID)
	h.reply(c, http.StatusCreated, s, err)
}

func (h *Handler) getSession(c *gin.Context) {
	s, err := h.checkout.Get(c.Request.Context(), c.Param("id"))
	h.reply(c, http.StatusOK, s, err)
}

func (h *Handler) discardSession(c *gin.Context) {
	if err := h.checkout.Discard(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) setAddress(c *gin.Context) {
	var addr models.Address
	if err := c.ShouldBindJSON(&addr); err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.checkout.SetAddress(c.Request.Context(), c.Param("id"), addr)
	h.reply(c, http.StatusOK, s, err)
}

type selectOfferRequest struct {
	OfferID int64 `json:"offer_id" binding:"required"`
}

func (h *Handler) selectOffer(c *gin.Context) {
	var req selectOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.checkout.SelectOffer(c.Request.Context(), c.Param("id"), req.OfferID)
	h.reply(c, http.StatusOK, s, err)
}

type selectMethodRequest struct {
	MethodID int64 `json:"method_id" binding:"required"`
}

func (h *Handler) selectMethod(c *gin.Context) {
	var req selectMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.checkout.SelectMethod(c.Request.Context(), c.Param("id"), req.MethodID)
	h.reply(c, http.StatusOK, s, err)
}

type pointsRequest struct {
	Points *int64 `json:"points" binding:"required"`
}

func (h *Handler) redeemPoints(c *gin.Context) {
	var req pointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.checkout.RedeemPoints(c.Request.Context(), c.Param("id"), *req.Points)
	h.reply(c, http.StatusOK, s, err)
}

func (h *Handler) paymentOptions(c *gin.Context) {
	quotes, err := h.checkout.PaymentOptions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"methods": quotes})
}

func (h *Handler) continueStep(c *gin.Context) {
	s, err := h.checkout.Continue(c.Request.Context(), c.Param("id"))
	h.reply(c, http.StatusOK, s, err)
}

func (h *Handler) backStep(c *gin.Context) {
	s, err := h.checkout.Back(c.Request.Context(), c.Param("id"))
	h.reply(c, http.StatusOK, s, err)
}

func (h *Handler) submit(c *gin.Context) {
	s, err := h.checkout.Submit(c.Request.Context(), c.Param("id"), c.GetHeader("Idempotency-Key"))
	h.reply(c, http.StatusCreated, s, err)
}

func (h *Handler) refreshCart(c *gin.Context) {
	s, err := h.checkout.RefreshCart(c.Request.Context(), c.Param("id"))
	h.reply(c, http.StatusOK, s, err)
}

func (h *Handler) retryShipping(c *gin.Context) {
	s, err := h.checkout.RetryShipping(c.Request.Context(), c.Param("id"))
	h.reply(c, http.StatusOK, s, err)
}

func (h *Handler) retryLoyalty(c *gin.Context) {
	s, err := h.checkout.RetryLoyalty(c.Request.Context(), c.Param("id"))
	h.reply(c, http.StatusOK, s, err)
}
