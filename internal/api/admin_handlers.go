package api

import (
	"net/http"

	"checkout-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type tierRequest struct {
	MinThreshold decimal.Decimal     `json:"min_threshold"`
	MaxThreshold decimal.NullDecimal `json:"max_threshold"`
	Percentage   decimal.Decimal     `json:"percentage"`
	Description  string              `json:"description"`
	Active       *bool               `json:"active"`
	Order        int                 `json:"order"`
}

func (r tierRequest) toTier() models.CommissionTier {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return models.CommissionTier{
		MinThreshold: r.MinThreshold,
		MaxThreshold: r.MaxThreshold,
		Percentage:   r.Percentage,
		Description:  r.Description,
		Active:       active,
		SortOrder:    r.Order,
	}
}

func (h *Handler) listTiers(c *gin.Context) {
	tiers, err := h.commission.ListTiers(c.Request.Context(), c.Query("all") == "true")
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tiers": tiers})
}

func (h *Handler) getTier(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	tier, err := h.commission.GetTier(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, tier)
}

func (h *Handler) createTier(c *gin.Context) {
	var req tierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tier := req.toTier()
	if err := h.commission.CreateTier(c.Request.Context(), &tier); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, tier)
}

func (h *Handler) updateTier(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req tierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tier := req.toTier()
	tier.ID = id
	if err := h.commission.UpdateTier(c.Request.Context(), &tier); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, tier)
}

func (h *Handler) deactivateTier(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.commission.DeactivateTier(c.Request.Context(), id); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

type replaceTiersRequest struct {
	Tiers []tierRequest `json:"tiers" binding:"required,min=1"`
}

func (h *Handler) replaceTiers(c *gin.Context) {
	var req replaceTiersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tiers := make([]models.CommissionTier, 0, len(req.Tiers))
	for _, t := range req.Tiers {
		tiers = append(tiers, t.toTier())
	}
	created, err := h.commission.ReplaceTiers(c.Request.Context(), tiers)
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tiers": created})
}

func (h *Handler) validateTiers(c *gin.Context) {
	report, err := h.commission.ValidateTable(c.Request.Context())
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, report)
}

type simulateRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

func (h *Handler) simulate(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.commission.Simulate(c.Request.Context(), *req.Amount)
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) priceLabel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	label, err := h.commission.LabelProduct(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, label)
}
