package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"checkout-service/internal/checkout"
	"checkout-service/internal/service"
	"checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Handler contains HTTP handlers
type Handler struct {
	checkout   *checkout.Engine
	commission *service.CommissionService
	checks     map[string]ReadinessCheck
	logger     *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(engine *checkout.Engine, commission *service.CommissionService) *Handler {
	return &Handler{
		checkout:   engine,
		commission: commission,
		checks:     map[string]ReadinessCheck{},
		logger:     util.GetLogger(),
	}
}

// AddReadinessCheck registers a dependency probed by /ready
func (h *Handler) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(tracingMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		sessions := v1.Group("/checkout/sessions")
		sessions.POST("", h.startSession)
		sessions.GET("/:id", h.getSession)
		sessions.DELETE("/:id", h.discardSession)
		sessions.PUT("/:id/address", h.setAddress)
		sessions.PUT("/:id/shipping-offer", h.selectOffer)
		sessions.PUT("/:id/payment-method", h.selectMethod)
		sessions.PUT("/:id/points", h.redeemPoints)
		sessions.GET("/:id/payment-methods", h.paymentOptions)
		sessions.POST("/:id/continue", h.continueStep)
		sessions.POST("/:id/back", h.backStep)
		sessions.POST("/:id/submit", h.submit)
		sessions.POST("/:id/cart/refresh", h.refreshCart)
		sessions.POST("/:id/shipping/retry", h.retryShipping)
		sessions.POST("/:id/loyalty/retry", h.retryLoyalty)

		tiers := v1.Group("/admin/commission-tiers")
		tiers.GET("", h.listTiers)
		tiers.POST("", h.createTier)
		tiers.PUT("", h.replaceTiers)
		tiers.GET("/validation", h.validateTiers)
		tiers.POST("/simulate", h.simulate)
		tiers.GET("/:id", h.getTier)
		tiers.PUT("/:id", h.updateTier)
		tiers.DELETE("/:id", h.deactivateTier)

		v1.GET("/products/:id/price-label", h.priceLabel)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck probes every registered dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failures := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "not ready",
			"failures": failures,
			"time":     time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}
