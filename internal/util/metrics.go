package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutSessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_sessions_started_total",
		Help: "Total number of checkout sessions started",
	})

	CheckoutTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_step_transitions_total",
		Help: "Total number of checkout step transitions",
	}, []string{"from", "to"})

	CheckoutSubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_submissions_total",
		Help: "Total number of order submissions by result",
	}, []string{"result"})

	ShippingFetchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shipping_offer_fetch_latency_seconds",
		Help:    "Latency of shipping offer lookups",
		Buckets: prometheus.DefBuckets,
	})

	ShippingFetchDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shipping_offer_fetch_discarded_total",
		Help: "Total number of offer lookups discarded because a newer lookup superseded them",
	})

	ShippingUnavailableTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipping_unavailable_total",
		Help: "Total number of offer lookups that returned no offer",
	}, []string{"zone"})

	ShippingOfferCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipping_offer_cache_total",
		Help: "Offer cache lookups by result",
	}, []string{"result"})

	PaymentMethodsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_methods_dropped_total",
		Help: "Total number of selected payment methods dropped after the amount changed",
	})

	CommissionSimulationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commission_simulations_total",
		Help: "Total number of commission simulations",
	}, []string{"result"})

	LoyaltyPointsRedeemed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_points_redeemed_total",
		Help: "Total number of loyalty points redeemed on submitted orders",
	})

	LoyaltyDebitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_debits_total",
		Help: "Total number of loyalty debit events handled",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
