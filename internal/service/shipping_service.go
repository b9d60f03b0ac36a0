package service

import (
	"context"
	"fmt"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/pricing"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// ShippingService lists the offers a parcel can use. Results are cached per
// zone and weight when a cache is configured.
type ShippingService struct {
	store    OfferStore
	cache    OfferCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewShippingService creates a new shipping service. A nil cache or zero ttl disables caching.
func NewShippingService(store OfferStore, cache OfferCache, cacheTTL time.Duration) *ShippingService {
	return &ShippingService{store: store, cache: cache, cacheTTL: cacheTTL, logger: util.GetLogger()}
}

func (s *ShippingService) caching() bool {
	return s.cache != nil && s.cacheTTL > 0
}

// ListActiveOffers returns the offers for zone and weight in display order.
// An empty result means the destination is not served.
func (s *ShippingService) ListActiveOffers(ctx context.Context, zone string, weightKg float64) ([]models.ShippingOffer, error) {
	ctx, span := util.StartSpan(ctx, "ShippingService.ListActiveOffers")
	defer span.End()

	zone = pricing.NormalizeZone(zone)

	if s.caching() {
		offers, ok, err := s.cache.GetCachedOffers(ctx, zone, weightKg)
		if err != nil {
			s.logger.Warn("Offer cache read failed", zap.String("zone", zone), zap.Error(err))
		} else if ok {
			util.ShippingOfferCacheTotal.WithLabelValues("hit").Inc()
			return offers, nil
		}
		util.ShippingOfferCacheTotal.WithLabelValues("miss").Inc()
	}

	rows, err := s.store.ListShippingOffersByZone(ctx, zone)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipping offers: %w", err)
	}
	for _, o := range rows {
		if err := pricing.ValidateOffer(o); err != nil {
			s.logger.Warn("Skipping misconfigured shipping offer",
				zap.Int64("offer_id", o.ID),
				zap.String("zone", zone),
				zap.Error(err))
		}
	}

	offers := pricing.ListOffers(rows, zone, weightKg)

	if s.caching() {
		if err := s.cache.CacheOffers(ctx, zone, weightKg, offers, s.cacheTTL); err != nil {
			s.logger.Warn("Offer cache write failed", zap.String("zone", zone), zap.Error(err))
		}
	}
	return offers, nil
}
