package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"checkout-service/internal/models"

	"github.com/go-redis/redis/v8"
)

func offersKey(zone string, weightKg float64) string {
	return fmt.Sprintf("shipping:offers:%s:%d", zone, int64(math.Round(weightKg*1000)))
}

// GetCachedOffers returns the cached offer list for zone and weight. ok is false on a miss.
func (c *Client) GetCachedOffers(ctx context.Context, zone string, weightKg float64) (offers []models.ShippingOffer, ok bool, err error) {
	raw, err := c.rdb.Get(ctx, offersKey(zone, weightKg)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read offer cache: %w", err)
	}
	if err := json.Unmarshal(raw, &offers); err != nil {
		return nil, false, fmt.Errorf("failed to decode offer cache: %w", err)
	}
	return offers, true, nil
}

// CacheOffers stores an offer list, including an empty one.
func (c *Client) CacheOffers(ctx context.Context, zone string, weightKg float64, offers []models.ShippingOffer, ttl time.Duration) error {
	if offers == nil {
		offers = []models.ShippingOffer{}
	}
	raw, err := json.Marshal(offers)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, offersKey(zone, weightKg), raw, ttl).Err()
}
