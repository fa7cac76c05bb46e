package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkuiper/bankboard/internal/platform/fx"
	"github.com/mkuiper/bankboard/pkg/logger"
)

const (
	// DefaultTTL matches the FX service's staleness window.
	DefaultTTL = 24 * time.Hour

	// KeyPrefix is the prefix for rate cache keys
	KeyPrefix = "fxrate:"
)

// RateCache is a Redis-backed exchange rate cache. It replaces the default
// in-process cache when requests are served by multiple processes.
type RateCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

var _ fx.RateCache = (*RateCache)(nil)

// NewRateCache creates a new rate cache
func NewRateCache(client *redis.Client, log *logger.Logger) *RateCache {
	return NewRateCacheWithTTL(client, DefaultTTL, log)
}

// NewRateCacheWithTTL creates a new rate cache with custom TTL
func NewRateCacheWithTTL(client *redis.Client, ttl time.Duration, log *logger.Logger) *RateCache {
	return &RateCache{
		client: client,
		ttl:    ttl,
		logger: log.WithField("component", "rate_cache"),
	}
}

type cachedRate struct {
	Base      string    `json:"base"`
	Quote     string    `json:"quote"`
	Date      time.Time `json:"date"`
	Value     float64   `json:"value"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

func rateKey(base, quote string, date time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s", KeyPrefix, base, quote, date.UTC().Format("2006-01-02"))
}

// Get retrieves a cached rate for (base, quote, date)
func (c *RateCache) Get(ctx context.Context, base, quote string, date time.Time) (*fx.Rate, bool, error) {
	key := rateKey(base, quote, date)

	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		c.logger.Debug("cache miss", "key", key)
		return nil, false, nil
	}
	if err != nil {
		c.logger.Error("cache error", "operation", "get", "key", key, "error", err)
		return nil, false, fmt.Errorf("failed to get cached rate: %w", err)
	}

	var cached cachedRate
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached rate: %w", err)
	}

	c.logger.Debug("cache hit", "key", key)
	return &fx.Rate{
		Base:      cached.Base,
		Quote:     cached.Quote,
		Date:      cached.Date,
		Value:     cached.Value,
		Source:    cached.Source,
		FetchedAt: cached.FetchedAt,
	}, true, nil
}

// Set stores a rate in the cache with the configured TTL
func (c *RateCache) Set(ctx context.Context, rate *fx.Rate) error {
	key := rateKey(rate.Base, rate.Quote, rate.Date)

	data, err := json.Marshal(cachedRate{
		Base:      rate.Base,
		Quote:     rate.Quote,
		Date:      rate.Date,
		Value:     rate.Value,
		Source:    rate.Source,
		FetchedAt: rate.FetchedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal rate: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("cache error", "operation", "set", "key", key, "error", err)
		return fmt.Errorf("failed to set cached rate: %w", err)
	}

	return nil
}
