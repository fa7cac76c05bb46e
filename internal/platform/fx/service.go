package fx

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mkuiper/bankboard/pkg/logger"
)

// DefaultTTL is how long a fetched rate is trusted before it must be
// refetched. Stale entries are treated as absent, never served.
const DefaultTTL = 24 * time.Hour

// Config holds conversion service configuration.
type Config struct {
	// ReportingCurrency is the quote currency all amounts convert into.
	ReportingCurrency string

	// TTL overrides DefaultTTL when positive.
	TTL time.Duration

	// SourceTag labels rates fetched from the remote source.
	SourceTag string
}

// Service resolves exchange rates through three tiers: runtime cache,
// durable store, remote source.
type Service struct {
	reporting string
	ttl       time.Duration
	sourceTag string
	cache     RateCache
	store     RateStore
	source    RateSource
	logger    *logger.Logger
}

// NewService creates a conversion service. Cache, store and source may be
// nil; each missing tier is simply skipped.
func NewService(cfg Config, cache RateCache, store RateStore, source RateSource, log *logger.Logger) *Service {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	sourceTag := cfg.SourceTag
	if sourceTag == "" {
		sourceTag = "remote"
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Service{
		reporting: strings.ToUpper(cfg.ReportingCurrency),
		ttl:       ttl,
		sourceTag: sourceTag,
		cache:     cache,
		store:     store,
		source:    source,
		logger:    log.WithField("component", "fx"),
	}
}

// ReportingCurrency returns the quote currency of this service.
func (s *Service) ReportingCurrency() string {
	return s.reporting
}

// Convert resolves the (currency -> reporting currency) rate for a date and
// applies it to amount. A full miss yields Conversion{nil, nil, false};
// parity is never assumed.
func (s *Service) Convert(ctx context.Context, amount float64, currency string, date time.Time) Conversion {
	base := strings.ToUpper(currency)
	if base == s.reporting {
		one := 1.0
		value := amount
		return Conversion{Value: &value, Rate: &one, Converted: true}
	}

	day := date.UTC().Truncate(24 * time.Hour)

	if rate := s.fromCache(ctx, base, day); rate != nil {
		return apply(amount, rate.Value)
	}
	if rate := s.fromStore(ctx, base, day); rate != nil {
		return apply(amount, rate.Value)
	}
	if rate := s.fromSource(ctx, base, day); rate != nil {
		return apply(amount, rate.Value)
	}

	s.logger.Warn("conversion unavailable", "base", base, "quote", s.reporting, "date", day.Format("2006-01-02"))
	return Conversion{}
}

func (s *Service) fromCache(ctx context.Context, base string, day time.Time) *Rate {
	rate, found, err := s.cache.Get(ctx, base, s.reporting, day)
	if err != nil {
		s.logger.Warn("rate cache read failed", "error", err)
		return nil
	}
	if !found || !s.fresh(rate) {
		return nil
	}
	return rate
}

func (s *Service) fromStore(ctx context.Context, base string, day time.Time) *Rate {
	if s.store == nil {
		return nil
	}
	rate, err := s.store.GetRate(ctx, base, s.reporting, day)
	if err != nil {
		s.logger.Warn("rate store read failed", "error", err)
		return nil
	}
	if rate == nil || !s.fresh(rate) {
		return nil
	}
	if err := s.cache.Set(ctx, rate); err != nil {
		s.logger.Warn("rate cache backfill failed", "error", err)
	}
	return rate
}

func (s *Service) fromSource(ctx context.Context, base string, day time.Time) *Rate {
	if s.source == nil {
		return nil
	}
	value, found, err := s.source.GetRate(ctx, base, s.reporting, day)
	if err != nil {
		s.logger.Warn("remote rate fetch failed", "base", base, "error", err)
		return nil
	}
	if !found || value <= 0 {
		return nil
	}

	rate := &Rate{
		Base:      base,
		Quote:     s.reporting,
		Date:      day,
		Value:     value,
		Source:    s.sourceTag,
		FetchedAt: time.Now().UTC(),
	}
	if s.store != nil {
		if err := s.store.UpsertRate(ctx, rate); err != nil {
			s.logger.Warn("rate store write failed", "error", err)
		}
	}
	if err := s.cache.Set(ctx, rate); err != nil {
		s.logger.Warn("rate cache write failed", "error", err)
	}
	return rate
}

func (s *Service) fresh(rate *Rate) bool {
	return time.Since(rate.FetchedAt) <= s.ttl
}

func apply(amount, rate float64) Conversion {
	value := amount * rate
	r := rate
	return Conversion{Value: &value, Rate: &r, Converted: true}
}

// MemoryCache is the default process-local rate cache. Multiple requests
// share it, so reads and writes go through a mutex.
type MemoryCache struct {
	mu    sync.RWMutex
	rates map[string]*Rate
}

// NewMemoryCache creates an empty in-process rate cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{rates: make(map[string]*Rate)}
}

func cacheKey(base, quote string, date time.Time) string {
	return base + "/" + quote + "/" + date.UTC().Format("2006-01-02")
}

// Get returns the cached rate for (base, quote, date), if any.
func (c *MemoryCache) Get(_ context.Context, base, quote string, date time.Time) (*Rate, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rate, ok := c.rates[cacheKey(base, quote, date)]
	return rate, ok, nil
}

// Set stores a rate, replacing any entry for the same key.
func (c *MemoryCache) Set(_ context.Context, rate *Rate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates[cacheKey(rate.Base, rate.Quote, rate.Date)] = rate
	return nil
}

var _ RateCache = (*MemoryCache)(nil)
