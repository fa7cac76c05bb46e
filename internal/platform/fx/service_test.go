package fx_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkuiper/bankboard/internal/platform/fx"
	"github.com/mkuiper/bankboard/pkg/logger"
)

// fakeStore is an in-memory RateStore that counts accesses.
type fakeStore struct {
	rates   map[string]*fx.Rate
	gets    int
	upserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rates: make(map[string]*fx.Rate)}
}

func storeKey(base, quote string, date time.Time) string {
	return base + quote + date.UTC().Format("2006-01-02")
}

func (s *fakeStore) GetRate(_ context.Context, base, quote string, date time.Time) (*fx.Rate, error) {
	s.gets++
	return s.rates[storeKey(base, quote, date)], nil
}

func (s *fakeStore) UpsertRate(_ context.Context, rate *fx.Rate) error {
	s.upserts++
	s.rates[storeKey(rate.Base, rate.Quote, rate.Date)] = rate
	return nil
}

// fakeSource is a scripted RateSource.
type fakeSource struct {
	rate  float64
	found bool
	err   error
	calls int
}

func (s *fakeSource) GetRate(_ context.Context, _, _ string, _ time.Time) (float64, bool, error) {
	s.calls++
	return s.rate, s.found, s.err
}

func testLogger() *logger.Logger {
	return logger.New("test", io.Discard)
}

func newService(store *fakeStore, source *fakeSource) *fx.Service {
	return fx.NewService(
		fx.Config{ReportingCurrency: "EUR", SourceTag: "test"},
		nil, store, source, testLogger(),
	)
}

func TestConvert_IdentityTouchesNoTier(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{rate: 99, found: true}
	svc := newService(store, source)

	conv := svc.Convert(context.Background(), 12.5, "EUR", time.Now())

	require.True(t, conv.Converted)
	assert.Equal(t, 12.5, *conv.Value)
	assert.Equal(t, 1.0, *conv.Rate)
	assert.Zero(t, store.gets)
	assert.Zero(t, source.calls)
}

func TestConvert_RemoteWritesThroughBothTiers(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{rate: 0.92, found: true}
	svc := newService(store, source)
	date := time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)

	conv := svc.Convert(context.Background(), 100, "USD", date)

	require.True(t, conv.Converted)
	assert.InDelta(t, 92.0, *conv.Value, 0.001)
	assert.Equal(t, 0.92, *conv.Rate)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 1, store.upserts)

	// Second call for the same day is served from the runtime cache.
	conv = svc.Convert(context.Background(), 50, "USD", date)
	require.True(t, conv.Converted)
	assert.Equal(t, 1, source.calls)
	assert.Equal(t, 1, store.gets)
}

func TestConvert_StoreHitBackfillsCache(t *testing.T) {
	store := newFakeStore()
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	store.rates[storeKey("USD", "EUR", date)] = &fx.Rate{
		Base: "USD", Quote: "EUR", Date: date,
		Value: 0.9, Source: "seed", FetchedAt: time.Now().UTC(),
	}
	source := &fakeSource{found: false}
	svc := newService(store, source)

	conv := svc.Convert(context.Background(), 10, "usd", date)
	require.True(t, conv.Converted)
	assert.InDelta(t, 9.0, *conv.Value, 0.001)
	assert.Equal(t, 1, store.gets)
	assert.Zero(t, source.calls)

	// Backfilled runtime cache answers the next call.
	conv = svc.Convert(context.Background(), 20, "USD", date)
	require.True(t, conv.Converted)
	assert.Equal(t, 1, store.gets)
}

func TestConvert_StaleStoreEntryIsRefetched(t *testing.T) {
	store := newFakeStore()
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	store.rates[storeKey("USD", "EUR", date)] = &fx.Rate{
		Base: "USD", Quote: "EUR", Date: date,
		Value: 0.5, Source: "seed",
		FetchedAt: time.Now().UTC().Add(-48 * time.Hour), // beyond TTL
	}
	source := &fakeSource{rate: 0.92, found: true}
	svc := newService(store, source)

	conv := svc.Convert(context.Background(), 100, "USD", date)
	require.True(t, conv.Converted)
	assert.Equal(t, 0.92, *conv.Rate)
	assert.Equal(t, 1, source.calls)
}

func TestConvert_FullMissNeverAssumesParity(t *testing.T) {
	svc := newService(newFakeStore(), &fakeSource{found: false})

	conv := svc.Convert(context.Background(), 100, "USD", time.Now())

	assert.False(t, conv.Converted)
	assert.Nil(t, conv.Value)
	assert.Nil(t, conv.Rate)
}

func TestConvert_SourceErrorDegradesGracefully(t *testing.T) {
	svc := newService(newFakeStore(), &fakeSource{err: errors.New("timeout")})

	conv := svc.Convert(context.Background(), 100, "USD", time.Now())
	assert.False(t, conv.Converted)
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	cache := fx.NewMemoryCache()
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rate := &fx.Rate{Base: "USD", Quote: "EUR", Date: date, Value: 0.92, FetchedAt: time.Now()}

	_, found, err := cache.Get(context.Background(), "USD", "EUR", date)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Set(context.Background(), rate))

	got, found, err := cache.Get(context.Background(), "USD", "EUR", date)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0.92, got.Value)
}
