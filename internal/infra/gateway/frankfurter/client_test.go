package frankfurter_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkuiper/bankboard/internal/infra/gateway/frankfurter"
	"github.com/mkuiper/bankboard/pkg/logger"
)

func newClient(t *testing.T, handler http.Handler) *frankfurter.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := frankfurter.NewClient(logger.New("test", io.Discard))
	client.SetBaseURL(server.URL)
	return client
}

func TestGetRate_HistoricalDate(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2026-08-27", r.URL.Path)
		assert.Equal(t, "USD", r.URL.Query().Get("base"))
		assert.Equal(t, "EUR", r.URL.Query().Get("symbols"))
		w.Write([]byte(`{"base":"USD","date":"2026-08-27","rates":{"EUR":0.9123}}`))
	}))

	date := time.Date(2026, 8, 27, 14, 30, 0, 0, time.UTC)
	rate, found, err := client.GetRate(context.Background(), "USD", "EUR", date)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 0.9123, rate)
}

func TestGetRate_ZeroDateUsesLatest(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest", r.URL.Path)
		w.Write([]byte(`{"base":"GBP","date":"2026-08-28","rates":{"EUR":1.17}}`))
	}))

	rate, found, err := client.GetRate(context.Background(), "GBP", "EUR", time.Time{})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1.17, rate)
}

func TestGetRate_UnknownCurrencyNotFound(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"not found"}`))
	}))

	_, found, err := client.GetRate(context.Background(), "XXX", "EUR", time.Time{})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetRate_QuoteMissingFromResponse(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"base":"USD","date":"2026-08-28","rates":{"GBP":0.75}}`))
	}))

	_, found, err := client.GetRate(context.Background(), "USD", "EUR", time.Time{})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetRate_ServerError(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, _, err := client.GetRate(context.Background(), "USD", "EUR", time.Time{})
	require.Error(t, err)
}
