package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkuiper/bankboard/internal/ledger"
	"github.com/mkuiper/bankboard/internal/platform/ingest"
	"github.com/mkuiper/bankboard/pkg/logger"
)

// pagedProvider serves scripted pages and records every page request.
type pagedProvider struct {
	mu       sync.Mutex
	pages    [][]ledger.RawPayment
	requests []ingest.PageParams
	repeat   bool // serve pages[0] forever (cursor-stuck simulation)
	err      error
}

func (p *pagedProvider) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	return nil, nil
}

func (p *pagedProvider) ListPayments(_ context.Context, _ string, params ingest.PageParams) ([]ledger.RawPayment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.requests = append(p.requests, params)
	if p.repeat {
		return p.pages[0], nil
	}
	idx := len(p.requests) - 1
	if idx >= len(p.pages) {
		return nil, nil
	}
	return p.pages[idx], nil
}

func payment(id int64, created time.Time) ledger.RawPayment {
	return ledger.RawPayment{
		"id_":     fmt.Sprintf("%d", id),
		"created": created.UTC().Format(time.RFC3339),
		"amount":  map[string]any{"value": "-1.00", "currency": "EUR"},
	}
}

func testLog() *logger.Logger {
	return logger.New("test", io.Discard)
}

func TestReader_StopsWhenCutoffCrossedDescending(t *testing.T) {
	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, -30)

	provider := &pagedProvider{pages: [][]ledger.RawPayment{
		{payment(6, now.AddDate(0, 0, -1)), payment(5, now.AddDate(0, 0, -2))},
		{payment(4, now.AddDate(0, 0, -3)), payment(3, now.AddDate(0, 0, -40))},
		{payment(2, now.AddDate(0, 0, -41)), payment(1, now.AddDate(0, 0, -42))},
	}}

	reader := ingest.NewReaderWithLimits(provider, 2, 50, testLog())
	records, err := reader.FetchAll(context.Background(), "A1", cutoff, ingest.OrderDescending)
	require.NoError(t, err)

	// Page 2's minimum date crossed the cutoff: page 3 is never requested,
	// and the cumulative records of pages 1-2 are returned unfiltered.
	assert.Len(t, records, 4)
	assert.Len(t, provider.requests, 2)
}

func TestReader_AscendingDoesNotStopEarly(t *testing.T) {
	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, -30)

	provider := &pagedProvider{pages: [][]ledger.RawPayment{
		{payment(6, now.AddDate(0, 0, -40)), payment(5, now.AddDate(0, 0, -41))},
		{payment(4, now.AddDate(0, 0, -1))},
	}}

	reader := ingest.NewReaderWithLimits(provider, 2, 50, testLog())
	records, err := reader.FetchAll(context.Background(), "A1", cutoff, ingest.OrderAscending)
	require.NoError(t, err)

	assert.Len(t, records, 3)
	assert.Len(t, provider.requests, 2)
}

func TestReader_CursorIsMinimumSeenID(t *testing.T) {
	now := time.Now().UTC()
	provider := &pagedProvider{pages: [][]ledger.RawPayment{
		{payment(10, now), payment(8, now)},
		{payment(7, now), payment(5, now)},
		{payment(3, now)},
	}}

	reader := ingest.NewReaderWithLimits(provider, 2, 50, testLog())
	_, err := reader.FetchAll(context.Background(), "A1", time.Time{}, ingest.OrderDescending)
	require.NoError(t, err)

	require.Len(t, provider.requests, 3)
	assert.Nil(t, provider.requests[0].OlderThanID)
	assert.Equal(t, int64(8), *provider.requests[1].OlderThanID)
	assert.Equal(t, int64(5), *provider.requests[2].OlderThanID)
}

func TestReader_DeduplicatesOverlappingPages(t *testing.T) {
	now := time.Now().UTC()
	provider := &pagedProvider{pages: [][]ledger.RawPayment{
		{payment(10, now), payment(9, now)},
		{payment(9, now), payment(8, now)},
		{payment(7, now)},
	}}

	reader := ingest.NewReaderWithLimits(provider, 2, 50, testLog())
	records, err := reader.FetchAll(context.Background(), "A1", time.Time{}, ingest.OrderDescending)
	require.NoError(t, err)

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID()
	}
	assert.Equal(t, []string{"10", "9", "8", "7"}, ids)
}

func TestReader_EmptyFirstPage(t *testing.T) {
	provider := &pagedProvider{pages: [][]ledger.RawPayment{{}}}

	reader := ingest.NewReaderWithLimits(provider, 2, 50, testLog())
	records, err := reader.FetchAll(context.Background(), "A1", time.Time{}, ingest.OrderDescending)
	require.NoError(t, err)

	assert.Empty(t, records)
	assert.Len(t, provider.requests, 1)
}

func TestReader_ShortPageStops(t *testing.T) {
	now := time.Now().UTC()
	provider := &pagedProvider{pages: [][]ledger.RawPayment{
		{payment(10, now)},
		{payment(9, now)},
	}}

	reader := ingest.NewReaderWithLimits(provider, 2, 50, testLog())
	records, err := reader.FetchAll(context.Background(), "A1", time.Time{}, ingest.OrderDescending)
	require.NoError(t, err)

	assert.Len(t, records, 1)
	assert.Len(t, provider.requests, 1)
}

func TestReader_StuckCursorGuard(t *testing.T) {
	now := time.Now().UTC()
	provider := &pagedProvider{
		pages:  [][]ledger.RawPayment{{payment(10, now), payment(9, now)}},
		repeat: true,
	}

	reader := ingest.NewReaderWithLimits(provider, 2, 50, testLog())
	records, err := reader.FetchAll(context.Background(), "A1", time.Time{}, ingest.OrderDescending)
	require.NoError(t, err)

	// Second page repeats the first: dedup eats the records and the
	// unchanged cursor trips the anti-infinite-loop guard.
	assert.Len(t, records, 2)
	assert.Len(t, provider.requests, 2)
}

func TestReader_PageCeiling(t *testing.T) {
	now := time.Now().UTC()
	pages := make([][]ledger.RawPayment, 100)
	for i := range pages {
		base := int64((100 - i) * 10)
		pages[i] = []ledger.RawPayment{payment(base+1, now), payment(base, now)}
	}
	provider := &pagedProvider{pages: pages}

	reader := ingest.NewReaderWithLimits(provider, 2, 5, testLog())
	records, err := reader.FetchAll(context.Background(), "A1", time.Time{}, ingest.OrderDescending)
	require.NoError(t, err)

	assert.Len(t, provider.requests, 5)
	assert.Len(t, records, 10)
}

func TestReader_ProviderErrorPropagates(t *testing.T) {
	provider := &pagedProvider{err: errors.New("connection reset")}

	reader := ingest.NewReaderWithLimits(provider, 2, 50, testLog())
	_, err := reader.FetchAll(context.Background(), "A1", time.Time{}, ingest.OrderDescending)
	assert.Error(t, err)
}

func TestReader_TimestamplessPageDoesNotStopPagination(t *testing.T) {
	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, -30)

	undated := func(id int64) ledger.RawPayment {
		return ledger.RawPayment{
			"id_":    fmt.Sprintf("%d", id),
			"amount": map[string]any{"value": "-1.00", "currency": "EUR"},
		}
	}
	provider := &pagedProvider{pages: [][]ledger.RawPayment{
		{undated(6), undated(5)},
		{payment(4, now.AddDate(0, 0, -1)), payment(3, now.AddDate(0, 0, -2))},
	}}

	reader := ingest.NewReaderWithLimits(provider, 2, 50, testLog())
	records, err := reader.FetchAll(context.Background(), "A1", cutoff, ingest.OrderDescending)
	require.NoError(t, err)

	// A page with no parseable timestamps cannot prove the cutoff was
	// crossed; the dated follow-up page is still fetched.
	assert.Len(t, records, 4)
	assert.GreaterOrEqual(t, len(provider.requests), 2)
}
