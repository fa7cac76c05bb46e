package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/mkuiper/bankboard/internal/ledger"
	"github.com/mkuiper/bankboard/pkg/logger"
)

const (
	// DefaultPageSize is both the default and the provider's hard cap.
	DefaultPageSize = 200

	// DefaultMaxPages bounds worst-case work against a misbehaving provider.
	DefaultMaxPages = 50
)

// Reader pages through an account's payments using an older-than id
// cursor, deduplicating across overlapping pages and stopping early once
// the cutoff date is crossed.
type Reader struct {
	provider ProviderClient
	pageSize int
	maxPages int
	logger   *logger.Logger
}

// NewReader creates a paginated ledger reader.
func NewReader(provider ProviderClient, log *logger.Logger) *Reader {
	return NewReaderWithLimits(provider, DefaultPageSize, DefaultMaxPages, log)
}

// NewReaderWithLimits creates a reader with explicit page size and page
// ceiling. The page size is clamped to the provider's hard cap.
func NewReaderWithLimits(provider ProviderClient, pageSize, maxPages int, log *logger.Logger) *Reader {
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Reader{
		provider: provider,
		pageSize: pageSize,
		maxPages: maxPages,
		logger:   log.WithField("component", "reader"),
	}
}

// FetchAll retrieves all payments for an account until cutoff is crossed
// or the provider runs dry. Records on the final page that fall before
// cutoff are still returned; the normalization stage filters them.
//
// Termination conditions, in the order they are checked per page:
// empty page, cursor failed to advance, short page, page minimum
// timestamp older than cutoff (descending order only), page ceiling.
func (r *Reader) FetchAll(ctx context.Context, accountID string, cutoff time.Time, order Order) ([]ledger.RawPayment, error) {
	var (
		results []ledger.RawPayment
		seen    = make(map[string]struct{})
		cursor  *int64
	)

	for page := 0; page < r.maxPages; page++ {
		params := PageParams{Count: r.pageSize, OlderThanID: cursor}
		records, err := r.provider.ListPayments(ctx, accountID, params)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page+1, err)
		}
		if len(records) == 0 {
			break
		}

		pageMinID, pageMinTS, hasID := pageMinimums(records)

		for _, rec := range records {
			id := rec.ID()
			if id != "" {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
			}
			results = append(results, rec)
		}

		// A page with no usable numeric id cannot advance the cursor.
		if !hasID {
			r.logger.Warn("page without numeric ids, stopping", "account_id", accountID, "page", page+1)
			break
		}
		if cursor != nil && pageMinID >= *cursor {
			r.logger.Warn("cursor failed to advance, stopping", "account_id", accountID, "cursor", *cursor, "page_min", pageMinID)
			break
		}
		next := pageMinID
		cursor = &next

		if len(records) < r.pageSize {
			break
		}
		// Descending pages are guaranteed to only get older, so crossing
		// the cutoff means no later page can contribute. Ascending fetches
		// carry no such guarantee; filtering happens at normalization. A
		// page with no parseable timestamp at all cannot prove the cutoff
		// was crossed, so pagination keeps going.
		if order == OrderDescending && !cutoff.IsZero() && !pageMinTS.IsZero() && pageMinTS.Before(cutoff) {
			break
		}
	}

	return results, nil
}

// pageMinimums scans a page for the minimum numeric id and minimum
// creation timestamp. hasID is false when no record carries a numeric id.
func pageMinimums(records []ledger.RawPayment) (minID int64, minTS time.Time, hasID bool) {
	for _, rec := range records {
		if id, ok := rec.NumericID(); ok {
			if !hasID || id < minID {
				minID = id
			}
			hasID = true
		}
		if ts, ok := rec.CreatedAt(); ok {
			if minTS.IsZero() || ts.Before(minTS) {
				minTS = ts
			}
		}
	}
	return minID, minTS, hasID
}
