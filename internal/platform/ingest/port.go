package ingest

import (
	"context"
	"time"

	"github.com/mkuiper/bankboard/internal/ledger"
	"github.com/mkuiper/bankboard/internal/platform/fx"
)

// Order is the pagination direction of a payment fetch.
type Order string

const (
	OrderDescending Order = "desc"
	OrderAscending  Order = "asc"
)

// PageParams selects one page of payments. OlderThanID is the cursor: the
// provider returns records with a numeric id strictly less than it.
type PageParams struct {
	Count       int
	OlderThanID *int64
}

// ProviderClient is the ledger provider boundary (spec'd capability
// contract, implemented by the bunq gateway).
type ProviderClient interface {
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
	ListPayments(ctx context.Context, accountID string, params PageParams) ([]ledger.RawPayment, error)
}

// TransactionStore persists normalized transactions, deduplicated by
// content hash. Writes are best-effort relative to serving a response.
type TransactionStore interface {
	UpsertTransactions(ctx context.Context, txs []ledger.Transaction) error
}

// Converter resolves amounts into the reporting currency.
type Converter interface {
	ReportingCurrency() string
	Convert(ctx context.Context, amount float64, currency string, date time.Time) fx.Conversion
}
