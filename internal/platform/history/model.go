package history

import (
	"time"

	"github.com/mkuiper/bankboard/internal/ledger"
)

// Snapshot is one account's balance captured on one day. Re-capturing the
// same (date, account) pair overwrites the previous row.
type Snapshot struct {
	SnapshotDate time.Time           `json:"snapshot_date"`
	AccountID    string              `json:"account_id"`
	AccountName  string              `json:"account_name"`
	Class        ledger.AccountClass `json:"class"`
	Balance      float64             `json:"balance"`
	Currency     string              `json:"currency"`

	// Reporting-currency view; nil when conversion was unavailable at
	// capture time.
	ConvertedBalance *float64 `json:"converted_balance,omitempty"`
	FxRate           *float64 `json:"fx_rate,omitempty"`

	CapturedAt time.Time `json:"captured_at"`
}

// SeriesRow is one (date, classification) balance total read back from the
// snapshot store.
type SeriesRow struct {
	Date    time.Time
	Class   ledger.AccountClass
	Balance float64
}

// SeriesPoint is one charting day with every classification present.
type SeriesPoint struct {
	Date       string  `json:"date"`
	Checking   float64 `json:"checking"`
	Savings    float64 `json:"savings"`
	Investment float64 `json:"investment"`
	Total      float64 `json:"total"`
}

// Breakdown is the latest snapshot day seen as a whole: per-account rows
// plus a data-quality count of rows that lack a currency conversion.
type Breakdown struct {
	Date               string     `json:"date"`
	Accounts           []Snapshot `json:"accounts"`
	Total              float64    `json:"total"`
	MissingConversions int        `json:"missing_conversions"`
}
