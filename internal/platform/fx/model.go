package fx

import "time"

// Rate is a durable exchange rate entry for (base, quote, date).
type Rate struct {
	Base      string
	Quote     string
	Date      time.Time // rate date, midnight UTC
	Value     float64
	Source    string
	FetchedAt time.Time
}

// Conversion is the outcome of a currency conversion. Value and Rate are
// nil when no rate could be resolved; callers must treat that as unknown
// rather than assuming parity.
type Conversion struct {
	Value     *float64 `json:"value"`
	Rate      *float64 `json:"rate"`
	Converted bool     `json:"converted"`
}
