package fx

import (
	"context"
	"time"
)

// RateCache is the fast first tier, keyed by (base, quote, date). The
// default implementation is an in-process map; a Redis-backed one can be
// swapped in when requests are served by multiple processes.
type RateCache interface {
	Get(ctx context.Context, base, quote string, date time.Time) (*Rate, bool, error)
	Set(ctx context.Context, rate *Rate) error
}

// RateStore is the durable second tier (fx_rates table).
type RateStore interface {
	GetRate(ctx context.Context, base, quote string, date time.Time) (*Rate, error)
	UpsertRate(ctx context.Context, rate *Rate) error
}

// RateSource is the remote third tier, queried only on a full miss.
// A missing rate is reported via found=false, not an error.
type RateSource interface {
	GetRate(ctx context.Context, base, quote string, date time.Time) (value float64, found bool, err error)
}
