package history

import (
	"context"

	"github.com/mkuiper/bankboard/internal/ledger"
)

// SnapshotStore is the durable side of the snapshot pipeline.
type SnapshotStore interface {
	UpsertSnapshots(ctx context.Context, snapshots []Snapshot) error
	BalanceSeries(ctx context.Context, days int) ([]SeriesRow, error)
	LatestSnapshots(ctx context.Context) ([]Snapshot, error)
	MissingConversionCount(ctx context.Context) (int, error)
}

// AccountSource supplies the live account list to snapshot.
type AccountSource interface {
	Accounts(ctx context.Context) ([]ledger.Account, error)
}
