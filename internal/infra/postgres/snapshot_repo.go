package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkuiper/bankboard/internal/ledger"
	"github.com/mkuiper/bankboard/internal/platform/history"
)

// SnapshotRepository handles account snapshot persistence operations
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new PostgreSQL snapshot repository
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// UpsertSnapshots inserts or refreshes one snapshot row per account. Rows
// are keyed by (snapshot_date, account_id); re-running the same day updates
// the non-key columns instead of duplicating. Each row commits on its own,
// so a failure mid-batch leaves earlier rows valid.
func (r *SnapshotRepository) UpsertSnapshots(ctx context.Context, snapshots []history.Snapshot) error {
	query := `
		INSERT INTO account_snapshots
			(snapshot_date, account_id, account_name, classification, balance,
			 currency, converted_balance, fx_rate, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (snapshot_date, account_id) DO UPDATE SET
			account_name = EXCLUDED.account_name,
			classification = EXCLUDED.classification,
			balance = EXCLUDED.balance,
			currency = EXCLUDED.currency,
			converted_balance = EXCLUDED.converted_balance,
			fx_rate = EXCLUDED.fx_rate,
			captured_at = EXCLUDED.captured_at
	`

	for _, snap := range snapshots {
		_, err := r.pool.Exec(ctx, query,
			snap.SnapshotDate,
			snap.AccountID,
			snap.AccountName,
			string(snap.Class),
			snap.Balance,
			snap.Currency,
			snap.ConvertedBalance,
			snap.FxRate,
			snap.CapturedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert snapshot for account %s: %w", snap.AccountID, err)
		}
	}
	return nil
}

// BalanceSeries returns per-day, per-classification balance totals over the
// last `days` days. Conversion falls back to the native balance when no
// converted value was stored.
func (r *SnapshotRepository) BalanceSeries(ctx context.Context, days int) ([]history.SeriesRow, error) {
	query := `
		SELECT snapshot_date, classification, SUM(COALESCE(converted_balance, balance))
		FROM account_snapshots
		WHERE snapshot_date >= $1
		GROUP BY snapshot_date, classification
		ORDER BY snapshot_date ASC
	`

	since := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -days)
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance series: %w", err)
	}
	defer rows.Close()

	var series []history.SeriesRow
	for rows.Next() {
		var row history.SeriesRow
		var class string
		if err := rows.Scan(&row.Date, &class, &row.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan series row: %w", err)
		}
		row.Class = ledger.AccountClass(class)
		series = append(series, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating series rows: %w", err)
	}
	return series, nil
}

// LatestSnapshots returns every account row from the most recent snapshot
// date, or an empty slice when nothing has been captured yet.
func (r *SnapshotRepository) LatestSnapshots(ctx context.Context) ([]history.Snapshot, error) {
	query := `
		SELECT snapshot_date, account_id, account_name, classification, balance,
		       currency, converted_balance, fx_rate, captured_at
		FROM account_snapshots
		WHERE snapshot_date = (SELECT MAX(snapshot_date) FROM account_snapshots)
		ORDER BY account_id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []history.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snapshots, nil
}

// MissingConversionCount counts rows on the latest snapshot date that have
// no reporting-currency conversion. Surfaced to callers as a data-quality
// signal.
func (r *SnapshotRepository) MissingConversionCount(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM account_snapshots
		WHERE snapshot_date = (SELECT MAX(snapshot_date) FROM account_snapshots)
		  AND converted_balance IS NULL
	`

	var count int
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count missing conversions: %w", err)
	}
	return count, nil
}

func scanSnapshot(row pgx.Row) (history.Snapshot, error) {
	var snap history.Snapshot
	var class string
	err := row.Scan(
		&snap.SnapshotDate,
		&snap.AccountID,
		&snap.AccountName,
		&class,
		&snap.Balance,
		&snap.Currency,
		&snap.ConvertedBalance,
		&snap.FxRate,
		&snap.CapturedAt,
	)
	if err != nil {
		return history.Snapshot{}, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	snap.Class = ledger.AccountClass(class)
	return snap, nil
}
