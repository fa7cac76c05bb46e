package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkuiper/bankboard/internal/platform/fx"
)

// RateRepository is the durable tier of the FX rate cache.
type RateRepository struct {
	pool *pgxpool.Pool
}

// NewRateRepository creates a new PostgreSQL FX rate repository
func NewRateRepository(pool *pgxpool.Pool) *RateRepository {
	return &RateRepository{pool: pool}
}

// GetRate returns the stored rate for (base, quote, date), or nil when no
// row exists.
func (r *RateRepository) GetRate(ctx context.Context, base, quote string, date time.Time) (*fx.Rate, error) {
	query := `
		SELECT base_currency, quote_currency, rate_date, rate, source, fetched_at
		FROM fx_rates
		WHERE base_currency = $1 AND quote_currency = $2 AND rate_date = $3
	`

	var rate fx.Rate
	err := r.pool.QueryRow(ctx, query, base, quote, date).Scan(
		&rate.Base, &rate.Quote, &rate.Date, &rate.Value, &rate.Source, &rate.FetchedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get fx rate: %w", err)
	}
	return &rate, nil
}

// UpsertRate inserts or refreshes a rate row keyed by (base, quote, date).
func (r *RateRepository) UpsertRate(ctx context.Context, rate *fx.Rate) error {
	query := `
		INSERT INTO fx_rates (base_currency, quote_currency, rate_date, rate, source, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (base_currency, quote_currency, rate_date) DO UPDATE SET
			rate = EXCLUDED.rate,
			source = EXCLUDED.source,
			fetched_at = EXCLUDED.fetched_at
	`

	_, err := r.pool.Exec(ctx, query,
		rate.Base, rate.Quote, rate.Date, rate.Value, rate.Source, rate.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert fx rate: %w", err)
	}
	return nil
}
