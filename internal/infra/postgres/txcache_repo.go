package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkuiper/bankboard/internal/ledger"
)

// TransactionCacheRepository stores deduplicated transaction history.
// Rows are keyed by a content hash so the same logical transaction observed
// across overlapping pages or repeated polls collapses to one row.
type TransactionCacheRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionCacheRepository creates a new PostgreSQL transaction cache repository
func NewTransactionCacheRepository(pool *pgxpool.Pool) *TransactionCacheRepository {
	return &TransactionCacheRepository{pool: pool}
}

// ContentHash is the deduplication key: a stable hash over the fields that
// identify a logical transaction.
func ContentHash(tx ledger.Transaction) string {
	payload := fmt.Sprintf("%s|%s|%s|%.2f|%s",
		tx.ID, tx.AccountID, tx.Date.UTC().Format(time.RFC3339), tx.Amount, tx.Description)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// UpsertTransactions inserts or refreshes the given transactions. A row
// whose content hash already exists gets its non-key columns updated (last
// write wins).
func (r *TransactionCacheRepository) UpsertTransactions(ctx context.Context, txs []ledger.Transaction) error {
	query := `
		INSERT INTO transaction_cache
			(content_hash, transaction_id, account_id, transaction_date, amount,
			 currency, description, counterparty, counterparty_iban, merchant_code,
			 category, is_internal_transfer, converted_amount, fx_rate, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		ON CONFLICT (content_hash) DO UPDATE SET
			counterparty = EXCLUDED.counterparty,
			counterparty_iban = EXCLUDED.counterparty_iban,
			merchant_code = EXCLUDED.merchant_code,
			category = EXCLUDED.category,
			is_internal_transfer = EXCLUDED.is_internal_transfer,
			converted_amount = EXCLUDED.converted_amount,
			fx_rate = EXCLUDED.fx_rate,
			updated_at = NOW()
	`

	for _, tx := range txs {
		_, err := r.pool.Exec(ctx, query,
			ContentHash(tx),
			tx.ID,
			tx.AccountID,
			tx.Date,
			tx.Amount,
			tx.Currency,
			tx.Description,
			tx.Counterparty,
			tx.CounterpartyIBAN,
			tx.MerchantCode,
			string(tx.Category),
			tx.IsInternalTransfer,
			tx.ConvertedAmount,
			tx.FxRate,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert transaction %s: %w", tx.ID, err)
		}
	}
	return nil
}

// CountTransactions returns the number of cached transactions since the
// given time.
func (r *TransactionCacheRepository) CountTransactions(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM transaction_cache WHERE transaction_date >= $1`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
