package ingest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mkuiper/bankboard/internal/ledger"
	apperrors "github.com/mkuiper/bankboard/internal/shared/errors"
	"github.com/mkuiper/bankboard/pkg/logger"
)

// Config holds ingest pipeline configuration.
type Config struct {
	// ConcurrentAccounts bounds per-account pipelines running in parallel.
	ConcurrentAccounts int

	// RequestTimeout bounds one whole aggregation (all accounts).
	RequestTimeout time.Duration
}

// DefaultConfig returns the default ingest configuration.
func DefaultConfig() Config {
	return Config{
		ConcurrentAccounts: 3,
		RequestTimeout:     60 * time.Second,
	}
}

// AccountFailure records one account whose fetch failed mid-flight.
type AccountFailure struct {
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name,omitempty"`
	Reason      string `json:"reason"`
}

// Result is a possibly-partial aggregation outcome. Incomplete is set when
// at least one account's fetch failed; already-fetched accounts are kept.
type Result struct {
	Transactions []ledger.Transaction `json:"transactions"`
	Failed       []AccountFailure     `json:"failed,omitempty"`
	Incomplete   bool                 `json:"incomplete"`
	Dropped      int                  `json:"dropped_records,omitempty"`
}

// Service runs the retrieval, normalization, categorization, conversion
// and persistence pipeline for one request.
type Service struct {
	config    Config
	provider  ProviderClient
	reader    *Reader
	store     TransactionStore
	converter Converter
	logger    *logger.Logger
}

// NewService creates an ingest service. Store and converter may be nil;
// persistence and conversion are then skipped.
func NewService(cfg Config, provider ProviderClient, store TransactionStore, converter Converter, log *logger.Logger) *Service {
	if cfg.ConcurrentAccounts <= 0 {
		cfg.ConcurrentAccounts = DefaultConfig().ConcurrentAccounts
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	return &Service{
		config:    cfg,
		provider:  provider,
		reader:    NewReader(provider, log),
		store:     store,
		converter: converter,
		logger:    log.WithField("component", "ingest"),
	}
}

// Accounts lists the owner's accounts from the provider.
func (s *Service) Accounts(ctx context.Context) ([]ledger.Account, error) {
	accounts, err := s.provider.ListAccounts(ctx)
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeProviderUnavailable, "failed to list accounts")
	}
	return accounts, nil
}

// Transactions fetches and normalizes payments for one account (accountID
// non-empty) or all accounts, limited to the last `days` days. Accounts
// run concurrently; a failing account yields a partial result rather than
// an error for the whole request.
func (s *Service) Transactions(ctx context.Context, accountID string, days int) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	log := s.logger.WithField("run_id", uuid.NewString())

	accounts, err := s.Accounts(ctx)
	if err != nil {
		return nil, err
	}

	own := ledger.NewOwnAccounts(accounts)

	targets := accounts
	if accountID != "" {
		targets = nil
		for _, a := range accounts {
			if a.ID == accountID {
				targets = []ledger.Account{a}
				break
			}
		}
		if targets == nil {
			return nil, apperrors.NotFound("account")
		}
	}

	var cutoff time.Time
	if days > 0 {
		cutoff = time.Now().UTC().AddDate(0, 0, -days)
	}

	var (
		mu     sync.Mutex
		result Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.ConcurrentAccounts)
	for _, account := range targets {
		g.Go(func() error {
			txs, dropped, err := s.fetchAccount(gctx, log, account, own, cutoff)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, AccountFailure{
					AccountID:   account.ID,
					AccountName: account.Description,
					Reason:      err.Error(),
				})
				return nil
			}
			result.Transactions = append(result.Transactions, txs...)
			result.Dropped += dropped
			return nil
		})
	}
	_ = g.Wait()

	result.Incomplete = len(result.Failed) > 0
	sort.Slice(result.Transactions, func(i, j int) bool {
		return result.Transactions[i].Date.After(result.Transactions[j].Date)
	})

	// Persistence is best-effort relative to serving the response.
	if s.store != nil && len(result.Transactions) > 0 {
		if err := s.store.UpsertTransactions(ctx, result.Transactions); err != nil {
			log.Warn("transaction cache write failed", "error", err, "count", len(result.Transactions))
		}
	}

	log.Info("transactions aggregated",
		"accounts", len(targets),
		"transactions", len(result.Transactions),
		"failed_accounts", len(result.Failed),
		"dropped_records", result.Dropped)

	return &result, nil
}

// Statistics aggregates income/expense/category statistics over a period.
func (s *Service) Statistics(ctx context.Context, days int) (*ledger.Statistics, *Result, error) {
	result, err := s.Transactions(ctx, "", days)
	if err != nil {
		return nil, nil, err
	}
	stats := ledger.ComputeStatistics(result.Transactions, days)
	return &stats, result, nil
}

// fetchAccount runs the single-account pipeline: paginate, normalize with
// per-record drops, flag internal transfers, categorize, convert.
func (s *Service) fetchAccount(ctx context.Context, log *logger.Logger, account ledger.Account, own ledger.OwnAccounts, cutoff time.Time) ([]ledger.Transaction, int, error) {
	raws, err := s.reader.FetchAll(ctx, account.ID, cutoff, OrderDescending)
	if err != nil {
		return nil, 0, err
	}

	txs := make([]ledger.Transaction, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		tx, err := ledger.Normalize(raw)
		if err != nil {
			// A record without a reliable date cannot be ordered or
			// filtered; dropping it is safer than defaulting.
			log.Warn("dropping malformed record", "account_id", account.ID, "error", err)
			dropped++
			continue
		}
		if !cutoff.IsZero() && tx.Date.Before(cutoff) {
			continue
		}

		tx.AccountID = account.ID
		tx.AccountName = account.Description
		tx.IsInternalTransfer = own.IsInternal(tx.CounterpartyIBAN)
		tx.Category = ledger.Categorize(tx.Description, tx.Counterparty, tx.IsInternalTransfer, tx.MerchantCode, tx.Amount)

		if s.converter != nil && tx.Currency != "" {
			conv := s.converter.Convert(ctx, tx.Amount, tx.Currency, tx.Date)
			if conv.Converted {
				tx.ConvertedAmount = conv.Value
				tx.FxRate = conv.Rate
			}
		}

		txs = append(txs, tx)
	}

	return txs, dropped, nil
}
