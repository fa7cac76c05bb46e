package ingest_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkuiper/bankboard/internal/ledger"
	"github.com/mkuiper/bankboard/internal/platform/fx"
	"github.com/mkuiper/bankboard/internal/platform/ingest"
	apperrors "github.com/mkuiper/bankboard/internal/shared/errors"
)

// accountProvider serves accounts plus one page of payments per account.
type accountProvider struct {
	mu          sync.Mutex
	accounts    []ledger.Account
	accountsErr error
	payments    map[string][]ledger.RawPayment
	failFor     map[string]error
}

func (p *accountProvider) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	if p.accountsErr != nil {
		return nil, p.accountsErr
	}
	return p.accounts, nil
}

func (p *accountProvider) ListPayments(_ context.Context, accountID string, _ ingest.PageParams) ([]ledger.RawPayment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failFor[accountID]; err != nil {
		return nil, err
	}
	page := p.payments[accountID]
	p.payments[accountID] = nil // subsequent pages are empty
	return page, nil
}

// captureStore records upserted transactions.
type captureStore struct {
	mu       sync.Mutex
	upserted [][]ledger.Transaction
	err      error
}

func (s *captureStore) UpsertTransactions(_ context.Context, txs []ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.upserted = append(s.upserted, txs)
	return nil
}

// identityConverter converts EUR 1:1 and reports everything else unknown.
type identityConverter struct{}

func (identityConverter) ReportingCurrency() string { return "EUR" }

func (identityConverter) Convert(_ context.Context, amount float64, currency string, _ time.Time) fx.Conversion {
	if currency != "EUR" {
		return fx.Conversion{}
	}
	one := 1.0
	v := amount
	return fx.Conversion{Value: &v, Rate: &one, Converted: true}
}

func rawFixture(id, created, value, desc, counterpartyName, counterpartyIBAN string) ledger.RawPayment {
	return ledger.RawPayment{
		"id_":         id,
		"created":     created,
		"amount":      map[string]any{"value": value, "currency": "EUR"},
		"description": desc,
		"counterparty_alias": map[string]any{
			"display_name": counterpartyName,
			"iban":         counterpartyIBAN,
		},
	}
}

func newIngest(provider ingest.ProviderClient, store ingest.TransactionStore) *ingest.Service {
	return ingest.NewService(ingest.DefaultConfig(), provider, store, identityConverter{}, testLog())
}

func TestService_EndToEndScenario(t *testing.T) {
	now := time.Now().UTC()
	day := func(offset int) string { return now.AddDate(0, 0, offset).Format(time.RFC3339) }

	provider := &accountProvider{
		accounts: []ledger.Account{
			{ID: "A1", Description: "Main", IBAN: "NL91ABNA0417164300", Currency: "EUR"},
		},
		payments: map[string][]ledger.RawPayment{
			"A1": {
				rawFixture("3", day(-1), "-12.50", "Albert Heijn", "Albert Heijn B.V.", ""),
				rawFixture("2", day(-40), "-900", "Huur Jan", "Jan de Verhuurder", ""),
				rawFixture("1", day(-41), "2500", "Salaris", "Werkgever B.V.", ""),
			},
		},
	}
	store := &captureStore{}

	result, err := newIngest(provider, store).Transactions(context.Background(), "", 30)
	require.NoError(t, err)

	require.Len(t, result.Transactions, 1)
	tx := result.Transactions[0]
	assert.Equal(t, "3", tx.ID)
	assert.Equal(t, "A1", tx.AccountID)
	assert.Equal(t, ledger.CategoryGroceries, tx.Category)
	assert.Equal(t, -12.5, tx.Amount)
	require.NotNil(t, tx.ConvertedAmount)
	assert.Equal(t, -12.5, *tx.ConvertedAmount)
	assert.False(t, result.Incomplete)

	// The surviving transaction is persisted, best-effort.
	require.Len(t, store.upserted, 1)
	assert.Len(t, store.upserted[0], 1)
}

func TestService_InternalTransferPrecedence(t *testing.T) {
	now := time.Now().UTC()
	savingsIBAN := "NL20INGB0001234567"

	raw := rawFixture("9", now.Format(time.RFC3339), "-250", "naar spaarrekening", "M Kuiper", savingsIBAN)
	raw["merchant_category_code"] = "5411" // would otherwise be Groceries

	provider := &accountProvider{
		accounts: []ledger.Account{
			{ID: "A1", Description: "Main", IBAN: "NL91ABNA0417164300"},
			{ID: "A2", Description: "Savings", IBAN: savingsIBAN},
		},
		payments: map[string][]ledger.RawPayment{"A1": {raw}},
	}

	result, err := newIngest(provider, nil).Transactions(context.Background(), "A1", 90)
	require.NoError(t, err)

	require.Len(t, result.Transactions, 1)
	assert.True(t, result.Transactions[0].IsInternalTransfer)
	assert.Equal(t, ledger.CategoryInternalTransfer, result.Transactions[0].Category)
}

func TestService_PartialFailureAcrossAccounts(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC3339)
	provider := &accountProvider{
		accounts: []ledger.Account{
			{ID: "A1", Description: "Main", IBAN: "NL91ABNA0417164300"},
			{ID: "A2", Description: "Broken", IBAN: "NL20INGB0001234567"},
		},
		payments: map[string][]ledger.RawPayment{
			"A1": {rawFixture("1", now, "-10", "coffee", "Cafe", "")},
		},
		failFor: map[string]error{"A2": errors.New("503 from provider")},
	}

	result, err := newIngest(provider, nil).Transactions(context.Background(), "", 30)
	require.NoError(t, err)

	assert.True(t, result.Incomplete)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "A2", result.Failed[0].AccountID)
	assert.Len(t, result.Transactions, 1)
}

func TestService_DropsRecordsWithoutTimestamp(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC3339)
	bad := rawFixture("2", "", "-5", "broken", "", "")

	provider := &accountProvider{
		accounts: []ledger.Account{{ID: "A1", Description: "Main"}},
		payments: map[string][]ledger.RawPayment{
			"A1": {rawFixture("1", now, "-10", "coffee", "Cafe", ""), bad},
		},
	}

	result, err := newIngest(provider, nil).Transactions(context.Background(), "", 30)
	require.NoError(t, err)

	assert.Len(t, result.Transactions, 1)
	assert.Equal(t, 1, result.Dropped)
	assert.False(t, result.Incomplete)
}

func TestService_StoreFailureDoesNotFailRequest(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC3339)
	provider := &accountProvider{
		accounts: []ledger.Account{{ID: "A1", Description: "Main"}},
		payments: map[string][]ledger.RawPayment{
			"A1": {rawFixture("1", now, "-10", "coffee", "Cafe", "")},
		},
	}
	store := &captureStore{err: errors.New("disk full")}

	result, err := newIngest(provider, store).Transactions(context.Background(), "", 30)
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 1)
}

func TestService_UnknownAccountID(t *testing.T) {
	provider := &accountProvider{
		accounts: []ledger.Account{{ID: "A1"}},
		payments: map[string][]ledger.RawPayment{},
	}

	_, err := newIngest(provider, nil).Transactions(context.Background(), "nope", 30)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestService_ProviderDownOnAccountListing(t *testing.T) {
	provider := &accountProvider{accountsErr: errors.New("connection refused")}

	_, err := newIngest(provider, nil).Transactions(context.Background(), "", 30)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeProviderUnavailable))
}

func TestService_Statistics(t *testing.T) {
	now := time.Now().UTC()
	day := func(offset int) string { return now.AddDate(0, 0, offset).Format(time.RFC3339) }

	provider := &accountProvider{
		accounts: []ledger.Account{{ID: "A1", Description: "Main"}},
		payments: map[string][]ledger.RawPayment{
			"A1": {
				rawFixture("3", day(-1), "-50", "boodschappen", "Albert Heijn", ""),
				rawFixture("2", day(-2), "-950", "Huur maart", "Verhuurder B.V.", ""),
				rawFixture("1", day(-3), "2500", "Salaris", "Werkgever B.V.", ""),
			},
		},
	}

	stats, result, err := newIngest(provider, nil).Statistics(context.Background(), 30)
	require.NoError(t, err)
	require.NotNil(t, stats)

	assert.Equal(t, 2500.0, stats.Income)
	assert.Equal(t, 1000.0, stats.Expenses)
	assert.Equal(t, 1500.0, stats.NetSavings)
	assert.InDelta(t, 60.0, stats.SavingsRate, 0.001)
	assert.Equal(t, 50.0, stats.Categories[ledger.CategoryGroceries])
	assert.Equal(t, 950.0, stats.Categories[ledger.CategoryHousing])
	assert.False(t, result.Incomplete)
}
