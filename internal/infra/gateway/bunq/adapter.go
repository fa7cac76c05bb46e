package bunq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/mkuiper/bankboard/internal/ledger"
	"github.com/mkuiper/bankboard/internal/platform/ingest"
	apperrors "github.com/mkuiper/bankboard/internal/shared/errors"
)

// paginationStrategy is one named way of expressing page parameters to the
// provider. Deployments differ in which parameter spelling they accept, so
// the adapter probes the ordered list below and memoizes the first spelling
// that works.
type paginationStrategy struct {
	name  string
	build func(ingest.PageParams) url.Values
}

var paginationStrategies = []paginationStrategy{
	{
		name: "older_id",
		build: func(p ingest.PageParams) url.Values {
			v := url.Values{}
			v.Set("count", strconv.Itoa(p.Count))
			if p.OlderThanID != nil {
				v.Set("older_id", strconv.FormatInt(*p.OlderThanID, 10))
			}
			return v
		},
	},
	{
		name: "olderThanId",
		build: func(p ingest.PageParams) url.Values {
			v := url.Values{}
			v.Set("count", strconv.Itoa(p.Count))
			if p.OlderThanID != nil {
				v.Set("olderThanId", strconv.FormatInt(*p.OlderThanID, 10))
			}
			return v
		},
	},
	{
		name:  "unpaginated",
		build: func(ingest.PageParams) url.Values { return nil },
	},
}

// Adapter exposes the bunq client as a ledger provider.
type Adapter struct {
	client *Client

	mu       sync.Mutex
	strategy int // index into paginationStrategies; -1 until probed
}

var _ ingest.ProviderClient = (*Adapter)(nil)

// NewAdapter wraps a bunq client.
func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client, strategy: -1}
}

// ListAccounts fetches the owner's monetary accounts.
func (a *Adapter) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	body, err := a.client.doRequest(ctx, http.MethodGet, a.client.baseURL+"/monetary-account", nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeProviderUnavailable, "failed to list accounts")
	}

	items, err := decodeEnvelope(body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeProviderUnavailable, "malformed account listing")
	}

	accounts := make([]ledger.Account, 0, len(items))
	for _, item := range items {
		for kind, raw := range item {
			var ma monetaryAccount
			if err := json.Unmarshal(raw, &ma); err != nil {
				continue
			}
			accounts = append(accounts, ma.toAccount(kind))
		}
	}
	return accounts, nil
}

// ListPayments fetches one page of payment records for an account. The
// pagination parameter spelling is probed on first use and reused afterwards;
// a spelling rejected with 400 advances the probe, transient failures do not.
func (a *Adapter) ListPayments(ctx context.Context, accountID string, page ingest.PageParams) ([]ledger.RawPayment, error) {
	reqURL := fmt.Sprintf("%s/monetary-account/%s/payment", a.client.baseURL, url.PathEscape(accountID))

	a.mu.Lock()
	chosen := a.strategy
	a.mu.Unlock()

	if chosen >= 0 {
		raws, err := a.fetchPage(ctx, reqURL, paginationStrategies[chosen], page)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeProviderUnavailable, "failed to list payments")
		}
		return raws, nil
	}

	for i, strat := range paginationStrategies {
		raws, err := a.fetchPage(ctx, reqURL, strat, page)
		if err == nil {
			a.mu.Lock()
			if a.strategy < 0 {
				a.strategy = i
			}
			a.mu.Unlock()
			a.client.logger.Debug("pagination strategy selected", "strategy", strat.name)
			return raws, nil
		}
		if IsStatus(err, http.StatusBadRequest) {
			a.client.logger.Warn("pagination strategy rejected", "strategy", strat.name)
			continue
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeProviderUnavailable, "failed to list payments")
	}

	return nil, apperrors.Configuration("provider rejected every known payment listing convention")
}

func (a *Adapter) fetchPage(ctx context.Context, reqURL string, strat paginationStrategy, page ingest.PageParams) ([]ledger.RawPayment, error) {
	body, err := a.client.doRequest(ctx, http.MethodGet, reqURL, strat.build(page))
	if err != nil {
		return nil, err
	}

	items, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	raws := make([]ledger.RawPayment, 0, len(items))
	for _, item := range items {
		for _, raw := range item {
			payment := ledger.RawPayment{}
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			if err := dec.Decode(&payment); err != nil {
				continue
			}
			raws = append(raws, payment)
		}
	}
	return raws, nil
}

// monetaryAccount is the subset of bunq's account payload the ledger needs.
type monetaryAccount struct {
	ID          json.Number `json:"id"`
	Description string      `json:"description"`
	Status      string      `json:"status"`
	Currency    string      `json:"currency"`
	Balance     struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"balance"`
	Alias []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
		Name  string `json:"name"`
	} `json:"alias"`
}

func (ma monetaryAccount) toAccount(kind string) ledger.Account {
	account := ledger.Account{
		ID:          ma.ID.String(),
		Description: ma.Description,
		Status:      ma.Status,
		Currency:    ma.Currency,
		Class:       classifyKind(kind),
	}
	if v, ok := ledger.ParseDecimal(ma.Balance.Value); ok {
		account.Balance = v
	}
	if account.Currency == "" {
		account.Currency = ma.Balance.Currency
	}
	for _, alias := range ma.Alias {
		if strings.EqualFold(alias.Type, "IBAN") {
			account.IBAN = alias.Value
			break
		}
	}
	return account
}

func classifyKind(kind string) ledger.AccountClass {
	switch {
	case strings.Contains(kind, "Savings"):
		return ledger.ClassSavings
	case strings.Contains(kind, "Investment"), strings.Contains(kind, "External"):
		return ledger.ClassInvestment
	default:
		return ledger.ClassChecking
	}
}
