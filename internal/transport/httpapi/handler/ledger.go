package handler

import (
	"net/http"
	"strconv"

	"github.com/mkuiper/bankboard/internal/platform/ingest"
	apperrors "github.com/mkuiper/bankboard/internal/shared/errors"
	"github.com/mkuiper/bankboard/pkg/logger"
)

const defaultPeriodDays = 90

// LedgerHandler serves account, transaction and statistics requests backed
// by the ingest pipeline.
type LedgerHandler struct {
	service *ingest.Service
	logger  *logger.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(service *ingest.Service, log *logger.Logger) *LedgerHandler {
	return &LedgerHandler{
		service: service,
		logger:  log.WithField("handler", "ledger"),
	}
}

// parseDays reads the `days` query parameter, defaulting to 90.
func parseDays(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return defaultPeriodDays, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return 0, apperrors.BadRequest("days must be a positive integer")
	}
	return days, nil
}

// GetAccounts handles GET /api/v1/accounts
func (h *LedgerHandler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.Accounts(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondList(w, accounts, len(accounts))
}

// GetTransactions handles GET /api/v1/transactions?account_id=&days=
func (h *LedgerHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r)
	if err != nil {
		respondError(w, err)
		return
	}
	accountID := r.URL.Query().Get("account_id")

	result, err := h.service.Transactions(r.Context(), accountID, days)
	if err != nil {
		respondError(w, err)
		return
	}

	count := len(result.Transactions)
	resp := envelope{
		Success:    true,
		Data:       result.Transactions,
		Count:      &count,
		Incomplete: result.Incomplete,
	}
	if result.Incomplete {
		resp.Failed = result.Failed
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetStatistics handles GET /api/v1/statistics?days=
func (h *LedgerHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r)
	if err != nil {
		respondError(w, err)
		return
	}

	stats, result, err := h.service.Statistics(r.Context(), days)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := envelope{
		Success:    true,
		Data:       stats,
		Incomplete: result.Incomplete,
	}
	if result.Incomplete {
		resp.Failed = result.Failed
	}
	respondJSON(w, http.StatusOK, resp)
}
