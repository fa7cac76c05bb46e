package handler

import (
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/mkuiper/bankboard/internal/ledger"
)

var demoMerchants = map[ledger.Category][]string{
	ledger.CategoryGroceries:     {"Albert Heijn", "Jumbo", "Lidl"},
	ledger.CategoryDining:        {"Starbucks", "Restaurant Plaza"},
	ledger.CategoryTransport:     {"NS", "Shell"},
	ledger.CategoryHousing:       {"Verhuurder B.V."},
	ledger.CategoryShopping:      {"Bol.com", "Coolblue"},
	ledger.CategoryEntertainment: {"Netflix", "Spotify"},
}

var demoCategories = []ledger.Category{
	ledger.CategoryGroceries,
	ledger.CategoryDining,
	ledger.CategoryTransport,
	ledger.CategoryHousing,
	ledger.CategoryShopping,
	ledger.CategoryEntertainment,
}

// GetDemoData handles GET /api/v1/demo-data
// Returns generated transactions for frontend work without a live provider.
func GetDemoData(w http.ResponseWriter, r *http.Request) {
	days := defaultPeriodDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			days = parsed
		}
	}

	now := time.Now().UTC()
	rng := rand.New(rand.NewSource(now.UnixNano()))

	txs := make([]ledger.Transaction, 0, days*3+days/30)
	for i := 0; i < days*3; i++ {
		category := demoCategories[rng.Intn(len(demoCategories))]
		merchants := demoMerchants[category]
		merchant := merchants[rng.Intn(len(merchants))]

		amount := -float64(10 + rng.Intn(91))
		if category == ledger.CategoryHousing {
			amount = -850
		}

		txs = append(txs, ledger.Transaction{
			ID:           strconv.Itoa(i),
			Date:         now.AddDate(0, 0, -rng.Intn(days)),
			Amount:       amount,
			Currency:     "EUR",
			Description:  fmt.Sprintf("%s - %s", category, merchant),
			Counterparty: merchant,
			Merchant:     merchant,
			Category:     category,
		})
	}

	// Monthly salary
	for i := 0; i < days/30; i++ {
		txs = append(txs, ledger.Transaction{
			ID:           strconv.Itoa(len(txs)),
			Date:         now.AddDate(0, 0, -i*30),
			Amount:       2800,
			Currency:     "EUR",
			Description:  "Salary",
			Counterparty: "Werkgever B.V.",
			Merchant:     "Werkgever B.V.",
			Category:     ledger.CategorySalary,
		})
	}

	respondList(w, txs, len(txs))
}
