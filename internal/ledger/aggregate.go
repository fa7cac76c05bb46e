package ledger

// Statistics summarizes a normalized transaction set over a period.
type Statistics struct {
	PeriodDays        int                  `json:"period_days"`
	TotalTransactions int                  `json:"total_transactions"`
	Income            float64              `json:"income"`
	Expenses          float64              `json:"expenses"`
	NetSavings        float64              `json:"net_savings"`
	SavingsRate       float64              `json:"savings_rate"`
	Categories        map[Category]float64 `json:"categories"`
	AvgDailyExpenses  float64              `json:"avg_daily_expenses"`
}

// ComputeStatistics aggregates income, expenses, net savings, savings rate
// and per-category expense totals. Savings rate is 0 when there is no
// income; the category breakdown only counts negative (debit) amounts.
func ComputeStatistics(txs []Transaction, periodDays int) Statistics {
	stats := Statistics{
		PeriodDays:        periodDays,
		TotalTransactions: len(txs),
		Categories:        make(map[Category]float64),
	}

	for _, t := range txs {
		amount := t.ReportingAmount()
		if amount > 0 {
			stats.Income += amount
		} else if amount < 0 {
			stats.Expenses += -amount
			stats.Categories[t.Category] += -amount
		}
	}

	stats.NetSavings = stats.Income - stats.Expenses
	if stats.Income > 0 {
		stats.SavingsRate = stats.NetSavings / stats.Income * 100
	}
	if periodDays > 0 {
		stats.AvgDailyExpenses = stats.Expenses / float64(periodDays)
	}

	return stats
}
