package ledger

import "time"

// AccountClass is the coarse classification of a monetary account.
type AccountClass string

const (
	ClassChecking   AccountClass = "checking"
	ClassSavings    AccountClass = "savings"
	ClassInvestment AccountClass = "investment"
)

// Account is a read-only snapshot of a provider account, rebuilt per request.
type Account struct {
	ID          string       `json:"id"`
	Description string       `json:"description"`
	Balance     float64      `json:"balance"`
	Currency    string       `json:"currency"`
	IBAN        string       `json:"iban,omitempty"`
	Class       AccountClass `json:"class"`
	Status      string       `json:"status"`
}

// Category is the derived spending category of a transaction.
type Category string

const (
	CategoryGroceries        Category = "Groceries"
	CategoryDining           Category = "Dining"
	CategoryTransport        Category = "Transport"
	CategoryHousing          Category = "Housing"
	CategoryInsurance        Category = "Insurance"
	CategoryTaxes            Category = "Taxes"
	CategoryUtilities        Category = "Utilities"
	CategoryShopping         Category = "Shopping"
	CategoryEntertainment    Category = "Entertainment"
	CategoryHealthcare       Category = "Healthcare"
	CategorySalary           Category = "Salary"
	CategoryRefund           Category = "Refund"
	CategoryInterest         Category = "Interest"
	CategoryInternalTransfer Category = "Internal Transfer"
	CategoryOther            Category = "Other"
)

// Transaction is the normalized form of a provider payment record.
// Amount follows the ledger convention: positive is a credit to the account.
type Transaction struct {
	ID                 string    `json:"id"`
	AccountID          string    `json:"account_id"`
	AccountName        string    `json:"account_name,omitempty"`
	Date               time.Time `json:"date"`
	Amount             float64   `json:"amount"`
	Currency           string    `json:"currency"`
	Description        string    `json:"description"`
	Counterparty       string    `json:"counterparty"`
	CounterpartyIBAN   string    `json:"counterparty_iban,omitempty"`
	MerchantCode       string    `json:"merchant_code,omitempty"`
	Merchant           string    `json:"merchant,omitempty"`
	Category           Category  `json:"category"`
	IsInternalTransfer bool      `json:"is_internal_transfer"`

	// Reporting-currency view; nil when conversion was unavailable.
	ConvertedAmount *float64 `json:"converted_amount,omitempty"`
	FxRate          *float64 `json:"fx_rate,omitempty"`
}

// ReportingAmount returns the converted amount when available, otherwise
// the original signed amount.
func (t Transaction) ReportingAmount() float64 {
	if t.ConvertedAmount != nil {
		return *t.ConvertedAmount
	}
	return t.Amount
}
