package ledger

import "strings"

// mccCategories maps merchant category codes to spending categories.
// Code-based signals are checked before any free-text heuristic because
// they come from the card network rather than user-editable fields.
var mccCategories = map[string]Category{
	// grocery stores and supermarkets
	"5411": CategoryGroceries, "5422": CategoryGroceries, "5451": CategoryGroceries,
	"5462": CategoryGroceries, "5499": CategoryGroceries,
	// eating and drinking places
	"5811": CategoryDining, "5812": CategoryDining, "5813": CategoryDining, "5814": CategoryDining,
	// passenger transport, fuel, parking
	"4111": CategoryTransport, "4121": CategoryTransport, "4131": CategoryTransport,
	"4789": CategoryTransport, "5541": CategoryTransport, "5542": CategoryTransport,
	"7523": CategoryTransport,
	// utilities and telecom
	"4814": CategoryUtilities, "4899": CategoryUtilities, "4900": CategoryUtilities,
	// insurance
	"5960": CategoryInsurance, "6300": CategoryInsurance,
	// government services and tax payments
	"9211": CategoryTaxes, "9222": CategoryTaxes, "9311": CategoryTaxes, "9399": CategoryTaxes,
	// health
	"5912": CategoryHealthcare, "8011": CategoryHealthcare, "8021": CategoryHealthcare,
	"8041": CategoryHealthcare, "8062": CategoryHealthcare, "8099": CategoryHealthcare,
	// entertainment
	"5815": CategoryEntertainment, "5816": CategoryEntertainment, "7832": CategoryEntertainment,
	"7922": CategoryEntertainment, "7929": CategoryEntertainment, "7941": CategoryEntertainment,
	"7991": CategoryEntertainment, "7996": CategoryEntertainment, "7999": CategoryEntertainment,
	// general retail
	"5200": CategoryShopping, "5300": CategoryShopping, "5310": CategoryShopping,
	"5311": CategoryShopping, "5331": CategoryShopping, "5399": CategoryShopping,
	"5651": CategoryShopping, "5691": CategoryShopping, "5732": CategoryShopping,
	"5942": CategoryShopping, "5945": CategoryShopping, "5964": CategoryShopping,
	"5999": CategoryShopping,
}

// creditKeywords are checked only for positive (credit) amounts, in order,
// so a refund is never miscategorized as the expense it reverses.
var creditKeywords = []struct {
	category Category
	words    []string
}{
	{CategoryRefund, []string{"refund", "terugbetaling", "retour", "chargeback", "teruggave"}},
	{CategoryInterest, []string{"interest", "rente"}},
	{CategorySalary, []string{"salaris", "salary", "loon", "wage", "payroll"}},
}

// expenseKeywords are matched against the lower-cased description plus
// counterparty name. Order matches the MCC table's category priority.
var expenseKeywords = []struct {
	category Category
	words    []string
}{
	{CategoryGroceries, []string{"albert heijn", "ah ", "jumbo", "lidl", "aldi", "plus ", "supermarkt", "spar", "dirk"}},
	{CategoryDining, []string{"restaurant", "cafe", "bar ", "pizza", "burger", "starbucks", "mcdonald", "thuisbezorgd", "deliveroo"}},
	{CategoryTransport, []string{"ns ", "train", "bus", "taxi", "uber", "parking", "shell", "benzine", "esso", "bp ", "ov-chipkaart"}},
	{CategoryHousing, []string{"huur", "rent", "hypotheek", "mortgage", "vve"}},
	{CategoryInsurance, []string{"verzekering", "insurance", "premie", "polis"}},
	{CategoryTaxes, []string{"belasting", "tax", "gemeente", "waterschap", "rdw"}},
	{CategoryUtilities, []string{"eneco", "vattenfall", "energie", "gas", "water", "ziggo", "kpn", "telecom", "odido"}},
	{CategoryShopping, []string{"bol.com", "coolblue", "mediamarkt", "zara", "h&m", "shop", "amazon", "action", "hema", "ikea"}},
	{CategoryEntertainment, []string{"netflix", "spotify", "youtube", "cinema", "pathe", "concert", "steam", "disney"}},
	{CategoryHealthcare, []string{"apotheek", "pharmacy", "dokter", "doctor", "tandarts", "dentist", "ziekenhuis", "huisarts"}},
	{CategorySalary, []string{"salaris", "salary", "loon", "wage"}},
}

// Categorize assigns a spending category. Priority: internal-transfer flag,
// merchant category code, credit-side keywords, expense keywords, Other.
func Categorize(description, counterparty string, internal bool, merchantCode string, amount float64) Category {
	if internal {
		return CategoryInternalTransfer
	}

	if merchantCode != "" {
		if cat, ok := mccCategories[merchantCode]; ok {
			return cat
		}
	}

	combined := strings.ToLower(description) + " " + strings.ToLower(counterparty)

	if amount > 0 {
		for _, group := range creditKeywords {
			if containsAny(combined, group.words) {
				return group.category
			}
		}
	}

	for _, group := range expenseKeywords {
		if containsAny(combined, group.words) {
			return group.category
		}
	}

	return CategoryOther
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
