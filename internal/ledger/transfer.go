package ledger

import (
	"strings"
	"unicode"
)

// NormalizeIBAN canonicalizes a settlement identifier for comparison:
// whitespace stripped, uppercased. It validates the minimal structural
// shape (length >= 15, two letters followed by two digits); anything else
// is rejected so malformed identifiers never match an owner account.
func NormalizeIBAN(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	iban := b.String()
	if len(iban) < 15 {
		return "", false
	}
	if !unicode.IsUpper(rune(iban[0])) || !unicode.IsUpper(rune(iban[1])) {
		return "", false
	}
	if !unicode.IsDigit(rune(iban[2])) || !unicode.IsDigit(rune(iban[3])) {
		return "", false
	}
	for _, r := range iban[4:] {
		if !unicode.IsUpper(r) && !unicode.IsDigit(r) {
			return "", false
		}
	}
	return iban, true
}

// OwnAccounts is the set of the owner's own settlement identifiers,
// collected once per request from all of the owner's accounts.
type OwnAccounts map[string]struct{}

// NewOwnAccounts builds the owner set from account IBANs. Malformed
// identifiers are skipped.
func NewOwnAccounts(accounts []Account) OwnAccounts {
	set := make(OwnAccounts, len(accounts))
	for _, a := range accounts {
		if iban, ok := NormalizeIBAN(a.IBAN); ok {
			set[iban] = struct{}{}
		}
	}
	return set
}

// IsInternal reports whether a counterparty settlement identifier belongs
// to the owner. Only IBAN-type identifiers are matched; other identifier
// shapes (phone, email aliases) are not treated as interchangeable.
func (o OwnAccounts) IsInternal(counterpartyIBAN string) bool {
	iban, ok := NormalizeIBAN(counterpartyIBAN)
	if !ok {
		return false
	}
	_, found := o[iban]
	return found
}
