package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ErrNoTimestamp is returned when a record carries no parseable creation
// timestamp. Such records cannot be ordered or cutoff-filtered, so callers
// drop them instead of guessing a date.
var ErrNoTimestamp = errors.New("record has no parseable timestamp")

// RawPayment is a generic key-value view of a provider payment record.
// Providers return differently-shaped objects across API versions; the
// normalizer reads each logical field through an ordered fallback key list.
type RawPayment map[string]any

// timestamp layouts accepted by the normalizer, tried in order.
// Values without an offset are interpreted as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize converts a raw provider record into a Transaction. It never
// fails on missing optional fields; the only error is ErrNoTimestamp.
// Category and the internal-transfer flag are left for the caller to derive.
func Normalize(raw RawPayment) (Transaction, error) {
	created, ok := parseTime(stringField(raw, "created", "created_at", "date"))
	if !ok {
		return Transaction{}, fmt.Errorf("%w: id=%s", ErrNoTimestamp, stringField(raw, "id_", "id"))
	}

	value, currency := amountField(raw)
	counterparty, counterpartyIBAN := counterpartyField(raw)
	description := stringField(raw, "description")
	merchantRef := stringField(raw, "merchant_reference")

	tx := Transaction{
		ID:               stringField(raw, "id_", "id"),
		Date:             created.UTC(),
		Amount:           value,
		Currency:         currency,
		Description:      description,
		Counterparty:     counterparty,
		CounterpartyIBAN: counterpartyIBAN,
		MerchantCode:     stringField(raw, "merchant_category_code", "mcc"),
		Merchant:         merchantLabel(counterparty, description, merchantRef),
	}
	return tx, nil
}

// ID returns the record identifier rendered as a string.
func (r RawPayment) ID() string {
	return stringField(r, "id_", "id")
}

// NumericID extracts the numeric transaction id used as a pagination cursor.
// Returns false when the id is absent or non-numeric.
func (r RawPayment) NumericID() (int64, bool) {
	s := stringField(r, "id_", "id")
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CreatedAt extracts the creation timestamp without full normalization.
func (r RawPayment) CreatedAt() (time.Time, bool) {
	return parseTime(stringField(r, "created", "created_at", "date"))
}

// stringField returns the first present, non-empty key rendered as a string.
func stringField(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case json.Number:
			return t.String()
		case float64:
			// round-trip integral ids without a decimal point
			if t == float64(int64(t)) {
				return strconv.FormatInt(int64(t), 10)
			}
			return strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			return strconv.Itoa(t)
		case int64:
			return strconv.FormatInt(t, 10)
		}
	}
	return ""
}

// amountField reads the nested amount object {value|amount, currency|currency_code}.
func amountField(raw map[string]any) (float64, string) {
	obj, ok := raw["amount"].(map[string]any)
	if !ok {
		return 0, ""
	}
	value, _ := ParseDecimal(stringField(obj, "value", "amount"))
	return value, strings.ToUpper(stringField(obj, "currency", "currency_code"))
}

// counterpartyField reads the counterparty alias object.
func counterpartyField(raw map[string]any) (name, iban string) {
	obj, ok := raw["counterparty_alias"].(map[string]any)
	if !ok {
		return "", ""
	}
	name = stringField(obj, "display_name", "name")
	iban = stringField(obj, "iban", "value")
	return name, iban
}

// ParseDecimal parses a decimal string, tolerating a comma decimal
// separator as a regional fallback ("12,50" -> 12.5).
func ParseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err == nil {
		return f, true
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		f, err = strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

// parseTime parses a provider timestamp. A trailing Z is an explicit UTC
// offset; layouts without offset information are read as UTC.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// merchantLabel picks a human-readable merchant label, preferring the
// counterparty display name, then the description, then the merchant
// reference. Candidates that look like opaque machine tokens are skipped.
func merchantLabel(counterparty, description, merchantRef string) string {
	for _, candidate := range []string{counterparty, description, merchantRef} {
		c := strings.TrimSpace(candidate)
		if c != "" && !isOpaqueToken(c) {
			return c
		}
	}
	return "unknown"
}

// isOpaqueToken reports whether a label candidate is a machine identifier
// rather than a displayable name: IBAN-shaped, or a long run of uppercase
// alphanumerics and punctuation with no spaces.
func isOpaqueToken(s string) bool {
	if _, ok := NormalizeIBAN(s); ok {
		return true
	}
	if len(s) < 12 || strings.ContainsRune(s, ' ') {
		return false
	}
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if !unicode.IsUpper(r) && !unicode.IsDigit(r) && !unicode.IsPunct(r) && r != '-' {
			return false
		}
	}
	return true
}
