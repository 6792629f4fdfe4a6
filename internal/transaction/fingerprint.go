package transaction

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Fingerprint hashes the normalised date, amount and reference of a
// transaction. The date is only trimmed; callers pass it through
// NormalizeDate first. Amounts are rounded to two decimals and the reference
// is lowercased with whitespace runs collapsed.
func Fingerprint(date string, amount decimal.Decimal, reference string) string {
	key := strings.TrimSpace(date) + "|" +
		amount.StringFixedBank(2) + "|" +
		strings.ToLower(strings.Join(strings.Fields(reference), " "))

	sum := sha256.Sum256([]byte(key))

	return hex.EncodeToString(sum[:])
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.DateTime,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.RFC1123Z,
	time.RFC1123,
	"2006/01/02",
}

// NormalizeDate returns s as YYYY-MM-DD. It accepts YYYY-MM-DD, YYYYMMDD and
// common date-time forms; ok is false for anything else.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)

	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.Format(time.DateOnly), true
	}

	if len(s) == 8 {
		if t, err := time.Parse("20060102", s); err == nil {
			return t.Format(time.DateOnly), true
		}
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly), true
		}
	}

	return "", false
}
