package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bank and cash accounts in the BAS chart of accounts.
const (
	BankAccountStart = 1900
	BankAccountEnd   = 1999
)

// AccountType is the closed taxonomy every account is mapped into.
type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
	AccountEquity    AccountType = "equity"
	AccountCost      AccountType = "cost"
	AccountIncome    AccountType = "income"
)

// ParseAccountType maps s case-insensitively. Unrecognised values default to
// AccountAsset so that every account has a type.
func ParseAccountType(s string) AccountType {
	switch t := AccountType(strings.ToLower(strings.TrimSpace(s))); t {
	case AccountAsset, AccountLiability, AccountEquity, AccountCost, AccountIncome:
		return t
	}

	return AccountAsset
}

// Account is an entry of a file's chart of accounts.
type Account struct {
	Number int
	Name   string
	Type   AccountType
}

// Verification is a journal entry: a dated, described group of postings.
type Verification struct {
	Series           string
	Number           string
	Date             string // YYYY-MM-DD
	Description      string
	RegistrationDate string // YYYY-MM-DD, optional
	Signer           string
	Lines            []Line // source order
}

// Label is the synthetic "<series><number>" identifier of a verification.
func (v Verification) Label() string {
	return v.Series + v.Number
}

// Line is one posting inside a verification. Amount is signed: positive is
// debit, negative is credit.
type Line struct {
	AccountNumber   int
	Objects         []string
	Amount          decimal.Decimal
	TransactionDate string // YYYY-MM-DD, optional
	Description     string
	Quantity        *decimal.Decimal
}

// OpeningBalance is a carried-forward account balance for the current year.
type OpeningBalance struct {
	AccountNumber int
	Amount        decimal.Decimal
}

// RawTransaction is the canonical imported transaction consumed by dedup.
type RawTransaction struct {
	Date           string
	Amount         decimal.Decimal
	Reference      string
	AccountNumber  *int
	SeriesID       string
	VerificationID string
}

// Posting is a ledger line joined with its owning journal entry, as stored by
// the bookkeeping application or derived from a parsed file.
type Posting struct {
	EntryID          uuid.UUID
	Series           string
	Number           string
	Date             time.Time
	EntryDescription string
	Opening          bool // entry is an opening-balance posting

	AccountNumber int
	AccountName   string
	Description   string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
}

// Split turns a signed amount into a debit/credit pair: non-negative amounts
// are debits, negative amounts are credits of the same magnitude.
func Split(amount decimal.Decimal) (debit, credit decimal.Decimal) {
	if amount.IsNegative() {
		return decimal.Zero, amount.Neg()
	}

	return amount, decimal.Zero
}

// IsBankAccount reports whether n is in the cash/bank window.
func IsBankAccount(n int) bool {
	return n >= BankAccountStart && n <= BankAccountEnd
}

// TypeForNumber classifies an account by its BAS number class, for formats
// that do not carry account types.
func TypeForNumber(n int) AccountType {
	switch {
	case n >= 1000 && n <= 1999:
		return AccountAsset
	case n >= 2000 && n <= 2099:
		return AccountEquity
	case n >= 2100 && n <= 2999:
		return AccountLiability
	case n >= 3000 && n <= 3999:
		return AccountIncome
	case n >= 4000 && n <= 8999:
		return AccountCost
	}

	return AccountAsset
}
