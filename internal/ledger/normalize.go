package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// balanceTolerance is the largest debit/credit difference still considered balanced.
var balanceTolerance = decimal.NewFromFloat(0.01)

// Transactions flattens verifications into one RawTransaction per line.
func Transactions(vers []Verification) []RawTransaction {
	var txs []RawTransaction

	for _, v := range vers {
		for _, l := range v.Lines {
			date := v.Date
			if l.TransactionDate != "" {
				date = l.TransactionDate
			}

			account := l.AccountNumber

			txs = append(txs, RawTransaction{
				Date:           date,
				Amount:         l.Amount,
				Reference:      reference(v, l),
				AccountNumber:  &account,
				SeriesID:       v.Series,
				VerificationID: v.Number,
			})
		}
	}

	return txs
}

// reference joins the verification text with the line text when they differ,
// falling back to the verification label.
func reference(v Verification, l Line) string {
	switch {
	case v.Description == "" && l.Description == "":
		return v.Label()
	case l.Description == "" || l.Description == v.Description:
		return v.Description
	case v.Description == "":
		return l.Description
	}

	return v.Description + " - " + l.Description
}

// FilterBankAccounts keeps the transactions posted to a bank or cash account.
func FilterBankAccounts(txs []RawTransaction) []RawTransaction {
	out := make([]RawTransaction, 0, len(txs))

	for _, tx := range txs {
		if tx.AccountNumber != nil && IsBankAccount(*tx.AccountNumber) {
			out = append(out, tx)
		}
	}

	return out
}

// Unbalanced describes a verification whose debits and credits differ.
type Unbalanced struct {
	Series string
	Number string
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Difference is debit minus credit.
func (u Unbalanced) Difference() decimal.Decimal {
	return u.Debit.Sub(u.Credit)
}

// CheckBalance reports every verification whose summed debit and credit
// differ by more than 0.01. It does not modify its input.
func CheckBalance(vers []Verification) []Unbalanced {
	var out []Unbalanced

	for _, v := range vers {
		debit, credit := decimal.Zero, decimal.Zero

		for _, l := range v.Lines {
			d, c := Split(l.Amount)
			debit = debit.Add(d)
			credit = credit.Add(c)
		}

		if debit.Sub(credit).Abs().GreaterThan(balanceTolerance) {
			out = append(out, Unbalanced{Series: v.Series, Number: v.Number, Debit: debit, Credit: credit})
		}
	}

	return out
}

// Postings converts parsed verifications into postings. Opening balances,
// when given, become opening-tagged postings dated at the fiscal year start.
// names supplies account names where known.
func Postings(vers []Verification, opening []OpeningBalance, yearStart string, names map[int]string) []Posting {
	var out []Posting

	if len(opening) > 0 {
		date, _ := time.Parse(time.DateOnly, yearStart)

		for _, ib := range opening {
			debit, credit := Split(ib.Amount)
			out = append(out, Posting{
				Date:             date,
				EntryDescription: "Ingående balans",
				Opening:          true,
				AccountNumber:    ib.AccountNumber,
				AccountName:      names[ib.AccountNumber],
				Debit:            debit,
				Credit:           credit,
			})
		}
	}

	for _, v := range vers {
		entryDate, _ := time.Parse(time.DateOnly, v.Date)

		for _, l := range v.Lines {
			debit, credit := Split(l.Amount)
			out = append(out, Posting{
				Series:           v.Series,
				Number:           v.Number,
				Date:             entryDate,
				EntryDescription: v.Description,
				AccountNumber:    l.AccountNumber,
				AccountName:      names[l.AccountNumber],
				Description:      l.Description,
				Debit:            debit,
				Credit:           credit,
			})
		}
	}

	return out
}
