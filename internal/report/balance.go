// Package report derives account balances, grouped reports and the NE-bilaga
// from ledger postings. All amounts are in öre.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/kassabok/internal/ledger"
)

// AccountBalance is the summed debit and credit of one account in öre.
// Balance is Debit-Credit for accounts 1000-1999 and 4000-8999 and
// Credit-Debit for 2000-3999.
type AccountBalance struct {
	AccountNumber int
	AccountName   string
	Debit         int64
	Credit        int64
	Balance       int64
}

// creditNormal reports whether the account is of a liability, equity or
// revenue class.
func creditNormal(account int) bool {
	return account >= 2000 && account <= 3999
}

func (b *AccountBalance) settle() {
	if creditNormal(b.AccountNumber) {
		b.Balance = b.Credit - b.Debit
	} else {
		b.Balance = b.Debit - b.Credit
	}
}

// signed is the account's contribution to a field of kind k.
func (b AccountBalance) signed(k Kind) int64 {
	if k.debitSide() {
		return b.Debit - b.Credit
	}

	return b.Credit - b.Debit
}

// ToOre converts an amount in kronor to öre, rounding half away from zero.
func ToOre(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// AggregateBalances groups postings by account, sorted by account number.
func AggregateBalances(postings []ledger.Posting) []AccountBalance {
	byAccount := make(map[int]*AccountBalance)

	for _, p := range postings {
		b, ok := byAccount[p.AccountNumber]
		if !ok {
			b = &AccountBalance{AccountNumber: p.AccountNumber}
			byAccount[p.AccountNumber] = b
		}

		if b.AccountName == "" {
			b.AccountName = p.AccountName
		}

		b.Debit += ToOre(p.Debit)
		b.Credit += ToOre(p.Credit)
	}

	return collect(byAccount)
}

// MergeBalances sums balances computed over disjoint sets of postings.
func MergeBalances(parts ...[]AccountBalance) []AccountBalance {
	byAccount := make(map[int]*AccountBalance)

	for _, part := range parts {
		for _, pb := range part {
			b, ok := byAccount[pb.AccountNumber]
			if !ok {
				b = &AccountBalance{AccountNumber: pb.AccountNumber}
				byAccount[pb.AccountNumber] = b
			}

			if b.AccountName == "" {
				b.AccountName = pb.AccountName
			}

			b.Debit += pb.Debit
			b.Credit += pb.Credit
		}
	}

	return collect(byAccount)
}

func collect(byAccount map[int]*AccountBalance) []AccountBalance {
	out := make([]AccountBalance, 0, len(byAccount))

	for _, b := range byAccount {
		b.settle()
		out = append(out, *b)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].AccountNumber < out[j].AccountNumber })

	return out
}

// sumField sums the contributions of the balances matched by m.
func sumField(balances []AccountBalance, m FieldMapping) (int64, []int) {
	var (
		total    int64
		accounts []int
	)

	for _, b := range balances {
		if m.Matches(b.AccountNumber) {
			total += b.signed(m.Kind)
			accounts = append(accounts, b.AccountNumber)
		}
	}

	return total, accounts
}
