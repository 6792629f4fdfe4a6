package report

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/MrJamesThe3rd/kassabok/internal/ledger"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnknownField = errors.New("unknown field")
)

// Drilldown lists what makes up a range-derived field or an NE total.
type Drilldown struct {
	Field  string
	Label  string
	Kind   Kind
	Ranges []Range
	// Value is OpeningBalance plus the signed sum of Lines. For an NE total
	// it is the derived total over the same accounts.
	Value int64
	// OpeningBalance is the signed sum of opening-balance postings in the ranges.
	OpeningBalance int64
	Accounts       []AccountBalance
	// Lines are the contributing postings, opening balances excluded.
	Lines []ledger.Posting
}

// neTotals are the computed NE fields whose inputs all come from account
// ranges. Manual adjustments enter from R17 on, so later fields have none.
var neTotals = map[string]struct {
	kind   Kind
	inputs []string
}{
	FieldTotalRevenue:  {KindRevenue, []string{"R1", "R2", "R3", "R4", FieldFinancialResidual}},
	FieldTotalExpenses: {KindExpense, []string{"R5", "R6", "R7", "R8", "R9", "R10", FieldFinancialResidual}},
	FieldBookedResult:  {KindRevenue, []string{"R1", "R2", "R3", "R4", "R5", "R6", "R7", "R8", "R9", "R10", FieldFinancialResidual}},
}

// ResolveField finds the mapping of an NE field or a grouped report field.
// An NE total resolves to the union of its inputs' ranges.
func ResolveField(field string, tables *Tables) (FieldMapping, error) {
	if m, ok := neMapping(field); ok {
		return m, nil
	}

	if t, ok := neTotals[field]; ok {
		var ranges []Range

		for _, in := range t.inputs {
			m, _ := neMapping(in)
			ranges = append(ranges, m.Ranges...)
		}

		return FieldMapping{Field: field, Label: labels[field], Kind: t.kind, Ranges: mergeRanges(ranges)}, nil
	}

	if tables != nil {
		if m, ok := tables.Lookup(field); ok {
			return m, nil
		}
	}

	return FieldMapping{}, fmt.Errorf("%w: %s is not derived from account ranges", ErrUnknownField, field)
}

// Explain projects postings onto a single field without deriving anything new.
func Explain(field string, postings []ledger.Posting, tables *Tables) (*Drilldown, error) {
	m, err := ResolveField(field, tables)
	if err != nil {
		return nil, err
	}

	d := &Drilldown{Field: m.Field, Label: m.Label, Kind: m.Kind, Ranges: m.Ranges}

	var (
		matched []ledger.Posting
		opening []ledger.Posting
	)

	for _, p := range postings {
		if !m.Matches(p.AccountNumber) {
			continue
		}

		matched = append(matched, p)

		if p.Opening {
			opening = append(opening, p)
		} else {
			d.Lines = append(d.Lines, p)
		}
	}

	d.Accounts = AggregateBalances(matched)
	d.Value = fieldValue(m, d.Accounts)
	d.OpeningBalance = fieldValue(m, AggregateBalances(opening))

	return d, nil
}

// fieldValue evaluates m over balances. NE totals go through the derivation
// so the financial residual lands on the same side it does there.
func fieldValue(m FieldMapping, balances []AccountBalance) int64 {
	if _, ok := neTotals[m.Field]; ok {
		return DeriveNE(balances, nil).Value(m.Field)
	}

	v, _ := sumField(balances, m)

	return v
}

// mergeRanges sorts ranges and joins the ones that overlap or touch.
func mergeRanges(ranges []Range) []Range {
	slices.SortFunc(ranges, func(a, b Range) int { return cmp.Compare(a.Start, b.Start) })

	var out []Range

	for _, r := range ranges {
		if n := len(out); n > 0 && r.Start <= out[n-1].End+1 {
			out[n-1].End = max(out[n-1].End, r.End)
			continue
		}

		out = append(out, r)
	}

	return out
}
