package report

// GroupValue is the value of one range-mapped field.
type GroupValue struct {
	Field    string `json:"field"`
	Label    string `json:"label"`
	Value    int64  `json:"value"`
	Accounts []int  `json:"accounts,omitempty"`
}

// Group evaluates every mapping against balances. Mappings may overlap; each
// sums its own matching accounts. Fields without accounts are zero.
func Group(balances []AccountBalance, mappings []FieldMapping) []GroupValue {
	out := make([]GroupValue, 0, len(mappings))

	for _, m := range mappings {
		value, accounts := sumField(balances, m)
		out = append(out, GroupValue{Field: m.Field, Label: m.Label, Value: value, Accounts: accounts})
	}

	return out
}

// Momsdeklaration boxes used by the derived payable box.
const (
	VATOutput25   = "10"
	VATOutput12   = "11"
	VATOutput6    = "12"
	VATInput      = "48"
	VATPayable    = "49"
	vatPayableLbl = "Moms att betala eller få tillbaka"
)

// VATReport derives the momsdeklaration boxes. Box 49 is output VAT minus
// input VAT; negative means a refund.
func VATReport(balances []AccountBalance, mappings []FieldMapping) []GroupValue {
	fields := Group(balances, mappings)

	byField := make(map[string]int64, len(fields))
	for _, f := range fields {
		byField[f.Field] = f.Value
	}

	payable := byField[VATOutput25] + byField[VATOutput12] + byField[VATOutput6] - byField[VATInput]

	return append(fields, GroupValue{Field: VATPayable, Label: vatPayableLbl, Value: payable})
}

// Net result row appended to the income statement.
const (
	NetResult    = "net_result"
	netResultLbl = "Årets resultat"
)

// IncomeStatement groups balances by the income statement table and appends
// the net result.
func IncomeStatement(balances []AccountBalance, mappings []FieldMapping) []GroupValue {
	return append(Group(balances, mappings), GroupValue{
		Field: NetResult,
		Label: netResultLbl,
		Value: Result(balances, mappings),
	})
}

// Result is operating income less every expense group, for the income
// statement table: revenue-kind rows add and expense-kind rows subtract,
// skipping rows whose ranges are covered by another row.
func Result(balances []AccountBalance, mappings []FieldMapping) int64 {
	var total int64

	for _, m := range leafMappings(mappings) {
		value, _ := sumField(balances, m)
		if m.Kind.debitSide() {
			total -= value
		} else {
			total += value
		}
	}

	return total
}

// leafMappings drops mappings whose ranges contain another mapping's ranges,
// leaving the most specific rows of a hierarchical table.
func leafMappings(mappings []FieldMapping) []FieldMapping {
	var out []FieldMapping

	for i, m := range mappings {
		parent := false

		for j, o := range mappings {
			if i != j && covers(m, o) && !covers(o, m) {
				parent = true
				break
			}
		}

		if !parent {
			out = append(out, m)
		}
	}

	return out
}

// covers reports whether every range of o lies inside a range of m.
func covers(m, o FieldMapping) bool {
	for _, or := range o.Ranges {
		inside := false

		for _, mr := range m.Ranges {
			if or.Start >= mr.Start && or.End <= mr.End {
				inside = true
				break
			}
		}

		if !inside {
			return false
		}
	}

	return len(o.Ranges) > 0
}
