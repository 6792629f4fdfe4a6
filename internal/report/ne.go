package report

import (
	"sort"
)

// NE-bilaga balance-sheet fields. B1-B9 are assets.
var neBalanceSheet = []FieldMapping{
	{Field: "B1", Label: "Immateriella anläggningstillgångar", Kind: KindAsset, Ranges: []Range{{1000, 1099}}},
	{Field: "B2", Label: "Byggnader och markanläggningar", Kind: KindAsset, Ranges: []Range{{1100, 1129}, {1150, 1199}}},
	{Field: "B3", Label: "Mark och andra tillgångar som inte får skrivas av", Kind: KindAsset, Ranges: []Range{{1130, 1149}}},
	{Field: "B4", Label: "Maskiner och inventarier", Kind: KindAsset, Ranges: []Range{{1200, 1299}}},
	{Field: "B5", Label: "Övriga anläggningstillgångar", Kind: KindAsset, Ranges: []Range{{1300, 1399}}},
	{Field: "B6", Label: "Varulager", Kind: KindAsset, Ranges: []Range{{1400, 1499}}},
	{Field: "B7", Label: "Kundfordringar", Kind: KindAsset, Ranges: []Range{{1500, 1599}}},
	{Field: "B8", Label: "Övriga fordringar", Kind: KindAsset, Ranges: []Range{{1600, 1899}}},
	{Field: "B9", Label: "Kassa och bank", Kind: KindAsset, Ranges: []Range{{1900, 1999}}},
	{Field: "B10", Label: "Eget kapital", Kind: KindLiability, Ranges: []Range{{2000, 2099}}},
	{Field: "B11", Label: "Obeskattade reserver", Kind: KindLiability, Ranges: []Range{{2100, 2199}}},
	{Field: "B12", Label: "Avsättningar", Kind: KindLiability, Ranges: []Range{{2200, 2299}}},
	{Field: "B13", Label: "Låneskulder", Kind: KindLiability, Ranges: []Range{{2300, 2399}}},
	{Field: "B14", Label: "Skatteskulder", Kind: KindLiability, Ranges: []Range{{2500, 2599}}},
	{Field: "B15", Label: "Leverantörsskulder", Kind: KindLiability, Ranges: []Range{{2400, 2499}}},
	{Field: "B16", Label: "Övriga skulder", Kind: KindLiability, Ranges: []Range{{2600, 2999}}},
}

// NE-bilaga income-statement fields. R1-R4 are revenue.
var neIncomeStatement = []FieldMapping{
	{Field: "R1", Label: "Försäljning och utfört arbete samt övriga momspliktiga intäkter", Kind: KindRevenue, Ranges: []Range{{3000, 3799}}},
	{Field: "R2", Label: "Momsfria intäkter", Kind: KindRevenue, Ranges: []Range{{3900, 3999}}},
	{Field: "R3", Label: "Bil- och bostadsförmån m.m.", Kind: KindRevenue, Ranges: []Range{{3800, 3899}}},
	{Field: "R4", Label: "Ränteintäkter m.m.", Kind: KindRevenue, Ranges: []Range{{8300, 8399}}},
	{Field: "R5", Label: "Varor, material och tjänster", Kind: KindExpense, Ranges: []Range{{4000, 4999}}},
	{Field: "R6", Label: "Övriga externa kostnader", Kind: KindExpense, Ranges: []Range{{5000, 6999}, {7900, 7999}}},
	{Field: "R7", Label: "Anställd personal", Kind: KindExpense, Ranges: []Range{{7000, 7699}}},
	{Field: "R8", Label: "Räntekostnader m.m.", Kind: KindExpense, Ranges: []Range{{8400, 8499}}},
	{Field: "R9", Label: "Av- och nedskrivningar av byggnader och markanläggningar", Kind: KindExpense, Ranges: []Range{{7820, 7829}}},
	{Field: "R10", Label: "Av- och nedskrivningar av maskiner, inventarier och immateriella tillgångar", Kind: KindExpense, Ranges: []Range{{7700, 7819}, {7830, 7899}}},
}

// Other financial items not claimed by R4 or R8. Must stay disjoint from them.
var neFinancialResidual = FieldMapping{
	Field:  FieldFinancialResidual,
	Label:  "Övriga finansiella poster",
	Kind:   KindRevenue,
	Ranges: []Range{{8000, 8299}, {8500, 8799}},
}

// Computed field names.
const (
	FieldFinancialResidual = "FIN"
	FieldTotalRevenue      = "TOTAL_REVENUE"
	FieldTotalExpenses     = "TOTAL_EXPENSES"
	FieldBookedResult      = "R11"
	FieldSurplus           = "R47"
	FieldDeficit           = "R48"
)

// ManualFields are the tax adjustments entered by the user, in form order.
var ManualFields = []string{"R12", "R13", "R14", "R15", "R18", "R19", "R20", "R21", "R23", "R24", "R26", "R27", "R29", "R30"}

var labels = map[string]string{
	FieldTotalRevenue:  "Summa intäkter",
	FieldTotalExpenses: "Summa kostnader",
	"R11":              "Bokfört resultat",
	"R12":              "Bokförda kostnader som inte ska dras av",
	"R13":              "Bokförda intäkter som inte ska tas upp",
	"R14":              "Intäkter som inte bokförts",
	"R15":              "Kostnader som inte bokförts",
	"R17":              "Sammanlagt resultat",
	"R18":              "Avdrag för sjukpenning och liknande",
	"R19":              "Sjukpenning och liknande som ska tas upp",
	"R20":              "Återföring av periodiseringsfond",
	"R21":              "Avsättning till periodiseringsfond",
	"R22":              "Underlag för periodiseringsfond",
	"R23":              "Minskning av expansionsfond",
	"R24":              "Ökning av expansionsfond",
	"R25":              "Underlag för expansionsfond",
	"R26":              "Återförda egenavgifter",
	"R27":              "Avdrag för egenavgifter",
	"R28":              "Resultat före egenavgifter",
	"R29":              "Avdrag för underskott från tidigare år",
	"R30":              "Övriga justeringar",
	"R31":              "Resultat efter egenavgifter",
	"R32":              "Resultat",
	FieldSurplus:       "Överskott",
	FieldDeficit:       "Underskott",
}

// step is one stage of the derivation. inputs names the fields it reads that
// earlier steps or manual values must already have set.
type step struct {
	name    string
	inputs  []string
	outputs []string
	run     func(fs *FieldSet, balances []AccountBalance)
}

// neSteps is the evaluation order. Each step only reads fields produced above it.
var neSteps = []step{
	{
		name:    "balance sheet",
		outputs: fieldNames(neBalanceSheet),
		run: func(fs *FieldSet, balances []AccountBalance) {
			for _, m := range neBalanceSheet {
				fs.setMapped(m, balances)
			}
		},
	},
	{
		name:    "income statement",
		outputs: fieldNames(neIncomeStatement),
		run: func(fs *FieldSet, balances []AccountBalance) {
			for _, m := range neIncomeStatement {
				fs.setMapped(m, balances)
			}
		},
	},
	{
		name:    "financial residual",
		outputs: []string{FieldFinancialResidual},
		run: func(fs *FieldSet, balances []AccountBalance) {
			fs.setMapped(neFinancialResidual, balances)
		},
	},
	{
		name:    "totals",
		inputs:  []string{"R1", "R2", "R3", "R4", "R5", "R6", "R7", "R8", "R9", "R10", FieldFinancialResidual},
		outputs: []string{FieldTotalRevenue, FieldTotalExpenses},
		run: func(fs *FieldSet, _ []AccountBalance) {
			fin := fs.Value(FieldFinancialResidual)
			fs.set(FieldTotalRevenue, fs.sum("R1", "R2", "R3", "R4")+max(0, fin))
			fs.set(FieldTotalExpenses, fs.sum("R5", "R6", "R7", "R8", "R9", "R10")+max(0, -fin))
		},
	},
	{
		name:    "booked result",
		inputs:  []string{FieldTotalRevenue, FieldTotalExpenses},
		outputs: []string{FieldBookedResult},
		run: func(fs *FieldSet, _ []AccountBalance) {
			fs.set(FieldBookedResult, fs.Value(FieldTotalRevenue)-fs.Value(FieldTotalExpenses))
		},
	},
	{
		name:    "manual adjustments",
		outputs: ManualFields,
		run: func(fs *FieldSet, _ []AccountBalance) {
			for _, f := range ManualFields {
				fs.set(f, fs.manual[f])
			}
		},
	},
	{
		name:    "combined result",
		inputs:  []string{"R11", "R12", "R13", "R14", "R15"},
		outputs: []string{"R17"},
		run: func(fs *FieldSet, _ []AccountBalance) {
			fs.set("R17", fs.Value("R11")+fs.Value("R12")-fs.Value("R13")+fs.Value("R14")-fs.Value("R15"))
		},
	},
	{
		name:    "periodisation reserve basis",
		inputs:  []string{"R17", "R18", "R19"},
		outputs: []string{"R22"},
		run: func(fs *FieldSet, _ []AccountBalance) {
			fs.set("R22", fs.Value("R17")-fs.Value("R18")+fs.Value("R19"))
		},
	},
	{
		name:    "expansion fund basis",
		inputs:  []string{"R22", "R20", "R21"},
		outputs: []string{"R25"},
		run: func(fs *FieldSet, _ []AccountBalance) {
			fs.set("R25", fs.Value("R22")+fs.Value("R20")-fs.Value("R21"))
		},
	},
	{
		name:    "expansion fund change",
		inputs:  []string{"R25", "R23", "R24"},
		outputs: []string{"R28"},
		run: func(fs *FieldSet, _ []AccountBalance) {
			fs.set("R28", fs.Value("R25")+fs.Value("R23")-fs.Value("R24"))
		},
	},
	{
		name:    "self-employment contributions",
		inputs:  []string{"R28", "R26", "R27"},
		outputs: []string{"R31"},
		run: func(fs *FieldSet, _ []AccountBalance) {
			fs.set("R31", fs.Value("R28")+fs.Value("R26")-fs.Value("R27"))
		},
	},
	{
		name:    "final result",
		inputs:  []string{"R31", "R29", "R30"},
		outputs: []string{"R32"},
		run: func(fs *FieldSet, _ []AccountBalance) {
			fs.set("R32", fs.Value("R31")-fs.Value("R29")+fs.Value("R30"))
		},
	},
	{
		name:    "surplus or deficit",
		inputs:  []string{"R32"},
		outputs: []string{FieldSurplus, FieldDeficit},
		run: func(fs *FieldSet, _ []AccountBalance) {
			r := fs.Value("R32")
			fs.set(FieldSurplus, max(0, r))
			fs.set(FieldDeficit, max(0, -r))
		},
	},
}

// FieldValue is one derived field.
type FieldValue struct {
	Field  string `json:"field"`
	Label  string `json:"label"`
	Value  int64  `json:"value"`
	Manual bool   `json:"manual,omitempty"`
}

// FieldSet is the derived NE-bilaga in evaluation order.
type FieldSet struct {
	order  []string
	values map[string]int64
	manual map[string]int64

	// NegativeAssets lists asset fields (B1-B9) with a negative value.
	NegativeAssets []string
	// IgnoredManual lists manual keys that are not manual fields.
	IgnoredManual []string
}

// DeriveNE computes the NE-bilaga from account balances and the saved manual
// adjustments, all in öre.
func DeriveNE(balances []AccountBalance, manual map[string]int64) *FieldSet {
	fs := &FieldSet{values: map[string]int64{}, manual: map[string]int64{}}

	allowed := make(map[string]bool, len(ManualFields))
	for _, f := range ManualFields {
		allowed[f] = true
	}

	for k, v := range manual {
		if !allowed[k] {
			fs.IgnoredManual = append(fs.IgnoredManual, k)
			continue
		}

		fs.manual[k] = v
	}

	sort.Strings(fs.IgnoredManual)

	for _, s := range neSteps {
		s.run(fs, balances)
	}

	for _, m := range neBalanceSheet {
		if m.Kind == KindAsset && fs.values[m.Field] < 0 {
			fs.NegativeAssets = append(fs.NegativeAssets, m.Field)
		}
	}

	return fs
}

func (fs *FieldSet) set(field string, v int64) {
	if _, ok := fs.values[field]; !ok {
		fs.order = append(fs.order, field)
	}

	fs.values[field] = v
}

func (fs *FieldSet) setMapped(m FieldMapping, balances []AccountBalance) {
	v, _ := sumField(balances, m)
	fs.set(m.Field, v)
}

func (fs *FieldSet) sum(fields ...string) int64 {
	var total int64
	for _, f := range fields {
		total += fs.values[f]
	}

	return total
}

// Value returns a field in öre; unknown fields are zero.
func (fs *FieldSet) Value(field string) int64 {
	return fs.values[field]
}

// Kronor returns a field in whole kronor, rounding half away from zero.
func (fs *FieldSet) Kronor(field string) int64 {
	return oreToKronor(fs.values[field])
}

// Fields lists all derived fields in evaluation order.
func (fs *FieldSet) Fields() []FieldValue {
	out := make([]FieldValue, 0, len(fs.order))

	for _, f := range fs.order {
		_, manual := fs.manual[f]
		out = append(out, FieldValue{Field: f, Label: fieldLabel(f), Value: fs.values[f], Manual: manual})
	}

	return out
}

func oreToKronor(ore int64) int64 {
	q, r := ore/100, ore%100

	switch {
	case r >= 50:
		q++
	case r <= -50:
		q--
	}

	return q
}

func fieldLabel(field string) string {
	if l, ok := labels[field]; ok {
		return l
	}

	if m, ok := neMapping(field); ok {
		return m.Label
	}

	return ""
}

// neMapping finds the range mapping behind an NE field.
func neMapping(field string) (FieldMapping, bool) {
	if field == neFinancialResidual.Field {
		return neFinancialResidual, true
	}

	for _, table := range [][]FieldMapping{neBalanceSheet, neIncomeStatement} {
		for _, m := range table {
			if m.Field == field {
				return m, true
			}
		}
	}

	return FieldMapping{}, false
}

func fieldNames(mappings []FieldMapping) []string {
	out := make([]string, len(mappings))
	for i, m := range mappings {
		out[i] = m.Field
	}

	return out
}
