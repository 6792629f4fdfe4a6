package report_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/kassabok/internal/ledger"
	"github.com/MrJamesThe3rd/kassabok/internal/report"
)

func TestDeriveNE(t *testing.T) {
	manual := map[string]int64{
		"R12": 10000,
		"R15": 4000,
		"R21": 200000,
		"R27": 150000,
	}

	fs := report.DeriveNE(report.AggregateBalances(sampleLedger()), manual)

	tests := []struct {
		field string
		want  int64
	}{
		{"B4", -100000},
		{"B9", 2154000},
		{"B10", 1000000},
		{"B14", 0},
		{"B16", 230000},
		{"R1", 1000000},
		{"R4", 5000},
		{"R6", 80000},
		{"R8", 3000},
		{"R10", 100000},
		{report.FieldFinancialResidual, 2000},
		{report.FieldTotalRevenue, 1007000},
		{report.FieldTotalExpenses, 183000},
		{"R11", 824000},
		{"R12", 10000},
		{"R13", 0},
		{"R17", 830000},
		{"R22", 830000},
		{"R25", 630000},
		{"R28", 630000},
		{"R31", 480000},
		{"R32", 480000},
		{"R47", 480000},
		{"R48", 0},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, fs.Value(tt.field))
		})
	}

	assert.Equal(t, []string{"B4"}, fs.NegativeAssets)
	assert.Empty(t, fs.IgnoredManual)
}

func TestDeriveNE_SurplusDeficitExclusive(t *testing.T) {
	balances := report.AggregateBalances(sampleLedger())

	tests := []struct {
		name        string
		manual      map[string]int64
		wantSurplus int64
		wantDeficit int64
	}{
		{name: "Surplus", manual: nil, wantSurplus: 824000},
		{name: "Deficit", manual: map[string]int64{"R29": 1000000}, wantDeficit: 176000},
		{name: "Zero", manual: map[string]int64{"R29": 824000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := report.DeriveNE(balances, tt.manual)

			assert.Equal(t, tt.wantSurplus, fs.Value(report.FieldSurplus))
			assert.Equal(t, tt.wantDeficit, fs.Value(report.FieldDeficit))
			assert.Zero(t, fs.Value(report.FieldSurplus)*fs.Value(report.FieldDeficit))
		})
	}
}

func TestDeriveNE_Empty(t *testing.T) {
	fs := report.DeriveNE(nil, nil)

	derived := map[string]bool{}

	for _, f := range fs.Fields() {
		assert.Zero(t, f.Value, f.Field)
		derived[f.Field] = true
	}

	assert.True(t, derived["R48"])
	assert.Empty(t, fs.NegativeAssets)
}

func TestDeriveNE_FinancialResidualSplit(t *testing.T) {
	t.Run("Net Cost Counts As Expense", func(t *testing.T) {
		fs := report.DeriveNE(report.AggregateBalances([]ledger.Posting{
			post(8250, "30"), post(1930, "-30"),
		}), nil)

		assert.Equal(t, int64(-3000), fs.Value(report.FieldFinancialResidual))
		assert.Equal(t, int64(0), fs.Value(report.FieldTotalRevenue))
		assert.Equal(t, int64(3000), fs.Value(report.FieldTotalExpenses))
		assert.Equal(t, int64(-3000), fs.Value("R11"))
	})

	t.Run("Interest Is Not Counted Twice", func(t *testing.T) {
		fs := report.DeriveNE(report.AggregateBalances([]ledger.Posting{
			post(8310, "-100"), post(8410, "40"), post(1930, "60"),
		}), nil)

		assert.Equal(t, int64(0), fs.Value(report.FieldFinancialResidual))
		assert.Equal(t, int64(10000), fs.Value(report.FieldTotalRevenue))
		assert.Equal(t, int64(4000), fs.Value(report.FieldTotalExpenses))
	})
}

func TestDeriveNE_IgnoredManual(t *testing.T) {
	fs := report.DeriveNE(nil, map[string]int64{
		"R11": 500,
		"B9":  100,
		"zz":  1,
		"R30": 700,
	})

	assert.Equal(t, []string{"B9", "R11", "zz"}, fs.IgnoredManual)
	assert.Equal(t, int64(0), fs.Value("R11"), "computed fields cannot be overridden")
	assert.Equal(t, int64(0), fs.Value("B9"))
	assert.Equal(t, int64(700), fs.Value("R32"))
}

func TestFieldSet_Kronor(t *testing.T) {
	tests := []struct {
		name string
		ore  string
		want int64
	}{
		{name: "Half Up", ore: "123.50", want: 124},
		{name: "Half Down Negative", ore: "-123.50", want: -124},
		{name: "Below Half", ore: "123.49", want: 123},
		{name: "Below Half Negative", ore: "-123.49", want: -123},
		{name: "Whole", ore: "100", want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := report.DeriveNE(report.AggregateBalances([]ledger.Posting{post(1930, tt.ore)}), nil)
			assert.Equal(t, tt.want, fs.Kronor("B9"))
		})
	}
}

func TestFieldSet_Fields(t *testing.T) {
	fs := report.DeriveNE(nil, map[string]int64{"R12": 100})
	fields := fs.Fields()

	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[f.Field] = i
	}

	require.Len(t, index, len(fields), "no field is listed twice")

	assert.Equal(t, "B1", fields[0].Field)
	assert.Equal(t, "R48", fields[len(fields)-1].Field)
	assert.Less(t, index["R10"], index[report.FieldFinancialResidual])
	assert.Less(t, index["R11"], index["R12"])
	assert.Less(t, index["R30"], index["R17"])

	r12 := fields[index["R12"]]
	assert.True(t, r12.Manual)
	assert.Equal(t, "Bokförda kostnader som inte ska dras av", r12.Label)
	assert.False(t, fields[index["R13"]].Manual)
	assert.Equal(t, "Kassa och bank", fields[index["B9"]].Label)
}
