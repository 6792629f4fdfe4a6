package report_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/kassabok/internal/report"
)

func TestExplain(t *testing.T) {
	tables, err := report.DefaultTables()
	require.NoError(t, err)

	d, err := report.Explain("B9", sampleLedger(), tables)
	require.NoError(t, err)

	assert.Equal(t, "Kassa och bank", d.Label)
	assert.Equal(t, report.KindAsset, d.Kind)
	assert.Equal(t, int64(1000000), d.OpeningBalance)
	assert.Equal(t, int64(2154000), d.Value)
	require.Len(t, d.Accounts, 1)
	assert.Equal(t, 1930, d.Accounts[0].AccountNumber)

	require.Len(t, d.Lines, 5)
	for _, l := range d.Lines {
		assert.False(t, l.Opening)
		assert.Equal(t, 1930, l.AccountNumber)
	}

	fs := report.DeriveNE(report.AggregateBalances(sampleLedger()), nil)
	assert.Equal(t, fs.Value("B9"), d.Value, "drilldown agrees with the derived field")
}

func TestExplain_GroupedField(t *testing.T) {
	tables, err := report.DefaultTables()
	require.NoError(t, err)

	d, err := report.Explain("operating_expenses", sampleLedger(), tables)
	require.NoError(t, err)

	assert.Equal(t, int64(180000), d.Value)
	assert.Zero(t, d.OpeningBalance)
	assert.Len(t, d.Accounts, 2)
}

func TestExplain_Totals(t *testing.T) {
	fs := report.DeriveNE(report.AggregateBalances(sampleLedger()), nil)

	tests := []struct {
		field      string
		wantKind   report.Kind
		wantRanges []string
	}{
		{field: report.FieldTotalRevenue, wantKind: report.KindRevenue, wantRanges: []string{"3000-3999", "8000-8399", "8500-8799"}},
		{field: report.FieldTotalExpenses, wantKind: report.KindExpense, wantRanges: []string{"4000-8299", "8400-8799"}},
		{field: report.FieldBookedResult, wantKind: report.KindRevenue, wantRanges: []string{"3000-8799"}},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			d, err := report.Explain(tt.field, sampleLedger(), nil)
			require.NoError(t, err)

			ranges := make([]string, len(d.Ranges))
			for i, r := range d.Ranges {
				ranges[i] = r.String()
			}

			assert.Equal(t, tt.wantKind, d.Kind)
			assert.Equal(t, tt.wantRanges, ranges)
			assert.NotEmpty(t, d.Label)
			assert.Equal(t, fs.Value(tt.field), d.Value)

			for _, l := range d.Lines {
				assert.True(t, l.AccountNumber >= 3000 && l.AccountNumber <= 8799, l.AccountNumber)
			}
		})
	}
}

func TestExplain_UnknownField(t *testing.T) {
	tables, err := report.DefaultTables()
	require.NoError(t, err)

	for _, field := range []string{"R17", "R47", "nope"} {
		_, err := report.Explain(field, sampleLedger(), tables)
		assert.ErrorIs(t, err, report.ErrUnknownField, field)
	}
}
