package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/kassabok/internal/cli"
	"github.com/MrJamesThe3rd/kassabok/internal/importer"
	"github.com/MrJamesThe3rd/kassabok/internal/report"
)

const sieFile = `#FLAGGA 0
#SIETYP 4
#FNAMN "Berg Konsult"
#RAR 0 20240101 20241231
#KONTO 1930 "Företagskonto"
#IB 0 1930 10000.00
#IB 0 2010 -10000.00
#VER A 1 20240115 "Faktura 17"
{
#TRANS 1930 {} 12500.00
#TRANS 3001 {} -10000.00
#TRANS 2611 {} -2500.00
}
#VER A 2 20240120 "Inköp"
{
#TRANS 5410 {} 800.00
#TRANS 2641 {} 200.00
#TRANS 1930 {} -1000.00
}
#VER A 3 20240125 "Felaktig"
{
#TRANS 6110 {} 100.00
#TRANS 1930 {} -90.00
}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func run(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()

	t.Setenv("PUSHGATEWAY_URL", "")
	t.Setenv("OTLP_ENDPOINT", "")
	t.Setenv("REPORT_MAPPINGS_DIR", "")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	err := cli.Execute(context.Background(), args, &out)

	return out.Bytes(), err
}

func TestParse(t *testing.T) {
	path := writeFile(t, "bok.se", sieFile)

	out, err := run(t, "parse", path)
	require.NoError(t, err)

	var got struct {
		Format        string   `json:"format"`
		Company       string   `json:"company"`
		Verifications int      `json:"verifications"`
		Transactions  int      `json:"transactions"`
		Errors        []string `json:"errors"`
		Unbalanced    []struct {
			Entry      string `json:"entry"`
			Difference string `json:"difference"`
		} `json:"unbalanced"`
	}
	require.NoError(t, json.Unmarshal(out, &got))

	assert.Equal(t, "sie4", got.Format)
	assert.Equal(t, "Berg Konsult", got.Company)
	assert.Equal(t, 3, got.Verifications)
	assert.Equal(t, 8, got.Transactions)
	assert.Empty(t, got.Errors)
	require.Len(t, got.Unbalanced, 1)
	assert.Equal(t, "A3", got.Unbalanced[0].Entry)
	assert.Equal(t, "10.00", got.Unbalanced[0].Difference)
}

func TestTransactions_BankOnly(t *testing.T) {
	path := writeFile(t, "bok.se", sieFile)

	out, err := run(t, "transactions", "--bank-only", path)
	require.NoError(t, err)

	var got []struct {
		Date      string `json:"date"`
		Amount    string `json:"amount"`
		Reference string `json:"reference"`
	}
	require.NoError(t, json.Unmarshal(out, &got))

	require.Len(t, got, 3)
	assert.Equal(t, "2024-01-15", got[0].Date)
	assert.Equal(t, "12500.00", got[0].Amount)
	assert.Equal(t, "-90.00", got[2].Amount)
}

type neOutput struct {
	Fields []struct {
		Field  string `json:"field"`
		Kronor int64  `json:"kronor"`
		Manual bool   `json:"manual"`
	} `json:"fields"`
	NegativeAssets []string `json:"negative_assets"`
	IgnoredManual  []string `json:"ignored_manual"`
}

func (o neOutput) kronor(field string) int64 {
	for _, f := range o.Fields {
		if f.Field == field {
			return f.Kronor
		}
	}

	return -1
}

func TestReportNE_File(t *testing.T) {
	path := writeFile(t, "bok.se", sieFile)

	out, err := run(t, "report", "ne", path, "--manual", "R12=100", "--manual", "R99=5")
	require.NoError(t, err)

	var got neOutput
	require.NoError(t, json.Unmarshal(out, &got))

	assert.Equal(t, int64(21410), got.kronor("B9"))
	assert.Equal(t, int64(10000), got.kronor("B10"))
	assert.Equal(t, int64(10000), got.kronor("R1"))
	assert.Equal(t, int64(900), got.kronor("R6"))
	assert.Equal(t, int64(9100), got.kronor("R11"))
	assert.Equal(t, int64(9200), got.kronor("R17"))
	assert.Equal(t, int64(9200), got.kronor("R47"))
	assert.Equal(t, int64(0), got.kronor("R48"))
	assert.Equal(t, []string{"R99"}, got.IgnoredManual)
	assert.Empty(t, got.NegativeAssets)
}

func TestReportVAT_File(t *testing.T) {
	path := writeFile(t, "bok.se", sieFile)

	out, err := run(t, "report", "vat", path)
	require.NoError(t, err)

	var got []report.GroupValue
	require.NoError(t, json.Unmarshal(out, &got))

	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, report.VATPayable, last.Field)
	assert.Equal(t, int64(230000), last.Value)
}

func TestExplain_File(t *testing.T) {
	path := writeFile(t, "bok.se", sieFile)

	out, err := run(t, "explain", "B9", path)
	require.NoError(t, err)

	var got struct {
		Value          int64    `json:"value"`
		OpeningBalance int64    `json:"opening_balance"`
		Ranges         []string `json:"ranges"`
		Lines          []struct {
			Entry string `json:"entry"`
		} `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(out, &got))

	assert.Equal(t, int64(2141000), got.Value)
	assert.Equal(t, int64(1000000), got.OpeningBalance)
	assert.Equal(t, []string{"1900-1999"}, got.Ranges)
	require.Len(t, got.Lines, 3)
	assert.Equal(t, "A1", got.Lines[0].Entry)
}

func TestCommandErrors(t *testing.T) {
	sie := writeFile(t, "bok.se", sieFile)
	unknown := writeFile(t, "notes.txt", "just some text")

	tests := []struct {
		name    string
		args    []string
		wantErr error
		wantMsg string
	}{
		{name: "Unknown Format", args: []string{"parse", unknown}, wantErr: importer.ErrUnknownFormat},
		{name: "Missing File", args: []string{"parse", filepath.Join(t.TempDir(), "gone.se")}, wantErr: os.ErrNotExist},
		{name: "No Source", args: []string{"report", "ne"}, wantMsg: "give a FILE"},
		{name: "File And Workspace", args: []string{"report", "vat", sie, "--workspace", "x"}, wantMsg: "not both"},
		{name: "Bad Manual Value", args: []string{"report", "ne", sie, "--manual", "R12=tio"}, wantMsg: "not a number"},
		{name: "Computed Field", args: []string{"explain", "R17", sie}, wantErr: report.ErrUnknownField},
		{name: "Bad Workspace", args: []string{"dedup", sie, "--workspace", "nope"}, wantMsg: "invalid --workspace"},
		{name: "Workspace Required", args: []string{"dedup", sie}, wantMsg: "workspace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}
