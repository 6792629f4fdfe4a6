package sie_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/MrJamesThe3rd/kassabok/internal/encoding"
	"github.com/MrJamesThe3rd/kassabok/internal/importer/sie"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

const fullFile = `#FLAGGA 0
#PROGRAM "Bokföringsprogram" 3.2
#FORMAT PC8
#GEN 20250110
#SIETYP 4
#FNAMN "Lindqvist Snickeri"
#ORGNR 19800101-1234
#RAR 0 20240101 20241231
#RAR -1 20230101 20231231
#KPTYP BAS2014
#KONTO 1930 "Företagskonto"
#KONTO 3001 "Försäljning 25%"
#KTYP 1930 T
#IB 0 1930 15000.00
#IB -1 1930 9000.00
#UB 0 1930 19500.00
#RES 0 3001 -4000.00
#VER A 1 20240115 "Kontorsmaterial" 20240116 "Anna"
{
#TRANS 6110 {} 1200,00
#TRANS 2640 {} 300.00
#TRANS 1930 {1 "100" 6 "P-7"} -1500.00 20240117 "Betalt kort" 1
}
#VER B 1 20240201 "Faktura 1001" {
#TRANS 1510 {} 5000
#TRANS 3001 {} -4000
#TRANS 2611 {} -1000
}
#KSUMMA 1234567
`

func TestParse_FullFile(t *testing.T) {
	res := sie.Parse(fullFile)

	assert.Empty(t, res.Errors)
	assert.Equal(t, "Lindqvist Snickeri", res.CompanyName)
	assert.Equal(t, "19800101-1234", res.OrgNumber)
	assert.Equal(t, "2024-01-01", res.FiscalYearStart)
	assert.Equal(t, "2024-12-31", res.FiscalYearEnd)
	assert.Equal(t, "4", res.SieType)
	assert.Equal(t, "Bokföringsprogram 3.2", res.Program)
	assert.Equal(t, "Företagskonto", res.Accounts[1930])

	require.Len(t, res.OpeningBalances, 1)
	assert.Equal(t, 1930, res.OpeningBalances[0].AccountNumber)
	assert.True(t, dec("15000").Equal(res.OpeningBalances[0].Amount))

	require.Len(t, res.Verifications, 2)

	v := res.Verifications[0]
	assert.Equal(t, "A", v.Series)
	assert.Equal(t, "1", v.Number)
	assert.Equal(t, "2024-01-15", v.Date)
	assert.Equal(t, "Kontorsmaterial", v.Description)
	assert.Equal(t, "2024-01-16", v.RegistrationDate)
	assert.Equal(t, "Anna", v.Signer)
	require.Len(t, v.Lines, 3)

	assert.True(t, dec("1200").Equal(v.Lines[0].Amount), "comma decimal separator")
	assert.Empty(t, v.Lines[0].Objects)

	last := v.Lines[2]
	assert.Equal(t, 1930, last.AccountNumber)
	assert.Equal(t, []string{"1:100", "6:P-7"}, last.Objects)
	assert.True(t, dec("-1500").Equal(last.Amount))
	assert.Equal(t, "2024-01-17", last.TransactionDate)
	assert.Equal(t, "Betalt kort", last.Description)
	require.NotNil(t, last.Quantity)
	assert.True(t, dec("1").Equal(*last.Quantity))

	v = res.Verifications[1]
	assert.Equal(t, "B", v.Series)
	require.Len(t, v.Lines, 3, "header with trailing brace opens the block")
}

func TestParse_SingleVerification(t *testing.T) {
	text := `#VER "A" "1" 20240115 "Office supplies" {
#TRANS 6200 {} 1500.00
}`

	res := sie.Parse(text)

	assert.Empty(t, res.Errors)
	require.Len(t, res.Verifications, 1)

	v := res.Verifications[0]
	assert.Equal(t, "2024-01-15", v.Date)
	require.Len(t, v.Lines, 1)
	assert.Equal(t, 6200, v.Lines[0].AccountNumber)
	assert.True(t, dec("1500.00").Equal(v.Lines[0].Amount))
}

func TestParse_LineCountMatchesTransLines(t *testing.T) {
	var sb strings.Builder

	sb.WriteString("#VER A 1 20240301 \"Many\"\n{\n")

	for i := 0; i < 25; i++ {
		if i%2 == 0 {
			sb.WriteString("#TRANS 1930 {} 10.00\n")
		} else {
			sb.WriteString("#TRANS 3001 {} -10.00\n")
		}
	}

	sb.WriteString("}\n")

	res := sie.Parse(sb.String())
	require.Len(t, res.Verifications, 1)
	assert.Len(t, res.Verifications[0].Lines, 25)
}

func TestParse_Recovery(t *testing.T) {
	type testCase struct {
		name       string
		text       string
		wantVers   int
		wantLines  []int
		wantErrors []string
	}

	tests := []testCase{
		{
			name: "Invalid Verification Date Drops Block",
			text: `#VER A 1 2024-01-15 "Bad date"
{
#TRANS 1930 {} 100
}
#VER A 2 20240116 "Good"
{
#TRANS 1930 {} 100
}`,
			wantVers:   1,
			wantLines:  []int{1},
			wantErrors: []string{"line 1:"},
		},
		{
			name: "Non-numeric Account Drops Line",
			text: `#VER A 1 20240115 "Text"
{
#TRANS kassa {} 100
#TRANS 1930 {} 100
}`,
			wantVers:   1,
			wantLines:  []int{1},
			wantErrors: []string{"line 3:"},
		},
		{
			name: "Non-numeric Amount Drops Line",
			text: `#VER A 1 20240115 "Text"
{
#TRANS 1930 {} tio
#TRANS 1930 {} 10
}`,
			wantVers:   1,
			wantLines:  []int{1},
			wantErrors: []string{"line 3:"},
		},
		{
			name: "Trans Outside Block Ignored",
			text: `#TRANS 1930 {} 100
#VER A 1 20240115 "Text"
{
#TRANS 1930 {} 100
}`,
			wantVers:   1,
			wantLines:  []int{1},
			wantErrors: []string{"line 1:"},
		},
		{
			name: "Unclosed Final Block Still Emitted",
			text: `#VER A 1 20240115 "Text"
{
#TRANS 1930 {} 100
#TRANS 3001 {} -100`,
			wantVers:  1,
			wantLines: []int{2},
		},
		{
			name: "Stray Closing Brace",
			text: `}
#VER A 1 20240115 "Text"
{
#TRANS 1930 {} 100
}`,
			wantVers:   1,
			wantLines:  []int{1},
			wantErrors: []string{"line 1:"},
		},
		{
			name: "Missing Close Before Next Verification",
			text: `#VER A 1 20240115 "First"
{
#TRANS 1930 {} 100
#VER A 2 20240116 "Second"
{
#TRANS 1930 {} 200
}`,
			wantVers:   2,
			wantLines:  []int{1, 1},
			wantErrors: []string{"line 4:"},
		},
		{
			name:       "Trailing Verification Without Block",
			text:       "#VER A 1 20240115 \"Text\"\n",
			wantErrors: []string{"line 2: verification A1 has no transaction block"},
		},
		{
			name: "Escaped Quote In Object Id",
			text: `#VER A 1 20240115 "Text"
{
#TRANS 1930 {6 "P\"}7"} 100
#TRANS 3001 {} -100
}`,
			wantVers:  1,
			wantLines: []int{2},
		},
		{
			name:       "Garbage Line",
			text:       "hello world\n#FNAMN \"X\"",
			wantErrors: []string{"line 1:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := sie.Parse(tt.text)

			require.Len(t, res.Verifications, tt.wantVers)

			for i, n := range tt.wantLines {
				assert.Len(t, res.Verifications[i].Lines, n)
			}

			require.Len(t, res.Errors, len(tt.wantErrors))

			for i, prefix := range tt.wantErrors {
				assert.True(t, strings.HasPrefix(res.Errors[i], prefix), res.Errors[i])
			}
		})
	}
}

func TestParse_EmptyInput(t *testing.T) {
	res := sie.Parse("")

	assert.Empty(t, res.Verifications)
	assert.Empty(t, res.Errors)
	assert.NotNil(t, res.Accounts)
}

func TestParseBytes_CodePage(t *testing.T) {
	raw, err := charmap.CodePage437.NewEncoder().Bytes([]byte(fullFile))
	require.NoError(t, err)

	res := sie.ParseBytes(raw)

	assert.Equal(t, encoding.Legacy, res.Encoding)
	assert.Equal(t, "Företagskonto", res.Accounts[1930])
	assert.Len(t, res.Verifications, 2)
}

func TestParseBytes_CRLF(t *testing.T) {
	text := "#FNAMN \"Åkeri\"\r\n#VER A 1 20240115 \"X\"\r\n{\r\n#TRANS 1930 {} 1\r\n}\r\n"

	res := sie.ParseBytes([]byte(text))

	assert.Empty(t, res.Errors)
	assert.Equal(t, "Åkeri", res.CompanyName)
	require.Len(t, res.Verifications, 1)
	assert.Len(t, res.Verifications[0].Lines, 1)
}
