package encoding_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/MrJamesThe3rd/kassabok/internal/encoding"
)

var asciiHeader = strings.Repeat("#KONTO 1930 \"Bank\"\n", 80)

func TestDetect(t *testing.T) {
	type testCase struct {
		name  string
		input []byte
		want  encoding.Encoding
	}

	latin1 := func(s string) []byte {
		b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
		require.NoError(t, err)

		return b
	}

	cp437 := func(s string) []byte {
		b, err := charmap.CodePage437.NewEncoder().Bytes([]byte(s))
		require.NoError(t, err)

		return b
	}

	tests := []testCase{
		{
			name:  "BOM",
			input: append([]byte{0xEF, 0xBB, 0xBF}, []byte("#FNAMN \"Åkeri AB\"\n")...),
			want:  encoding.UTF8,
		},
		{
			name:  "Valid UTF-8 Without BOM",
			input: []byte("#FNAMN \"Växjö Måleri\"\n"),
			want:  encoding.UTF8,
		},
		{
			name:  "Plain ASCII",
			input: []byte("#FLAGGA 0\n#SIETYP 4\n"),
			want:  encoding.UTF8,
		},
		{
			name:  "Latin-1 After Long ASCII Header",
			input: latin1(asciiHeader + "#FNAMN \"Växjö Måleri\"\n"),
			want:  encoding.Latin1,
		},
		{
			name:  "UTF-8 After Long ASCII Header",
			input: []byte(asciiHeader + "#FNAMN \"Växjö Måleri\"\n"),
			want:  encoding.UTF8,
		},
		{
			name:  "Code Page Marker After Long ASCII Header",
			input: cp437("#FORMAT PC8\n" + asciiHeader + "#FNAMN \"Åre Skidskola\"\n"),
			want:  encoding.Legacy,
		},
		{
			name:  "Latin-1",
			input: latin1("#FNAMN \"Växjö Måleri\"\n#VER A 1 20240101 \"Hyra för lokal\"\n"),
			want:  encoding.Latin1,
		},
		{
			name:  "Code Page With Checksum Marker",
			input: cp437("#FNAMN \"Växjö Måleri\"\n#KSUMMA 12345\n"),
			want:  encoding.Legacy,
		},
		{
			name:  "Code Page With Format Declaration",
			input: cp437("#FORMAT PC8\n#FNAMN \"Åre Skidskola\"\n"),
			want:  encoding.Legacy,
		},
		{
			name:  "Truncated Multi-byte Sequence",
			input: []byte{'a', 0xC3},
			want:  encoding.Latin1,
		},
		{
			name:  "Overlong Lead Byte",
			input: []byte{'a', 0xC0, 0x80},
			want:  encoding.Latin1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encoding.Detect(tt.input)
			assert.Equal(t, tt.want, got.Encoding)
		})
	}
}

func TestDecode_UTF8BOMStripped(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("#FNAMN \"Åkeri & Söner AB\"\n")...)

	text, d, err := encoding.Decode(input)
	require.NoError(t, err)

	assert.Equal(t, encoding.UTF8, d.Encoding)
	assert.True(t, d.HasBOM)
	assert.Equal(t, "#FNAMN \"Åkeri & Söner AB\"\n", text)
}

func TestDecode_CodePage(t *testing.T) {
	src := "#FORMAT PC8\n#FNAMN \"Örebro Städ\"\n"

	input, err := charmap.CodePage437.NewEncoder().Bytes([]byte(src))
	require.NoError(t, err)

	text, d, err := encoding.Decode(input)
	require.NoError(t, err)

	assert.Equal(t, encoding.Legacy, d.Encoding)
	assert.Equal(t, src, text)
}

func TestDecode_Latin1(t *testing.T) {
	// ISO-8859-1 "Kostnad för hyra": ö = 0xF6
	input := []byte{'K', 'o', 's', 't', 'n', 'a', 'd', ' ', 'f', 0xF6, 'r', ' ', 'h', 'y', 'r', 'a', '\n'}

	text, d, err := encoding.Decode(input)
	require.NoError(t, err)

	assert.Equal(t, encoding.Latin1, d.Encoding)
	assert.Equal(t, "Kostnad för hyra\n", text)
}

func TestDecode_LongASCIIHeader(t *testing.T) {
	header := "#FORMAT PC8\n" + strings.Repeat("#KONTO 1930 \"Bank\"\n", 80)
	src := header + "#KONTO 2010 \"Eget kapital Företag\"\n"

	input, err := charmap.CodePage437.NewEncoder().Bytes([]byte(src))
	require.NoError(t, err)
	require.Greater(t, bytes.IndexByte(input, 0x94), 1000)

	text, d, err := encoding.Decode(input)
	require.NoError(t, err)

	assert.Equal(t, encoding.Legacy, d.Encoding)
	assert.Equal(t, src, text)
}

func TestDecode_UTF8Passthrough(t *testing.T) {
	input := "#VER A 1 20240115 \"Kontorsmaterial\"\n{\n#TRANS 6110 {} 250,00\n}\n"

	text, d, err := encoding.Decode([]byte(input))
	require.NoError(t, err)

	assert.Equal(t, encoding.UTF8, d.Encoding)
	assert.False(t, d.HasBOM)
	assert.Equal(t, input, text)
}
