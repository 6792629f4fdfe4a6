package encoding

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
)

// Encoding is the coarse classification of an interchange file's bytes.
type Encoding string

const (
	UTF8   Encoding = "utf8"
	Latin1 Encoding = "latin1"
	// Legacy is the DOS code page (IBM PC 8-bit, CP437) older SIE producers write.
	Legacy Encoding = "legacy-codepage"
)

const scanLimit = 1000

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// legacyMarkers are literals that older producers emit near the end of a file.
// Their presence in a non-UTF-8 buffer tips detection towards the DOS code page.
var legacyMarkers = []string{"#KSUMMA", "#FORMAT PC8"}

// Detection is the outcome of Detect.
type Detection struct {
	Encoding Encoding
	// Charset is chardet's best guess for non-UTF-8 input, informational only.
	Charset string
	HasBOM  bool
}

// Detect classifies buf as UTF-8, Latin-1 or the legacy DOS code page.
//
// Detection order:
//  1. UTF-8 BOM
//  2. Every high-byte run in the first 1000 bytes is a well-formed UTF-8
//     sequence, or, when those bytes are all ASCII, the whole buffer is UTF-8
//  3. A legacy marker is present after decoding as Latin-1
//  4. Latin-1
//
// This is best-effort: a code page file without a marker decodes as Latin-1.
func Detect(buf []byte) Detection {
	if bytes.HasPrefix(buf, bomUTF8) {
		return Detection{Encoding: UTF8, HasBOM: true}
	}

	switch checked, valid := validUTF8Prefix(buf, scanLimit); {
	case checked && valid:
		return Detection{Encoding: UTF8}
	case !checked && utf8.Valid(buf):
		// No high byte near the start; the whole buffer decides.
		return Detection{Encoding: UTF8}
	}

	charset := ""
	if res, err := chardet.NewTextDetector().DetectBest(buf); err == nil {
		charset = res.Charset
	}

	text, _ := latin1Charmap(charset).NewDecoder().Bytes(buf)
	for _, m := range legacyMarkers {
		if bytes.Contains(text, []byte(m)) {
			return Detection{Encoding: Legacy, Charset: charset}
		}
	}

	return Detection{Encoding: Latin1, Charset: charset}
}

// Decode detects the encoding of buf and returns its content as a UTF-8 string
// with any BOM stripped.
func Decode(buf []byte) (string, Detection, error) {
	d := Detect(buf)

	switch d.Encoding {
	case UTF8:
		return string(bytes.TrimPrefix(buf, bomUTF8)), d, nil
	case Legacy:
		out, err := charmap.CodePage437.NewDecoder().Bytes(buf)
		if err != nil {
			return "", d, fmt.Errorf("decode cp437: %w", err)
		}

		return string(out), d, nil
	default:
		out, err := latin1Charmap(d.Charset).NewDecoder().Bytes(buf)
		if err != nil {
			return "", d, fmt.Errorf("decode latin1: %w", err)
		}

		return string(out), d, nil
	}
}

// latin1Charmap picks the Latin-1 family member. Windows-1252 differs from
// ISO-8859-1 only in 0x80-0x9F, where it has printable characters.
func latin1Charmap(charset string) *charmap.Charmap {
	if charset == "windows-1252" {
		return charmap.Windows1252
	}

	return charmap.ISO8859_1
}

// validUTF8Prefix reports whether any byte >= 0x80 occurs within the first
// limit bytes and whether each of them starts a well-formed 2, 3 or 4 byte
// sequence. A sequence cut off by the limit is validated against whatever
// bytes follow in buf.
func validUTF8Prefix(buf []byte, limit int) (checked, valid bool) {
	n := min(len(buf), limit)

	for i := 0; i < n; {
		b := buf[i]
		if b < 0x80 {
			i++
			continue
		}

		checked = true

		size := sequenceLength(b)
		if size == 0 || i+size > len(buf) {
			return true, false
		}

		for j := 1; j < size; j++ {
			if buf[i+j]&0xC0 != 0x80 {
				return true, false
			}
		}

		i += size
	}

	return checked, true
}

// sequenceLength returns the length announced by a UTF-8 lead byte, or 0 if
// b cannot start a multi-byte sequence.
func sequenceLength(b byte) int {
	switch {
	case b&0xE0 == 0xC0:
		if b < 0xC2 {
			return 0
		}

		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		if b > 0xF4 {
			return 0
		}

		return 4
	}

	return 0
}
