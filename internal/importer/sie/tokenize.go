package sie

import (
	"strings"
)

// token is one field of a directive line.
type token struct {
	Text string
	// Quoted is set for "..." fields; their text has the quotes removed.
	Quoted bool
	// Braced is set for {...} fields; their text is the content between the braces.
	Braced bool
}

// isBlockOpen reports whether t is a bare "{" left by an unclosed brace.
func (t token) isBlockOpen() bool {
	return !t.Quoted && !t.Braced && t.Text == "{"
}

// tokenize splits a line on whitespace, keeping quoted strings and brace
// blocks intact. Inside quotes both "" and \" are an escaped quote. A brace
// with no matching close on the same line is emitted as a bare "{" token.
func tokenize(line string) []token {
	var (
		tokens []token
		rs     = []rune(line)
	)

	for i := 0; i < len(rs); {
		switch r := rs[i]; {
		case r == ' ' || r == '\t':
			i++

		case r == '"':
			text, next := readQuoted(rs, i+1)
			tokens = append(tokens, token{Text: text, Quoted: true})
			i = next

		case r == '{':
			end := matchBrace(rs, i+1)
			if end < 0 {
				tokens = append(tokens, token{Text: "{"})
				i++

				continue
			}

			tokens = append(tokens, token{Text: strings.TrimSpace(string(rs[i+1 : end])), Braced: true})
			i = end + 1

		default:
			start := i
			for i < len(rs) && rs[i] != ' ' && rs[i] != '\t' && rs[i] != '"' && rs[i] != '{' {
				i++
			}

			tokens = append(tokens, token{Text: string(rs[start:i])})
		}
	}

	return tokens
}

// readQuoted reads a quoted field starting after the opening quote and
// returns its unescaped text and the index after the closing quote. An
// unterminated quote runs to the end of the line.
func readQuoted(rs []rune, i int) (string, int) {
	var sb strings.Builder

	for i < len(rs) {
		r := rs[i]

		switch {
		case r == '\\' && i+1 < len(rs) && rs[i+1] == '"':
			sb.WriteRune('"')
			i += 2
		case r == '"' && i+1 < len(rs) && rs[i+1] == '"':
			sb.WriteRune('"')
			i += 2
		case r == '"':
			return sb.String(), i + 1
		default:
			sb.WriteRune(r)
			i++
		}
	}

	return sb.String(), i
}

// matchBrace returns the index of the '}' closing a block that starts at i,
// skipping braces inside quoted strings, or -1. Quotes escape the same way
// as in readQuoted.
func matchBrace(rs []rune, i int) int {
	inQuote := false

	for ; i < len(rs); i++ {
		switch rs[i] {
		case '\\':
			if inQuote && i+1 < len(rs) && rs[i+1] == '"' {
				i++
			}
		case '"':
			inQuote = !inQuote
		case '}':
			if !inQuote {
				return i
			}
		}
	}

	return -1
}

// parseObjects reads an object list, pairs of dimension and object id, into
// "dimension:object" strings. A trailing unpaired value is kept on its own.
func parseObjects(list string) []string {
	if list == "" {
		return nil
	}

	fields := tokenize(list)
	objects := make([]string, 0, len(fields)/2+1)

	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			objects = append(objects, fields[i].Text)
			break
		}

		objects = append(objects, fields[i].Text+":"+fields[i+1].Text)
	}

	return objects
}
