package sie

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	enc "github.com/MrJamesThe3rd/kassabok/internal/encoding"
	"github.com/MrJamesThe3rd/kassabok/internal/ledger"
)

const sieDate = "20060102"

// Result is everything the parser recovered from a file. Errors lists the
// defective lines that were skipped; it never aborts parsing.
type Result struct {
	CompanyName     string
	OrgNumber       string
	FiscalYearStart string // YYYY-MM-DD
	FiscalYearEnd   string // YYYY-MM-DD
	SieType         string
	Program         string
	Encoding        enc.Encoding

	Accounts        map[int]string
	OpeningBalances []ledger.OpeningBalance
	Verifications   []ledger.Verification
	Errors          []string
}

// ParseBytes detects the encoding of buf and parses the decoded text.
func ParseBytes(buf []byte) *Result {
	text, d, err := enc.Decode(buf)
	if err != nil {
		return &Result{Accounts: map[int]string{}, Errors: []string{err.Error()}}
	}

	res := Parse(text)
	res.Encoding = d.Encoding

	return res
}

// parser holds the directive state machine.
type parser struct {
	res *Result

	pending *ledger.Verification
	// inBlock is set between "{" and "}".
	inBlock bool
	// skipping marks a block whose header was rejected; its lines are ignored.
	skipping bool
}

// Parse reads SIE 4 text line by line. Malformed lines are recorded in
// Result.Errors and skipped.
func Parse(text string) *Result {
	p := &parser{res: &Result{Accounts: map[int]string{}}}

	lines := strings.Split(text, "\n")
	for i, raw := range lines {
		p.line(i+1, strings.TrimSpace(strings.TrimRight(raw, "\r")))
	}

	// A trailing unclosed block still yields its verification.
	switch {
	case p.pending != nil && p.inBlock:
		p.commit()
	case p.pending != nil:
		p.errorf(len(lines), "verification %s has no transaction block", p.pending.Label())
		p.pending = nil
	}

	return p.res
}

func (p *parser) errorf(lineNo int, format string, args ...any) {
	p.res.Errors = append(p.res.Errors, fmt.Sprintf("line %d: ", lineNo)+fmt.Sprintf(format, args...))
}

func (p *parser) commit() {
	p.res.Verifications = append(p.res.Verifications, *p.pending)
	p.pending = nil
	p.inBlock = false
}

func (p *parser) line(n int, line string) {
	switch {
	case line == "":
		return
	case line == "{":
		p.openBlock(n)
		return
	case line == "}":
		p.closeBlock(n)
		return
	case !strings.HasPrefix(line, "#"):
		p.errorf(n, "unrecognised line %q", line)
		return
	}

	tokens := tokenize(line)
	directive := strings.ToUpper(tokens[0].Text)
	args := tokens[1:]

	switch directive {
	case "#FNAMN":
		if v, ok := arg(args, 0); ok {
			p.res.CompanyName = v
		}
	case "#ORGNR":
		if v, ok := arg(args, 0); ok {
			p.res.OrgNumber = v
		}
	case "#SIETYP":
		p.res.SieType, _ = arg(args, 0)
	case "#PROGRAM":
		p.res.Program = strings.TrimSpace(joinArgs(args))
	case "#RAR":
		p.fiscalYear(n, args)
	case "#KONTO":
		p.account(n, args)
	case "#IB":
		p.openingBalance(n, args)
	case "#VER":
		p.verification(n, args)
	case "#TRANS":
		p.transaction(n, args)
	default:
		// #KTYP, #SRU, #UB, #RES, #PSALDO, #PBUDGET, #RTRANS, #BTRANS, #KSUMMA,
		// #DIM, #OBJEKT, #FLAGGA, #FORMAT, #GEN and friends carry nothing we need.
	}
}

func (p *parser) openBlock(n int) {
	if p.inBlock {
		p.errorf(n, "nested block")
		return
	}

	p.inBlock = true
	if p.pending == nil {
		p.skipping = true
	}
}

func (p *parser) closeBlock(n int) {
	if !p.inBlock {
		p.errorf(n, "unexpected }")
		return
	}

	if p.pending != nil {
		p.commit()
	}

	p.inBlock = false
	p.skipping = false
}

func (p *parser) fiscalYear(n int, args []token) {
	if len(args) < 3 {
		p.errorf(n, "#RAR needs index, start and end")
		return
	}

	if args[0].Text != "0" {
		return
	}

	start, err := parseDate(args[1].Text)
	if err != nil {
		p.errorf(n, "#RAR start: %v", err)
		return
	}

	end, err := parseDate(args[2].Text)
	if err != nil {
		p.errorf(n, "#RAR end: %v", err)
		return
	}

	p.res.FiscalYearStart = start
	p.res.FiscalYearEnd = end
}

func (p *parser) account(n int, args []token) {
	if len(args) < 1 {
		p.errorf(n, "#KONTO without account number")
		return
	}

	num, err := strconv.Atoi(args[0].Text)
	if err != nil {
		p.errorf(n, "#KONTO account %q is not numeric", args[0].Text)
		return
	}

	name, _ := arg(args, 1)
	p.res.Accounts[num] = name
}

func (p *parser) openingBalance(n int, args []token) {
	if len(args) < 3 {
		p.errorf(n, "#IB needs year, account and amount")
		return
	}

	if args[0].Text != "0" {
		return
	}

	num, err := strconv.Atoi(args[1].Text)
	if err != nil {
		p.errorf(n, "#IB account %q is not numeric", args[1].Text)
		return
	}

	amount, err := parseAmount(args[2].Text)
	if err != nil {
		p.errorf(n, "#IB amount %q: %v", args[2].Text, err)
		return
	}

	p.res.OpeningBalances = append(p.res.OpeningBalances, ledger.OpeningBalance{AccountNumber: num, Amount: amount})
}

// verification handles "#VER series number date text [regdate] [sign] [{]".
func (p *parser) verification(n int, args []token) {
	opens := len(args) > 0 && args[len(args)-1].isBlockOpen()
	if opens {
		args = args[:len(args)-1]
	}

	if p.pending != nil {
		if p.inBlock {
			p.errorf(n, "verification %s not closed before next #VER", p.pending.Label())
			p.commit()
		} else {
			p.errorf(n, "verification %s has no transaction block", p.pending.Label())
			p.pending = nil
		}
	}

	if p.inBlock {
		// Left over from a rejected header.
		p.inBlock = false
		p.skipping = false
	}

	if len(args) < 3 {
		p.errorf(n, "#VER needs series, number and date")
		p.rejectHeader(opens)

		return
	}

	date, err := parseDate(args[2].Text)
	if err != nil {
		p.errorf(n, "#VER %s%s dropped: %v", args[0].Text, args[1].Text, err)
		p.rejectHeader(opens)

		return
	}

	v := &ledger.Verification{
		Series: args[0].Text,
		Number: args[1].Text,
		Date:   date,
	}
	v.Description, _ = arg(args, 3)

	if s, ok := arg(args, 4); ok {
		if reg, err := parseDate(s); err == nil {
			v.RegistrationDate = reg
		}
	}

	v.Signer, _ = arg(args, 5)

	p.pending = v
	p.inBlock = opens
}

// rejectHeader makes the block that follows a rejected #VER be skipped.
func (p *parser) rejectHeader(opens bool) {
	if opens {
		p.inBlock = true
		p.skipping = true
	}
}

// transaction handles "#TRANS account {objects} amount [date] [text] [quantity] [sign]".
func (p *parser) transaction(n int, args []token) {
	if p.skipping {
		return
	}

	if !p.inBlock || p.pending == nil {
		p.errorf(n, "#TRANS outside a verification block ignored")
		return
	}

	if len(args) < 2 {
		p.errorf(n, "#TRANS needs account and amount")
		return
	}

	account, err := strconv.Atoi(args[0].Text)
	if err != nil {
		p.errorf(n, "#TRANS account %q is not numeric", args[0].Text)
		return
	}

	rest := args[1:]

	var objects []string
	if rest[0].Braced {
		objects = parseObjects(rest[0].Text)
		rest = rest[1:]
	}

	if len(rest) == 0 {
		p.errorf(n, "#TRANS %d missing amount", account)
		return
	}

	amount, err := parseAmount(rest[0].Text)
	if err != nil {
		p.errorf(n, "#TRANS %d amount %q: %v", account, rest[0].Text, err)
		return
	}

	l := ledger.Line{AccountNumber: account, Objects: objects, Amount: amount}

	if s, ok := arg(rest, 1); ok {
		if d, err := parseDate(s); err == nil {
			l.TransactionDate = d
		}
	}

	l.Description, _ = arg(rest, 2)

	if s, ok := arg(rest, 3); ok {
		if q, err := parseAmount(s); err == nil {
			l.Quantity = &q
		}
	}

	p.pending.Lines = append(p.pending.Lines, l)
}

// arg returns the text of args[i] if present and non-empty.
func arg(args []token, i int) (string, bool) {
	if i >= len(args) || args[i].Text == "" {
		return "", false
	}

	return args[i].Text, true
}

func joinArgs(args []token) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Text
	}

	return strings.Join(parts, " ")
}

// parseDate converts an 8-digit YYYYMMDD token to YYYY-MM-DD.
func parseDate(s string) (string, error) {
	if len(s) != 8 {
		return "", fmt.Errorf("date %q is not YYYYMMDD", s)
	}

	t, err := time.Parse(sieDate, s)
	if err != nil {
		return "", fmt.Errorf("date %q is not YYYYMMDD", s)
	}

	return t.Format(time.DateOnly), nil
}

// parseAmount accepts either '.' or ',' as the decimal separator.
func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
}
