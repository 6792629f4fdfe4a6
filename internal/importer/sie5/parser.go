// Package sie5 reads SIE 5 XML exports, both full files (<Sie>) and single
// entry fragments (<SieEntry>).
package sie5

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	xencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"

	enc "github.com/MrJamesThe3rd/kassabok/internal/encoding"
	"github.com/MrJamesThe3rd/kassabok/internal/ledger"
)

// ErrMalformedXML is returned when the document cannot be decoded at all.
var ErrMalformedXML = errors.New("malformed SIE XML")

const (
	rootFile  = "Sie"
	rootEntry = "SieEntry"
)

// FiscalYear is a fiscal year with both boundaries expanded to YYYY-MM-DD.
type FiscalYear struct {
	Start   string
	End     string
	Primary bool
}

// Result is a parsed XML document. Warnings list the entries and lines that
// were dropped.
type Result struct {
	Fragment        bool // root was <SieEntry>
	CompanyName     string
	OrgNumber       string
	Program         string
	FiscalYears     []FiscalYear
	Accounts        map[int]ledger.Account
	OpeningBalances []ledger.OpeningBalance
	Verifications   []ledger.Verification
	Warnings        []string
}

// CurrentYear returns the fiscal year marked primary, or the latest one.
func (r *Result) CurrentYear() (FiscalYear, bool) {
	if len(r.FiscalYears) == 0 {
		return FiscalYear{}, false
	}

	current := r.FiscalYears[0]

	for _, fy := range r.FiscalYears {
		if fy.Primary {
			return fy, true
		}

		if fy.Start > current.Start {
			current = fy
		}
	}

	return current, true
}

type document struct {
	XMLName  xml.Name
	FileInfo struct {
		SoftwareProduct struct {
			Name    string `xml:"name,attr"`
			Version string `xml:"version,attr"`
		} `xml:"SoftwareProduct"`
		Company struct {
			Name           string `xml:"name,attr"`
			OrganizationID string `xml:"organizationId,attr"`
		} `xml:"Company"`
		FiscalYears []xmlFiscalYear `xml:"FiscalYears>FiscalYear"`
	} `xml:"FileInfo"`
	Accounts []xmlAccount `xml:"Accounts>Account"`
	Journals []xmlJournal `xml:"Journal"`
}

type xmlFiscalYear struct {
	Start   string `xml:"start,attr"`
	End     string `xml:"end,attr"`
	Primary bool   `xml:"primary,attr"`
}

type xmlAccount struct {
	ID      string `xml:"id,attr"`
	Name    string `xml:"name,attr"`
	Type    string `xml:"type,attr"`
	Opening []struct {
		Month  string `xml:"month,attr"`
		Amount string `xml:"amount,attr"`
	} `xml:"OpeningBalance"`
}

type xmlJournal struct {
	ID      string            `xml:"id,attr"`
	Name    string            `xml:"name,attr"`
	Entries []xmlJournalEntry `xml:"JournalEntry"`
}

type xmlJournalEntry struct {
	ID               string           `xml:"id,attr"`
	JournalDate      string           `xml:"journalDate,attr"`
	Text             string           `xml:"text,attr"`
	RegistrationDate string           `xml:"registrationDate,attr"`
	EntryInfo        xmlEntryInfo     `xml:"EntryInfo"`
	LedgerEntries    []xmlLedgerEntry `xml:"LedgerEntry"`
}

type xmlEntryInfo struct {
	Date string `xml:"date,attr"`
	By   string `xml:"by,attr"`
}

type xmlLedgerEntry struct {
	Account    string `xml:"accountId,attr"`
	AccountAlt string `xml:"account,attr"`
	Amount     string `xml:"amount,attr"`
	Text       string `xml:"text,attr"`
	LedgerDate string `xml:"ledgerDate,attr"`
	Quantity   string `xml:"quantity,attr"`
}

func (l xmlLedgerEntry) account() string {
	if l.Account != "" {
		return l.Account
	}

	return l.AccountAlt
}

// Parse decodes an SIE 5 document. Only an unreadable document is an error;
// bad lines and empty entries are dropped with a warning.
func Parse(data []byte) (*Result, error) {
	dec, err := newDecoder(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedXML, err)
	}

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedXML, err)
	}

	if doc.XMLName.Local != rootFile && doc.XMLName.Local != rootEntry {
		return nil, fmt.Errorf("%w: unexpected root element <%s>", ErrMalformedXML, doc.XMLName.Local)
	}

	res := &Result{
		Fragment:    doc.XMLName.Local == rootEntry,
		CompanyName: doc.FileInfo.Company.Name,
		OrgNumber:   doc.FileInfo.Company.OrganizationID,
		Program:     strings.TrimSpace(doc.FileInfo.SoftwareProduct.Name + " " + doc.FileInfo.SoftwareProduct.Version),
		Accounts:    map[int]ledger.Account{},
	}

	for _, fy := range doc.FileInfo.FiscalYears {
		res.fiscalYear(fy)
	}

	openingMonth := ""
	if fy, ok := res.CurrentYear(); ok {
		openingMonth = fy.Start[:7]
	}

	for _, a := range doc.Accounts {
		res.account(a, openingMonth)
	}

	for _, j := range doc.Journals {
		for _, e := range j.Entries {
			res.entry(j.ID, e)
		}
	}

	return res, nil
}

var declRe = regexp.MustCompile(`^<\?xml[^>]*?\sencoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)

// declaredCharset returns the encoding named by the XML declaration when it is
// a known non-UTF-8 charset.
func declaredCharset(data []byte) xencoding.Encoding {
	m := declRe.FindSubmatch(bytes.TrimLeft(data, " \t\r\n"))
	if m == nil {
		return nil
	}

	label := string(m[1])
	if strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
		return nil
	}

	e, err := ianaindex.IANA.Encoding(label)
	if err != nil || e == nil || e == unicode.UTF8 {
		return nil
	}

	return e
}

// newDecoder honours a declared charset. Without one the content is
// detected and decoded up front.
func newDecoder(data []byte) (*xml.Decoder, error) {
	if e := declaredCharset(data); e != nil {
		dec := xml.NewDecoder(bytes.NewReader(data))
		dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) {
			return e.NewDecoder().Reader(r), nil
		}

		return dec, nil
	}

	text, _, err := enc.Decode(data)
	if err != nil {
		return nil, err
	}

	dec := xml.NewDecoder(strings.NewReader(text))
	// The text is already UTF-8 whatever the declaration says.
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	return dec, nil
}

// Sniff reports whether data looks like an SIE 5 document.
func Sniff(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}

	head = bytes.TrimLeft(bytes.TrimPrefix(head, []byte("\xEF\xBB\xBF")), " \t\r\n")

	return bytes.HasPrefix(head, []byte("<?xml")) ||
		bytes.HasPrefix(head, []byte("<"+rootFile)) ||
		bytes.Contains(head, []byte("sie.se/sie5"))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Result) fiscalYear(fy xmlFiscalYear) {
	start, err := expandDate(fy.Start, false)
	if err != nil {
		r.warnf("fiscal year start %q: %v", fy.Start, err)
		return
	}

	end, err := expandDate(fy.End, true)
	if err != nil {
		r.warnf("fiscal year end %q: %v", fy.End, err)
		return
	}

	r.FiscalYears = append(r.FiscalYears, FiscalYear{Start: start, End: end, Primary: fy.Primary})
}

func (r *Result) account(a xmlAccount, openingMonth string) {
	num, err := strconv.Atoi(strings.TrimSpace(a.ID))
	if err != nil {
		r.warnf("account %q: id is not numeric", a.ID)
		return
	}

	r.Accounts[num] = ledger.Account{Number: num, Name: a.Name, Type: ledger.ParseAccountType(a.Type)}

	for _, ob := range a.Opening {
		if openingMonth != "" && ob.Month != "" && ob.Month != openingMonth {
			continue
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(ob.Amount))
		if err != nil {
			r.warnf("account %d: opening balance %q is not numeric", num, ob.Amount)
			continue
		}

		r.OpeningBalances = append(r.OpeningBalances, ledger.OpeningBalance{AccountNumber: num, Amount: amount})
	}
}

func (r *Result) entry(journal string, e xmlJournalEntry) {
	v := ledger.Verification{
		Series:      journal,
		Number:      e.ID,
		Description: e.Text,
		Signer:      e.EntryInfo.By,
	}
	label := v.Label()

	date, err := expandDate(e.JournalDate, false)
	if err != nil {
		r.warnf("entry %s: journal date %q: %v; entry dropped", label, e.JournalDate, err)
		return
	}

	v.Date = date

	if reg, err := expandDate(firstNonEmpty(e.RegistrationDate, e.EntryInfo.Date), false); err == nil {
		v.RegistrationDate = reg
	}

	for _, le := range e.LedgerEntries {
		account, err := strconv.Atoi(strings.TrimSpace(le.account()))
		if err != nil {
			r.warnf("entry %s: account %q is not numeric; line dropped", label, le.account())
			continue
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(le.Amount))
		if err != nil {
			r.warnf("entry %s: account %d amount %q is not numeric; line dropped", label, account, le.Amount)
			continue
		}

		l := ledger.Line{AccountNumber: account, Amount: amount, Description: le.Text}

		if d, err := expandDate(le.LedgerDate, false); err == nil {
			l.TransactionDate = d
		}

		if q, err := decimal.NewFromString(strings.TrimSpace(le.Quantity)); err == nil {
			l.Quantity = &q
		}

		v.Lines = append(v.Lines, l)
	}

	if len(v.Lines) == 0 {
		r.warnf("entry %s: no valid ledger entries; entry dropped", label)
		return
	}

	r.Verifications = append(r.Verifications, v)
}

// expandDate accepts YYYY-MM-DD, a date-time with that prefix, or YYYY-MM.
// A bare month expands to its first day, or its last day when end is set.
func expandDate(s string, end bool) (string, error) {
	s = strings.TrimSpace(s)

	if len(s) >= len(time.DateOnly) {
		t, err := time.Parse(time.DateOnly, s[:len(time.DateOnly)])
		if err != nil {
			return "", fmt.Errorf("invalid date: %w", err)
		}

		return t.Format(time.DateOnly), nil
	}

	t, err := time.Parse("2006-01", s)
	if err != nil {
		return "", fmt.Errorf("invalid month: %w", err)
	}

	if end {
		// Day 0 of the next month is the last day of this one.
		t = time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	}

	return t.Format(time.DateOnly), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
