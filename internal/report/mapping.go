package report

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
)

// Kind decides which side of an account's balance a field sums. Asset and
// expense fields sum debit minus credit, liability and revenue fields sum
// credit minus debit, so every field surfaces as a positive magnitude in the
// normal case.
type Kind string

const (
	KindAsset     Kind = "asset"
	KindLiability Kind = "liability"
	KindRevenue   Kind = "revenue"
	KindExpense   Kind = "expense"
)

func (k Kind) valid() bool {
	switch k {
	case KindAsset, KindLiability, KindRevenue, KindExpense:
		return true
	}

	return false
}

// debitSide reports whether the field sums debit minus credit.
func (k Kind) debitSide() bool {
	return k == KindAsset || k == KindExpense
}

// Range is an inclusive account-number interval.
type Range struct {
	Start int
	End   int
}

func (r Range) Contains(account int) bool {
	return account >= r.Start && account <= r.End
}

func (r Range) Overlaps(o Range) bool {
	return r.Start <= o.End && o.Start <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// FieldMapping assigns the accounts in Ranges to a report field.
type FieldMapping struct {
	Field  string
	Label  string
	Kind   Kind
	Ranges []Range
}

func (m FieldMapping) Matches(account int) bool {
	for _, r := range m.Ranges {
		if r.Contains(account) {
			return true
		}
	}

	return false
}

// Tables holds the range tables for the grouped reports.
type Tables struct {
	VAT             []FieldMapping
	IncomeStatement []FieldMapping
	BalanceSheet    []FieldMapping
}

// Lookup finds a field in any table.
func (t *Tables) Lookup(field string) (FieldMapping, bool) {
	for _, table := range [][]FieldMapping{t.VAT, t.IncomeStatement, t.BalanceSheet} {
		for _, m := range table {
			if m.Field == field {
				return m, true
			}
		}
	}

	return FieldMapping{}, false
}

var ErrInvalidMapping = errors.New("invalid field mapping")

const (
	vatFile             = "vat.toml"
	incomeStatementFile = "income_statement.toml"
	balanceSheetFile    = "balance_sheet.toml"
)

//go:embed mappings/*.toml
var defaultMappings embed.FS

type tomlTable struct {
	Field []struct {
		Field  string  `toml:"field"`
		Label  string  `toml:"label"`
		Kind   string  `toml:"kind"`
		Ranges [][]int `toml:"ranges"`
	} `toml:"field"`
}

// DefaultTables returns the built-in range tables.
func DefaultTables() (*Tables, error) {
	sub, err := fs.Sub(defaultMappings, "mappings")
	if err != nil {
		return nil, fmt.Errorf("opening embedded mappings: %w", err)
	}

	return loadTables(sub, true)
}

// LoadTables reads the range tables from dir. Files missing from dir fall back
// to the built-in table. An empty dir returns the built-in tables.
func LoadTables(dir string) (*Tables, error) {
	defaults, err := DefaultTables()
	if err != nil {
		return nil, err
	}

	if dir == "" {
		return defaults, nil
	}

	overrides, err := loadTables(os.DirFS(dir), false)
	if err != nil {
		return nil, err
	}

	if overrides.VAT != nil {
		defaults.VAT = overrides.VAT
	}

	if overrides.IncomeStatement != nil {
		defaults.IncomeStatement = overrides.IncomeStatement
	}

	if overrides.BalanceSheet != nil {
		defaults.BalanceSheet = overrides.BalanceSheet
	}

	return defaults, nil
}

func loadTables(fsys fs.FS, required bool) (*Tables, error) {
	var (
		t   Tables
		err error
	)

	if t.VAT, err = loadTable(fsys, vatFile, required); err != nil {
		return nil, err
	}

	if t.IncomeStatement, err = loadTable(fsys, incomeStatementFile, required); err != nil {
		return nil, err
	}

	if t.BalanceSheet, err = loadTable(fsys, balanceSheetFile, required); err != nil {
		return nil, err
	}

	return &t, nil
}

// loadTable returns nil without error for a missing optional file.
func loadTable(fsys fs.FS, name string, required bool) ([]FieldMapping, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	var raw tomlTable
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}

	mappings := make([]FieldMapping, 0, len(raw.Field))

	for _, f := range raw.Field {
		m := FieldMapping{Field: f.Field, Label: f.Label, Kind: Kind(f.Kind)}

		if m.Field == "" {
			return nil, fmt.Errorf("%w: %s: field without name", ErrInvalidMapping, name)
		}

		if !m.Kind.valid() {
			return nil, fmt.Errorf("%w: %s: field %s has kind %q", ErrInvalidMapping, name, m.Field, f.Kind)
		}

		for _, r := range f.Ranges {
			if len(r) != 2 || r[0] > r[1] {
				return nil, fmt.Errorf("%w: %s: field %s has range %v", ErrInvalidMapping, name, m.Field, r)
			}

			m.Ranges = append(m.Ranges, Range{Start: r[0], End: r[1]})
		}

		mappings = append(mappings, m)
	}

	return mappings, nil
}
