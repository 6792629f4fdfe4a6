package importer

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/kassabok/internal/ledger"
	"github.com/MrJamesThe3rd/kassabok/internal/observability"
)

// Result is an imported file normalised to canonical transactions.
type Result struct {
	Format Format
	*Parsed

	Transactions []ledger.RawTransaction
	Unbalanced   []ledger.Unbalanced
}

// BankTransactions returns the transactions posted to bank and cash accounts.
func (r *Result) BankTransactions() []ledger.RawTransaction {
	return ledger.FilterBankAccounts(r.Transactions)
}

// Postings returns every ledger line as a posting, opening balances included.
func (r *Result) Postings() []ledger.Posting {
	names := make(map[int]string, len(r.Accounts))
	for n, a := range r.Accounts {
		names[n] = a.Name
	}

	return ledger.Postings(r.Verifications, r.OpeningBalances, r.FiscalYearStart, names)
}

type Service struct {
	importers map[Format]Importer
	logger    *zap.Logger
	metrics   *observability.Metrics
}

func NewService(logger *zap.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		importers: map[Format]Importer{
			FormatSIE:  legacyImporter{},
			FormatSIE5: xmlImporter{},
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Import reads an interchange file, detects its format and normalises it.
// Only an unreadable or unrecognised file is an error; record-level defects
// are reported in the result.
func (s *Service) Import(name string, r io.Reader) (*Result, error) {
	start := time.Now()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	format, err := Detect(name, data)
	if err != nil {
		return nil, fmt.Errorf("detecting format of %s: %w", name, err)
	}

	importer, ok := s.importers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	parsed, err := importer.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}

	res := &Result{
		Format:       format,
		Parsed:       parsed,
		Transactions: ledger.Transactions(parsed.Verifications),
		Unbalanced:   ledger.CheckBalance(parsed.Verifications),
	}

	s.metrics.RecordImport(string(format), string(parsed.Encoding),
		len(parsed.Verifications), len(parsed.Errors), len(parsed.Warnings), len(res.Unbalanced))
	s.metrics.RecordDuration("import", time.Since(start))

	s.logger.Info("file imported",
		zap.String("file", name),
		zap.String("format", string(format)),
		zap.String("encoding", string(parsed.Encoding)),
		zap.Int("verifications", len(parsed.Verifications)),
		zap.Int("transactions", len(res.Transactions)),
		zap.Int("errors", len(parsed.Errors)),
		zap.Int("warnings", len(parsed.Warnings)),
		zap.Int("unbalanced", len(res.Unbalanced)),
	)

	for _, u := range res.Unbalanced {
		s.logger.Warn("unbalanced entry",
			zap.String("entry", u.Series+u.Number),
			zap.String("difference", u.Difference().String()),
		)
	}

	return res, nil
}
