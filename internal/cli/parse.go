package cli

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/kassabok/internal/importer"
	"github.com/MrJamesThe3rd/kassabok/internal/ledger"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

type fileSummary struct {
	File            string           `json:"file"`
	Format          importer.Format  `json:"format"`
	Encoding        string           `json:"encoding"`
	Company         string           `json:"company,omitempty"`
	OrgNumber       string           `json:"org_number,omitempty"`
	Program         string           `json:"program,omitempty"`
	FiscalYearStart string           `json:"fiscal_year_start,omitempty"`
	FiscalYearEnd   string           `json:"fiscal_year_end,omitempty"`
	Accounts        int              `json:"accounts"`
	OpeningBalances int              `json:"opening_balances"`
	Verifications   int              `json:"verifications"`
	Transactions    int              `json:"transactions"`
	Errors          []string         `json:"errors"`
	Warnings        []string         `json:"warnings"`
	Unbalanced      []unbalancedJSON `json:"unbalanced"`
}

type unbalancedJSON struct {
	Entry      string `json:"entry"`
	Debit      string `json:"debit"`
	Credit     string `json:"credit"`
	Difference string `json:"difference"`
}

func summarize(path string, res *importer.Result) fileSummary {
	s := fileSummary{
		File:            path,
		Format:          res.Format,
		Encoding:        string(res.Encoding),
		Company:         res.CompanyName,
		OrgNumber:       res.OrgNumber,
		Program:         res.Program,
		FiscalYearStart: res.FiscalYearStart,
		FiscalYearEnd:   res.FiscalYearEnd,
		Accounts:        len(res.Accounts),
		OpeningBalances: len(res.OpeningBalances),
		Verifications:   len(res.Verifications),
		Transactions:    len(res.Transactions),
		Errors:          nonNil(res.Errors),
		Warnings:        nonNil(res.Warnings),
		Unbalanced:      []unbalancedJSON{},
	}

	for _, u := range res.Unbalanced {
		s.Unbalanced = append(s.Unbalanced, unbalancedJSON{
			Entry:      u.Series + u.Number,
			Debit:      u.Debit.StringFixed(2),
			Credit:     u.Credit.StringFixed(2),
			Difference: u.Difference().StringFixed(2),
		})
	}

	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}

func newParseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a SIE file and report its content and defects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.importFile(args[0])
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), summarize(args[0], res))
		},
	}
}

type transactionJSON struct {
	Date           string `json:"date"`
	Amount         string `json:"amount"`
	Reference      string `json:"reference"`
	AccountNumber  *int   `json:"account_number,omitempty"`
	SeriesID       string `json:"series_id,omitempty"`
	VerificationID string `json:"verification_id,omitempty"`
}

func newTransactionJSON(tx ledger.RawTransaction) transactionJSON {
	return transactionJSON{
		Date:           tx.Date,
		Amount:         tx.Amount.StringFixed(2),
		Reference:      tx.Reference,
		AccountNumber:  tx.AccountNumber,
		SeriesID:       tx.SeriesID,
		VerificationID: tx.VerificationID,
	}
}

func toTransactionJSON(txs []ledger.RawTransaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, newTransactionJSON(tx))
	}

	return out
}

func newTransactionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions FILE",
		Short: "List the normalised transactions of a SIE file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.importFile(args[0])
			if err != nil {
				return err
			}

			txs := res.Transactions
			if bankOnly, _ := cmd.Flags().GetBool("bank-only"); bankOnly {
				txs = res.BankTransactions()
			}

			return writeJSON(cmd.OutOrStdout(), toTransactionJSON(txs))
		},
	}

	cmd.Flags().Bool("bank-only", false, "Only list lines posted to bank and cash accounts (1900-1999)")

	return cmd
}

// sortedKeys returns the keys of m in order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
