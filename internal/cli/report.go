package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/kassabok/internal/ledger"
	"github.com/MrJamesThe3rd/kassabok/internal/report"
	reportStore "github.com/MrJamesThe3rd/kassabok/internal/report/store"
)

var errNoSource = errors.New("give a FILE or both --workspace and --period")

// source is where a report reads its postings from: a file, or a
// workspace's fiscal period in the database.
type source struct {
	file      string
	workspace uuid.UUID
	period    uuid.UUID
}

func (s source) fromDB() bool {
	return s.file == ""
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("workspace", "", "Workspace ID; read postings from the database")
	cmd.Flags().String("period", "", "Fiscal period ID, with --workspace")
}

func resolveSource(cmd *cobra.Command, file string) (source, error) {
	ws, _ := cmd.Flags().GetString("workspace")
	period, _ := cmd.Flags().GetString("period")

	switch {
	case file != "" && (ws != "" || period != ""):
		return source{}, errors.New("give either a FILE or --workspace and --period, not both")
	case file != "":
		return source{file: file}, nil
	case ws == "" || period == "":
		return source{}, errNoSource
	}

	wsID, err := uuid.Parse(ws)
	if err != nil {
		return source{}, fmt.Errorf("invalid --workspace %q: %w", ws, err)
	}

	periodID, err := uuid.Parse(period)
	if err != nil {
		return source{}, fmt.Errorf("invalid --period %q: %w", period, err)
	}

	return source{workspace: wsID, period: periodID}, nil
}

func (a *app) reportService(cmd *cobra.Command) (*report.Service, error) {
	db, err := a.openDB(cmd.Context())
	if err != nil {
		return nil, err
	}

	return report.NewService(reportStore.New(db), a.tables, a.logger, a.metrics), nil
}

func (a *app) filePostings(path string) ([]ledger.Posting, error) {
	res, err := a.importFile(path)
	if err != nil {
		return nil, err
	}

	return res.Postings(), nil
}

// parseManual reads --manual FIELD=KRONOR pairs into öre.
func parseManual(raw map[string]string) (map[string]int64, error) {
	values := make(map[string]decimal.Decimal, len(raw))

	for _, k := range sortedKeys(raw) {
		v, err := decimal.NewFromString(raw[k])
		if err != nil {
			return nil, fmt.Errorf("manual value %s=%q is not a number", k, raw[k])
		}

		values[k] = v
	}

	return report.ManualToOre(values), nil
}

func optionalFile(args []string) string {
	if len(args) > 0 {
		return args[0]
	}

	return ""
}

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Derive reports from a SIE file or a stored fiscal period",
	}

	cmd.AddCommand(
		newNECmd(a),
		newGroupedReportCmd(a, "vat", "Momsdeklaration boxes", func(s *report.Service) groupedFetch { return s.VAT },
			func(b []report.AccountBalance, t *report.Tables) []report.GroupValue { return report.VATReport(b, t.VAT) }),
		newGroupedReportCmd(a, "income", "Grouped income statement", func(s *report.Service) groupedFetch { return s.IncomeStatement },
			func(b []report.AccountBalance, t *report.Tables) []report.GroupValue { return report.IncomeStatement(b, t.IncomeStatement) }),
		newGroupedReportCmd(a, "balance", "Grouped balance sheet", func(s *report.Service) groupedFetch { return s.BalanceSheet },
			func(b []report.AccountBalance, t *report.Tables) []report.GroupValue { return report.Group(b, t.BalanceSheet) }),
	)

	return cmd
}

type neFieldJSON struct {
	Field  string `json:"field"`
	Label  string `json:"label"`
	Ore    int64  `json:"ore"`
	Kronor int64  `json:"kronor"`
	Manual bool   `json:"manual,omitempty"`
}

type neJSON struct {
	Fields         []neFieldJSON `json:"fields"`
	NegativeAssets []string      `json:"negative_assets"`
	IgnoredManual  []string      `json:"ignored_manual"`
}

func toNEJSON(fs *report.FieldSet) neJSON {
	out := neJSON{
		NegativeAssets: nonNil(fs.NegativeAssets),
		IgnoredManual:  nonNil(fs.IgnoredManual),
	}

	for _, f := range fs.Fields() {
		out.Fields = append(out.Fields, neFieldJSON{
			Field:  f.Field,
			Label:  f.Label,
			Ore:    f.Value,
			Kronor: fs.Kronor(f.Field),
			Manual: f.Manual,
		})
	}

	return out
}

func newNECmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ne [FILE]",
		Short: "Derive the NE-bilaga",
		Long: `Derive the NE-bilaga for a sole proprietorship. Manual tax adjustments are
given in kronor with --manual when reading a file; a stored fiscal period uses
the adjustments saved for it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := resolveSource(cmd, optionalFile(args))
			if err != nil {
				return err
			}

			rawManual, _ := cmd.Flags().GetStringToString("manual")

			var fs *report.FieldSet

			if src.fromDB() {
				if len(rawManual) > 0 {
					return errors.New("--manual only applies to file reports")
				}

				svc, err := a.reportService(cmd)
				if err != nil {
					return err
				}

				if fs, err = svc.NE(cmd.Context(), src.workspace, src.period); err != nil {
					return err
				}
			} else {
				manual, err := parseManual(rawManual)
				if err != nil {
					return err
				}

				postings, err := a.filePostings(src.file)
				if err != nil {
					return err
				}

				fs = report.DeriveNE(report.AggregateBalances(postings), manual)
				a.metrics.AddNegativeAssets(len(fs.NegativeAssets))
			}

			return writeJSON(cmd.OutOrStdout(), toNEJSON(fs))
		},
	}

	addSourceFlags(cmd)
	cmd.Flags().StringToString("manual", nil, "Manual adjustment in kronor, e.g. R12=1000 (repeatable)")

	return cmd
}

type groupedFetch func(ctx context.Context, workspaceID, periodID uuid.UUID) ([]report.GroupValue, error)

func newGroupedReportCmd(
	a *app,
	use, short string,
	fetch func(*report.Service) groupedFetch,
	derive func([]report.AccountBalance, *report.Tables) []report.GroupValue,
) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " [FILE]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := resolveSource(cmd, optionalFile(args))
			if err != nil {
				return err
			}

			var groups []report.GroupValue

			if src.fromDB() {
				svc, err := a.reportService(cmd)
				if err != nil {
					return err
				}

				if groups, err = fetch(svc)(cmd.Context(), src.workspace, src.period); err != nil {
					return err
				}
			} else {
				postings, err := a.filePostings(src.file)
				if err != nil {
					return err
				}

				groups = derive(report.AggregateBalances(postings), a.tables)
			}

			return writeJSON(cmd.OutOrStdout(), groups)
		},
	}

	addSourceFlags(cmd)

	return cmd
}

type drilldownJSON struct {
	Field          string        `json:"field"`
	Label          string        `json:"label"`
	Kind           report.Kind   `json:"kind"`
	Ranges         []string      `json:"ranges"`
	Value          int64         `json:"value"`
	OpeningBalance int64         `json:"opening_balance"`
	Accounts       []accountJSON `json:"accounts"`
	Lines          []postingJSON `json:"lines"`
}

type accountJSON struct {
	Number  int    `json:"number"`
	Name    string `json:"name,omitempty"`
	Debit   int64  `json:"debit"`
	Credit  int64  `json:"credit"`
	Balance int64  `json:"balance"`
}

type postingJSON struct {
	Entry       string `json:"entry,omitempty"`
	Date        string `json:"date"`
	Account     int    `json:"account"`
	Description string `json:"description,omitempty"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
}

func toDrilldownJSON(d *report.Drilldown) drilldownJSON {
	out := drilldownJSON{
		Field:          d.Field,
		Label:          d.Label,
		Kind:           d.Kind,
		Value:          d.Value,
		OpeningBalance: d.OpeningBalance,
		Accounts:       make([]accountJSON, 0, len(d.Accounts)),
		Lines:          make([]postingJSON, 0, len(d.Lines)),
	}

	for _, r := range d.Ranges {
		out.Ranges = append(out.Ranges, r.String())
	}

	for _, b := range d.Accounts {
		out.Accounts = append(out.Accounts, accountJSON{
			Number: b.AccountNumber, Name: b.AccountName, Debit: b.Debit, Credit: b.Credit, Balance: b.Balance,
		})
	}

	for _, p := range d.Lines {
		desc := p.Description
		if desc == "" {
			desc = p.EntryDescription
		}

		out.Lines = append(out.Lines, postingJSON{
			Entry:       p.Series + p.Number,
			Date:        p.Date.Format(time.DateOnly),
			Account:     p.AccountNumber,
			Description: desc,
			Debit:       p.Debit.StringFixed(2),
			Credit:      p.Credit.StringFixed(2),
		})
	}

	return out
}

func newExplainCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain FIELD [FILE]",
		Short: "Show the accounts and lines behind a report field",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			field := args[0]

			src, err := resolveSource(cmd, optionalFile(args[1:]))
			if err != nil {
				return err
			}

			var d *report.Drilldown

			if src.fromDB() {
				svc, err := a.reportService(cmd)
				if err != nil {
					return err
				}

				d, err = svc.Explain(cmd.Context(), src.workspace, src.period, field)
				if err != nil {
					return err
				}
			} else {
				postings, err := a.filePostings(src.file)
				if err != nil {
					return err
				}

				if d, err = report.Explain(field, postings, a.tables); err != nil {
					return err
				}
			}

			return writeJSON(cmd.OutOrStdout(), toDrilldownJSON(d))
		},
	}

	addSourceFlags(cmd)

	return cmd
}
