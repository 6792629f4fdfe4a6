package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/kassabok/internal/ledger"
	"github.com/MrJamesThe3rd/kassabok/internal/report"
)

// entryTypeOpening marks journal entries carrying opening balances.
const entryTypeOpening = "opening_balance"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetFiscalPeriod(ctx context.Context, workspaceID, periodID uuid.UUID) (*report.FiscalPeriod, error) {
	query := `
		SELECT id, workspace_id, start_date, end_date
		FROM fiscal_periods
		WHERE id = $1 AND workspace_id = $2`

	var p report.FiscalPeriod

	err := s.db.QueryRowContext(ctx, query, periodID, workspaceID).Scan(&p.ID, &p.WorkspaceID, &p.Start, &p.End)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("fiscal period %s: %w", periodID, report.ErrNotFound)
		}

		return nil, fmt.Errorf("getting fiscal period: %w", err)
	}

	return &p, nil
}

// ListPostings returns the lines of the workspace's journal entries dated
// within the filter's period, joined with their entry and account name.
func (s *Store) ListPostings(ctx context.Context, filter report.PostingFilter) ([]ledger.Posting, error) {
	query := `
		SELECT e.id, e.series, e.number, e.entry_date, e.description, e.entry_type = $4,
			l.account_number, COALESCE(a.name, ''), COALESCE(l.description, ''), l.debit, l.credit
		FROM journal_entry_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		LEFT JOIN accounts a ON a.workspace_id = e.workspace_id AND a.number = l.account_number
		WHERE e.workspace_id = $1 AND e.entry_date >= $2 AND e.entry_date <= $3`

	args := []any{filter.WorkspaceID, filter.Start, filter.End, entryTypeOpening}
	argIdx := len(args) + 1

	if len(filter.Ranges) > 0 {
		query += " AND ("

		for i, r := range filter.Ranges {
			if i > 0 {
				query += " OR "
			}

			query += fmt.Sprintf("l.account_number BETWEEN $%d AND $%d", argIdx, argIdx+1)

			args = append(args, r.Start, r.End)
			argIdx += 2
		}

		query += ")"
	}

	query += " ORDER BY e.entry_date ASC, e.series ASC, e.number ASC, l.id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing postings: %w", err)
	}
	defer rows.Close()

	var postings []ledger.Posting

	for rows.Next() {
		var (
			p    ledger.Posting
			desc sql.NullString
		)

		if err := rows.Scan(
			&p.EntryID, &p.Series, &p.Number, &p.Date, &desc, &p.Opening,
			&p.AccountNumber, &p.AccountName, &p.Description, &p.Debit, &p.Credit,
		); err != nil {
			return nil, fmt.Errorf("scanning posting: %w", err)
		}

		p.EntryDescription = desc.String
		postings = append(postings, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating posting rows: %w", err)
	}

	return postings, nil
}

func (s *Store) ListManualValues(ctx context.Context, workspaceID, periodID uuid.UUID) (map[string]decimal.Decimal, error) {
	query := `
		SELECT field, value
		FROM ne_manual_values
		WHERE workspace_id = $1 AND fiscal_period_id = $2`

	rows, err := s.db.QueryContext(ctx, query, workspaceID, periodID)
	if err != nil {
		return nil, fmt.Errorf("listing manual values: %w", err)
	}
	defer rows.Close()

	values := make(map[string]decimal.Decimal)

	for rows.Next() {
		var (
			field string
			value decimal.Decimal
		)

		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("scanning manual value: %w", err)
		}

		values[field] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating manual value rows: %w", err)
	}

	return values, nil
}
