package store

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/kassabok/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) FindByFingerprints(ctx context.Context, workspaceID uuid.UUID, fingerprints []string) ([]transaction.Match, error) {
	return findByFingerprints(ctx, s.db, workspaceID, fingerprints)
}

func findByFingerprints(ctx context.Context, q querier, workspaceID uuid.UUID, fingerprints []string) ([]transaction.Match, error) {
	if len(fingerprints) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, fingerprint
		FROM transactions
		WHERE workspace_id = $1 AND fingerprint = ANY($2)
		ORDER BY created_at ASC`

	rows, err := q.QueryContext(ctx, query, workspaceID, fingerprints)
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}
	defer rows.Close()

	var matches []transaction.Match

	for rows.Next() {
		var m transaction.Match
		if err := rows.Scan(&m.ID, &m.Fingerprint); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}

		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating duplicate rows: %w", err)
	}

	return matches, nil
}

func importLockKey(workspaceID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write([]byte("import"))
	h.Write([]byte{0})
	h.Write(workspaceID[:])

	return int64(h.Sum64())
}

type importTx struct {
	tx *sql.Tx
}

// BeginImport opens a transaction holding the workspace's import lock until
// commit or rollback.
func (s *Store) BeginImport(ctx context.Context, workspaceID uuid.UUID) (transaction.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey(workspaceID)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx}, nil
}

func (itx *importTx) Commit() error   { return itx.tx.Commit() }
func (itx *importTx) Rollback() error { return itx.tx.Rollback() }

func (itx *importTx) FindByFingerprints(ctx context.Context, workspaceID uuid.UUID, fingerprints []string) ([]transaction.Match, error) {
	return findByFingerprints(ctx, itx.tx, workspaceID, fingerprints)
}

func (itx *importTx) CreateTransactions(ctx context.Context, txs []*transaction.Transaction) error {
	query := `
		INSERT INTO transactions (workspace_id, fingerprint, date, amount, reference, account_number, series_id, verification_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at
	`

	for _, tx := range txs {
		err := itx.tx.QueryRowContext(ctx, query,
			tx.WorkspaceID,
			tx.Fingerprint,
			tx.Date,
			tx.Amount,
			tx.Reference,
			tx.AccountNumber,
			nullString(tx.SeriesID),
			nullString(tx.VerificationID),
		).Scan(&tx.ID, &tx.CreatedAt)
		if err != nil {
			return fmt.Errorf("creating transaction: %w", err)
		}
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
