package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/kassabok/internal/ledger"
	"github.com/MrJamesThe3rd/kassabok/internal/observability"
)

var tracer = otel.Tracer("transaction")

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	FindByFingerprints(ctx context.Context, workspaceID uuid.UUID, fingerprints []string) ([]Match, error)
	BeginImport(ctx context.Context, workspaceID uuid.UUID) (ImportTx, error)
}

type ImportTx interface {
	FindByFingerprints(ctx context.Context, workspaceID uuid.UUID, fingerprints []string) ([]Match, error)
	CreateTransactions(ctx context.Context, txs []*Transaction) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo    Repository
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewService(repo Repository, logger *zap.Logger, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, logger: logger, metrics: metrics}
}

// Classification is the dedup outcome for one candidate, in input order.
type Classification struct {
	Candidate   ledger.RawTransaction
	Date        string // normalised, empty when unfingerprintable
	Fingerprint string
	Status      Status
	// ExistingID is set for StatusDuplicate only.
	ExistingID *uuid.UUID
}

type DedupResult struct {
	Classifications []Classification
}

// Count returns how many candidates have status.
func (r *DedupResult) Count(status Status) int {
	n := 0

	for _, c := range r.Classifications {
		if c.Status == status {
			n++
		}
	}

	return n
}

type lookupFunc func(ctx context.Context, workspaceID uuid.UUID, fingerprints []string) ([]Match, error)

// CheckDuplicates classifies candidates against the transactions already
// stored in the workspace with a single batched lookup. The first occurrence
// of a fingerprint within the batch is unique and later ones are
// duplicate-in-batch.
func (s *Service) CheckDuplicates(ctx context.Context, workspaceID uuid.UUID, candidates []ledger.RawTransaction) (*DedupResult, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.CheckDuplicates")
	defer span.End()
	span.SetAttributes(
		attribute.String("workspace.id", workspaceID.String()),
		attribute.Int("candidates", len(candidates)),
	)

	return s.classify(ctx, workspaceID, candidates, s.repo.FindByFingerprints)
}

// ImportResult lists what an import stored and what it skipped.
type ImportResult struct {
	Imported []*Transaction
	Skipped  []Classification
	// Classifications covers every candidate in input order.
	Classifications []Classification
}

// Import stores the unique candidates in the workspace. The duplicate check
// and the inserts run in one locked import transaction so that two imports of
// the same file cannot both insert.
func (s *Service) Import(ctx context.Context, workspaceID uuid.UUID, candidates []ledger.RawTransaction) (*ImportResult, error) {
	ctx, span := tracer.Start(ctx, "TransactionService.Import")
	defer span.End()
	span.SetAttributes(attribute.String("workspace.id", workspaceID.String()))

	if len(candidates) == 0 {
		return &ImportResult{}, nil
	}

	itx, err := s.repo.BeginImport(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	res, err := s.classify(ctx, workspaceID, candidates, itx.FindByFingerprints)
	if err != nil {
		return nil, err
	}

	out := &ImportResult{Classifications: res.Classifications}

	for _, c := range res.Classifications {
		if c.Status != StatusUnique {
			out.Skipped = append(out.Skipped, c)
			continue
		}

		date, _ := time.Parse(time.DateOnly, c.Date)
		out.Imported = append(out.Imported, &Transaction{
			WorkspaceID:    workspaceID,
			Fingerprint:    c.Fingerprint,
			Date:           date,
			Amount:         c.Candidate.Amount,
			Reference:      c.Candidate.Reference,
			AccountNumber:  c.Candidate.AccountNumber,
			SeriesID:       c.Candidate.SeriesID,
			VerificationID: c.Candidate.VerificationID,
		})
	}

	if len(out.Imported) > 0 {
		if err := itx.CreateTransactions(ctx, out.Imported); err != nil {
			return nil, fmt.Errorf("create transactions: %w", err)
		}
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	s.logger.Info("transactions imported",
		zap.String("workspace_id", workspaceID.String()),
		zap.Int("imported", len(out.Imported)),
		zap.Int("skipped", len(out.Skipped)),
	)

	return out, nil
}

func (s *Service) classify(ctx context.Context, workspaceID uuid.UUID, candidates []ledger.RawTransaction, lookup lookupFunc) (*DedupResult, error) {
	start := time.Now()

	res := &DedupResult{Classifications: make([]Classification, len(candidates))}

	var hashes []string

	requested := make(map[string]struct{}, len(candidates))

	for i, c := range candidates {
		cl := Classification{Candidate: c}

		date, ok := NormalizeDate(c.Date)
		if ok {
			cl.Date = date
			cl.Fingerprint = Fingerprint(date, c.Amount, c.Reference)

			if _, seen := requested[cl.Fingerprint]; !seen {
				requested[cl.Fingerprint] = struct{}{}
				hashes = append(hashes, cl.Fingerprint)
			}
		} else {
			cl.Status = StatusUnfingerprintable
		}

		res.Classifications[i] = cl
	}

	existing := make(map[string]uuid.UUID)

	if len(hashes) > 0 {
		matches, err := lookup(ctx, workspaceID, hashes)
		if err != nil {
			return nil, fmt.Errorf("find by fingerprints: %w", err)
		}

		for _, m := range matches {
			if _, ok := existing[m.Fingerprint]; !ok {
				existing[m.Fingerprint] = m.ID
			}
		}
	}

	seen := make(map[string]struct{}, len(hashes))

	for i := range res.Classifications {
		cl := &res.Classifications[i]

		switch {
		case cl.Status == StatusUnfingerprintable:
		case hasKey(existing, cl.Fingerprint):
			id := existing[cl.Fingerprint]
			cl.Status = StatusDuplicate
			cl.ExistingID = &id
		case hasKey(seen, cl.Fingerprint):
			cl.Status = StatusDuplicateInBatch
		default:
			cl.Status = StatusUnique
			seen[cl.Fingerprint] = struct{}{}
		}

		s.metrics.IncrDedup(string(cl.Status))
	}

	s.metrics.RecordDuration("dedup", time.Since(start))

	s.logger.Debug("dedup classified",
		zap.String("workspace_id", workspaceID.String()),
		zap.Int("candidates", len(candidates)),
		zap.Int("unique", res.Count(StatusUnique)),
		zap.Int("duplicate", res.Count(StatusDuplicate)),
		zap.Int("duplicate_in_batch", res.Count(StatusDuplicateInBatch)),
		zap.Int("unfingerprintable", res.Count(StatusUnfingerprintable)),
	)

	return res, nil
}

func hasKey[V any](m map[string]V, k string) bool {
	_, ok := m[k]
	return ok
}
