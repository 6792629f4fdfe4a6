package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/kassabok/internal/ledger"
	"github.com/MrJamesThe3rd/kassabok/internal/observability"
)

var tracer = otel.Tracer("report")

// FiscalPeriod is a workspace's fiscal year.
type FiscalPeriod struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	Start       time.Time
	End         time.Time
}

// PostingFilter selects the postings of a fiscal period. Ranges, when set,
// restricts the accounts.
type PostingFilter struct {
	WorkspaceID uuid.UUID
	Start       time.Time
	End         time.Time
	Ranges      []Range
}

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=report
type Repository interface {
	// GetFiscalPeriod returns ErrNotFound when the period does not belong to the workspace.
	GetFiscalPeriod(ctx context.Context, workspaceID, periodID uuid.UUID) (*FiscalPeriod, error)
	ListPostings(ctx context.Context, filter PostingFilter) ([]ledger.Posting, error)
	ListManualValues(ctx context.Context, workspaceID, periodID uuid.UUID) (map[string]decimal.Decimal, error)
}

type Service struct {
	repo    Repository
	tables  *Tables
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewService(repo Repository, tables *Tables, logger *zap.Logger, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, tables: tables, logger: logger, metrics: metrics}
}

// NE derives the NE-bilaga for a fiscal period from the stored postings and
// the saved manual adjustments.
func (s *Service) NE(ctx context.Context, workspaceID, periodID uuid.UUID) (*FieldSet, error) {
	ctx, span := tracer.Start(ctx, "ReportService.NE")
	defer span.End()
	span.SetAttributes(
		attribute.String("workspace.id", workspaceID.String()),
		attribute.String("period.id", periodID.String()),
	)

	start := time.Now()

	period, err := s.period(ctx, workspaceID, periodID)
	if err != nil {
		return nil, err
	}

	var (
		postings []ledger.Posting
		manual   map[string]decimal.Decimal
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		postings, err = s.repo.ListPostings(gctx, periodFilter(period))
		if err != nil {
			return fmt.Errorf("listing postings: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		var err error

		manual, err = s.repo.ListManualValues(gctx, workspaceID, periodID)
		if err != nil {
			return fmt.Errorf("listing manual values: %w", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	fs := DeriveNE(AggregateBalances(postings), ManualToOre(manual))

	s.metrics.AddNegativeAssets(len(fs.NegativeAssets))
	s.metrics.RecordDuration("ne", time.Since(start))

	if len(fs.NegativeAssets) > 0 {
		s.logger.Warn("negative asset fields",
			zap.String("workspace_id", workspaceID.String()),
			zap.Strings("fields", fs.NegativeAssets),
		)
	}

	if len(fs.IgnoredManual) > 0 {
		s.logger.Warn("ignored manual values", zap.Strings("fields", fs.IgnoredManual))
	}

	return fs, nil
}

// VAT derives the momsdeklaration boxes for a fiscal period.
func (s *Service) VAT(ctx context.Context, workspaceID, periodID uuid.UUID) ([]GroupValue, error) {
	ctx, span := tracer.Start(ctx, "ReportService.VAT")
	defer span.End()

	balances, err := s.balances(ctx, workspaceID, periodID)
	if err != nil {
		return nil, err
	}

	return VATReport(balances, s.tables.VAT), nil
}

// IncomeStatement groups a fiscal period's postings by the income statement table.
func (s *Service) IncomeStatement(ctx context.Context, workspaceID, periodID uuid.UUID) ([]GroupValue, error) {
	ctx, span := tracer.Start(ctx, "ReportService.IncomeStatement")
	defer span.End()

	balances, err := s.balances(ctx, workspaceID, periodID)
	if err != nil {
		return nil, err
	}

	return IncomeStatement(balances, s.tables.IncomeStatement), nil
}

// BalanceSheet groups a fiscal period's postings by the balance sheet table.
func (s *Service) BalanceSheet(ctx context.Context, workspaceID, periodID uuid.UUID) ([]GroupValue, error) {
	ctx, span := tracer.Start(ctx, "ReportService.BalanceSheet")
	defer span.End()

	balances, err := s.balances(ctx, workspaceID, periodID)
	if err != nil {
		return nil, err
	}

	return Group(balances, s.tables.BalanceSheet), nil
}

// Explain returns the accounts and postings behind one field. Only the
// field's account ranges are fetched.
func (s *Service) Explain(ctx context.Context, workspaceID, periodID uuid.UUID, field string) (*Drilldown, error) {
	ctx, span := tracer.Start(ctx, "ReportService.Explain")
	defer span.End()
	span.SetAttributes(attribute.String("field", field))

	m, err := ResolveField(field, s.tables)
	if err != nil {
		return nil, err
	}

	period, err := s.period(ctx, workspaceID, periodID)
	if err != nil {
		return nil, err
	}

	filter := periodFilter(period)
	filter.Ranges = m.Ranges

	postings, err := s.repo.ListPostings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing postings: %w", err)
	}

	return Explain(field, postings, s.tables)
}

func (s *Service) period(ctx context.Context, workspaceID, periodID uuid.UUID) (*FiscalPeriod, error) {
	period, err := s.repo.GetFiscalPeriod(ctx, workspaceID, periodID)
	if err != nil {
		return nil, fmt.Errorf("getting fiscal period: %w", err)
	}

	return period, nil
}

func (s *Service) balances(ctx context.Context, workspaceID, periodID uuid.UUID) ([]AccountBalance, error) {
	period, err := s.period(ctx, workspaceID, periodID)
	if err != nil {
		return nil, err
	}

	postings, err := s.repo.ListPostings(ctx, periodFilter(period))
	if err != nil {
		return nil, fmt.Errorf("listing postings: %w", err)
	}

	return AggregateBalances(postings), nil
}

func periodFilter(p *FiscalPeriod) PostingFilter {
	return PostingFilter{WorkspaceID: p.WorkspaceID, Start: p.Start, End: p.End}
}

// ManualToOre converts saved manual values in kronor to öre.
func ManualToOre(values map[string]decimal.Decimal) map[string]int64 {
	out := make(map[string]int64, len(values))
	for k, v := range values {
		out[k] = ToOre(v)
	}

	return out
}
