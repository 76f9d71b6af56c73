package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// AggregationService computes period financial summaries. It performs no writes.
type AggregationService interface {
	// Summarize reports over [start, end). A nil bound is filled from the
	// calendar month of the other bound, or of the current time when both are nil.
	Summarize(ctx context.Context, start, end *time.Time) (*entity.FinancialSummary, error)
}

type aggregationServiceImpl struct {
	incomeRepo  port.IncomeRepository
	ledgerRepo  port.LedgerRepository
	requestRepo port.RequestRepository
	logger      Logger
	now         func() time.Time
}

// NewAggregationService creates a new AggregationService
func NewAggregationService(
	incomeRepo port.IncomeRepository,
	ledgerRepo port.LedgerRepository,
	requestRepo port.RequestRepository,
	logger Logger,
) AggregationService {
	return &aggregationServiceImpl{
		incomeRepo:  incomeRepo,
		ledgerRepo:  ledgerRepo,
		requestRepo: requestRepo,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *aggregationServiceImpl) Summarize(ctx context.Context, start, end *time.Time) (*entity.FinancialSummary, error) {
	from, to := ResolveRange(start, end, s.now())
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: start must be before end", port.ErrValidation)
	}

	income, err := s.incomeRepo.SumInRange(ctx, from, to)
	if err != nil {
		s.logger.Error("Failed to sum income", "error", err)
		return nil, fmt.Errorf("sum income: %w", err)
	}

	// entries materialized from requests are counted through the requests below
	ledger, err := s.ledgerRepo.SumExpenses(ctx, from, to, true)
	if err != nil {
		s.logger.Error("Failed to sum ledger expenses", "error", err)
		return nil, fmt.Errorf("sum ledger expenses: %w", err)
	}

	approved, err := s.requestRepo.ListApprovedInRange(ctx, from, to)
	if err != nil {
		s.logger.Error("Failed to list approved requests", "error", err)
		return nil, fmt.Errorf("list approved requests: %w", err)
	}
	personal := decimal.Zero
	for _, req := range approved {
		personal = personal.Add(req.RecognizedAmount())
	}

	expenses := ledger.Add(personal)
	summary := &entity.FinancialSummary{
		Start:                 from,
		End:                   to,
		TotalIncome:           income,
		TotalLedgerExpenses:   ledger,
		TotalPersonalApproved: personal,
		TotalExpenses:         expenses,
		Remaining:             income.Sub(expenses),
	}

	s.logger.Info("Summary computed",
		"start", from.Format(time.RFC3339),
		"end", to.Format(time.RFC3339),
		"remaining", summary.Remaining.String(),
		"approved_requests", len(approved))
	return summary, nil
}

// ResolveRange fills missing bounds of a half-open reporting range
func ResolveRange(start, end *time.Time, now time.Time) (time.Time, time.Time) {
	switch {
	case start == nil && end == nil:
		first := monthStart(now)
		return first, first.AddDate(0, 1, 0)
	case start == nil:
		to := end.UTC()
		return monthStart(to.Add(-time.Nanosecond)), to
	case end == nil:
		from := start.UTC()
		return from, monthStart(from).AddDate(0, 1, 0)
	default:
		return start.UTC(), end.UTC()
	}
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
