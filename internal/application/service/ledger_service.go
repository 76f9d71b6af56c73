package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// LedgerEntryInput carries an organizational expense recorded by an admin
type LedgerEntryInput struct {
	BatchID      *int64
	Category     string
	Title        string
	AmountMin    decimal.Decimal
	AmountAvg    decimal.Decimal
	AmountMax    decimal.Decimal
	ActualAmount *decimal.Decimal
	Unit         string
	Note         string
	Date         time.Time
	Attachments  []entity.AttachmentMeta
}

// IncomeInput carries a recognized inflow
type IncomeInput struct {
	Source   string
	Amount   decimal.Decimal
	Currency string
	Note     string
	Date     time.Time
}

// LedgerService records ledger expenses and income
type LedgerService interface {
	CreateLedgerEntry(ctx context.Context, actorID string, input LedgerEntryInput) (*entity.LedgerEntry, error)
	CreateIncome(ctx context.Context, actorID string, input IncomeInput) (*entity.IncomeEntry, error)
}

type ledgerServiceImpl struct {
	ledgerRepo      port.LedgerRepository
	incomeRepo      port.IncomeRepository
	categories      port.CategoryLookup
	audit           AuditRecorder
	defaultCurrency string
	logger          Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	ledgerRepo port.LedgerRepository,
	incomeRepo port.IncomeRepository,
	categories port.CategoryLookup,
	audit AuditRecorder,
	defaultCurrency string,
	logger Logger,
) LedgerService {
	return &ledgerServiceImpl{
		ledgerRepo:      ledgerRepo,
		incomeRepo:      incomeRepo,
		categories:      categories,
		audit:           audit,
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}

func (s *ledgerServiceImpl) CreateLedgerEntry(ctx context.Context, actorID string, input LedgerEntryInput) (*entity.LedgerEntry, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", port.ErrValidation)
	}
	if strings.HasPrefix(input.Title, entity.PersonalTitlePrefix) {
		return nil, fmt.Errorf("%w: title prefix %q is reserved", port.ErrValidation, strings.TrimSpace(entity.PersonalTitlePrefix))
	}
	if input.ActualAmount != nil && input.ActualAmount.IsNegative() {
		return nil, fmt.Errorf("%w: actual_amount cannot be negative", port.ErrValidation)
	}

	entry := &entity.LedgerEntry{
		BatchID:     input.BatchID,
		Title:       strings.TrimSpace(input.Title),
		AmountMin:   input.AmountMin,
		AmountAvg:   input.AmountAvg,
		AmountMax:   input.AmountMax,
		Unit:        input.Unit,
		Note:        input.Note,
		Date:        input.Date,
		CreatedBy:   actorID,
		Attachments: append([]entity.AttachmentMeta{}, input.Attachments...),
	}
	if entry.Date.IsZero() {
		entry.Date = time.Now().UTC()
	}
	if input.ActualAmount != nil {
		entry.ActualAmount = decimal.NewNullDecimal(*input.ActualAmount)
	}
	if strings.TrimSpace(input.Category) != "" {
		id, err := s.categories.ResolveCategory(ctx, input.Category)
		if err != nil {
			return nil, err
		}
		entry.CategoryID = &id
	}

	if err := s.ledgerRepo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to create ledger entry", "error", err, "title", entry.Title)
		return nil, err
	}

	s.audit.Record(ctx, entity.EntityLedgerEntry, strconv.FormatInt(entry.ID, 10), entity.ActionCreate, actorRef(actorID),
		map[string]interface{}{"title": entry.Title, "amount": entry.RecognizedAmount().String()})
	s.logger.Info("Ledger entry created", "id", entry.ID, "created_by", actorID)
	return entry, nil
}

func (s *ledgerServiceImpl) CreateIncome(ctx context.Context, actorID string, input IncomeInput) (*entity.IncomeEntry, error) {
	if strings.TrimSpace(input.Source) == "" {
		return nil, fmt.Errorf("%w: source is required", port.ErrValidation)
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", port.ErrValidation)
	}

	income := &entity.IncomeEntry{
		Source:    strings.TrimSpace(input.Source),
		Amount:    input.Amount,
		Currency:  input.Currency,
		Note:      input.Note,
		Date:      input.Date,
		CreatedBy: actorID,
	}
	if income.Currency == "" {
		income.Currency = s.defaultCurrency
	}
	if income.Date.IsZero() {
		income.Date = time.Now().UTC()
	}

	if err := s.incomeRepo.Create(ctx, income); err != nil {
		s.logger.Error("Failed to create income entry", "error", err, "source", income.Source)
		return nil, err
	}

	s.audit.Record(ctx, entity.EntityIncomeEntry, strconv.FormatInt(income.ID, 10), entity.ActionCreate, actorRef(actorID),
		map[string]interface{}{"source": income.Source, "amount": income.Amount.String(), "currency": income.Currency})
	s.logger.Info("Income entry created", "id", income.ID, "created_by", actorID)
	return income, nil
}
