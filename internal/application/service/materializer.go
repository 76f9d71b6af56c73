package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/internal/domain/entity"
)

// Materializer turns finalized requests into ledger entries
type Materializer interface {
	// Materialize creates the ledger entry for req, or returns the existing
	// one. created is false when an entry already existed.
	Materialize(ctx context.Context, req *entity.ApprovalRequest, finalizerID string) (entry *entity.LedgerEntry, created bool, err error)
}

type materializerImpl struct {
	ledgerRepo port.LedgerRepository
	logger     Logger
}

// NewMaterializer creates a new Materializer
func NewMaterializer(ledgerRepo port.LedgerRepository, logger Logger) Materializer {
	return &materializerImpl{
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

func (m *materializerImpl) Materialize(ctx context.Context, req *entity.ApprovalRequest, finalizerID string) (*entity.LedgerEntry, bool, error) {
	if !req.IsFinalized() || req.ApprovedAt == nil {
		return nil, false, fmt.Errorf("%w: request %d is not finalized", port.ErrInvalidState, req.ID)
	}

	existing, err := m.ledgerRepo.GetBySourceRequest(ctx, req.ID)
	if err != nil {
		return nil, false, fmt.Errorf("find ledger entry: %w", err)
	}
	if existing != nil {
		m.keepExisting(req, existing)
		return existing, false, nil
	}

	entry := &entity.LedgerEntry{
		CategoryID:      req.CategoryID,
		Title:           entity.PersonalTitlePrefix + req.Title,
		AmountMin:       req.AmountMin,
		AmountAvg:       req.AmountAvg,
		AmountMax:       req.AmountMax,
		ActualAmount:    req.ApprovedAmount,
		Unit:            req.Unit,
		Note:            entity.PersonalMarker(req.ID),
		Date:            *req.ApprovedAt,
		CreatedBy:       finalizerID,
		Attachments:     append([]entity.AttachmentMeta{}, req.Attachments...),
		SourceRequestID: &req.ID,
	}

	if err := m.ledgerRepo.Create(ctx, entry); err != nil {
		if !errors.Is(err, port.ErrStorageConflict) {
			return nil, false, fmt.Errorf("create ledger entry: %w", err)
		}
		// lost the unique index race to a concurrent materialization
		existing, getErr := m.ledgerRepo.GetBySourceRequest(ctx, req.ID)
		if getErr != nil || existing == nil {
			return nil, false, fmt.Errorf("create ledger entry: %w", err)
		}
		m.keepExisting(req, existing)
		return existing, false, nil
	}

	m.logger.Info("Ledger entry materialized",
		"request_id", req.ID,
		"entry_id", entry.ID,
		"amount", entry.ActualAmount.Decimal.String())
	return entry, true, nil
}

// keepExisting applies first-materialization-wins and reports amount drift
func (m *materializerImpl) keepExisting(req *entity.ApprovalRequest, existing *entity.LedgerEntry) {
	if existing.RecognizedAmount().Equal(req.ApprovedAmount.Decimal) {
		m.logger.Info("Ledger entry already materialized", "request_id", req.ID, "entry_id", existing.ID)
		return
	}
	m.logger.Error("Ledger entry already materialized with a different amount, keeping it",
		"request_id", req.ID,
		"entry_id", existing.ID,
		"existing_amount", existing.RecognizedAmount().String(),
		"resolved_amount", req.ApprovedAmount.Decimal.String())
}
