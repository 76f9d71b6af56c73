package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/personal-ledger/internal/application/dispatcher"
	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/internal/domain/entity"
	"github.com/garyjia/personal-ledger/internal/domain/event"
	"github.com/garyjia/personal-ledger/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CreateRequestInput carries the fields of a new draft request
type CreateRequestInput struct {
	Title             string
	Description       string
	Category          string
	AmountMin         decimal.Decimal
	AmountAvg         decimal.Decimal
	AmountMax         decimal.Decimal
	RequestedAmount   *decimal.Decimal
	Unit              string
	StartDate         *time.Time
	EndDate           *time.Time
	Attachments       []entity.AttachmentMeta
	RequiredApprovers int
}

// DecisionInput carries one admin vote. ApprovedAmount is the raw value
// supplied by the admin and is parsed here.
type DecisionInput struct {
	RequestID      int64
	AdminID        string
	Decision       string
	Comment        string
	ApprovedAmount string
}

// ConsensusService owns the approval request lifecycle and quorum resolution
type ConsensusService interface {
	CreateRequest(ctx context.Context, ownerID string, input CreateRequestInput) (*entity.ApprovalRequest, error)
	GetRequest(ctx context.Context, id int64) (*entity.ApprovalRequest, error)
	Submit(ctx context.Context, id int64, actorID string) (*entity.ApprovalRequest, error)
	Decide(ctx context.Context, input DecisionInput) (*entity.DecisionOutcome, error)
	Cancel(ctx context.Context, id int64, actorID string) (*entity.ApprovalRequest, error)
	Edit(ctx context.Context, id int64, actorID string, edit entity.RequestEdit) (*entity.ApprovalRequest, error)
	GetApprovals(ctx context.Context, id int64) ([]*entity.ApprovalDecision, error)
}

// ConsensusConfig holds quorum settings
type ConsensusConfig struct {
	RequiredApprovers int
}

type consensusServiceImpl struct {
	requestRepo  port.RequestRepository
	decisionRepo port.DecisionRepository
	txManager    port.TransactionManager
	materializer Materializer
	approvers    port.ApproverDirectory
	categories   port.CategoryLookup
	events       dispatcher.Dispatcher
	config       ConsensusConfig
	logger       Logger
	now          func() time.Time
}

// NewConsensusService creates a new ConsensusService
func NewConsensusService(
	requestRepo port.RequestRepository,
	decisionRepo port.DecisionRepository,
	txManager port.TransactionManager,
	materializer Materializer,
	approvers port.ApproverDirectory,
	categories port.CategoryLookup,
	events dispatcher.Dispatcher,
	config ConsensusConfig,
	logger Logger,
) ConsensusService {
	if config.RequiredApprovers <= 0 {
		config.RequiredApprovers = entity.DefaultRequiredApprovers
	}
	return &consensusServiceImpl{
		requestRepo:  requestRepo,
		decisionRepo: decisionRepo,
		txManager:    txManager,
		materializer: materializer,
		approvers:    approvers,
		categories:   categories,
		events:       events,
		config:       config,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateRequest stores a new draft owned by ownerID
func (s *consensusServiceImpl) CreateRequest(ctx context.Context, ownerID string, input CreateRequestInput) (*entity.ApprovalRequest, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", port.ErrValidation)
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", port.ErrValidation)
	}
	if input.RequiredApprovers < 0 {
		return nil, fmt.Errorf("%w: required approvers must be positive", port.ErrValidation)
	}

	categoryID, err := s.resolveCategory(ctx, input.Category)
	if err != nil {
		return nil, err
	}

	required := input.RequiredApprovers
	if required == 0 {
		required = s.config.RequiredApprovers
	}

	now := s.now()
	req := &entity.ApprovalRequest{
		OwnerID:               ownerID,
		Title:                 strings.TrimSpace(input.Title),
		Description:           input.Description,
		CategoryID:            categoryID,
		AmountMin:             input.AmountMin,
		AmountAvg:             input.AmountAvg,
		AmountMax:             input.AmountMax,
		Unit:                  input.Unit,
		StartDate:             input.StartDate,
		EndDate:               input.EndDate,
		Status:                entity.StatusDraft,
		RequiredApproverCount: required,
		Attachments:           append([]entity.AttachmentMeta{}, input.Attachments...),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if input.RequestedAmount != nil {
		req.RequestedAmount = decimal.NewNullDecimal(*input.RequestedAmount)
	}

	if err := s.requestRepo.Create(ctx, req); err != nil {
		s.logger.Error("Failed to create request", "error", err, "owner_id", ownerID)
		return nil, err
	}

	s.emit(ctx, event.NewEvent(event.TypeRequestCreated, req.ID, ownerID, map[string]interface{}{
		event.KeyOwnerID: ownerID,
		event.KeyTitle:   req.Title,
		event.KeyStatus:  req.Status,
	}))

	s.logger.Info("Request created", "id", req.ID, "owner_id", ownerID)
	return req, nil
}

// GetRequest retrieves a request by ID
func (s *consensusServiceImpl) GetRequest(ctx context.Context, id int64) (*entity.ApprovalRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Submit moves an owner's draft to pending and notifies the approvers
func (s *consensusServiceImpl) Submit(ctx context.Context, id int64, actorID string) (*entity.ApprovalRequest, error) {
	req, previous, err := s.ownerTransition(ctx, id, actorID, workflow.TriggerSubmit)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, event.NewEvent(event.TypeRequestSubmitted, id, actorID, map[string]interface{}{
		event.KeyOwnerID:        req.OwnerID,
		event.KeyTitle:          req.Title,
		event.KeyStatus:         req.Status,
		event.KeyPreviousStatus: previous,
	}))

	s.logger.Info("Request submitted", "id", id, "owner_id", actorID)
	return req, nil
}

// Cancel withdraws an owner's draft or pending request
func (s *consensusServiceImpl) Cancel(ctx context.Context, id int64, actorID string) (*entity.ApprovalRequest, error) {
	req, previous, err := s.ownerTransition(ctx, id, actorID, workflow.TriggerCancel)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, event.NewEvent(event.TypeRequestCancelled, id, actorID, map[string]interface{}{
		event.KeyOwnerID:        req.OwnerID,
		event.KeyTitle:          req.Title,
		event.KeyStatus:         req.Status,
		event.KeyPreviousStatus: previous,
	}))

	s.logger.Info("Request cancelled", "id", id, "previous_status", previous)
	return req, nil
}

// ownerTransition applies a status-only transition fired by the request owner.
// The write is conditional on the status read in the same transaction.
func (s *consensusServiceImpl) ownerTransition(ctx context.Context, id int64, actorID string, trigger workflow.Trigger) (*entity.ApprovalRequest, string, error) {
	var (
		updated  *entity.ApprovalRequest
		previous string
	)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.requestRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if !req.IsOwnedBy(actorID) {
			return fmt.Errorf("%w: request %d", port.ErrNotOwner, id)
		}

		next, err := workflow.Next(txCtx, req.Status, trigger)
		if err != nil {
			return invalidState(trigger, req.Status, err)
		}

		ok, err := s.requestRepo.TransitionStatus(txCtx, id, []string{req.Status}, string(next))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: request %d changed concurrently", port.ErrInvalidState, id)
		}

		previous = req.Status
		updated, err = s.requestRepo.GetByID(txCtx, id)
		return err
	})
	if err != nil {
		s.logger.Error("Request transition failed", "error", err, "id", id, "trigger", trigger, "actor_id", actorID)
		return nil, "", err
	}
	return updated, previous, nil
}

// Edit updates the editable fields of an owner's draft
func (s *consensusServiceImpl) Edit(ctx context.Context, id int64, actorID string, edit entity.RequestEdit) (*entity.ApprovalRequest, error) {
	if edit.IsEmpty() {
		return nil, fmt.Errorf("%w: no editable fields submitted", port.ErrValidation)
	}
	if edit.Title != nil && strings.TrimSpace(*edit.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", port.ErrValidation)
	}

	var updated *entity.ApprovalRequest
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.requestRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if !req.IsOwnedBy(actorID) {
			return fmt.Errorf("%w: request %d", port.ErrNotOwner, id)
		}
		if _, err := workflow.Next(txCtx, req.Status, workflow.TriggerEdit); err != nil {
			return invalidState(workflow.TriggerEdit, req.Status, err)
		}

		var categoryID *int64
		if edit.Category != nil {
			if categoryID, err = s.resolveCategory(txCtx, *edit.Category); err != nil {
				return err
			}
		}

		edit.Apply(req, categoryID)
		ok, err := s.requestRepo.UpdateDraft(txCtx, req)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: request %d is no longer a draft", port.ErrInvalidState, id)
		}
		updated = req
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to edit request", "error", err, "id", id, "actor_id", actorID)
		return nil, err
	}

	s.emit(ctx, event.NewEvent(event.TypeRequestEdited, id, actorID, map[string]interface{}{
		event.KeyOwnerID: updated.OwnerID,
		event.KeyTitle:   updated.Title,
		event.KeyDiff:    edit.Diff(),
	}))

	s.logger.Info("Request edited", "id", id, "fields", len(edit.Diff()))
	return updated, nil
}

// decisionResult collects what a committed decision needs to announce
type decisionResult struct {
	outcome *entity.DecisionOutcome
	entry   *entity.LedgerEntry
	created bool
}

// Decide records an admin vote and resolves the request when the vote is a
// veto or completes the quorum
func (s *consensusServiceImpl) Decide(ctx context.Context, input DecisionInput) (*entity.DecisionOutcome, error) {
	decision, err := s.validateDecision(input)
	if err != nil {
		return nil, err
	}

	isApprover, err := s.approvers.IsApprover(ctx, input.AdminID)
	if err != nil {
		return nil, fmt.Errorf("resolve approver: %w", err)
	}
	if !isApprover {
		return nil, fmt.Errorf("%w: %s is not an approver", port.ErrForbidden, input.AdminID)
	}

	result, err := s.decideOnce(ctx, decision)
	if errors.Is(err, port.ErrStorageConflict) {
		s.logger.Info("Decision write conflicted, retrying",
			"request_id", input.RequestID, "admin_id", input.AdminID)
		result, err = s.decideOnce(ctx, decision)
	}
	if err != nil {
		s.logger.Error("Failed to record decision", "error", err,
			"request_id", input.RequestID, "admin_id", input.AdminID, "decision", input.Decision)
		return nil, err
	}

	s.announceDecision(ctx, result)
	return result.outcome, nil
}

func (s *consensusServiceImpl) validateDecision(input DecisionInput) (*entity.ApprovalDecision, error) {
	if input.AdminID == "" {
		return nil, fmt.Errorf("%w: admin is required", port.ErrValidation)
	}
	if !entity.IsValidDecision(input.Decision) {
		return nil, fmt.Errorf("%w: decision must be %q or %q", port.ErrValidation, entity.DecisionApprove, entity.DecisionReject)
	}

	decision := &entity.ApprovalDecision{
		RequestID: input.RequestID,
		AdminID:   input.AdminID,
		Decision:  input.Decision,
		Comment:   input.Comment,
	}

	if decision.IsApprove() {
		raw := strings.TrimSpace(input.ApprovedAmount)
		if raw == "" {
			return nil, fmt.Errorf("%w: approved_amount is required to approve", port.ErrValidation)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: approved_amount %q is not a number", port.ErrValidation, raw)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("%w: approved_amount cannot be negative", port.ErrValidation)
		}
		decision.ApprovedAmount = decimal.NewNullDecimal(amount)
	}
	return decision, nil
}

func (s *consensusServiceImpl) decideOnce(ctx context.Context, input *entity.ApprovalDecision) (*decisionResult, error) {
	var result *decisionResult

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.requestRepo.GetByID(txCtx, input.RequestID)
		if err != nil {
			return err
		}
		if req.Status != entity.StatusPending {
			return fmt.Errorf("%w: cannot decide on a %s request", port.ErrInvalidState, req.Status)
		}

		decision := *input
		decision.ID = 0
		decision.DecidedAt = s.now()
		if err := s.decisionRepo.Upsert(txCtx, &decision); err != nil {
			return err
		}

		// read after the write so the recount sees this vote
		decisions, err := s.decisionRepo.ListByRequest(txCtx, req.ID)
		if err != nil {
			return err
		}
		approvals := distinctApprovers(decisions)
		progress := entity.Progress{Approvals: len(approvals), Required: req.RequiredApproverCount}

		result = &decisionResult{outcome: &entity.DecisionOutcome{Decision: &decision, Progress: progress}}

		if decision.IsApprove() {
			err = s.applyApproval(txCtx, req, approvals, progress, result)
		} else {
			err = s.applyRejection(txCtx, req)
		}
		if err != nil {
			return err
		}

		result.outcome.Request, err = s.requestRepo.GetByID(txCtx, req.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *consensusServiceImpl) applyRejection(ctx context.Context, req *entity.ApprovalRequest) error {
	next, err := workflow.Next(ctx, req.Status, workflow.TriggerReject)
	if err != nil {
		return invalidState(workflow.TriggerReject, req.Status, err)
	}
	ok, err := s.requestRepo.TransitionStatus(ctx, req.ID, []string{entity.StatusPending}, string(next))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: request %d is no longer pending", port.ErrInvalidState, req.ID)
	}
	return nil
}

func (s *consensusServiceImpl) applyApproval(ctx context.Context, req *entity.ApprovalRequest, approvals []*entity.ApprovalDecision, progress entity.Progress, result *decisionResult) error {
	next, err := workflow.Next(workflow.WithQuorum(ctx, progress.Reached()), req.Status, workflow.TriggerApprove)
	if err != nil {
		return invalidState(workflow.TriggerApprove, req.Status, err)
	}

	if next != workflow.StateApproved {
		return s.requestRepo.SetApprovalsCount(ctx, req.ID, progress.Approvals)
	}

	amount := ReconcileAmount(req, approvals)
	ok, err := s.requestRepo.Finalize(ctx, req.ID, amount, s.now(), progress.Approvals)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: request %d was finalized concurrently", port.ErrInvalidState, req.ID)
	}

	finalized, err := s.requestRepo.GetByID(ctx, req.ID)
	if err != nil {
		return err
	}
	entry, created, err := s.materializer.Materialize(ctx, finalized, result.outcome.Decision.AdminID)
	if err != nil {
		return fmt.Errorf("materialize request %d: %w", req.ID, err)
	}

	result.outcome.Finalized = true
	result.entry = entry
	result.created = created
	return nil
}

// announceDecision emits the events of a committed decision. All events of
// one decision share a correlation ID.
func (s *consensusServiceImpl) announceDecision(ctx context.Context, result *decisionResult) {
	outcome := result.outcome
	req := outcome.Request
	decision := outcome.Decision

	recorded := event.NewEvent(event.TypeDecisionRecorded, req.ID, decision.AdminID, map[string]interface{}{
		event.KeyOwnerID:  req.OwnerID,
		event.KeyTitle:    req.Title,
		event.KeyDecision: decision.Decision,
		event.KeyComment:  decision.Comment,
		event.KeyProgress: outcome.Progress.String(),
	})
	if decision.ApprovedAmount.Valid {
		recorded = recorded.WithPayload(event.KeyApprovedAmount, decision.ApprovedAmount.Decimal.String())
	}
	s.emit(ctx, recorded)

	correlationID := recorded.CorrelationID
	switch {
	case req.Status == entity.StatusRejected:
		s.emit(ctx, event.NewEventWithCorrelation(event.TypeRequestRejected, req.ID, decision.AdminID, map[string]interface{}{
			event.KeyOwnerID:        req.OwnerID,
			event.KeyTitle:          req.Title,
			event.KeyStatus:         req.Status,
			event.KeyPreviousStatus: entity.StatusPending,
			event.KeyComment:        decision.Comment,
		}, correlationID))
		s.logger.Info("Request rejected", "id", req.ID, "admin_id", decision.AdminID)

	case outcome.Finalized:
		s.emit(ctx, event.NewEventWithCorrelation(event.TypeRequestApproved, req.ID, decision.AdminID, map[string]interface{}{
			event.KeyOwnerID:        req.OwnerID,
			event.KeyTitle:          req.Title,
			event.KeyStatus:         req.Status,
			event.KeyPreviousStatus: entity.StatusPending,
			event.KeyApprovedAmount: req.ApprovedAmount.Decimal.String(),
			event.KeyProgress:       outcome.Progress.String(),
		}, correlationID))
		if result.entry != nil {
			s.emit(ctx, event.NewEventWithCorrelation(event.TypeLedgerMaterialized, req.ID, decision.AdminID, map[string]interface{}{
				event.KeyEntryID:        fmt.Sprintf("%d", result.entry.ID),
				event.KeyApprovedAmount: result.entry.RecognizedAmount().String(),
				event.KeyAmountDiffers:  !result.created && !result.entry.RecognizedAmount().Equal(req.ApprovedAmount.Decimal),
			}, correlationID))
		}
		s.logger.Info("Request approved", "id", req.ID, "amount", req.ApprovedAmount.Decimal.String(), "progress", outcome.Progress.String())

	default:
		s.logger.Info("Approval recorded", "id", req.ID, "admin_id", decision.AdminID, "progress", outcome.Progress.String())
	}
}

// GetApprovals lists the decisions recorded on a request
func (s *consensusServiceImpl) GetApprovals(ctx context.Context, id int64) ([]*entity.ApprovalDecision, error) {
	if _, err := s.requestRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	decisions, err := s.decisionRepo.ListByRequest(ctx, id)
	if err != nil {
		s.logger.Error("Failed to list decisions", "error", err, "request_id", id)
		return nil, err
	}
	if decisions == nil {
		decisions = []*entity.ApprovalDecision{}
	}
	return decisions, nil
}

// resolveCategory maps an id-or-name reference; an empty reference clears it
func (s *consensusServiceImpl) resolveCategory(ctx context.Context, ref string) (*int64, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, nil
	}
	id, err := s.categories.ResolveCategory(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (s *consensusServiceImpl) emit(ctx context.Context, evt *event.Event) {
	if s.events == nil {
		return
	}
	s.events.DispatchAsync(ctx, evt)
}

func invalidState(trigger workflow.Trigger, status string, cause error) error {
	return fmt.Errorf("%w: cannot %s a %s request (%v)", port.ErrInvalidState, strings.ToLower(string(trigger)), status, cause)
}
