package port

import (
	"context"
	"time"

	"github.com/garyjia/personal-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// RequestRepository defines persistence operations for ApprovalRequest.
// Status changes are conditional updates: they report whether the row was
// still in an expected status when the write landed.
type RequestRepository interface {
	Create(ctx context.Context, req *entity.ApprovalRequest) error
	GetByID(ctx context.Context, id int64) (*entity.ApprovalRequest, error)

	// UpdateDraft writes the editable fields only while the request is a draft
	UpdateDraft(ctx context.Context, req *entity.ApprovalRequest) (bool, error)

	// TransitionStatus moves id to status `to` if its current status is one of `from`
	TransitionStatus(ctx context.Context, id int64, from []string, to string) (bool, error)

	// Finalize moves a pending request to approved, setting approved_amount,
	// approved_at and approvals_count together. It succeeds at most once per request.
	Finalize(ctx context.Context, id int64, amount decimal.Decimal, approvedAt time.Time, approvals int) (bool, error)

	// SetApprovalsCount stores the derived distinct-approver count of a pending request
	SetApprovalsCount(ctx context.Context, id int64, approvals int) error

	// ListApprovedInRange returns approved requests whose reporting time
	// (approved_at, else updated_at, else created_at) lies in [start, end)
	ListApprovedInRange(ctx context.Context, start, end time.Time) ([]*entity.ApprovalRequest, error)
}

// DecisionRepository defines persistence operations for ApprovalDecision
type DecisionRepository interface {
	// Upsert inserts the decision or overwrites the existing one for the same (request, admin)
	Upsert(ctx context.Context, decision *entity.ApprovalDecision) error
	ListByRequest(ctx context.Context, requestID int64) ([]*entity.ApprovalDecision, error)
}

// LedgerRepository defines persistence operations for LedgerEntry
type LedgerRepository interface {
	Create(ctx context.Context, entry *entity.LedgerEntry) error
	GetBySourceRequest(ctx context.Context, requestID int64) (*entity.LedgerEntry, error)
	ListInRange(ctx context.Context, start, end time.Time) ([]*entity.LedgerEntry, error)

	// SumExpenses sums recognized amounts in [start, end), skipping entries
	// materialized from personal requests when excludePersonal is set
	SumExpenses(ctx context.Context, start, end time.Time, excludePersonal bool) (decimal.Decimal, error)
}

// IncomeRepository defines persistence operations for IncomeEntry
type IncomeRepository interface {
	Create(ctx context.Context, income *entity.IncomeEntry) error
	ListInRange(ctx context.Context, start, end time.Time) ([]*entity.IncomeEntry, error)
	SumInRange(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
}

// AuditRepository defines append-only persistence for AuditRecord
type AuditRepository interface {
	Create(ctx context.Context, record *entity.AuditRecord) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*entity.AuditRecord, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
