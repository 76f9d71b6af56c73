package entity

// Status constants for ApprovalRequest
const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

// Decision constants for ApprovalDecision
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// DefaultRequiredApprovers is the quorum used when a request does not specify one
const DefaultRequiredApprovers = 2

// Entity type constants for AuditRecord
const (
	EntityApprovalRequest = "approval_request"
	EntityLedgerEntry     = "ledger_entry"
	EntityIncomeEntry     = "income_entry"
)

// Audit action constants
const (
	ActionCreate      = "create"
	ActionEdit        = "edit"
	ActionSubmit      = "submit"
	ActionCancel      = "cancel"
	ActionDecide      = "decide"
	ActionReject      = "reject"
	ActionApprove     = "approve"
	ActionMaterialize = "materialize"
	ActionNotifyAdmin = "notify_admin"
	ActionNotifyOwner = "notify_owner"
)

// IsValidStatus reports whether s is one of the request statuses
func IsValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsValidDecision reports whether d is approve or reject
func IsValidDecision(d string) bool {
	return d == DecisionApprove || d == DecisionReject
}
