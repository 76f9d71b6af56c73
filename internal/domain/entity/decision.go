package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ApprovalDecision is one admin's vote on one request.
// There is at most one decision per (RequestID, AdminID).
type ApprovalDecision struct {
	ID             int64               `json:"id"`
	RequestID      int64               `json:"request_id"`
	AdminID        string              `json:"admin_id"`
	Decision       string              `json:"decision"`
	Comment        string              `json:"comment,omitempty"`
	ApprovedAmount decimal.NullDecimal `json:"approved_amount"`
	DecidedAt      time.Time           `json:"decided_at"`
}

// IsApprove reports whether the decision is an approval
func (d *ApprovalDecision) IsApprove() bool {
	return d.Decision == DecisionApprove
}

// Progress tracks how close a pending request is to quorum
type Progress struct {
	Approvals int `json:"approvals"`
	Required  int `json:"required"`
}

// Reached reports whether quorum has been met
func (p Progress) Reached() bool {
	return p.Approvals >= p.Required
}

// String renders the progress as "k of n"
func (p Progress) String() string {
	return fmt.Sprintf("%d of %d", p.Approvals, p.Required)
}

// DecisionOutcome is the result of recording a decision
type DecisionOutcome struct {
	Request   *ApprovalRequest  `json:"request"`
	Decision  *ApprovalDecision `json:"decision"`
	Progress  Progress          `json:"progress"`
	Finalized bool              `json:"finalized"`
}
