package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AttachmentMeta describes a file attached to a request or ledger entry.
// The file itself lives in external storage.
type AttachmentMeta struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// ApprovalRequest represents a personal reimbursement request
type ApprovalRequest struct {
	ID                    int64               `json:"id"`
	OwnerID               string              `json:"owner_id"`
	Title                 string              `json:"title"`
	Description           string              `json:"description"`
	CategoryID            *int64              `json:"category_id,omitempty"`
	AmountMin             decimal.Decimal     `json:"amount_min"`
	AmountAvg             decimal.Decimal     `json:"amount_avg"`
	AmountMax             decimal.Decimal     `json:"amount_max"`
	RequestedAmount       decimal.NullDecimal `json:"requested_amount"`
	Unit                  string              `json:"unit,omitempty"`
	StartDate             *time.Time          `json:"start_date,omitempty"`
	EndDate               *time.Time          `json:"end_date,omitempty"`
	Status                string              `json:"status"`
	RequiredApproverCount int                 `json:"required_approver_count"`
	ApprovalsCount        int                 `json:"approvals_count"`
	ApprovedAmount        decimal.NullDecimal `json:"approved_amount"`
	ApprovedAt            *time.Time          `json:"approved_at,omitempty"`
	Attachments           []AttachmentMeta    `json:"attachments"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

// IsOwnedBy reports whether userID created the request
func (r *ApprovalRequest) IsOwnedBy(userID string) bool {
	return userID != "" && r.OwnerID == userID
}

// IsFinalized reports whether the approved amount has been fixed
func (r *ApprovalRequest) IsFinalized() bool {
	return r.Status == StatusApproved && r.ApprovedAmount.Valid
}

// FallbackAmount is the amount used when no approver supplied one:
// the requested amount if present, otherwise the average estimate.
func (r *ApprovalRequest) FallbackAmount() decimal.Decimal {
	if r.RequestedAmount.Valid {
		return r.RequestedAmount.Decimal
	}
	return r.AmountAvg
}

// RecognizedAmount is the amount counted in reports
func (r *ApprovalRequest) RecognizedAmount() decimal.Decimal {
	if r.ApprovedAmount.Valid {
		return r.ApprovedAmount.Decimal
	}
	return r.FallbackAmount()
}

// ReportingTime is the instant used to place the request in a period
func (r *ApprovalRequest) ReportingTime() time.Time {
	if r.ApprovedAt != nil {
		return *r.ApprovedAt
	}
	if !r.UpdatedAt.IsZero() {
		return r.UpdatedAt
	}
	return r.CreatedAt
}

// RequestEdit holds the owner-editable fields of a draft request.
// A nil field is left unchanged.
type RequestEdit struct {
	Title           *string           `json:"title,omitempty"`
	Description     *string           `json:"description,omitempty"`
	Category        *string           `json:"category,omitempty"`
	AmountMin       *decimal.Decimal  `json:"amount_min,omitempty"`
	AmountAvg       *decimal.Decimal  `json:"amount_avg,omitempty"`
	AmountMax       *decimal.Decimal  `json:"amount_max,omitempty"`
	RequestedAmount *decimal.Decimal  `json:"requested_amount,omitempty"`
	Unit            *string           `json:"unit,omitempty"`
	StartDate       *time.Time        `json:"start_date,omitempty"`
	EndDate         *time.Time        `json:"end_date,omitempty"`
	Attachments     *[]AttachmentMeta `json:"attachments,omitempty"`
}

// IsEmpty reports whether the edit changes nothing
func (e RequestEdit) IsEmpty() bool {
	return len(e.Diff()) == 0
}

// Diff returns the submitted fields keyed by their JSON names
func (e RequestEdit) Diff() map[string]interface{} {
	diff := make(map[string]interface{})
	if e.Title != nil {
		diff["title"] = *e.Title
	}
	if e.Description != nil {
		diff["description"] = *e.Description
	}
	if e.Category != nil {
		diff["category"] = *e.Category
	}
	if e.AmountMin != nil {
		diff["amount_min"] = e.AmountMin.String()
	}
	if e.AmountAvg != nil {
		diff["amount_avg"] = e.AmountAvg.String()
	}
	if e.AmountMax != nil {
		diff["amount_max"] = e.AmountMax.String()
	}
	if e.RequestedAmount != nil {
		diff["requested_amount"] = e.RequestedAmount.String()
	}
	if e.Unit != nil {
		diff["unit"] = *e.Unit
	}
	if e.StartDate != nil {
		diff["start_date"] = e.StartDate.Format(time.RFC3339)
	}
	if e.EndDate != nil {
		diff["end_date"] = e.EndDate.Format(time.RFC3339)
	}
	if e.Attachments != nil {
		diff["attachments"] = len(*e.Attachments)
	}
	return diff
}

// Apply copies the submitted fields onto r. categoryID is the resolved
// value of e.Category and is ignored when e.Category is nil.
func (e RequestEdit) Apply(r *ApprovalRequest, categoryID *int64) {
	if e.Title != nil {
		r.Title = *e.Title
	}
	if e.Description != nil {
		r.Description = *e.Description
	}
	if e.Category != nil {
		r.CategoryID = categoryID
	}
	if e.AmountMin != nil {
		r.AmountMin = *e.AmountMin
	}
	if e.AmountAvg != nil {
		r.AmountAvg = *e.AmountAvg
	}
	if e.AmountMax != nil {
		r.AmountMax = *e.AmountMax
	}
	if e.RequestedAmount != nil {
		r.RequestedAmount = decimal.NewNullDecimal(*e.RequestedAmount)
	}
	if e.Unit != nil {
		r.Unit = *e.Unit
	}
	if e.StartDate != nil {
		r.StartDate = e.StartDate
	}
	if e.EndDate != nil {
		r.EndDate = e.EndDate
	}
	if e.Attachments != nil {
		r.Attachments = append([]AttachmentMeta{}, (*e.Attachments)...)
	}
}
