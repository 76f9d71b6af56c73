package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PersonalTitlePrefix marks ledger entries materialized from personal requests
const PersonalTitlePrefix = "[Personal] "

// PersonalMarker is the human-readable marker written into the note of a
// materialized entry. Matching is done on SourceRequestID, never on the note.
func PersonalMarker(requestID int64) string {
	return fmt.Sprintf("personal-request:%d", requestID)
}

// LedgerEntry is a recognized organizational expense
type LedgerEntry struct {
	ID              int64               `json:"id"`
	BatchID         *int64              `json:"batch_id,omitempty"`
	CategoryID      *int64              `json:"category_id,omitempty"`
	Title           string              `json:"title"`
	AmountMin       decimal.Decimal     `json:"amount_min"`
	AmountAvg       decimal.Decimal     `json:"amount_avg"`
	AmountMax       decimal.Decimal     `json:"amount_max"`
	ActualAmount    decimal.NullDecimal `json:"actual_amount"`
	Unit            string              `json:"unit,omitempty"`
	Note            string              `json:"note,omitempty"`
	Date            time.Time           `json:"date"`
	CreatedBy       string              `json:"created_by"`
	Attachments     []AttachmentMeta    `json:"attachments"`
	SourceRequestID *int64              `json:"source_request_id,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// RecognizedAmount returns the actual amount, falling back to the average estimate
func (e *LedgerEntry) RecognizedAmount() decimal.Decimal {
	if e.ActualAmount.Valid {
		return e.ActualAmount.Decimal
	}
	return e.AmountAvg
}

// IsPersonalDerived reports whether the entry was materialized from a request
func (e *LedgerEntry) IsPersonalDerived() bool {
	return e.SourceRequestID != nil
}

// IncomeEntry is a recognized inflow
type IncomeEntry struct {
	ID        int64           `json:"id"`
	Source    string          `json:"source"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Note      string          `json:"note,omitempty"`
	Date      time.Time       `json:"date"`
	CreatedBy string          `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
}

// Category is a read-only expense category
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
