package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinancialSummary is the period report combining income, ledger and
// approved personal requests
type FinancialSummary struct {
	Start                 time.Time       `json:"start"`
	End                   time.Time       `json:"end"`
	TotalIncome           decimal.Decimal `json:"total_income"`
	TotalLedgerExpenses   decimal.Decimal `json:"total_ledger_expenses"`
	TotalPersonalApproved decimal.Decimal `json:"total_personal_approved"`
	TotalExpenses         decimal.Decimal `json:"total_expenses"`
	Remaining             decimal.Decimal `json:"remaining"`
}
