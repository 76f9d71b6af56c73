package service

import (
	"github.com/garyjia/personal-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ReconcileAmount resolves the final amount of a request reaching quorum.
//
// Amounts supplied by approvers are compared: none falls back to the
// request's own amount, identical values are used as-is, and disagreeing
// values are averaged and rounded to a whole unit, halves rounding up.
func ReconcileAmount(req *entity.ApprovalRequest, decisions []*entity.ApprovalDecision) decimal.Decimal {
	var provided []decimal.Decimal
	for _, d := range decisions {
		if d.IsApprove() && d.ApprovedAmount.Valid {
			provided = append(provided, d.ApprovedAmount.Decimal)
		}
	}

	if len(provided) == 0 {
		return req.FallbackAmount()
	}

	first := provided[0]
	allEqual := true
	sum := decimal.Zero
	for _, amount := range provided {
		if !amount.Equal(first) {
			allEqual = false
		}
		sum = sum.Add(amount)
	}
	if allEqual {
		return first
	}

	mean := sum.Div(decimal.NewFromInt(int64(len(provided))))
	return mean.Round(0)
}

// distinctApprovers returns the approve decisions, one per admin
func distinctApprovers(decisions []*entity.ApprovalDecision) []*entity.ApprovalDecision {
	seen := make(map[string]bool, len(decisions))
	var approvals []*entity.ApprovalDecision
	for _, d := range decisions {
		if !d.IsApprove() || seen[d.AdminID] {
			continue
		}
		seen[d.AdminID] = true
		approvals = append(approvals, d)
	}
	return approvals
}
