package http

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/internal/application/service"
	"github.com/garyjia/personal-ledger/internal/domain/entity"
)

// dateLayout is the wire format of calendar dates
const dateLayout = "2006-01-02"

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// Amounts are accepted as JSON numbers or numeric strings.

// CreateRequestPayload is the body of POST /api/requests
type CreateRequestPayload struct {
	Title             string                  `json:"title" binding:"required,max=200"`
	Description       string                  `json:"description" binding:"max=4000"`
	Category          string                  `json:"category"`
	AmountMin         json.Number             `json:"amount_min" binding:"omitempty,udecimal"`
	AmountAvg         json.Number             `json:"amount_avg" binding:"required,udecimal"`
	AmountMax         json.Number             `json:"amount_max" binding:"omitempty,udecimal"`
	RequestedAmount   *json.Number            `json:"requested_amount" binding:"omitempty,udecimal"`
	Unit              string                  `json:"unit" binding:"max=32"`
	StartDate         string                  `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate           string                  `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
	Attachments       []entity.AttachmentMeta `json:"attachments"`
	RequiredApprovers int                     `json:"required_approvers" binding:"omitempty,min=1,max=20"`
}

func (p *CreateRequestPayload) toInput() (service.CreateRequestInput, error) {
	input := service.CreateRequestInput{
		Title:             p.Title,
		Description:       p.Description,
		Category:          p.Category,
		Unit:              p.Unit,
		Attachments:       p.Attachments,
		RequiredApprovers: p.RequiredApprovers,
	}

	var err error
	if input.AmountAvg, err = parseAmount("amount_avg", p.AmountAvg); err != nil {
		return input, err
	}
	if input.AmountMin, err = parseAmountOr("amount_min", p.AmountMin, input.AmountAvg); err != nil {
		return input, err
	}
	if input.AmountMax, err = parseAmountOr("amount_max", p.AmountMax, input.AmountAvg); err != nil {
		return input, err
	}
	if input.RequestedAmount, err = parseOptionalAmount("requested_amount", p.RequestedAmount); err != nil {
		return input, err
	}
	if input.StartDate, err = parseOptionalDate("start_date", p.StartDate); err != nil {
		return input, err
	}
	if input.EndDate, err = parseOptionalDate("end_date", p.EndDate); err != nil {
		return input, err
	}
	return input, nil
}

// EditRequestPayload is the body of PATCH /api/requests/:id. Absent fields are unchanged.
type EditRequestPayload struct {
	Title           *string                  `json:"title" binding:"omitempty,min=1,max=200"`
	Description     *string                  `json:"description" binding:"omitempty,max=4000"`
	Category        *string                  `json:"category"`
	AmountMin       *json.Number             `json:"amount_min" binding:"omitempty,udecimal"`
	AmountAvg       *json.Number             `json:"amount_avg" binding:"omitempty,udecimal"`
	AmountMax       *json.Number             `json:"amount_max" binding:"omitempty,udecimal"`
	RequestedAmount *json.Number             `json:"requested_amount" binding:"omitempty,udecimal"`
	Unit            *string                  `json:"unit" binding:"omitempty,max=32"`
	StartDate       *string                  `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate         *string                  `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
	Attachments     *[]entity.AttachmentMeta `json:"attachments"`
}

func (p *EditRequestPayload) toEdit() (entity.RequestEdit, error) {
	edit := entity.RequestEdit{
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Unit:        p.Unit,
		Attachments: p.Attachments,
	}

	var err error
	if edit.AmountMin, err = parseOptionalAmount("amount_min", p.AmountMin); err != nil {
		return edit, err
	}
	if edit.AmountAvg, err = parseOptionalAmount("amount_avg", p.AmountAvg); err != nil {
		return edit, err
	}
	if edit.AmountMax, err = parseOptionalAmount("amount_max", p.AmountMax); err != nil {
		return edit, err
	}
	if edit.RequestedAmount, err = parseOptionalAmount("requested_amount", p.RequestedAmount); err != nil {
		return edit, err
	}
	if p.StartDate != nil {
		if edit.StartDate, err = parseOptionalDate("start_date", *p.StartDate); err != nil {
			return edit, err
		}
	}
	if p.EndDate != nil {
		if edit.EndDate, err = parseOptionalDate("end_date", *p.EndDate); err != nil {
			return edit, err
		}
	}
	return edit, nil
}

// DecisionPayload is the body of POST /api/requests/:id/decisions
type DecisionPayload struct {
	Decision       string      `json:"decision" binding:"required,oneof=approve reject"`
	Comment        string      `json:"comment" binding:"max=2000"`
	ApprovedAmount json.Number `json:"approved_amount" binding:"omitempty,decimal"`
}

// LedgerEntryPayload is the body of POST /api/ledger/entries
type LedgerEntryPayload struct {
	BatchID      *int64                  `json:"batch_id" binding:"omitempty,min=1"`
	Category     string                  `json:"category"`
	Title        string                  `json:"title" binding:"required,max=200"`
	AmountMin    json.Number             `json:"amount_min" binding:"omitempty,udecimal"`
	AmountAvg    json.Number             `json:"amount_avg" binding:"required,udecimal"`
	AmountMax    json.Number             `json:"amount_max" binding:"omitempty,udecimal"`
	ActualAmount *json.Number            `json:"actual_amount" binding:"omitempty,udecimal"`
	Unit         string                  `json:"unit" binding:"max=32"`
	Note         string                  `json:"note" binding:"max=4000"`
	Date         string                  `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Attachments  []entity.AttachmentMeta `json:"attachments"`
}

func (p *LedgerEntryPayload) toInput() (service.LedgerEntryInput, error) {
	input := service.LedgerEntryInput{
		BatchID:     p.BatchID,
		Category:    p.Category,
		Title:       p.Title,
		Unit:        p.Unit,
		Note:        p.Note,
		Attachments: p.Attachments,
	}

	var err error
	if input.AmountAvg, err = parseAmount("amount_avg", p.AmountAvg); err != nil {
		return input, err
	}
	if input.AmountMin, err = parseAmountOr("amount_min", p.AmountMin, input.AmountAvg); err != nil {
		return input, err
	}
	if input.AmountMax, err = parseAmountOr("amount_max", p.AmountMax, input.AmountAvg); err != nil {
		return input, err
	}
	if input.ActualAmount, err = parseOptionalAmount("actual_amount", p.ActualAmount); err != nil {
		return input, err
	}
	date, err := parseOptionalDate("date", p.Date)
	if err != nil {
		return input, err
	}
	if date != nil {
		input.Date = *date
	}
	return input, nil
}

// IncomePayload is the body of POST /api/ledger/income
type IncomePayload struct {
	Source   string      `json:"source" binding:"required,max=200"`
	Amount   json.Number `json:"amount" binding:"required,udecimal"`
	Currency string      `json:"currency" binding:"omitempty,len=3,alpha"`
	Note     string      `json:"note" binding:"max=4000"`
	Date     string      `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

func (p *IncomePayload) toInput() (service.IncomeInput, error) {
	input := service.IncomeInput{
		Source:   p.Source,
		Currency: strings.ToUpper(p.Currency),
		Note:     p.Note,
	}

	var err error
	if input.Amount, err = parseAmount("amount", p.Amount); err != nil {
		return input, err
	}
	date, err := parseOptionalDate("date", p.Date)
	if err != nil {
		return input, err
	}
	if date != nil {
		input.Date = *date
	}
	return input, nil
}

// SummaryQuery selects the reporting period. Month takes precedence over
// start/end; end is the last day included in the period.
type SummaryQuery struct {
	Month string `form:"month" binding:"omitempty,datetime=2006-01"`
	Start string `form:"start" binding:"omitempty,datetime=2006-01-02"`
	End   string `form:"end" binding:"omitempty,datetime=2006-01-02"`
}

// bounds converts the query to the half-open range used by the aggregation service
func (q *SummaryQuery) bounds() (*time.Time, *time.Time, error) {
	if q.Month != "" {
		month, err := time.Parse("2006-01", q.Month)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: month must be YYYY-MM", port.ErrValidation)
		}
		return &month, nil, nil
	}

	start, err := parseOptionalDate("start", q.Start)
	if err != nil {
		return nil, nil, err
	}
	end, err := parseOptionalDate("end", q.End)
	if err != nil {
		return nil, nil, err
	}
	if end != nil {
		exclusive := end.AddDate(0, 0, 1)
		end = &exclusive
	}
	return start, end, nil
}

func parseAmount(field string, raw json.Number) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw.String()))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s is not a valid amount", port.ErrValidation, field)
	}
	return d, nil
}

func parseAmountOr(field string, raw json.Number, fallback decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(raw.String()) == "" {
		return fallback, nil
	}
	return parseAmount(field, raw)
}

func parseOptionalAmount(field string, raw *json.Number) (*decimal.Decimal, error) {
	if raw == nil || strings.TrimSpace(raw.String()) == "" {
		return nil, nil
	}
	d, err := parseAmount(field, *raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseOptionalDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", port.ErrValidation, field)
	}
	return &t, nil
}
