package http

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/internal/application/service"
	"github.com/garyjia/personal-ledger/internal/domain/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SummaryExporter renders a financial summary as a downloadable document
type SummaryExporter interface {
	Export(summary *entity.FinancialSummary, w io.Writer) error
	Filename(summary *entity.FinancialSummary) string
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	consensus   service.ConsensusService
	ledger      service.LedgerService
	aggregation service.AggregationService
	exporter    SummaryExporter
	logger      Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, exporter SummaryExporter, logger Logger) *Handlers {
	return &Handlers{
		consensus:   services.Consensus,
		ledger:      services.Ledger,
		aggregation: services.Aggregation,
		exporter:    exporter,
		logger:      logger,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateRequest handles POST /api/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var payload CreateRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	input, err := payload.toInput()
	if err != nil {
		h.respondError(c, "create_request", err)
		return
	}

	req, err := h.consensus.CreateRequest(c.Request.Context(), currentUser(c), input)
	if err != nil {
		h.respondError(c, "create_request", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: req})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	req, ok := h.loadVisibleRequest(c, "get_request")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// EditRequest handles PATCH /api/requests/:id
func (h *Handlers) EditRequest(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	var payload EditRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	edit, err := payload.toEdit()
	if err != nil {
		h.respondError(c, "edit_request", err)
		return
	}

	req, err := h.consensus.Edit(c.Request.Context(), id, currentUser(c), edit)
	if err != nil {
		h.respondError(c, "edit_request", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// SubmitRequest handles POST /api/requests/:id/submit
func (h *Handlers) SubmitRequest(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	req, err := h.consensus.Submit(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.respondError(c, "submit_request", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// CancelRequest handles POST /api/requests/:id/cancel
func (h *Handlers) CancelRequest(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	req, err := h.consensus.Cancel(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.respondError(c, "cancel_request", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// RecordDecision handles POST /api/requests/:id/decisions
func (h *Handlers) RecordDecision(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	var payload DecisionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	outcome, err := h.consensus.Decide(c.Request.Context(), service.DecisionInput{
		RequestID:      id,
		AdminID:        currentUser(c),
		Decision:       payload.Decision,
		Comment:        payload.Comment,
		ApprovedAmount: payload.ApprovedAmount.String(),
	})
	if err != nil {
		h.respondError(c, "record_decision", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: outcome})
}

// GetApprovals handles GET /api/requests/:id/approvals
func (h *Handlers) GetApprovals(c *gin.Context) {
	req, ok := h.loadVisibleRequest(c, "get_approvals")
	if !ok {
		return
	}
	decisions, err := h.consensus.GetApprovals(c.Request.Context(), req.ID)
	if err != nil {
		h.respondError(c, "get_approvals", err)
		return
	}
	if decisions == nil {
		decisions = []*entity.ApprovalDecision{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: decisions})
}

// CreateLedgerEntry handles POST /api/ledger/entries
func (h *Handlers) CreateLedgerEntry(c *gin.Context) {
	var payload LedgerEntryPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	input, err := payload.toInput()
	if err != nil {
		h.respondError(c, "create_ledger_entry", err)
		return
	}

	entry, err := h.ledger.CreateLedgerEntry(c.Request.Context(), currentUser(c), input)
	if err != nil {
		h.respondError(c, "create_ledger_entry", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: entry})
}

// CreateIncome handles POST /api/ledger/income
func (h *Handlers) CreateIncome(c *gin.Context) {
	var payload IncomePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	input, err := payload.toInput()
	if err != nil {
		h.respondError(c, "create_income", err)
		return
	}

	income, err := h.ledger.CreateIncome(c.Request.Context(), currentUser(c), input)
	if err != nil {
		h.respondError(c, "create_income", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: income})
}

// GetSummary handles GET /api/reports/summary
func (h *Handlers) GetSummary(c *gin.Context) {
	summary, ok := h.summarize(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// ExportSummary handles GET /api/reports/summary.xlsx
func (h *Handlers) ExportSummary(c *gin.Context) {
	summary, ok := h.summarize(c)
	if !ok {
		return
	}

	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, h.exporter.Filename(summary)))
	c.Status(http.StatusOK)
	if err := h.exporter.Export(summary, c.Writer); err != nil {
		// headers are already sent
		h.logger.Error("Failed to export summary", "error", err)
		c.Abort()
	}
}

func (h *Handlers) summarize(c *gin.Context) (*entity.FinancialSummary, bool) {
	var query SummaryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, fmt.Sprintf("invalid query parameters: %v", err))
		return nil, false
	}
	start, end, err := query.bounds()
	if err != nil {
		h.respondError(c, "summarize", err)
		return nil, false
	}

	summary, err := h.aggregation.Summarize(c.Request.Context(), start, end)
	if err != nil {
		h.respondError(c, "summarize", err)
		return nil, false
	}
	return summary, true
}

// loadVisibleRequest loads the request named by :id if the caller owns it
// or holds the approver capability
func (h *Handlers) loadVisibleRequest(c *gin.Context, op string) (*entity.ApprovalRequest, bool) {
	id, ok := requestID(c)
	if !ok {
		return nil, false
	}
	req, err := h.consensus.GetRequest(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, op, err)
		return nil, false
	}
	if !req.IsOwnedBy(currentUser(c)) && !isApprover(c) {
		h.respondError(c, op, fmt.Errorf("%w: request %d is not visible to caller", port.ErrForbidden, id))
		return nil, false
	}
	return req, true
}

func requestID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid request ID")
		return 0, false
	}
	return id, true
}
