package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/internal/application/service"
	"github.com/garyjia/personal-ledger/internal/domain/entity"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type approverSet map[string]bool

func (a approverSet) ListApprovers(context.Context) ([]string, error) {
	ids := make([]string, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	return ids, nil
}

func (a approverSet) IsApprover(_ context.Context, id string) (bool, error) {
	return a[id], nil
}

type mockConsensus struct {
	createFn       func(ctx context.Context, ownerID string, input service.CreateRequestInput) (*entity.ApprovalRequest, error)
	getFn          func(ctx context.Context, id int64) (*entity.ApprovalRequest, error)
	submitFn       func(ctx context.Context, id int64, actorID string) (*entity.ApprovalRequest, error)
	decideFn       func(ctx context.Context, input service.DecisionInput) (*entity.DecisionOutcome, error)
	cancelFn       func(ctx context.Context, id int64, actorID string) (*entity.ApprovalRequest, error)
	editFn         func(ctx context.Context, id int64, actorID string, edit entity.RequestEdit) (*entity.ApprovalRequest, error)
	getApprovalsFn func(ctx context.Context, id int64) ([]*entity.ApprovalDecision, error)
}

func (m *mockConsensus) CreateRequest(ctx context.Context, ownerID string, input service.CreateRequestInput) (*entity.ApprovalRequest, error) {
	return m.createFn(ctx, ownerID, input)
}
func (m *mockConsensus) GetRequest(ctx context.Context, id int64) (*entity.ApprovalRequest, error) {
	return m.getFn(ctx, id)
}
func (m *mockConsensus) Submit(ctx context.Context, id int64, actorID string) (*entity.ApprovalRequest, error) {
	return m.submitFn(ctx, id, actorID)
}
func (m *mockConsensus) Decide(ctx context.Context, input service.DecisionInput) (*entity.DecisionOutcome, error) {
	return m.decideFn(ctx, input)
}
func (m *mockConsensus) Cancel(ctx context.Context, id int64, actorID string) (*entity.ApprovalRequest, error) {
	return m.cancelFn(ctx, id, actorID)
}
func (m *mockConsensus) Edit(ctx context.Context, id int64, actorID string, edit entity.RequestEdit) (*entity.ApprovalRequest, error) {
	return m.editFn(ctx, id, actorID, edit)
}
func (m *mockConsensus) GetApprovals(ctx context.Context, id int64) ([]*entity.ApprovalDecision, error) {
	return m.getApprovalsFn(ctx, id)
}

type mockLedger struct {
	entryFn  func(ctx context.Context, actorID string, input service.LedgerEntryInput) (*entity.LedgerEntry, error)
	incomeFn func(ctx context.Context, actorID string, input service.IncomeInput) (*entity.IncomeEntry, error)
}

func (m *mockLedger) CreateLedgerEntry(ctx context.Context, actorID string, input service.LedgerEntryInput) (*entity.LedgerEntry, error) {
	return m.entryFn(ctx, actorID, input)
}
func (m *mockLedger) CreateIncome(ctx context.Context, actorID string, input service.IncomeInput) (*entity.IncomeEntry, error) {
	return m.incomeFn(ctx, actorID, input)
}

type mockAggregation struct {
	summarizeFn func(ctx context.Context, start, end *time.Time) (*entity.FinancialSummary, error)
}

func (m *mockAggregation) Summarize(ctx context.Context, start, end *time.Time) (*entity.FinancialSummary, error) {
	return m.summarizeFn(ctx, start, end)
}

type stubExporter struct{}

func (stubExporter) Export(_ *entity.FinancialSummary, w io.Writer) error {
	_, err := w.Write([]byte("PK-workbook"))
	return err
}

func (stubExporter) Filename(*entity.FinancialSummary) string { return "summary.xlsx" }

type fixture struct {
	consensus   *mockConsensus
	ledger      *mockLedger
	aggregation *mockAggregation
	router      *gin.Engine
}

func newFixture() *fixture {
	f := &fixture{
		consensus:   &mockConsensus{},
		ledger:      &mockLedger{},
		aggregation: &mockAggregation{},
	}
	server := NewServer(DefaultServerConfig(), Services{
		Consensus:   f.consensus,
		Ledger:      f.ledger,
		Aggregation: f.aggregation,
	}, approverSet{"a1": true, "a2": true}, stubExporter{}, nopLogger{})
	f.router = server.Router()
	return f
}

func (f *fixture) do(method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	f := newFixture()
	w := f.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestIdentityRequired(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodGet, "/api/requests/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/api/requests/1", "bad id with spaces", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateRequest(t *testing.T) {
	f := newFixture()
	var captured service.CreateRequestInput
	f.consensus.createFn = func(_ context.Context, ownerID string, input service.CreateRequestInput) (*entity.ApprovalRequest, error) {
		captured = input
		return &entity.ApprovalRequest{ID: 9, OwnerID: ownerID, Title: input.Title, Status: entity.StatusDraft}, nil
	}

	w := f.do(http.MethodPost, "/api/requests", "owner", map[string]interface{}{
		"title":            "Conference ticket",
		"amount_avg":       120.5,
		"amount_max":       "150",
		"requested_amount": "130",
		"start_date":       "2026-05-02",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	assert.True(t, captured.AmountAvg.Equal(decimal.RequireFromString("120.5")))
	assert.True(t, captured.AmountMin.Equal(captured.AmountAvg), "missing min falls back to avg")
	assert.True(t, captured.AmountMax.Equal(decimal.NewFromInt(150)))
	require.NotNil(t, captured.RequestedAmount)
	assert.Equal(t, "130", captured.RequestedAmount.String())
	require.NotNil(t, captured.StartDate)
	assert.Equal(t, 2, captured.StartDate.Day())
}

func TestCreateRequest_InvalidBody(t *testing.T) {
	f := newFixture()
	f.consensus.createFn = func(context.Context, string, service.CreateRequestInput) (*entity.ApprovalRequest, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing title", map[string]interface{}{"amount_avg": "10"}},
		{"missing amount", map[string]interface{}{"title": "x"}},
		{"negative amount", map[string]interface{}{"title": "x", "amount_avg": "-1"}},
		{"text amount", map[string]interface{}{"title": "x", "amount_avg": "ten"}},
		{"bad date", map[string]interface{}{"title": "x", "amount_avg": "1", "start_date": "02/05/2026"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/api/requests", "owner", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, decodeResponse(t, w).Success)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid state", fmt.Errorf("submit: %w", port.ErrInvalidState), http.StatusConflict},
		{"not owner", port.ErrNotOwner, http.StatusForbidden},
		{"forbidden", port.ErrForbidden, http.StatusForbidden},
		{"validation", port.ErrValidation, http.StatusBadRequest},
		{"not found", port.ErrNotFound, http.StatusNotFound},
		{"storage conflict", port.ErrStorageConflict, http.StatusServiceUnavailable},
		{"unexpected", fmt.Errorf("disk I/O error"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.consensus.submitFn = func(context.Context, int64, string) (*entity.ApprovalRequest, error) {
				return nil, tt.err
			}
			w := f.do(http.MethodPost, "/api/requests/3/submit", "owner", nil)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusInternalServerError {
				assert.Equal(t, "internal error", decodeResponse(t, w).Error)
			}
		})
	}
}

func TestRecordDecision(t *testing.T) {
	f := newFixture()
	var captured service.DecisionInput
	f.consensus.decideFn = func(_ context.Context, input service.DecisionInput) (*entity.DecisionOutcome, error) {
		captured = input
		return &entity.DecisionOutcome{
			Request:  &entity.ApprovalRequest{ID: input.RequestID, Status: entity.StatusPending},
			Progress: entity.Progress{Approvals: 1, Required: 2},
		}, nil
	}

	w := f.do(http.MethodPost, "/api/requests/4/decisions", "a1", map[string]interface{}{
		"decision":        "approve",
		"approved_amount": 80,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(4), captured.RequestID)
	assert.Equal(t, "a1", captured.AdminID)
	assert.Equal(t, "80", captured.ApprovedAmount)

	w = f.do(http.MethodPost, "/api/requests/4/decisions", "owner", map[string]interface{}{"decision": "approve"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodPost, "/api/requests/4/decisions", "a1", map[string]interface{}{"decision": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/requests/abc/decisions", "a1", map[string]interface{}{"decision": "reject"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRequest_Visibility(t *testing.T) {
	f := newFixture()
	f.consensus.getFn = func(_ context.Context, id int64) (*entity.ApprovalRequest, error) {
		if id == 404 {
			return nil, fmt.Errorf("request 404: %w", port.ErrNotFound)
		}
		return &entity.ApprovalRequest{ID: id, OwnerID: "owner", Status: entity.StatusPending}, nil
	}
	f.consensus.getApprovalsFn = func(context.Context, int64) ([]*entity.ApprovalDecision, error) {
		return nil, nil
	}

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/requests/1", "owner", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/requests/1", "a2", nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/requests/1", "stranger", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/requests/404", "owner", nil).Code)

	w := f.do(http.MethodGet, "/api/requests/1/approvals", "owner", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, decodeResponse(t, w).Data)
}

func TestEditRequest(t *testing.T) {
	f := newFixture()
	var captured entity.RequestEdit
	f.consensus.editFn = func(_ context.Context, id int64, actorID string, edit entity.RequestEdit) (*entity.ApprovalRequest, error) {
		captured = edit
		return &entity.ApprovalRequest{ID: id, OwnerID: actorID, Status: entity.StatusDraft}, nil
	}

	w := f.do(http.MethodPatch, "/api/requests/2", "owner", map[string]interface{}{
		"title":      "Train tickets",
		"amount_max": "75.10",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, captured.Title)
	assert.Equal(t, "Train tickets", *captured.Title)
	assert.Nil(t, captured.AmountAvg)
	require.NotNil(t, captured.AmountMax)
	assert.Equal(t, "75.1", captured.AmountMax.String())

	w = f.do(http.MethodPatch, "/api/requests/2", "owner", map[string]interface{}{"title": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelRequest(t *testing.T) {
	f := newFixture()
	f.consensus.cancelFn = func(_ context.Context, id int64, actorID string) (*entity.ApprovalRequest, error) {
		if actorID != "owner" {
			return nil, port.ErrNotOwner
		}
		return &entity.ApprovalRequest{ID: id, Status: entity.StatusCancelled}, nil
	}

	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/requests/5/cancel", "owner", nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/api/requests/5/cancel", "a1", nil).Code)
}

func TestLedgerRoutes(t *testing.T) {
	f := newFixture()
	f.ledger.entryFn = func(_ context.Context, actorID string, input service.LedgerEntryInput) (*entity.LedgerEntry, error) {
		assert.Equal(t, "a1", actorID)
		assert.Equal(t, 3, input.Date.Day())
		return &entity.LedgerEntry{ID: 1, Title: input.Title}, nil
	}
	f.ledger.incomeFn = func(_ context.Context, _ string, input service.IncomeInput) (*entity.IncomeEntry, error) {
		assert.Equal(t, "USD", input.Currency)
		return &entity.IncomeEntry{ID: 1, Source: input.Source, Amount: input.Amount}, nil
	}

	w := f.do(http.MethodPost, "/api/ledger/entries", "a1", map[string]interface{}{
		"title": "Office chairs", "amount_avg": "300", "date": "2026-03-03",
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(http.MethodPost, "/api/ledger/income", "a1", map[string]interface{}{
		"source": "Grant", "amount": "1000", "currency": "usd",
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(http.MethodPost, "/api/ledger/income", "owner", map[string]interface{}{"source": "Grant", "amount": "1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSummaryRoutes(t *testing.T) {
	f := newFixture()
	var gotStart, gotEnd *time.Time
	f.aggregation.summarizeFn = func(_ context.Context, start, end *time.Time) (*entity.FinancialSummary, error) {
		gotStart, gotEnd = start, end
		return &entity.FinancialSummary{Remaining: decimal.NewFromInt(700)}, nil
	}

	w := f.do(http.MethodGet, "/api/reports/summary?start=2026-03-01&end=2026-03-31", "a1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, gotStart)
	require.NotNil(t, gotEnd)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), *gotEnd, "inclusive end becomes exclusive")

	w = f.do(http.MethodGet, "/api/reports/summary?month=2026-02", "a1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), *gotStart)
	assert.Nil(t, gotEnd)

	w = f.do(http.MethodGet, "/api/reports/summary?month=March", "a1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/reports/summary", "owner", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodGet, "/api/reports/summary.xlsx", "a1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "summary.xlsx")
	assert.Equal(t, "PK-workbook", w.Body.String())
}
