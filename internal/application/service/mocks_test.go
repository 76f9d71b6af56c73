package service

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Mock repositories

type mockRequestRepo struct {
	createFunc              func(ctx context.Context, req *entity.ApprovalRequest) error
	getByIDFunc             func(ctx context.Context, id int64) (*entity.ApprovalRequest, error)
	updateDraftFunc         func(ctx context.Context, req *entity.ApprovalRequest) (bool, error)
	transitionStatusFunc    func(ctx context.Context, id int64, from []string, to string) (bool, error)
	finalizeFunc            func(ctx context.Context, id int64, amount decimal.Decimal, at time.Time, approvals int) (bool, error)
	setApprovalsCountFunc   func(ctx context.Context, id int64, approvals int) error
	listApprovedInRangeFunc func(ctx context.Context, start, end time.Time) ([]*entity.ApprovalRequest, error)
}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.ApprovalRequest) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	req.ID = 1
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id int64) (*entity.ApprovalRequest, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, port.ErrNotFound
}

func (m *mockRequestRepo) UpdateDraft(ctx context.Context, req *entity.ApprovalRequest) (bool, error) {
	if m.updateDraftFunc != nil {
		return m.updateDraftFunc(ctx, req)
	}
	return true, nil
}

func (m *mockRequestRepo) TransitionStatus(ctx context.Context, id int64, from []string, to string) (bool, error) {
	if m.transitionStatusFunc != nil {
		return m.transitionStatusFunc(ctx, id, from, to)
	}
	return true, nil
}

func (m *mockRequestRepo) Finalize(ctx context.Context, id int64, amount decimal.Decimal, at time.Time, approvals int) (bool, error) {
	if m.finalizeFunc != nil {
		return m.finalizeFunc(ctx, id, amount, at, approvals)
	}
	return true, nil
}

func (m *mockRequestRepo) SetApprovalsCount(ctx context.Context, id int64, approvals int) error {
	if m.setApprovalsCountFunc != nil {
		return m.setApprovalsCountFunc(ctx, id, approvals)
	}
	return nil
}

func (m *mockRequestRepo) ListApprovedInRange(ctx context.Context, start, end time.Time) ([]*entity.ApprovalRequest, error) {
	if m.listApprovedInRangeFunc != nil {
		return m.listApprovedInRangeFunc(ctx, start, end)
	}
	return nil, nil
}

// memRequestRepo keeps one request in memory so status writes are observable
type memRequestRepo struct {
	mockRequestRepo
	mu  sync.Mutex
	req *entity.ApprovalRequest
}

func newMemRequestRepo(req *entity.ApprovalRequest) *memRequestRepo {
	m := &memRequestRepo{req: req}
	m.getByIDFunc = func(ctx context.Context, id int64) (*entity.ApprovalRequest, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.req == nil || m.req.ID != id {
			return nil, port.ErrNotFound
		}
		cp := *m.req
		return &cp, nil
	}
	m.transitionStatusFunc = func(ctx context.Context, id int64, from []string, to string) (bool, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, s := range from {
			if m.req.Status == s {
				m.req.Status = to
				return true, nil
			}
		}
		return false, nil
	}
	m.updateDraftFunc = func(ctx context.Context, req *entity.ApprovalRequest) (bool, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.req.Status != entity.StatusDraft {
			return false, nil
		}
		cp := *req
		m.req = &cp
		return true, nil
	}
	m.finalizeFunc = func(ctx context.Context, id int64, amount decimal.Decimal, at time.Time, approvals int) (bool, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.req.Status != entity.StatusPending || m.req.ApprovedAmount.Valid {
			return false, nil
		}
		m.req.Status = entity.StatusApproved
		m.req.ApprovedAmount = decimal.NewNullDecimal(amount)
		m.req.ApprovedAt = &at
		m.req.ApprovalsCount = approvals
		return true, nil
	}
	m.setApprovalsCountFunc = func(ctx context.Context, id int64, approvals int) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.req.ApprovalsCount = approvals
		return nil
	}
	return m
}

func (m *memRequestRepo) current() *entity.ApprovalRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.req
	return &cp
}

// memDecisionRepo upserts on (request, admin) like the storage layer does
type memDecisionRepo struct {
	mu        sync.Mutex
	decisions []*entity.ApprovalDecision
	upsertErr []error
}

func (m *memDecisionRepo) Upsert(ctx context.Context, d *entity.ApprovalDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.upsertErr) > 0 {
		err := m.upsertErr[0]
		m.upsertErr = m.upsertErr[1:]
		if err != nil {
			return err
		}
	}
	for i, existing := range m.decisions {
		if existing.RequestID == d.RequestID && existing.AdminID == d.AdminID {
			d.ID = existing.ID
			cp := *d
			m.decisions[i] = &cp
			return nil
		}
	}
	d.ID = int64(len(m.decisions) + 1)
	cp := *d
	m.decisions = append(m.decisions, &cp)
	return nil
}

func (m *memDecisionRepo) ListByRequest(ctx context.Context, requestID int64) ([]*entity.ApprovalDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ApprovalDecision
	for _, d := range m.decisions {
		if d.RequestID == requestID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockLedgerRepo struct {
	createFunc             func(ctx context.Context, entry *entity.LedgerEntry) error
	getBySourceRequestFunc func(ctx context.Context, requestID int64) (*entity.LedgerEntry, error)
	sumExpensesFunc        func(ctx context.Context, start, end time.Time, excludePersonal bool) (decimal.Decimal, error)
}

func (m *mockLedgerRepo) Create(ctx context.Context, entry *entity.LedgerEntry) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, entry)
	}
	entry.ID = 1
	return nil
}

func (m *mockLedgerRepo) GetBySourceRequest(ctx context.Context, requestID int64) (*entity.LedgerEntry, error) {
	if m.getBySourceRequestFunc != nil {
		return m.getBySourceRequestFunc(ctx, requestID)
	}
	return nil, nil
}

func (m *mockLedgerRepo) ListInRange(ctx context.Context, start, end time.Time) ([]*entity.LedgerEntry, error) {
	return nil, nil
}

func (m *mockLedgerRepo) SumExpenses(ctx context.Context, start, end time.Time, excludePersonal bool) (decimal.Decimal, error) {
	if m.sumExpensesFunc != nil {
		return m.sumExpensesFunc(ctx, start, end, excludePersonal)
	}
	return decimal.Zero, nil
}

type mockIncomeRepo struct {
	createFunc     func(ctx context.Context, income *entity.IncomeEntry) error
	sumInRangeFunc func(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
}

func (m *mockIncomeRepo) Create(ctx context.Context, income *entity.IncomeEntry) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, income)
	}
	income.ID = 1
	return nil
}

func (m *mockIncomeRepo) ListInRange(ctx context.Context, start, end time.Time) ([]*entity.IncomeEntry, error) {
	return nil, nil
}

func (m *mockIncomeRepo) SumInRange(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	if m.sumInRangeFunc != nil {
		return m.sumInRangeFunc(ctx, start, end)
	}
	return decimal.Zero, nil
}

type mockAuditRepo struct {
	mu        sync.Mutex
	records   []*entity.AuditRecord
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, record *entity.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	record.ID = int64(len(m.records) + 1)
	m.records = append(m.records, record)
	return nil
}

func (m *mockAuditRepo) ListByEntity(ctx context.Context, entityType, entityID string) ([]*entity.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.AuditRecord
	for _, r := range m.records {
		if r.EntityType == entityType && r.EntityID == entityID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// Mock collaborators

type mockMaterializer struct {
	calls         int
	materializeFn func(ctx context.Context, req *entity.ApprovalRequest, finalizerID string) (*entity.LedgerEntry, bool, error)
}

func (m *mockMaterializer) Materialize(ctx context.Context, req *entity.ApprovalRequest, finalizerID string) (*entity.LedgerEntry, bool, error) {
	m.calls++
	if m.materializeFn != nil {
		return m.materializeFn(ctx, req, finalizerID)
	}
	return &entity.LedgerEntry{ID: 99, SourceRequestID: &req.ID, ActualAmount: req.ApprovedAmount}, true, nil
}

type staticApprovers struct {
	ids []string
	err error
}

func (s *staticApprovers) ListApprovers(ctx context.Context) ([]string, error) {
	return s.ids, s.err
}

func (s *staticApprovers) IsApprover(ctx context.Context, userID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	for _, id := range s.ids {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

type mockCategoryLookup struct {
	resolveFunc func(ctx context.Context, ref string) (int64, error)
}

func (m *mockCategoryLookup) ResolveCategory(ctx context.Context, ref string) (int64, error) {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, ref)
	}
	return 1, nil
}

type sentNotification struct {
	userID, message, link string
}

type mockNotifier struct {
	mu     sync.Mutex
	sent   []sentNotification
	failOn map[string]error
}

func (m *mockNotifier) Notify(ctx context.Context, userID, message, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn[userID]; err != nil {
		return err
	}
	m.sent = append(m.sent, sentNotification{userID, message, link})
	return nil
}

type recordedAudit struct {
	entityType, entityID, action string
	actorID                      *string
	meta                         map[string]interface{}
}

type mockAuditRecorder struct {
	mu      sync.Mutex
	records []recordedAudit
}

func (m *mockAuditRecorder) Record(ctx context.Context, entityType, entityID, action string, actorID *string, meta map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, recordedAudit{entityType, entityID, action, actorID, meta})
}

func (m *mockAuditRecorder) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r.action)
	}
	return out
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
