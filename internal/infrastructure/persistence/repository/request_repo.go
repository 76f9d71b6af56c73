package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/internal/domain/entity"
	"github.com/garyjia/personal-ledger/internal/infrastructure/persistence/sqlite"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const requestColumns = `
	id, owner_id, title, description, category_id,
	amount_min, amount_avg, amount_max, requested_amount, unit,
	start_date, end_date, status, required_approver_count, approvals_count,
	approved_amount, approved_at, attachments, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new approval request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new request and assigns its ID
func (r *RequestRepository) Create(ctx context.Context, req *entity.ApprovalRequest) error {
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}
	if req.Status == "" {
		req.Status = entity.StatusDraft
	}
	if req.RequiredApproverCount <= 0 {
		req.RequiredApproverCount = entity.DefaultRequiredApprovers
	}

	attachments, err := encodeAttachments(req.Attachments)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO approval_requests (
			owner_id, title, description, category_id,
			amount_min, amount_avg, amount_max, requested_amount, unit,
			start_date, end_date, status, required_approver_count, approvals_count,
			attachments, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		req.OwnerID,
		req.Title,
		req.Description,
		nullInt64Arg(req.CategoryID),
		req.AmountMin,
		req.AmountAvg,
		req.AmountMax,
		req.RequestedAmount,
		req.Unit,
		nullTimeArg(req.StartDate),
		nullTimeArg(req.EndDate),
		req.Status,
		req.RequiredApproverCount,
		req.ApprovalsCount,
		attachments,
		utc(req.CreatedAt),
		utc(req.UpdatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create approval request", zap.String("owner_id", req.OwnerID), zap.Error(err))
		return fmt.Errorf("failed to create approval request: %w", sqlite.Classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	req.ID = id
	return nil
}

// GetByID retrieves a request, returning port.ErrNotFound when it does not exist
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM approval_requests WHERE id = ?`

	req, err := scanRequest(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("approval request %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get approval request", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get approval request: %w", sqlite.Classify(err))
	}
	return req, nil
}

// UpdateDraft writes the editable fields while the request is still a draft
func (r *RequestRepository) UpdateDraft(ctx context.Context, req *entity.ApprovalRequest) (bool, error) {
	attachments, err := encodeAttachments(req.Attachments)
	if err != nil {
		return false, err
	}
	req.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE approval_requests
		SET title = ?, description = ?, category_id = ?,
			amount_min = ?, amount_avg = ?, amount_max = ?, requested_amount = ?, unit = ?,
			start_date = ?, end_date = ?, attachments = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		req.Title,
		req.Description,
		nullInt64Arg(req.CategoryID),
		req.AmountMin,
		req.AmountAvg,
		req.AmountMax,
		req.RequestedAmount,
		req.Unit,
		nullTimeArg(req.StartDate),
		nullTimeArg(req.EndDate),
		attachments,
		req.UpdatedAt,
		req.ID,
		entity.StatusDraft,
	)
	if err != nil {
		r.logger.Error("Failed to update draft", zap.Int64("id", req.ID), zap.Error(err))
		return false, fmt.Errorf("failed to update draft: %w", sqlite.Classify(err))
	}
	return affectedOne(result)
}

// TransitionStatus moves the request to `to` only if its status is one of `from`
func (r *RequestRepository) TransitionStatus(ctx context.Context, id int64, from []string, to string) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}

	query := fmt.Sprintf(`
		UPDATE approval_requests
		SET status = ?, updated_at = ?
		WHERE id = ? AND status IN (%s)
	`, placeholders(len(from)))

	args := []interface{}{to, time.Now().UTC(), id}
	for _, s := range from {
		args = append(args, s)
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to transition status",
			zap.Int64("id", id),
			zap.Strings("from", from),
			zap.String("to", to),
			zap.Error(err))
		return false, fmt.Errorf("failed to transition status: %w", sqlite.Classify(err))
	}
	return affectedOne(result)
}

// Finalize approves a pending request and fixes its amount. The guard on
// approved_amount makes a second finalization a no-op.
func (r *RequestRepository) Finalize(ctx context.Context, id int64, amount decimal.Decimal, approvedAt time.Time, approvals int) (bool, error) {
	query := `
		UPDATE approval_requests
		SET status = ?, approved_amount = ?, approved_at = ?, approvals_count = ?, updated_at = ?
		WHERE id = ? AND status = ? AND approved_amount IS NULL
	`

	at := approvedAt.UTC()
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		entity.StatusApproved,
		amount,
		at,
		approvals,
		at,
		id,
		entity.StatusPending,
	)
	if err != nil {
		r.logger.Error("Failed to finalize approval request", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to finalize approval request: %w", sqlite.Classify(err))
	}
	return affectedOne(result)
}

// SetApprovalsCount stores the distinct-approver count of a pending request
func (r *RequestRepository) SetApprovalsCount(ctx context.Context, id int64, approvals int) error {
	query := `
		UPDATE approval_requests
		SET approvals_count = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		approvals, time.Now().UTC(), id, entity.StatusPending)
	if err != nil {
		r.logger.Error("Failed to set approvals count", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to set approvals count: %w", sqlite.Classify(err))
	}
	return nil
}

// ListApprovedInRange returns approved requests reported in [start, end)
func (r *RequestRepository) ListApprovedInRange(ctx context.Context, start, end time.Time) ([]*entity.ApprovalRequest, error) {
	query := `SELECT ` + requestColumns + `
		FROM approval_requests
		WHERE status = ?
			AND COALESCE(approved_at, updated_at, created_at) >= ?
			AND COALESCE(approved_at, updated_at, created_at) < ?
		ORDER BY id
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query,
		entity.StatusApproved, start.UTC(), end.UTC())
	if err != nil {
		r.logger.Error("Failed to list approved requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list approved requests: %w", sqlite.Classify(err))
	}
	defer rows.Close()

	var requests []*entity.ApprovalRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate approval requests: %w", err)
	}
	return requests, nil
}

func scanRequest(row rowScanner) (*entity.ApprovalRequest, error) {
	var (
		req         entity.ApprovalRequest
		categoryID  sql.NullInt64
		startDate   sql.NullTime
		endDate     sql.NullTime
		approvedAt  sql.NullTime
		attachments string
	)

	err := row.Scan(
		&req.ID,
		&req.OwnerID,
		&req.Title,
		&req.Description,
		&categoryID,
		&req.AmountMin,
		&req.AmountAvg,
		&req.AmountMax,
		&req.RequestedAmount,
		&req.Unit,
		&startDate,
		&endDate,
		&req.Status,
		&req.RequiredApproverCount,
		&req.ApprovalsCount,
		&req.ApprovedAmount,
		&approvedAt,
		&attachments,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.CategoryID = int64Ptr(categoryID)
	req.StartDate = timePtr(startDate)
	req.EndDate = timePtr(endDate)
	req.ApprovedAt = timePtr(approvedAt)
	if req.Attachments, err = decodeAttachments(attachments); err != nil {
		return nil, err
	}
	return &req, nil
}

func affectedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}
