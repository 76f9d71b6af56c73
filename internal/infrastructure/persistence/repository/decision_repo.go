package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/internal/domain/entity"
	"github.com/garyjia/personal-ledger/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// DecisionRepository implements port.DecisionRepository
type DecisionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDecisionRepository creates a new approval decision repository
func NewDecisionRepository(db *sql.DB, logger *zap.Logger) port.DecisionRepository {
	return &DecisionRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert records an admin's decision, replacing any earlier one by the same
// admin on the same request. The row keeps its ID across overwrites.
func (r *DecisionRepository) Upsert(ctx context.Context, decision *entity.ApprovalDecision) error {
	if decision.DecidedAt.IsZero() {
		decision.DecidedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO approval_decisions (
			request_id, admin_id, decision, comment, approved_amount, decided_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (request_id, admin_id) DO UPDATE SET
			decision = excluded.decision,
			comment = excluded.comment,
			approved_amount = excluded.approved_amount,
			decided_at = excluded.decided_at
		RETURNING id
	`

	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query,
		decision.RequestID,
		decision.AdminID,
		decision.Decision,
		decision.Comment,
		decision.ApprovedAmount,
		utc(decision.DecidedAt),
	).Scan(&decision.ID)
	if err != nil {
		r.logger.Error("Failed to upsert decision",
			zap.Int64("request_id", decision.RequestID),
			zap.String("admin_id", decision.AdminID),
			zap.Error(err))
		return fmt.Errorf("failed to upsert decision: %w", sqlite.Classify(err))
	}
	return nil
}

// ListByRequest returns every decision on a request in the order they were first cast
func (r *DecisionRepository) ListByRequest(ctx context.Context, requestID int64) ([]*entity.ApprovalDecision, error) {
	query := `
		SELECT id, request_id, admin_id, decision, comment, approved_amount, decided_at
		FROM approval_decisions
		WHERE request_id = ?
		ORDER BY id
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list decisions", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list decisions: %w", sqlite.Classify(err))
	}
	defer rows.Close()

	var decisions []*entity.ApprovalDecision
	for rows.Next() {
		var d entity.ApprovalDecision
		if err := rows.Scan(
			&d.ID,
			&d.RequestID,
			&d.AdminID,
			&d.Decision,
			&d.Comment,
			&d.ApprovedAmount,
			&d.DecidedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decisions: %w", err)
	}
	return decisions, nil
}
