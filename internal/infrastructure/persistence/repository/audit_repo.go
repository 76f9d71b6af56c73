package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/internal/domain/entity"
	"github.com/garyjia/personal-ledger/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// AuditRepository implements port.AuditRepository. Records are never updated or deleted.
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit record repository
func NewAuditRepository(db *sql.DB, logger *zap.Logger) port.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends an audit record
func (r *AuditRepository) Create(ctx context.Context, record *entity.AuditRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	meta := record.Meta
	if meta == nil {
		meta = map[string]interface{}{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode audit meta: %w", err)
	}

	query := `
		INSERT INTO audit_records (entity_type, entity_id, action, actor_id, meta, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		record.EntityType,
		record.EntityID,
		record.Action,
		nullStringArg(record.ActorID),
		string(metaJSON),
		utc(record.CreatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create audit record",
			zap.String("entity_type", record.EntityType),
			zap.String("entity_id", record.EntityID),
			zap.String("action", record.Action),
			zap.Error(err))
		return fmt.Errorf("failed to create audit record: %w", sqlite.Classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	record.ID = id
	return nil
}

// ListByEntity returns the audit trail of one entity, oldest first
func (r *AuditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*entity.AuditRecord, error) {
	query := `
		SELECT id, entity_type, entity_id, action, actor_id, meta, created_at
		FROM audit_records
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY id
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		r.logger.Error("Failed to list audit records", zap.Error(err))
		return nil, fmt.Errorf("failed to list audit records: %w", sqlite.Classify(err))
	}
	defer rows.Close()

	var records []*entity.AuditRecord
	for rows.Next() {
		var (
			record  entity.AuditRecord
			actorID sql.NullString
			meta    string
		)
		if err := rows.Scan(
			&record.ID,
			&record.EntityType,
			&record.EntityID,
			&record.Action,
			&actorID,
			&meta,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		record.ActorID = stringPtr(actorID)
		if meta != "" {
			if err := json.Unmarshal([]byte(meta), &record.Meta); err != nil {
				return nil, fmt.Errorf("failed to decode audit meta: %w", err)
			}
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit records: %w", err)
	}
	return records, nil
}
