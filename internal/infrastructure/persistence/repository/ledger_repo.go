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

const ledgerColumns = `
	id, batch_id, category_id, title, amount_min, amount_avg, amount_max,
	actual_amount, unit, note, date, created_by, attachments, source_request_id, created_at`

// LedgerRepository implements port.LedgerRepository
type LedgerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLedgerRepository creates a new ledger entry repository
func NewLedgerRepository(db *sql.DB, logger *zap.Logger) port.LedgerRepository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a ledger entry. A second entry for the same source request
// violates the unique index and surfaces as port.ErrStorageConflict.
func (r *LedgerRepository) Create(ctx context.Context, entry *entity.LedgerEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	attachments, err := encodeAttachments(entry.Attachments)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO ledger_entries (
			batch_id, category_id, title, amount_min, amount_avg, amount_max,
			actual_amount, unit, note, date, created_by, attachments,
			source_request_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		nullInt64Arg(entry.BatchID),
		nullInt64Arg(entry.CategoryID),
		entry.Title,
		entry.AmountMin,
		entry.AmountAvg,
		entry.AmountMax,
		entry.ActualAmount,
		entry.Unit,
		entry.Note,
		utc(entry.Date),
		entry.CreatedBy,
		attachments,
		nullInt64Arg(entry.SourceRequestID),
		utc(entry.CreatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create ledger entry", zap.String("title", entry.Title), zap.Error(err))
		return fmt.Errorf("failed to create ledger entry: %w", sqlite.Classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id
	return nil
}

// GetBySourceRequest returns the entry materialized from requestID, or nil if there is none
func (r *LedgerRepository) GetBySourceRequest(ctx context.Context, requestID int64) (*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE source_request_id = ?`

	entry, err := scanLedgerEntry(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, requestID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get ledger entry by source request", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get ledger entry: %w", sqlite.Classify(err))
	}
	return entry, nil
}

// ListInRange returns entries dated in [start, end)
func (r *LedgerRepository) ListInRange(ctx context.Context, start, end time.Time) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE date >= ? AND date < ?
		ORDER BY date, id
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		r.logger.Error("Failed to list ledger entries", zap.Error(err))
		return nil, fmt.Errorf("failed to list ledger entries: %w", sqlite.Classify(err))
	}
	defer rows.Close()

	var entries []*entity.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}
	return entries, nil
}

// SumExpenses totals COALESCE(actual_amount, amount_avg) over [start, end).
// Amounts are stored as decimal text, so the sum is taken in Go.
func (r *LedgerRepository) SumExpenses(ctx context.Context, start, end time.Time, excludePersonal bool) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(actual_amount, amount_avg)
		FROM ledger_entries
		WHERE date >= ? AND date < ?
	`
	if excludePersonal {
		query += ` AND source_request_id IS NULL`
	}

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		r.logger.Error("Failed to sum ledger expenses", zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to sum ledger expenses: %w", sqlite.Classify(err))
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.NullDecimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan ledger amount: %w", err)
		}
		if amount.Valid {
			total = total.Add(amount.Decimal)
		}
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to iterate ledger amounts: %w", err)
	}
	return total, nil
}

func scanLedgerEntry(row rowScanner) (*entity.LedgerEntry, error) {
	var (
		entry           entity.LedgerEntry
		batchID         sql.NullInt64
		categoryID      sql.NullInt64
		sourceRequestID sql.NullInt64
		attachments     string
	)

	err := row.Scan(
		&entry.ID,
		&batchID,
		&categoryID,
		&entry.Title,
		&entry.AmountMin,
		&entry.AmountAvg,
		&entry.AmountMax,
		&entry.ActualAmount,
		&entry.Unit,
		&entry.Note,
		&entry.Date,
		&entry.CreatedBy,
		&attachments,
		&sourceRequestID,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.BatchID = int64Ptr(batchID)
	entry.CategoryID = int64Ptr(categoryID)
	entry.SourceRequestID = int64Ptr(sourceRequestID)
	if entry.Attachments, err = decodeAttachments(attachments); err != nil {
		return nil, err
	}
	return &entry, nil
}
