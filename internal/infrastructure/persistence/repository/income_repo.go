package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/internal/domain/entity"
	"github.com/garyjia/personal-ledger/internal/infrastructure/persistence/sqlite"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// IncomeRepository implements port.IncomeRepository
type IncomeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewIncomeRepository creates a new income entry repository
func NewIncomeRepository(db *sql.DB, logger *zap.Logger) port.IncomeRepository {
	return &IncomeRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an income entry
func (r *IncomeRepository) Create(ctx context.Context, income *entity.IncomeEntry) error {
	if income.CreatedAt.IsZero() {
		income.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO income_entries (source, amount, currency, note, date, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		income.Source,
		income.Amount,
		income.Currency,
		income.Note,
		utc(income.Date),
		income.CreatedBy,
		utc(income.CreatedAt),
	)
	if err != nil {
		r.logger.Error("Failed to create income entry", zap.String("source", income.Source), zap.Error(err))
		return fmt.Errorf("failed to create income entry: %w", sqlite.Classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	income.ID = id
	return nil
}

// ListInRange returns income dated in [start, end)
func (r *IncomeRepository) ListInRange(ctx context.Context, start, end time.Time) ([]*entity.IncomeEntry, error) {
	query := `
		SELECT id, source, amount, currency, note, date, created_by, created_at
		FROM income_entries
		WHERE date >= ? AND date < ?
		ORDER BY date, id
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		r.logger.Error("Failed to list income entries", zap.Error(err))
		return nil, fmt.Errorf("failed to list income entries: %w", sqlite.Classify(err))
	}
	defer rows.Close()

	var incomes []*entity.IncomeEntry
	for rows.Next() {
		var income entity.IncomeEntry
		if err := rows.Scan(
			&income.ID,
			&income.Source,
			&income.Amount,
			&income.Currency,
			&income.Note,
			&income.Date,
			&income.CreatedBy,
			&income.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan income entry: %w", err)
		}
		incomes = append(incomes, &income)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate income entries: %w", err)
	}
	return incomes, nil
}

// SumInRange totals income dated in [start, end)
func (r *IncomeRepository) SumInRange(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	incomes, err := r.ListInRange(ctx, start, end)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, income := range incomes {
		total = total.Add(income.Amount)
	}
	return total, nil
}
