package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/garyjia/personal-ledger/internal/application/port"
	"github.com/garyjia/personal-ledger/internal/domain/entity"
	"github.com/garyjia/personal-ledger/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// CategoryRepository reads the seeded category table and implements port.CategoryLookup
type CategoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *sql.DB, logger *zap.Logger) *CategoryRepository {
	return &CategoryRepository{
		db:     db,
		logger: logger,
	}
}

// ResolveCategory accepts a numeric ID or a case-insensitive name
func (r *CategoryRepository) ResolveCategory(ctx context.Context, ref string) (int64, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, fmt.Errorf("empty category reference: %w", port.ErrValidation)
	}

	var (
		query string
		arg   interface{}
	)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		query, arg = `SELECT id FROM categories WHERE id = ?`, id
	} else {
		query, arg = `SELECT id FROM categories WHERE name = ? COLLATE NOCASE`, ref
	}

	var id int64
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("unknown category %q: %w", ref, port.ErrValidation)
	}
	if err != nil {
		r.logger.Error("Failed to resolve category", zap.String("ref", ref), zap.Error(err))
		return 0, fmt.Errorf("failed to resolve category: %w", sqlite.Classify(err))
	}
	return id, nil
}

// List returns every category ordered by name
func (r *CategoryRepository) List(ctx context.Context) ([]entity.Category, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", sqlite.Classify(err))
	}
	defer rows.Close()

	var categories []entity.Category
	for rows.Next() {
		var c entity.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

var _ port.CategoryLookup = (*CategoryRepository)(nil)
