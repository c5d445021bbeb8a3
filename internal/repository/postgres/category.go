package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xeternum/proyecto-mapa/internal/domain"
	"github.com/xeternum/proyecto-mapa/pkg/database"
	apperrors "github.com/xeternum/proyecto-mapa/pkg/errors"
)

// CategoryRepository implements repository.CategoryRepository using PostgreSQL.
type CategoryRepository struct {
	pool database.DBTX
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(pool database.DBTX) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// GetByID retrieves a category by ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	query := `
		SELECT id, name, parent_category, display_order, is_active
		FROM categories
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "categories.get_by_id", query)
	var c domain.Category
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.ParentCategory,
		&c.DisplayOrder,
		&c.IsActive,
	)
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("category", id)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}

	return &c, nil
}

// ListActive returns all active categories ordered for display.
func (r *CategoryRepository) ListActive(ctx context.Context) (_ []domain.Category, err error) {
	query := `
		SELECT id, name, parent_category, display_order, is_active
		FROM categories
		WHERE is_active = TRUE
		ORDER BY display_order, name`

	ctx, end := database.TraceQuery(ctx, "categories.list_active", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err = rows.Scan(
			&c.ID,
			&c.Name,
			&c.ParentCategory,
			&c.DisplayOrder,
			&c.IsActive,
		); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}

	return categories, nil
}
