package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const categoryColumns = `id, name, slug, description, icon, sort_order, created_at, updated_at`

// CategoryRepository handles database operations for categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List retrieves all categories ordered for display.
func (r *CategoryRepository) List(ctx context.Context) ([]*Category, error) {
	var categories []*Category
	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY sort_order, name`
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetByID finds a category by its ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*Category, error) {
	var category Category
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = ?`
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category with id %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category by id: %w", err)
	}
	return &category, nil
}

// GetBySlug finds a category by its slug.
func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*Category, error) {
	var category Category
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE slug = ?`
	if err := r.db.GetContext(ctx, &category, query, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %q: %w", slug, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category by slug: %w", err)
	}
	return &category, nil
}

// NameExists reports whether another category already uses name.
func (r *CategoryRepository) NameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	return exists(ctx, r.db, `SELECT COUNT(*) FROM categories WHERE name = ? AND id <> ?`, name, excludeID)
}

// SlugExists reports whether another category already uses slug.
func (r *CategoryRepository) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	return exists(ctx, r.db, `SELECT COUNT(*) FROM categories WHERE slug = ? AND id <> ?`, slug, excludeID)
}

// Create inserts a new category and sets its ID and timestamps.
func (r *CategoryRepository) Create(ctx context.Context, c *Category) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	query := `INSERT INTO categories (name, slug, description, icon, sort_order, created_at, updated_at)
		VALUES (:name, :slug, :description, :icon, :sort_order, :created_at, :updated_at)`
	res, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get category id: %w", err)
	}
	c.ID = id
	return nil
}

// Update saves changes to an existing category.
func (r *CategoryRepository) Update(ctx context.Context, c *Category) error {
	c.UpdatedAt = time.Now().UTC()
	query := `UPDATE categories SET name = :name, slug = :slug, description = :description,
		icon = :icon, sort_order = :sort_order, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return expectAffected(res, "category", c.ID)
}

// Delete removes a category together with its subcategories.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM subcategories WHERE category_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete subcategories: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return expectAffected(res, "category", id)
	})
}

// CountArticles returns the number of articles filed under the category.
func (r *CategoryRepository) CountArticles(ctx context.Context, id int64) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM articles WHERE category_id = ?`, id); err != nil {
		return 0, fmt.Errorf("failed to count category articles: %w", err)
	}
	return n, nil
}

// Count returns the total number of categories.
func (r *CategoryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM categories`); err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return n, nil
}
