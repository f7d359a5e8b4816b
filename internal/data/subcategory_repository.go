package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const subCategorySelect = `SELECT s.id, s.name, s.slug, s.description, s.category_id, s.sort_order,
	s.created_at, s.updated_at, c.name AS category_name, c.slug AS category_slug
	FROM subcategories s JOIN categories c ON c.id = s.category_id`

// SubCategoryRepository handles database operations for subcategories.
type SubCategoryRepository struct {
	db *sqlx.DB
}

// NewSubCategoryRepository creates a new SubCategoryRepository.
func NewSubCategoryRepository(db *sqlx.DB) *SubCategoryRepository {
	return &SubCategoryRepository{db: db}
}

// List retrieves every subcategory with its parent category name.
func (r *SubCategoryRepository) List(ctx context.Context) ([]*SubCategory, error) {
	var subs []*SubCategory
	query := subCategorySelect + ` ORDER BY c.sort_order, c.name, s.sort_order, s.name`
	if err := r.db.SelectContext(ctx, &subs, query); err != nil {
		return nil, fmt.Errorf("failed to list subcategories: %w", err)
	}
	return subs, nil
}

// ListByCategory retrieves the subcategories of one category.
func (r *SubCategoryRepository) ListByCategory(ctx context.Context, categoryID int64) ([]*SubCategory, error) {
	var subs []*SubCategory
	query := subCategorySelect + ` WHERE s.category_id = ? ORDER BY s.sort_order, s.name`
	if err := r.db.SelectContext(ctx, &subs, query, categoryID); err != nil {
		return nil, fmt.Errorf("failed to list subcategories by category: %w", err)
	}
	return subs, nil
}

// GetByID finds a subcategory by its ID.
func (r *SubCategoryRepository) GetByID(ctx context.Context, id int64) (*SubCategory, error) {
	var sub SubCategory
	if err := r.db.GetContext(ctx, &sub, subCategorySelect+` WHERE s.id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("subcategory with id %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get subcategory by id: %w", err)
	}
	return &sub, nil
}

// GetBySlug finds a subcategory by slug within a category.
func (r *SubCategoryRepository) GetBySlug(ctx context.Context, categoryID int64, slug string) (*SubCategory, error) {
	var sub SubCategory
	query := subCategorySelect + ` WHERE s.category_id = ? AND s.slug = ?`
	if err := r.db.GetContext(ctx, &sub, query, categoryID, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("subcategory %q: %w", slug, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get subcategory by slug: %w", err)
	}
	return &sub, nil
}

// NameExists reports whether another subcategory of the category uses name.
func (r *SubCategoryRepository) NameExists(ctx context.Context, categoryID int64, name string, excludeID int64) (bool, error) {
	return exists(ctx, r.db,
		`SELECT COUNT(*) FROM subcategories WHERE category_id = ? AND name = ? AND id <> ?`,
		categoryID, name, excludeID)
}

// SlugExists reports whether another subcategory of the category uses slug.
func (r *SubCategoryRepository) SlugExists(ctx context.Context, categoryID int64, slug string, excludeID int64) (bool, error) {
	return exists(ctx, r.db,
		`SELECT COUNT(*) FROM subcategories WHERE category_id = ? AND slug = ? AND id <> ?`,
		categoryID, slug, excludeID)
}

// Create inserts a new subcategory and sets its ID and timestamps.
func (r *SubCategoryRepository) Create(ctx context.Context, s *SubCategory) error {
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	query := `INSERT INTO subcategories (name, slug, description, category_id, sort_order, created_at, updated_at)
		VALUES (:name, :slug, :description, :category_id, :sort_order, :created_at, :updated_at)`
	res, err := r.db.NamedExecContext(ctx, query, s)
	if err != nil {
		return fmt.Errorf("failed to create subcategory: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get subcategory id: %w", err)
	}
	s.ID = id
	return nil
}

// Update saves changes to an existing subcategory.
func (r *SubCategoryRepository) Update(ctx context.Context, s *SubCategory) error {
	s.UpdatedAt = time.Now().UTC()
	query := `UPDATE subcategories SET name = :name, slug = :slug, description = :description,
		category_id = :category_id, sort_order = :sort_order, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, s)
	if err != nil {
		return fmt.Errorf("failed to update subcategory: %w", err)
	}
	return expectAffected(res, "subcategory", s.ID)
}

// Delete removes a subcategory.
func (r *SubCategoryRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subcategories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subcategory: %w", err)
	}
	return expectAffected(res, "subcategory", id)
}

// CountArticles returns the number of articles filed under the subcategory.
func (r *SubCategoryRepository) CountArticles(ctx context.Context, id int64) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM articles WHERE subcategory_id = ?`, id); err != nil {
		return 0, fmt.Errorf("failed to count subcategory articles: %w", err)
	}
	return n, nil
}

// Count returns the total number of subcategories.
func (r *SubCategoryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM subcategories`); err != nil {
		return 0, fmt.Errorf("failed to count subcategories: %w", err)
	}
	return n, nil
}
