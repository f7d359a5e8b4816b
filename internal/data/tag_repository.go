package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const tagColumns = `id, name, slug, description, color, created_at`

// TagRepository handles database operations for tags.
type TagRepository struct {
	db *sqlx.DB
}

// NewTagRepository creates a new TagRepository.
func NewTagRepository(db *sqlx.DB) *TagRepository {
	return &TagRepository{db: db}
}

// List retrieves all tags ordered by name.
func (r *TagRepository) List(ctx context.Context) ([]*Tag, error) {
	var tags []*Tag
	if err := r.db.SelectContext(ctx, &tags, `SELECT `+tagColumns+` FROM tags ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// ListByArticle retrieves the tags attached to an article.
func (r *TagRepository) ListByArticle(ctx context.Context, articleID int64) ([]*Tag, error) {
	var tags []*Tag
	query := `SELECT t.id, t.name, t.slug, t.description, t.color, t.created_at
		FROM tags t JOIN article_tags at ON at.tag_id = t.id
		WHERE at.article_id = ? ORDER BY t.name`
	if err := r.db.SelectContext(ctx, &tags, query, articleID); err != nil {
		return nil, fmt.Errorf("failed to list article tags: %w", err)
	}
	return tags, nil
}

// GetByID finds a tag by its ID.
func (r *TagRepository) GetByID(ctx context.Context, id int64) (*Tag, error) {
	var tag Tag
	if err := r.db.GetContext(ctx, &tag, `SELECT `+tagColumns+` FROM tags WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tag with id %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tag by id: %w", err)
	}
	return &tag, nil
}

// GetBySlug finds a tag by its slug.
func (r *TagRepository) GetBySlug(ctx context.Context, slug string) (*Tag, error) {
	var tag Tag
	if err := r.db.GetContext(ctx, &tag, `SELECT `+tagColumns+` FROM tags WHERE slug = ?`, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tag %q: %w", slug, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tag by slug: %w", err)
	}
	return &tag, nil
}

// NameExists reports whether another tag already uses name.
func (r *TagRepository) NameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	return exists(ctx, r.db, `SELECT COUNT(*) FROM tags WHERE name = ? AND id <> ?`, name, excludeID)
}

// SlugExists reports whether another tag already uses slug.
func (r *TagRepository) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	return exists(ctx, r.db, `SELECT COUNT(*) FROM tags WHERE slug = ? AND id <> ?`, slug, excludeID)
}

// Create inserts a new tag and sets its ID.
func (r *TagRepository) Create(ctx context.Context, t *Tag) error {
	t.CreatedAt = time.Now().UTC()
	query := `INSERT INTO tags (name, slug, description, color, created_at)
		VALUES (:name, :slug, :description, :color, :created_at)`
	res, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get tag id: %w", err)
	}
	t.ID = id
	return nil
}

// Update saves changes to an existing tag.
func (r *TagRepository) Update(ctx context.Context, t *Tag) error {
	query := `UPDATE tags SET name = :name, slug = :slug, description = :description, color = :color WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return fmt.Errorf("failed to update tag: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// MySQL reports zero rows when nothing changed.
		if _, err := r.GetByID(ctx, t.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a tag and detaches it from every article.
func (r *TagRepository) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM article_tags WHERE tag_id = ?`, id); err != nil {
			return fmt.Errorf("failed to detach tag: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete tag: %w", err)
		}
		return expectAffected(res, "tag", id)
	})
}

// Count returns the total number of tags.
func (r *TagRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM tags`); err != nil {
		return 0, fmt.Errorf("failed to count tags: %w", err)
	}
	return n, nil
}
