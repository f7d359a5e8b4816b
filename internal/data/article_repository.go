package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const articleSelect = `SELECT a.id, a.title, a.slug, a.content, a.summary, a.category_id,
	a.subcategory_id, a.is_published, a.is_featured, a.author_id, a.created_at, a.updated_at,
	a.published_at, a.search_text,
	c.name AS category_name, c.slug AS category_slug,
	s.name AS subcategory_name, s.slug AS subcategory_slug,
	u.username AS author_name
	FROM articles a
	JOIN categories c ON c.id = a.category_id
	LEFT JOIN subcategories s ON s.id = a.subcategory_id
	LEFT JOIN users u ON u.id = a.author_id`

// ArticleRepository handles database operations for articles and their tags.
type ArticleRepository struct {
	db *sqlx.DB
}

// NewArticleRepository creates a new ArticleRepository.
func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Create inserts a new article, attaches tagIDs and sets the article's ID.
func (r *ArticleRepository) Create(ctx context.Context, a *Article, tagIDs []int64) error {
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	query := `INSERT INTO articles (title, slug, content, summary, category_id, subcategory_id,
		is_published, is_featured, author_id, created_at, updated_at, published_at, search_text)
		VALUES (:title, :slug, :content, :summary, :category_id, :subcategory_id,
		:is_published, :is_featured, :author_id, :created_at, :updated_at, :published_at, :search_text)`
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, query, a)
		if err != nil {
			return fmt.Errorf("failed to create article: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get article id: %w", err)
		}
		a.ID = id
		return replaceTags(ctx, tx, id, tagIDs)
	})
}

// Update saves changes to an existing article and replaces its tag set.
func (r *ArticleRepository) Update(ctx context.Context, a *Article, tagIDs []int64) error {
	a.UpdatedAt = time.Now().UTC()
	query := `UPDATE articles SET title = :title, slug = :slug, content = :content, summary = :summary,
		category_id = :category_id, subcategory_id = :subcategory_id, is_published = :is_published,
		is_featured = :is_featured, updated_at = :updated_at, published_at = :published_at,
		search_text = :search_text WHERE id = :id`
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, query, a)
		if err != nil {
			return fmt.Errorf("failed to update article: %w", err)
		}
		if err := expectAffected(res, "article", a.ID); err != nil {
			return err
		}
		return replaceTags(ctx, tx, a.ID, tagIDs)
	})
}

func replaceTags(ctx context.Context, tx *sqlx.Tx, articleID int64, tagIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM article_tags WHERE article_id = ?`, articleID); err != nil {
		return fmt.Errorf("failed to clear article tags: %w", err)
	}
	seen := make(map[int64]bool, len(tagIDs))
	for _, id := range tagIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := tx.ExecContext(ctx, `INSERT INTO article_tags (article_id, tag_id) VALUES (?, ?)`, articleID, id); err != nil {
			return fmt.Errorf("failed to attach tag %d: %w", id, err)
		}
	}
	return nil
}

// Delete removes an article and its tag associations.
func (r *ArticleRepository) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM article_tags WHERE article_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear article tags: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete article: %w", err)
		}
		return expectAffected(res, "article", id)
	})
}

// GetByID finds an article by its ID regardless of publication state.
func (r *ArticleRepository) GetByID(ctx context.Context, id int64) (*Article, error) {
	var a Article
	if err := r.db.GetContext(ctx, &a, articleSelect+` WHERE a.id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("article with id %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get article by id: %w", err)
	}
	return &a, nil
}

// GetBySlug finds an article by slug. Drafts are hidden when publishedOnly
// is set.
func (r *ArticleRepository) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (*Article, error) {
	query := articleSelect + ` WHERE a.slug = ?`
	args := []interface{}{slug}
	if publishedOnly {
		query += ` AND a.is_published = ?`
		args = append(args, true)
	}
	var a Article
	if err := r.db.GetContext(ctx, &a, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("article %q: %w", slug, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get article by slug: %w", err)
	}
	return &a, nil
}

// SlugExists reports whether another article already uses slug.
func (r *ArticleRepository) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	return exists(ctx, r.db, `SELECT COUNT(*) FROM articles WHERE slug = ? AND id <> ?`, slug, excludeID)
}

// ListAdmin returns one page of all articles, most recently updated first,
// and the total article count.
func (r *ArticleRepository) ListAdmin(ctx context.Context, p Pagination) ([]*Article, int, error) {
	return r.page(ctx, ``, `a.updated_at DESC`, p)
}

// ListFeatured returns up to limit featured, published articles.
func (r *ArticleRepository) ListFeatured(ctx context.Context, limit int) ([]*Article, error) {
	return r.list(ctx, ` WHERE a.is_published = ? AND a.is_featured = ? ORDER BY a.created_at DESC LIMIT ?`, true, true, limit)
}

// ListRecent returns up to limit of the newest published articles.
func (r *ArticleRepository) ListRecent(ctx context.Context, limit int) ([]*Article, error) {
	return r.list(ctx, ` WHERE a.is_published = ? ORDER BY a.created_at DESC LIMIT ?`, true, limit)
}

// ListPublished returns every published article, most recently updated first.
func (r *ArticleRepository) ListPublished(ctx context.Context) ([]*Article, error) {
	return r.list(ctx, ` WHERE a.is_published = ? ORDER BY a.updated_at DESC`, true)
}

// ListByCategory returns one page of a category's published articles.
func (r *ArticleRepository) ListByCategory(ctx context.Context, categoryID int64, p Pagination) ([]*Article, int, error) {
	return r.page(ctx, `a.is_published = ? AND a.category_id = ?`, `a.created_at DESC`, p, true, categoryID)
}

// ListBySubCategory returns one page of a subcategory's published articles.
func (r *ArticleRepository) ListBySubCategory(ctx context.Context, subCategoryID int64, p Pagination) ([]*Article, int, error) {
	return r.page(ctx, `a.is_published = ? AND a.subcategory_id = ?`, `a.created_at DESC`, p, true, subCategoryID)
}

// ListByTag returns one page of published articles carrying the tag.
func (r *ArticleRepository) ListByTag(ctx context.Context, tagID int64, p Pagination) ([]*Article, int, error) {
	return r.page(ctx,
		`a.is_published = ? AND a.id IN (SELECT article_id FROM article_tags WHERE tag_id = ?)`,
		`a.created_at DESC`, p, true, tagID)
}

// ListRelated returns published articles sharing a's subcategory, or its
// category when a has none. a itself is excluded.
func (r *ArticleRepository) ListRelated(ctx context.Context, a *Article, limit int) ([]*Article, error) {
	if a.SubCategoryID != nil {
		return r.list(ctx, ` WHERE a.is_published = ? AND a.subcategory_id = ? AND a.id <> ? ORDER BY a.created_at DESC LIMIT ?`,
			true, *a.SubCategoryID, a.ID, limit)
	}
	return r.list(ctx, ` WHERE a.is_published = ? AND a.category_id = ? AND a.id <> ? ORDER BY a.created_at DESC LIMIT ?`,
		true, a.CategoryID, a.ID, limit)
}

// Search matches published articles whose title, content or summary contain
// query, case-insensitively. Title matches sort first, then newest.
func (r *ArticleRepository) Search(ctx context.Context, query string, p Pagination) ([]*Article, int, error) {
	pattern := likePattern(query)
	where := `a.is_published = ? AND (LOWER(a.search_text) LIKE ? ESCAPE '!' OR LOWER(a.summary) LIKE ? ESCAPE '!')`

	var total int
	countQuery := `SELECT COUNT(*) FROM articles a WHERE ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, true, pattern, pattern); err != nil {
		return nil, 0, fmt.Errorf("failed to count search results: %w", err)
	}

	articles, err := r.list(ctx,
		` WHERE `+where+` ORDER BY CASE WHEN LOWER(a.title) LIKE ? ESCAPE '!' THEN 0 ELSE 1 END, a.created_at DESC LIMIT ? OFFSET ?`,
		true, pattern, pattern, pattern, p.PerPage, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// Suggestions returns up to limit published articles whose title or summary
// contain query, title matches first.
func (r *ArticleRepository) Suggestions(ctx context.Context, query string, limit int) ([]*Article, error) {
	pattern := likePattern(query)
	return r.list(ctx,
		` WHERE a.is_published = ? AND (LOWER(a.title) LIKE ? ESCAPE '!' OR LOWER(a.summary) LIKE ? ESCAPE '!')`+
			` ORDER BY CASE WHEN LOWER(a.title) LIKE ? ESCAPE '!' THEN 0 ELSE 1 END, a.created_at DESC LIMIT ?`,
		true, pattern, pattern, pattern, limit)
}

// Stats counts articles by state.
func (r *ArticleRepository) Stats(ctx context.Context) (*ArticleStats, error) {
	var stats ArticleStats
	query := `SELECT COUNT(*) AS total,
		COALESCE(SUM(CASE WHEN is_published = ? THEN 1 ELSE 0 END), 0) AS published,
		COALESCE(SUM(CASE WHEN is_published = ? THEN 0 ELSE 1 END), 0) AS drafts,
		COALESCE(SUM(CASE WHEN is_featured = ? THEN 1 ELSE 0 END), 0) AS featured
		FROM articles`
	if err := r.db.GetContext(ctx, &stats, query, true, true, true); err != nil {
		return nil, fmt.Errorf("failed to get article stats: %w", err)
	}
	return &stats, nil
}

func (r *ArticleRepository) list(ctx context.Context, tail string, args ...interface{}) ([]*Article, error) {
	var articles []*Article
	if err := r.db.SelectContext(ctx, &articles, articleSelect+tail, args...); err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

func (r *ArticleRepository) page(ctx context.Context, where, order string, p Pagination, args ...interface{}) ([]*Article, int, error) {
	clause := ``
	if where != `` {
		clause = ` WHERE ` + where
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM articles a`+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count articles: %w", err)
	}
	pageArgs := append(append([]interface{}{}, args...), p.PerPage, p.Offset())
	articles, err := r.list(ctx, clause+` ORDER BY `+order+` LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// likePattern builds a lower-cased substring pattern escaped with '!'.
func likePattern(q string) string {
	q = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(strings.ToLower(q))
	return "%" + q + "%"
}
