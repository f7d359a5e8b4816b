package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"html/template"
	"strings"
	"time"

	"go-kb-app/internal/data"
	"go-kb-app/internal/logger"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	// FeaturedLimit is the number of featured articles on the home page.
	FeaturedLimit = 6
	// RecentLimit is the number of recent articles on the home page.
	RecentLimit = 10
	// RelatedLimit is the number of related articles shown beside an article.
	RelatedLimit = 5
	// SuggestionLimit caps live search suggestions.
	SuggestionLimit = 8
	// MinSuggestionQuery is the shortest query that yields suggestions.
	MinSuggestionQuery = 2
)

// ArticleRepository defines the interface for database operations on articles.
type ArticleRepository interface {
	Create(ctx context.Context, a *data.Article, tagIDs []int64) error
	Update(ctx context.Context, a *data.Article, tagIDs []int64) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*data.Article, error)
	GetBySlug(ctx context.Context, slug string, publishedOnly bool) (*data.Article, error)
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
	ListAdmin(ctx context.Context, p data.Pagination) ([]*data.Article, int, error)
	ListFeatured(ctx context.Context, limit int) ([]*data.Article, error)
	ListRecent(ctx context.Context, limit int) ([]*data.Article, error)
	ListPublished(ctx context.Context) ([]*data.Article, error)
	ListByCategory(ctx context.Context, categoryID int64, p data.Pagination) ([]*data.Article, int, error)
	ListBySubCategory(ctx context.Context, subCategoryID int64, p data.Pagination) ([]*data.Article, int, error)
	ListByTag(ctx context.Context, tagID int64, p data.Pagination) ([]*data.Article, int, error)
	ListRelated(ctx context.Context, a *data.Article, limit int) ([]*data.Article, error)
	Search(ctx context.Context, query string, p data.Pagination) ([]*data.Article, int, error)
	Suggestions(ctx context.Context, query string, limit int) ([]*data.Article, error)
	Stats(ctx context.Context) (*data.ArticleStats, error)
}

// ArticleInput carries the administrator-editable fields of an article.
// A zero SubCategoryID files the article directly under its category.
type ArticleInput struct {
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	Summary       string  `json:"summary"`
	CategoryID    int64   `json:"category_id"`
	SubCategoryID int64   `json:"subcategory_id"`
	IsPublished   bool    `json:"is_published"`
	IsFeatured    bool    `json:"is_featured"`
	TagIDs        []int64 `json:"tags"`
}

// Validate checks field presence and lengths.
func (in ArticleInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required.Error("article title is required"), validation.Length(1, 200)),
		validation.Field(&in.Content, validation.Required.Error("article content is required")),
		validation.Field(&in.Summary, validation.Length(0, 500)),
		validation.Field(&in.CategoryID, validation.Required.Error("please select a category")),
	)
}

// ArticlePage is one page of an article listing.
type ArticlePage struct {
	Articles   []*data.Article
	Pagination data.Pagination
}

// ArticleService provides business logic for managing and presenting articles.
type ArticleService struct {
	repo          ArticleRepository
	categories    CategoryRepository
	subcategories SubCategoryRepository
	tags          TagRepository
	renderer      Renderer
	cache         RenderCache
	log           logger.Logger
	now           func() time.Time
}

// NewArticleService creates a new ArticleService. cache may be nil.
func NewArticleService(
	repo ArticleRepository,
	categories CategoryRepository,
	subcategories SubCategoryRepository,
	tags TagRepository,
	renderer Renderer,
	cache RenderCache,
	log logger.Logger,
) *ArticleService {
	return &ArticleService{
		repo:          repo,
		categories:    categories,
		subcategories: subcategories,
		tags:          tags,
		renderer:      renderer,
		cache:         cache,
		log:           log,
		now:           time.Now,
	}
}

// Create validates in, assigns a unique slug and stores a new article.
func (s *ArticleService) Create(ctx context.Context, in ArticleInput, authorID *int64) (*data.Article, error) {
	a := &data.Article{AuthorID: authorID}
	if err := s.apply(ctx, a, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, a, in.TagIDs); err != nil {
		return nil, err
	}
	return a, nil
}

// Update validates in and saves it over the article with the given id,
// replacing its tag set.
func (s *ArticleService) Update(ctx context.Context, id int64, in ArticleInput) (*data.Article, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, a, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, a, in.TagIDs); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *ArticleService) apply(ctx context.Context, a *data.Article, in ArticleInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Summary = strings.TrimSpace(in.Summary)
	if err := in.Validate(); err != nil {
		return err
	}

	if _, err := s.categories.GetByID(ctx, in.CategoryID); err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return fieldError("category_id", "validation_category_missing", "category does not exist")
		}
		return err
	}
	var subID *int64
	if in.SubCategoryID != 0 {
		sub, err := s.subcategories.GetByID(ctx, in.SubCategoryID)
		if err != nil {
			if errors.Is(err, data.ErrNotFound) {
				return fieldError("subcategory_id", "validation_subcategory_missing", "subcategory does not exist")
			}
			return err
		}
		if sub.CategoryID != in.CategoryID {
			return fieldError("subcategory_id", "validation_subcategory_mismatch", "subcategory belongs to another category")
		}
		subID = &sub.ID
	}

	slug, err := resolveSlug("title", in.Title, a.Slug, func(candidate string) (bool, error) {
		return s.repo.SlugExists(ctx, candidate, a.ID)
	})
	if err != nil {
		return err
	}

	if in.IsPublished && a.PublishedAt == nil {
		now := s.now().UTC()
		a.PublishedAt = &now
	}

	a.Title = in.Title
	a.Slug = slug
	a.Content = in.Content
	a.Summary = in.Summary
	a.CategoryID = in.CategoryID
	a.SubCategoryID = subID
	a.IsPublished = in.IsPublished
	a.IsFeatured = in.IsFeatured
	a.UpdateSearchText()
	return nil
}

// Delete removes an article.
func (s *ArticleService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// GetByID returns an article in any state together with its tags.
func (s *ArticleService) GetByID(ctx context.Context, id int64) (*data.Article, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Tags, err = s.tags.ListByArticle(ctx, a.ID); err != nil {
		return nil, err
	}
	return a, nil
}

// View returns a published article with its tags and rendered HTML.
func (s *ArticleService) View(ctx context.Context, slug string) (*data.Article, error) {
	a, err := s.repo.GetBySlug(ctx, slug, true)
	if err != nil {
		return nil, err
	}
	if a.Tags, err = s.tags.ListByArticle(ctx, a.ID); err != nil {
		return nil, err
	}
	if err := s.Render(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Render fills a.HTMLContent from a.Content, consulting the render cache
// first. Cache failures are logged and otherwise ignored.
func (s *ArticleService) Render(ctx context.Context, a *data.Article) error {
	sum := sha256.Sum256([]byte(a.Content))
	key := "article:" + hex.EncodeToString(sum[:])

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Error(err, "render cache lookup failed")
		} else if ok {
			a.HTMLContent = template.HTML(cached)
			return nil
		}
	}

	html, err := s.renderer.Render(a.Content)
	if err != nil {
		return err
	}
	a.HTMLContent = html

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, []byte(html)); err != nil {
			s.log.Error(err, "render cache store failed")
		}
	}
	return nil
}

// Related returns published articles near a.
func (s *ArticleService) Related(ctx context.Context, a *data.Article) ([]*data.Article, error) {
	return s.repo.ListRelated(ctx, a, RelatedLimit)
}

// Featured returns the featured articles for the home page.
func (s *ArticleService) Featured(ctx context.Context) ([]*data.Article, error) {
	return s.repo.ListFeatured(ctx, FeaturedLimit)
}

// Recent returns the newest published articles.
func (s *ArticleService) Recent(ctx context.Context) ([]*data.Article, error) {
	return s.repo.ListRecent(ctx, RecentLimit)
}

// Published returns every published article.
func (s *ArticleService) Published(ctx context.Context) ([]*data.Article, error) {
	return s.repo.ListPublished(ctx)
}

// ListAdmin returns one page of all articles for the admin listing.
func (s *ArticleService) ListAdmin(ctx context.Context, page, perPage int) (*ArticlePage, error) {
	return paged(data.NewPagination(page, perPage), func(p data.Pagination) ([]*data.Article, int, error) {
		return s.repo.ListAdmin(ctx, p)
	})
}

// ByCategory returns one page of a category's published articles.
func (s *ArticleService) ByCategory(ctx context.Context, categoryID int64, page, perPage int) (*ArticlePage, error) {
	return paged(data.NewPagination(page, perPage), func(p data.Pagination) ([]*data.Article, int, error) {
		return s.repo.ListByCategory(ctx, categoryID, p)
	})
}

// BySubCategory returns one page of a subcategory's published articles.
func (s *ArticleService) BySubCategory(ctx context.Context, subCategoryID int64, page, perPage int) (*ArticlePage, error) {
	return paged(data.NewPagination(page, perPage), func(p data.Pagination) ([]*data.Article, int, error) {
		return s.repo.ListBySubCategory(ctx, subCategoryID, p)
	})
}

// ByTag returns one page of published articles carrying a tag.
func (s *ArticleService) ByTag(ctx context.Context, tagID int64, page, perPage int) (*ArticlePage, error) {
	return paged(data.NewPagination(page, perPage), func(p data.Pagination) ([]*data.Article, int, error) {
		return s.repo.ListByTag(ctx, tagID, p)
	})
}

// Search returns one page of published articles matching query. A blank
// query yields an empty page without touching the database.
func (s *ArticleService) Search(ctx context.Context, query string, page, perPage int) (*ArticlePage, error) {
	query = strings.TrimSpace(query)
	p := data.NewPagination(page, perPage)
	if query == "" {
		return &ArticlePage{Pagination: p}, nil
	}
	return paged(p, func(p data.Pagination) ([]*data.Article, int, error) {
		return s.repo.Search(ctx, query, p)
	})
}

// Suggestions returns live search suggestions, or nothing for queries
// shorter than MinSuggestionQuery.
func (s *ArticleService) Suggestions(ctx context.Context, query string) ([]*data.Article, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSuggestionQuery {
		return nil, nil
	}
	return s.repo.Suggestions(ctx, query, SuggestionLimit)
}

// Stats counts articles by state.
func (s *ArticleService) Stats(ctx context.Context) (*data.ArticleStats, error) {
	return s.repo.Stats(ctx)
}

func paged(p data.Pagination, fetch func(data.Pagination) ([]*data.Article, int, error)) (*ArticlePage, error) {
	articles, total, err := fetch(p)
	if err != nil {
		return nil, err
	}
	p.Total = total
	return &ArticlePage{Articles: articles, Pagination: p}, nil
}
