package handler

import (
	"html/template"
	"net/http"

	"go-kb-app/internal/config"
	"go-kb-app/internal/logger"
	"go-kb-app/internal/middleware"
	"go-kb-app/internal/service"
	"go-kb-app/internal/session"
	"go-kb-app/internal/view"
)

// SnippetLength is the length of search result excerpts.
const SnippetLength = 200

// StyleSheeter provides the syntax highlighting stylesheet.
type StyleSheeter interface {
	StyleSheet() template.CSS
}

// PublicHandler serves the reader-facing pages.
type PublicHandler struct {
	base
	categories    *service.CategoryService
	subcategories *service.SubCategoryService
	tags          *service.TagService
	articles      *service.ArticleService
	styles        StyleSheeter
	content       config.ContentConfig
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(
	categories *service.CategoryService,
	subcategories *service.SubCategoryService,
	tags *service.TagService,
	articles *service.ArticleService,
	styles StyleSheeter,
	content config.ContentConfig,
	v *view.View,
	sm session.Manager,
	log logger.Logger,
) *PublicHandler {
	return &PublicHandler{
		base:          base{view: v, sessions: sm, log: log},
		categories:    categories,
		subcategories: subcategories,
		tags:          tags,
		articles:      articles,
		styles:        styles,
		content:       content,
	}
}

// homeHandler shows categories, featured and recent articles.
func (h *PublicHandler) homeHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	ctx := r.Context()
	categories, err := h.categories.List(ctx)
	if err != nil {
		return middleware.Internal(err, "Failed to load categories")
	}
	featured, err := h.articles.Featured(ctx)
	if err != nil {
		return middleware.Internal(err, "Failed to load featured articles")
	}
	recent, err := h.articles.Recent(ctx)
	if err != nil {
		return middleware.Internal(err, "Failed to load recent articles")
	}
	return h.render(w, r, "index.html", map[string]interface{}{
		"Categories": categories,
		"Featured":   featured,
		"Recent":     recent,
	})
}

// categoryHandler shows a category, its subcategories and its articles.
func (h *PublicHandler) categoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	categorySlug, appErr := slugParam(r, "slug")
	if appErr != nil {
		return appErr
	}
	ctx := r.Context()
	category, err := h.categories.GetBySlug(ctx, categorySlug)
	if err != nil {
		return lookupError(err, "category")
	}
	subs, err := h.subcategories.ListByCategory(ctx, category.ID)
	if err != nil {
		return middleware.Internal(err, "Failed to load subcategories")
	}
	page, err := h.articles.ByCategory(ctx, category.ID, pageParam(r), h.content.ArticlesPerPage)
	if err != nil {
		return middleware.Internal(err, "Failed to load articles")
	}
	return h.render(w, r, "category.html", map[string]interface{}{
		"Category":      category,
		"SubCategories": subs,
		"Articles":      page.Articles,
		"Pagination":    page.Pagination,
	})
}

// subCategoryHandler shows a subcategory and its articles.
func (h *PublicHandler) subCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	categorySlug, appErr := slugParam(r, "category")
	if appErr != nil {
		return appErr
	}
	subSlug, appErr := slugParam(r, "subcategory")
	if appErr != nil {
		return appErr
	}
	ctx := r.Context()
	category, sub, err := h.subcategories.Resolve(ctx, categorySlug, subSlug)
	if err != nil {
		return lookupError(err, "subcategory")
	}
	page, err := h.articles.BySubCategory(ctx, sub.ID, pageParam(r), h.content.ArticlesPerPage)
	if err != nil {
		return middleware.Internal(err, "Failed to load articles")
	}
	return h.render(w, r, "subcategory.html", map[string]interface{}{
		"Category":    category,
		"SubCategory": sub,
		"Articles":    page.Articles,
		"Pagination":  page.Pagination,
	})
}

// articleHandler shows one published article with related reading.
func (h *PublicHandler) articleHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	articleSlug, appErr := slugParam(r, "slug")
	if appErr != nil {
		return appErr
	}
	ctx := r.Context()
	article, err := h.articles.View(ctx, articleSlug)
	if err != nil {
		return lookupError(err, "article")
	}
	related, err := h.articles.Related(ctx, article)
	if err != nil {
		return middleware.Internal(err, "Failed to load related articles")
	}
	return h.render(w, r, "article.html", map[string]interface{}{
		"Article": article,
		"Related": related,
	})
}

// searchHandler runs a full-text search over published articles.
func (h *PublicHandler) searchHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	query := r.URL.Query().Get("q")
	page, err := h.articles.Search(r.Context(), query, pageParam(r), h.content.SearchResultsPerPage)
	if err != nil {
		return middleware.Internal(err, "Search failed")
	}
	return h.render(w, r, "search.html", map[string]interface{}{
		"Query":         query,
		"Articles":      page.Articles,
		"Pagination":    page.Pagination,
		"SnippetLength": SnippetLength,
	})
}

// tagHandler lists published articles carrying a tag.
func (h *PublicHandler) tagHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	tagSlug, appErr := slugParam(r, "slug")
	if appErr != nil {
		return appErr
	}
	ctx := r.Context()
	tag, err := h.tags.GetBySlug(ctx, tagSlug)
	if err != nil {
		return lookupError(err, "tag")
	}
	page, err := h.articles.ByTag(ctx, tag.ID, pageParam(r), h.content.ArticlesPerPage)
	if err != nil {
		return middleware.Internal(err, "Failed to load articles")
	}
	return h.render(w, r, "tag.html", map[string]interface{}{
		"Tag":        tag,
		"Articles":   page.Articles,
		"Pagination": page.Pagination,
	})
}

func (h *PublicHandler) aboutHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.render(w, r, "about.html", nil)
}

func (h *PublicHandler) healthHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type suggestion struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Category    string  `json:"category"`
	SubCategory *string `json:"subcategory"`
}

// suggestionsHandler answers live search with up to eight matches.
func (h *PublicHandler) suggestionsHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	articles, err := h.articles.Suggestions(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		return middleware.Internal(err, "Search failed")
	}
	out := make([]suggestion, 0, len(articles))
	for _, a := range articles {
		out = append(out, suggestion{
			Title:       a.Title,
			URL:         "/article/" + a.Slug,
			Category:    a.CategoryName,
			SubCategory: a.SubCategoryName,
		})
	}
	return writeJSON(w, http.StatusOK, out)
}

// highlightCSSHandler serves the code highlighting stylesheet.
func (h *PublicHandler) highlightCSSHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write([]byte(h.styles.StyleSheet()))
}
