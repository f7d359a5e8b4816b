package handler

import (
	"io/fs"
	"net/http"

	"go-kb-app/internal/logger"
	"go-kb-app/internal/middleware"
	"go-kb-app/internal/session"
	"go-kb-app/internal/view"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Handlers groups every route handler the router mounts.
type Handlers struct {
	Public *PublicHandler
	Auth   *AuthHandler
	Admin  *AdminHandler
	Seo    *SeoHandler
}

// NewRouter creates and configures a new chi router.
func NewRouter(
	h Handlers,
	sm session.Manager,
	authzMiddleware func(http.Handler) http.Handler,
	static fs.FS,
	v *view.View,
	log logger.Logger,
) *chi.Mux {
	r := chi.NewRouter()
	errMw := middleware.Error(log, v)

	// A good base middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)

	// Session-free routes
	r.Get("/static/css/highlight.css", h.Public.highlightCSSHandler)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Method(http.MethodGet, "/health", errMw(h.Public.healthHandler))
	r.Get("/robots.txt", h.Seo.robotsHandler)
	r.Method(http.MethodGet, "/sitemap.xml", errMw(h.Seo.sitemapHandler))

	r.Group(func(r chi.Router) {
		r.Use(sm.LoadAndSave)
		r.Use(middleware.Authenticate(sm))

		// Public routes
		r.Method(http.MethodGet, "/", errMw(h.Public.homeHandler))
		r.Method(http.MethodGet, "/category/{slug}", errMw(h.Public.categoryHandler))
		r.Method(http.MethodGet, "/category/{category}/{subcategory}", errMw(h.Public.subCategoryHandler))
		r.Method(http.MethodGet, "/article/{slug}", errMw(h.Public.articleHandler))
		r.Method(http.MethodGet, "/tag/{slug}", errMw(h.Public.tagHandler))
		r.Method(http.MethodGet, "/search", errMw(h.Public.searchHandler))
		r.Method(http.MethodGet, "/about", errMw(h.Public.aboutHandler))
		r.Method(http.MethodGet, "/api/search/suggestions", errMw(h.Public.suggestionsHandler))

		// Authentication routes
		r.Method(http.MethodGet, "/auth/login", errMw(h.Auth.loginFormHandler))
		r.Method(http.MethodPost, "/auth/login", errMw(h.Auth.loginHandler))
		r.Method(http.MethodPost, "/auth/logout", errMw(h.Auth.logoutHandler))
		r.Method(http.MethodGet, "/auth/logout", errMw(h.Auth.logoutHandler))

		// Protected routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(authzMiddleware)

			r.Method(http.MethodGet, "/", errMw(h.Admin.dashboardHandler))

			r.Method(http.MethodGet, "/categories", errMw(h.Admin.listCategoriesHandler))
			r.Method(http.MethodGet, "/categories/new", errMw(h.Admin.newCategoryHandler))
			r.Method(http.MethodPost, "/categories/new", errMw(h.Admin.createCategoryHandler))
			r.Method(http.MethodGet, "/categories/{id}/edit", errMw(h.Admin.editCategoryHandler))
			r.Method(http.MethodPost, "/categories/{id}/edit", errMw(h.Admin.updateCategoryHandler))
			r.Method(http.MethodPost, "/categories/{id}/delete", errMw(h.Admin.deleteCategoryHandler))

			r.Method(http.MethodGet, "/subcategories", errMw(h.Admin.listSubCategoriesHandler))
			r.Method(http.MethodGet, "/subcategories/new", errMw(h.Admin.newSubCategoryHandler))
			r.Method(http.MethodPost, "/subcategories/new", errMw(h.Admin.createSubCategoryHandler))
			r.Method(http.MethodGet, "/subcategories/{id}/edit", errMw(h.Admin.editSubCategoryHandler))
			r.Method(http.MethodPost, "/subcategories/{id}/edit", errMw(h.Admin.updateSubCategoryHandler))
			r.Method(http.MethodPost, "/subcategories/{id}/delete", errMw(h.Admin.deleteSubCategoryHandler))

			r.Method(http.MethodGet, "/tags", errMw(h.Admin.listTagsHandler))
			r.Method(http.MethodGet, "/tags/new", errMw(h.Admin.newTagHandler))
			r.Method(http.MethodPost, "/tags/new", errMw(h.Admin.createTagHandler))
			r.Method(http.MethodGet, "/tags/{id}/edit", errMw(h.Admin.editTagHandler))
			r.Method(http.MethodPost, "/tags/{id}/edit", errMw(h.Admin.updateTagHandler))
			r.Method(http.MethodPost, "/tags/{id}/delete", errMw(h.Admin.deleteTagHandler))

			r.Method(http.MethodGet, "/articles", errMw(h.Admin.listArticlesHandler))
			r.Method(http.MethodGet, "/articles/new", errMw(h.Admin.newArticleHandler))
			r.Method(http.MethodPost, "/articles/new", errMw(h.Admin.createArticleHandler))
			r.Method(http.MethodGet, "/articles/{id}/edit", errMw(h.Admin.editArticleHandler))
			r.Method(http.MethodPost, "/articles/{id}/edit", errMw(h.Admin.updateArticleHandler))
			r.Method(http.MethodPost, "/articles/{id}/delete", errMw(h.Admin.deleteArticleHandler))

			r.Method(http.MethodGet, "/api/subcategories/{categoryID}", errMw(h.Admin.subCategoriesAPIHandler))
		})

		// Registered last so the mounted /admin router inherits it.
		r.NotFound(errMw(func(w http.ResponseWriter, r *http.Request) *middleware.AppError {
			return middleware.NotFound(nil)
		}).ServeHTTP)
	})

	return r
}
