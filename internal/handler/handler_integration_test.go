//go:build integration

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"go-kb-app/internal/auth"
	"go-kb-app/internal/config"
	"go-kb-app/internal/data"
	"go-kb-app/internal/logger"
	"go-kb-app/internal/markdown"
	"go-kb-app/internal/middleware"
	"go-kb-app/internal/service"
	"go-kb-app/internal/session"
	"go-kb-app/internal/view"
	"go-kb-app/web"

	"github.com/casbin/casbin/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAdmin    = "admin"
	testPassword = "correct horse"
)

type testApp struct {
	Router     *chi.Mux
	Categories *service.CategoryService
	Articles   *service.ArticleService
	Tags       *service.TagService
}

// setupIntegrationTest initializes a full application stack over an
// in-memory SQLite database.
func setupIntegrationTest(t *testing.T) (*testApp, func()) {
	t.Helper()
	db, err := data.NewDB(config.DBConfig{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, data.ApplyMigrations(db, "sqlite3"))

	log := logger.Nop()
	viewService, err := view.New(web.TemplateFS)
	require.NoError(t, err)
	renderer, err := markdown.New(markdown.DefaultOptions())
	require.NoError(t, err)

	categoryRepository := data.NewCategoryRepository(db)
	subCategoryRepository := data.NewSubCategoryRepository(db)
	tagRepository := data.NewTagRepository(db)
	articleRepository := data.NewArticleRepository(db)

	categoryService := service.NewCategoryService(categoryRepository)
	subCategoryService := service.NewSubCategoryService(subCategoryRepository, categoryRepository)
	tagService := service.NewTagService(tagRepository)
	articleService := service.NewArticleService(articleRepository, categoryRepository,
		subCategoryRepository, tagRepository, renderer, nil, log)
	authService := service.NewAuthService(data.NewUserRepository(db))

	_, err = authService.EnsureUser(context.Background(), testAdmin, testPassword)
	require.NoError(t, err)

	m, err := auth.NewModel()
	require.NoError(t, err)
	enforcer, err := casbin.NewEnforcer(m)
	require.NoError(t, err)
	auth.SeedDefaultPolicies(enforcer, log)
	require.NoError(t, auth.GrantAdmin(enforcer, testAdmin))

	sessionManager := session.New(db, "sqlite3", config.SessionConfig{Lifetime: 1}, false)
	content := config.ContentConfig{ArticlesPerPage: 10, SearchResultsPerPage: 10}

	handlers := Handlers{
		Public: NewPublicHandler(categoryService, subCategoryService, tagService, articleService,
			renderer, content, viewService, sessionManager, log),
		Auth: NewAuthHandler(authService, viewService, sessionManager, log),
		Admin: NewAdminHandler(categoryService, subCategoryService, tagService, articleService,
			viewService, sessionManager, log),
		Seo: NewSeoHandler(categoryService, articleService, "https://kb.example.com/"),
	}
	router := NewRouter(handlers, sessionManager, middleware.Authorizer(enforcer, log), web.StaticFS, viewService, log)

	app := &testApp{
		Router:     router,
		Categories: categoryService,
		Articles:   articleService,
		Tags:       tagService,
	}
	teardown := func() {
		db.Close()
	}
	return app, teardown
}

func (app *testApp) do(t *testing.T, method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	app.Router.ServeHTTP(rr, req)
	return rr
}

// login signs in as the test admin and returns the session cookie.
func (app *testApp) login(t *testing.T) *http.Cookie {
	t.Helper()
	rr := app.do(t, http.MethodPost, "/auth/login", url.Values{
		"username": {testAdmin},
		"password": {testPassword},
		"next":     {"/admin"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/admin", rr.Header().Get("Location"))
	for _, c := range rr.Result().Cookies() {
		if c.Name == "kb_session" {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func seedContent(t *testing.T, app *testApp) (*data.Category, *data.Article) {
	t.Helper()
	ctx := context.Background()
	cat, err := app.Categories.Create(ctx, service.CategoryInput{Name: "Getting Started", Icon: "rocket"})
	require.NoError(t, err)
	tag, err := app.Tags.Create(ctx, service.TagInput{Name: "Beginner"})
	require.NoError(t, err)
	article, err := app.Articles.Create(ctx, service.ArticleInput{
		Title:       "Installing Go",
		Content:     "# Install\n\nRun `go version` to check.\n\n```go\nfmt.Println(\"hi\")\n```",
		Summary:     "How to install the toolchain",
		CategoryID:  cat.ID,
		IsPublished: true,
		TagIDs:      []int64{tag.ID},
	}, nil)
	require.NoError(t, err)
	_, err = app.Articles.Create(ctx, service.ArticleInput{
		Title:      "Unfinished Draft",
		Content:    "secret",
		CategoryID: cat.ID,
	}, nil)
	require.NoError(t, err)
	return cat, article
}

func TestPublicPages_Integration(t *testing.T) {
	app, teardown := setupIntegrationTest(t)
	defer teardown()
	_, article := seedContent(t, app)

	testCases := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"Home lists categories", "/", http.StatusOK, "Getting Started"},
		{"Home lists recent articles", "/", http.StatusOK, "Installing Go"},
		{"Category page", "/category/getting-started", http.StatusOK, "Installing Go"},
		{"Unknown category", "/category/nope", http.StatusNotFound, "404"},
		{"Article renders markdown", "/article/" + article.Slug, http.StatusOK, "<code>go version</code>"},
		{"Article shows tags", "/article/" + article.Slug, http.StatusOK, "/tag/beginner"},
		{"Draft is hidden", "/article/unfinished-draft", http.StatusNotFound, "404"},
		{"Malformed article slug", "/article/Not_A_Slug", http.StatusNotFound, "Page not found"},
		{"Malformed tag slug", "/tag/beginner--", http.StatusNotFound, "Page not found"},
		{"Malformed subcategory slug", "/category/getting-started/Sub%20Cat", http.StatusNotFound, "Page not found"},
		{"Search finds title", "/search?q=install", http.StatusOK, "Installing Go"},
		{"Search skips drafts", "/search?q=secret", http.StatusOK, "No articles matched"},
		{"Tag page", "/tag/beginner", http.StatusOK, "Installing Go"},
		{"About page", "/about", http.StatusOK, "About"},
		{"Unknown route", "/does/not/exist", http.StatusNotFound, "Page not found"},
		{"Highlight stylesheet", "/static/css/highlight.css", http.StatusOK, ".chroma"},
		{"Static asset", "/static/js/main.js", http.StatusOK, "initLiveSearch"},
		{"Robots", "/robots.txt", http.StatusOK, "Sitemap: https://kb.example.com/sitemap.xml"},
		{"Sitemap lists articles", "/sitemap.xml", http.StatusOK, "https://kb.example.com/article/installing-go"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := app.do(t, http.MethodGet, tc.path, nil)
			assert.Equal(t, tc.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.wantBody)
		})
	}
}

func TestHealthAndSuggestions_Integration(t *testing.T) {
	app, teardown := setupIntegrationTest(t)
	defer teardown()
	seedContent(t, app)

	rr := app.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rr.Body.String())

	rr = app.do(t, http.MethodGet, "/api/search/suggestions?q=inst", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got []suggestion
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Installing Go", got[0].Title)
	assert.Equal(t, "/article/installing-go", got[0].URL)
	assert.Equal(t, "Getting Started", got[0].Category)
	assert.Nil(t, got[0].SubCategory)

	rr = app.do(t, http.MethodGet, "/api/search/suggestions?q=i", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestAdminRequiresLogin_Integration(t *testing.T) {
	app, teardown := setupIntegrationTest(t)
	defer teardown()

	rr := app.do(t, http.MethodGet, "/admin/articles?page=2", nil)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/auth/login?next=%2Fadmin%2Farticles%3Fpage%3D2", rr.Header().Get("Location"))

	rr = app.do(t, http.MethodPost, "/auth/login", url.Values{"username": {testAdmin}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid username or password")
}

func TestAdminWorkflow_Integration(t *testing.T) {
	app, teardown := setupIntegrationTest(t)
	defer teardown()
	cookie := app.login(t)

	rr := app.do(t, http.MethodGet, "/admin", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Dashboard")

	// Invalid form re-renders with field errors.
	rr = app.do(t, http.MethodPost, "/admin/categories/new", url.Values{"name": {""}}, cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "field-error")

	rr = app.do(t, http.MethodPost, "/admin/categories/new", url.Values{"name": {"How To"}, "sort_order": {"1"}}, cookie)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/admin/categories", rr.Header().Get("Location"))

	cat, err := app.Categories.GetBySlug(context.Background(), "how-to")
	require.NoError(t, err)

	rr = app.do(t, http.MethodPost, "/admin/subcategories/new", url.Values{
		"name":        {"Networking"},
		"category_id": {itoa(cat.ID)},
	}, cookie)
	require.Equal(t, http.StatusSeeOther, rr.Code)

	rr = app.do(t, http.MethodGet, "/admin/api/subcategories/"+itoa(cat.ID), nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	var subs []subCategoryOption
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &subs))
	require.Len(t, subs, 1)
	assert.Equal(t, "Networking", subs[0].Name)

	rr = app.do(t, http.MethodPost, "/admin/articles/new", url.Values{
		"title":          {"Configure DNS"},
		"content":        {"Edit `/etc/resolv.conf`."},
		"category_id":    {itoa(cat.ID)},
		"subcategory_id": {itoa(subs[0].ID)},
		"is_published":   {"on"},
	}, cookie)
	require.Equal(t, http.StatusSeeOther, rr.Code)

	rr = app.do(t, http.MethodGet, "/category/how-to/networking", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Configure DNS")

	// A category with articles cannot be deleted.
	rr = app.do(t, http.MethodPost, "/admin/categories/"+itoa(cat.ID)+"/delete", nil, cookie)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	_, err = app.Categories.GetByID(context.Background(), cat.ID)
	assert.NoError(t, err)

	rr = app.do(t, http.MethodGet, "/admin/articles", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Configure DNS")

	rr = app.do(t, http.MethodPost, "/auth/logout", nil, cookie)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
