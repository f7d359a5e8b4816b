//go:build unit

package service

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"go-kb-app/internal/data"
)

// mockCategoryRepository is an in-memory CategoryRepository.
type mockCategoryRepository struct {
	rows        map[int64]*data.Category
	nextID      int64
	articles    map[int64]int
	errToReturn error
}

var _ CategoryRepository = (*mockCategoryRepository)(nil)

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{rows: map[int64]*data.Category{}, articles: map[int64]int{}}
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*data.Category, error) {
	var out []*data.Category
	for _, c := range m.rows {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, m.errToReturn
}

func (m *mockCategoryRepository) GetByID(ctx context.Context, id int64) (*data.Category, error) {
	if c, ok := m.rows[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, fmt.Errorf("category with id %d: %w", id, data.ErrNotFound)
}

func (m *mockCategoryRepository) GetBySlug(ctx context.Context, slug string) (*data.Category, error) {
	for _, c := range m.rows {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("category %q: %w", slug, data.ErrNotFound)
}

func (m *mockCategoryRepository) NameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	for _, c := range m.rows {
		if c.Name == name && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCategoryRepository) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	if m.errToReturn != nil {
		return false, m.errToReturn
	}
	for _, c := range m.rows {
		if c.Slug == slug && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCategoryRepository) Create(ctx context.Context, c *data.Category) error {
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, c *data.Category) error {
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

func (m *mockCategoryRepository) CountArticles(ctx context.Context, id int64) (int, error) {
	return m.articles[id], nil
}

func (m *mockCategoryRepository) Count(ctx context.Context) (int, error) {
	return len(m.rows), nil
}

// mockSubCategoryRepository is an in-memory SubCategoryRepository.
type mockSubCategoryRepository struct {
	rows     map[int64]*data.SubCategory
	nextID   int64
	articles map[int64]int
}

var _ SubCategoryRepository = (*mockSubCategoryRepository)(nil)

func newMockSubCategoryRepository() *mockSubCategoryRepository {
	return &mockSubCategoryRepository{rows: map[int64]*data.SubCategory{}, articles: map[int64]int{}}
}

func (m *mockSubCategoryRepository) List(ctx context.Context) ([]*data.SubCategory, error) {
	var out []*data.SubCategory
	for _, s := range m.rows {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockSubCategoryRepository) ListByCategory(ctx context.Context, categoryID int64) ([]*data.SubCategory, error) {
	var out []*data.SubCategory
	for _, s := range m.rows {
		if s.CategoryID == categoryID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSubCategoryRepository) GetByID(ctx context.Context, id int64) (*data.SubCategory, error) {
	if s, ok := m.rows[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, fmt.Errorf("subcategory with id %d: %w", id, data.ErrNotFound)
}

func (m *mockSubCategoryRepository) GetBySlug(ctx context.Context, categoryID int64, slug string) (*data.SubCategory, error) {
	for _, s := range m.rows {
		if s.CategoryID == categoryID && s.Slug == slug {
			cp := *s
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("subcategory %q: %w", slug, data.ErrNotFound)
}

func (m *mockSubCategoryRepository) NameExists(ctx context.Context, categoryID int64, name string, excludeID int64) (bool, error) {
	for _, s := range m.rows {
		if s.CategoryID == categoryID && s.Name == name && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSubCategoryRepository) SlugExists(ctx context.Context, categoryID int64, slug string, excludeID int64) (bool, error) {
	for _, s := range m.rows {
		if s.CategoryID == categoryID && s.Slug == slug && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSubCategoryRepository) Create(ctx context.Context, s *data.SubCategory) error {
	m.nextID++
	s.ID = m.nextID
	cp := *s
	m.rows[s.ID] = &cp
	return nil
}

func (m *mockSubCategoryRepository) Update(ctx context.Context, s *data.SubCategory) error {
	cp := *s
	m.rows[s.ID] = &cp
	return nil
}

func (m *mockSubCategoryRepository) Delete(ctx context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

func (m *mockSubCategoryRepository) CountArticles(ctx context.Context, id int64) (int, error) {
	return m.articles[id], nil
}

func (m *mockSubCategoryRepository) Count(ctx context.Context) (int, error) {
	return len(m.rows), nil
}

// mockTagRepository is an in-memory TagRepository.
type mockTagRepository struct {
	rows      map[int64]*data.Tag
	nextID    int64
	byArticle map[int64][]*data.Tag
}

var _ TagRepository = (*mockTagRepository)(nil)

func newMockTagRepository() *mockTagRepository {
	return &mockTagRepository{rows: map[int64]*data.Tag{}, byArticle: map[int64][]*data.Tag{}}
}

func (m *mockTagRepository) List(ctx context.Context) ([]*data.Tag, error) {
	var out []*data.Tag
	for _, t := range m.rows {
		out = append(out, t)
	}
	return out, nil
}

func (m *mockTagRepository) ListByArticle(ctx context.Context, articleID int64) ([]*data.Tag, error) {
	return m.byArticle[articleID], nil
}

func (m *mockTagRepository) GetByID(ctx context.Context, id int64) (*data.Tag, error) {
	if t, ok := m.rows[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, fmt.Errorf("tag with id %d: %w", id, data.ErrNotFound)
}

func (m *mockTagRepository) GetBySlug(ctx context.Context, slug string) (*data.Tag, error) {
	for _, t := range m.rows {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("tag %q: %w", slug, data.ErrNotFound)
}

func (m *mockTagRepository) NameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	for _, t := range m.rows {
		if t.Name == name && t.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTagRepository) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	for _, t := range m.rows {
		if t.Slug == slug && t.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTagRepository) Create(ctx context.Context, t *data.Tag) error {
	m.nextID++
	t.ID = m.nextID
	cp := *t
	m.rows[t.ID] = &cp
	return nil
}

func (m *mockTagRepository) Update(ctx context.Context, t *data.Tag) error {
	cp := *t
	m.rows[t.ID] = &cp
	return nil
}

func (m *mockTagRepository) Delete(ctx context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

func (m *mockTagRepository) Count(ctx context.Context) (int, error) {
	return len(m.rows), nil
}

// mockArticleRepository is an in-memory ArticleRepository. Listing methods
// return everything; the SQL behaviour is covered by integration tests.
type mockArticleRepository struct {
	rows            map[int64]*data.Article
	tagIDs          map[int64][]int64
	nextID          int64
	lastSearchQuery string
	searchCalled    int
	suggestCalled   int
}

var _ ArticleRepository = (*mockArticleRepository)(nil)

func newMockArticleRepository() *mockArticleRepository {
	return &mockArticleRepository{rows: map[int64]*data.Article{}, tagIDs: map[int64][]int64{}}
}

func (m *mockArticleRepository) all() []*data.Article {
	var out []*data.Article
	for _, a := range m.rows {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockArticleRepository) Create(ctx context.Context, a *data.Article, tagIDs []int64) error {
	m.nextID++
	a.ID = m.nextID
	a.CreatedAt, a.UpdatedAt = time.Now(), time.Now()
	cp := *a
	m.rows[a.ID] = &cp
	m.tagIDs[a.ID] = tagIDs
	return nil
}

func (m *mockArticleRepository) Update(ctx context.Context, a *data.Article, tagIDs []int64) error {
	if _, ok := m.rows[a.ID]; !ok {
		return data.ErrNotFound
	}
	cp := *a
	m.rows[a.ID] = &cp
	m.tagIDs[a.ID] = tagIDs
	return nil
}

func (m *mockArticleRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return data.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *mockArticleRepository) GetByID(ctx context.Context, id int64) (*data.Article, error) {
	if a, ok := m.rows[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, fmt.Errorf("article with id %d: %w", id, data.ErrNotFound)
}

func (m *mockArticleRepository) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (*data.Article, error) {
	for _, a := range m.rows {
		if a.Slug == slug && (!publishedOnly || a.IsPublished) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("article %q: %w", slug, data.ErrNotFound)
}

func (m *mockArticleRepository) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	for _, a := range m.rows {
		if a.Slug == slug && a.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockArticleRepository) ListAdmin(ctx context.Context, p data.Pagination) ([]*data.Article, int, error) {
	all := m.all()
	return all, len(all), nil
}

func (m *mockArticleRepository) ListFeatured(ctx context.Context, limit int) ([]*data.Article, error) {
	return m.all(), nil
}

func (m *mockArticleRepository) ListRecent(ctx context.Context, limit int) ([]*data.Article, error) {
	return m.all(), nil
}

func (m *mockArticleRepository) ListPublished(ctx context.Context) ([]*data.Article, error) {
	return m.all(), nil
}

func (m *mockArticleRepository) ListByCategory(ctx context.Context, categoryID int64, p data.Pagination) ([]*data.Article, int, error) {
	all := m.all()
	return all, len(all), nil
}

func (m *mockArticleRepository) ListBySubCategory(ctx context.Context, subCategoryID int64, p data.Pagination) ([]*data.Article, int, error) {
	all := m.all()
	return all, len(all), nil
}

func (m *mockArticleRepository) ListByTag(ctx context.Context, tagID int64, p data.Pagination) ([]*data.Article, int, error) {
	all := m.all()
	return all, len(all), nil
}

func (m *mockArticleRepository) ListRelated(ctx context.Context, a *data.Article, limit int) ([]*data.Article, error) {
	return nil, nil
}

func (m *mockArticleRepository) Search(ctx context.Context, query string, p data.Pagination) ([]*data.Article, int, error) {
	m.searchCalled++
	m.lastSearchQuery = query
	var out []*data.Article
	for _, a := range m.all() {
		if strings.Contains(strings.ToLower(a.SearchText), strings.ToLower(query)) {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (m *mockArticleRepository) Suggestions(ctx context.Context, query string, limit int) ([]*data.Article, error) {
	m.suggestCalled++
	return m.all(), nil
}

func (m *mockArticleRepository) Stats(ctx context.Context) (*data.ArticleStats, error) {
	return &data.ArticleStats{Total: len(m.rows)}, nil
}

// mockRenderer records how often it was asked to render.
type mockRenderer struct {
	calls int
	err   error
}

func (m *mockRenderer) Render(src string) (template.HTML, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return template.HTML("<p>" + src + "</p>"), nil
}

// mockCache is a map-backed RenderCache.
type mockCache struct {
	entries map[string][]byte
	getErr  error
}

func newMockCache() *mockCache {
	return &mockCache{entries: map[string][]byte{}}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte) error {
	m.entries[key] = value
	return nil
}

// mockUserRepository is an in-memory UserRepository.
type mockUserRepository struct {
	rows      map[string]*data.User
	nextID    int64
	lastLogin map[int64]time.Time
}

var _ UserRepository = (*mockUserRepository)(nil)

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{rows: map[string]*data.User{}, lastLogin: map[int64]time.Time{}}
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*data.User, error) {
	if u, ok := m.rows[username]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, fmt.Errorf("user %q: %w", username, data.ErrNotFound)
}

func (m *mockUserRepository) Exists(ctx context.Context, username string) (bool, error) {
	_, ok := m.rows[username]
	return ok, nil
}

func (m *mockUserRepository) Create(ctx context.Context, u *data.User) error {
	if _, ok := m.rows[u.Username]; ok {
		return errors.New("duplicate username")
	}
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.rows[u.Username] = &cp
	return nil
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	for _, u := range m.rows {
		if u.ID == id {
			u.PasswordHash = hash
			return nil
		}
	}
	return data.ErrNotFound
}

func (m *mockUserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	m.lastLogin[id] = at
	return nil
}
