package data

import (
	"html/template"
	"time"
)

// User is an administrator account.
type User struct {
	ID           int64      `db:"id"`
	Username     string     `db:"username"`
	PasswordHash string     `db:"password_hash"`
	CreatedAt    time.Time  `db:"created_at"`
	LastLogin    *time.Time `db:"last_login"`
}

// Category is a top-level grouping of articles.
type Category struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Slug        string    `db:"slug"`
	Description string    `db:"description"`
	Icon        string    `db:"icon"`
	SortOrder   int       `db:"sort_order"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// SubCategory belongs to exactly one Category. Its slug is unique within
// that category only.
type SubCategory struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Slug        string    `db:"slug"`
	Description string    `db:"description"`
	CategoryID  int64     `db:"category_id"`
	SortOrder   int       `db:"sort_order"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`

	// Populated by joined queries.
	CategoryName string `db:"category_name"`
	CategorySlug string `db:"category_slug"`
}

// Article is a Markdown knowledge-base entry.
type Article struct {
	ID            int64      `db:"id"`
	Title         string     `db:"title"`
	Slug          string     `db:"slug"`
	Content       string     `db:"content"`
	Summary       string     `db:"summary"`
	CategoryID    int64      `db:"category_id"`
	SubCategoryID *int64     `db:"subcategory_id"`
	IsPublished   bool       `db:"is_published"`
	IsFeatured    bool       `db:"is_featured"`
	AuthorID      *int64     `db:"author_id"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	PublishedAt   *time.Time `db:"published_at"`
	// SearchText duplicates title and content for substring search.
	SearchText string `db:"search_text"`

	CategoryName    string  `db:"category_name"`
	CategorySlug    string  `db:"category_slug"`
	SubCategoryName *string `db:"subcategory_name"`
	SubCategorySlug *string `db:"subcategory_slug"`
	AuthorName      *string `db:"author_name"`

	HTMLContent template.HTML `db:"-"`
	Tags        []*Tag        `db:"-"`
}

// UpdateSearchText refreshes the persisted search duplicate.
func (a *Article) UpdateSearchText() {
	a.SearchText = a.Title + " " + a.Content
}

// Tag labels articles across categories.
type Tag struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Slug        string    `db:"slug"`
	Description string    `db:"description"`
	Color       string    `db:"color"`
	CreatedAt   time.Time `db:"created_at"`
}

// ArticleStats summarises article counts for the admin dashboard.
type ArticleStats struct {
	Total     int `db:"total"`
	Published int `db:"published"`
	Drafts    int `db:"drafts"`
	Featured  int `db:"featured"`
}

// Pagination describes one page of a larger result set.
type Pagination struct {
	Page    int
	PerPage int
	Total   int
}

// NewPagination clamps page and perPage to sane values.
func NewPagination(page, perPage int) Pagination {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	return Pagination{Page: page, PerPage: perPage}
}

// Offset is the number of rows preceding the current page.
func (p Pagination) Offset() int { return (p.Page - 1) * p.PerPage }

// Pages is the total number of pages, at least 1.
func (p Pagination) Pages() int {
	if p.Total <= 0 || p.PerPage <= 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

func (p Pagination) HasPrev() bool { return p.Page > 1 }
func (p Pagination) HasNext() bool { return p.Page < p.Pages() }
func (p Pagination) PrevPage() int { return p.Page - 1 }
func (p Pagination) NextPage() int { return p.Page + 1 }
