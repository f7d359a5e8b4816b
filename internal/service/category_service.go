package service

import (
	"context"
	"strings"

	"go-kb-app/internal/data"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// CategoryRepository defines the interface for database operations on categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]*data.Category, error)
	GetByID(ctx context.Context, id int64) (*data.Category, error)
	GetBySlug(ctx context.Context, slug string) (*data.Category, error)
	NameExists(ctx context.Context, name string, excludeID int64) (bool, error)
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
	Create(ctx context.Context, c *data.Category) error
	Update(ctx context.Context, c *data.Category) error
	Delete(ctx context.Context, id int64) error
	CountArticles(ctx context.Context, id int64) (int, error)
	Count(ctx context.Context) (int, error)
}

// CategoryInput carries the administrator-editable fields of a category.
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	SortOrder   int    `json:"sort_order"`
}

// Validate checks field presence and lengths.
func (in CategoryInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Icon, validation.Length(0, 50)),
		validation.Field(&in.SortOrder, validation.Min(0)),
	)
}

// CategoryService provides business logic for managing categories.
type CategoryService struct {
	repo CategoryRepository
}

// NewCategoryService creates a new CategoryService with the given repository.
func NewCategoryService(repo CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// List returns all categories in display order.
func (s *CategoryService) List(ctx context.Context) ([]*data.Category, error) {
	return s.repo.List(ctx)
}

// GetByID returns one category.
func (s *CategoryService) GetByID(ctx context.Context, id int64) (*data.Category, error) {
	return s.repo.GetByID(ctx, id)
}

// GetBySlug returns one category.
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*data.Category, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// Count returns the number of categories.
func (s *CategoryService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Create validates in, assigns a unique slug and stores a new category.
func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*data.Category, error) {
	c := &data.Category{}
	if err := s.apply(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update validates in and saves it over the category with the given id.
func (s *CategoryService) Update(ctx context.Context, id int64, in CategoryInput) (*data.Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) apply(ctx context.Context, c *data.Category, in CategoryInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Icon = strings.TrimSpace(in.Icon)
	if err := in.Validate(); err != nil {
		return err
	}

	taken, err := s.repo.NameExists(ctx, in.Name, c.ID)
	if err != nil {
		return err
	}
	if taken {
		return fieldError("name", "validation_name_taken", "a category with this name already exists")
	}

	slug, err := resolveSlug("name", in.Name, c.Slug, func(candidate string) (bool, error) {
		return s.repo.SlugExists(ctx, candidate, c.ID)
	})
	if err != nil {
		return err
	}

	c.Name = in.Name
	c.Slug = slug
	c.Description = in.Description
	c.Icon = in.Icon
	c.SortOrder = in.SortOrder
	return nil
}

// Delete removes a category unless articles are still filed under it.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	n, err := s.repo.CountArticles(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasArticles
	}
	return s.repo.Delete(ctx, id)
}
