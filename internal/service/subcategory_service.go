package service

import (
	"context"
	"errors"
	"strings"

	"go-kb-app/internal/data"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// SubCategoryRepository defines the interface for database operations on subcategories.
type SubCategoryRepository interface {
	List(ctx context.Context) ([]*data.SubCategory, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]*data.SubCategory, error)
	GetByID(ctx context.Context, id int64) (*data.SubCategory, error)
	GetBySlug(ctx context.Context, categoryID int64, slug string) (*data.SubCategory, error)
	NameExists(ctx context.Context, categoryID int64, name string, excludeID int64) (bool, error)
	SlugExists(ctx context.Context, categoryID int64, slug string, excludeID int64) (bool, error)
	Create(ctx context.Context, s *data.SubCategory) error
	Update(ctx context.Context, s *data.SubCategory) error
	Delete(ctx context.Context, id int64) error
	CountArticles(ctx context.Context, id int64) (int, error)
	Count(ctx context.Context) (int, error)
}

// SubCategoryInput carries the administrator-editable fields of a subcategory.
type SubCategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CategoryID  int64  `json:"category_id"`
	SortOrder   int    `json:"sort_order"`
}

// Validate checks field presence and lengths.
func (in SubCategoryInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.CategoryID, validation.Required.Error("please select a category")),
		validation.Field(&in.SortOrder, validation.Min(0)),
	)
}

// SubCategoryService provides business logic for managing subcategories.
// Names and slugs are unique within their parent category only.
type SubCategoryService struct {
	repo       SubCategoryRepository
	categories CategoryRepository
}

// NewSubCategoryService creates a new SubCategoryService.
func NewSubCategoryService(repo SubCategoryRepository, categories CategoryRepository) *SubCategoryService {
	return &SubCategoryService{repo: repo, categories: categories}
}

// List returns all subcategories grouped by category.
func (s *SubCategoryService) List(ctx context.Context) ([]*data.SubCategory, error) {
	return s.repo.List(ctx)
}

// ListByCategory returns the subcategories of one category.
func (s *SubCategoryService) ListByCategory(ctx context.Context, categoryID int64) ([]*data.SubCategory, error) {
	return s.repo.ListByCategory(ctx, categoryID)
}

// GetByID returns one subcategory.
func (s *SubCategoryService) GetByID(ctx context.Context, id int64) (*data.SubCategory, error) {
	return s.repo.GetByID(ctx, id)
}

// Resolve looks up a category by slug and one of its subcategories by slug.
func (s *SubCategoryService) Resolve(ctx context.Context, categorySlug, subSlug string) (*data.Category, *data.SubCategory, error) {
	c, err := s.categories.GetBySlug(ctx, categorySlug)
	if err != nil {
		return nil, nil, err
	}
	sub, err := s.repo.GetBySlug(ctx, c.ID, subSlug)
	if err != nil {
		return nil, nil, err
	}
	return c, sub, nil
}

// Count returns the number of subcategories.
func (s *SubCategoryService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Create validates in and stores a new subcategory.
func (s *SubCategoryService) Create(ctx context.Context, in SubCategoryInput) (*data.SubCategory, error) {
	sub := &data.SubCategory{}
	if err := s.apply(ctx, sub, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Update validates in and saves it over the subcategory with the given id.
func (s *SubCategoryService) Update(ctx context.Context, id int64, in SubCategoryInput) (*data.SubCategory, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, sub, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubCategoryService) apply(ctx context.Context, sub *data.SubCategory, in SubCategoryInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := in.Validate(); err != nil {
		return err
	}

	parent, err := s.categories.GetByID(ctx, in.CategoryID)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return fieldError("category_id", "validation_category_missing", "category does not exist")
		}
		return err
	}

	taken, err := s.repo.NameExists(ctx, parent.ID, in.Name, sub.ID)
	if err != nil {
		return err
	}
	if taken {
		return fieldError("name", "validation_name_taken", "this category already has a subcategory with this name")
	}

	// A move to another category re-resolves the slug in the new scope.
	current := sub.Slug
	if sub.CategoryID != parent.ID {
		current = ""
	}
	slug, err := resolveSlug("name", in.Name, current, func(candidate string) (bool, error) {
		return s.repo.SlugExists(ctx, parent.ID, candidate, sub.ID)
	})
	if err != nil {
		return err
	}

	sub.Name = in.Name
	sub.Slug = slug
	sub.Description = in.Description
	sub.CategoryID = parent.ID
	sub.CategoryName = parent.Name
	sub.CategorySlug = parent.Slug
	sub.SortOrder = in.SortOrder
	return nil
}

// Delete removes a subcategory unless articles are still filed under it.
func (s *SubCategoryService) Delete(ctx context.Context, id int64) error {
	n, err := s.repo.CountArticles(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasArticles
	}
	return s.repo.Delete(ctx, id)
}
