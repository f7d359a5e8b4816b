package service

import (
	"context"
	"regexp"
	"strings"

	"go-kb-app/internal/data"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultTagColor is used when a tag is saved without a color.
const DefaultTagColor = "#2563eb"

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// TagRepository defines the interface for database operations on tags.
type TagRepository interface {
	List(ctx context.Context) ([]*data.Tag, error)
	ListByArticle(ctx context.Context, articleID int64) ([]*data.Tag, error)
	GetByID(ctx context.Context, id int64) (*data.Tag, error)
	GetBySlug(ctx context.Context, slug string) (*data.Tag, error)
	NameExists(ctx context.Context, name string, excludeID int64) (bool, error)
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
	Create(ctx context.Context, t *data.Tag) error
	Update(ctx context.Context, t *data.Tag) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// TagInput carries the administrator-editable fields of a tag.
type TagInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// Validate checks field presence, lengths and the color format.
func (in TagInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 50)),
		validation.Field(&in.Description, validation.Length(0, 200)),
		validation.Field(&in.Color, validation.Match(hexColor).Error("must be a #rrggbb color")),
	)
}

// TagService provides business logic for managing tags.
type TagService struct {
	repo TagRepository
}

// NewTagService creates a new TagService with the given repository.
func NewTagService(repo TagRepository) *TagService {
	return &TagService{repo: repo}
}

func (s *TagService) List(ctx context.Context) ([]*data.Tag, error) {
	return s.repo.List(ctx)
}

func (s *TagService) GetByID(ctx context.Context, id int64) (*data.Tag, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *TagService) GetBySlug(ctx context.Context, slug string) (*data.Tag, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *TagService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Create validates in and stores a new tag.
func (s *TagService) Create(ctx context.Context, in TagInput) (*data.Tag, error) {
	t := &data.Tag{}
	if err := s.apply(ctx, t, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Update validates in and saves it over the tag with the given id.
func (s *TagService) Update(ctx context.Context, id int64, in TagInput) (*data.Tag, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, t, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TagService) apply(ctx context.Context, t *data.Tag, in TagInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Color = strings.TrimSpace(in.Color)
	if in.Color == "" {
		in.Color = DefaultTagColor
	}
	if err := in.Validate(); err != nil {
		return err
	}

	taken, err := s.repo.NameExists(ctx, in.Name, t.ID)
	if err != nil {
		return err
	}
	if taken {
		return fieldError("name", "validation_name_taken", "a tag with this name already exists")
	}

	slug, err := resolveSlug("name", in.Name, t.Slug, func(candidate string) (bool, error) {
		return s.repo.SlugExists(ctx, candidate, t.ID)
	})
	if err != nil {
		return err
	}

	t.Name = in.Name
	t.Slug = slug
	t.Description = in.Description
	t.Color = strings.ToLower(in.Color)
	return nil
}

// Delete removes a tag and its article associations.
func (s *TagService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
