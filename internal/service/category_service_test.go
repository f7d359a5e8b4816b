//go:build unit

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns slug from name", func(t *testing.T) {
		svc := NewCategoryService(newMockCategoryRepository())
		c, err := svc.Create(ctx, CategoryInput{Name: "  Getting Started  ", Icon: "rocket"})
		require.NoError(t, err)
		assert.Equal(t, "Getting Started", c.Name)
		assert.Equal(t, "getting-started", c.Slug)
	})

	t.Run("suffixes colliding slug", func(t *testing.T) {
		svc := NewCategoryService(newMockCategoryRepository())
		_, err := svc.Create(ctx, CategoryInput{Name: "C++"})
		require.NoError(t, err)
		c, err := svc.Create(ctx, CategoryInput{Name: "C"})
		require.NoError(t, err)
		assert.Equal(t, "c-1", c.Slug)
	})

	t.Run("duplicate name is a field error", func(t *testing.T) {
		svc := NewCategoryService(newMockCategoryRepository())
		_, err := svc.Create(ctx, CategoryInput{Name: "Guides"})
		require.NoError(t, err)
		_, err = svc.Create(ctx, CategoryInput{Name: "Guides"})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, FieldErrors(err)["name"], "already exists")
	})

	t.Run("blank name", func(t *testing.T) {
		svc := NewCategoryService(newMockCategoryRepository())
		_, err := svc.Create(ctx, CategoryInput{Name: "   "})
		require.Error(t, err)
		assert.Contains(t, FieldErrors(err), "name")
	})

	t.Run("name without slug characters", func(t *testing.T) {
		svc := NewCategoryService(newMockCategoryRepository())
		_, err := svc.Create(ctx, CategoryInput{Name: "!!!"})
		require.Error(t, err)
		assert.Contains(t, FieldErrors(err)["name"], "letter or digit")
	})

	t.Run("repository error is not a validation error", func(t *testing.T) {
		repo := newMockCategoryRepository()
		repo.errToReturn = errors.New("db down")
		svc := NewCategoryService(repo)
		_, err := svc.Create(ctx, CategoryInput{Name: "Ops"})
		require.Error(t, err)
		assert.False(t, IsValidationError(err))
	})
}

func TestCategoryService_Update(t *testing.T) {
	ctx := context.Background()
	svc := NewCategoryService(newMockCategoryRepository())

	_, err := svc.Create(ctx, CategoryInput{Name: "Guides"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, CategoryInput{Name: "guides!"})
	require.NoError(t, err)
	require.Equal(t, "guides-1", second.Slug)

	t.Run("same base keeps suffixed slug", func(t *testing.T) {
		updated, err := svc.Update(ctx, second.ID, CategoryInput{Name: "Guides?", Description: "x"})
		require.NoError(t, err)
		assert.Equal(t, "guides-1", updated.Slug)
		assert.Equal(t, "x", updated.Description)
	})

	t.Run("renaming regenerates slug", func(t *testing.T) {
		updated, err := svc.Update(ctx, second.ID, CategoryInput{Name: "How-tos"})
		require.NoError(t, err)
		assert.Equal(t, "how-tos", updated.Slug)
	})

	t.Run("own name is not a duplicate", func(t *testing.T) {
		_, err := svc.Update(ctx, second.ID, CategoryInput{Name: "How-tos", Icon: "book"})
		assert.NoError(t, err)
	})
}

func TestCategoryService_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newMockCategoryRepository()
	svc := NewCategoryService(repo)

	c, err := svc.Create(ctx, CategoryInput{Name: "Busy"})
	require.NoError(t, err)
	repo.articles[c.ID] = 3

	assert.ErrorIs(t, svc.Delete(ctx, c.ID), ErrHasArticles)

	repo.articles[c.ID] = 0
	assert.NoError(t, svc.Delete(ctx, c.ID))
	n, _ := svc.Count(ctx)
	assert.Equal(t, 0, n)
}

func TestSubCategoryService(t *testing.T) {
	ctx := context.Background()
	cats := newMockCategoryRepository()
	subs := newMockSubCategoryRepository()
	catSvc := NewCategoryService(cats)
	svc := NewSubCategoryService(subs, cats)

	lang, err := catSvc.Create(ctx, CategoryInput{Name: "Languages"})
	require.NoError(t, err)
	tools, err := catSvc.Create(ctx, CategoryInput{Name: "Tools"})
	require.NoError(t, err)

	t.Run("slugs are scoped per category", func(t *testing.T) {
		a, err := svc.Create(ctx, SubCategoryInput{Name: "Go", CategoryID: lang.ID})
		require.NoError(t, err)
		b, err := svc.Create(ctx, SubCategoryInput{Name: "Go", CategoryID: tools.ID})
		require.NoError(t, err)
		assert.Equal(t, "go", a.Slug)
		assert.Equal(t, "go", b.Slug)

		c, err := svc.Create(ctx, SubCategoryInput{Name: "GO!", CategoryID: lang.ID})
		require.NoError(t, err)
		assert.Equal(t, "go-1", c.Slug)
	})

	t.Run("duplicate name within category", func(t *testing.T) {
		_, err := svc.Create(ctx, SubCategoryInput{Name: "Go", CategoryID: lang.ID})
		require.Error(t, err)
		assert.Contains(t, FieldErrors(err), "name")
	})

	t.Run("category is required and must exist", func(t *testing.T) {
		_, err := svc.Create(ctx, SubCategoryInput{Name: "Rust"})
		assert.Contains(t, FieldErrors(err), "category_id")

		_, err = svc.Create(ctx, SubCategoryInput{Name: "Rust", CategoryID: 99})
		assert.Contains(t, FieldErrors(err)["category_id"], "does not exist")
	})

	t.Run("resolve by slugs", func(t *testing.T) {
		c, s, err := svc.Resolve(ctx, "tools", "go")
		require.NoError(t, err)
		assert.Equal(t, tools.ID, c.ID)
		assert.Equal(t, tools.ID, s.CategoryID)
	})

	t.Run("moving re-resolves slug in new scope", func(t *testing.T) {
		moved, err := svc.Create(ctx, SubCategoryInput{Name: "Make", CategoryID: lang.ID})
		require.NoError(t, err)
		_, err = svc.Create(ctx, SubCategoryInput{Name: "make", CategoryID: tools.ID})
		require.NoError(t, err)

		updated, err := svc.Update(ctx, moved.ID, SubCategoryInput{Name: "Make!", CategoryID: tools.ID})
		require.NoError(t, err)
		assert.Equal(t, "make-1", updated.Slug)
		assert.Equal(t, "Tools", updated.CategoryName)
	})

	t.Run("delete blocked by articles", func(t *testing.T) {
		s, err := svc.Create(ctx, SubCategoryInput{Name: "Busy", CategoryID: lang.ID})
		require.NoError(t, err)
		subs.articles[s.ID] = 1
		assert.ErrorIs(t, svc.Delete(ctx, s.ID), ErrHasArticles)
	})
}

func TestTagService(t *testing.T) {
	ctx := context.Background()
	svc := NewTagService(newMockTagRepository())

	t.Run("defaults color", func(t *testing.T) {
		tag, err := svc.Create(ctx, TagInput{Name: "Beginner Friendly"})
		require.NoError(t, err)
		assert.Equal(t, "beginner-friendly", tag.Slug)
		assert.Equal(t, DefaultTagColor, tag.Color)
	})

	t.Run("rejects malformed color", func(t *testing.T) {
		_, err := svc.Create(ctx, TagInput{Name: "Red", Color: "red"})
		require.Error(t, err)
		assert.Contains(t, FieldErrors(err)["color"], "#rrggbb")
	})

	t.Run("normalises color case", func(t *testing.T) {
		tag, err := svc.Create(ctx, TagInput{Name: "Blue", Color: "#00AAFF"})
		require.NoError(t, err)
		assert.Equal(t, "#00aaff", tag.Color)
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := svc.Create(ctx, TagInput{Name: "Blue"})
		assert.Contains(t, FieldErrors(err), "name")
	})
}

func TestSameBase(t *testing.T) {
	assert.True(t, sameBase("foo", "foo"))
	assert.True(t, sameBase("foo-12", "foo"))
	assert.False(t, sameBase("foo-bar", "foo"))
	assert.False(t, sameBase("foo-", "foo"))
	assert.False(t, sameBase("foobar", "foo"))
}
