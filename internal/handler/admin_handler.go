package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go-kb-app/internal/data"
	"go-kb-app/internal/logger"
	"go-kb-app/internal/middleware"
	"go-kb-app/internal/service"
	"go-kb-app/internal/session"
	"go-kb-app/internal/view"
)

// AdminArticlesPerPage is the page size of the admin article list.
const AdminArticlesPerPage = 20

// AdminHandler serves the content management pages under /admin.
type AdminHandler struct {
	base
	categories    *service.CategoryService
	subcategories *service.SubCategoryService
	tags          *service.TagService
	articles      *service.ArticleService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	categories *service.CategoryService,
	subcategories *service.SubCategoryService,
	tags *service.TagService,
	articles *service.ArticleService,
	v *view.View,
	sm session.Manager,
	log logger.Logger,
) *AdminHandler {
	return &AdminHandler{
		base:          base{view: v, sessions: sm, log: log},
		categories:    categories,
		subcategories: subcategories,
		tags:          tags,
		articles:      articles,
	}
}

// formInt parses an integer form field, treating blanks and junk as zero.
func formInt(r *http.Request, name string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(r.PostForm.Get(name)), 10, 64)
	return n
}

// formBool reports whether a checkbox was ticked.
func formBool(r *http.Request, name string) bool {
	v := r.PostForm.Get(name)
	return v == "on" || v == "true" || v == "1"
}

func parseForm(r *http.Request) *middleware.AppError {
	if err := r.ParseForm(); err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid form submission", Code: http.StatusBadRequest}
	}
	return nil
}

func badID(err error) *middleware.AppError {
	return &middleware.AppError{Error: err, Message: "Invalid identifier", Code: http.StatusBadRequest}
}

// saveFailed returns field errors for a form that should be shown again, or
// an AppError for anything else.
func saveFailed(err error) (map[string]string, *middleware.AppError) {
	if service.IsValidationError(err) {
		return service.FieldErrors(err), nil
	}
	return nil, lookupError(err, "record")
}

// deleteFailed flashes a refusal for ErrHasArticles and reports other errors.
func (h *AdminHandler) deleteFailed(r *http.Request, err error, what string) *middleware.AppError {
	if errors.Is(err, service.ErrHasArticles) {
		h.flash(r, "Cannot delete this "+what+" while articles are filed under it.")
		return nil
	}
	return lookupError(err, what)
}

// dashboardHandler summarises the knowledge base.
func (h *AdminHandler) dashboardHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	ctx := r.Context()
	stats, err := h.articles.Stats(ctx)
	if err != nil {
		return middleware.Internal(err, "Failed to load statistics")
	}
	categories, err := h.categories.Count(ctx)
	if err != nil {
		return middleware.Internal(err, "Failed to count categories")
	}
	subcategories, err := h.subcategories.Count(ctx)
	if err != nil {
		return middleware.Internal(err, "Failed to count subcategories")
	}
	tags, err := h.tags.Count(ctx)
	if err != nil {
		return middleware.Internal(err, "Failed to count tags")
	}
	recent, err := h.articles.ListAdmin(ctx, 1, 5)
	if err != nil {
		return middleware.Internal(err, "Failed to load articles")
	}
	return h.render(w, r, "admin_dashboard.html", map[string]interface{}{
		"Stats":            stats,
		"CategoryCount":    categories,
		"SubCategoryCount": subcategories,
		"TagCount":         tags,
		"RecentArticles":   recent.Articles,
	})
}

// Categories

func (h *AdminHandler) listCategoriesHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		return middleware.Internal(err, "Failed to load categories")
	}
	return h.render(w, r, "admin_categories.html", map[string]interface{}{"Categories": categories})
}

func (h *AdminHandler) categoryForm(w http.ResponseWriter, r *http.Request, status int, action string, in service.CategoryInput, errs map[string]string) *middleware.AppError {
	return h.renderStatus(w, r, status, "admin_category_form.html", map[string]interface{}{
		"Action": action,
		"New":    strings.HasSuffix(action, "/new"),
		"Form":   in,
		"Errors": errs,
	})
}

func categoryInput(r *http.Request) service.CategoryInput {
	return service.CategoryInput{
		Name:        r.PostForm.Get("name"),
		Description: r.PostForm.Get("description"),
		Icon:        r.PostForm.Get("icon"),
		SortOrder:   int(formInt(r, "sort_order")),
	}
}

func (h *AdminHandler) newCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.categoryForm(w, r, http.StatusOK, "/admin/categories/new", service.CategoryInput{}, nil)
}

func (h *AdminHandler) createCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if appErr := parseForm(r); appErr != nil {
		return appErr
	}
	in := categoryInput(r)
	c, err := h.categories.Create(r.Context(), in)
	if err != nil {
		errs, appErr := saveFailed(err)
		if appErr != nil {
			return appErr
		}
		return h.categoryForm(w, r, http.StatusUnprocessableEntity, "/admin/categories/new", in, errs)
	}
	h.flash(r, fmt.Sprintf("Category %q created.", c.Name))
	http.Redirect(w, r, "/admin/categories", http.StatusSeeOther)
	return nil
}

func (h *AdminHandler) editCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, err := idParam(r, "id")
	if err != nil {
		return badID(err)
	}
	c, err := h.categories.GetByID(r.Context(), id)
	if err != nil {
		return lookupError(err, "category")
	}
	in := service.CategoryInput{Name: c.Name, Description: c.Description, Icon: c.Icon, SortOrder: c.SortOrder}
	return h.categoryForm(w, r, http.StatusOK, fmt.Sprintf("/admin/categories/%d/edit", id), in, nil)
}

func (h *AdminHandler) updateCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, err := idParam(r, "id")
	if err != nil {
		return badID(err)
	}
	if appErr := parseForm(r); appErr != nil {
		return appErr
	}
	in := categoryInput(r)
	c, err := h.categories.Update(r.Context(), id, in)
	if err != nil {
		errs, appErr := saveFailed(err)
		if appErr != nil {
			return appErr
		}
		return h.categoryForm(w, r, http.StatusUnprocessableEntity, fmt.Sprintf("/admin/categories/%d/edit", id), in, errs)
	}
	h.flash(r, fmt.Sprintf("Category %q updated.", c.Name))
	http.Redirect(w, r, "/admin/categories", http.StatusSeeOther)
	return nil
}

func (h *AdminHandler) deleteCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, err := idParam(r, "id")
	if err != nil {
		return badID(err)
	}
	if err := h.categories.Delete(r.Context(), id); err != nil {
		if appErr := h.deleteFailed(r, err, "category"); appErr != nil {
			return appErr
		}
	} else {
		h.flash(r, "Category deleted.")
	}
	http.Redirect(w, r, "/admin/categories", http.StatusSeeOther)
	return nil
}

// Subcategories

func (h *AdminHandler) listSubCategoriesHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	subs, err := h.subcategories.List(r.Context())
	if err != nil {
		return middleware.Internal(err, "Failed to load subcategories")
	}
	return h.render(w, r, "admin_subcategories.html", map[string]interface{}{"SubCategories": subs})
}

func (h *AdminHandler) subCategoryForm(w http.ResponseWriter, r *http.Request, status int, action string, in service.SubCategoryInput, errs map[string]string) *middleware.AppError {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		return middleware.Internal(err, "Failed to load categories")
	}
	return h.renderStatus(w, r, status, "admin_subcategory_form.html", map[string]interface{}{
		"Action":     action,
		"New":        strings.HasSuffix(action, "/new"),
		"Form":       in,
		"Errors":     errs,
		"Categories": categories,
	})
}

func subCategoryInput(r *http.Request) service.SubCategoryInput {
	return service.SubCategoryInput{
		Name:        r.PostForm.Get("name"),
		Description: r.PostForm.Get("description"),
		CategoryID:  formInt(r, "category_id"),
		SortOrder:   int(formInt(r, "sort_order")),
	}
}

func (h *AdminHandler) newSubCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	in := service.SubCategoryInput{}
	in.CategoryID, _ = strconv.ParseInt(r.URL.Query().Get("category"), 10, 64)
	return h.subCategoryForm(w, r, http.StatusOK, "/admin/subcategories/new", in, nil)
}

func (h *AdminHandler) createSubCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if appErr := parseForm(r); appErr != nil {
		return appErr
	}
	in := subCategoryInput(r)
	sub, err := h.subcategories.Create(r.Context(), in)
	if err != nil {
		errs, appErr := saveFailed(err)
		if appErr != nil {
			return appErr
		}
		return h.subCategoryForm(w, r, http.StatusUnprocessableEntity, "/admin/subcategories/new", in, errs)
	}
	h.flash(r, fmt.Sprintf("Subcategory %q created.", sub.Name))
	http.Redirect(w, r, "/admin/subcategories", http.StatusSeeOther)
	return nil
}

func (h *AdminHandler) editSubCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, err := idParam(r, "id")
	if err != nil {
		return badID(err)
	}
	sub, err := h.subcategories.GetByID(r.Context(), id)
	if err != nil {
		return lookupError(err, "subcategory")
	}
	in := service.SubCategoryInput{Name: sub.Name, Description: sub.Description, CategoryID: sub.CategoryID, SortOrder: sub.SortOrder}
	return h.subCategoryForm(w, r, http.StatusOK, fmt.Sprintf("/admin/subcategories/%d/edit", id), in, nil)
}

func (h *AdminHandler) updateSubCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, err := idParam(r, "id")
	if err != nil {
		return badID(err)
	}
	if appErr := parseForm(r); appErr != nil {
		return appErr
	}
	in := subCategoryInput(r)
	sub, err := h.subcategories.Update(r.Context(), id, in)
	if err != nil {
		errs, appErr := saveFailed(err)
		if appErr != nil {
			return appErr
		}
		return h.subCategoryForm(w, r, http.StatusUnprocessableEntity, fmt.Sprintf("/admin/subcategories/%d/edit", id), in, errs)
	}
	h.flash(r, fmt.Sprintf("Subcategory %q updated.", sub.Name))
	http.Redirect(w, r, "/admin/subcategories", http.StatusSeeOther)
	return nil
}

func (h *AdminHandler) deleteSubCategoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, err := idParam(r, "id")
	if err != nil {
		return badID(err)
	}
	if err := h.subcategories.Delete(r.Context(), id); err != nil {
		if appErr := h.deleteFailed(r, err, "subcategory"); appErr != nil {
			return appErr
		}
	} else {
		h.flash(r, "Subcategory deleted.")
	}
	http.Redirect(w, r, "/admin/subcategories", http.StatusSeeOther)
	return nil
}

type subCategoryOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// subCategoriesAPIHandler lists a category's subcategories for the article
// form's dependent select.
func (h *AdminHandler) subCategoriesAPIHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, err := idParam(r, "categoryID")
	if err != nil {
		return badID(err)
	}
	subs, err := h.subcategories.ListByCategory(r.Context(), id)
	if err != nil {
		return middleware.Internal(err, "Failed to load subcategories")
	}
	out := make([]subCategoryOption, 0, len(subs))
	for _, s := range subs {
		out = append(out, subCategoryOption{ID: s.ID, Name: s.Name})
	}
	return writeJSON(w, http.StatusOK, out)
}

// Tags

func (h *AdminHandler) listTagsHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	tags, err := h.tags.List(r.Context())
	if err != nil {
		return middleware.Internal(err, "Failed to load tags")
	}
	return h.render(w, r, "admin_tags.html", map[string]interface{}{"Tags": tags})
}

func (h *AdminHandler) tagForm(w http.ResponseWriter, r *http.Request, status int, action string, in service.TagInput, errs map[string]string) *middleware.AppError {
	return h.renderStatus(w, r, status, "admin_tag_form.html", map[string]interface{}{
		"Action": action,
		"New":    strings.HasSuffix(action, "/new"),
		"Form":   in,
		"Errors": errs,
	})
}

func tagInput(r *http.Request) service.TagInput {
	return service.TagInput{
		Name:        r.PostForm.Get("name"),
		Description: r.PostForm.Get("description"),
		Color:       r.PostForm.Get("color"),
	}
}

func (h *AdminHandler) newTagHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.tagForm(w, r, http.StatusOK, "/admin/tags/new", service.TagInput{Color: service.DefaultTagColor}, nil)
}

func (h *AdminHandler) createTagHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if appErr := parseForm(r); appErr != nil {
		return appErr
	}
	in := tagInput(r)
	t, err := h.tags.Create(r.Context(), in)
	if err != nil {
		errs, appErr := saveFailed(err)
		if appErr != nil {
			return appErr
		}
		return h.tagForm(w, r, http.StatusUnprocessableEntity, "/admin/tags/new", in, errs)
	}
	h.flash(r, fmt.Sprintf("Tag %q created.", t.Name))
	http.Redirect(w, r, "/admin/tags", http.StatusSeeOther)
	return nil
}

func (h *AdminHandler) editTagHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, err := idParam(r, "id")
	if err != nil {
		return badID(err)
	}
	t, err := h.tags.GetByID(r.Context(), id)
	if err != nil {
		return lookupError(err, "tag")
	}
	in := service.TagInput{Name: t.Name, Description: t.Description, Color: t.Color}
	return h.tagForm(w, r, http.StatusOK, fmt.Sprintf("/admin/tags/%d/edit", id), in, nil)
}

func (h *AdminHandler) updateTagHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, err := idParam(r, "id")
	if err != nil {
		return badID(err)
	}
	if appErr := parseForm(r); appErr != nil {
		return appErr
	}
	in := tagInput(r)
	t, err := h.tags.Update(r.Context(), id, in)
	if err != nil {
		errs, appErr := saveFailed(err)
		if appErr != nil {
			return appErr
		}
		return h.tagForm(w, r, http.StatusUnprocessableEntity, fmt.Sprintf("/admin/tags/%d/edit", id), in, errs)
	}
	h.flash(r, fmt.Sprintf("Tag %q updated.", t.Name))
	http.Redirect(w, r, "/admin/tags", http.StatusSeeOther)
	return nil
}

func (h *AdminHandler) deleteTagHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, err := idParam(r, "id")
	if err != nil {
		return badID(err)
	}
	if err := h.tags.Delete(r.Context(), id); err != nil {
		return lookupError(err, "tag")
	}
	h.flash(r, "Tag deleted.")
	http.Redirect(w, r, "/admin/tags", http.StatusSeeOther)
	return nil
}

// Articles

func (h *AdminHandler) listArticlesHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, err := h.articles.ListAdmin(r.Context(), pageParam(r), AdminArticlesPerPage)
	if err != nil {
		return middleware.Internal(err, "Failed to load articles")
	}
	return h.render(w, r, "admin_articles.html", map[string]interface{}{
		"Articles":   page.Articles,
		"Pagination": page.Pagination,
	})
}

func (h *AdminHandler) articleForm(w http.ResponseWriter, r *http.Request, status int, action string, in service.ArticleInput, errs map[string]string) *middleware.AppError {
	ctx := r.Context()
	categories, err := h.categories.List(ctx)
	if err != nil {
		return middleware.Internal(err, "Failed to load categories")
	}
	var subs []*data.SubCategory
	if in.CategoryID != 0 {
		if subs, err = h.subcategories.ListByCategory(ctx, in.CategoryID); err != nil {
			return middleware.Internal(err, "Failed to load subcategories")
		}
	}
	tags, err := h.tags.List(ctx)
	if err != nil {
		return middleware.Internal(err, "Failed to load tags")
	}
	return h.renderStatus(w, r, status, "admin_article_form.html", map[string]interface{}{
		"Action":        action,
		"New":           strings.HasSuffix(action, "/new"),
		"Form":          in,
		"Errors":        errs,
		"Categories":    categories,
		"SubCategories": subs,
		"Tags":          tags,
	})
}

func articleInput(r *http.Request) service.ArticleInput {
	in := service.ArticleInput{
		Title:         r.PostForm.Get("title"),
		Content:       r.PostForm.Get("content"),
		Summary:       r.PostForm.Get("summary"),
		CategoryID:    formInt(r, "category_id"),
		SubCategoryID: formInt(r, "subcategory_id"),
		IsPublished:   formBool(r, "is_published"),
		IsFeatured:    formBool(r, "is_featured"),
	}
	for _, v := range r.PostForm["tags"] {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			in.TagIDs = append(in.TagIDs, id)
		}
	}
	return in
}

func (h *AdminHandler) newArticleHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.articleForm(w, r, http.StatusOK, "/admin/articles/new", service.ArticleInput{}, nil)
}

func (h *AdminHandler) createArticleHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if appErr := parseForm(r); appErr != nil {
		return appErr
	}
	in := articleInput(r)
	var author *int64
	if user := middleware.GetUserInfo(r.Context()); user.IsAuthenticated() {
		id := user.UserID
		author = &id
	}
	a, err := h.articles.Create(r.Context(), in, author)
	if err != nil {
		errs, appErr := saveFailed(err)
		if appErr != nil {
			return appErr
		}
		return h.articleForm(w, r, http.StatusUnprocessableEntity, "/admin/articles/new", in, errs)
	}
	h.flash(r, fmt.Sprintf("Article %q created.", a.Title))
	http.Redirect(w, r, "/admin/articles", http.StatusSeeOther)
	return nil
}

func (h *AdminHandler) editArticleHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, err := idParam(r, "id")
	if err != nil {
		return badID(err)
	}
	a, err := h.articles.GetByID(r.Context(), id)
	if err != nil {
		return lookupError(err, "article")
	}
	in := service.ArticleInput{
		Title:       a.Title,
		Content:     a.Content,
		Summary:     a.Summary,
		CategoryID:  a.CategoryID,
		IsPublished: a.IsPublished,
		IsFeatured:  a.IsFeatured,
	}
	if a.SubCategoryID != nil {
		in.SubCategoryID = *a.SubCategoryID
	}
	for _, t := range a.Tags {
		in.TagIDs = append(in.TagIDs, t.ID)
	}
	return h.articleForm(w, r, http.StatusOK, fmt.Sprintf("/admin/articles/%d/edit", id), in, nil)
}

func (h *AdminHandler) updateArticleHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, err := idParam(r, "id")
	if err != nil {
		return badID(err)
	}
	if appErr := parseForm(r); appErr != nil {
		return appErr
	}
	in := articleInput(r)
	a, err := h.articles.Update(r.Context(), id, in)
	if err != nil {
		errs, appErr := saveFailed(err)
		if appErr != nil {
			return appErr
		}
		return h.articleForm(w, r, http.StatusUnprocessableEntity, fmt.Sprintf("/admin/articles/%d/edit", id), in, errs)
	}
	h.flash(r, fmt.Sprintf("Article %q updated.", a.Title))
	http.Redirect(w, r, "/admin/articles", http.StatusSeeOther)
	return nil
}

func (h *AdminHandler) deleteArticleHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, err := idParam(r, "id")
	if err != nil {
		return badID(err)
	}
	if err := h.articles.Delete(r.Context(), id); err != nil {
		return lookupError(err, "article")
	}
	h.flash(r, "Article deleted.")
	http.Redirect(w, r, "/admin/articles", http.StatusSeeOther)
	return nil
}
