package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go-kb-app/internal/data"
	"go-kb-app/internal/logger"
	"go-kb-app/internal/middleware"
	"go-kb-app/internal/session"
	"go-kb-app/internal/slug"
	"go-kb-app/internal/view"

	"github.com/go-chi/chi/v5"
)

// base holds what every HTML handler needs to render a page.
type base struct {
	view     *view.View
	sessions session.Manager
	log      logger.Logger
}

// render adds the current user and any pending flash message to data and
// executes the named page template.
func (b *base) render(w http.ResponseWriter, r *http.Request, name string, data map[string]interface{}) *middleware.AppError {
	return b.renderStatus(w, r, http.StatusOK, name, data)
}

func (b *base) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]interface{}) *middleware.AppError {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["User"] = middleware.GetUserInfo(r.Context())
	if flash := b.sessions.PopString(r.Context(), session.FlashKey); flash != "" {
		data["Flash"] = flash
	}
	var buf bytes.Buffer
	if err := b.view.Render(&buf, r, name, data); err != nil {
		return middleware.Internal(err, "Failed to render page")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

// flash stores a one-shot message shown on the next rendered page.
func (b *base) flash(r *http.Request, msg string) {
	b.sessions.Put(r.Context(), session.FlashKey, msg)
}

// lookupError maps a repository error to a 404 or a 500.
func lookupError(err error, what string) *middleware.AppError {
	if errors.Is(err, data.ErrNotFound) {
		return middleware.NotFound(err)
	}
	return middleware.Internal(err, "Failed to load "+what)
}

// pageParam returns the ?page= value, or 1.
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// slugParam returns a slug URL parameter, or a 404 when it is not a
// canonical slug.
func slugParam(r *http.Request, name string) (string, *middleware.AppError) {
	s := chi.URLParam(r, name)
	if !slug.IsValid(s) {
		return "", middleware.NotFound(fmt.Errorf("malformed %s slug %q", name, s))
	}
	return s, nil
}

// idParam parses a numeric chi URL parameter.
func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) *middleware.AppError {
	body, err := json.Marshal(v)
	if err != nil {
		return middleware.Internal(err, "Failed to encode response")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
	return nil
}
