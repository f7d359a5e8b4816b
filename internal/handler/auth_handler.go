package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go-kb-app/internal/logger"
	"go-kb-app/internal/middleware"
	"go-kb-app/internal/service"
	"go-kb-app/internal/session"
	"go-kb-app/internal/view"
)

// AuthHandler holds the dependencies for the authentication handlers.
type AuthHandler struct {
	base
	auth *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(a *service.AuthService, v *view.View, sm session.Manager, log logger.Logger) *AuthHandler {
	return &AuthHandler{base: base{view: v, sessions: sm, log: log}, auth: a}
}

// loginFormHandler shows the login form.
func (h *AuthHandler) loginFormHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if middleware.GetUserInfo(r.Context()).IsAuthenticated() {
		http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusFound)
		return nil
	}
	return h.render(w, r, "login.html", map[string]interface{}{
		"Next": r.URL.Query().Get("next"),
	})
}

// loginHandler verifies the submitted credentials and starts a session.
func (h *AuthHandler) loginHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := r.ParseForm(); err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid form submission", Code: http.StatusBadRequest}
	}
	creds := service.Credentials{
		Username: strings.TrimSpace(r.PostForm.Get("username")),
		Password: r.PostForm.Get("password"),
	}
	next := r.PostForm.Get("next")

	user, err := h.auth.Authenticate(r.Context(), creds)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) && !service.IsValidationError(err) {
			return middleware.Internal(err, "Login failed")
		}
		h.log.With(map[string]interface{}{"username": creds.Username}).Warn("Failed login attempt")
		return h.renderStatus(w, r, http.StatusUnauthorized, "login.html", map[string]interface{}{
			"Next":     next,
			"Username": creds.Username,
			"Error":    "Invalid username or password",
			"Errors":   service.FieldErrors(err),
		})
	}

	// A fresh token on privilege change prevents session fixation.
	if err := h.sessions.RenewToken(r.Context()); err != nil {
		return middleware.Internal(err, "Failed to start session")
	}
	h.sessions.Put(r.Context(), session.UserIDKey, user.ID)
	h.sessions.Put(r.Context(), session.UsernameKey, user.Username)
	h.flash(r, "Welcome back, "+user.Username+"!")
	h.log.With(map[string]interface{}{"username": user.Username}).Info("User logged in")

	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
	return nil
}

// logoutHandler ends the session.
func (h *AuthHandler) logoutHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	if err := h.sessions.Destroy(r.Context()); err != nil {
		return middleware.Internal(err, "Failed to end session")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
	return nil
}

// safeNext returns next when it is a local path, otherwise the admin
// dashboard.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/admin"
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return "/admin"
	}
	return next
}
