package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"go-kb-app/internal/logger"
	"go-kb-app/internal/view"
)

// AppError represents a custom error type for the application.
type AppError struct {
	Error   error
	Message string
	Code    int
}

// NotFound wraps err as a 404.
func NotFound(err error) *AppError {
	return &AppError{Error: err, Message: "Page not found", Code: http.StatusNotFound}
}

// Internal wraps err as a 500 with a user-facing message.
func Internal(err error, message string) *AppError {
	return &AppError{Error: err, Message: message, Code: http.StatusInternalServerError}
}

// AppHandler is a custom handler function type that returns an AppError.
type AppHandler func(http.ResponseWriter, *http.Request) *AppError

// Error is a middleware that converts handler errors into user-friendly error pages.
func Error(log logger.Logger, v *view.View) func(AppHandler) http.Handler {
	return func(next AppHandler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err, ok := rec.(error)
					if !ok {
						err = fmt.Errorf("%v", rec)
					}
					log.Error(err, "Panic recovered")
					renderError(w, r, log, v, http.StatusInternalServerError, "Internal Server Error")
				}
			}()

			if appErr := next(w, r); appErr != nil {
				if appErr.Error == nil {
					appErr.Error = errors.New(appErr.Message)
				}
				if appErr.Code >= http.StatusInternalServerError {
					log.Error(appErr.Error, appErr.Message)
				} else {
					log.With(map[string]interface{}{"path": r.URL.Path, "status": appErr.Code}).Debug(appErr.Error.Error())
				}
				renderError(w, r, log, v, appErr.Code, appErr.Message)
			}
		})
	}
}

func renderError(w http.ResponseWriter, r *http.Request, log logger.Logger, v *view.View, code int, message string) {
	if !v.Has("error.html") {
		http.Error(w, message, code)
		return
	}
	data := map[string]interface{}{
		"StatusCode": code,
		"StatusText": message,
		"User":       GetUserInfo(r.Context()),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := v.Render(w, r, "error.html", data); err != nil {
		log.Error(err, "Failed to render error page")
	}
}
