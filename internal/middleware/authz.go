package middleware

import (
	"net/http"
	"net/url"

	"go-kb-app/internal/auth"
	"go-kb-app/internal/logger"
	"go-kb-app/internal/session"

	"github.com/casbin/casbin/v2"
)

// LoginPath is where anonymous visitors are sent when a route needs a login.
const LoginPath = "/auth/login"

// Authenticate loads the logged-in user from the session into the request
// context. Requests without a session user continue as anonymous.
func Authenticate(sm session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := &UserInfo{Subject: AnonymousSubject}
			if id := sm.GetInt64(r.Context(), session.UserIDKey); id != 0 {
				username := sm.GetString(r.Context(), session.UsernameKey)
				info = &UserInfo{UserID: id, Username: username, Subject: auth.UserSubject(username)}
			}
			next.ServeHTTP(w, r.WithContext(SetUserInfo(r.Context(), info)))
		})
	}
}

// Authorizer creates a new middleware for authorization.
// It checks the user's permissions using Casbin. Anonymous visitors that are
// denied are redirected to the login page; logged-in users get 403.
func Authorizer(e casbin.IEnforcer, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserInfo(r.Context())

			allowed, err := e.Enforce(user.Subject, r.URL.Path, r.Method)
			if err != nil {
				log.Error(err, "Authorization check failed")
				http.Error(w, "Authorization error", http.StatusInternalServerError)
				return
			}

			if !allowed {
				if !user.IsAuthenticated() {
					target := LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
					http.Redirect(w, r, target, http.StatusFound)
					return
				}
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
