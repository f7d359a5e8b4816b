package session

import (
	"context"
	"net/http"
	"time"

	"go-kb-app/internal/config"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
)

// Session keys shared by the login flow and the middleware.
const (
	UserIDKey   = "user_id"
	UsernameKey = "username"
	FlashKey    = "flash"
)

// Manager is an interface that abstracts the session management implementation.
// This allows for easier testing and dependency injection.
type Manager interface {
	LoadAndSave(next http.Handler) http.Handler
	Put(ctx context.Context, key string, val interface{})
	GetString(ctx context.Context, key string) string
	GetInt64(ctx context.Context, key string) int64
	PopString(ctx context.Context, key string) string
	RenewToken(ctx context.Context) error
	Destroy(ctx context.Context) error
	Remove(ctx context.Context, key string)
}

var _ Manager = (*scs.SessionManager)(nil)

// New creates a session manager backed by the sessions table of db.
func New(db *sqlx.DB, driverName string, cfg config.SessionConfig, secure bool) *scs.SessionManager {
	sm := scs.New()
	switch driverName {
	case "mysql":
		sm.Store = mysqlstore.New(db.DB)
	default:
		sm.Store = sqlite3store.New(db.DB)
	}
	lifetime := time.Duration(cfg.Lifetime) * time.Hour
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	sm.Lifetime = lifetime
	sm.Cookie.Name = "kb_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Persist = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = secure
	return sm
}
