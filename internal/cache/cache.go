package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go-kb-app/internal/config"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Cache stores rendered content in a standalone SQLite file. It uses the
// pure-Go modernc driver so it never competes with the content database.
type Cache struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

// New opens the cache database at cfg.FilePath and ensures its schema.
// Entries live for cfg.TTL minutes, or one hour when unset.
func New(cfg config.CacheConfig) (*Cache, error) {
	if cfg.FilePath == "" {
		return nil, errors.New("cache file path is empty")
	}
	db, err := sqlx.Connect("sqlite", cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite cache: %w", err)
	}
	if cfg.FilePath == ":memory:" {
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode on sqlite cache: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS rendered (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rendered_expires_at ON rendered (expires_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	ttl := time.Duration(cfg.TTL) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

// Get retrieves an entry. ok is false on a miss or when the entry expired.
func (c *Cache) Get(ctx context.Context, key string) (value []byte, ok bool, err error) {
	var item struct {
		Value     []byte `db:"value"`
		ExpiresAt int64  `db:"expires_at"`
	}
	query := `SELECT value, expires_at FROM rendered WHERE key = ?`
	if err := c.db.GetContext(ctx, &item, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get item from cache: %w", err)
	}

	if c.now().Unix() > item.ExpiresAt {
		// best effort
		_ = c.Delete(ctx, key)
		return nil, false, nil
	}
	return item.Value, true, nil
}

// Set stores an entry for the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	expiresAt := c.now().Add(c.ttl).Unix()
	query := `INSERT OR REPLACE INTO rendered (key, value, expires_at) VALUES (?, ?, ?)`
	if _, err := c.db.ExecContext(ctx, query, key, value, expiresAt); err != nil {
		return fmt.Errorf("failed to set item in cache: %w", err)
	}
	return nil
}

// Delete removes an entry.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM rendered WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete item from cache: %w", err)
	}
	return nil
}

// PurgeExpired removes all expired entries and returns how many were dropped.
func (c *Cache) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM rendered WHERE expires_at < ?`, c.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
