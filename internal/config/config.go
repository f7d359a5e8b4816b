package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DB       DBConfig       `mapstructure:"db"`
	Session  SessionConfig  `mapstructure:"session"`
	Log      LogConfig      `mapstructure:"log"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Markdown MarkdownConfig `mapstructure:"markdown"`
	Content  ContentConfig  `mapstructure:"content"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port    string    `mapstructure:"port"`
	BaseURL string    `mapstructure:"base_url"`
	TLS     TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds TLS-specific configuration.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// DBConfig holds database-specific configuration.
// Driver is either "sqlite3" or "mysql". MySQL DSNs need parseTime=true and
// multiStatements=true.
type DBConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// SessionConfig holds session cookie configuration.
type SessionConfig struct {
	Lifetime int `mapstructure:"lifetime"` // hours
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // e.g., "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // e.g., "json", "console"
}

// CacheConfig holds the rendered-HTML cache configuration. An empty
// FilePath disables the cache.
type CacheConfig struct {
	FilePath string `mapstructure:"file_path"`
	TTL      int    `mapstructure:"ttl"` // minutes
}

// MarkdownConfig holds Markdown rendering options.
type MarkdownConfig struct {
	HighlightStyle string `mapstructure:"highlight_style"`
}

// ContentConfig holds listing and pagination settings.
type ContentConfig struct {
	ArticlesPerPage      int `mapstructure:"articles_per_page"`
	SearchResultsPerPage int `mapstructure:"search_results_per_page"`
}

// AdminConfig holds the bootstrap administrator account.
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// LoadConfig reads configuration from an optional .env file, a config file
// and environment variables.
func LoadConfig() (*Config, error) {
	// .env is optional; real environment variables still take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/go-kb-app/")
	v.AddConfigPath("$HOME/.go-kb-app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	v.SetEnvPrefix("KB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8888")
	v.SetDefault("server.base_url", "http://localhost:8888")
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "knowledgebase.db?_foreign_keys=on")
	v.SetDefault("session.lifetime", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("cache.file_path", "cache.db")
	v.SetDefault("cache.ttl", 60)
	v.SetDefault("markdown.highlight_style", "monokai")
	v.SetDefault("content.articles_per_page", 20)
	v.SetDefault("content.search_results_per_page", 20)
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "")
}
