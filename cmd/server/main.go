package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-kb-app/internal/auth"
	"go-kb-app/internal/cache"
	"go-kb-app/internal/config"
	"go-kb-app/internal/data"
	"go-kb-app/internal/handler"
	"go-kb-app/internal/logger"
	"go-kb-app/internal/markdown"
	"go-kb-app/internal/middleware"
	"go-kb-app/internal/service"
	"go-kb-app/internal/session"
	"go-kb-app/internal/view"
	"go-kb-app/web"

	"github.com/casbin/casbin/v2"
)

// cachePurgeInterval is how often expired rendered articles are dropped.
const cachePurgeInterval = 15 * time.Minute

func main() {
	resetPassword := flag.String("reset-admin-password", "", "set a new password for the configured admin account and exit")
	flag.Parse()

	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, nil)

	// --- Database Initialization and Migration ---
	log.Info("Connecting to the database...")
	db, err := data.NewDB(cfg.DB)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()
	log.Info("Database connection successful.")

	log.Info("Applying database migrations...")
	if err := data.ApplyMigrations(db, cfg.DB.Driver); err != nil {
		log.Fatal(err, "Failed to apply migrations")
	}
	log.Info("Migrations applied successfully.")

	// --- Repositories ---
	userRepository := data.NewUserRepository(db)
	categoryRepository := data.NewCategoryRepository(db)
	subCategoryRepository := data.NewSubCategoryRepository(db)
	tagRepository := data.NewTagRepository(db)
	articleRepository := data.NewArticleRepository(db)

	authService := service.NewAuthService(userRepository)
	if *resetPassword != "" {
		if err := authService.ChangePassword(context.Background(), cfg.Admin.Username, *resetPassword); err != nil {
			log.Fatal(err, "Failed to reset admin password")
		}
		log.Info(fmt.Sprintf("Password for %q updated.", cfg.Admin.Username))
		return
	}

	// --- Authentication and Authorization Setup ---
	log.Info("Initializing authentication and authorization...")
	enforcer, err := auth.NewEnforcer(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err, "Failed to initialize enforcer")
	}
	auth.SeedDefaultPolicies(enforcer, log)
	bootstrapAdmin(authService, enforcer, cfg.Admin, log)
	log.Info("Auth components initialized and policies seeded.")

	// --- Session Management Setup ---
	sessionManager := session.New(db, cfg.DB.Driver, cfg.Session, cfg.Server.TLS.Enabled)

	// --- View Template Initialization ---
	log.Info("Initializing view templates...")
	viewService, err := view.New(web.TemplateFS)
	if err != nil {
		log.Fatal(err, "Failed to initialize view templates")
	}
	log.Info("View templates initialized.")

	// --- Markdown Renderer and Cache ---
	renderer, err := markdown.New(markdown.Options{HighlightStyle: cfg.Markdown.HighlightStyle})
	if err != nil {
		log.Fatal(err, "Failed to initialize markdown renderer")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var renderCache service.RenderCache
	if cfg.Cache.FilePath != "" {
		log.Info("Initializing SQLite cache...")
		c, err := cache.New(cfg.Cache)
		if err != nil {
			log.Fatal(err, "Failed to initialize cache")
		}
		defer c.Close()
		go purgeCache(ctx, c, log)
		renderCache = c
		log.Info("Cache initialized.")
	} else {
		log.Warn("Render cache disabled.")
	}

	// --- Dependency Injection and Handler Initialization ---
	// Initialize the application layers, injecting dependencies from top to bottom.
	categoryService := service.NewCategoryService(categoryRepository)
	subCategoryService := service.NewSubCategoryService(subCategoryRepository, categoryRepository)
	tagService := service.NewTagService(tagRepository)
	articleService := service.NewArticleService(
		articleRepository, categoryRepository, subCategoryRepository, tagRepository,
		renderer, renderCache, log,
	)

	handlers := handler.Handlers{
		Public: handler.NewPublicHandler(categoryService, subCategoryService, tagService, articleService,
			renderer, cfg.Content, viewService, sessionManager, log),
		Auth: handler.NewAuthHandler(authService, viewService, sessionManager, log),
		Admin: handler.NewAdminHandler(categoryService, subCategoryService, tagService, articleService,
			viewService, sessionManager, log),
		Seo: handler.NewSeoHandler(categoryService, articleService, cfg.Server.BaseURL),
	}
	authzMiddleware := middleware.Authorizer(enforcer, log)

	// --- Router Setup ---
	// The router is the central hub that directs incoming requests to the correct handlers.
	router := handler.NewRouter(handlers, sessionManager, authzMiddleware, web.StaticFS, viewService, log)

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}
	log.Info("Server exiting")
}

// bootstrapAdmin creates the configured admin account on first start and
// makes sure it holds the admin role.
func bootstrapAdmin(authService *service.AuthService, enforcer casbin.IEnforcer, cfg config.AdminConfig, log logger.Logger) {
	if cfg.Username == "" {
		log.Warn("No admin username configured; skipping admin bootstrap.")
		return
	}
	password, generated := cfg.Password, false
	if password == "" {
		password, generated = randomPassword(), true
	}
	created, err := authService.EnsureUser(context.Background(), cfg.Username, password)
	if err != nil {
		log.Fatal(err, "Failed to create admin account")
	}
	if created {
		log.Info(fmt.Sprintf("Created admin account %q.", cfg.Username))
		if generated {
			log.Warn(fmt.Sprintf("No admin password configured; generated password for %q: %s", cfg.Username, password))
		}
	}
	if err := auth.GrantAdmin(enforcer, cfg.Username); err != nil {
		log.Fatal(err, "Failed to grant admin role")
	}
}

func randomPassword() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// purgeCache periodically drops expired cache entries until ctx ends.
func purgeCache(ctx context.Context, c *cache.Cache, log logger.Logger) {
	ticker := time.NewTicker(cachePurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.PurgeExpired(ctx)
			if err != nil {
				log.Error(err, "Failed to purge render cache")
				continue
			}
			if n > 0 {
				log.Debug(fmt.Sprintf("Purged %d expired cache entries", n))
			}
		}
	}
}
