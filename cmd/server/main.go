package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/productdesk/catalog-admin/app/admin"
	"github.com/productdesk/catalog-admin/app/attachments"
	"github.com/productdesk/catalog-admin/app/auth"
	"github.com/productdesk/catalog-admin/app/bulk"
	"github.com/productdesk/catalog-admin/app/catalog"
	"github.com/productdesk/catalog-admin/app/categories"
	"github.com/productdesk/catalog-admin/app/database"
	"github.com/productdesk/catalog-admin/app/server"
	"github.com/productdesk/catalog-admin/app/web"
	"github.com/productdesk/catalog-admin/config"
	"github.com/productdesk/catalog-admin/models"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[boot] no .env file, using environment")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[boot] config: %v", err)
	}

	db, err := database.Open(cfg.DatabaseURL, cfg.IsDev())
	if err != nil {
		log.Fatalf("[boot] %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("[boot] %v", err)
	}
	defer sqlDB.Close()

	rdb := connectRedis(cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	var sessionStore auth.SessionStore = auth.NewMemoryStore()
	if rdb != nil {
		sessionStore = auth.NewRedisStore(rdb)
	}

	secret := cfg.SessionSecret
	if secret == "" {
		// dev only, enforced by Validate
		secret = uuid.NewString()
		log.Println("[boot] SESSION_SECRET not set, sessions will not survive a restart")
	}
	sessions := auth.NewSessions(sessionStore, secret, cfg.SessionTTL(), !cfg.IsDev())

	templates, err := web.New()
	if err != nil {
		log.Fatalf("[boot] templates: %v", err)
	}
	store, err := attachments.NewStore(cfg.UploadDir, cfg.UploadURLPrefix)
	if err != nil {
		log.Fatalf("[boot] upload dir: %v", err)
	}

	products := models.NewProductsRepository(db)
	users := models.NewUsersRepository(db)

	router := server.NewRouter(server.Deps{
		Catalog:      catalog.NewCatalogHandler(products, bulk.NewProcessor(products)),
		Categories:   categories.NewCategoryHandler(products),
		Admin:        admin.NewAdminHandler(products, store, templates, cfg.MaxUploadBytes()),
		Auth:         auth.NewAuthHandler(users, sessions, templates),
		Sessions:     sessions,
		RateLimit:    auth.RateLimit(rdb, int64(cfg.RateLimitPerMinute), time.Minute),
		UploadDir:    store.Dir(),
		UploadPrefix: cfg.UploadURLPrefix,
		CORSOrigins:  cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("[boot] listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[boot] serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[boot] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[boot] shutdown: %v", err)
	}
}

// connectRedis returns nil when Redis is not configured or does not answer,
// in which case sessions live in memory and rate limiting is off.
func connectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Println("[boot] REDIS_ADDR not set, using in-memory sessions")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[boot] redis at %s unreachable (%v), using in-memory sessions", cfg.RedisAddr, err)
		client.Close()
		return nil
	}
	log.Printf("[boot] redis connected at %s", cfg.RedisAddr)
	return client
}
