package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gradeshop_api/internal/cache"
	"github.com/GTDGit/gradeshop_api/internal/config"
	"github.com/GTDGit/gradeshop_api/internal/database"
	"github.com/GTDGit/gradeshop_api/internal/handler"
	"github.com/GTDGit/gradeshop_api/internal/middleware"
	"github.com/GTDGit/gradeshop_api/internal/repository"
	"github.com/GTDGit/gradeshop_api/internal/service"
	"github.com/GTDGit/gradeshop_api/internal/sse"
	"github.com/GTDGit/gradeshop_api/internal/utils"
	"github.com/GTDGit/gradeshop_api/internal/worker"
	"github.com/GTDGit/gradeshop_api/pkg/imagefetch"
)

const migrationsDir = "migrations"

// main is the entrypoint of the catalog API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting gradeshop api")

	// 3. Connect database and migrate
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db.DB, migrationsDir); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	profiles, err := service.LoadGradeProfiles(cfg.Import.GradeProfilesPath)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.Import.GradeProfilesPath).Msg("invalid grade profiles")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := repository.NewStore(db)

	// 4. Optional Redis availability cache
	var (
		availabilityCache handler.AvailabilityCache
		invalidator       service.StockInvalidator
		cachePinger       handler.Pinger
	)
	if cfg.Redis.Enabled() {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Error().Err(err).Msg("redis connection failed")
			os.Exit(1)
		}
		defer redisClient.Close()
		ac := cache.NewAvailabilityCache(redisClient, cfg.Cache.AvailabilityTTL)
		availabilityCache = ac
		invalidator = ac
		cachePinger = redisClient
		log.Info().Dur("ttl", cfg.Cache.AvailabilityTTL).Msg("availability cache enabled")
	} else {
		log.Warn().Msg("REDIS_HOST not set, availability cache disabled")
	}

	// 5. Optional image mirroring to S3
	var images service.ImageScheduler
	if cfg.S3.Enabled() {
		s3Service, err := service.NewS3Service(ctx, cfg.S3)
		if err != nil {
			log.Error().Err(err).Msg("s3 setup failed")
			os.Exit(1)
		}
		mirror := service.NewImageMirrorService(store, imagefetch.NewClient(cfg.Worker.ImageFetchTimeout), s3Service)
		imageWorker := worker.NewImageWorker(
			mirror,
			cfg.Worker.ImageWorkers,
			cfg.Worker.ImageQueueSize,
			cfg.Worker.ImageSweepInterval,
			cfg.Worker.ImageFetchTimeout,
		)
		go imageWorker.Start(ctx)
		images = imageWorker
		log.Info().Str("bucket", cfg.S3.Bucket).Int("workers", cfg.Worker.ImageWorkers).Msg("image mirror enabled")
	} else {
		log.Warn().Msg("S3_BUCKET not set, product images keep their source URLs")
	}

	// 6. Services
	jwtIssuer := utils.NewJWTIssuer(cfg.JWTSecret, cfg.JWTTTL)
	catalogService := service.NewCatalogService(store)
	stockService := service.NewStockService(store, invalidator)
	inventoryService := service.NewInventoryService(store)
	importService := service.NewImportService(store, profiles, images, cfg.Import.MaxBatchSize).
		WithInvalidator(invalidator)
	authService := service.NewAdminAuthService(repository.NewAdminUserRepository(db), jwtIssuer)

	// 7. Handlers
	hub := sse.NewHub()
	events := sse.NewHubNotifier(hub)
	handlers := &Handlers{
		Health:       handler.NewHealthHandler(db, cachePinger),
		Auth:         handler.NewAuthHandler(authService),
		Import:       handler.NewImportHandler(importService, events),
		Product:      handler.NewProductHandler(catalogService, stockService, events),
		Grade:        handler.NewGradeHandler(catalogService),
		Availability: handler.NewAvailabilityHandler(inventoryService, availabilityCache),
		Events:       handler.NewSSEHandler(hub, jwtIssuer),
	}

	loginLimiter := middleware.NewLoginRateLimiter(5, 15*time.Minute)
	go loginLimiter.Cleanup(ctx.Done())

	// 8. Router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedHosts))
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, middleware.NewJWTMiddleware(jwtIssuer), loginLimiter)

	// 9. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 10. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop the image worker and limiter cleanup.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Import       *handler.ImportHandler
	Product      *handler.ProductHandler
	Grade        *handler.GradeHandler
	Availability *handler.AvailabilityHandler
	Events       *handler.SSEHandler
}

func setupRoutes(r *gin.Engine, h *Handlers, jwtMiddleware *middleware.JWTMiddleware, loginLimiter *middleware.LoginRateLimiter) {
	v1 := r.Group("/v1")
	v1.GET("/health", h.Health.GetHealth)

	// Storefront
	v1.GET("/products/:id/availability", h.Availability.GetAvailability)

	// Admin
	v1.POST("/admin/auth/login", loginLimiter.Handle(), h.Auth.Login)
	// EventSource cannot send headers; the stream checks ?token= itself.
	v1.GET("/admin/events", h.Events.Stream)

	admin := v1.Group("/admin", jwtMiddleware.Handle())
	{
		admin.GET("/auth/session", h.Auth.Session)

		admin.POST("/import/products", h.Import.ImportProducts)
		admin.POST("/import/products/single", h.Import.ImportSingle)
		admin.POST("/import/products/xlsx", h.Import.ImportWorkbook)
		admin.GET("/import/template", h.Import.DownloadTemplate)

		admin.GET("/products", h.Product.ListProducts)
		admin.GET("/products/:id", h.Product.GetProduct)
		admin.GET("/products/:id/stock", h.Product.GetStock)
		admin.PUT("/products/:id/stock/sizes", h.Product.UpdateSizeStock)
		admin.PUT("/products/:id/stock/grades", h.Product.UpdateGradeStock)
		admin.PUT("/products/:id/stock-strategy", h.Product.SetStockStrategy)

		admin.GET("/grades", h.Grade.ListGrades)
		admin.GET("/grades/:id/templates", h.Grade.ListTemplates)
		admin.PUT("/grades/:id/templates", h.Grade.UpdateTemplates)
		admin.GET("/lookups/:kind", h.Grade.ListLookups)
	}
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
