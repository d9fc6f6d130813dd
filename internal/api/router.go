package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/filevault/vault-api/docs"
	"github.com/filevault/vault-api/internal/api/handler"
	"github.com/filevault/vault-api/internal/api/middleware"
	"github.com/filevault/vault-api/internal/core/domain"
	"github.com/filevault/vault-api/internal/core/ports"
	"github.com/filevault/vault-api/internal/core/service"
	mongodb "github.com/filevault/vault-api/internal/infrastructure/db/mongo"
	redisdb "github.com/filevault/vault-api/internal/infrastructure/db/redis"
	healthhandlers "github.com/filevault/vault-api/internal/infrastructure/http/handlers"
	"github.com/filevault/vault-api/internal/pkg/config"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, blobs ports.BlobStore, cfg *config.Config, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("vault"))

	// --- Dependencies ---
	userRepo := mongodb.NewUserRepository(db)
	fileRepo := mongodb.NewFileRepository(db)
	tokenService := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	authService := service.NewAuthService(userRepo, tokenService, log)
	vaultService := service.NewVaultService(fileRepo, blobs, userRepo, log)

	authHandler := handler.NewAuthHandler(authService)
	vaultHandler := handler.NewVaultHandler(vaultService)

	// The identity resolver reads user details through a Redis cache so that
	// every authenticated request does not hit Mongo.
	directory := redisdb.NewIdentityCache(rdb, userRepo, log)
	e.Use(middleware.Identity(tokenService, directory))

	anyRole := middleware.RBAC(domain.RoleUser, domain.RoleAdmin)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	// --- Auth routes (open) ---
	e.POST("/api/v1/auth/register", authHandler.Register)
	e.POST("/api/v1/auth/login", authHandler.Login)

	// --- File routes (authenticated) ---
	files := e.Group("/api/v1/files", anyRole)
	files.POST("", vaultHandler.Upload)
	files.GET("", vaultHandler.List)
	files.GET("/search", vaultHandler.Search)
	files.GET("/:filename", vaultHandler.Download)
	files.DELETE("/:filename", vaultHandler.Delete)
	files.DELETE("", vaultHandler.DeleteAll)

	// --- Admin routes ---
	admin := e.Group("/api/v1/admin/files", adminOnly)
	admin.GET("", vaultHandler.AdminListAll)
	admin.DELETE("/:username", vaultHandler.AdminDeleteAll)
	admin.DELETE("/:username/:filename", vaultHandler.AdminDelete)

	// --- Health probes (no auth required) ---
	healthHandler := healthhandlers.NewHealthHandler()
	healthDepsHandler := healthhandlers.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Observability & docs ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
