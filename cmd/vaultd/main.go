// vaultd is the file vault API server.
//
//	@title						File Vault API
//	@version					1.0
//	@description				Per-user file vault with JWT authentication, soft/hard delete and admin operations.
//	@BasePath					/api
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
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

	"github.com/rs/zerolog"

	"github.com/filevault/vault-api/internal/api"
	"github.com/filevault/vault-api/internal/core/ports"
	mongodb "github.com/filevault/vault-api/internal/infrastructure/db/mongo"
	redisdb "github.com/filevault/vault-api/internal/infrastructure/db/redis"
	"github.com/filevault/vault-api/internal/infrastructure/storage"
	"github.com/filevault/vault-api/internal/pkg/config"
	"github.com/filevault/vault-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Service: "vaultd",
		Pretty:  cfg.Env == "development",
	})

	ctx := context.Background()

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongodb disconnect failed")
		}
	}()

	if err := mongodb.NewUserRepository(db).EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("user index creation failed")
	}
	if err := mongodb.NewFileRepository(db).EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("file index creation failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("redis close failed")
		}
	}()

	blobs, err := buildBlobStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("blob store initialisation failed")
	}

	e := api.NewRouter(db, rdb, blobs, cfg, log)

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func buildBlobStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.BlobStore, error) {
	switch cfg.Blob.Backend {
	case "minio":
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.Blob.MinioEndpoint,
			AccessKey: cfg.Blob.MinioAccessKey,
			SecretKey: cfg.Blob.MinioSecretKey,
			Bucket:    cfg.Blob.MinioBucket,
			UseSSL:    cfg.Blob.MinioUseSSL,
		}, log)
	case "filesystem":
		return storage.NewFilesystemStore(cfg.Blob.FilesDir)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Blob.Backend)
	}
}
