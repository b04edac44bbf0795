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

	"map-artifact-registry/api"
	"map-artifact-registry/auth"
	"map-artifact-registry/config"
	"map-artifact-registry/logging"
	"map-artifact-registry/orm"
	"map-artifact-registry/preview"
	"map-artifact-registry/registry"
	"map-artifact-registry/registry/filesystemRegistry"
	"map-artifact-registry/registry/memoryRegistry"
	"map-artifact-registry/registry/minioRegistry"
	"map-artifact-registry/registry/s3"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	appName         = "map-artifact-registry"
	version         = "v0.1.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load(appName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Init(cfg)
	if cfg.ProductionEnvironment {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := orm.InitDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("type", cfg.Database.Type).Msg("failed to initialize record repository")
	}
	defer func() {
		if err := records.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to close record repository")
		}
	}()

	persister := initializeRegistryPersister(ctx, cfg.Persistence)

	previews := initializePreviewCache(ctx, cfg.Preview)
	defer func() { _ = previews.Close() }()

	server, err := registry.NewServer(persister, records, previews, cfg.Upload)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create registry server")
	}

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create token verifier")
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.NewHandler(server, verifier, cfg.Upload.MaxBytes).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.HealthPort > 0 {
		health, err := startHealthServer(cfg.HealthPort)
		if err != nil {
			log.Fatal().Err(err).Int("port", cfg.HealthPort).Msg("failed to start health server")
		}
		defer health.GracefulStop()
	}

	go func() {
		log.Info().
			Str("version", version).
			Int("port", cfg.Port).
			Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}

func initializeRegistryPersister(ctx context.Context, cfg config.PersistenceConfig) registry.Registry {
	var registry registry.Registry
	switch cfg.Type {
	case "filesystem":
		registry = initFilesystemRegistry(cfg.StorageDir)
	case "memory":
		log.Warn().Msg("using in-memory artifact store, artifacts are lost on restart")
		registry = memoryRegistry.New()
	case "s3":
		registry = initS3Registry(ctx, cfg.S3)
	case "minio":
		registry = initMinIORegistry(ctx, cfg.MinIO)
	default:
		log.Warn().Msgf("unknown persistence type '%s', defaulting to filesystem", cfg.Type)
		registry = initFilesystemRegistry(cfg.StorageDir)
	}

	return registry
}

func initFilesystemRegistry(dir string) registry.Registry {
	storageDir := filesystemRegistry.GetStorageDir(dir)
	fsRegistry, err := filesystemRegistry.New(storageDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize filesystem registry")
	}
	log.Info().
		Str("storage_dir", storageDir).
		Msg("filesystem registry initialized")

	return fsRegistry
}

func initS3Registry(ctx context.Context, cfg config.S3Config) registry.Registry {
	s3Registry, err := s3.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize s3 registry")
	}
	log.Info().Str("bucket", cfg.Bucket).Msg("s3 registry initialized")

	return s3Registry
}

func initMinIORegistry(ctx context.Context, cfg config.MinIOConfig) registry.Registry {
	minioReg, err := minioRegistry.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize minio registry")
	}
	log.Info().Str("bucket", cfg.Bucket).Msg("minio registry initialized")

	return minioReg
}

func initializePreviewCache(ctx context.Context, cfg config.PreviewConfig) preview.Cache {
	switch cfg.Type {
	case "redis":
		cache, err := preview.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.TTL)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to initialize redis preview cache")
		}
		log.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.TTL).Msg("redis preview cache initialized")

		return cache
	default:
		log.Info().Dur("ttl", cfg.TTL).Msg("in-memory preview cache initialized")

		return preview.NewMemoryCache(cfg.TTL)
	}
}
