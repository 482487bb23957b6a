package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/certified-copy-api/api/swagger"
	"github.com/noah-isme/certified-copy-api/internal/handler"
	internalmiddleware "github.com/noah-isme/certified-copy-api/internal/middleware"
	"github.com/noah-isme/certified-copy-api/internal/repository"
	"github.com/noah-isme/certified-copy-api/internal/service"
	"github.com/noah-isme/certified-copy-api/pkg/cache"
	"github.com/noah-isme/certified-copy-api/pkg/config"
	"github.com/noah-isme/certified-copy-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/certified-copy-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/certified-copy-api/pkg/middleware/requestid"
	"github.com/noah-isme/certified-copy-api/pkg/storage"
)

// @title Certified Copy API
// @version 1.0.0
// @description Court certified copy applications with a staff review workflow
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}

	metrics := service.NewMetricsService()

	backend, closeBackend, err := repository.OpenBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store backend: %w", err)
	}
	defer closeBackend() //nolint:errcheck
	store := repository.NewApplicationStore(backend, repository.WithObserver(metrics))

	var cacheRepo service.CacheRepository
	if cfg.Dashboard.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("dashboard cache disabled", zap.Error(err))
		} else {
			defer client.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(client, cfg.Redis.KeyPrefix)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cacheRepo != nil)

	users, err := service.DemoUsers()
	if err != nil {
		return err
	}
	authSvc := service.NewAuthService(users, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})

	reference := service.NewReferenceService()
	applications := service.NewApplicationService(service.ApplicationServiceParams{
		Store:     store,
		Reference: reference,
		Cache:     cacheSvc,
		Metrics:   metrics,
		Logger:    logr,
	})

	files, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		return err
	}
	signingSecret := cfg.Documents.SignedURLSecret
	if signingSecret == "" {
		signingSecret = cfg.JWT.Secret
	}
	documents := service.NewDocumentService(files, storage.NewSignedURLSigner(signingSecret, cfg.Documents.SignedURLTTL),
		applications, logr, service.DocumentServiceConfig{
			MaxFileSize:  cfg.Documents.MaxFileSizeBytes,
			AllowedMIMEs: cfg.Documents.AllowedMIMEs,
			APIPrefix:    cfg.APIPrefix,
		})
	review := service.NewReviewService(service.ReviewServiceParams{
		Store:     store,
		Documents: documents,
		Cache:     cacheSvc,
		Metrics:   metrics,
		Logger:    logr,
	})
	dashboard := service.NewDashboardService(service.DashboardServiceParams{
		Store:  store,
		Cache:  cacheSvc,
		Logger: logr,
		Config: service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})
	exports := service.NewExportService(store, reference, logr)

	if cfg.Store.SeedDemo {
		created, err := applications.SeedDemo(ctx)
		if err != nil {
			return err
		}
		if created > 0 {
			logr.Info("demo data seeded", zap.Int("applications", created))
		}
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta(cfg.Store.Backend))

	metricsHandler := handler.NewMetricsHandler(metrics, store, cfg.Store.Backend)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Applications: handler.NewApplicationHandler(applications),
		Review:       handler.NewReviewHandler(review),
		Documents:    handler.NewDocumentHandler(documents),
		Dashboard:    handler.NewDashboardHandler(dashboard),
		Exports:      handler.NewExportHandler(exports),
		Reference:    handler.NewReferenceHandler(reference),
		Metrics:      metricsHandler,
	}, authSvc, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("backend", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
