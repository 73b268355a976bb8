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

	_ "github.com/noah-isme/sma-report-portal/api/swagger"
	"github.com/noah-isme/sma-report-portal/internal/backend"
	"github.com/noah-isme/sma-report-portal/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-report-portal/internal/middleware"
	"github.com/noah-isme/sma-report-portal/internal/repository"
	"github.com/noah-isme/sma-report-portal/internal/service"
	"github.com/noah-isme/sma-report-portal/pkg/cache"
	"github.com/noah-isme/sma-report-portal/pkg/config"
	"github.com/noah-isme/sma-report-portal/pkg/export"
	"github.com/noah-isme/sma-report-portal/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-report-portal/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-report-portal/pkg/middleware/requestid"
	"github.com/noah-isme/sma-report-portal/pkg/signing"
	"github.com/noah-isme/sma-report-portal/pkg/validation"
)

// @title SMA Report Portal API
// @version 1.0.0
// @description Report-card gateway in front of the school backend
// @BasePath /api/v1
// @schemes http

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	client := backend.NewClient(cfg.Backend, nil, metrics, logr)
	validator := validation.New()

	confirmations, closeStore := confirmationStore(ctx, cfg, logr)
	defer closeStore()

	reports := service.NewReportService(client, metrics, logr)
	mutations := service.NewMutationService(client, validator, logr)
	deletions := service.NewDeletionService(
		confirmations,
		signing.NewSigner(cfg.Deletion.ConfirmSecret, cfg.Deletion.ConfirmTTL),
		mutations,
		validator,
		logr,
	)
	reservations := service.NewReservationService(client, validator, logr)
	exports := service.NewExportService(reports, client, service.ExportConfig{PDFFallback: cfg.Reports.PDFFallback}, logr, export.NewCSVExporter(), export.NewPDFExporter())

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.NoRoute(handler.NotFound)

	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.Pinger{"confirmations": confirmations})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Docs.Enabled && cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Register(r, cfg.APIPrefix, handler.Handlers{
		Reports:      handler.NewReportHandler(reports, exports),
		Mutations:    handler.NewMutationHandler(mutations),
		Deletions:    handler.NewDeletionHandler(deletions),
		Reservations: handler.NewReservationHandler(reservations),
	}, internalmiddleware.NewProfileDecoder(cfg.Profile.SigningSecret), logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "backend", cfg.Backend.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
}

type pingableStore interface {
	service.ConfirmationRepository
	handler.Pinger
}

// confirmationStore picks Redis when enabled and reachable, otherwise the
// in-process store. Pending confirmations do not survive a restart in the
// latter case.
func confirmationStore(ctx context.Context, cfg *config.Config, logr *zap.Logger) (pingableStore, func()) {
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, keeping delete confirmations in memory", zap.Error(err))
	}
	if client == nil {
		return repository.NewMemoryConfirmationRepository(), func() {}
	}
	store := repository.NewRedisConfirmationRepository(client, logr)
	return store, func() {
		if err := store.Close(); err != nil {
			logr.Warn("failed to close redis", zap.Error(err))
		}
	}
}
