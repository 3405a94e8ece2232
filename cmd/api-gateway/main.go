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

	"github.com/noah-isme/obe-portal-api/internal/handler"
	"github.com/noah-isme/obe-portal-api/internal/middleware"
	"github.com/noah-isme/obe-portal-api/internal/models"
	"github.com/noah-isme/obe-portal-api/internal/repository"
	"github.com/noah-isme/obe-portal-api/internal/service"
	"github.com/noah-isme/obe-portal-api/pkg/cache"
	"github.com/noah-isme/obe-portal-api/pkg/config"
	"github.com/noah-isme/obe-portal-api/pkg/database"
	"github.com/noah-isme/obe-portal-api/pkg/jobs"
	"github.com/noah-isme/obe-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/obe-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/obe-portal-api/pkg/middleware/requestid"
	"github.com/noah-isme/obe-portal-api/pkg/storage"
)

// @title OBE Portal API
// @version 0.1.0
// @description Outcome-based education attainment portal
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, attainment cache disabled", "error", err)
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheEnabled := cfg.Attainment.CacheEnabled && redisClient != nil
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Attainment.CacheTTL, logr, cacheEnabled)

	snapshotRepo := repository.NewSnapshotRepository(db)
	userRepo := repository.NewUserRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	attainmentSvc := service.NewAttainmentService(snapshotRepo, cacheSvc, metricsSvc, logr, cfg.Attainment.CacheTTL)
	settingsSvc := service.NewSettingsService(settingsRepo, cacheSvc, nil, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	authHandler := handler.NewAuthHandler(authSvc)
	attainmentHandler := handler.NewAttainmentHandler(attainmentSvc)
	settingsHandler := handler.NewSettingsHandler(settingsSvc)

	api := r.Group(cfg.APIPrefix)

	authRoutes := api.Group("/auth")
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	attainmentRoutes := api.Group("/attainment", middleware.JWT(authSvc))
	attainmentRoutes.GET("/courses/:courseId", attainmentHandler.CourseAttainment)
	attainmentRoutes.GET("/courses/:courseId/students/:studentId", attainmentHandler.StudentAttainment)
	attainmentRoutes.GET("/programs/:programId",
		middleware.RequireRoles(models.RoleAdmin, models.RoleProgramCoordinator, models.RoleDepartment, models.RoleUniversity),
		attainmentHandler.ProgramAttainment)

	settingsRoutes := api.Group("/settings", middleware.JWT(authSvc))
	settingsRoutes.GET("", settingsHandler.GetSettings)
	settingsRoutes.PUT("", middleware.RequireRoles(models.RoleAdmin), settingsHandler.UpdateSettings)

	api.GET("/metrics/system", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), metricsHandler.SystemMetrics)

	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportSvc := service.NewExportService(attainmentSvc, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr, nil, nil)

	exportHandler := handler.NewExportHandler(exportSvc)
	reportRoutes := api.Group("/reports")
	reportRoutes.GET("/courses/:courseId", middleware.JWT(authSvc), exportHandler.ExportCourse)
	reportRoutes.GET("/programs/:programId",
		middleware.JWT(authSvc),
		middleware.RequireRoles(models.RoleAdmin, models.RoleProgramCoordinator, models.RoleDepartment, models.RoleUniversity),
		exportHandler.ExportProgram)

	var queue *jobs.Queue
	if cfg.Reports.Enabled {
		reportRepo := repository.NewReportRepository(db)
		worker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
		queue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(ctx)

		reportSvc := service.NewReportService(reportRepo, attainmentSvc, queue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)

		reportHandler := handler.NewReportHandler(reportSvc, logr)
		reportRoutes.POST("/generate", middleware.JWT(authSvc), reportHandler.GenerateReport)
		reportRoutes.GET("/status/:id", middleware.JWT(authSvc), reportHandler.ReportStatus)
		reportRoutes.GET("/download/:token", reportHandler.DownloadReport)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	if queue != nil {
		queue.Stop()
	}
}
