package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/school-health-api/api/swagger"
	"github.com/noah-isme/school-health-api/internal/handler"
	internalmiddleware "github.com/noah-isme/school-health-api/internal/middleware"
	"github.com/noah-isme/school-health-api/internal/repository"
	"github.com/noah-isme/school-health-api/internal/service"
	"github.com/noah-isme/school-health-api/pkg/cache"
	"github.com/noah-isme/school-health-api/pkg/config"
	"github.com/noah-isme/school-health-api/pkg/database"
	"github.com/noah-isme/school-health-api/pkg/export"
	"github.com/noah-isme/school-health-api/pkg/jobs"
	"github.com/noah-isme/school-health-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-health-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-health-api/pkg/middleware/requestid"
	"github.com/noah-isme/school-health-api/pkg/storage"
)

// @title School Health API
// @version 1.0.0
// @description Nutritional status monitoring and school feeding program management
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logr.Fatal("failed to migrate database", zap.Error(err))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled and sensor readings kept in memory", zap.Error(err))
	} else {
		defer redisClient.Close()
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	var readings service.ReadingStore = repository.NewMemoryReadingStore(cfg.Sensor.ReadingTTL)
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		readings = repository.NewRedisReadingStore(redisClient, cfg.Sensor.ReadingTTL)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled)

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	measurementRepo := repository.NewMeasurementRepository(db)
	programRepo := repository.NewFeedingProgramRepository(db)
	beneficiaryRepo := repository.NewBeneficiaryRepository(db)

	sources := service.SnapshotSources{
		Students:      studentRepo,
		Measurements:  measurementRepo,
		Programs:      programRepo,
		Beneficiaries: beneficiaryRepo,
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "school-health-api",
	})
	if cfg.Admin.Email != "" {
		if err := authSvc.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.FullName); err != nil {
			logr.Fatal("failed to seed administrator", zap.Error(err))
		}
	}

	studentSvc := service.NewStudentService(studentRepo, cacheSvc, validate, logr)
	bounds := service.BMIBounds{Min: cfg.Nutrition.MinBMI, Max: cfg.Nutrition.MaxBMI}
	measurementSvc := service.NewMeasurementService(studentRepo, measurementRepo, cacheSvc, metrics, bounds, validate, logr)
	clock := service.SchoolClock(cfg.School.Location)
	programSvc := service.NewFeedingProgramService(programRepo, beneficiaryRepo, studentRepo, sources, cacheSvc, validate, logr).WithClock(clock)
	kpiSvc := service.NewKPIService(sources, cacheSvc, cfg.Dashboard.CacheTTL, logr).WithClock(clock)
	dashboardSvc := service.NewDashboardService(sources, measurementRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr).WithClock(clock)

	handlers := handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Students:     handler.NewStudentHandler(studentSvc),
		Measurements: handler.NewMeasurementHandler(measurementSvc),
		Programs:     handler.NewFeedingProgramHandler(programSvc),
		Dashboard:    handler.NewDashboardHandler(kpiSvc, dashboardSvc),
	}
	if cfg.Sensor.Enabled {
		handlers.Sensor = handler.NewSensorHandler(service.NewSensorService(readings, measurementSvc, validate, logr))
	}

	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		reportQueue, handlers.Reports, err = setupReports(ctx, cfg, db, sources, programSvc, metrics, validate, logr)
		if err != nil {
			logr.Fatal("failed to initialise reports", zap.Error(err))
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.WithResponseMeta())
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handlers, authSvc, userRepo, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	if reportQueue != nil {
		reportQueue.Stop()
	}
}

func setupReports(
	ctx context.Context,
	cfg *config.Config,
	db *sqlx.DB,
	sources service.SnapshotSources,
	programs *service.FeedingProgramService,
	metrics *service.MetricsService,
	validate *validator.Validate,
	logr *zap.Logger,
) (*jobs.Queue, *handler.ReportHandler, error) {
	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return nil, nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exporter := service.NewExportService(sources, programs, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr, export.NewCSVExporter(export.WithBOM()), export.NewPDFExporter()).WithClock(service.SchoolClock(cfg.School.Location))

	reportRepo := repository.NewReportRepository(db)
	worker := service.NewReportWorker(reportRepo, exporter, metrics, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:     cfg.Reports.WorkerConcurrency,
		MaxRetries:  cfg.Reports.WorkerRetries,
		RetryDelay:  2 * time.Second,
		OnExhausted: worker.MarkFailed,
		Logger:      logr,
	})
	queue.Start(ctx)

	reports := service.NewReportService(reportRepo, queue, exporter, validate, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})
	reports.RecoverPendingJobs(ctx)
	reports.StartCleanup(ctx)

	return queue, handler.NewReportHandler(reports), nil
}
