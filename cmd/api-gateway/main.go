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

	_ "github.com/noah-isme/timetable-api/api/swagger"
	"github.com/noah-isme/timetable-api/internal/handler"
	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

// @title Timetable API
// @version 1.0.0
// @description Timetable generation service: batches, subjects, teachers, classrooms and conflict-free schedules
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	teacherRepo := repository.NewTeacherRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	userRepo := repository.NewUserRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Scheduler.ResultCacheTTL, logr, redisClient != nil)
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	teacherSvc := service.NewTeacherService(teacherRepo, subjectRepo, cacheSvc, nil, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, cacheSvc, nil, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, teacherRepo, cacheSvc, nil, logr)
	batchSvc := service.NewBatchService(batchRepo, subjectRepo, cacheSvc, nil, logr)
	timetableSvc := service.NewTimetableService(batchRepo, subjectRepo, teacherRepo, classroomRepo, cacheSvc, metricsSvc, nil, logr, service.TimetableConfig{
		GenerationBudget: cfg.Scheduler.GenerationBudget,
		ResultCacheTTL:   cfg.Scheduler.ResultCacheTTL,
	})

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("failed to init export storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(exportJobRepo, timetableSvc, fileStore, signer, metricsSvc, nil, logr, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.ResultTTL,
		})
		queue := jobs.NewQueue("timetable-exports", exportSvc.HandleJob, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportSvc.AttachQueue(queue)
		queue.Start(ctx)
		defer queue.Stop()

		go func() {
			ticker := time.NewTicker(cfg.Exports.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					exportSvc.Cleanup(ctx)
				}
			}
		}()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	classroomHandler := handler.NewClassroomHandler(classroomSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	batchHandler := handler.NewBatchHandler(batchSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/register", authHandler.Register)

	authed := api.Group("", middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)

	authed.GET("/teachers", teacherHandler.List)
	authed.GET("/teachers/:id", teacherHandler.Get)
	authed.POST("/teachers", staff, teacherHandler.Create)
	authed.PUT("/teachers/:id", staff, teacherHandler.Update)
	authed.DELETE("/teachers/:id", staff, teacherHandler.Delete)

	authed.GET("/classrooms", classroomHandler.List)
	authed.GET("/classrooms/:id", classroomHandler.Get)
	authed.POST("/classrooms", staff, classroomHandler.Create)
	authed.PUT("/classrooms/:id", staff, classroomHandler.Update)
	authed.DELETE("/classrooms/:id", staff, classroomHandler.Delete)

	authed.GET("/subjects", subjectHandler.List)
	authed.GET("/subjects/:id", subjectHandler.Get)
	authed.POST("/subjects", staff, subjectHandler.Create)
	authed.PUT("/subjects/:id", staff, subjectHandler.Update)
	authed.DELETE("/subjects/:id", staff, subjectHandler.Delete)

	authed.GET("/batches", batchHandler.List)
	authed.GET("/batches/:id", batchHandler.Get)
	authed.POST("/batches", staff, batchHandler.Create)
	authed.PUT("/batches/:id", staff, batchHandler.Update)
	authed.DELETE("/batches/:id", staff, batchHandler.Delete)

	api.GET("/timetable/health", timetableHandler.Health)
	authed.POST("/timetable/generate", timetableHandler.Generate)

	if exportSvc != nil {
		exportHandler := handler.NewExportHandler(exportSvc)
		authed.POST("/timetable/exports", exportHandler.Enqueue)
		authed.GET("/timetable/exports/:id", exportHandler.Status)
		// Download is authorized by the signed token, not a session.
		api.GET("/timetable/exports/:id/download", exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
