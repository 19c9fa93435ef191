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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/staffly-dev/hr-attendance-api/api/swagger"
	"github.com/staffly-dev/hr-attendance-api/internal/handler"
	"github.com/staffly-dev/hr-attendance-api/internal/middleware"
	"github.com/staffly-dev/hr-attendance-api/internal/models"
	"github.com/staffly-dev/hr-attendance-api/internal/repository"
	"github.com/staffly-dev/hr-attendance-api/internal/service"
	"github.com/staffly-dev/hr-attendance-api/pkg/cache"
	"github.com/staffly-dev/hr-attendance-api/pkg/config"
	"github.com/staffly-dev/hr-attendance-api/pkg/database"
	"github.com/staffly-dev/hr-attendance-api/pkg/jobs"
	"github.com/staffly-dev/hr-attendance-api/pkg/logger"
	corsmiddleware "github.com/staffly-dev/hr-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/staffly-dev/hr-attendance-api/pkg/middleware/requestid"
	"github.com/staffly-dev/hr-attendance-api/pkg/storage"
)

// @title HR Attendance API
// @version 1.0.0
// @description Employee attendance, scheduling, leave and reporting backend
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	validate := validator.New()

	// Repositories.
	employeeRepo := repository.NewEmployeeRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	// Services.
	metricsSvc := service.NewMetricsService()

	scheduleSvc := service.NewScheduleService(scheduleRepo, nil, cfg.Schedule.CacheTTL, validate, logr)
	if cfg.Schedule.CacheEnabled {
		scheduleSvc = service.NewScheduleService(scheduleRepo, cacheRepo, cfg.Schedule.CacheTTL, validate, logr)
	}
	scheduleSvc.SetMetrics(metricsSvc)

	attendanceSvc := service.NewAttendanceService(scheduleSvc, attendanceRepo, metricsSvc, validate, logr)
	leaveSvc := service.NewLeaveService(leaveRepo, notificationRepo, metricsSvc, validate, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, logr)
	employeeSvc := service.NewEmployeeService(employeeRepo, validate, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "hr-attendance-api",
	})

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	employeeHandler := handler.NewEmployeeHandler(employeeSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	leaveHandler := handler.NewLeaveHandler(leaveSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	punchLimiter := middleware.NewFixedWindowLimiter(cacheRepo, cfg.Kiosk.RateLimitPerMinute, cfg.Kiosk.RateLimitWindow)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/logout-all", middleware.JWT(authSvc), authHandler.LogoutAll)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	// Kiosk punch ingestion is device-authenticated upstream, not JWT-bound.
	api.POST("/attendance/punch", middleware.KioskRateLimit(punchLimiter, logr), attendanceHandler.Punch)

	protected := api.Group("", middleware.JWT(authSvc))
	{
		adminOnly := middleware.RequireRoles(models.RoleAdmin)

		employees := protected.Group("/employees", adminOnly)
		{
			employees.POST("", employeeHandler.Create)
			employees.GET("", employeeHandler.List)
			employees.GET("/:id", employeeHandler.Get)
			employees.PUT("/:id", employeeHandler.Update)
			employees.DELETE("/:id", employeeHandler.Deactivate)
		}

		schedules := protected.Group("/schedules")
		{
			schedules.POST("", adminOnly, scheduleHandler.Define)
			schedules.POST("/assign", adminOnly, scheduleHandler.Assign)
			schedules.GET("/employees/:id/day", middleware.RequireSelfOrAdmin("id"), scheduleHandler.DayPeriods)
			schedules.GET("/employees/:id/week", middleware.RequireSelfOrAdmin("id"), scheduleHandler.WeekTimetable)
		}

		attendance := protected.Group("/attendance")
		{
			attendance.POST("/corrections", adminOnly, attendanceHandler.Corrections)
			attendance.GET("", adminOnly, attendanceHandler.List)
			attendance.GET("/employees/:id", middleware.RequireSelfOrAdmin("id"), attendanceHandler.Get)
			attendance.GET("/employees/:id/summary", middleware.RequireSelfOrAdmin("id"), attendanceHandler.Summary)
		}

		leave := protected.Group("/leave")
		{
			leave.POST("", leaveHandler.Submit)
			leave.GET("", leaveHandler.List)
			leave.GET("/:id", leaveHandler.Get)
			leave.DELETE("/:id", leaveHandler.Cancel)
			leave.POST("/:id/approve", adminOnly, leaveHandler.Approve)
			leave.POST("/:id/reject", adminOnly, leaveHandler.Reject)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", notificationHandler.List)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
		}

		if cfg.Reports.Enabled {
			reportSvc, queue, err := buildReportPipeline(ctx, cfg, attendanceRepo, leaveRepo, reportRepo, logr)
			if err != nil {
				logr.Fatal("failed to init report pipeline", zap.Error(err))
			}
			defer queue.Stop()

			reportHandler := handler.NewReportHandler(reportSvc)
			reports := protected.Group("/reports")
			{
				reports.POST("/generate", reportHandler.Generate)
				reports.GET("/status/:id", reportHandler.Status)
				reports.GET("/download/:token", reportHandler.Download)
			}
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildReportPipeline wires storage, the export renderer, the worker queue and
// job recovery. Reports are optional so a broken storage dir only matters when
// the feature is on.
func buildReportPipeline(
	ctx context.Context,
	cfg *config.Config,
	attendanceRepo *repository.AttendanceRepository,
	leaveRepo *repository.LeaveRepository,
	reportRepo *repository.ReportRepository,
	logr *zap.Logger,
) (*service.ReportService, *jobs.Queue, error) {
	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return nil, nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	exportSvc := service.NewExportService(attendanceRepo, leaveRepo, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr)

	worker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	queue.Start(ctx)

	reportSvc := service.NewReportService(reportRepo, queue, exportSvc, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: time.Hour,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)

	return reportSvc, queue, nil
}
