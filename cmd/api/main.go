package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edusync/school-api/api/swagger"
	"github.com/edusync/school-api/internal/handler"
	"github.com/edusync/school-api/internal/middleware"
	"github.com/edusync/school-api/internal/models"
	"github.com/edusync/school-api/internal/repository"
	"github.com/edusync/school-api/internal/service"
	"github.com/edusync/school-api/pkg/cache"
	"github.com/edusync/school-api/pkg/config"
	"github.com/edusync/school-api/pkg/database"
	"github.com/edusync/school-api/pkg/logger"
	corsmiddleware "github.com/edusync/school-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edusync/school-api/pkg/middleware/requestid"
)

// @title School Attendance API
// @version 1.0.0
// @description Multi-tenant school attendance recording and reporting service.
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The cache is an optimisation, not a dependency.
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		defer redisClient.Close()
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metricsSvc, logr)
	}

	userRepo := repository.NewUserRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	teacherAttendanceRepo := repository.NewTeacherAttendanceRepository(db)

	policy := service.NewAttendancePolicy()
	authSvc := service.NewAuthService(userRepo, cfg.JWT, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, userRepo, policy, cacheSvc, metricsSvc, cfg.Attendance, logr)
	teacherAttendanceSvc := service.NewTeacherAttendanceService(teacherAttendanceRepo, userRepo, cfg.Attendance, logr, func() string {
		return uuid.New().String()
	})
	exportSvc := service.NewExportService(attendanceSvc, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, exportSvc)
	teacherAttendanceHandler := handler.NewTeacherAttendanceHandler(teacherAttendanceSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)

	// URL-based marking is deliberately unauthenticated; the record
	// carries method=url and no marker identity.
	api.GET("/attendance/mark/:studentId", attendanceHandler.MarkViaURL)

	staff := api.Group("")
	staff.Use(middleware.JWT(authSvc))
	staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
	{
		staff.GET("/attendance/stats", attendanceHandler.Stats)
		staff.GET("/attendance/history", attendanceHandler.History)
		staff.GET("/attendance/history/export", attendanceHandler.ExportHistory)
		staff.GET("/attendance/percentage/today", attendanceHandler.TodayPercentage)
		staff.POST("/attendance/manual", attendanceHandler.MarkManual)
		staff.GET("/students", attendanceHandler.Students)
		staff.POST("/teacher-attendance/scan", teacherAttendanceHandler.Scan)
	}

	admin := api.Group("/teacher-attendance")
	admin.Use(middleware.JWT(authSvc))
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/today", teacherAttendanceHandler.Today)
		admin.GET("/notifications", teacherAttendanceHandler.Notifications)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
