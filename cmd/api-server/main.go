package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/civoranexus/eduvillage-api/api/swagger"
	"github.com/civoranexus/eduvillage-api/internal/handler"
	"github.com/civoranexus/eduvillage-api/internal/middleware"
	"github.com/civoranexus/eduvillage-api/internal/models"
	"github.com/civoranexus/eduvillage-api/internal/repository"
	"github.com/civoranexus/eduvillage-api/internal/service"
	"github.com/civoranexus/eduvillage-api/pkg/cache"
	"github.com/civoranexus/eduvillage-api/pkg/config"
	"github.com/civoranexus/eduvillage-api/pkg/database"
	"github.com/civoranexus/eduvillage-api/pkg/export"
	"github.com/civoranexus/eduvillage-api/pkg/logger"
	corsmiddleware "github.com/civoranexus/eduvillage-api/pkg/middleware/cors"
	reqidmiddleware "github.com/civoranexus/eduvillage-api/pkg/middleware/requestid"
)

// @title EduVillage API
// @version 1.0.0
// @description Course hosting platform: accounts, catalog, enrollments and lectures
// @BasePath /api
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

	var redisClient *redis.Client
	if cfg.Catalog.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			// The catalog works uncached; log and carry on.
			logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
			redisClient = nil
		}
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	lectureRepo := repository.NewLectureRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	courseSvc := service.NewCourseService(courseRepo, cacheRepo, metricsSvc, validate, logr, cfg.Catalog.CacheTTL)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, cacheRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)
	lectureSvc := service.NewLectureService(lectureRepo, courseRepo, enrollmentRepo, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	lectureHandler := handler.NewLectureHandler(lectureSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	registerSystemRoutes(r, cfg, db, redisClient, metricsHandler)
	registerAPIRoutes(r, cfg, authSvc, authHandler, courseHandler, enrollmentHandler, lectureHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func registerSystemRoutes(r *gin.Engine, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, metricsHandler *handler.MetricsHandler) {
	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		checks := gin.H{"database": "ok"}
		if err := db.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "down"
			status = http.StatusServiceUnavailable
		}
		if redisClient != nil {
			checks["cache"] = "ok"
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				checks["cache"] = "down"
			}
		}
		c.JSON(status, gin.H{"status": statusWord(status), "checks": checks})
	})

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "degraded"
}

func registerAPIRoutes(
	r *gin.Engine,
	cfg *config.Config,
	authSvc *service.AuthService,
	authHandler *handler.AuthHandler,
	courseHandler *handler.CourseHandler,
	enrollmentHandler *handler.EnrollmentHandler,
	lectureHandler *handler.LectureHandler,
) {
	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)

		me := auth.Group("")
		me.Use(middleware.JWT(authSvc))
		me.GET("/me", authHandler.Me)
		me.PUT("/me", authHandler.UpdateMe)
		me.PUT("/password", authHandler.ChangePassword)
	}

	courses := api.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.GET("/categories", courseHandler.Categories)
		courses.GET("/:id", middleware.OptionalJWT(authSvc), courseHandler.Get)
		courses.GET("/instructor/:instructorId", middleware.OptionalJWT(authSvc), courseHandler.ListByInstructor)

		authed := courses.Group("")
		authed.Use(middleware.JWT(authSvc))
		authed.POST("", middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), courseHandler.Create)
		authed.PUT("/:id", courseHandler.Update)
		authed.DELETE("/:id", courseHandler.Delete)
		authed.GET("/user/enrolled", courseHandler.ListEnrolled)

		authed.POST("/:id/enroll", enrollmentHandler.Enroll)
		authed.DELETE("/:id/enroll", enrollmentHandler.Unenroll)
		authed.POST("/:id/complete", enrollmentHandler.Complete)
		authed.GET("/:id/enrollment", enrollmentHandler.Status)
		authed.GET("/:id/roster", enrollmentHandler.Roster)
		authed.GET("/:id/roster/export", enrollmentHandler.ExportRoster)
	}

	lectures := api.Group("/lectures")
	lectures.Use(middleware.JWT(authSvc))
	{
		lectures.GET("/course/:courseId", lectureHandler.ListByCourse)
		lectures.POST("/course/:courseId", middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), lectureHandler.Create)
		lectures.GET("/instructor/:instructorId", middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), lectureHandler.ListByInstructor)
		lectures.PUT("/course/:courseId/order", middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), lectureHandler.Reorder)
		lectures.GET("/:id", lectureHandler.Get)
		lectures.PUT("/:id", middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), lectureHandler.Update)
		lectures.DELETE("/:id", middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin), lectureHandler.Delete)
	}
}
