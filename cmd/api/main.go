package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/skillsphere/skillsphere-api/api/swagger"
	"github.com/skillsphere/skillsphere-api/internal/handler"
	"github.com/skillsphere/skillsphere-api/internal/middleware"
	"github.com/skillsphere/skillsphere-api/internal/models"
	"github.com/skillsphere/skillsphere-api/internal/repository"
	"github.com/skillsphere/skillsphere-api/internal/service"
	"github.com/skillsphere/skillsphere-api/pkg/cache"
	"github.com/skillsphere/skillsphere-api/pkg/config"
	"github.com/skillsphere/skillsphere-api/pkg/database"
	"github.com/skillsphere/skillsphere-api/pkg/logger"
	"github.com/skillsphere/skillsphere-api/pkg/mailer"
	corsmiddleware "github.com/skillsphere/skillsphere-api/pkg/middleware/cors"
	reqidmiddleware "github.com/skillsphere/skillsphere-api/pkg/middleware/requestid"
)

// @title SkillSphere API
// @version 1.0.0
// @description Online course marketplace: catalog, course lifecycle, enrollments and dashboards
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

	cacheAvailable := true
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard caching disabled", zap.Error(err))
		cacheAvailable = false
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	timeEventRepo := repository.NewTimeEventRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services
	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && cacheAvailable)
	reviewMailer := mailer.New(mailer.Config{
		Enabled:   cfg.Notifications.Enabled,
		APIKey:    cfg.Notifications.SendgridAPIKey,
		FromName:  cfg.Notifications.FromName,
		FromEmail: cfg.Notifications.FromEmail,
	}, logr)

	authService := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "skillsphere-api",
	})
	lifecycleService := service.NewLifecycleService(courseRepo, categoryRepo, userRepo, reviewMailer, metricsService, nil, logr)
	catalogService := service.NewCatalogService(courseRepo, lessonRepo, enrollmentRepo, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, courseRepo, courseRepo, timeEventRepo, metricsService, nil, logr)
	categoryService := service.NewCategoryService(categoryRepo, nil, logr)
	lessonService := service.NewLessonService(lessonRepo, courseRepo, nil, logr)
	dashboardService := service.NewDashboardService(service.DashboardServiceParams{
		LearnerStats:    enrollmentService,
		InstructorStats: enrollmentService,
		Enrollments:     enrollmentRepo,
		Courses:         courseRepo,
		Cache:           cacheService,
		Logger:          logr,
		Config:          service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})
	exportService := service.NewExportService(courseRepo, nil, nil, logr)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	courseHandler := handler.NewCourseHandler(lifecycleService)
	catalogHandler := handler.NewCatalogHandler(catalogService, cfg.Catalog)
	lessonHandler := handler.NewLessonHandler(lessonService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	exportHandler := handler.NewExportHandler(exportService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))
	r.Use(middleware.WithResponseMeta())

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

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("", middleware.JWT(authService))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	catalog := api.Group("", middleware.OptionalJWT(authService))
	{
		catalog.GET("/courses", catalogHandler.List)
		catalog.GET("/courses/:id", catalogHandler.Get)
		catalog.GET("/categories", categoryHandler.List)
	}

	authed := api.Group("", middleware.JWT(authService))
	{
		authed.GET("/courses/:id/history", courseHandler.History)
		authed.GET("/status", metricsHandler.Status)
	}

	instructor := api.Group("", middleware.JWT(authService), middleware.RequireRoles(models.RoleInstructor))
	{
		instructor.POST("/courses", courseHandler.Create)
		instructor.PUT("/courses/:id", courseHandler.Update)
		instructor.DELETE("/courses/:id", courseHandler.Delete)
		instructor.POST("/courses/:id/submit",
			middleware.Audit(userRepo, models.AuditActionCourseSubmit, "course"), courseHandler.Submit)
		instructor.GET("/courses/:id/lessons", lessonHandler.ListByCourse)
		instructor.POST("/courses/:id/lessons", lessonHandler.Create)
		instructor.PUT("/lessons/:id", lessonHandler.Update)
		instructor.DELETE("/lessons/:id", lessonHandler.Delete)
		instructor.GET("/dashboard/instructor", dashboardHandler.Instructor)
		if cfg.Exports.Enabled {
			instructor.GET("/exports/courses", exportHandler.InstructorCourses)
		}
	}

	admin := api.Group("", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/courses/:id/approve",
			middleware.Audit(userRepo, models.AuditActionCourseApprove, "course"), courseHandler.Approve)
		admin.POST("/courses/:id/reject",
			middleware.Audit(userRepo, models.AuditActionCourseReject, "course"), courseHandler.Reject)
		admin.POST("/categories", categoryHandler.Create)
		admin.GET("/dashboard/admin", dashboardHandler.Admin)
		if cfg.Exports.Enabled {
			admin.GET("/exports/review-queue", exportHandler.ReviewQueue)
		}
	}

	learner := api.Group("", middleware.JWT(authService), middleware.RequireRoles(models.RoleLearner))
	{
		learner.POST("/enrollments",
			middleware.Audit(userRepo, models.AuditActionEnroll, "enrollment"), enrollmentHandler.Create)
		learner.GET("/enrollments", enrollmentHandler.List)
		learner.PATCH("/enrollments/:id/progress", enrollmentHandler.UpdateProgress)
		learner.GET("/dashboard/learner", dashboardHandler.Learner)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
