package handler

import (
	"time"

	"course-admin-gateway/internal/adapter/http/middleware"
	redisStore "course-admin-gateway/internal/adapter/storage/redis"
	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/internal/monitoring"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	ReceiverSvc     ports.ReceiverService
	SenderSvc       ports.SenderService
	UserSvc         ports.UserService
	CourseSvc       ports.CourseService
	TopicSvc        ports.TopicService
	APIKeySvc       ports.APIKeyService
	AccessLogSvc    ports.AccessLogService
	WebhookAdminSvc ports.WebhookAdminService
	TokenSvc        ports.TokenService
	RateLimitStore  *redisStore.RateLimitStore // nil = rate limiting disabled
	Metrics         *monitoring.Metrics
	HealthCheckers  []ports.HealthChecker
	Logger          zerolog.Logger

	PartnerName   string
	KeyRateWindow time.Duration
	CORSOrigins   []string
	Mode          string
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	}
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(deps.Metrics.Middleware())
	r.Use(corsMiddleware(deps.CORSOrigins))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.Metrics != nil {
		r.GET("/metrics", deps.Metrics.GinHandler())
	}

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	adminOnly := middleware.RequireAdmin()

	// --- Webhooks ---
	webhookHandler := NewWebhookHandler(deps.ReceiverSvc, deps.SenderSvc, deps.PartnerName)
	r.POST("/webhook-receiver", rl("webhook_receiver"), webhookHandler.Receive)
	r.POST("/webhook-sender", jwtAuth, adminOnly, webhookHandler.Send)

	// --- Users and sessions ---
	userHandler := NewUserHandler(deps.UserSvc)
	r.POST("/create-user", jwtAuth, adminOnly, userHandler.CreateUser)
	auth := r.Group("/auth")
	{
		auth.POST("/login", rl("auth_login"), userHandler.Login)
		auth.POST("/change-password", jwtAuth, userHandler.ChangePassword)
	}

	// --- API key gateway ---
	gateway := []gin.HandlerFunc{
		middleware.AccessLog(deps.AccessLogSvc),
		middleware.APIKeyAuth(deps.APIKeySvc, deps.Metrics),
	}
	if deps.RateLimitStore != nil {
		window := deps.KeyRateWindow
		if window <= 0 {
			window = time.Minute
		}
		gateway = append(gateway, middleware.KeyRateLimiter(deps.RateLimitStore, window, deps.Metrics, deps.Logger))
	}

	courseHandler := NewCourseHandler(deps.CourseSvc)
	topicHandler := NewTopicHandler(deps.TopicSvc)
	coursePerm := middleware.RequirePermission(domain.RequiredCoursePermission, deps.Metrics)
	topicPerm := middleware.RequirePermission(domain.RequiredTopicPermission, deps.Metrics)
	enrollmentPerm := middleware.RequirePermission(func(string) domain.Permission {
		return domain.PermEnrollmentsRead
	}, deps.Metrics)

	courses := r.Group("/api-courses", gateway...)
	{
		courses.GET("", coursePerm, courseHandler.List)
		courses.POST("", coursePerm, courseHandler.Create)
		courses.GET("/:id", coursePerm, courseHandler.Get)
		courses.PUT("/:id", coursePerm, courseHandler.Update)
		courses.DELETE("/:id", coursePerm, courseHandler.Delete)
		courses.GET("/:id/enrollments", enrollmentPerm, courseHandler.ListEnrollments)

		topics := courses.Group("/:id/topics", topicPerm)
		{
			topics.GET("", topicHandler.List)
			topics.POST("", topicHandler.Create)
			topics.PUT("/order", topicHandler.Reorder)
			topics.GET("/:topicId", topicHandler.Get)
			topics.PUT("/:topicId", topicHandler.Update)
			topics.DELETE("/:topicId", topicHandler.Delete)
			topics.PUT("/:topicId/parent", topicHandler.Reparent)
			topics.POST("/:topicId/duplicate", topicHandler.Duplicate)
		}
	}

	// --- Admin UI backend ---
	adminHandler := NewAdminHandler(deps.WebhookAdminSvc, deps.APIKeySvc)
	admin := r.Group("/admin", jwtAuth, adminOnly)
	{
		admin.GET("/webhook-configs", adminHandler.ListWebhookConfigs)
		admin.POST("/webhook-configs", adminHandler.CreateWebhookConfig)
		admin.GET("/webhook-configs/:id", adminHandler.GetWebhookConfig)
		admin.PUT("/webhook-configs/:id", adminHandler.UpdateWebhookConfig)
		admin.DELETE("/webhook-configs/:id", adminHandler.DeleteWebhookConfig)

		admin.GET("/webhook-logs", adminHandler.ListWebhookLogs)
		admin.POST("/webhook-logs/delete", adminHandler.DeleteWebhookLogs)

		admin.GET("/product-mappings", adminHandler.ListProductMappings)
		admin.POST("/product-mappings", adminHandler.CreateProductMapping)

		admin.GET("/api-keys", adminHandler.ListAPIKeys)
		admin.POST("/api-keys", adminHandler.CreateAPIKey)
		admin.DELETE("/api-keys/:id", adminHandler.RevokeAPIKey)
	}

	return r
}

// corsMiddleware allows the admin UI origins. An empty list allows any
// origin without credentials.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.HeaderAPIKey, "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
