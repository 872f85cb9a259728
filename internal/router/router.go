package router

import (
	"fmt"
	"strings"
	"time"

	"github.com/certvault/internal/cache"
	"github.com/certvault/internal/config"
	adminhandlers "github.com/certvault/internal/http/handlers/admin"
	publichandlers "github.com/certvault/internal/http/handlers/public"
	"github.com/certvault/internal/http/response"
	"github.com/certvault/internal/logger"
	"github.com/certvault/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)

	// Redis 可用时限流计数跨实例共享，否则退回进程内计数
	var limiter Limiter
	if cache.Enabled() {
		limiter = NewRedisLimiter(cache.Client())
	} else {
		limiter = NewMemoryLimiter()
	}

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "cv"
	}
	apiRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:api", redisPrefix),
		WindowSeconds: cfg.Security.APIRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.APIRateLimit.MaxRequests,
	}
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxRequests,
		Message:       "登录尝试过于频繁，请稍后重试",
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// 健康检查不参与限流
	r.GET("/health", func(ctx *gin.Context) {
		response.Success(ctx, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	api := r.Group("/api")
	api.Use(RateLimitMiddleware(limiter, apiRule, KeyByIP))
	{
		// 公开查询接口
		results := api.Group("/results")
		{
			results.GET("/search", publicHandler.Search)
			results.GET("/search/:rollNumber", publicHandler.Search)
			results.POST("/verify-roll", publicHandler.Verify)
			results.GET("/recent", publicHandler.Recent)
			results.GET("/stats/public", publicHandler.Stats)
		}

		// 管理员认证接口
		auth := api.Group("/auth")
		{
			auth.POST("/login", RateLimitMiddleware(limiter, loginRule, KeyByIP), adminHandler.Login)
			auth.GET("/captcha", publicHandler.Captcha)

			authorized := auth.Group("")
			authorized.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.POST("/register", adminHandler.Register)
				authorized.GET("/me", adminHandler.GetProfile)
				authorized.PUT("/profile", adminHandler.UpdateProfile)
				authorized.POST("/change-password", adminHandler.ChangePassword)
				authorized.POST("/logout", adminHandler.Logout)
			}
		}

		// 证书管理接口
		certificates := api.Group("/certificates")
		certificates.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
		{
			certificates.POST("/upload", adminHandler.Upload)
			certificates.GET("", adminHandler.List)
			certificates.GET("/stats", adminHandler.Stats)
			certificates.GET("/export", adminHandler.Export)
			certificates.GET("/:id", adminHandler.Get)
			certificates.PUT("/:id", adminHandler.Update)
			certificates.DELETE("/:id", adminHandler.Delete)
		}
	}

	return r
}
