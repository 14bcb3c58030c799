package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jobdeck/api/internal/config"
	"github.com/jobdeck/api/internal/middleware"
)

func NewRouter(
	cfg *config.Config,
	healthHandler *HealthHandler,
	twoFactorHandler *TwoFactorHandler,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware (order matters!)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.SecurityHeaders(cfg.Server.HTTPS))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.CORS))

	// Health endpoints (no auth required)
	r.GET("/health", healthHandler.Shallow)
	r.GET("/health/ready", healthHandler.Ready)

	// Prometheus metrics endpoint (restrict to internal IPs in production)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		twofa := v1.Group("/2fa")
		twofa.Use(middleware.RequireAuth(cfg.Security.JWTSecret))
		{
			twofa.POST("/setup", twoFactorHandler.Setup)
			twofa.POST("/enable", twoFactorHandler.Enable)
			twofa.POST("/verify", twoFactorHandler.Verify)
			twofa.POST("/disable", twoFactorHandler.Disable)
			twofa.POST("/backup-codes/regenerate", twoFactorHandler.RegenerateBackupCodes)
		}
	}

	return r
}
